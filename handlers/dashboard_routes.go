// handlers/dashboard_routes.go
package handlers

import (
	"log"
	"strconv"

	"turtleboard/middleware"
	"turtleboard/models"
	"turtleboard/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SetupDashboardRoutes serves the widgets on the dashboard landing page:
// entity counts, proxy status breakdown, top inviters, the activity feed and
// operator lookup.
func SetupDashboardRoutes(app *fiber.App, db *gorm.DB, activityService *services.ActivityService, userService *services.UserService) {
	group := app.Group("/", middleware.UserContextMiddleware())

	group.Get("/dashboard/stats", func(c *fiber.Ctx) error {
		counts := fiber.Map{}
		for name, model := range map[string]any{
			"proxies":           &models.Proxy{},
			"email_accounts":    &models.EmailAccount{},
			"exchange_accounts": &models.ExchangeAccount{},
			"wallets":           &models.Wallet{},
			"referrals":         &models.ReferralEdge{},
			"relationships":     &models.AccountRelationship{},
		} {
			var n int64
			if err := db.Model(model).Count(&n).Error; err != nil {
				log.Printf("DB Error counting %s: %v", name, err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to compute stats"})
			}
			counts[name] = n
		}

		type statusCount struct {
			Status string `json:"status"`
			Count  int64  `json:"count"`
		}
		var proxyBreakdown []statusCount
		if err := db.Model(&models.Proxy{}).
			Select("status, count(*) as count").
			Group("status").
			Scan(&proxyBreakdown).Error; err != nil {
			log.Printf("DB Error computing proxy breakdown: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to compute stats"})
		}

		type topInviter struct {
			InviterAccountID string `json:"inviter_account_id"`
			Invites          int64  `json:"invites"`
		}
		var topInviters []topInviter
		if err := db.Model(&models.ReferralEdge{}).
			Select("inviter_account_id, count(*) as invites").
			Group("inviter_account_id").
			Order("invites DESC").
			Limit(5).
			Scan(&topInviters).Error; err != nil {
			log.Printf("DB Error computing top inviters: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to compute stats"})
		}

		return c.JSON(fiber.Map{
			"counts":                  counts,
			"proxy_status":            proxyBreakdown,
			"top_inviters":            topInviters,
			"max_invites_per_account": services.MaxInvitesPerAccount,
		})
	})

	group.Get("/users", userService.SearchUsers)

	group.Get("/activities", func(c *fiber.Ctx) error {
		page, _ := strconv.Atoi(c.Query("page", "1"))
		size, _ := strconv.Atoi(c.Query("size", "20"))

		rows, total, err := activityService.List(page, size)
		if err != nil {
			log.Printf("DB Error fetching activities: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch activities"})
		}
		return c.JSON(fiber.Map{
			"activities": rows,
			"total":      total,
			"page":       page,
			"size":       size,
		})
	})
}
