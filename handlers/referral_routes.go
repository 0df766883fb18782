// handlers/referral_routes.go
package handlers

import (
	"errors"
	"log"

	"turtleboard/middleware"
	"turtleboard/models"
	"turtleboard/services"

	"github.com/gofiber/fiber/v2"
)

func referralErrorStatus(err error) int {
	switch {
	case services.IsValidationError(err):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func SetupReferralRoutes(app *fiber.App, referralService *services.ReferralService) {
	group := app.Group("/referrals", middleware.UserContextMiddleware())

	group.Get("/", func(c *fiber.Ctx) error {
		query := referralService.DB.
			Preload("InviterAccount.EmailAccount").
			Preload("InviteeAccount.EmailAccount").
			Order("created_at DESC")
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
		}
		if period := c.Query("period"); period != "" {
			query = query.Where("period = ?", period)
		}

		var edges []models.ReferralEdge
		if err := query.Find(&edges).Error; err != nil {
			log.Printf("DB Error fetching referrals: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch referrals"})
		}
		return c.JSON(edges)
	})

	group.Post("/", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			InviterAccountID string `json:"inviter_account_id"`
			InviteeAccountID string `json:"invitee_account_id"`
			Period           string `json:"period"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if req.InviterAccountID == "" || req.InviteeAccountID == "" {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "inviter_account_id and invitee_account_id are required"})
		}

		edge, err := referralService.CreateEdge(c.Context(), req.InviterAccountID, req.InviteeAccountID, userID, req.Period)
		if err != nil {
			return c.Status(referralErrorStatus(err)).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusCreated).JSON(edge)
	})

	group.Patch("/:id/status", func(c *fiber.Ctx) error {
		var req struct {
			Status models.ReferralStatus `json:"status"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		edge, err := referralService.UpdateStatus(c.Context(), c.Params("id"), req.Status)
		if err != nil {
			return c.Status(referralErrorStatus(err)).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(edge)
	})

	group.Delete("/:id", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		if err := referralService.DeleteEdge(c.Context(), c.Params("id"), userID); err != nil {
			return c.Status(referralErrorStatus(err)).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"message": "Referral deleted successfully"})
	})

	group.Get("/network-data", func(c *fiber.Ctx) error {
		data, err := referralService.ExportGraph(c.Context(), c.Query("period"))
		if err != nil {
			log.Printf("Failed to export referral graph: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to export network data"})
		}
		return c.JSON(data)
	})

	group.Get("/:accountId/slots", func(c *fiber.Ctx) error {
		accountID := c.Params("accountId")

		remaining, err := referralService.RemainingSlots(c.Context(), accountID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to compute remaining slots"})
		}
		invited, err := referralService.IsAlreadyInvited(c.Context(), accountID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to check invite status"})
		}
		return c.JSON(fiber.Map{
			"account_id":      accountID,
			"remaining_slots": remaining,
			"can_invite_more": remaining > 0,
			"already_invited": invited,
		})
	})
}
