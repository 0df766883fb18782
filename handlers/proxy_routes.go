// handlers/proxy_routes.go
package handlers

import (
	"errors"
	"log"

	"turtleboard/middleware"
	"turtleboard/models"
	"turtleboard/services"
	"turtleboard/vendorapi"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SetupProxyRoutes wires proxy CRUD plus the lifecycle operations: validate,
// bulk validate, vendor refresh/sync, import and cleanup. vendorClient may be
// nil when no vendor is configured; the vendor-backed endpoints then 503.
func SetupProxyRoutes(app *fiber.App, proxyService *services.ProxyService, vendorClient *vendorapi.Client) {
	group := app.Group("/proxies", middleware.UserContextMiddleware())

	group.Get("/", func(c *fiber.Ctx) error {
		query := proxyService.DB.Order("created_at DESC")
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
		}
		if country := c.Query("country_code"); country != "" {
			query = query.Where("country_code = ?", country)
		}

		var proxies []models.Proxy
		if err := query.Find(&proxies).Error; err != nil {
			log.Printf("DB Error fetching proxies: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch proxies"})
		}
		return c.JSON(proxies)
	})

	group.Post("/", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			IP       string `json:"ip"`
			Port     int    `json:"port"`
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if req.IP == "" || req.Port <= 0 || req.Port > 65535 {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "valid ip and port are required"})
		}

		password := ""
		if req.Password != "" {
			enc, err := proxyService.Cipher.Encrypt(req.Password)
			if err != nil {
				log.Printf("Failed to encrypt proxy password: %v", err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to store credentials"})
			}
			password = enc
		}

		proxy := models.Proxy{
			ID:       uuid.NewString(),
			IP:       req.IP,
			Port:     req.Port,
			Username: req.Username,
			Password: password,
			Status:   models.ProxyStatusPending,
			UserID:   userID,
		}
		if err := proxyService.DB.Create(&proxy).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Proxy with this ip:port already exists"})
			}
			log.Printf("DB Error creating proxy: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create proxy"})
		}

		proxyService.Activity.Record(userID, models.ActionCreate, models.SubjectProxy, proxy.ID,
			"proxy created", map[string]any{"ip": proxy.IP, "port": proxy.Port})
		return c.Status(fiber.StatusCreated).JSON(proxy)
	})

	group.Put("/:id", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var proxy models.Proxy
		if err := proxyService.DB.First(&proxy, "id = ?", c.Params("id")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Proxy not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
		}

		// Partial update; the ip:port identity and validation state are not
		// editable here.
		var req struct {
			Username    *string `json:"username"`
			Password    *string `json:"password"`
			Geolocation *string `json:"geolocation"`
			CountryCode *string `json:"country_code"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		if req.Username != nil {
			proxy.Username = *req.Username
		}
		if req.Password != nil {
			enc, err := proxyService.Cipher.Encrypt(*req.Password)
			if err != nil {
				log.Printf("Failed to encrypt proxy password: %v", err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to store credentials"})
			}
			proxy.Password = enc
		}
		if req.Geolocation != nil {
			proxy.Geolocation = *req.Geolocation
		}
		if req.CountryCode != nil {
			proxy.CountryCode = *req.CountryCode
		}

		if err := proxyService.DB.Save(&proxy).Error; err != nil {
			log.Printf("DB Error updating proxy: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update proxy"})
		}

		proxyService.Activity.Record(userID, models.ActionUpdate, models.SubjectProxy, proxy.ID,
			"proxy updated", nil)
		return c.JSON(proxy)
	})

	group.Delete("/:id", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var proxy models.Proxy
		if err := proxyService.DB.First(&proxy, "id = ?", c.Params("id")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Proxy not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
		}

		if err := proxyService.DB.Delete(&proxy).Error; err != nil {
			log.Printf("DB Error deleting proxy: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete proxy"})
		}
		proxyService.Activity.Record(userID, models.ActionDelete, models.SubjectProxy, proxy.ID,
			"proxy deleted", nil)
		return c.JSON(fiber.Map{"message": "Proxy deleted successfully"})
	})

	group.Post("/:id/validate", func(c *fiber.Ctx) error {
		id := c.Params("id")
		result, err := proxyService.ValidateBatch(c.Context(), []string{id})
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Validation failed"})
		}
		var proxy models.Proxy
		if err := proxyService.DB.First(&proxy, "id = ?", id).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Proxy not found"})
		}
		return c.JSON(fiber.Map{"result": result, "proxy": proxy})
	})

	group.Post("/validate-all", func(c *fiber.Ctx) error {
		var req struct {
			IDs []string `json:"ids"`
		}
		// An empty body means "validate everything due".
		_ = c.BodyParser(&req)

		result, err := proxyService.ValidateBatch(c.Context(), req.IDs)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Batch validation failed"})
		}
		return c.JSON(result)
	})

	group.Post("/refresh-external", func(c *fiber.Ctx) error {
		if vendorClient == nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "No proxy vendor configured"})
		}
		if err := vendorClient.InvalidateCache(c.Context()); err != nil {
			log.Printf("Failed to invalidate vendor cache: %v", err)
		}
		remote, err := vendorClient.FetchIPv4(c.Context())
		if err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Vendor inventory fetch failed: " + err.Error()})
		}
		result, err := proxyService.SyncWithExternalInventory(c.Context(), remote)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Sync failed"})
		}
		return c.JSON(result)
	})

	group.Post("/import-external", func(c *fiber.Ctx) error {
		if vendorClient == nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "No proxy vendor configured"})
		}
		userID := c.Locals("user_id").(string)

		var req struct {
			VendorID  string `json:"vendor_id"`
			ImportAll bool   `json:"import_all"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if req.VendorID == "" && !req.ImportAll {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "vendor_id or import_all is required"})
		}

		remote, err := vendorClient.FetchIPv4(c.Context())
		if err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Vendor inventory fetch failed: " + err.Error()})
		}
		if !req.ImportAll {
			filtered := remote[:0]
			for _, r := range remote {
				if r.ID == req.VendorID {
					filtered = append(filtered, r)
				}
			}
			remote = filtered
		}

		result, err := proxyService.ImportAvailable(c.Context(), remote, nil, userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Import failed"})
		}
		return c.JSON(result)
	})

	group.Post("/cleanup-expired", func(c *fiber.Ctx) error {
		result, err := proxyService.CleanupExpired(c.Context())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Cleanup failed"})
		}
		return c.JSON(result)
	})
}
