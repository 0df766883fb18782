// services/relationship_service.go
package services

import (
	"errors"
	"log"

	"turtleboard/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RelationshipService manages the denormalized chain snapshots: one row per
// proxy + email + exchange + wallet provisioned together.
type RelationshipService struct {
	DB       *gorm.DB
	Activity *ActivityService
}

func NewRelationshipService(db *gorm.DB, activity *ActivityService) *RelationshipService {
	return &RelationshipService{DB: db, Activity: activity}
}

func (s *RelationshipService) ListRelationships(c *fiber.Ctx) error {
	var rows []models.AccountRelationship
	err := s.DB.
		Preload("Proxy").
		Preload("EmailAccount").
		Preload("ExchangeAccount").
		Preload("Wallet").
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		log.Printf("DB Error fetching relationships: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch relationships"})
	}
	return c.JSON(rows)
}

// CreateRelationship snapshots a full chain. Every referenced record must
// exist; the snapshot itself carries no constraints.
func (s *RelationshipService) CreateRelationship(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		ProxyID           string `json:"proxy_id"`
		EmailAccountID    string `json:"email_account_id"`
		ExchangeAccountID string `json:"exchange_account_id"`
		WalletID          string `json:"wallet_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.ProxyID == "" || req.EmailAccountID == "" || req.ExchangeAccountID == "" || req.WalletID == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "all four chain ids are required"})
	}

	for _, ref := range []struct {
		model any
		id    string
		name  string
	}{
		{&models.Proxy{}, req.ProxyID, "proxy"},
		{&models.EmailAccount{}, req.EmailAccountID, "email account"},
		{&models.ExchangeAccount{}, req.ExchangeAccountID, "exchange account"},
		{&models.Wallet{}, req.WalletID, "wallet"},
	} {
		if err := s.DB.First(ref.model, "id = ?", ref.id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": ref.name + " not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
		}
	}

	row := models.AccountRelationship{
		ID:                uuid.NewString(),
		ProxyID:           req.ProxyID,
		EmailAccountID:    req.EmailAccountID,
		ExchangeAccountID: req.ExchangeAccountID,
		WalletID:          req.WalletID,
		CreatedBy:         userID,
	}
	if err := s.DB.Create(&row).Error; err != nil {
		log.Printf("DB Error creating relationship: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create relationship"})
	}

	s.Activity.Record(userID, models.ActionCreate, models.SubjectRelationship, row.ID,
		"account chain snapshot created", nil)
	return c.Status(fiber.StatusCreated).JSON(row)
}

func (s *RelationshipService) DeleteRelationship(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	id := c.Params("id")

	var row models.AccountRelationship
	if err := s.DB.First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Relationship not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	if err := s.DB.Delete(&row).Error; err != nil {
		log.Printf("DB Error deleting relationship: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete relationship"})
	}

	s.Activity.Record(userID, models.ActionDelete, models.SubjectRelationship, row.ID,
		"account chain snapshot deleted", nil)
	return c.JSON(fiber.Map{"message": "Relationship deleted successfully"})
}
