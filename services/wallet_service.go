// services/wallet_service.go
package services

import (
	"errors"
	"log"

	"turtleboard/models"
	"turtleboard/secrets"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WalletService struct {
	DB       *gorm.DB
	Cipher   *secrets.Cipher
	Activity *ActivityService
}

func NewWalletService(db *gorm.DB, cipher *secrets.Cipher, activity *ActivityService) *WalletService {
	return &WalletService{DB: db, Cipher: cipher, Activity: activity}
}

func (s *WalletService) ListWallets(c *fiber.Ctx) error {
	var wallets []models.Wallet
	if err := s.DB.Order("created_at DESC").Find(&wallets).Error; err != nil {
		log.Printf("DB Error fetching wallets: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch wallets"})
	}
	return c.JSON(wallets)
}

// CreateWallet stores a wallet with its seed phrase encrypted. The seed never
// appears in any response.
func (s *WalletService) CreateWallet(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		Address    string `json:"address"`
		Chain      string `json:"chain"`
		SeedPhrase string `json:"seed_phrase"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Address == "" || req.SeedPhrase == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "address and seed_phrase are required"})
	}

	encrypted, err := s.Cipher.Encrypt(req.SeedPhrase)
	if err != nil {
		log.Printf("Failed to encrypt seed phrase: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to store credentials"})
	}

	wallet := models.Wallet{
		ID:         uuid.NewString(),
		Address:    req.Address,
		Chain:      req.Chain,
		SeedPhrase: encrypted,
		UserID:     userID,
	}
	if err := s.DB.Create(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Wallet address already exists"})
		}
		log.Printf("DB Error creating wallet: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create wallet"})
	}

	s.Activity.Record(userID, models.ActionCreate, models.SubjectWallet, wallet.ID,
		"wallet created", map[string]any{"address": wallet.Address})
	return c.Status(fiber.StatusCreated).JSON(wallet)
}

func (s *WalletService) DeleteWallet(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	id := c.Params("id")

	var wallet models.Wallet
	if err := s.DB.First(&wallet, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Wallet not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	if err := s.DB.Delete(&wallet).Error; err != nil {
		log.Printf("DB Error deleting wallet: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete wallet"})
	}

	s.Activity.Record(userID, models.ActionDelete, models.SubjectWallet, wallet.ID,
		"wallet deleted", nil)
	return c.JSON(fiber.Map{"message": "Wallet deleted successfully"})
}
