// services/exchange_account_service.go
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

type ExchangeAccountService struct {
	DB       *gorm.DB
	Cipher   *secrets.Cipher
	Activity *ActivityService
}

func NewExchangeAccountService(db *gorm.DB, cipher *secrets.Cipher, activity *ActivityService) *ExchangeAccountService {
	return &ExchangeAccountService{DB: db, Cipher: cipher, Activity: activity}
}

func (s *ExchangeAccountService) ListExchangeAccounts(c *fiber.Ctx) error {
	query := s.DB.Preload("EmailAccount").Preload("Wallet").Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var accounts []models.ExchangeAccount
	if err := query.Find(&accounts).Error; err != nil {
		log.Printf("DB Error fetching exchange accounts: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch exchange accounts"})
	}
	return c.JSON(accounts)
}

// CreateExchangeAccount creates an exchange account. The 1:1 links to the
// email account and optional wallet are backed by partial unique indexes, so
// a duplicate slot surfaces as a conflict.
func (s *ExchangeAccountService) CreateExchangeAccount(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		EmailAccountID string  `json:"email_account_id"`
		Password       string  `json:"password"`
		WalletID       *string `json:"wallet_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.EmailAccountID == "" || req.Password == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "email_account_id and password are required"})
	}

	var emailAccount models.EmailAccount
	if err := s.DB.First(&emailAccount, "id = ?", req.EmailAccountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Email account not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	encrypted, err := s.Cipher.Encrypt(req.Password)
	if err != nil {
		log.Printf("Failed to encrypt exchange account password: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to store credentials"})
	}

	account := models.ExchangeAccount{
		ID:             uuid.NewString(),
		EmailAccountID: req.EmailAccountID,
		Password:       encrypted,
		WalletID:       req.WalletID,
		Status:         models.AccountStatusActive,
		UserID:         userID,
	}
	if err := s.DB.Create(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Email account or wallet already linked to another exchange account"})
		}
		log.Printf("DB Error creating exchange account: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create exchange account"})
	}

	s.Activity.Record(userID, models.ActionCreate, models.SubjectExchangeAccount, account.ID,
		"exchange account created", map[string]any{"email_account_id": account.EmailAccountID})
	return c.Status(fiber.StatusCreated).JSON(account)
}

func (s *ExchangeAccountService) UpdateExchangeAccount(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	id := c.Params("id")

	var account models.ExchangeAccount
	if err := s.DB.First(&account, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Exchange account not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var req struct {
		Password *string               `json:"password"`
		Status   *models.AccountStatus `json:"status"`
		WalletID *string               `json:"wallet_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.Password != nil {
		encrypted, err := s.Cipher.Encrypt(*req.Password)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to store credentials"})
		}
		account.Password = encrypted
	}
	if req.Status != nil {
		account.Status = *req.Status
	}
	if req.WalletID != nil {
		account.WalletID = req.WalletID
	}

	if err := s.DB.Save(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Wallet already linked to another exchange account"})
		}
		log.Printf("DB Error updating exchange account: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update exchange account"})
	}

	s.Activity.Record(userID, models.ActionUpdate, models.SubjectExchangeAccount, account.ID,
		"exchange account updated", nil)
	return c.JSON(account)
}

func (s *ExchangeAccountService) DeleteExchangeAccount(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	id := c.Params("id")

	var account models.ExchangeAccount
	if err := s.DB.First(&account, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Exchange account not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	if err := s.DB.Delete(&account).Error; err != nil {
		log.Printf("DB Error deleting exchange account: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete exchange account"})
	}

	s.Activity.Record(userID, models.ActionDelete, models.SubjectExchangeAccount, account.ID,
		"exchange account deleted", nil)
	return c.JSON(fiber.Map{"message": "Exchange account deleted successfully"})
}
