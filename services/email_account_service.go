// services/email_account_service.go
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

var validProviders = map[models.EmailProvider]bool{
	models.ProviderGmail:   true,
	models.ProviderOutlook: true,
	models.ProviderYahoo:   true,
	models.ProviderICloud:  true,
	models.ProviderRambler: true,
}

type EmailAccountService struct {
	DB       *gorm.DB
	Cipher   *secrets.Cipher
	Proxies  *ProxyService
	Activity *ActivityService
}

func NewEmailAccountService(db *gorm.DB, cipher *secrets.Cipher, proxies *ProxyService, activity *ActivityService) *EmailAccountService {
	return &EmailAccountService{DB: db, Cipher: cipher, Proxies: proxies, Activity: activity}
}

// ListEmailAccounts returns all live email accounts, optionally filtered by
// provider or status.
func (s *EmailAccountService) ListEmailAccounts(c *fiber.Ctx) error {
	query := s.DB.Preload("Proxy").Order("created_at DESC")
	if provider := c.Query("provider"); provider != "" {
		query = query.Where("provider = ?", provider)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var accounts []models.EmailAccount
	if err := query.Find(&accounts).Error; err != nil {
		log.Printf("DB Error fetching email accounts: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch email accounts"})
	}
	return c.JSON(accounts)
}

// CreateEmailAccount creates an email account; the password is stored
// encrypted and never returned.
func (s *EmailAccountService) CreateEmailAccount(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		Provider  models.EmailProvider `json:"provider"`
		Email     string               `json:"email"`
		Password  string               `json:"password"`
		FirstName *string              `json:"first_name"`
		LastName  *string              `json:"last_name"`
		ProxyID   *string              `json:"proxy_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if !validProviders[req.Provider] {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "Unknown provider"})
	}
	if req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "email and password are required"})
	}

	encrypted, err := s.Cipher.Encrypt(req.Password)
	if err != nil {
		log.Printf("Failed to encrypt email account password: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to store credentials"})
	}

	account := models.EmailAccount{
		ID:        uuid.NewString(),
		Provider:  req.Provider,
		Email:     req.Email,
		Password:  encrypted,
		Status:    models.AccountStatusActive,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		UserID:    userID,
	}
	if err := s.DB.Create(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Email address already exists"})
		}
		log.Printf("DB Error creating email account: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create email account"})
	}

	if req.ProxyID != nil {
		if err := s.Proxies.Assign(c.Context(), *req.ProxyID, account.ID); err != nil {
			// Account exists; report the assignment problem separately.
			return c.Status(fiber.StatusCreated).JSON(fiber.Map{
				"account": account,
				"warning": "proxy assignment failed: " + err.Error(),
			})
		}
		account.ProxyID = req.ProxyID
	}

	s.Activity.Record(userID, models.ActionCreate, models.SubjectEmailAccount, account.ID,
		"email account created", map[string]any{"email": account.Email})
	return c.Status(fiber.StatusCreated).JSON(account)
}

// UpdateEmailAccount applies partial updates.
func (s *EmailAccountService) UpdateEmailAccount(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	id := c.Params("id")

	var account models.EmailAccount
	if err := s.DB.First(&account, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Email account not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var req struct {
		Password  *string               `json:"password"`
		Status    *models.AccountStatus `json:"status"`
		FirstName *string               `json:"first_name"`
		LastName  *string               `json:"last_name"`
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
	if req.FirstName != nil {
		account.FirstName = req.FirstName
	}
	if req.LastName != nil {
		account.LastName = req.LastName
	}

	if err := s.DB.Save(&account).Error; err != nil {
		log.Printf("DB Error updating email account: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update email account"})
	}

	s.Activity.Record(userID, models.ActionUpdate, models.SubjectEmailAccount, account.ID,
		"email account updated", nil)
	return c.JSON(account)
}

// DeleteEmailAccount soft-deletes the account. The referenced proxy is
// detached, not deleted.
func (s *EmailAccountService) DeleteEmailAccount(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	id := c.Params("id")

	var account models.EmailAccount
	if err := s.DB.First(&account, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Email account not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if account.ProxyID != nil {
			if err := tx.Model(&account).Update("proxy_id", nil).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&account).Error
	})
	if err != nil {
		log.Printf("DB Error deleting email account: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete email account"})
	}

	s.Activity.Record(userID, models.ActionDelete, models.SubjectEmailAccount, account.ID,
		"email account deleted", nil)
	return c.JSON(fiber.Map{"message": "Email account deleted successfully"})
}

// AssignProxy assigns a proxy to this email account.
func (s *EmailAccountService) AssignProxy(c *fiber.Ctx) error {
	id := c.Params("id")

	var req struct {
		ProxyID string `json:"proxy_id"`
	}
	if err := c.BodyParser(&req); err != nil || req.ProxyID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "proxy_id is required"})
	}

	if err := s.Proxies.Assign(c.Context(), req.ProxyID, id); err != nil {
		switch {
		case errors.Is(err, ErrAlreadyAssigned):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		default:
			log.Printf("Proxy assignment failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to assign proxy"})
		}
	}
	return c.JSON(fiber.Map{"message": "Proxy assigned successfully"})
}
