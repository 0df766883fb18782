// services/user_service.go
package services

import (
	"log"
	"strconv"
	"strings"

	"turtleboard/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// UserService serves the local operator snapshots kept in sync from the
// identity service. Operators are read-only here; writes happen through the
// sync worker.
type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

// SearchUsers looks up operators by username or email, used by the dashboard
// to resolve record attribution.
func (s *UserService) SearchUsers(c *fiber.Ctx) error {
	query := c.Query("q", "")
	limit, err := strconv.Atoi(c.Query("limit", "50"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}

	db := s.DB.Model(&models.User{}).Limit(limit).Order("username ASC")
	if query != "" {
		term := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
		db = db.Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ?", term, term)
	}

	var users []models.User
	if err := db.Find(&users).Error; err != nil {
		log.Printf("DB Error searching users: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to search users"})
	}

	// Expose only what the dashboard needs; the external id is the identifier
	// the gateway puts in X-User-ID.
	type userSummary struct {
		ID             string `json:"id"`
		ExternalUserID string `json:"external_user_id"`
		Username       string `json:"username"`
		Email          string `json:"email,omitempty"`
	}
	res := make([]userSummary, len(users))
	for i, u := range users {
		res[i] = userSummary{
			ID:             u.ID,
			ExternalUserID: u.ExternalUserID,
			Username:       u.Username,
			Email:          u.Email,
		}
	}
	return c.JSON(res)
}
