// services/activity_service.go
package services

import (
	"encoding/json"
	"log"

	"turtleboard/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActivityService persists the append-only audit trail. Engines call Record
// explicitly after a successful mutation; a failed audit write is logged and
// never fails the mutation it describes.
type ActivityService struct {
	DB *gorm.DB
}

func NewActivityService(db *gorm.DB) *ActivityService {
	return &ActivityService{DB: db}
}

// Record writes one audit row. Fire-and-forget: errors are logged only.
func (s *ActivityService) Record(actorID string, action models.ActivityAction, subject models.SubjectType, subjectID, description string, metadata map[string]any) {
	row := models.Activity{
		ID:          uuid.NewString(),
		ActorID:     actorID,
		Action:      action,
		SubjectType: subject,
		SubjectID:   subjectID,
		Description: description,
	}
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err != nil {
			log.Printf("[activity] failed to marshal metadata for %s/%s: %v", subject, subjectID, err)
		} else {
			row.Metadata = string(raw)
		}
	}
	if err := s.DB.Create(&row).Error; err != nil {
		log.Printf("[activity] failed to record %s %s/%s: %v", action, subject, subjectID, err)
	}
}

// List returns the newest activity rows, paged.
func (s *ActivityService) List(page, size int) ([]models.Activity, int64, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}

	var total int64
	if err := s.DB.Model(&models.Activity{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Activity
	err := s.DB.Order("created_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&rows).Error
	return rows, total, err
}
