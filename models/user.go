package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a local snapshot of a dashboard operator. Every mutable record in the
// system is attributed to the operator that created it.
type User struct {
	ID             string  `gorm:"primaryKey" json:"id"`
	ExternalUserID string  `gorm:"uniqueIndex;not null" json:"external_user_id"` // gateway identity
	Username       string  `gorm:"index;not null" json:"username"`
	Email          string  `json:"email,omitempty"`
	FirstName      *string `json:"first_name,omitempty"`
	LastName       *string `json:"last_name,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times plus soft delete
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
