package models

import "time"

type ProxyStatus string

const (
	ProxyStatusPending ProxyStatus = "pending"
	ProxyStatusValid   ProxyStatus = "valid"
	ProxyStatusInvalid ProxyStatus = "invalid"
)

// Proxy is a network relay assignable to at most one live email account.
// The (ip, port) pair is unique among non-deleted rows; vendor-sourced proxies
// carry the vendor id and cached expiry used by sync/cleanup.
type Proxy struct {
	ID       string `gorm:"primaryKey" json:"id"`
	IP       string `gorm:"uniqueIndex:idx_proxies_ip_port,priority:1,where:deleted_at IS NULL;not null" json:"ip"`
	Port     int    `gorm:"uniqueIndex:idx_proxies_ip_port,priority:2;not null" json:"port"`
	Username string `json:"username,omitempty"`
	// Opaque ciphertext; never serialized.
	Password string `gorm:"type:text" json:"-"`

	Status           ProxyStatus `gorm:"type:varchar(16);default:'pending';index" json:"status"`
	LastValidationAt *time.Time  `json:"last_validation_at,omitempty"`
	ResponseTimeMs   *int64      `json:"response_time_ms,omitempty"`
	Geolocation      string      `json:"geolocation,omitempty"`
	CountryCode      string      `gorm:"type:varchar(2)" json:"country_code,omitempty"`

	// Vendor linkage for externally purchased proxies.
	VendorID       string     `gorm:"index" json:"vendor_id,omitempty"`
	VendorExpiryAt *time.Time `json:"vendor_expiry_at,omitempty"`

	UserID string `gorm:"index;not null" json:"user_id"`

	Timestamps
}
