package models

type EmailProvider string

const (
	ProviderGmail   EmailProvider = "gmail"
	ProviderOutlook EmailProvider = "outlook"
	ProviderYahoo   EmailProvider = "yahoo"
	ProviderICloud  EmailProvider = "icloud"
	ProviderRambler EmailProvider = "rambler"
)

type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "active"
	AccountStatusInactive  AccountStatus = "inactive"
	AccountStatusSuspended AccountStatus = "suspended"
)

// EmailAccount is the second link of the provisioning chain. The partial unique
// index on proxy_id is the durable one-proxy-per-email-account constraint: the
// application checks first, but a concurrent assign loses at commit time.
type EmailAccount struct {
	ID       string        `gorm:"primaryKey" json:"id"`
	Provider EmailProvider `gorm:"type:varchar(16);not null" json:"provider"`
	Email    string        `gorm:"uniqueIndex:idx_email_accounts_email,where:deleted_at IS NULL;not null" json:"email"`
	// Opaque ciphertext; never serialized.
	Password string `gorm:"type:text" json:"-"`

	Status    AccountStatus `gorm:"type:varchar(16);default:'active';index" json:"status"`
	ProxyID   *string       `gorm:"type:uuid;uniqueIndex:idx_email_accounts_proxy,where:deleted_at IS NULL" json:"proxy_id,omitempty"`
	Proxy     *Proxy        `gorm:"foreignKey:ProxyID" json:"proxy,omitempty"`
	FirstName *string       `json:"first_name,omitempty"`
	LastName  *string       `json:"last_name,omitempty"`

	UserID string `gorm:"index;not null" json:"user_id"`

	Timestamps
}
