package models

// AccountRelationship snapshots one full provisioning chain (proxy → email →
// exchange → wallet) created together. It is a convenience index for the
// dashboard, not a constraint-bearing entity.
type AccountRelationship struct {
	ID                string `gorm:"primaryKey" json:"id"`
	ProxyID           string `gorm:"type:uuid;index;not null" json:"proxy_id"`
	EmailAccountID    string `gorm:"type:uuid;index;not null" json:"email_account_id"`
	ExchangeAccountID string `gorm:"type:uuid;index;not null" json:"exchange_account_id"`
	WalletID          string `gorm:"type:uuid;index;not null" json:"wallet_id"`

	Proxy           *Proxy           `gorm:"foreignKey:ProxyID" json:"proxy,omitempty"`
	EmailAccount    *EmailAccount    `gorm:"foreignKey:EmailAccountID" json:"email_account,omitempty"`
	ExchangeAccount *ExchangeAccount `gorm:"foreignKey:ExchangeAccountID" json:"exchange_account,omitempty"`
	Wallet          *Wallet          `gorm:"foreignKey:WalletID" json:"wallet,omitempty"`

	CreatedBy string `gorm:"index;not null" json:"created_by"`

	Timestamps
}
