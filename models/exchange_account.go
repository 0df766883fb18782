package models

// ExchangeAccount is a MEXC exchange account, linked 1:1 to an email account
// and optionally 1:1 to a web3 wallet. Both links are enforced with partial
// unique indexes over non-deleted rows.
type ExchangeAccount struct {
	ID             string        `gorm:"primaryKey" json:"id"`
	EmailAccountID string        `gorm:"type:uuid;uniqueIndex:idx_exchange_accounts_email,where:deleted_at IS NULL;not null" json:"email_account_id"`
	EmailAccount   *EmailAccount `gorm:"foreignKey:EmailAccountID" json:"email_account,omitempty"`
	// Opaque ciphertext; never serialized.
	Password string `gorm:"type:text" json:"-"`

	WalletID *string `gorm:"type:uuid;uniqueIndex:idx_exchange_accounts_wallet,where:deleted_at IS NULL" json:"wallet_id,omitempty"`
	Wallet   *Wallet `gorm:"foreignKey:WalletID" json:"wallet,omitempty"`

	Status AccountStatus `gorm:"type:varchar(16);default:'active';index" json:"status"`

	UserID string `gorm:"index;not null" json:"user_id"`

	Timestamps
}
