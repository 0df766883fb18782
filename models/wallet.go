package models

// Wallet is a web3 wallet. The seed phrase is stored as opaque ciphertext and
// never leaves the server in API responses.
type Wallet struct {
	ID      string `gorm:"primaryKey" json:"id"`
	Address string `gorm:"uniqueIndex:idx_wallets_address,where:deleted_at IS NULL;not null" json:"address"`
	Chain   string `gorm:"type:varchar(32)" json:"chain,omitempty"`
	// Opaque ciphertext; never serialized.
	SeedPhrase string `gorm:"type:text" json:"-"`

	UserID string `gorm:"index;not null" json:"user_id"`

	Timestamps
}
