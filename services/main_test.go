package services

import (
	"bytes"
	"testing"

	"turtleboard/models"
	"turtleboard/secrets"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	// Every pooled connection would get its own :memory: database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.User{},
		&models.Proxy{},
		&models.EmailAccount{},
		&models.ExchangeAccount{},
		&models.Wallet{},
		&models.ReferralEdge{},
		&models.AccountRelationship{},
		&models.Activity{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func newTestCipher(t *testing.T) *secrets.Cipher {
	t.Helper()
	cipher, err := secrets.NewCipher(bytes.Repeat([]byte{0x42}, 32))
	if err != nil {
		t.Fatalf("failed to create test cipher: %v", err)
	}
	return cipher
}

func createExchangeAccount(t *testing.T, db *gorm.DB, email string, status models.AccountStatus) *models.ExchangeAccount {
	t.Helper()

	emailAccount := models.EmailAccount{
		ID:       uuid.NewString(),
		Provider: models.ProviderGmail,
		Email:    email,
		Password: "ciphertext",
		Status:   models.AccountStatusActive,
		UserID:   "operator-1",
	}
	if err := db.Create(&emailAccount).Error; err != nil {
		t.Fatalf("failed to create email account %s: %v", email, err)
	}

	account := models.ExchangeAccount{
		ID:             uuid.NewString(),
		EmailAccountID: emailAccount.ID,
		Password:       "ciphertext",
		Status:         status,
		UserID:         "operator-1",
	}
	if err := db.Create(&account).Error; err != nil {
		t.Fatalf("failed to create exchange account for %s: %v", email, err)
	}
	return &account
}
