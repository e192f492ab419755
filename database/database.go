package database

import (
	"fmt"

	"ip-vault-api/internal/domain/assets"
	"ip-vault-api/internal/domain/detection"
	"ip-vault-api/internal/domain/licensing"
	"ip-vault-api/internal/domain/users"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect opens the Postgres connection and runs migrations. The returned
// handle is passed to handlers and services explicitly; there is no package
// global.
func Connect(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates/updates the schema for all domain models. Split out so
// tests can run it against their own database.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		// identity
		&users.User{},
		&users.VerificationToken{},
		&users.PasswordResetToken{},
		&users.RefreshToken{},

		// registry
		&assets.Asset{},

		// marketplace
		&licensing.LicensePlan{},
		&licensing.License{},

		// infringement detection
		&detection.Result{},
	)
	if err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}
