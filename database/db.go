package database

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"pointsmall-backend/models"
	"pointsmall-backend/utils"
)

var DB *gorm.DB

// Connect opens the shared database handle from .env / environment.
// TranslateError is on so unique violations surface as
// gorm.ErrDuplicatedKey, which the idempotency store relies on for its
// insert-then-handle-conflict path.
func Connect() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment")
	}

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		utils.EnvString("DB_HOST", "db"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		utils.EnvString("DB_PORT", "5432"))

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		panic("could not connect to database: " + err.Error())
	}
}

// AutoMigrate applies (idempotent) schema migrations for the idempotency
// record table and its indexes.
func AutoMigrate() error {
	if err := DB.AutoMigrate(&models.IdempotencyRequest{}); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}

	indexes := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_idempotency_requests_key ON idempotency_requests (idempotency_key)`,
		`CREATE INDEX IF NOT EXISTS idx_idempotency_requests_status_created ON idempotency_requests (status, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_idempotency_requests_expires ON idempotency_requests (expires_at)`,
	}
	for _, stmt := range indexes {
		if err := DB.Exec(stmt).Error; err != nil {
			return fmt.Errorf("index migration failed on: %s - %w", stmt, err)
		}
	}
	return nil
}
