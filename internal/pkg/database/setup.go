package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/autoarte/AutoArte/app/models"
	"github.com/autoarte/AutoArte/internal/pkg/config"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

// Setup opens the MySQL connection and migrates the reconciliation core's
// tables. The handle is returned to the caller and passed explicitly; no
// package-level state.
func Setup(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Name,
	)

	var db *gorm.DB
	var err error
	for i := 0; i < maxRetries; i++ {
		db, err = gorm.Open(mysql.New(mysql.Config{
			DSN:                       dsn,
			DefaultStringSize:         256,
			DisableDatetimePrecision:  true,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		}), &gorm.Config{})
		if err == nil {
			if err := db.AutoMigrate(
				&models.User{},
				&models.WebhookEvent{},
				&models.DedupRecord{},
				&models.PlanCatalogEntry{},
				&models.WebhookAuditEntry{},
				&models.SweepRun{},
			); err != nil {
				return nil, fmt.Errorf("migrate: %w", err)
			}
			return db, nil
		}

		log.Printf("Failed to connect to database (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}

	return nil, fmt.Errorf("database unreachable after %d tries: %w", maxRetries, err)
}
