package database

import (
	"github.com/AdityaDodda/purchase-kandhari/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM.
// Callers run Migrate themselves; main treats a migration failure as fatal.
func NewConnection(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{})
}

// Migrate runs AutoMigrate for every model; shared with test setups.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.PurchaseRequest{},
		&model.LineItem{},
		&model.Attachment{},
		&model.ApprovalHistory{},
		&model.Notification{},
		&model.Entity{},
		&model.Department{},
		&model.Location{},
		&model.Role{},
		&model.ApprovalMatrix{},
		&model.EscalationMatrix{},
		&model.InventoryItem{},
		&model.Vendor{},
	)
}
