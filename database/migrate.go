package database

import (
	"fmt"

	"buchungsportal-backend/models"

	"gorm.io/gorm"
)

// AutoMigrate applies (idempotent) schema migrations:
// - AutoMigrate for all tables/columns/index tags
// - composite unique index backing the idempotency insert-if-absent
// - correlation_log is append-only; only inserts happen at runtime
func AutoMigrate() error {
	return DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(
			&models.User{},
			&models.Tenant{},
			&models.TenantMembership{},
			&models.Booking{},
			&models.IdempotencyRecord{},
			&models.CorrelationLogEntry{},
		); err != nil {
			return fmt.Errorf("automigrate failed: %w", err)
		}

		indexes := []string{
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_idempotency_tenant_key ON idempotency_records (tenant_id, idempotency_key)`,
			`CREATE INDEX IF NOT EXISTS idx_correlation_log_tenant_created ON correlation_log (tenant_id, created_at)`,
			`CREATE INDEX IF NOT EXISTS idx_bookings_tenant ON bookings (tenant_id)`,
		}
		for _, stmt := range indexes {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("index migration failed on: %s - %w", stmt, err)
			}
		}

		return nil
	})
}
