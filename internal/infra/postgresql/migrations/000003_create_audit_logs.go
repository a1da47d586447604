package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/workshop-checkin/internal/repository"
	"gorm.io/gorm"
)

// audit_logs may already exist in an older shape owned by other tools. An
// existing table is left as is; the audit repository probes its columns.
func createAuditLogsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_audit_logs",
		Migrate: func(tx *gorm.DB) error {
			if tx.Migrator().HasTable(&repository.AuditLogModel{}) {
				return nil
			}
			if err := tx.Migrator().CreateTable(&repository.AuditLogModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_audit_logs_action_created ON audit_logs (action, created_at)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.AuditLogModel{})
		},
	}
}
