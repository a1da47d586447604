package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func addAttendeesIncompleteIndex() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000004_add_attendees_incomplete_index",
		Migrate: func(tx *gorm.DB) error {
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_attendees_incomplete ON attendees (created_at) WHERE email_status <> 'sent' OR messaging_status <> 'sent'`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec(`DROP INDEX IF EXISTS idx_attendees_incomplete`).Error
		},
	}
}
