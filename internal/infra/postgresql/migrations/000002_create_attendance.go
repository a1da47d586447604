package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/workshop-checkin/internal/repository"
	"gorm.io/gorm"
)

// The unique index on attendee_id backs the atomic check-in insert.
func createAttendanceTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_attendance",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&repository.AttendanceModel{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.AttendanceModel{})
		},
	}
}
