package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/workshop-checkin/internal/repository"
	"gorm.io/gorm"
)

func createAttendeesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_attendees",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&repository.AttendeeModel{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.AttendeeModel{})
		},
	}
}
