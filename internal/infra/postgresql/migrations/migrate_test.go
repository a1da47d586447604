package migrations

import (
	"path/filepath"
	"testing"

	"github.com/kursadbilgin/workshop-checkin/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "migrate.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

func TestMigrateCreatesSchema(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db), "migrations must be re-runnable")

	migrator := db.Migrator()
	assert.True(t, migrator.HasTable(&repository.AttendeeModel{}))
	assert.True(t, migrator.HasTable(&repository.AttendanceModel{}))
	assert.True(t, migrator.HasIndex(&repository.AttendanceModel{}, "idx_attendance_attendee_id"))
	assert.True(t, migrator.HasIndex(&repository.AttendeeModel{}, "idx_attendees_incomplete"))
	assert.Equal(t, repository.AuditSchemaExtended, repository.ProbeAuditSchema(db))
}

func TestMigrateKeepsExistingLegacyAuditTable(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	require.NoError(t, db.Exec(`CREATE TABLE audit_logs (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		email_status TEXT,
		messaging_status TEXT,
		last_error TEXT,
		subject TEXT,
		created_at DATETIME
	)`).Error)

	require.NoError(t, Migrate(db))
	assert.Equal(t, repository.AuditSchemaLegacy, repository.ProbeAuditSchema(db))
}
