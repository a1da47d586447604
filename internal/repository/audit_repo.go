package repository

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/workshop-checkin/internal/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AuditRepository interface {
	Record(ctx context.Context, entry *domain.AuditLogEntry) error
}

// AuditSchema names the audit_logs column set a database carries.
type AuditSchema string

const (
	AuditSchemaExtended AuditSchema = "extended"
	AuditSchemaLegacy   AuditSchema = "legacy"
)

// ProbeAuditSchema inspects audit_logs once. Databases created before the
// attendee and staff reference columns existed report AuditSchemaLegacy.
func ProbeAuditSchema(db *gorm.DB) AuditSchema {
	migrator := db.Migrator()
	if migrator.HasColumn(&AuditLogModel{}, "attendee_id") && migrator.HasColumn(&AuditLogModel{}, "staff_id") {
		return AuditSchemaExtended
	}
	return AuditSchemaLegacy
}

// GormAuditRepo appends audit entries using the write path chosen at startup.
// A failed extended insert is retried once with the legacy shape, after which
// the repo stays on the legacy path.
type GormAuditRepo struct {
	db       *gorm.DB
	extended atomic.Bool
	logger   *zap.Logger
}

func NewGormAuditRepo(db *gorm.DB, schema AuditSchema, logger *zap.Logger) *GormAuditRepo {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &GormAuditRepo{db: db, logger: logger}
	r.extended.Store(schema == AuditSchemaExtended)
	return r
}

func (r *GormAuditRepo) Schema() AuditSchema {
	if r.extended.Load() {
		return AuditSchemaExtended
	}
	return AuditSchemaLegacy
}

func (r *GormAuditRepo) Record(ctx context.Context, entry *domain.AuditLogEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: audit entry is required", domain.ErrValidation)
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	if !r.extended.Load() {
		return r.recordLegacy(ctx, entry)
	}

	err := r.db.WithContext(ctx).Create(auditModelFromDomain(entry)).Error
	if err == nil {
		return nil
	}

	r.logger.Warn("extended audit insert failed, falling back to legacy shape",
		zap.String("action", entry.Action.String()),
		zap.Error(err),
	)
	if legacyErr := r.recordLegacy(ctx, entry); legacyErr != nil {
		return fmt.Errorf("audit insert failed: extended: %v: legacy: %w", err, legacyErr)
	}
	r.extended.Store(false)
	return nil
}

func (r *GormAuditRepo) recordLegacy(ctx context.Context, entry *domain.AuditLogEntry) error {
	return r.db.WithContext(ctx).Create(legacyAuditModelFromDomain(entry)).Error
}

// legacySubject folds the attendee and staff references into the subject text
// so the legacy shape keeps them.
func legacySubject(e *domain.AuditLogEntry) *string {
	parts := make([]string, 0, 3)
	if e.Subject != nil && strings.TrimSpace(*e.Subject) != "" {
		parts = append(parts, strings.TrimSpace(*e.Subject))
	}
	if e.AttendeeID != nil && *e.AttendeeID != "" {
		parts = append(parts, "attendee="+*e.AttendeeID)
	}
	if e.StaffID != nil && *e.StaffID != "" {
		parts = append(parts, "staff="+*e.StaffID)
	}
	if len(parts) == 0 {
		return nil
	}
	subject := strings.Join(parts, " ")
	return &subject
}
