package repository

import (
	"time"

	"github.com/kursadbilgin/workshop-checkin/internal/domain"
)

// AttendeeModel is the persistence model for the attendees table. Delivery
// status columns live on the attendee row and are updated in place.
type AttendeeModel struct {
	ID              string               `gorm:"type:uuid;primaryKey"`
	Name            string               `gorm:"type:varchar(255);not null"`
	Email           string               `gorm:"type:varchar(255);not null"`
	Contact         string               `gorm:"type:varchar(64);not null"`
	Batch           string               `gorm:"type:varchar(128);not null"`
	CredentialToken string               `gorm:"type:varchar(128);not null;uniqueIndex:idx_attendees_credential_token"`
	EmailStatus     domain.ChannelStatus `gorm:"type:varchar(16);not null;default:pending"`
	MessagingStatus domain.ChannelStatus `gorm:"type:varchar(16);not null;default:pending"`
	LastAttemptAt   *time.Time
	LastError       *string `gorm:"type:text"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (AttendeeModel) TableName() string {
	return "attendees"
}

// AttendanceModel is the persistence model for attendance. The unique index on
// attendee_id is what makes check-in insert-if-absent atomic.
type AttendanceModel struct {
	ID         string    `gorm:"type:uuid;primaryKey"`
	AttendeeID string    `gorm:"type:uuid;not null;uniqueIndex:idx_attendance_attendee_id"`
	EntryTime  time.Time `gorm:"not null"`
	CreatedAt  time.Time
}

func (AttendanceModel) TableName() string {
	return "attendance"
}

// AuditLogModel is the extended audit_logs shape.
type AuditLogModel struct {
	ID              string                `gorm:"type:uuid;primaryKey"`
	Action          domain.AuditAction    `gorm:"type:varchar(32);not null"`
	AttendeeID      *string               `gorm:"type:uuid"`
	StaffID         *string               `gorm:"type:varchar(64)"`
	EmailStatus     *domain.ChannelStatus `gorm:"type:varchar(16)"`
	MessagingStatus *domain.ChannelStatus `gorm:"type:varchar(16)"`
	LastError       *string               `gorm:"type:text"`
	Subject         *string               `gorm:"type:text"`
	CreatedAt       time.Time
}

func (AuditLogModel) TableName() string {
	return "audit_logs"
}

// legacyAuditLogModel is the older audit_logs shape without attendee and
// staff references.
type legacyAuditLogModel struct {
	ID              string                `gorm:"type:uuid;primaryKey"`
	Action          domain.AuditAction    `gorm:"type:varchar(32);not null"`
	EmailStatus     *domain.ChannelStatus `gorm:"type:varchar(16)"`
	MessagingStatus *domain.ChannelStatus `gorm:"type:varchar(16)"`
	LastError       *string               `gorm:"type:text"`
	Subject         *string               `gorm:"type:text"`
	CreatedAt       time.Time
}

func (legacyAuditLogModel) TableName() string {
	return "audit_logs"
}

func attendeeModelFromDomain(a *domain.Attendee) *AttendeeModel {
	if a == nil {
		return nil
	}

	return &AttendeeModel{
		ID:              a.ID,
		Name:            a.Name,
		Email:           a.Email,
		Contact:         a.Contact,
		Batch:           a.Batch,
		CredentialToken: a.CredentialToken,
		EmailStatus:     a.Delivery.EmailStatus,
		MessagingStatus: a.Delivery.MessagingStatus,
		LastAttemptAt:   a.Delivery.LastAttemptAt,
		LastError:       a.Delivery.LastError,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func attendeeModelToDomain(m *AttendeeModel) *domain.Attendee {
	if m == nil {
		return nil
	}

	return &domain.Attendee{
		ID:              m.ID,
		Name:            m.Name,
		Email:           m.Email,
		Contact:         m.Contact,
		Batch:           m.Batch,
		CredentialToken: m.CredentialToken,
		Delivery:        deliveryStatusFromModel(m),
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func deliveryStatusFromModel(m *AttendeeModel) domain.DeliveryStatus {
	return domain.DeliveryStatus{
		EmailStatus:     m.EmailStatus,
		MessagingStatus: m.MessagingStatus,
		LastAttemptAt:   m.LastAttemptAt,
		LastError:       m.LastError,
	}
}

func attendanceModelFromDomain(r *domain.AttendanceRecord) *AttendanceModel {
	if r == nil {
		return nil
	}

	return &AttendanceModel{
		ID:         r.ID,
		AttendeeID: r.AttendeeID,
		EntryTime:  r.EntryTime,
		CreatedAt:  r.CreatedAt,
	}
}

func attendanceModelToDomain(m *AttendanceModel) *domain.AttendanceRecord {
	if m == nil {
		return nil
	}

	return &domain.AttendanceRecord{
		ID:         m.ID,
		AttendeeID: m.AttendeeID,
		EntryTime:  m.EntryTime,
		CreatedAt:  m.CreatedAt,
	}
}

func auditModelFromDomain(e *domain.AuditLogEntry) *AuditLogModel {
	return &AuditLogModel{
		ID:              e.ID,
		Action:          e.Action,
		AttendeeID:      e.AttendeeID,
		StaffID:         e.StaffID,
		EmailStatus:     e.EmailStatus,
		MessagingStatus: e.MessagingStatus,
		LastError:       e.LastError,
		Subject:         e.Subject,
		CreatedAt:       e.CreatedAt,
	}
}

func legacyAuditModelFromDomain(e *domain.AuditLogEntry) *legacyAuditLogModel {
	return &legacyAuditLogModel{
		ID:              e.ID,
		Action:          e.Action,
		EmailStatus:     e.EmailStatus,
		MessagingStatus: e.MessagingStatus,
		LastError:       e.LastError,
		Subject:         legacySubject(e),
		CreatedAt:       e.CreatedAt,
	}
}
