package domain

import "time"

// AuditAction tags an audit log entry.
type AuditAction string

const (
	AuditActionRegister     AuditAction = "REGISTER"
	AuditActionEntry        AuditAction = "ENTRY"
	AuditActionLoginSuccess AuditAction = "LOGIN_SUCCESS"
	AuditActionLoginFailed  AuditAction = "LOGIN_FAILED"
	AuditActionStaffCreate  AuditAction = "STAFF_CREATE"
	AuditActionStaffUpdate  AuditAction = "STAFF_UPDATE"
	AuditActionStaffDelete  AuditAction = "STAFF_DELETE"
	AuditActionResend       AuditAction = "RESEND"
)

func (a AuditAction) String() string { return string(a) }

// AuditLogEntry is an append-only record. Every reference is optional.
type AuditLogEntry struct {
	ID              string
	Action          AuditAction
	AttendeeID      *string
	StaffID         *string
	EmailStatus     *ChannelStatus
	MessagingStatus *ChannelStatus
	LastError       *string
	Subject         *string
	CreatedAt       time.Time
}
