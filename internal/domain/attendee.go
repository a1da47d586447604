package domain

import (
	"fmt"
	"strings"
	"time"
)

// CredentialPrefix is the fixed prefix of every credential token.
const CredentialPrefix = "WORKSHOP_ATTENDEE:"

// ChannelStatus is the last known delivery state of one channel.
type ChannelStatus string

const (
	ChannelStatusPending ChannelStatus = "pending"
	ChannelStatusSent    ChannelStatus = "sent"
	ChannelStatusFailed  ChannelStatus = "failed"
)

func (s ChannelStatus) String() string { return string(s) }

func (s ChannelStatus) IsValid() bool {
	switch s {
	case ChannelStatusPending, ChannelStatusSent, ChannelStatusFailed:
		return true
	}
	return false
}

// Channel identifies an independent delivery mechanism.
type Channel string

const (
	ChannelEmail     Channel = "EMAIL"
	ChannelMessaging Channel = "MESSAGING"
)

func (c Channel) String() string { return string(c) }

// Channels lists every channel in dispatch order.
func Channels() []Channel {
	return []Channel{ChannelEmail, ChannelMessaging}
}

// MessageKind selects which notification is dispatched.
type MessageKind string

const (
	MessageKindRegistration MessageKind = "REGISTRATION"
	MessageKindEntry        MessageKind = "ENTRY"
)

func (k MessageKind) String() string { return string(k) }

func (k MessageKind) IsValid() bool {
	switch k {
	case MessageKindRegistration, MessageKindEntry:
		return true
	}
	return false
}

// AuditAction returns the audit tag recorded for a dispatch of this kind.
func (k MessageKind) AuditAction() AuditAction {
	if k == MessageKindEntry {
		return AuditActionEntry
	}
	return AuditActionRegister
}

// DeliveryStatus is the per-channel outcome of the most recent dispatch.
type DeliveryStatus struct {
	EmailStatus     ChannelStatus
	MessagingStatus ChannelStatus
	LastAttemptAt   *time.Time
	LastError       *string
}

// PendingDeliveryStatus is the status every attendee starts with.
func PendingDeliveryStatus() DeliveryStatus {
	return DeliveryStatus{
		EmailStatus:     ChannelStatusPending,
		MessagingStatus: ChannelStatusPending,
	}
}

func (s DeliveryStatus) Channel(channel Channel) ChannelStatus {
	if channel == ChannelMessaging {
		return s.MessagingStatus
	}
	return s.EmailStatus
}

// Complete reports whether both channels are sent.
func (s DeliveryStatus) Complete() bool {
	return s.EmailStatus == ChannelStatusSent && s.MessagingStatus == ChannelStatusSent
}

// OutstandingChannels returns the channels whose status is not sent.
func (s DeliveryStatus) OutstandingChannels() []Channel {
	outstanding := make([]Channel, 0, 2)
	for _, channel := range Channels() {
		if s.Channel(channel) != ChannelStatusSent {
			outstanding = append(outstanding, channel)
		}
	}
	return outstanding
}

// Attendee is a registered workshop participant.
type Attendee struct {
	ID              string
	Name            string
	Email           string
	Contact         string
	Batch           string
	CredentialToken string
	Delivery        DeliveryStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CredentialToken derives the scannable token for an attendee id.
func CredentialToken(attendeeID string) string {
	return CredentialPrefix + attendeeID
}

func (a *Attendee) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	email := strings.TrimSpace(a.Email)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if at := strings.Index(email, "@"); at <= 0 || at == len(email)-1 {
		return fmt.Errorf("%w: invalid email %q", ErrValidation, a.Email)
	}
	if strings.TrimSpace(a.Contact) == "" {
		return fmt.Errorf("%w: contact is required", ErrValidation)
	}
	if strings.TrimSpace(a.Batch) == "" {
		return fmt.Errorf("%w: batch is required", ErrValidation)
	}
	return nil
}
