package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/workshop-checkin/internal/domain"
)

// Event is the broker payload for attendee lifecycle notifications.
type Event struct {
	ID              string               `json:"id"`
	RoutingKey      string               `json:"type"`
	AttendeeID      string               `json:"attendeeId"`
	RequestID       string               `json:"requestId,omitempty"`
	MessageKind     domain.MessageKind   `json:"messageKind,omitempty"`
	EmailStatus     domain.ChannelStatus `json:"emailStatus,omitempty"`
	MessagingStatus domain.ChannelStatus `json:"messagingStatus,omitempty"`
	EntryTime       *time.Time           `json:"entryTime,omitempty"`
	OccurredAt      time.Time            `json:"occurredAt"`
}

func NewDeliveryCompletedEvent(attendeeID string, kind domain.MessageKind, status domain.DeliveryStatus, at time.Time) Event {
	return Event{
		ID:              uuid.NewString(),
		RoutingKey:      RoutingKeyDeliveryCompleted,
		AttendeeID:      attendeeID,
		MessageKind:     kind,
		EmailStatus:     status.EmailStatus,
		MessagingStatus: status.MessagingStatus,
		OccurredAt:      at.UTC(),
	}
}

func NewCheckedInEvent(attendeeID string, entryTime time.Time) Event {
	entry := entryTime
	return Event{
		ID:         uuid.NewString(),
		RoutingKey: RoutingKeyAttendeeCheckedIn,
		AttendeeID: attendeeID,
		EntryTime:  &entry,
		OccurredAt: time.Now().UTC(),
	}
}

func (e Event) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(e.AttendeeID) == "" {
		return fmt.Errorf("attendeeId is required")
	}
	switch e.RoutingKey {
	case RoutingKeyDeliveryCompleted:
		if !e.MessageKind.IsValid() {
			return fmt.Errorf("invalid message kind %q", e.MessageKind)
		}
	case RoutingKeyAttendeeCheckedIn:
		if e.EntryTime == nil {
			return fmt.Errorf("entryTime is required")
		}
	default:
		return fmt.Errorf("unsupported event type %q", e.RoutingKey)
	}
	return nil
}
