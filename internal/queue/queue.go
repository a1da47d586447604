package queue

import "context"

// Publisher hands attendee events to a broker. Publishing is best effort:
// callers log failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

const (
	// EventsExchange is the fanout exchange every attendee event goes to.
	EventsExchange = "workshop.events"

	RoutingKeyDeliveryCompleted = "delivery.completed"
	RoutingKeyAttendeeCheckedIn = "attendee.checked_in"
)

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() error { return nil }
