package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

var _ Publisher = (*RabbitMQPublisher)(nil)

type RabbitMQPublisher struct {
	client *RabbitMQ
}

func NewRabbitMQPublisher(client *RabbitMQ) *RabbitMQPublisher {
	return &RabbitMQPublisher{client: client}
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, event Event) error {
	if p == nil || p.client == nil {
		return fmt.Errorf("publisher is not initialized")
	}
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}

	publishing, err := buildPublishing(event)
	if err != nil {
		return err
	}

	return p.client.withChannel(func(ch *amqp.Channel) error {
		if err := ch.PublishWithContext(ctx, EventsExchange, event.RoutingKey, false, false, publishing); err != nil {
			return fmt.Errorf("failed to publish %q event: %w", event.RoutingKey, err)
		}
		return nil
	})
}

// buildPublishing encodes the event as a transient message; subscribers that
// miss an event can rebuild state from the delivery status store.
func buildPublishing(event Event) (amqp.Publishing, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal event: %w", err)
	}

	return amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Transient,
		Timestamp:     time.Now().UTC(),
		MessageId:     event.ID,
		CorrelationId: event.RequestID,
		Type:          event.RoutingKey,
		Body:          payload,
	}, nil
}

func (p *RabbitMQPublisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}
