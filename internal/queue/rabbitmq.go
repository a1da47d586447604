package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	dialTimeout      = 5 * time.Second
	heartbeat        = 10 * time.Second
	reconnectBackoff = time.Second
	maxBackoff       = 30 * time.Second
	redialCooldown   = 5 * time.Second
)

var errBrokerUnavailable = errors.New("rabbitmq unavailable")

// RabbitMQ owns one broker connection and one publishing channel. Startup
// retries with backoff until the context ends. Afterwards a broken connection
// is redialed lazily by the next publish, at most once per redialCooldown, so
// publishes fail fast while the broker is down.
type RabbitMQ struct {
	url  string
	dial func(url string) (*amqp.Connection, error)
	now  func() time.Time

	mu          sync.Mutex
	conn        *amqp.Connection
	ch          *amqp.Channel
	lastDialErr error
	nextDial    time.Time
}

func NewRabbitMQ(ctx context.Context, url string) (*RabbitMQ, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("rabbitmq url is required")
	}

	r := &RabbitMQ{url: url, dial: dialBroker, now: time.Now}
	if err := r.connectWithBackoff(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func dialBroker(url string) (*amqp.Connection, error) {
	return amqp.DialConfig(url, amqp.Config{
		Heartbeat: heartbeat,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(dialTimeout),
	})
}

func (r *RabbitMQ) connectWithBackoff(ctx context.Context) error {
	wait := reconnectBackoff
	for {
		r.mu.Lock()
		err := r.ensureChannelLocked()
		r.mu.Unlock()
		if err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("rabbitmq connect canceled: %w", errors.Join(ctx.Err(), err))
		case <-time.After(wait):
		}

		wait = min(wait*2, maxBackoff)
		r.mu.Lock()
		r.nextDial = time.Time{}
		r.mu.Unlock()
	}
}

// withChannel runs fn on the shared channel. Calls are serialized; a channel
// closed by the broker is dropped and reopened by the next call.
func (r *RabbitMQ) withChannel(fn func(ch *amqp.Channel) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureChannelLocked(); err != nil {
		return err
	}
	if err := fn(r.ch); err != nil {
		if r.ch.IsClosed() {
			r.ch = nil
		}
		return err
	}
	return nil
}

func (r *RabbitMQ) ensureChannelLocked() error {
	if r.ch != nil && !r.ch.IsClosed() {
		return nil
	}
	r.ch = nil

	if r.conn == nil || r.conn.IsClosed() {
		if now := r.now(); now.Before(r.nextDial) {
			return fmt.Errorf("%w until %s: %v", errBrokerUnavailable, r.nextDial.Format(time.RFC3339), r.lastDialErr)
		}
		conn, err := r.dial(r.url)
		if err != nil {
			r.lastDialErr = err
			r.nextDial = r.now().Add(redialCooldown)
			return fmt.Errorf("failed to connect to rabbitmq: %w", err)
		}
		r.conn = conn
	}

	ch, err := r.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}
	if err := declareTopology(ch); err != nil {
		_ = ch.Close()
		return err
	}
	r.ch = ch
	return nil
}

func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	if r.ch != nil && !r.ch.IsClosed() {
		errs = append(errs, r.ch.Close())
	}
	if r.conn != nil && !r.conn.IsClosed() {
		errs = append(errs, r.conn.Close())
	}
	r.ch, r.conn = nil, nil
	return errors.Join(errs...)
}

func declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(
		EventsExchange,
		amqp.ExchangeFanout,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare events exchange: %w", err)
	}
	return nil
}
