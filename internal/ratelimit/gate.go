package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kursadbilgin/workshop-checkin/internal/observability"
	"golang.org/x/sync/semaphore"
)

// ErrGateClosed is returned by Acquire once Close has been called.
var ErrGateClosed = errors.New("dispatch gate closed")

// Gate bounds the number of attendee dispatches running at once across the
// whole process. Callers hold one slot for the full per-attendee dispatch.
type Gate struct {
	sem      *semaphore.Weighted
	capacity int64

	mu       sync.Mutex
	closed   bool
	inFlight int64
	peak     int64

	metrics *observability.Metrics
}

func NewGate(capacity int) (*Gate, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("gate capacity must be positive, got %d", capacity)
	}

	return &Gate{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: int64(capacity),
	}, nil
}

func (g *Gate) SetMetrics(metrics *observability.Metrics) {
	if g == nil {
		return
	}
	g.metrics = metrics
}

// Acquire blocks until a slot is free, ctx is done, or the gate is closed.
func (g *Gate) Acquire(ctx context.Context) error {
	if g.isClosed() {
		return ErrGateClosed
	}
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		g.sem.Release(1)
		return ErrGateClosed
	}
	g.inFlight++
	if g.inFlight > g.peak {
		g.peak = g.inFlight
	}
	g.mu.Unlock()

	g.metrics.IncGateInFlight()
	return nil
}

func (g *Gate) Release() {
	g.mu.Lock()
	if g.inFlight == 0 {
		g.mu.Unlock()
		return
	}
	g.inFlight--
	g.mu.Unlock()

	g.sem.Release(1)
	g.metrics.DecGateInFlight()
}

func (g *Gate) Capacity() int {
	return int(g.capacity)
}

func (g *Gate) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return int(g.inFlight)
}

// Peak is the highest number of slots held at the same time.
func (g *Gate) Peak() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return int(g.peak)
}

// Close rejects new acquisitions and waits for in-flight holders to release,
// bounded by ctx.
func (g *Gate) Close(ctx context.Context) error {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()

	if err := g.sem.Acquire(ctx, g.capacity); err != nil {
		return fmt.Errorf("drain dispatch gate: %w", err)
	}
	g.sem.Release(g.capacity)
	return nil
}

// Draining reports whether Close has been called.
func (g *Gate) Draining() bool {
	return g.isClosed()
}

func (g *Gate) isClosed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}
