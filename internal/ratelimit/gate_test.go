package ratelimit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGateBoundsConcurrency(t *testing.T) {
	t.Parallel()

	gate, err := NewGate(5)
	if err != nil {
		t.Fatalf("NewGate() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			if err := gate.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire() error = %v", err)
				return
			}
			defer gate.Release()

			if got := gate.InFlight(); got > 5 {
				t.Errorf("in flight = %d, want <= 5", got)
			}
			time.Sleep(10 * time.Millisecond)
		}()
	}
	wg.Wait()

	if peak := gate.Peak(); peak > 5 || peak < 1 {
		t.Fatalf("peak = %d, want 1..5", peak)
	}
	if got := gate.InFlight(); got != 0 {
		t.Fatalf("in flight after completion = %d, want 0", got)
	}
}

func TestGateAcquireHonoursContext(t *testing.T) {
	t.Parallel()

	gate, err := NewGate(1)
	if err != nil {
		t.Fatalf("NewGate() error = %v", err)
	}
	if err := gate.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer gate.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := gate.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Acquire() error = %v, want deadline exceeded", err)
	}
}

func TestGateCloseDrainsInFlight(t *testing.T) {
	t.Parallel()

	gate, err := NewGate(2)
	if err != nil {
		t.Fatalf("NewGate() error = %v", err)
	}
	if err := gate.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	var released atomic.Bool
	go func() {
		time.Sleep(30 * time.Millisecond)
		released.Store(true)
		gate.Release()
	}()

	if err := gate.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if !released.Load() {
		t.Fatal("Close() returned before the in-flight holder released")
	}

	if err := gate.Acquire(context.Background()); !errors.Is(err, ErrGateClosed) {
		t.Fatalf("Acquire() after close error = %v, want ErrGateClosed", err)
	}
}

func TestGateCloseBoundedByContext(t *testing.T) {
	t.Parallel()

	gate, err := NewGate(1)
	if err != nil {
		t.Fatalf("NewGate() error = %v", err)
	}
	if err := gate.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if gate.Draining() {
		t.Fatal("Draining() = true before Close")
	}
	if err := gate.Close(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Close() error = %v, want deadline exceeded", err)
	}
	if !gate.Draining() {
		t.Fatal("Draining() = false after Close")
	}
}

func TestNewGateRejectsNonPositiveCapacity(t *testing.T) {
	t.Parallel()

	if _, err := NewGate(0); err == nil {
		t.Fatal("expected error for zero capacity")
	}
}
