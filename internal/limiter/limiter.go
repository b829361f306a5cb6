// Package limiter bounds the number of simultaneously in-flight operations.
package limiter

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// Limiter admits at most capacity concurrent operations. Waiters are served
// in FIFO order and a failing operation always releases its slot.
type Limiter struct {
	sem      *semaphore.Weighted
	capacity int
}

// New constructs a limiter with the given positive capacity.
func New(capacity int) (*Limiter, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("limiter: capacity must be positive, got %d", capacity)
	}
	return &Limiter{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
	}, nil
}

// Capacity returns the configured concurrency bound.
func (l *Limiter) Capacity() int {
	return l.capacity
}

// Run blocks until a slot is free, executes op, and releases the slot when op
// returns. Admission is aborted when ctx is canceled before a slot frees.
func (l *Limiter) Run(ctx context.Context, op func(context.Context) error) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("limiter: acquire slot: %w", err)
	}
	defer l.sem.Release(1)
	return op(ctx)
}
