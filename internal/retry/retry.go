// Package retry wraps a single fallible operation with bounded retry and
// exponential backoff.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"deckhand/internal/logging"
	"deckhand/internal/services"
)

const defaultBaseDelay = time.Second

// Executor retries an operation up to a fixed attempt budget, sleeping
// baseDelay * 2^(attempt-1) between attempts. No jitter, no circuit breaking.
type Executor struct {
	label     string
	baseDelay time.Duration
	logger    *slog.Logger
	sleeper   func(time.Duration)
}

// Option customizes the executor.
type Option func(*Executor)

// WithBaseDelay overrides the first backoff delay (defaults to 1s).
func WithBaseDelay(delay time.Duration) Option {
	return func(e *Executor) {
		if delay >= 0 {
			e.baseDelay = delay
		}
	}
}

// WithLogger sets the logger used for per-attempt warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithSleeper overrides how backoff sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(e *Executor) {
		e.sleeper = sleeper
	}
}

// New constructs an executor whose label identifies the operation in warnings.
func New(label string, opts ...Option) *Executor {
	e := &Executor{
		label:     label,
		baseDelay: defaultBaseDelay,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute calls op with a 1-based attempt number until it succeeds or the
// attempt budget is exhausted, then returns the last error. Each failed
// attempt is logged as a warning carrying the executor label.
func (e *Executor) Execute(ctx context.Context, attempts int, op func(ctx context.Context, attempt int) error) error {
	if attempts <= 0 {
		return fmt.Errorf("retry %s: attempts must be positive, got %d", e.label, attempts)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		lastErr = op(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		// Fatal errors and caller cancellation will not improve with
		// another attempt. A per-call timeout is a normal failure and
		// stays eligible for retry.
		if services.IsFatal(lastErr) || ctx.Err() != nil {
			return lastErr
		}

		e.logger.Warn(
			"operation attempt failed",
			logging.String("operation", e.label),
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", attempts),
			logging.Error(lastErr),
		)

		if attempt < attempts {
			if err := e.sleep(ctx, e.delayFor(attempt)); err != nil {
				return lastErr
			}
		}
	}
	return lastErr
}

func (e *Executor) delayFor(attempt int) time.Duration {
	if e.baseDelay <= 0 {
		return 0
	}
	delay := e.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

func (e *Executor) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if e.sleeper != nil {
		e.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
