// Package throttle paces calls to a shared external provider. Every dispatch
// after the first waits until at least the configured interval has passed since
// the previous call finished, whatever that call's outcome was.
package throttle

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// Throttle enforces a minimum interval between consecutive calls. It is meant to
// be owned by a single sequential caller and is not safe for concurrent use.
type Throttle struct {
	clock    clockwork.Clock
	interval time.Duration
	last     time.Time
	used     bool
}

// New creates a Throttle. A nil clock uses real time; a non-positive interval
// disables waiting.
func New(clock clockwork.Clock, interval time.Duration) *Throttle {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Throttle{clock: clock, interval: interval}
}

// Interval returns the configured minimum spacing.
func (t *Throttle) Interval() time.Duration { return t.interval }

// Do waits for the throttle, runs fn, and marks the call as finished. It returns
// the context error if cancelled while waiting; fn is not run in that case.
func (t *Throttle) Do(ctx context.Context, fn func(ctx context.Context)) error {
	if err := t.wait(ctx); err != nil {
		return err
	}
	fn(ctx)
	t.last = t.clock.Now()
	t.used = true
	return nil
}

func (t *Throttle) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !t.used || t.interval <= 0 {
		return nil
	}
	remaining := t.interval - t.clock.Since(t.last)
	if remaining <= 0 {
		return nil
	}

	timer := t.clock.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}

// Each runs fn for every item in order, one at a time, paced by t. It stops at
// the first cancellation and returns the number of items processed with the
// context error.
func Each[T any](ctx context.Context, t *Throttle, items []T, fn func(ctx context.Context, i int, item T)) (int, error) {
	for i, item := range items {
		err := t.Do(ctx, func(ctx context.Context) {
			fn(ctx, i, item)
		})
		if err != nil {
			return i, err
		}
	}
	return len(items), nil
}
