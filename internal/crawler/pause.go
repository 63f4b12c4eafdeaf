package crawler

import (
	"context"
	"time"
)

// Pauser waits for a duration. It is used for the politeness delay and for the backoff between attempts.
type Pauser interface {
	Pause(ctx context.Context, d time.Duration) error
}

// PauserFunc is an adapter to use an ordinary function as a Pauser.
type PauserFunc func(ctx context.Context, d time.Duration) error

// Pause calls f(ctx, d).
func (f PauserFunc) Pause(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

type timerPauser struct{}

// Pause waits for the duration or until the context is done, whichever comes first.
func (timerPauser) Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()

	case <-timer.C:
		return nil
	}
}
