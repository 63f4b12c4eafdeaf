package crawler

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Limiter bounds the number of fetch attempts in flight.
//
// It is a counting semaphore: every waiter is eventually admitted, but there is no promise about the order.
type Limiter struct {
	sem      *semaphore.Weighted
	size     int64
	inFlight atomic.Int64
}

// NewLimiter creates a limiter that admits n holders at the same time. A size smaller than 1 is treated as 1.
func NewLimiter(n int) *Limiter {
	if n < 1 {
		n = 1
	}

	return &Limiter{
		sem:  semaphore.NewWeighted(int64(n)),
		size: int64(n),
	}
}

// Acquire blocks until a slot is free or the context is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err // nolint: wrapcheck // The error is the context error.
	}

	l.inFlight.Add(1)

	return nil
}

// Release returns a held slot.
func (l *Limiter) Release() {
	l.inFlight.Add(-1)
	l.sem.Release(1)
}

// InFlight returns the number of slots currently held.
func (l *Limiter) InFlight() int64 {
	return l.inFlight.Load()
}

// Size returns the maximum number of holders.
func (l *Limiter) Size() int64 {
	return l.size
}
