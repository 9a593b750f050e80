package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Limiter enforces a minimum interval between operations with optional
// jitter. Unlike a ticker-based limiter it holds no background timer, so an
// idle limiter costs nothing. Safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	next     time.Time
	interval time.Duration
	jitter   float64 // 0.0 to 1.0
}

// New creates a limiter allowing rps operations per second with the given
// jitter factor. If rps <= 0 the limiter never blocks. Jitter is clamped to
// [0, 1].
func New(rps, jitter float64) *Limiter {
	l := &Limiter{}
	if rps > 0 {
		l.interval = time.Duration(float64(time.Second) / rps)
	}
	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}
	l.jitter = jitter
	return l
}

// Wait blocks until the caller may proceed, or until the context is canceled.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.interval == 0 {
		return nil
	}

	l.mu.Lock()
	now := time.Now()
	wait := l.next.Sub(now)

	step := l.interval
	if l.jitter > 0 {
		// Random jitter in +/- (jitter * interval) around the nominal step.
		factor := (rand.Float64() * 2) - 1.0
		step += time.Duration(float64(l.interval) * l.jitter * factor)
	}

	if wait <= 0 {
		l.next = now.Add(step)
		l.mu.Unlock()
		return nil
	}
	l.next = l.next.Add(step)
	l.mu.Unlock()

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
