package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Limiter paces page loads and detail fetches. Wait blocks until enough time
// has passed since the last action, or until the context is done.
type Limiter interface {
	Wait(ctx context.Context) error
	SetDelay(min, max time.Duration)
}

// JitteredLimiter waits a random duration between min and max, so successive
// requests never arrive on a fixed beat.
type JitteredLimiter struct {
	minDelay   time.Duration
	maxDelay   time.Duration
	lastAction time.Time
	mu         sync.Mutex
}

func NewJitteredLimiter(minDelay, maxDelay time.Duration) *JitteredLimiter {
	return &JitteredLimiter{
		minDelay: minDelay,
		maxDelay: maxDelay,
	}
}

func (l *JitteredLimiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	elapsed := time.Since(l.lastAction)
	delay := l.nextDelay()

	if elapsed < delay {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay - elapsed):
		}
	}

	l.lastAction = time.Now()
	return nil
}

func (l *JitteredLimiter) SetDelay(min, max time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.minDelay = min
	l.maxDelay = max
}

func (l *JitteredLimiter) nextDelay() time.Duration {
	if l.maxDelay <= l.minDelay {
		return l.minDelay
	}
	return l.minDelay + time.Duration(rand.Int63n(int64(l.maxDelay-l.minDelay)))
}

// BackoffLimiter widens the delay window after repeated rate-limit hits and
// slowly narrows it again once requests succeed.
type BackoffLimiter struct {
	*JitteredLimiter
	errorCount    int
	successCount  int
	maxErrorCount int
	backoffFactor float64
	ceiling       time.Duration
}

func NewBackoffLimiter(minDelay, maxDelay time.Duration) *BackoffLimiter {
	return &BackoffLimiter{
		JitteredLimiter: NewJitteredLimiter(minDelay, maxDelay),
		maxErrorCount:   3,
		backoffFactor:   2.0,
		ceiling:         2 * time.Minute,
	}
}

func (b *BackoffLimiter) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.successCount++
	b.errorCount = 0

	if b.successCount > 5 {
		narrowed := time.Duration(float64(b.minDelay) * 0.9)
		if narrowed < time.Second {
			narrowed = time.Second
		}
		b.minDelay = narrowed
		b.successCount = 0
	}
}

func (b *BackoffLimiter) RecordRateLimited() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.errorCount++
	b.successCount = 0

	if b.errorCount >= b.maxErrorCount {
		b.minDelay = capDuration(time.Duration(float64(b.minDelay)*b.backoffFactor), b.ceiling/2)
		b.maxDelay = capDuration(time.Duration(float64(b.maxDelay)*b.backoffFactor), b.ceiling)
		b.errorCount = 0
	}
}

func capDuration(d, ceiling time.Duration) time.Duration {
	if d > ceiling {
		return ceiling
	}
	return d
}
