// Package ratelimit implements client-side request-per-minute limiting for
// upstream APIs with lazy-refill token buckets.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Result is the outcome of a rate limit check.
type Result struct {
	Allowed    bool
	Limit      int64
	Remaining  int64
	RetryAfter time.Duration
}

// Bucket is a token bucket with lazy refill (no background goroutine).
type Bucket struct {
	tokens   float64
	max      float64
	rate     float64 // tokens per second
	lastFill time.Time
}

func newBucket(limit int64, now time.Time) *Bucket {
	return &Bucket{
		tokens:   float64(limit),
		max:      float64(limit),
		rate:     float64(limit) / 60.0, // per-minute limit -> per-second rate
		lastFill: now,
	}
}

// refill adds tokens based on elapsed time since last refill.
func (b *Bucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastFill).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens = min(b.max, b.tokens+elapsed*b.rate)
	b.lastFill = now
}

// tryConsume attempts to consume n tokens. Returns remaining and whether allowed.
func (b *Bucket) tryConsume(n float64, now time.Time) (remaining int64, allowed bool) {
	b.refill(now)
	if b.tokens >= n {
		b.tokens -= n
		return int64(b.tokens), true
	}
	return 0, false
}

// retryAfter returns the time until n tokens are available.
func (b *Bucket) retryAfter(n float64) time.Duration {
	if b.tokens >= n {
		return 0
	}
	deficit := n - b.tokens
	return time.Duration(deficit / b.rate * float64(time.Second))
}

// Limiter paces calls to a single upstream. A zero or negative RPM means
// unlimited. It is safe for concurrent use.
type Limiter struct {
	mu     sync.Mutex
	bucket *Bucket // nil if unlimited
	rpm    int64
	clock  clock.Clock
}

// New creates a Limiter allowing rpm requests per minute. A nil clk uses
// the wall clock.
func New(rpm int64, clk clock.Clock) *Limiter {
	if clk == nil {
		clk = clock.New()
	}
	l := &Limiter{rpm: rpm, clock: clk}
	if rpm > 0 {
		l.bucket = newBucket(rpm, clk.Now())
	}
	return l
}

// Allow consumes one token if available without blocking.
func (l *Limiter) Allow() Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.bucket == nil {
		return Result{Allowed: true}
	}
	remaining, ok := l.bucket.tryConsume(1, l.clock.Now())
	if ok {
		return Result{Allowed: true, Limit: l.rpm, Remaining: remaining}
	}
	return Result{
		Allowed:    false,
		Limit:      l.rpm,
		RetryAfter: l.bucket.retryAfter(1),
	}
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		r := l.Allow()
		if r.Allowed {
			return nil
		}
		t := l.clock.Timer(r.RetryAfter)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
