package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func TestLimiter_Allow(t *testing.T) {
	t.Parallel()
	l := New(3, clock.NewMock())

	for i := range 3 {
		r := l.Allow()
		if !r.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
		if r.Limit != 3 {
			t.Errorf("limit = %d, want 3", r.Limit)
		}
	}

	r := l.Allow()
	if r.Allowed {
		t.Error("4th request should be denied")
	}
	if r.RetryAfter <= 0 {
		t.Error("RetryAfter should be positive")
	}
}

func TestLimiter_RefillAfterTime(t *testing.T) {
	t.Parallel()
	mock := clock.NewMock()
	l := New(1, mock)

	if !l.Allow().Allowed {
		t.Fatal("first request should be allowed")
	}
	r := l.Allow()
	if r.Allowed {
		t.Fatal("second request should be denied")
	}
	if r.RetryAfter < 59*time.Second || r.RetryAfter > 61*time.Second {
		t.Errorf("RetryAfter = %v, want about 1m", r.RetryAfter)
	}

	mock.Add(61 * time.Second)
	if !l.Allow().Allowed {
		t.Error("request should be allowed after refill")
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	t.Parallel()
	l := New(0, nil)
	for range 1000 {
		if !l.Allow().Allowed {
			t.Fatal("unlimited limiter should always allow")
		}
	}
	if err := l.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestLimiter_WaitBlocksUntilRefill(t *testing.T) {
	t.Parallel()
	mock := clock.NewMock()
	l := New(60, mock) // one token per second

	for range 60 {
		l.Allow()
	}

	done := make(chan error, 1)
	go func() { done <- l.Wait(context.Background()) }()

	for {
		select {
		case err := <-done:
			if err != nil {
				t.Fatal(err)
			}
			return
		default:
			mock.Add(100 * time.Millisecond)
		}
	}
}

func TestLimiter_WaitContextCancelled(t *testing.T) {
	t.Parallel()
	l := New(1, clock.NewMock())
	l.Allow()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait error = %v, want context.Canceled", err)
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	t.Parallel()
	l := New(100, clock.NewMock())

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for range 200 {
		wg.Go(func() {
			if l.Allow().Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	if allowed != 100 {
		t.Errorf("allowed = %d, want 100", allowed)
	}
}
