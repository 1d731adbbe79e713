package worker

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/dnscache"
)

type fakePurger struct {
	purges atomic.Int32
}

func (f *fakePurger) PurgeExpired() int { f.purges.Add(1); return 1 }
func (f *fakePurger) Len() int          { return 0 }

func TestCacheSweeper_Run(t *testing.T) {
	t.Parallel()
	mock := clock.NewMock()
	p := &fakePurger{}
	w := NewCacheSweeper(p, time.Minute, mock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Let Run register its ticker before advancing.
	time.Sleep(20 * time.Millisecond)
	for i := range 3 {
		mock.Add(time.Minute)
		deadline := time.Now().Add(2 * time.Second)
		for int(p.purges.Load()) < i+1 && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
	}
	if n := p.purges.Load(); n != 3 {
		t.Errorf("purges = %d, want 3", n)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestServerWorker_ShutdownOnCancel(t *testing.T) {
	t.Parallel()
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	w := NewServerWorker(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server worker did not stop")
	}
}

func TestDNSRefresher_StopOnCancel(t *testing.T) {
	t.Parallel()
	r := NewRunner()
	r.Add(NewDNSRefresher(&dnscache.Resolver{}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("refresher did not stop")
	}
}
