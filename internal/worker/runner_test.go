package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/dnscache"
)

// stubWorker blocks until cancelled unless run is set.
type stubWorker struct {
	run     func(ctx context.Context) error
	started atomic.Bool
	stopped atomic.Bool
}

func (w *stubWorker) Run(ctx context.Context) error {
	w.started.Store(true)
	defer w.stopped.Store(true)
	if w.run != nil {
		return w.run(ctx)
	}
	<-ctx.Done()
	return nil
}

func runAsync(ctx context.Context, r *Runner) <-chan error {
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	return done
}

func wait(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not return")
		return nil
	}
}

func TestRunner_AddedWorkersRun(t *testing.T) {
	t.Parallel()
	first, second := &stubWorker{}, &stubWorker{}
	r := NewRunner(first)
	r.Add(second)

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, r)

	deadline := time.Now().Add(2 * time.Second)
	for !(first.started.Load() && second.started.Load()) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if err := wait(t, done); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !first.stopped.Load() || !second.stopped.Load() {
		t.Error("every worker should have returned")
	}
}

func TestRunner_LateAddedFailureCancelsOthers(t *testing.T) {
	t.Parallel()
	errBind := errors.New("listen: address in use")
	sweeper := &stubWorker{}
	r := NewRunner(sweeper)
	r.Add(&stubWorker{run: func(context.Context) error { return errBind }})

	err := wait(t, runAsync(context.Background(), r))
	if !errors.Is(err, errBind) {
		t.Errorf("err = %v, want %v", err, errBind)
	}
	if !sweeper.stopped.Load() {
		t.Error("healthy worker should be cancelled by the failure")
	}
}

func TestRunner_RealWorkers(t *testing.T) {
	t.Parallel()
	r := NewRunner()
	r.Add(NewCacheSweeper(&fakePurger{}, time.Minute, clock.NewMock()))
	r.Add(NewDNSRefresher(&dnscache.Resolver{}))

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, r)
	cancel()
	if err := wait(t, done); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunner_Empty(t *testing.T) {
	t.Parallel()
	if err := NewRunner().Run(t.Context()); err != nil {
		t.Errorf("empty runner: %v", err)
	}
}

func TestWorkerName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		w    Worker
		want string
	}{
		{NewCacheSweeper(&fakePurger{}, time.Minute, nil), "cache_sweeper"},
		{&ServerWorker{}, "http_server"},
		{NewDNSRefresher(nil), "dns_refresher"},
		{&stubWorker{}, "unknown"},
	}
	for _, tt := range tests {
		if got := workerName(tt.w); got != tt.want {
			t.Errorf("workerName(%T) = %q, want %q", tt.w, got, tt.want)
		}
	}
}
