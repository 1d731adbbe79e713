package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

type statusErr int

func (e statusErr) Error() string   { return fmt.Sprintf("status %d", int(e)) }
func (e statusErr) HTTPStatus() int { return int(e) }

func testConfig() Config {
	return Config{ErrorThreshold: 0.5, MinSamples: 4, Window: 10 * time.Second, OpenTimeout: 5 * time.Second}
}

func TestBreaker_TripsOnErrorRate(t *testing.T) {
	t.Parallel()
	b := New(testConfig(), clock.NewMock())

	b.Record(nil)
	b.Record(statusErr(500))
	b.Record(statusErr(500))
	if b.State() != StateClosed {
		t.Fatal("should stay closed below MinSamples")
	}
	b.Record(statusErr(503))
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open (3/4 failed)", b.State())
	}
	if b.Allow() {
		t.Error("open breaker should reject calls")
	}
}

func TestBreaker_ClientErrorsDoNotTrip(t *testing.T) {
	t.Parallel()
	b := New(testConfig(), clock.NewMock())

	for range 10 {
		b.Record(statusErr(404))
	}
	if b.State() != StateClosed {
		t.Errorf("state = %v, want closed", b.State())
	}
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	t.Parallel()
	mock := clock.NewMock()
	b := New(testConfig(), mock)
	for range 4 {
		b.Record(statusErr(500))
	}

	mock.Add(5 * time.Second)
	if !b.Allow() {
		t.Fatal("first call after timeout should be the probe")
	}
	if b.Allow() {
		t.Error("only one probe may be in flight")
	}
	if b.State() != StateHalfOpen {
		t.Errorf("state = %v, want half_open", b.State())
	}

	b.Record(nil)
	if b.State() != StateClosed {
		t.Errorf("state = %v, want closed after successful probe", b.State())
	}
	if !b.Allow() {
		t.Error("closed breaker should allow calls")
	}
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	t.Parallel()
	mock := clock.NewMock()
	b := New(testConfig(), mock)
	for range 4 {
		b.Record(statusErr(500))
	}
	mock.Add(5 * time.Second)
	b.Allow()
	b.Record(context.DeadlineExceeded)

	if b.State() != StateOpen {
		t.Errorf("state = %v, want open", b.State())
	}
	mock.Add(time.Second)
	if b.Allow() {
		t.Error("reopened breaker should restart its timeout")
	}
}

func TestBreaker_WindowSlides(t *testing.T) {
	t.Parallel()
	mock := clock.NewMock()
	b := New(testConfig(), mock)

	for range 3 {
		b.Record(statusErr(500))
	}
	mock.Add(11 * time.Second) // failures age out of the 10s window
	b.Record(nil)
	b.Record(nil)
	b.Record(nil)
	b.Record(statusErr(500))
	if b.State() != StateClosed {
		t.Errorf("state = %v, want closed (1/4 failed in window)", b.State())
	}
}

func TestClassifyError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want float64
	}{
		{"nil", nil, 0},
		{"not found", statusErr(404), 0},
		{"rate limited", statusErr(429), 0.5},
		{"server error", fmt.Errorf("wrapped: %w", statusErr(502)), 1.0},
		{"timeout", fmt.Errorf("do: %w", context.DeadlineExceeded), 1.5},
		{"canceled", context.Canceled, 0},
		{"transport", errors.New("connection refused"), 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestNew_FillsDefaults(t *testing.T) {
	t.Parallel()
	b := New(Config{}, nil)
	if b.cfg != DefaultConfig() {
		t.Errorf("cfg = %+v, want defaults", b.cfg)
	}
	if b.window.size != 60 {
		t.Errorf("window size = %d, want 60", b.window.size)
	}
}
