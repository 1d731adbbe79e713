// Package circuitbreaker fails calls to an upstream API fast while its
// recent weighted error rate is above a threshold.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// ErrOpen is returned for calls rejected by an open breaker.
var ErrOpen = errors.New("circuit breaker open")

// State represents the circuit breaker state.
type State int

const (
	// StateClosed allows all requests through.
	StateClosed State = iota
	// StateOpen rejects all requests.
	StateOpen
	// StateHalfOpen allows a single probe request.
	StateHalfOpen
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Config holds circuit breaker parameters.
type Config struct {
	ErrorThreshold float64       // weighted error rate that trips the breaker
	MinSamples     int           // requests in the window before it may trip
	Window         time.Duration // sliding window, whole seconds up to 60
	OpenTimeout    time.Duration // time spent open before a probe is allowed
}

// DefaultConfig returns the values New substitutes for zero fields.
func DefaultConfig() Config {
	return Config{
		ErrorThreshold: 0.30,
		MinSamples:     10,
		Window:         time.Minute,
		OpenTimeout:    30 * time.Second,
	}
}

const maxWindowSeconds = 60

type slot struct {
	errors float64
	total  int
}

// window is a ring of one-second slots.
type window struct {
	slots   [maxWindowSeconds]slot
	size    int
	head    int
	at      int64 // unix second of slots[head]
	started bool
}

func newWindow(d time.Duration) window {
	n := int(d / time.Second)
	if n <= 0 || n > maxWindowSeconds {
		n = maxWindowSeconds
	}
	return window{size: n}
}

// advance rotates the ring to sec, zeroing slots that fell out of the window.
func (w *window) advance(sec int64) {
	if !w.started {
		w.at = sec
		w.started = true
		return
	}
	gap := sec - w.at
	if gap <= 0 {
		return
	}
	for i := range min(int(gap), w.size) {
		w.slots[(w.head+1+i)%w.size] = slot{}
	}
	w.head = int((int64(w.head) + gap) % int64(w.size))
	w.at = sec
}

func (w *window) record(weight float64, now time.Time) {
	w.advance(now.Unix())
	w.slots[w.head].total++
	w.slots[w.head].errors += weight
}

func (w *window) rate(now time.Time) (rate float64, samples int) {
	w.advance(now.Unix())
	var errs float64
	for i := range w.size {
		errs += w.slots[i].errors
		samples += w.slots[i].total
	}
	if samples == 0 {
		return 0, 0
	}
	return errs / float64(samples), samples
}

func (w *window) reset() {
	*w = window{size: w.size}
}

// Breaker guards one upstream service.
type Breaker struct {
	mu       sync.Mutex
	cfg      Config
	clock    clock.Clock
	state    State
	window   window
	openedAt time.Time
	probing  bool // a half-open probe is in flight
}

// New creates a breaker. A nil clk uses the wall clock.
func New(cfg Config, clk clock.Clock) *Breaker {
	def := DefaultConfig()
	if cfg.ErrorThreshold <= 0 {
		cfg.ErrorThreshold = def.ErrorThreshold
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = def.MinSamples
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Breaker{cfg: cfg, clock: clk, window: newWindow(cfg.Window)}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow reports whether a call may proceed. Once the open timeout has
// elapsed exactly one probe call is let through.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.clock.Since(b.openedAt) < b.cfg.OpenTimeout {
			return false
		}
		b.state = StateHalfOpen
		b.probing = true
		return true
	default:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	}
}

// Record feeds the outcome of an allowed call into the breaker.
func (b *Breaker) Record(err error) {
	weight := ClassifyError(err)
	now := b.clock.Now()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.window.record(weight, now)

	switch b.state {
	case StateClosed:
		if weight == 0 {
			return
		}
		if rate, n := b.window.rate(now); n >= b.cfg.MinSamples && rate >= b.cfg.ErrorThreshold {
			b.trip(now)
		}
	case StateHalfOpen:
		if weight == 0 {
			b.state = StateClosed
			b.probing = false
			b.window.reset()
			return
		}
		b.trip(now)
	}
}

func (b *Breaker) trip(now time.Time) {
	b.state = StateOpen
	b.openedAt = now
	b.probing = false
}
