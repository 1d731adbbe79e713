package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
)

// Purger removes expired cache entries.
type Purger interface {
	PurgeExpired() int
	Len() int
}

// CacheSweeper periodically drops expired entries so they stop occupying
// LRU slots between reads.
type CacheSweeper struct {
	cache    Purger
	interval time.Duration
	clock    clock.Clock
}

// NewCacheSweeper creates a CacheSweeper. A nil clk uses the wall clock.
func NewCacheSweeper(cache Purger, interval time.Duration, clk clock.Clock) *CacheSweeper {
	if clk == nil {
		clk = clock.New()
	}
	return &CacheSweeper{cache: cache, interval: interval, clock: clk}
}

// Run sweeps every interval until ctx is cancelled.
func (w *CacheSweeper) Run(ctx context.Context) error {
	ticker := w.clock.Ticker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := w.cache.PurgeExpired(); n > 0 {
				slog.LogAttrs(ctx, slog.LevelDebug, "cache sweep",
					slog.Int("purged", n),
					slog.Int("remaining", w.cache.Len()),
				)
			}
		case <-ctx.Done():
			return nil
		}
	}
}
