package worker

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Runner manages a set of workers, cancelling all on first error.
type Runner struct {
	workers []Worker
}

// NewRunner creates a Runner with the given workers.
func NewRunner(workers ...Worker) *Runner {
	return &Runner{workers: workers}
}

// Add registers another worker. It must be called before Run.
func (r *Runner) Add(w Worker) {
	r.workers = append(r.workers, w)
}

// Run starts all workers in parallel and blocks until all finish. The first
// worker error cancels the others and is returned.
func (r *Runner) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, w := range r.workers {
		name := workerName(w)
		slog.Info("worker started", "type", name)
		g.Go(func() error {
			err := w.Run(ctx)
			if err != nil {
				slog.Error("worker failed", "type", name, "error", err)
			}
			return err
		})
	}
	return g.Wait()
}

func workerName(w Worker) string {
	switch w.(type) {
	case *CacheSweeper:
		return "cache_sweeper"
	case *ServerWorker:
		return "http_server"
	case *DNSRefresher:
		return "dns_refresher"
	default:
		return "unknown"
	}
}
