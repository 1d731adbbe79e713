package worker

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// ServerWorker runs an HTTP server until ctx is cancelled, then shuts it
// down gracefully.
type ServerWorker struct {
	srv             *http.Server
	shutdownTimeout time.Duration
}

// NewServerWorker creates a ServerWorker.
func NewServerWorker(srv *http.Server, shutdownTimeout time.Duration) *ServerWorker {
	return &ServerWorker{srv: srv, shutdownTimeout: shutdownTimeout}
}

// Run serves until ctx is cancelled or the listener fails.
func (w *ServerWorker) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := w.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	slog.Info("papertrail ready", "addr", w.srv.Addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
	defer cancel()
	if err := w.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
