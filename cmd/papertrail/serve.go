package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	papertrail "github.com/eugener/papertrail/internal"
	"github.com/eugener/papertrail/internal/auth"
	"github.com/eugener/papertrail/internal/server"
	"github.com/eugener/papertrail/internal/telemetry"
	"github.com/eugener/papertrail/internal/worker"
)

// readyTimeout bounds the upstream probe behind /readyz.
const readyTimeout = 5 * time.Second

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// readyCheck reports not ready while the language model API is unreachable.
// Completers without a health endpoint are always ready.
func readyCheck(c papertrail.Completer) server.ReadyChecker {
	hc, ok := c.(healthChecker)
	if !ok {
		return nil
	}
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, readyTimeout)
		defer cancel()
		return hc.HealthCheck(ctx)
	}
}

func cmdServe(ctx context.Context, rt *env, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("serve: unexpected arguments %v: %w", args, errUsage)
	}
	cfg := rt.cfg
	slog.Info("starting papertrail", "version", version, "addr", cfg.Server.Addr)

	if cfg.Telemetry.Tracing.Enabled {
		shutdown, err := telemetry.SetupTracing(ctx, cfg.Telemetry.Tracing.Endpoint, version, cfg.Telemetry.Tracing.SampleRate)
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				slog.Warn("tracing shutdown failed", "error", err)
			}
		}()
	}

	deps := server.Deps{
		App:     rt.app,
		Metrics: rt.metrics,
		Admin:   auth.NewTokenAuth(cfg.Server.AdminToken),
		Tracing: cfg.Telemetry.Tracing.Enabled,
	}
	if rt.llm != nil {
		deps.ReadyCheck = readyCheck(rt.llm)
	}
	if rt.registry != nil {
		deps.MetricsHandler = promhttp.HandlerFor(rt.registry, promhttp.HandlerOpts{})
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server.New(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	runner := worker.NewRunner(worker.NewServerWorker(srv, cfg.Server.ShutdownTimeout))
	if rt.resolver != nil {
		runner.Add(worker.NewDNSRefresher(rt.resolver))
	}
	if cfg.Cache.SweepInterval > 0 {
		runner.Add(worker.NewCacheSweeper(rt.app.Store, cfg.Cache.SweepInterval, nil))
	}

	if err := runner.Run(ctx); err != nil {
		return err
	}
	slog.Info("papertrail stopped")
	return nil
}
