package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/dnscache"

	papertrail "github.com/eugener/papertrail/internal"
	"github.com/eugener/papertrail/internal/app"
	"github.com/eugener/papertrail/internal/circuitbreaker"
	"github.com/eugener/papertrail/internal/config"
	"github.com/eugener/papertrail/internal/llm"
	"github.com/eugener/papertrail/internal/ratelimit"
	"github.com/eugener/papertrail/internal/scholar"
	"github.com/eugener/papertrail/internal/telemetry"
	"github.com/eugener/papertrail/internal/upstream"
)

// env is everything a command needs.
type env struct {
	cfg      *config.Config
	app      *app.App
	stdout   io.Writer
	resolver *dnscache.Resolver   // nil in tests
	llm      papertrail.Completer // nil = no language model configured
	registry *prometheus.Registry // nil = metrics disabled
	metrics  *telemetry.Metrics
}

func run(ctx context.Context, configPath string, args []string) error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}
	slog.SetDefault(newLogger(cfg.Log, os.Stderr))

	rt := newEnv(cfg, os.Stdout)
	return dispatch(ctx, rt, args)
}

// newLogger builds the slog handler selected by cfg.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// newEnv wires the upstream clients and the application context.
func newEnv(cfg *config.Config, stdout io.Writer) *env {
	rt := &env{cfg: cfg, stdout: stdout, resolver: &dnscache.Resolver{}}

	if cfg.Telemetry.Metrics.Enabled {
		rt.registry = prometheus.NewRegistry()
		rt.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		rt.metrics = telemetry.NewMetrics(rt.registry)
	}

	var transport http.RoundTripper = upstream.NewTransport(rt.resolver, true)
	if cfg.Telemetry.Tracing.Enabled {
		transport = telemetry.HTTPTransport(transport)
	}
	scholarHTTP := upstream.NewClient("scholar",
		&http.Client{Transport: transport, Timeout: cfg.Scholar.Timeout}, cfg.Scholar.Timeout, rt.metrics,
		breakerOpts(cfg.Breaker)...)
	llmHTTP := upstream.NewClient("llm",
		&http.Client{Transport: transport, Timeout: cfg.LLM.Timeout}, cfg.LLM.Timeout, rt.metrics,
		breakerOpts(cfg.Breaker)...)

	deps := app.Deps{
		Source:  scholar.New(cfg.Scholar.BaseURL, cfg.Scholar.APIKey, scholarHTTP, ratelimit.New(cfg.Scholar.RPM, nil)),
		Metrics: rt.metrics,
	}
	deps.LLM = newCompleter(cfg.LLM, llmHTTP)
	rt.llm = deps.LLM
	if deps.LLM == nil {
		slog.Debug("llm api key not set, translation and notebooks disabled")
	}
	rt.app = app.New(cfg, deps)
	return rt
}

// newCompleter returns the configured language model client, or nil when
// the hosted API has no key. Self-hosted OpenAI-compatible endpoints need none.
func newCompleter(cfg config.LLMConfig, client *upstream.Client) papertrail.Completer {
	limiter := ratelimit.New(cfg.RPM, nil)
	switch cfg.Provider {
	case "anthropic":
		if cfg.APIKey == "" {
			return nil
		}
		return llm.NewAnthropic(cfg.BaseURL, cfg.APIKey, cfg.Model, client, limiter)
	default:
		if cfg.APIKey == "" && strings.HasPrefix(cfg.BaseURL, "https://api.openai.com") {
			return nil
		}
		return llm.New(cfg.BaseURL, cfg.APIKey, cfg.Model, client, limiter)
	}
}

// breakerOpts returns a fresh breaker option per upstream, or none when disabled.
func breakerOpts(cfg config.BreakerConfig) []upstream.ClientOption {
	if !cfg.Enabled {
		return nil
	}
	return []upstream.ClientOption{upstream.WithBreaker(circuitbreaker.New(circuitbreaker.Config{
		ErrorThreshold: cfg.ErrorThreshold,
		MinSamples:     cfg.MinSamples,
		Window:         cfg.Window,
		OpenTimeout:    cfg.OpenTimeout,
	}, nil))}
}

func (rt *env) printf(format string, args ...any) {
	fmt.Fprintf(rt.stdout, format, args...)
}
