// Package app wires the response cache into the papertrail tool services.
package app

import (
	"time"

	"github.com/benbjohnson/clock"

	papertrail "github.com/eugener/papertrail/internal"
	"github.com/eugener/papertrail/internal/cache"
	"github.com/eugener/papertrail/internal/config"
	"github.com/eugener/papertrail/internal/telemetry"
)

// Cache key prefixes, one per tool operation.
const (
	PrefixSearch     = "search"
	PrefixPaper      = "paper"
	PrefixCitations  = "citations"
	PrefixReferences = "references"
	PrefixGraph      = "graph"
	PrefixTranslate  = "translate"
	PrefixNotebook   = "notebook"
)

// Deps holds the external collaborators of an App.
type Deps struct {
	Source  papertrail.PaperSource
	LLM     papertrail.Completer // nil = translation and notebooks unavailable
	Metrics *telemetry.Metrics   // nil = no metrics
	Clock   clock.Clock          // nil = wall clock
}

// App is the application context. It owns the single response cache shared
// by every service.
type App struct {
	Config  *config.Config
	Store   *cache.Store
	Fetcher *cache.Fetcher

	Papers       *PaperService
	Translations *TranslateService
	Notebooks    *NotebookService
	Reports      *ReportService
}

// New builds the cache from cfg.Cache and the services on top of it.
func New(cfg *config.Config, deps Deps) *App {
	clk := deps.Clock
	if clk == nil {
		clk = clock.New()
	}

	storeOpts := []cache.Option{
		cache.WithMaxSize(cfg.Cache.MaxSize),
		cache.WithDefaultTTL(cfg.Cache.DefaultTTL),
		cache.WithClock(clk),
	}
	var fetchOpts []cache.FetcherOption
	if deps.Metrics != nil {
		storeOpts = append(storeOpts, cache.WithMetrics(deps.Metrics))
		fetchOpts = append(fetchOpts, cache.WithFetchMetrics(deps.Metrics))
	}
	if cfg.Cache.Coalesce {
		fetchOpts = append(fetchOpts, cache.WithCoalescing())
	}

	store := cache.New(storeOpts...)
	fetcher := cache.NewFetcher(store, fetchOpts...)
	ttl := ttlFunc(cfg.Cache.TTLs)

	papers := NewPaperService(deps.Source, fetcher, ttl)
	translations := NewTranslateService(deps.LLM, fetcher, ttl, clk, cfg.LLM.MaxChunkTokens)
	return &App{
		Config:       cfg,
		Store:        store,
		Fetcher:      fetcher,
		Papers:       papers,
		Translations: translations,
		Notebooks:    NewNotebookService(papers, deps.LLM, fetcher, ttl),
		Reports:      NewReportService(papers, translations),
	}
}

// TTLFunc returns the cache TTL for a key prefix; 0 selects the store default.
type TTLFunc func(prefix string) time.Duration

func ttlFunc(ttls map[string]time.Duration) TTLFunc {
	return func(prefix string) time.Duration { return ttls[prefix] }
}
