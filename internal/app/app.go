package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/deepfetch/internal/aggregate"
	"github.com/hyperifyio/deepfetch/internal/cache"
	"github.com/hyperifyio/deepfetch/internal/conversation"
	"github.com/hyperifyio/deepfetch/internal/extract"
	"github.com/hyperifyio/deepfetch/internal/fetch"
	"github.com/hyperifyio/deepfetch/internal/llm"
	"github.com/hyperifyio/deepfetch/internal/metrics"
	"github.com/hyperifyio/deepfetch/internal/pipeline"
	"github.com/hyperifyio/deepfetch/internal/robots"
	"github.com/hyperifyio/deepfetch/internal/search"
	"github.com/hyperifyio/deepfetch/internal/server"
	"github.com/hyperifyio/deepfetch/internal/synth"
)

// App wires configuration into a ready-to-serve pipeline.
type App struct {
	cfg      Config
	pipeline *pipeline.Pipeline
	status   server.Status
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	closers  []func() error
}

// New builds every component. Missing credentials never fail startup; the
// affected component stays nil and Status reports it.
func New(ctx context.Context, cfg Config) (*App, error) {
	a := &App{cfg: cfg, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(a.registry)

	a.status.SerpAPIKeyPresent = strings.TrimSpace(cfg.SerpAPIKey) != ""
	a.status.GoogleAPIKeyPresent = strings.TrimSpace(cfg.LLMAPIKey) != ""
	if !a.status.SerpAPIKeyPresent {
		log.Warn().Msg("SERPAPI_API_KEY not found in environment variables")
	}
	if !a.status.GoogleAPIKeyPresent {
		log.Warn().Msg("LLM API key not found (set GOOGLE_API_KEY or LLM_API_KEY)")
	}

	provider, err := NewSearchProvider(cfg)
	if err != nil {
		return nil, err
	}

	store := a.newPageCache(ctx)

	fetcher := &fetch.Client{
		HTTPClient:        newHTTPClient(0),
		PerRequestTimeout: cfg.FetchTimeout,
	}
	pages := &extract.Pages{Fetcher: fetcher, Extractor: extract.HeuristicExtractor{}}
	if cfg.RespectRobots {
		pages.Robots = &robots.Checker{HTTPClient: newHTTPClient(10 * time.Second), UserAgent: fetch.DefaultUserAgent}
	}
	agg := &aggregate.Aggregator{
		Pages:       pages,
		Cache:       store,
		Concurrency: cfg.FetchConcurrency,
	}

	syn := &synth.Synthesizer{
		Model:         cfg.LLMModel,
		SystemPrompt:  cfg.SynthSystemPrompt,
		AppendSources: cfg.AppendSources,
	}
	if a.status.GoogleAPIKeyPresent {
		chat := llm.NewOpenAIProvider(cfg.LLMBaseURL, cfg.LLMAPIKey, newHTTPClient(2*time.Minute))
		syn.Client = llm.NewBreaker(chat, llm.BreakerConfig{})
		syn.Memory = conversation.New()
		a.status.LLMInitialized = true
		a.status.ConversationInitialized = true
		model := cfg.LLMModel
		if model == "" {
			model = llm.DefaultModel
		}
		log.Info().Str("model", model).Msg("LLM initialized")
		preflight(ctx, chat)
	} else {
		log.Warn().Msg("LLM cannot be initialized because no API key is configured")
	}

	a.pipeline = &pipeline.Pipeline{
		Search:     provider,
		Aggregator: agg,
		Synth:      syn,
		MaxResults: cfg.MaxResults,
		Metrics:    a.metrics,
	}

	if a.status.Healthy() {
		log.Info().Str("provider", provider.Name()).Str("api_url", cfg.APIURL).Str("version", Version()).Msg("configuration ok")
	} else {
		log.Warn().Str("provider", provider.Name()).Msg("configuration incomplete; service is degraded")
	}
	return a, nil
}

// preflight lists models to surface bad credentials early. It only logs.
func preflight(ctx context.Context, lister llm.ModelLister) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	models, err := lister.ListModels(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("LLM model list failed; continuing")
		return
	}
	log.Info().Int("count", len(models.Models)).Msg("LLM models available")
}

// NewSearchProvider builds the provider selected by cfg.SearchProvider.
func NewSearchProvider(cfg Config) (search.Provider, error) {
	client := newHTTPClient(20 * time.Second)
	switch cfg.SearchProvider {
	case ProviderSerpAPI, "":
		return &search.SerpAPI{BaseURL: cfg.SerpAPIURL, APIKey: cfg.SerpAPIKey, HTTPClient: client}, nil
	case ProviderSearxNG:
		return &search.SearxNG{BaseURL: cfg.SearxURL, APIKey: cfg.SearxKey, HTTPClient: client, UserAgent: fetch.DefaultUserAgent}, nil
	case ProviderFile:
		return &search.FileProvider{Path: cfg.FileSearchPath}, nil
	default:
		return nil, fmt.Errorf("unknown search provider %q", cfg.SearchProvider)
	}
}

// newPageCache returns the configured page cache, or nil when caching is off.
// An unreachable Redis falls back to the disk cache.
func (a *App) newPageCache(ctx context.Context) cache.Store {
	cfg := a.cfg
	if cfg.RedisAddr != "" {
		rs := cache.NewRedisStore(cfg.RedisAddr, cfg.CacheMaxAge)
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rs.Ping(pctx)
		cancel()
		if err == nil {
			a.closers = append(a.closers, rs.Close)
			log.Info().Str("addr", cfg.RedisAddr).Msg("page cache: redis")
			return rs
		}
		_ = rs.Close()
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable; falling back")
	}
	if cfg.CacheDir == "" {
		return nil
	}
	if cfg.CacheClear {
		if err := cache.ClearDir(cfg.CacheDir); err != nil {
			log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache clear failed")
		}
	}
	if cfg.CacheMaxAge > 0 {
		if n, err := cache.PurgeByAge(cfg.CacheDir, cfg.CacheMaxAge); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Warn().Err(err).Msg("cache purge failed")
		} else if n > 0 {
			log.Info().Int("removed", n).Msg("purged stale cache entries")
		}
	}
	log.Info().Str("dir", cfg.CacheDir).Msg("page cache: disk")
	return &cache.DiskStore{Dir: cfg.CacheDir, MaxAge: cfg.CacheMaxAge, StrictPerms: cfg.CacheStrictPerms}
}

// Pipeline returns the query pipeline.
func (a *App) Pipeline() *pipeline.Pipeline { return a.pipeline }

// Status reports which components came up.
func (a *App) Status() server.Status { return a.status }

// Server builds the HTTP server for the app.
func (a *App) Server(ctx context.Context) *server.Server {
	return server.New(ctx, a.pipeline, a.status, server.Options{
		Addr:            a.cfg.Addr,
		RateLimitPerMin: a.cfg.RateLimitPerMin,
		Metrics:         a.metrics,
		Gatherer:        a.registry,
	})
}

// Close releases connections held by the app.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
