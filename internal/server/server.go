package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/deepfetch/internal/metrics"
	"github.com/hyperifyio/deepfetch/internal/pipeline"
)

// Querier answers queries. *pipeline.Pipeline satisfies it.
type Querier interface {
	Ready() bool
	Handle(ctx context.Context, query string) (pipeline.Result, error)
}

// Status is the startup state reported by the health endpoint.
type Status struct {
	LLMInitialized          bool `json:"llm_initialized"`
	ConversationInitialized bool `json:"conversation_initialized"`
	SerpAPIKeyPresent       bool `json:"serpapi_key_present"`
	// GoogleAPIKeyPresent reports a configured LLM key from any source:
	// GOOGLE_API_KEY, LLM_API_KEY, -config file or flags.
	GoogleAPIKeyPresent     bool `json:"google_api_key_present"`
}

// Healthy reports whether every component is available.
func (s Status) Healthy() bool {
	return s.LLMInitialized && s.ConversationInitialized && s.SerpAPIKeyPresent && s.GoogleAPIKeyPresent
}

// Options configures the HTTP server.
type Options struct {
	Addr string
	// RateLimitPerMin bounds /api/query per client IP. Zero disables it.
	RateLimitPerMin int
	// RateLimitBurst defaults to RateLimitPerMin/6, at least 1.
	RateLimitBurst int
	// Metrics is optional; when set requests are counted.
	Metrics *metrics.Metrics
	// Gatherer backs /metrics. Nil uses the default registry.
	Gatherer prometheus.Gatherer
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	querier    Querier
	status     Status
	opts       Options
	router     http.Handler
	httpServer *http.Server
}

// New builds the server. ctx bounds background work such as rate limiter
// cleanup.
func New(ctx context.Context, q Querier, status Status, opts Options) *Server {
	s := &Server{querier: q, status: status, opts: opts}
	s.router = s.setupRouter(ctx)
	addr := opts.Addr
	if addr == "" {
		addr = ":5000"
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// A query fetches several pages and waits on the model.
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves until Shutdown is called. It returns nil after a clean
// shutdown.
func (s *Server) Start() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
