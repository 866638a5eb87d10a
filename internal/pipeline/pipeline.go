package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/deepfetch/internal/aggregate"
	"github.com/hyperifyio/deepfetch/internal/metrics"
	"github.com/hyperifyio/deepfetch/internal/search"
	"github.com/hyperifyio/deepfetch/internal/synth"
	"github.com/hyperifyio/deepfetch/internal/tracer"
)

// User-facing answers for the degraded paths.
const (
	NoPagesMessage     = "I couldn't find relevant web pages for your query using the search service. Please try rephrasing your query."
	NoInfoMessage      = "I found some web pages, but I couldn't extract useful information from them to answer your query."
	UnavailableMessage = "Sorry, the AI assistant is not available right now."
	ApologyMessage     = "Sorry, I encountered an error while processing your request with the AI model. Please try again."
)

var (
	// ErrUnavailable means no model or conversation is configured.
	ErrUnavailable = errors.New("ai service not configured")
	// ErrEmptyQuery means the query was missing or blank.
	ErrEmptyQuery = errors.New("no query provided")
)

// Result is the payload returned to callers.
type Result struct {
	Response string   `json:"response"`
	Sources  []string `json:"sources"`
}

// ContentSource aggregates page text for candidate URLs.
// *aggregate.Aggregator satisfies it.
type ContentSource interface {
	Aggregate(ctx context.Context, urls []string, query string) aggregate.Content
}

// Generator produces the answer. *synth.Synthesizer satisfies it.
type Generator interface {
	Ready() bool
	Generate(ctx context.Context, content, query string, contributing []string) (string, error)
}

// Pipeline runs search, aggregation and generation for one query.
type Pipeline struct {
	Search     search.Provider
	Aggregator ContentSource
	Synth      Generator
	// MaxResults is the number of search results requested.
	MaxResults int
	// Metrics is optional.
	Metrics *metrics.Metrics

	// genMu serializes generation so turns are recorded in request order.
	genMu sync.Mutex
}

// Ready reports whether queries can be answered by the model.
func (p *Pipeline) Ready() bool {
	return p != nil && p.Synth != nil && p.Synth.Ready()
}

// Handle answers query. Only ErrUnavailable and ErrEmptyQuery are returned
// as errors; every other failure becomes a well-formed Result.
func (p *Pipeline) Handle(ctx context.Context, query string) (Result, error) {
	ctx, span := tracer.StartSpan(ctx, "pipeline.handle")
	defer span.End()

	if !p.Ready() {
		p.outcome("unavailable")
		tracer.RecordError(span, ErrUnavailable)
		return Result{}, ErrUnavailable
	}
	if strings.TrimSpace(query) == "" {
		tracer.RecordError(span, ErrEmptyQuery)
		return Result{}, ErrEmptyQuery
	}
	span.SetAttributes(tracer.StringAttr("query", query))
	log.Info().Str("query", query).Msg("received query")

	urls := p.search(ctx, query)
	if len(urls) == 0 {
		p.outcome("no_pages")
		return Result{Response: NoPagesMessage, Sources: []string{}}, nil
	}

	content := p.aggregate(ctx, urls, query)
	if len(content.URLs) == 0 {
		p.outcome("no_info")
		return Result{Response: NoInfoMessage, Sources: urls}, nil
	}

	answer, err := p.generate(ctx, content, query)
	switch {
	case errors.Is(err, synth.ErrNotConfigured):
		p.outcome("unavailable")
		answer = UnavailableMessage
	case err != nil:
		log.Error().Err(err).Str("query", query).Str("stage", "generate").Msg("model call failed")
		tracer.RecordError(span, err)
		p.outcome("model_error")
		answer = ApologyMessage
	default:
		tracer.SetOK(span)
		p.outcome("answered")
	}
	// Sources lists every search URL, not only the contributing ones.
	return Result{Response: answer, Sources: urls}, nil
}

func (p *Pipeline) search(ctx context.Context, query string) []string {
	ctx, span := tracer.StartSpan(ctx, "pipeline.search")
	defer span.End()
	defer p.observe("search", time.Now())
	if p.Search == nil {
		log.Warn().Str("stage", "search").Msg("no search provider configured")
		return nil
	}
	urls, err := search.URLs(ctx, p.Search, query, p.MaxResults)
	if err != nil {
		log.Warn().Err(err).Str("provider", p.Search.Name()).Str("query", query).Str("stage", "search").Msg("search failed")
		tracer.RecordError(span, err)
		return nil
	}
	span.SetAttributes(tracer.IntAttr("results", len(urls)))
	log.Info().Int("results", len(urls)).Str("provider", p.Search.Name()).Msg("search complete")
	return urls
}

func (p *Pipeline) aggregate(ctx context.Context, urls []string, query string) aggregate.Content {
	ctx, span := tracer.StartSpan(ctx, "pipeline.aggregate")
	defer span.End()
	defer p.observe("aggregate", time.Now())
	if p.Aggregator == nil {
		return aggregate.Content{Text: aggregate.NoContentMessage, URLs: []string{}}
	}
	content := p.Aggregator.Aggregate(ctx, urls, query)
	if p.Metrics != nil {
		for _, at := range content.Attempts {
			status := "ok"
			switch {
			case at.Err != nil:
				status = "failed"
			case at.Cached:
				status = "cached"
			}
			p.Metrics.PagesTotal.WithLabelValues(status).Inc()
		}
	}
	span.SetAttributes(tracer.IntAttr("contributing", len(content.URLs)), tracer.IntAttr("chars", len(content.Text)))
	return content
}

func (p *Pipeline) generate(ctx context.Context, content aggregate.Content, query string) (string, error) {
	ctx, span := tracer.StartSpan(ctx, "pipeline.generate")
	defer span.End()
	p.genMu.Lock()
	defer p.genMu.Unlock()
	defer p.observe("generate", time.Now())
	answer, err := p.Synth.Generate(ctx, content.Text, query, content.URLs)
	if err != nil {
		tracer.RecordError(span, err)
	}
	return answer, err
}

func (p *Pipeline) outcome(name string) {
	if p.Metrics != nil {
		p.Metrics.QueriesTotal.WithLabelValues(name).Inc()
	}
}

func (p *Pipeline) observe(stage string, start time.Time) {
	if p.Metrics != nil {
		p.Metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}
