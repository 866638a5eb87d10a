package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker/v2"
)

const (
	defaultMaxFailures uint32 = 5
	defaultOpenTimeout        = 30 * time.Second
	defaultInterval           = 60 * time.Second
)

// BreakerConfig tunes Breaker. Zero fields use the defaults: 5 consecutive
// failures open the circuit for 30s.
type BreakerConfig struct {
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// Breaker wraps a Client so repeated failures fail fast instead of waiting
// on a dead backend.
type Breaker struct {
	inner Client
	cb    *gobreaker.CircuitBreaker[openai.ChatCompletionResponse]
}

// NewBreaker wraps inner with a circuit breaker.
func NewBreaker(inner Client, cfg BreakerConfig) *Breaker {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultOpenTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultInterval
	}
	cb := gobreaker.NewCircuitBreaker[openai.ChatCompletionResponse](gobreaker.Settings{
		Name:        "llm",
		MaxRequests: 1,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})
	return &Breaker{inner: inner, cb: cb}
}

func (b *Breaker) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	resp, err := b.cb.Execute(func() (openai.ChatCompletionResponse, error) {
		return b.inner.CreateChatCompletion(ctx, request)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return resp, fmt.Errorf("llm circuit open: %w", err)
	}
	return resp, err
}

// State returns the current circuit state.
func (b *Breaker) State() gobreaker.State { return b.cb.State() }

var _ Client = (*Breaker)(nil)
