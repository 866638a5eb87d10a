package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperifyio/deepfetch/internal/aggregate"
	"github.com/hyperifyio/deepfetch/internal/conversation"
	"github.com/hyperifyio/deepfetch/internal/extract"
	"github.com/hyperifyio/deepfetch/internal/fetch"
	"github.com/hyperifyio/deepfetch/internal/metrics"
	"github.com/hyperifyio/deepfetch/internal/search"
	"github.com/hyperifyio/deepfetch/internal/synth"
)

type stubProvider struct {
	urls []string
	err  error
}

func (s stubProvider) Name() string { return "stub" }

func (s stubProvider) Search(ctx context.Context, q string, limit int) ([]search.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]search.Result, 0, len(s.urls))
	for _, u := range s.urls {
		out = append(out, search.Result{URL: u})
	}
	return out, nil
}

type countingAggregator struct {
	calls int
	inner ContentSource
}

func (c *countingAggregator) Aggregate(ctx context.Context, urls []string, q string) aggregate.Content {
	c.calls++
	return c.inner.Aggregate(ctx, urls, q)
}

type fakeChat struct {
	mu    sync.Mutex
	calls int
	reply string
	err   error
}

func (f *fakeChat) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{
		Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: f.reply},
	}}}, nil
}

func pageServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body><nav>Home About</nav><article><p>This is the real content that matters here and is long enough.</p></article></body></html>`))
	})
	mux.HandleFunc("/json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newPipeline(t *testing.T, prov search.Provider, chat *fakeChat) (*Pipeline, *countingAggregator, *conversation.Memory) {
	t.Helper()
	pages := &extract.Pages{Fetcher: &fetch.Client{}}
	agg := &countingAggregator{inner: &aggregate.Aggregator{Pages: pages}}
	mem := conversation.New()
	p := &Pipeline{
		Search:     prov,
		Aggregator: agg,
		Synth:      &synth.Synthesizer{Client: chat, Memory: mem},
		Metrics:    metrics.New(prometheus.NewRegistry()),
	}
	return p, agg, mem
}

func TestHandle_Answered(t *testing.T) {
	srv := pageServer(t)
	chat := &fakeChat{reply: "The answer."}
	urls := []string{srv.URL + "/article", srv.URL + "/json"}
	p, _, mem := newPipeline(t, stubProvider{urls: urls}, chat)

	res, err := p.Handle(context.Background(), "what matters?")
	require.NoError(t, err)
	assert.Equal(t, "The answer.", res.Response)
	// all search URLs, including the one that produced nothing
	assert.Equal(t, urls, res.Sources)
	assert.Equal(t, 1, mem.Len())
}

func TestHandle_ExtractionYieldsNothing(t *testing.T) {
	srv := pageServer(t)
	chat := &fakeChat{reply: "unused"}
	urls := []string{srv.URL + "/json"}
	p, _, mem := newPipeline(t, stubProvider{urls: urls}, chat)

	res, err := p.Handle(context.Background(), "What is 2+2")
	require.NoError(t, err)
	assert.Equal(t, NoInfoMessage, res.Response)
	assert.Equal(t, urls, res.Sources)
	assert.Equal(t, 0, chat.calls)
	assert.Equal(t, 0, mem.Len())
}

func TestHandle_SearchFailure(t *testing.T) {
	chat := &fakeChat{reply: "unused"}
	p, agg, _ := newPipeline(t, stubProvider{err: errors.New("timeout")}, chat)

	res, err := p.Handle(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, NoPagesMessage, res.Response)
	assert.NotNil(t, res.Sources)
	assert.Empty(t, res.Sources)
	assert.Equal(t, 0, agg.calls, "aggregation must not run without search results")
	assert.Equal(t, 0, chat.calls)
}

func TestHandle_NoResults(t *testing.T) {
	chat := &fakeChat{}
	p, agg, _ := newPipeline(t, stubProvider{}, chat)
	res, err := p.Handle(context.Background(), "nothing matches")
	require.NoError(t, err)
	assert.Equal(t, NoPagesMessage, res.Response)
	assert.Equal(t, 0, agg.calls)
}

func TestHandle_ModelErrorApologizes(t *testing.T) {
	srv := pageServer(t)
	chat := &fakeChat{err: errors.New("quota")}
	urls := []string{srv.URL + "/article"}
	p, _, mem := newPipeline(t, stubProvider{urls: urls}, chat)

	res, err := p.Handle(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, ApologyMessage, res.Response)
	assert.Equal(t, urls, res.Sources)
	assert.Equal(t, 0, mem.Len())
}

func TestHandle_Unavailable(t *testing.T) {
	p := &Pipeline{Search: stubProvider{}, Synth: &synth.Synthesizer{}}
	_, err := p.Handle(context.Background(), "q")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, p.Ready())
}

func TestHandle_EmptyQuery(t *testing.T) {
	p, _, _ := newPipeline(t, stubProvider{}, &fakeChat{})
	for _, q := range []string{"", "   "} {
		_, err := p.Handle(context.Background(), q)
		assert.ErrorIs(t, err, ErrEmptyQuery)
	}
}

func TestHandle_ConcurrentQueriesRecordEveryTurn(t *testing.T) {
	srv := pageServer(t)
	chat := &fakeChat{reply: "ok"}
	p, _, mem := newPipeline(t, stubProvider{urls: []string{srv.URL + "/article"}}, chat)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = p.Handle(context.Background(), "q")
		}()
	}
	wg.Wait()
	assert.Equal(t, 8, mem.Len())
}
