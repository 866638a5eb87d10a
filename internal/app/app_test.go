package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/hyperifyio/deepfetch/internal/cache"
	"github.com/hyperifyio/deepfetch/internal/pipeline"
)

func TestNew_MissingCredentialsComesUpDegraded(t *testing.T) {
	a, err := New(context.Background(), Defaults())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()
	st := a.Status()
	if st.LLMInitialized || st.ConversationInitialized || st.SerpAPIKeyPresent || st.GoogleAPIKeyPresent {
		t.Fatalf("expected everything off, got %+v", st)
	}
	if a.Pipeline().Ready() {
		t.Fatalf("pipeline must not be ready without an LLM key")
	}
	if _, err := a.Pipeline().Handle(context.Background(), "q"); err != pipeline.ErrUnavailable {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

// fakeUpstream serves an OpenAI-compatible chat endpoint and one HTML page.
func fakeUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"gemini-1.5-flash","object":"model"}]}`))
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		reply := "no context"
		if n := len(req.Messages); n > 0 && strings.Contains(req.Messages[n-1].Content, "Gophers are rodents") {
			reply = "Gophers are burrowing rodents."
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"index": 0, "message": map[string]string{"role": "assistant", "content": reply}}},
		})
	})
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><nav>Menu</nav><main><p>Gophers are rodents that dig long burrows underground.</p></main></body></html>`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeResults(t *testing.T, urls ...string) string {
	t.Helper()
	entries := make([]map[string]string, 0, len(urls))
	for i, u := range urls {
		entries = append(entries, map[string]string{"title": fmt.Sprintf("r%d", i), "url": u})
	}
	b, _ := json.Marshal(entries)
	p := filepath.Join(t.TempDir(), "results.json")
	if err := os.WriteFile(p, b, 0o600); err != nil {
		t.Fatalf("write results: %v", err)
	}
	return p
}

func TestNew_EndToEndWithFileSearch(t *testing.T) {
	up := fakeUpstream(t)
	cfg := Defaults()
	cfg.SearchProvider = ProviderFile
	cfg.FileSearchPath = writeResults(t, up.URL+"/page", up.URL+"/missing")
	cfg.SerpAPIKey = "unused"
	cfg.LLMAPIKey = "test-key"
	cfg.LLMBaseURL = up.URL + "/v1"
	cfg.CacheDir = t.TempDir()

	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()
	if !a.Status().Healthy() {
		t.Fatalf("expected healthy status, got %+v", a.Status())
	}
	res, err := a.Pipeline().Handle(context.Background(), "what are gophers?")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.Response != "Gophers are burrowing rodents." {
		t.Fatalf("unexpected response %q", res.Response)
	}
	if len(res.Sources) != 2 {
		t.Fatalf("sources should list every search URL, got %v", res.Sources)
	}
	store := &cache.DiskStore{Dir: cfg.CacheDir}
	if _, ok, _ := store.Get(context.Background(), up.URL+"/page"); !ok {
		t.Fatalf("expected extracted page in disk cache")
	}
}

func TestNew_RedisCache(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	cfg := Defaults()
	cfg.RedisAddr = mr.Addr()
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(a.closers) != 1 {
		t.Fatalf("expected redis closer registered, got %d", len(a.closers))
	}
}

func TestNew_UnreachableRedisFallsBack(t *testing.T) {
	cfg := Defaults()
	cfg.RedisAddr = "127.0.0.1:1"
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New should not fail on redis outage: %v", err)
	}
	defer a.Close()
	if len(a.closers) != 0 {
		t.Fatalf("expected no redis closer")
	}
}

func TestNewSearchProvider(t *testing.T) {
	for name, want := range map[string]string{ProviderSerpAPI: "serpapi", ProviderSearxNG: "searxng", ProviderFile: "file"} {
		p, err := NewSearchProvider(Config{SearchProvider: name})
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if p.Name() != want {
			t.Fatalf("%s: got provider %q", name, p.Name())
		}
	}
	if _, err := NewSearchProvider(Config{SearchProvider: "bing"}); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestNew_RespectRobotsSkipsDisallowedPages(t *testing.T) {
	up := fakeUpstream(t)
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /page\n"))
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`<html><body><main><p>Gophers are rodents that dig long burrows underground.</p></main></body></html>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer site.Close()

	cfg := Defaults()
	cfg.SearchProvider = ProviderFile
	cfg.FileSearchPath = writeResults(t, site.URL+"/page")
	cfg.LLMAPIKey = "test-key"
	cfg.LLMBaseURL = up.URL + "/v1"
	cfg.RespectRobots = true

	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()
	res, err := a.Pipeline().Handle(context.Background(), "what are gophers?")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.Response != pipeline.NoInfoMessage {
		t.Fatalf("disallowed page must not contribute, got %q", res.Response)
	}
	if len(res.Sources) != 1 || res.Sources[0] != site.URL+"/page" {
		t.Fatalf("unexpected sources %v", res.Sources)
	}
}

func TestVersion(t *testing.T) {
	old := BuildVersion
	BuildVersion = "1.2.3"
	defer func() { BuildVersion = old }()
	if v := Version(); !strings.HasPrefix(v, "1.2.3 (") {
		t.Fatalf("unexpected version %q", v)
	}
}

func TestNew_LLMKeyFallbackCountsAsPresent(t *testing.T) {
	up := fakeUpstream(t)
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("LLM_API_KEY", "fallback-key")
	cfg, err := LoadConfig(Config{LLMBaseURL: up.URL + "/v1"}, "")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()
	st := a.Status()
	if !st.GoogleAPIKeyPresent || !st.LLMInitialized || !st.ConversationInitialized {
		t.Fatalf("LLM_API_KEY should count as the LLM key, got %+v", st)
	}
}
