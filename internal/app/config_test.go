package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"ADDR", "SEARCH_PROVIDER", "SERPAPI_API_KEY", "SERPAPI_URL", "SEARX_URL", "SEARXNG_URL", "SEARX_KEY",
		"SEARCH_FILE", "LLM_BASE_URL", "LLM_MODEL", "GOOGLE_API_KEY", "LLM_API_KEY", "SYNTH_SYSTEM_PROMPT", "CACHE_DIR",
		"REDIS_ADDR", "TRACING", "API_URL", "MAX_RESULTS", "FETCH_CONCURRENCY", "RATE_LIMIT_PER_MIN", "CACHE_MAX_AGE",
		"APPEND_SOURCES", "VERBOSE", "CACHE_CLEAR", "CACHE_STRICT_PERMS", "RESPECT_ROBOTS"} {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadConfig(Config{}, "")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Addr != ":5000" || cfg.SearchProvider != ProviderSerpAPI || cfg.MaxResults != 5 || cfg.FetchTimeout != 15*time.Second {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadConfig_Precedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "deepfetch.yaml")
	yaml := "addr: \":6000\"\nsearch:\n  maxResults: 3\nllm:\n  model: from-file\n  base: http://file.example/v1\ncache:\n  maxAge: 1h\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("LLM_MODEL", "from-env")

	cfg, err := LoadConfig(Config{Addr: ":7000"}, path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Addr != ":7000" {
		t.Fatalf("flag should win: %q", cfg.Addr)
	}
	if cfg.LLMModel != "from-env" {
		t.Fatalf("env should beat file: %q", cfg.LLMModel)
	}
	if cfg.LLMBaseURL != "http://file.example/v1" || cfg.MaxResults != 3 || cfg.CacheMaxAge != time.Hour {
		t.Fatalf("file values missing: %+v", cfg)
	}
}

func TestLoadConfigFile_JSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.json")
	if err := os.WriteFile(path, []byte(`{"search":{"provider":"file","file":"r.json"},"rateLimitPerMin":30}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	fc, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	var cfg Config
	ApplyFileConfig(&cfg, fc)
	if cfg.SearchProvider != ProviderFile || cfg.FileSearchPath != "r.json" || cfg.RateLimitPerMin != 30 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestValidateConfig(t *testing.T) {
	ok := Defaults()
	if err := ValidateConfig(ok); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	bad := []Config{
		{SearchProvider: "bing"},
		{SearchProvider: ProviderFile},
		{SearchProvider: ProviderSearxNG},
		{SearchProvider: ProviderSerpAPI, MaxResults: -1},
		{SearchProvider: ProviderSerpAPI, Tracing: "jaeger"},
	}
	for i, c := range bad {
		if err := ValidateConfig(c); err == nil {
			t.Fatalf("case %d: expected validation error for %+v", i, c)
		}
	}
}
