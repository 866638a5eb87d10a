package app

import "time"

// Search provider names accepted by Config.SearchProvider.
const (
	ProviderSerpAPI = "serpapi"
	ProviderSearxNG = "searxng"
	ProviderFile    = "file"
)

// Config holds runtime configuration for the service.
type Config struct {
	Addr string

	// Search
	SearchProvider string
	SerpAPIKey     string
	SerpAPIURL     string
	SearxURL       string
	SearxKey       string
	FileSearchPath string
	MaxResults     int

	// LLM
	LLMBaseURL        string
	LLMModel          string
	LLMAPIKey         string
	SynthSystemPrompt string
	AppendSources     bool

	// Fetching
	FetchConcurrency int
	FetchTimeout     time.Duration
	RespectRobots    bool

	// Page cache; RedisAddr takes precedence over CacheDir.
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheClear       bool
	CacheStrictPerms bool
	RedisAddr        string

	// HTTP surface
	RateLimitPerMin int
	// APIURL is where the chat UI reaches this service. Only logged.
	APIURL string

	// Observability
	Tracing string
	Verbose bool
	LogJSON bool
}

// Defaults returns a Config with every default filled in.
func Defaults() Config {
	return Config{
		Addr:             ":5000",
		SearchProvider:   ProviderSerpAPI,
		MaxResults:       5,
		FetchConcurrency: 1,
		FetchTimeout:     15 * time.Second,
		Tracing:          "noop",
		APIURL:           "http://localhost:5000/api/query",
	}
}

// applyDefaults fills zero fields from Defaults.
func applyDefaults(cfg *Config) {
	d := Defaults()
	if cfg.Addr == "" {
		cfg.Addr = d.Addr
	}
	if cfg.SearchProvider == "" {
		cfg.SearchProvider = d.SearchProvider
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = d.MaxResults
	}
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = d.FetchConcurrency
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = d.FetchTimeout
	}
	if cfg.Tracing == "" {
		cfg.Tracing = d.Tracing
	}
	if cfg.APIURL == "" {
		cfg.APIURL = d.APIURL
	}
}
