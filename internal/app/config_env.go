package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// llmKeyFromEnv prefers GOOGLE_API_KEY and falls back to LLM_API_KEY.
func llmKeyFromEnv() string {
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		return v
	}
	return os.Getenv("LLM_API_KEY")
}

// ApplyEnvToConfig populates unset fields of cfg from environment variables.
// Explicit cfg values take precedence over env.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}
	setStr := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	setStr(&cfg.Addr, os.Getenv("ADDR"))
	setStr(&cfg.SearchProvider, strings.ToLower(strings.TrimSpace(os.Getenv("SEARCH_PROVIDER"))))
	setStr(&cfg.SerpAPIKey, os.Getenv("SERPAPI_API_KEY"))
	setStr(&cfg.SerpAPIURL, os.Getenv("SERPAPI_URL"))
	// Support both SEARX_URL and SEARXNG_URL; prefer SEARX_URL if set
	if cfg.SearxURL == "" {
		v := os.Getenv("SEARX_URL")
		if v == "" {
			v = os.Getenv("SEARXNG_URL")
		}
		cfg.SearxURL = v
	}
	setStr(&cfg.SearxKey, os.Getenv("SEARX_KEY"))
	setStr(&cfg.FileSearchPath, os.Getenv("SEARCH_FILE"))
	setStr(&cfg.LLMBaseURL, os.Getenv("LLM_BASE_URL"))
	setStr(&cfg.LLMModel, os.Getenv("LLM_MODEL"))
	setStr(&cfg.LLMAPIKey, llmKeyFromEnv())
	setStr(&cfg.SynthSystemPrompt, os.Getenv("SYNTH_SYSTEM_PROMPT"))
	setStr(&cfg.CacheDir, os.Getenv("CACHE_DIR"))
	setStr(&cfg.RedisAddr, os.Getenv("REDIS_ADDR"))
	setStr(&cfg.Tracing, strings.ToLower(strings.TrimSpace(os.Getenv("TRACING"))))
	setStr(&cfg.APIURL, os.Getenv("API_URL"))

	setInt := func(dst *int, key string) {
		if *dst != 0 {
			return
		}
		if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil && n > 0 {
			*dst = n
		}
	}
	setInt(&cfg.MaxResults, "MAX_RESULTS")
	setInt(&cfg.FetchConcurrency, "FETCH_CONCURRENCY")
	setInt(&cfg.RateLimitPerMin, "RATE_LIMIT_PER_MIN")

	if cfg.CacheMaxAge == 0 {
		if d, err := time.ParseDuration(os.Getenv("CACHE_MAX_AGE")); err == nil {
			cfg.CacheMaxAge = d
		}
	}

	setBool := func(dst *bool, envKey string) {
		if *dst {
			return
		}
		if v, ok := parseBool(os.Getenv(envKey)); ok {
			*dst = v
		}
	}
	setBool(&cfg.AppendSources, "APPEND_SOURCES")
	setBool(&cfg.Verbose, "VERBOSE")
	setBool(&cfg.CacheClear, "CACHE_CLEAR")
	setBool(&cfg.CacheStrictPerms, "CACHE_STRICT_PERMS")
	setBool(&cfg.RespectRobots, "RESPECT_ROBOTS")
}

func parseBool(s string) (value bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}
