package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig represents the single-file configuration schema.
type FileConfig struct {
	Addr string `yaml:"addr" json:"addr"`

	Search struct {
		Provider   string `yaml:"provider" json:"provider"`
		MaxResults int    `yaml:"maxResults" json:"maxResults"`
		File       string `yaml:"file" json:"file"`
	} `yaml:"search" json:"search"`

	SerpAPI struct {
		Key string `yaml:"key" json:"key"`
		URL string `yaml:"url" json:"url"`
	} `yaml:"serpapi" json:"serpapi"`

	Searx struct {
		URL string `yaml:"url" json:"url"`
		Key string `yaml:"key" json:"key"`
	} `yaml:"searx" json:"searx"`

	LLM struct {
		BaseURL       string `yaml:"base" json:"base"`
		Model         string `yaml:"model" json:"model"`
		APIKey        string `yaml:"key" json:"key"`
		SystemPrompt  string `yaml:"systemPrompt" json:"systemPrompt"`
		AppendSources bool   `yaml:"appendSources" json:"appendSources"`
	} `yaml:"llm" json:"llm"`

	Fetch struct {
		Concurrency int           `yaml:"concurrency" json:"concurrency"`
		Timeout     time.Duration `yaml:"timeout" json:"timeout"`
		Robots      bool          `yaml:"robots" json:"robots"`
	} `yaml:"fetch" json:"fetch"`

	Cache struct {
		Dir         string        `yaml:"dir" json:"dir"`
		MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
		Clear       bool          `yaml:"clear" json:"clear"`
		StrictPerms bool          `yaml:"strictPerms" json:"strictPerms"`
		RedisAddr   string        `yaml:"redis" json:"redis"`
	} `yaml:"cache" json:"cache"`

	RateLimitPerMin int    `yaml:"rateLimitPerMin" json:"rateLimitPerMin"`
	APIURL          string `yaml:"apiURL" json:"apiURL"`
	Tracing         string `yaml:"tracing" json:"tracing"`
	Verbose         bool   `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from FileConfig into cfg for any fields that
// are currently unset/zero in cfg.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	str := func(dst *string, v string) {
		if *dst == "" && v != "" {
			*dst = v
		}
	}
	num := func(dst *int, v int) {
		if *dst == 0 && v > 0 {
			*dst = v
		}
	}
	flag := func(dst *bool, v bool) {
		if !*dst && v {
			*dst = true
		}
	}
	str(&cfg.Addr, fc.Addr)
	str(&cfg.SearchProvider, strings.ToLower(fc.Search.Provider))
	num(&cfg.MaxResults, fc.Search.MaxResults)
	str(&cfg.FileSearchPath, fc.Search.File)
	str(&cfg.SerpAPIKey, fc.SerpAPI.Key)
	str(&cfg.SerpAPIURL, fc.SerpAPI.URL)
	str(&cfg.SearxURL, fc.Searx.URL)
	str(&cfg.SearxKey, fc.Searx.Key)
	str(&cfg.LLMBaseURL, fc.LLM.BaseURL)
	str(&cfg.LLMModel, fc.LLM.Model)
	str(&cfg.LLMAPIKey, fc.LLM.APIKey)
	str(&cfg.SynthSystemPrompt, fc.LLM.SystemPrompt)
	flag(&cfg.AppendSources, fc.LLM.AppendSources)
	num(&cfg.FetchConcurrency, fc.Fetch.Concurrency)
	if cfg.FetchTimeout == 0 && fc.Fetch.Timeout > 0 {
		cfg.FetchTimeout = fc.Fetch.Timeout
	}
	flag(&cfg.RespectRobots, fc.Fetch.Robots)
	str(&cfg.CacheDir, fc.Cache.Dir)
	if cfg.CacheMaxAge == 0 && fc.Cache.MaxAge > 0 {
		cfg.CacheMaxAge = fc.Cache.MaxAge
	}
	flag(&cfg.CacheClear, fc.Cache.Clear)
	flag(&cfg.CacheStrictPerms, fc.Cache.StrictPerms)
	str(&cfg.RedisAddr, fc.Cache.RedisAddr)
	num(&cfg.RateLimitPerMin, fc.RateLimitPerMin)
	str(&cfg.APIURL, fc.APIURL)
	str(&cfg.Tracing, strings.ToLower(fc.Tracing))
	flag(&cfg.Verbose, fc.Verbose)
}

// ValidateConfig rejects settings that cannot work. Missing credentials are
// not errors; the service starts degraded instead.
func ValidateConfig(cfg Config) error {
	switch cfg.SearchProvider {
	case ProviderSerpAPI, ProviderSearxNG, ProviderFile:
	default:
		return fmt.Errorf("config: unknown search provider %q", cfg.SearchProvider)
	}
	if cfg.SearchProvider == ProviderFile && strings.TrimSpace(cfg.FileSearchPath) == "" {
		return errors.New("config: search.file is required for the file provider")
	}
	if cfg.SearchProvider == ProviderSearxNG && strings.TrimSpace(cfg.SearxURL) == "" {
		return errors.New("config: searx.url is required for the searxng provider")
	}
	if cfg.MaxResults < 0 || cfg.FetchConcurrency < 0 || cfg.RateLimitPerMin < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	switch cfg.Tracing {
	case "", "noop", "stdout":
	default:
		return fmt.Errorf("config: unknown tracing exporter %q", cfg.Tracing)
	}
	return nil
}

// LoadConfig layers cfg (already holding flag values) over env, file and
// defaults, highest first, and validates the result. An empty path skips the
// file layer.
func LoadConfig(cfg Config, path string) (Config, error) {
	ApplyEnvToConfig(&cfg)
	if strings.TrimSpace(path) != "" {
		fc, err := LoadConfigFile(path)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		ApplyFileConfig(&cfg, fc)
	}
	applyDefaults(&cfg)
	if err := ValidateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
