package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/deepfetch/internal/app"
	"github.com/hyperifyio/deepfetch/internal/tracer"
)

func main() {
	var (
		configPath  string
		envFile     string
		logJSON     bool
		cfg         app.Config
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "", "Path to YAML or JSON config file")
	flag.StringVar(&envFile, "env", ".env", "Path to dotenv file (missing files are ignored)")
	flag.StringVar(&cfg.Addr, "addr", "", "HTTP listen address (default :5000)")
	flag.StringVar(&cfg.SearchProvider, "search.provider", "", "Search provider: serpapi, searxng or file")
	flag.StringVar(&cfg.SerpAPIURL, "serpapi.url", "", "SerpAPI endpoint override")
	flag.StringVar(&cfg.SearxURL, "searx.url", "", "SearxNG base URL")
	flag.StringVar(&cfg.FileSearchPath, "search.file", "", "Path to JSON file for offline file-based search provider")
	flag.IntVar(&cfg.MaxResults, "max.results", 0, "Search results per query (default 5)")
	flag.StringVar(&cfg.LLMBaseURL, "llm.base", "", "OpenAI-compatible base URL (default Gemini)")
	flag.StringVar(&cfg.LLMModel, "llm.model", "", "Model name (default gemini-1.5-flash)")
	flag.BoolVar(&cfg.AppendSources, "append.sources", false, "Append contributing URLs when the answer lists none")
	flag.IntVar(&cfg.FetchConcurrency, "fetch.concurrency", 0, "Pages fetched in parallel (default 1)")
	flag.BoolVar(&cfg.RespectRobots, "fetch.robots", false, "Skip pages disallowed by robots.txt")
	flag.StringVar(&cfg.CacheDir, "cache.dir", "", "Page cache directory; empty disables the disk cache")
	flag.DurationVar(&cfg.CacheMaxAge, "cache.maxAge", 0, "Max age for cache entries (e.g. 24h); 0 keeps entries")
	flag.BoolVar(&cfg.CacheClear, "cache.clear", false, "Clear cache directory at startup")
	flag.BoolVar(&cfg.CacheStrictPerms, "cache.strictPerms", false, "Restrict cache permissions (0700 dirs, 0600 files)")
	flag.StringVar(&cfg.RedisAddr, "redis.addr", "", "Redis address for a shared page cache")
	flag.IntVar(&cfg.RateLimitPerMin, "rate.perMin", 0, "Per-IP query rate limit per minute; 0 disables")
	flag.StringVar(&cfg.Tracing, "tracing", "", "Tracing exporter: noop or stdout")
	flag.BoolVar(&cfg.Verbose, "v", false, "Verbose logging")
	flag.BoolVar(&logJSON, "log.json", false, "Log JSON lines instead of console output")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println("deepfetch", app.Version())
		return
	}

	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	if !logJSON {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	if err := app.LoadEnvFiles(envFile); err != nil {
		log.Warn().Err(err).Str("file", envFile).Msg("dotenv load failed")
	}
	cfg, err := app.LoadConfig(cfg, configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
}

func run(cfg app.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracer.Setup(ctx, cfg.Tracing, nil)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	srv := a.Server(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return <-errCh
}
