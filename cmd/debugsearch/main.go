package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/deepfetch/internal/app"
	"github.com/hyperifyio/deepfetch/internal/search"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	configPath := flag.String("config", "", "Path to YAML or JSON config file")
	limit := flag.Int("n", search.DefaultLimit, "Number of results")
	flag.Parse()
	q := "What is love?"
	if flag.NArg() > 0 {
		q = flag.Arg(0)
	}

	_ = app.LoadEnvFiles(".env")
	cfg, err := app.LoadConfig(app.Config{}, *configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	prov, err := app.NewSearchProvider(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init search provider")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()
	res, err := prov.Search(ctx, q, *limit)
	if err != nil {
		log.Error().Err(err).Str("provider", prov.Name()).Msg("search failed")
	}
	for i, r := range res {
		fmt.Printf("%d. %s - %s\n", i+1, r.Title, r.URL)
	}
}
