package aggregate

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hyperifyio/deepfetch/internal/cache"
	"github.com/hyperifyio/deepfetch/internal/extract"
)

const (
	// DefaultMaxCombinedChars caps the combined context handed to the model.
	DefaultMaxCombinedChars = 28_000
	// TruncationMarker is appended when the combined context exceeds its cap.
	TruncationMarker = "...[Combined Content truncated due to length]"
	// NoContentMessage is the combined text when no page contributed.
	NoContentMessage = "No relevant content found from the search results."
)

// PageSource turns a URL into cleaned page text. *extract.Pages satisfies it.
type PageSource interface {
	Extract(ctx context.Context, url string) (extract.Document, error)
}

// Attempt records the outcome for one candidate URL.
type Attempt struct {
	URL    string
	Chars  int
	Cached bool
	Err    error
}

// Content is the aggregated context for one query.
type Content struct {
	// Text is the combined context or NoContentMessage.
	Text string
	// URLs lists contributing URLs in candidate order. Never nil.
	URLs []string
	// Attempts has one entry per candidate, in candidate order.
	Attempts []Attempt
}

// Aggregator fetches candidates and combines their text.
type Aggregator struct {
	Pages PageSource
	// Cache, when set, serves and stores cleaned page text by URL.
	Cache cache.Store
	// MaxCombinedChars caps Text. Zero means DefaultMaxCombinedChars.
	MaxCombinedChars int
	// Concurrency bounds parallel fetches. Values below 2 run sequentially.
	Concurrency int
}

// Aggregate fetches every URL and joins the texts that succeeded in the
// order the URLs were given. query is currently unused.
func (a *Aggregator) Aggregate(ctx context.Context, urls []string, query string) Content {
	attempts := make([]Attempt, len(urls))
	texts := make([]string, len(urls))

	limit := a.Concurrency
	if limit < 1 {
		limit = 1
	}
	g := new(errgroup.Group)
	g.SetLimit(limit)
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			texts[i], attempts[i] = a.one(ctx, u)
			return nil
		})
	}
	_ = g.Wait()

	var sb strings.Builder
	contributing := make([]string, 0, len(urls))
	for i, at := range attempts {
		if at.Err != nil || texts[i] == "" {
			continue
		}
		contributing = append(contributing, at.URL)
		sb.WriteString("Source URL: ")
		sb.WriteString(at.URL)
		sb.WriteString("\n\n")
		sb.WriteString(texts[i])
		sb.WriteString("\n\n---\n\n")
	}
	log.Info().Int("processed", len(contributing)).Int("total", len(urls)).Msgf("processed %d/%d URLs", len(contributing), len(urls))

	if len(contributing) == 0 {
		return Content{Text: NoContentMessage, URLs: contributing, Attempts: attempts}
	}
	max := a.MaxCombinedChars
	if max <= 0 {
		max = DefaultMaxCombinedChars
	}
	combined := sb.String()
	if truncated := extract.Truncate(combined, max, TruncationMarker); truncated != combined {
		log.Warn().Int("max_chars", max).Msg("combined content truncated")
		combined = truncated
	}
	return Content{Text: combined, URLs: contributing, Attempts: attempts}
}

func (a *Aggregator) one(ctx context.Context, url string) (string, Attempt) {
	at := Attempt{URL: url}
	if a.Cache != nil {
		text, ok, err := a.Cache.Get(ctx, url)
		if err != nil {
			log.Debug().Err(err).Str("url", url).Msg("page cache read failed")
		}
		if ok && text != "" {
			at.Cached = true
			at.Chars = len([]rune(text))
			return text, at
		}
	}
	if a.Pages == nil {
		at.Err = extract.ErrNoContent
		return "", at
	}
	doc, err := a.Pages.Extract(ctx, url)
	if err != nil {
		log.Warn().Err(err).Str("url", url).Str("stage", "extract").Msg("skipping page")
		at.Err = err
		return "", at
	}
	at.Chars = len([]rune(doc.Text))
	if a.Cache != nil {
		if err := a.Cache.Set(ctx, url, doc.Text); err != nil {
			log.Debug().Err(err).Str("url", url).Msg("page cache write failed")
		}
	}
	return doc.Text, at
}
