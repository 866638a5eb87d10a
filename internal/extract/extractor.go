package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hyperifyio/deepfetch/internal/fetch"
)

// ErrNoContent is returned when a page yields no usable text after cleaning.
var ErrNoContent = errors.New("no usable content")

// ErrDisallowed is returned when robots.txt forbids fetching a URL.
var ErrDisallowed = errors.New("disallowed by robots.txt")

// Extractor defines a minimal interface for content extraction strategies.
// Implementations can swap readability tactics without changing callers.
type Extractor interface {
	// Extract converts a raw HTML body into a Document. It must be
	// deterministic and free of side effects.
	Extract(body []byte, contentType string) (Document, error)
}

// HeuristicExtractor decodes, cleans, picks the main region with Scorer, and
// normalizes the text.
type HeuristicExtractor struct {
	// Scorer picks among main-content candidates. Nil means TextLengthScorer.
	Scorer Scorer
	// MaxChars caps the output. Zero means DefaultMaxChars.
	MaxChars int
}

func (e HeuristicExtractor) Extract(body []byte, contentType string) (Document, error) {
	text, err := Decode(body, contentType)
	if err != nil {
		return Document{}, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return Document{}, fmt.Errorf("parse html: %w", err)
	}
	max := e.MaxChars
	if max <= 0 {
		max = DefaultMaxChars
	}
	return fromDocument(doc, e.Scorer, max), nil
}

// Fetcher retrieves a page body. *fetch.Client satisfies it.
type Fetcher interface {
	Get(ctx context.Context, url string) (*fetch.Page, error)
}

// RobotsChecker decides whether a URL may be fetched.
type RobotsChecker interface {
	Allowed(ctx context.Context, url string) (bool, error)
}

// Pages turns a URL into cleaned text by fetching and extracting it.
type Pages struct {
	Fetcher   Fetcher
	Extractor Extractor
	// Robots is optional. When set, disallowed URLs are skipped.
	Robots RobotsChecker
}

// Extract fetches url and returns its cleaned text. Every failure, including
// an empty result, is reported as an error so callers can skip the URL.
func (p *Pages) Extract(ctx context.Context, url string) (Document, error) {
	if p == nil || p.Fetcher == nil {
		return Document{}, errors.New("page fetcher not configured")
	}
	if p.Robots != nil {
		ok, err := p.Robots.Allowed(ctx, url)
		if err != nil {
			return Document{}, fmt.Errorf("robots: %w", err)
		}
		if !ok {
			return Document{}, ErrDisallowed
		}
	}
	page, err := p.Fetcher.Get(ctx, url)
	if err != nil {
		return Document{}, fmt.Errorf("fetch: %w", err)
	}
	ex := p.Extractor
	if ex == nil {
		ex = HeuristicExtractor{}
	}
	doc, err := ex.Extract(page.Body, page.ContentType)
	if err != nil {
		return Document{}, fmt.Errorf("extract: %w", err)
	}
	doc.URL = url
	if strings.TrimSpace(doc.Text) == "" {
		return doc, ErrNoContent
	}
	return doc, nil
}
