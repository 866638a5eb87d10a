package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultLimit is the number of candidate URLs requested per query.
const DefaultLimit = 5

// Result represents a single search hit from any provider.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Source  string `json:"-"` // provider name for observability
}

// Provider is a minimal interface for search providers.
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
	Name() string
}

// URLs runs the provider and returns the candidate URLs in provider order.
// Duplicates are kept; ranking is left to the provider.
func URLs(ctx context.Context, p Provider, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	results, err := p.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(results))
	for _, r := range results {
		u := strings.TrimSpace(r.URL)
		if u == "" {
			continue
		}
		urls = append(urls, u)
		if len(urls) >= limit {
			break
		}
	}
	return urls, nil
}

// StatusError reports a non-2xx answer from a search backend.
type StatusError struct {
	Provider string
	Code     int
}

func (e *StatusError) Error() string { return fmt.Sprintf("%s status: %d", e.Provider, e.Code) }

// getJSON issues a GET to rawURL and decodes a 2xx JSON body into out.
func getJSON(ctx context.Context, hc *http.Client, provider, rawURL, userAgent string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	if hc == nil {
		hc = &http.Client{Timeout: 20 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Provider: provider, Code: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", provider, err)
	}
	return nil
}

// hit keeps a result with a non-empty URL and reports whether limit is reached.
func hit(out []Result, limit int, r Result) ([]Result, bool) {
	r.URL = strings.TrimSpace(r.URL)
	if r.URL != "" {
		r.Title = strings.TrimSpace(r.Title)
		r.Snippet = strings.TrimSpace(r.Snippet)
		out = append(out, r)
	}
	return out, len(out) >= limit
}
