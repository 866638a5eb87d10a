package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// DefaultSerpAPIURL is the public SerpAPI JSON endpoint.
const DefaultSerpAPIURL = "https://serpapi.com/search.json"

var (
	// ErrMissingKey is returned when no SerpAPI key is configured.
	ErrMissingKey = errors.New("missing serpapi api key")
	// ErrNoOrganicResults is returned when the response lacks organic_results.
	ErrNoOrganicResults = errors.New("serpapi response has no organic_results")
)

// SerpAPI implements Provider against SerpAPI's Google engine. Only organic
// results are read; the locale is pinned to English/US.
type SerpAPI struct {
	BaseURL    string // defaults to DefaultSerpAPIURL
	APIKey     string
	HTTPClient *http.Client
}

func (s *SerpAPI) Name() string { return "serpapi" }

func (s *SerpAPI) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if strings.TrimSpace(s.APIKey) == "" {
		return nil, ErrMissingKey
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	base := s.BaseURL
	if base == "" {
		base = DefaultSerpAPIURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("api_key", s.APIKey)
	q.Set("engine", "google")
	q.Set("num", strconv.Itoa(limit))
	q.Set("hl", "en")
	q.Set("gl", "us")
	u.RawQuery = q.Encode()

	var sr serpResponse
	if err := getJSON(ctx, s.HTTPClient, s.Name(), u.String(), "", &sr); err != nil {
		return nil, err
	}
	if sr.Error != "" {
		return nil, fmt.Errorf("serpapi: %s", sr.Error)
	}
	if sr.OrganicResults == nil {
		return nil, ErrNoOrganicResults
	}
	out := make([]Result, 0, limit)
	for _, r := range *sr.OrganicResults {
		var full bool
		out, full = hit(out, limit, Result{Title: r.Title, URL: r.Link, Snippet: r.Snippet, Source: s.Name()})
		if full {
			break
		}
	}
	return out, nil
}

type serpResponse struct {
	Error string `json:"error"`
	// pointer so a missing field is distinguishable from an empty list
	OrganicResults *[]struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
}
