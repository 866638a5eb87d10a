package search

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

// SearxNG queries a SearxNG instance's JSON API. It is an alternative to
// SerpAPI for self-hosted setups.
type SearxNG struct {
	BaseURL    string
	APIKey     string // sent as apikey when set
	HTTPClient *http.Client
	UserAgent  string
}

func (s *SearxNG) Name() string { return "searxng" }

func (s *SearxNG) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if s.BaseURL == "" {
		return nil, errors.New("missing searxng base url")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(u.Path, "/search") {
		u.Path = strings.TrimRight(u.Path, "/") + "/search"
	}
	u.RawQuery = url.Values{
		"q":          {query},
		"format":     {"json"},
		"language":   {"en-US"},
		"safesearch": {"1"},
		"categories": {"general"},
	}.Encode()
	if s.APIKey != "" {
		u.RawQuery += "&apikey=" + url.QueryEscape(s.APIKey)
	}

	var body struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := getJSON(ctx, s.HTTPClient, s.Name(), u.String(), s.UserAgent, &body); err != nil {
		return nil, err
	}
	out := make([]Result, 0, limit)
	for _, r := range body.Results {
		var full bool
		out, full = hit(out, limit, Result{Title: r.Title, URL: r.URL, Snippet: r.Content, Source: s.Name()})
		if full {
			break
		}
	}
	return out, nil
}
