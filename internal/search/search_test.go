package search

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type staticProvider struct {
	results []Result
	err     error
	limit   int
}

func (s *staticProvider) Name() string { return "static" }

func (s *staticProvider) Search(_ context.Context, _ string, limit int) ([]Result, error) {
	s.limit = limit
	return s.results, s.err
}

func TestURLs_KeepsOrderAndDuplicates(t *testing.T) {
	p := &staticProvider{results: []Result{
		{URL: "https://b.test"},
		{URL: " "},
		{URL: "https://a.test"},
		{URL: "https://b.test"},
	}}
	got, err := URLs(context.Background(), p, "q", 0)
	if err != nil {
		t.Fatalf("urls: %v", err)
	}
	want := []string{"https://b.test", "https://a.test", "https://b.test"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if p.limit != DefaultLimit {
		t.Fatalf("limit=%d, want default %d", p.limit, DefaultLimit)
	}
}

func TestURLs_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	if _, err := URLs(context.Background(), &staticProvider{err: boom}, "q", 3); !errors.Is(err, boom) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestFileProvider_ReturnsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	data := `[{"title":"One","url":"https://one.test"},{"title":"Empty","url":""},{"title":"Two","url":"https://two.test"}]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	f := &FileProvider{Path: path}
	got, err := f.Search(context.Background(), "anything", 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].URL != "https://one.test" || got[0].Source != "file" {
		t.Fatalf("unexpected results: %+v", got)
	}
}
