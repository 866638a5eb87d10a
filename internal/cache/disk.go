package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Entry is the on-disk record for one page.
type Entry struct {
	URL     string    `json:"url"`
	Text    string    `json:"text"`
	SavedAt time.Time `json:"saved_at"`
}

// DiskStore stores entries as <sha256(url)>.json under Dir. No eviction
// policy is included beyond MaxAge expiry on read and PurgeByAge.
type DiskStore struct {
	Dir string
	// MaxAge expires entries on read. Zero keeps entries forever.
	MaxAge time.Duration
	// StrictPerms, when true, enforces 0700 on the cache directory and 0600
	// on files.
	StrictPerms bool
}

func (c *DiskStore) ensureDir() error {
	if c == nil || c.Dir == "" {
		return errors.New("cache dir not configured")
	}
	perm := os.FileMode(0o755)
	if c.StrictPerms {
		perm = 0o700
	}
	if err := os.MkdirAll(c.Dir, perm); err != nil {
		return err
	}
	// If directory already existed and StrictPerms is on, tighten perms
	if c.StrictPerms {
		if info, err := os.Stat(c.Dir); err == nil && info.Mode()&0o777 != 0o700 {
			_ = os.Chmod(c.Dir, 0o700)
		}
	}
	return nil
}

func (c *DiskStore) pathFor(url string) string {
	return filepath.Join(c.Dir, KeyFrom(url)+".json")
}

// Get returns cached text if present and not expired.
func (c *DiskStore) Get(_ context.Context, url string) (string, bool, error) {
	if err := c.ensureDir(); err != nil {
		return "", false, err
	}
	b, err := os.ReadFile(c.pathFor(url))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		// treat malformed entries as misses; the next Set overwrites them
		return "", false, nil
	}
	if e.URL != url {
		return "", false, nil
	}
	if c.MaxAge > 0 && time.Since(e.SavedAt) > c.MaxAge {
		return "", false, nil
	}
	return e.Text, true, nil
}

// Set writes an entry atomically via a temp file and rename.
func (c *DiskStore) Set(_ context.Context, url string, text string) error {
	if err := c.ensureDir(); err != nil {
		return err
	}
	data, err := json.Marshal(Entry{URL: url, Text: text, SavedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	mode := os.FileMode(0o644)
	if c.StrictPerms {
		mode = 0o600
	}
	p := c.pathFor(url)
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, mode); err != nil {
		return fmt.Errorf("write entry: %w", err)
	}
	return os.Rename(tmp, p)
}

// ClearDir removes the directory and all contents. It recreates the directory
// afterwards to leave a valid empty cache location.
func ClearDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("empty dir")
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// PurgeByAge removes entries whose SavedAt is older than maxAge and returns
// the number removed. Unreadable or malformed files are skipped.
func PurgeByAge(dir string, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	removed := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		var e Entry
		if err := json.Unmarshal(b, &e); err != nil {
			return nil
		}
		if now.Sub(e.SavedAt) <= maxAge {
			return nil
		}
		removed++
		_ = os.Remove(path)
		return nil
	})
	return removed, err
}
