package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Store caches cleaned page text keyed by URL. Implementations return
// ok=false on a miss and reserve err for backend failures.
type Store interface {
	Get(ctx context.Context, url string) (text string, ok bool, err error)
	Set(ctx context.Context, url string, text string) error
}

// KeyFrom builds a stable key from a URL.
func KeyFrom(url string) string {
	h := sha256.Sum256([]byte(url))
	return hex.EncodeToString(h[:])
}
