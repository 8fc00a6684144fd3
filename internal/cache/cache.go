// Package cache stores quote labels across runs so re-labeling the same
// quote never repeats a paid collaborator call. Keys are content hashes over
// the quote text, criterion, and prompt version, so any input or prompt
// change misses and fetches a fresh label.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/chorus-insights/chorus/internal/llm"
)

// Cache is the label store behind the batch labeler. Implementations return
// copies; callers may mutate a returned label freely.
type Cache interface {
	Get(key string) (*llm.QuoteLabel, bool)
	Set(key string, label *llm.QuoteLabel, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// CacheKey hashes arbitrary input into a namespaced label-cache key
func CacheKey(input string) string {
	hash := sha256.Sum256([]byte(input))
	return "chorus:v1:" + hex.EncodeToString(hash[:])
}
