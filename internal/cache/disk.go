package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chorus-insights/chorus/internal/llm"
)

// DiskCache persists labels between runs, one JSON file per label under a
// flat directory. File names are derived by hashing the key, so namespaced
// keys never leak path separators into the filesystem.
type DiskCache struct {
	dir string
	ttl time.Duration
}

// NewDiskCache creates a disk label cache rooted at dir
func NewDiskCache(dir string, ttl time.Duration) *DiskCache {
	return &DiskCache{dir: dir, ttl: ttl}
}

type labelEntry struct {
	Label     llm.QuoteLabel `json:"label"`
	CachedAt  time.Time      `json:"cached_at"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// Get returns the label stored for key. Expired or unreadable entries are
// removed and reported as misses.
func (c *DiskCache) Get(key string) (*llm.QuoteLabel, bool) {
	path := c.fileFor(key)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var entry labelEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		_ = os.Remove(path)
		return nil, false
	}
	if time.Now().After(entry.ExpiresAt) {
		_ = os.Remove(path)
		return nil, false
	}

	label := entry.Label
	return &label, true
}

// Set writes the label for key. A zero ttl uses the cache default.
func (c *DiskCache) Set(key string, label *llm.QuoteLabel, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.ttl
	}

	now := time.Now()
	entry := labelEntry{
		Label:     *label,
		CachedAt:  now,
		ExpiresAt: now.Add(ttl),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal label entry: %w", err)
	}
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	if err := os.WriteFile(c.fileFor(key), data, 0644); err != nil {
		return fmt.Errorf("write label entry: %w", err)
	}
	return nil
}

// Delete removes the label for key
func (c *DiskCache) Delete(key string) error {
	return os.Remove(c.fileFor(key))
}

// Clear removes the whole cache directory
func (c *DiskCache) Clear() error {
	return os.RemoveAll(c.dir)
}

func (c *DiskCache) fileFor(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:16])+".label.json")
}
