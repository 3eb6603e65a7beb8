// Package store persists aggregated news results in a local bbolt file so
// repeated analyses of the same ticker on the same day skip the providers.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/Adda-Baaj/stock-pulse/internal/domain"
)

const newsBucket = "news"

// Entry is one cached aggregation result.
type Entry struct {
	Trace    string           `json:"provider"`
	Items    []domain.Article `json:"items"`
	StoredAt time.Time        `json:"stored_at"`
}

// NewsCache is a TTL cache of aggregation results.
type NewsCache struct {
	db  *bolt.DB
	ttl time.Duration
	now func() time.Time
}

// Open opens (or creates) the cache file at path.
func Open(path string, ttl time.Duration) (*NewsCache, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("cache path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(newsBucket))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	return &NewsCache{db: db, ttl: ttl, now: time.Now}, nil
}

// Key builds the cache key for a ticker, its search terms and the day.
func Key(ticker string, terms []string, day time.Time) string {
	norm := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.ToLower(strings.Join(strings.Fields(t), " ")); t != "" {
			norm = append(norm, t)
		}
	}
	return strings.ToUpper(strings.TrimSpace(ticker)) + "|" + strings.Join(norm, ",") + "|" + day.UTC().Format("2006-01-02")
}

// Get returns the entry for key when present and younger than the TTL.
func (c *NewsCache) Get(key string) (Entry, bool, error) {
	var (
		entry Entry
		found bool
	)
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(newsBucket))
		if b == nil {
			return nil
		}
		raw := b.Get([]byte(key))
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			return fmt.Errorf("decode cache entry %q: %w", key, err)
		}
		found = true
		return nil
	})
	if err != nil || !found {
		return Entry{}, false, err
	}
	if c.ttl > 0 && c.now().Sub(entry.StoredAt) > c.ttl {
		return Entry{}, false, nil
	}
	return entry, true, nil
}

// Put stores items under key, stamping the entry with the current time.
func (c *NewsCache) Put(key, trace string, items []domain.Article) error {
	raw, err := json.Marshal(Entry{Trace: trace, Items: items, StoredAt: c.now().UTC()})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(newsBucket)).Put([]byte(key), raw)
	})
}

// Prune deletes expired entries and reports how many were removed.
func (c *NewsCache) Prune() (int, error) {
	if c.ttl <= 0 {
		return 0, nil
	}
	removed := 0
	err := c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(newsBucket))
		var stale [][]byte
		if err := b.ForEach(func(k, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil || c.now().Sub(e.StoredAt) > c.ttl {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}

// Close releases the underlying database file.
func (c *NewsCache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}
