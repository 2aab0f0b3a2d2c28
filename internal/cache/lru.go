package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type lruEntry struct {
	value     []byte
	expiresAt time.Time
}

// LRUProvider implements Provider with an in-process LRU holding per-entry
// TTLs. Expired entries are dropped lazily on read.
type LRUProvider struct {
	entries    *lru.Cache[string, lruEntry]
	defaultTTL time.Duration
}

// NewLRUProvider creates a provider bounded to size entries. A non-positive
// ttl on Set falls back to defaultTTL; a non-positive defaultTTL means
// entries never expire.
func NewLRUProvider(size int, defaultTTL time.Duration) (*LRUProvider, error) {
	entries, err := lru.New[string, lruEntry](size)
	if err != nil {
		return nil, err
	}
	return &LRUProvider{entries: entries, defaultTTL: defaultTTL}, nil
}

// Get fetches bytes by key, returning ErrCacheMiss on absence or expiry.
func (p *LRUProvider) Get(_ context.Context, key string) ([]byte, error) {
	entry, ok := p.entries.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		p.entries.Remove(key)
		return nil, ErrCacheMiss
	}
	return entry.value, nil
}

// Set stores a copy of value under key.
func (p *LRUProvider) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = p.defaultTTL
	}
	entry := lruEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	p.entries.Add(key, entry)
	return nil
}

// Del removes a key.
func (p *LRUProvider) Del(_ context.Context, key string) error {
	p.entries.Remove(key)
	return nil
}

// Close purges all entries.
func (p *LRUProvider) Close() error {
	p.entries.Purge()
	return nil
}
