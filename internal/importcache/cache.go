package importcache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/starford/ladle/internal/checksum"
)

// Entry is one cached extraction result.
type Entry struct {
	Key       string          `json:"normalized_url"`
	URL       string          `json:"url"`
	Result    json.RawMessage `json:"result"`
	Checksum  string          `json:"checksum"`
	CreatedAt time.Time       `json:"created_at"`
}

// Cache stores at most one extraction result per normalized URL.
//
// Store is idempotent: once a key is populated its result never changes,
// and a later (or concurrently losing) Store returns the entry that won.
type Cache interface {
	// Lookup returns the entry for key, or nil when the key is not cached.
	Lookup(ctx context.Context, key string) (*Entry, error)
	// Store records result for key unless the key is already populated,
	// and returns the entry that is stored.
	Store(ctx context.Context, key, originalURL string, result []byte) (*Entry, error)
}

// Memory is an in-process Cache.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*Entry
	now     func() time.Time
}

// NewMemory returns an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]*Entry), now: time.Now}
}

// Lookup implements Cache.
func (m *Memory) Lookup(_ context.Context, key string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	return cloneEntry(e), nil
}

// Store implements Cache.
func (m *Memory) Store(_ context.Context, key, originalURL string, result []byte) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[key]; ok {
		return cloneEntry(e), nil
	}
	e := &Entry{
		Key:       key,
		URL:       originalURL,
		Result:    append(json.RawMessage(nil), result...),
		Checksum:  checksum.Sum(result),
		CreatedAt: m.now().UTC(),
	}
	m.entries[key] = e
	return cloneEntry(e), nil
}

// Len returns the number of cached entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func cloneEntry(e *Entry) *Entry {
	c := *e
	c.Result = append(json.RawMessage(nil), e.Result...)
	return &c
}
