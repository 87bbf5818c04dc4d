package storage

import (
	"context"
	"sync"

	"PriceScanner/internal/domain"
	"PriceScanner/internal/ports"
)

// MemoryStore keeps cache entries in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]domain.CacheEntry
}

var _ ports.CacheStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]domain.CacheEntry)}
}

// Load returns a copy of the entry stored under key.
func (m *MemoryStore) Load(_ context.Context, key string) (domain.CacheEntry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[key]
	if !ok {
		return domain.CacheEntry{}, false, nil
	}
	entry.Listings = domain.CloneListings(entry.Listings)
	return entry, true, nil
}

// Save replaces the entry for entry.Key.
func (m *MemoryStore) Save(_ context.Context, entry domain.CacheEntry) error {
	entry.Listings = domain.CloneListings(entry.Listings)

	m.mu.Lock()
	m.entries[entry.Key] = entry
	m.mu.Unlock()
	return nil
}

// Delete drops key if present.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}
