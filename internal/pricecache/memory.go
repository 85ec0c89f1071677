package pricecache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	entry     Entry
	expiresAt time.Time
}

// Memory is an in-process Cache with per-entry expiry.
type Memory struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

// NewMemory constructs an in-memory cache. A non-positive ttl falls back to
// DefaultTTL.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

// Set overwrites the latest observation unconditionally.
func (m *Memory) Set(_ context.Context, instrument string, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[instrument] = memoryEntry{entry: entry, expiresAt: m.now().Add(m.ttl)}
	return nil
}

// Get returns the live entry, if any. Reading does not extend the TTL.
func (m *Memory) Get(_ context.Context, instrument string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.entries[instrument]
	if !ok || !m.now().Before(stored.expiresAt) {
		return Entry{}, false, nil
	}
	return stored.entry, true, nil
}

// GetMany returns live entries for the requested instruments. Missing or
// expired instruments are simply absent from the result.
func (m *Memory) GetMany(_ context.Context, instruments []string) (map[string]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	result := make(map[string]Entry, len(instruments))
	for _, instrument := range instruments {
		if stored, ok := m.entries[instrument]; ok && now.Before(stored.expiresAt) {
			result[instrument] = stored.entry
		}
	}
	return result, nil
}

var _ Cache = (*Memory)(nil)
