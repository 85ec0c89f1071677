package cooldown

import (
	"context"
	"sync"
	"time"

	"github.com/Datta-sai-vvn/StormAlert/internal/market"
)

// Memory is an in-process Ledger. One mutex guards the expiry map; the
// guarded section is a map lookup and store, so unrelated keys contend only
// for nanoseconds and never across I/O.
type Memory struct {
	mu      sync.Mutex
	now     func() time.Time
	expires map[string]time.Time
}

// NewMemory constructs an in-memory ledger.
func NewMemory() *Memory {
	return &Memory{
		now:     time.Now,
		expires: make(map[string]time.Time),
	}
}

// IsSuppressed reports whether a live entry exists for the key.
func (m *Memory) IsSuppressed(_ context.Context, subscriber, instrument string, kind market.AlertKind) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live(Key(subscriber, instrument, kind)), nil
}

// TryArm installs an entry unless one is already live. Returns true when the
// caller won the key and may dispatch.
func (m *Memory) TryArm(_ context.Context, subscriber, instrument string, kind market.AlertKind, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := Key(subscriber, instrument, kind)
	if m.live(key) {
		return false, nil
	}
	m.expires[key] = m.now().Add(ttl)
	return true, nil
}

// Disarm removes the entry for the key, if any.
func (m *Memory) Disarm(_ context.Context, subscriber, instrument string, kind market.AlertKind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.expires, Key(subscriber, instrument, kind))
	return nil
}

// live must be called with the mutex held. Expired entries are reaped lazily.
func (m *Memory) live(key string) bool {
	expiry, ok := m.expires[key]
	if !ok {
		return false
	}
	if !m.now().Before(expiry) {
		delete(m.expires, key)
		return false
	}
	return true
}

var _ Ledger = (*Memory)(nil)
