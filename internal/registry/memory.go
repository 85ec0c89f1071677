package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/Datta-sai-vvn/StormAlert/internal/market"
)

// Memory is an in-process Registry.
type Memory struct {
	mu       sync.RWMutex
	watchers map[string]map[string]struct{}
	settings map[string]market.AlertRule
}

// NewMemory constructs an empty registry.
func NewMemory() *Memory {
	return &Memory{
		watchers: make(map[string]map[string]struct{}),
		settings: make(map[string]market.AlertRule),
	}
}

// WatchersOf returns the subscribers watching an instrument, sorted for
// deterministic fan-out order.
func (m *Memory) WatchersOf(_ context.Context, instrument string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	set := m.watchers[instrument]
	if len(set) == 0 {
		return nil, nil
	}
	subscribers := make([]string, 0, len(set))
	for subscriber := range set {
		subscribers = append(subscribers, subscriber)
	}
	sort.Strings(subscribers)
	return subscribers, nil
}

// SettingsOf returns the subscriber's rule, or the default on a miss.
func (m *Memory) SettingsOf(_ context.Context, subscriber string) (market.AlertRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if rule, ok := m.settings[subscriber]; ok {
		return rule, nil
	}
	return market.DefaultRule(), nil
}

// Watch adds a subscriber to an instrument's watcher set.
func (m *Memory) Watch(_ context.Context, instrument, subscriber string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.watchers[instrument]
	if !ok {
		set = make(map[string]struct{})
		m.watchers[instrument] = set
	}
	set[subscriber] = struct{}{}
	return nil
}

// Unwatch removes a subscriber from an instrument's watcher set.
func (m *Memory) Unwatch(_ context.Context, instrument, subscriber string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if set, ok := m.watchers[instrument]; ok {
		delete(set, subscriber)
		if len(set) == 0 {
			delete(m.watchers, instrument)
		}
	}
	return nil
}

// PutSettings stores the subscriber's rule.
func (m *Memory) PutSettings(_ context.Context, subscriber string, rule market.AlertRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[subscriber] = rule
	return nil
}

var _ Registry = (*Memory)(nil)
