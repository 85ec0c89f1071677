package history

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Datta-sai-vvn/StormAlert/internal/market"
)

// DefaultCap bounds the number of retained points per instrument.
const DefaultCap = 1000

// Store keeps a bounded, time-ordered price history per instrument.
// Eviction is strictly FIFO: the oldest insertion goes first, regardless of
// how often a point is read.
type Store struct {
	mu      sync.RWMutex
	cap     int
	entries map[string][]market.PricePoint
}

// NewStore constructs a Store with the given capacity per instrument.
// A non-positive capacity falls back to DefaultCap.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCap
	}
	return &Store{
		cap:     capacity,
		entries: make(map[string][]market.PricePoint),
	}
}

// Record appends a price point and trims to capacity. Malformed input is
// rejected without mutation; callers must not retry without correcting it.
func (s *Store) Record(instrument string, price decimal.Decimal, ts time.Time) error {
	if instrument == "" {
		return market.ErrNoInstrument
	}
	if !price.IsPositive() {
		return market.ErrInvalidPrice
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	points := append(s.entries[instrument], market.PricePoint{Price: price, Timestamp: ts})
	if excess := len(points) - s.cap; excess > 0 {
		points = points[excess:]
	}
	s.entries[instrument] = points
	return nil
}

// Read returns a snapshot of the instrument's history, oldest first. The
// returned slice is a copy; concurrent writes never affect a read in flight.
func (s *Store) Read(instrument string) []market.PricePoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	points := s.entries[instrument]
	if len(points) == 0 {
		return nil
	}
	snapshot := make([]market.PricePoint, len(points))
	copy(snapshot, points)
	return snapshot
}

// ReadLast returns up to limit most recent points, oldest first.
func (s *Store) ReadLast(instrument string, limit int) []market.PricePoint {
	snapshot := s.Read(instrument)
	if limit > 0 && len(snapshot) > limit {
		snapshot = snapshot[len(snapshot)-limit:]
	}
	return snapshot
}

// Len reports the number of retained points for an instrument.
func (s *Store) Len(instrument string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries[instrument])
}
