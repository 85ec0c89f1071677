package pricecache

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultTTL is how long a latest-price entry stays readable. Past it the
// cache reports "no data" so a display layer can show the feed as offline.
const DefaultTTL = 30 * time.Minute

// Entry is the single latest observation kept per instrument.
type Entry struct {
	Price         decimal.Decimal `json:"price"`
	Timestamp     time.Time       `json:"timestamp"`
	ChangePercent decimal.Decimal `json:"change"`
}

// Cache holds the latest observation per instrument. Set is last-writer-wins
// with no out-of-order reconciliation; reads never refresh the TTL.
type Cache interface {
	Set(ctx context.Context, instrument string, entry Entry) error
	Get(ctx context.Context, instrument string) (Entry, bool, error)
	GetMany(ctx context.Context, instruments []string) (map[string]Entry, error)
}
