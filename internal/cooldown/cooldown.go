package cooldown

import (
	"context"
	"fmt"
	"time"

	"github.com/Datta-sai-vvn/StormAlert/internal/market"
)

// DefaultTTL is the suppression window applied when a rule does not set one.
const DefaultTTL = 5 * time.Minute

// Ledger tracks, per (subscriber, instrument, kind), the window during which
// repeat alerts of that exact key are suppressed.
//
// TryArm is the pipeline's one critical section: it must atomically observe
// "not suppressed" and install the entry, so two near-simultaneous ticks can
// never both dispatch for the same key. Disarm rolls an arm back when audit
// persistence fails, so a failed dispatch counts as never having happened.
type Ledger interface {
	IsSuppressed(ctx context.Context, subscriber, instrument string, kind market.AlertKind) (bool, error)
	TryArm(ctx context.Context, subscriber, instrument string, kind market.AlertKind, ttl time.Duration) (bool, error)
	Disarm(ctx context.Context, subscriber, instrument string, kind market.AlertKind) error
}

// Key renders the ledger key for one (subscriber, instrument, kind) triple.
func Key(subscriber, instrument string, kind market.AlertKind) string {
	return fmt.Sprintf("cooldown:%s:%s:%s", subscriber, instrument, kind)
}
