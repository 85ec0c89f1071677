package registry

import (
	"context"

	"github.com/Datta-sai-vvn/StormAlert/internal/market"
)

// Registry maps instruments to the subscribers watching them and subscribers
// to their alert configuration. Subscription management mutates it from
// outside the pipeline; the pipeline itself only reads.
//
// SettingsOf never fails a tick on a lookup miss: a subscriber without
// stored settings gets market.DefaultRule.
type Registry interface {
	WatchersOf(ctx context.Context, instrument string) ([]string, error)
	SettingsOf(ctx context.Context, subscriber string) (market.AlertRule, error)

	Watch(ctx context.Context, instrument, subscriber string) error
	Unwatch(ctx context.Context, instrument, subscriber string) error
	PutSettings(ctx context.Context, subscriber string, rule market.AlertRule) error
}
