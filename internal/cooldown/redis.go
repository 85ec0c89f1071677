package cooldown

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Datta-sai-vvn/StormAlert/internal/market"
)

// Redis is a Ledger backed by redis. SETNX with a TTL gives the atomic
// check-and-arm server-side, so multiple pipeline instances share one view
// of the suppression state.
type Redis struct {
	client *redis.Client
}

// NewRedis constructs a redis-backed ledger.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// IsSuppressed reports whether the key currently exists.
func (r *Redis) IsSuppressed(ctx context.Context, subscriber, instrument string, kind market.AlertKind) (bool, error) {
	count, err := r.client.Exists(ctx, Key(subscriber, instrument, kind)).Result()
	if err != nil {
		return false, fmt.Errorf("check cooldown: %w", err)
	}
	return count > 0, nil
}

// TryArm atomically installs the key unless it is already live.
func (r *Redis) TryArm(ctx context.Context, subscriber, instrument string, kind market.AlertKind, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	armed, err := r.client.SetNX(ctx, Key(subscriber, instrument, kind), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("arm cooldown: %w", err)
	}
	return armed, nil
}

// Disarm deletes the key, if present.
func (r *Redis) Disarm(ctx context.Context, subscriber, instrument string, kind market.AlertKind) error {
	if err := r.client.Del(ctx, Key(subscriber, instrument, kind)).Err(); err != nil {
		return fmt.Errorf("disarm cooldown: %w", err)
	}
	return nil
}

var _ Ledger = (*Redis)(nil)
