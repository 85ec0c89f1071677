package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/go-redis/redis/v8"

	"github.com/Datta-sai-vvn/StormAlert/internal/market"
)

const (
	watchersKeyPrefix = "watchers:"
	settingsKeyPrefix = "settings:"
)

// Redis is a Registry over the shared key layout the subscription manager
// maintains: watchers:{instrument} sets and settings:{subscriber} JSON.
type Redis struct {
	client *redis.Client
}

// NewRedis constructs a redis-backed registry.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// WatchersOf reads the instrument's watcher set.
func (r *Redis) WatchersOf(ctx context.Context, instrument string) ([]string, error) {
	subscribers, err := r.client.SMembers(ctx, watchersKeyPrefix+instrument).Result()
	if err != nil {
		return nil, fmt.Errorf("read watchers: %w", err)
	}
	sort.Strings(subscribers)
	return subscribers, nil
}

// SettingsOf reads the subscriber's rule. A missing or undecodable record
// resolves to the default rule rather than failing the tick.
func (r *Redis) SettingsOf(ctx context.Context, subscriber string) (market.AlertRule, error) {
	raw, err := r.client.Get(ctx, settingsKeyPrefix+subscriber).Result()
	if errors.Is(err, redis.Nil) {
		return market.DefaultRule(), nil
	}
	if err != nil {
		return market.AlertRule{}, fmt.Errorf("read settings: %w", err)
	}

	var rule market.AlertRule
	if err := json.Unmarshal([]byte(raw), &rule); err != nil {
		return market.DefaultRule(), nil
	}
	return rule, nil
}

// Watch adds the subscriber to the instrument's watcher set.
func (r *Redis) Watch(ctx context.Context, instrument, subscriber string) error {
	if err := r.client.SAdd(ctx, watchersKeyPrefix+instrument, subscriber).Err(); err != nil {
		return fmt.Errorf("add watcher: %w", err)
	}
	return nil
}

// Unwatch removes the subscriber from the instrument's watcher set.
func (r *Redis) Unwatch(ctx context.Context, instrument, subscriber string) error {
	if err := r.client.SRem(ctx, watchersKeyPrefix+instrument, subscriber).Err(); err != nil {
		return fmt.Errorf("remove watcher: %w", err)
	}
	return nil
}

// PutSettings stores the subscriber's rule as JSON.
func (r *Redis) PutSettings(ctx context.Context, subscriber string, rule market.AlertRule) error {
	payload, err := json.Marshal(rule)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := r.client.Set(ctx, settingsKeyPrefix+subscriber, payload, 0).Err(); err != nil {
		return fmt.Errorf("store settings: %w", err)
	}
	return nil
}

var _ Registry = (*Redis)(nil)
