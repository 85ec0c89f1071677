package pricecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const priceKeyPrefix = "price:"

// Redis is a Cache backed by redis SETEX/MGET, sharing the key layout the
// ticker service writes so an existing display layer keeps working.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis constructs a redis-backed cache.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

// Set overwrites price:{instrument} with a fresh TTL.
func (r *Redis) Set(ctx context.Context, instrument string, entry Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal price entry: %w", err)
	}
	if err := r.client.Set(ctx, priceKeyPrefix+instrument, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("set price entry: %w", err)
	}
	return nil
}

// Get reads the live entry, if any. Expiry is handled by redis itself.
func (r *Redis) Get(ctx context.Context, instrument string) (Entry, bool, error) {
	raw, err := r.client.Get(ctx, priceKeyPrefix+instrument).Result()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("get price entry: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return Entry{}, false, fmt.Errorf("decode price entry: %w", err)
	}
	return entry, true, nil
}

// GetMany bulk-reads entries via MGET, skipping instruments without data.
func (r *Redis) GetMany(ctx context.Context, instruments []string) (map[string]Entry, error) {
	if len(instruments) == 0 {
		return map[string]Entry{}, nil
	}

	keys := make([]string, len(instruments))
	for i, instrument := range instruments {
		keys[i] = priceKeyPrefix + instrument
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget price entries: %w", err)
	}

	result := make(map[string]Entry, len(instruments))
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			continue
		}
		result[instruments[i]] = entry
	}
	return result, nil
}

var _ Cache = (*Redis)(nil)
