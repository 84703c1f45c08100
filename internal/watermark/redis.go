package watermark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps watermarks as JSON values under watermark:{season} keys.
// Redis serializes writes per key, so concurrent runs for different seasons
// never interfere with each other.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) key(season string) string {
	return fmt.Sprintf("watermark:%s", season)
}

// Read returns the watermark for a season, or (nil, nil) if none exists.
func (s *RedisStore) Read(ctx context.Context, season string) (*Watermark, error) {
	data, err := s.client.Get(ctx, s.key(season)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading watermark for %s: %w", season, err)
	}

	var w Watermark
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("parsing watermark for %s: %w", season, err)
	}
	return &w, nil
}

// Write replaces the watermark for a season. A Redis SET is atomic, so
// readers observe either the old or the new value, never a partial one.
func (s *RedisStore) Write(ctx context.Context, season string, w Watermark) error {
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("encoding watermark for %s: %w", season, err)
	}
	if err := s.client.Set(ctx, s.key(season), data, 0).Err(); err != nil {
		return fmt.Errorf("writing watermark for %s: %w", season, err)
	}
	return nil
}
