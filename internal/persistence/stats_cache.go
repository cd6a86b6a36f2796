package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/helpdesk/internal/domain"
)

const statsCacheKey = "helpdesk:ticket_stats"

// StatsCache stores the ticket statistics aggregate in Redis with a short
// TTL. Misses and cache failures are soft: callers fall back to counting.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStatsCache builds a cache backed by the given Redis connection.
func NewStatsCache(r *Redis, ttl time.Duration) *StatsCache {
	if r == nil {
		return nil
	}
	return &StatsCache{client: r.Client, ttl: ttl}
}

// Get returns the cached aggregate, or (nil, nil) on a miss.
func (c *StatsCache) Get(ctx context.Context) (*domain.TicketStats, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}
	raw, err := c.client.Get(ctx, statsCacheKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var stats domain.TicketStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Set stores the aggregate for the configured TTL.
func (c *StatsCache) Set(ctx context.Context, stats *domain.TicketStats) error {
	if c == nil || c.client == nil || stats == nil {
		return nil
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, statsCacheKey, raw, c.ttl).Err()
}

// Invalidate drops the cached aggregate after a ticket mutation.
func (c *StatsCache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, statsCacheKey).Err()
}
