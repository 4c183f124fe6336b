package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	derr "github.com/ggonzalez94/court-reservations/internal/domain/errors"
	"github.com/ggonzalez94/court-reservations/internal/domain/models"
	"github.com/redis/go-redis/v9"
)

// SnapshotCache stores aggregate snapshots keyed by calendar day and
// duration, with expiry delegated to redis. Reads and writes are plain
// get/set: two concurrent misses may both compute and both write, which is
// accepted because the snapshot is a pure function of (day, duration).
type SnapshotCache struct {
	redis *redis.Client
}

func NewSnapshotCache(redisClient *redis.Client) *SnapshotCache {
	return &SnapshotCache{redis: redisClient}
}

func (c *SnapshotCache) Get(ctx context.Context, day time.Time, durationMinutes int) (models.AggregateSnapshot, error) {
	key := snapshotKey(day, durationMinutes)
	data, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.AggregateSnapshot{}, derr.ErrSnapshotNotFound
		}
		return models.AggregateSnapshot{}, fmt.Errorf("redis get snapshot: %w", err)
	}

	var snapshot models.AggregateSnapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		return models.AggregateSnapshot{}, fmt.Errorf("unmarshal cached snapshot: %w", err)
	}

	return snapshot, nil
}

func (c *SnapshotCache) Set(ctx context.Context, day time.Time, durationMinutes int, snapshot models.AggregateSnapshot, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	key := snapshotKey(day, durationMinutes)
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot for cache: %w", err)
	}

	if err := c.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set snapshot: %w", err)
	}

	return nil
}

// The key must encode both the day and the duration: requests on the same
// calendar day with different exact instants share one snapshot, requests
// with different durations never do.
func snapshotKey(day time.Time, durationMinutes int) string {
	return fmt.Sprintf("establishments:%s:%d", day.In(models.BusinessLocation()).Format("2006-01-02"), durationMinutes)
}
