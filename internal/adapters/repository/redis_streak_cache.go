package repository

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/comitanigiacomo/kanso-grid/internal/adapters/cache"
	"github.com/comitanigiacomo/kanso-grid/internal/core/domain"
	"github.com/comitanigiacomo/kanso-grid/internal/logger"
)

var _ domain.StreakCache = (*RedisStreakCache)(nil)

// RedisStreakCache stores snapshots in one hash per user, keyed by habit id.
type RedisStreakCache struct {
	rdb *redis.Client
}

func NewRedisStreakCache(rdb *redis.Client) *RedisStreakCache {
	return &RedisStreakCache{rdb: rdb}
}

func (c *RedisStreakCache) key(userID string) string {
	return cache.Key("streaks", userID)
}

func (c *RedisStreakCache) SaveStreak(ctx context.Context, snap domain.StreakSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return domain.NewStorageError("save streak", err)
	}
	if err := c.rdb.HSet(ctx, c.key(snap.UserID), snap.HabitID, data).Err(); err != nil {
		return domain.NewStorageError("save streak", err)
	}
	return nil
}

func (c *RedisStreakCache) ListStreaks(ctx context.Context, userID string) ([]domain.StreakSnapshot, error) {
	fields, err := c.rdb.HGetAll(ctx, c.key(userID)).Result()
	if err != nil {
		return nil, domain.NewStorageError("list streaks", err)
	}

	out := make([]domain.StreakSnapshot, 0, len(fields))
	for habitID, raw := range fields {
		var snap domain.StreakSnapshot
		if err := json.Unmarshal([]byte(raw), &snap); err != nil {
			logger.With("cache").Warn("dropping corrupted streak", "habit", habitID, "err", err)
			c.rdb.HDel(ctx, c.key(userID), habitID)
			continue
		}
		out = append(out, snap)
	}
	return out, nil
}

func (c *RedisStreakCache) DeleteStreak(ctx context.Context, userID, habitID string) error {
	if err := c.rdb.HDel(ctx, c.key(userID), habitID).Err(); err != nil {
		return domain.NewStorageError("delete streak", err)
	}
	return nil
}
