package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/comitanigiacomo/kanso-grid/internal/adapters/cache"
	"github.com/comitanigiacomo/kanso-grid/internal/core/domain"
	"github.com/comitanigiacomo/kanso-grid/internal/core/viewport"
)

var _ viewport.Store = (*RedisViewportStore)(nil)

// RedisViewportStore keeps one JSON document per user. Entries do not
// expire: a stale LastOpened is handled when the grid opens.
type RedisViewportStore struct {
	rdb *redis.Client
}

func NewRedisViewportStore(rdb *redis.Client) *RedisViewportStore {
	return &RedisViewportStore{rdb: rdb}
}

func (s *RedisViewportStore) key(userID string) string {
	return cache.Key("viewport", userID)
}

func (s *RedisViewportStore) LoadViewport(ctx context.Context, userID string) (viewport.Saved, error) {
	val, err := s.rdb.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return viewport.Saved{}, nil
	}
	if err != nil {
		return viewport.Saved{}, domain.NewStorageError("load viewport", err)
	}

	var saved viewport.Saved
	if err := json.Unmarshal(val, &saved); err != nil {
		return viewport.Saved{}, domain.NewStorageError("load viewport", err)
	}
	return saved, nil
}

func (s *RedisViewportStore) SaveViewport(ctx context.Context, userID string, state viewport.Saved) error {
	data, err := json.Marshal(state)
	if err != nil {
		return domain.NewStorageError("save viewport", err)
	}
	if err := s.rdb.Set(ctx, s.key(userID), data, 0).Err(); err != nil {
		return domain.NewStorageError("save viewport", err)
	}
	return nil
}
