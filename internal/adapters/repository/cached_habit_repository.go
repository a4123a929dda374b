package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/comitanigiacomo/kanso-grid/internal/adapters/cache"
	"github.com/comitanigiacomo/kanso-grid/internal/core/domain"
	"github.com/comitanigiacomo/kanso-grid/internal/logger"
)

var (
	_ domain.HabitRepository = (*CachedHabitRepository)(nil)
	_ domain.Importer        = (*CachedHabitRepository)(nil)
)

const habitListTTL = 30 * time.Minute

// CachedHabitRepository is a read-through cache over ListHabits. Redis
// failures degrade to the wrapped repository; they are never returned.
type CachedHabitRepository struct {
	next  domain.HabitRepository
	cache *redis.Client
}

func NewCachedHabitRepository(next domain.HabitRepository, rdb *redis.Client) *CachedHabitRepository {
	return &CachedHabitRepository{
		next:  next,
		cache: rdb,
	}
}

func (r *CachedHabitRepository) cacheKey(userID string, includeArchived bool) string {
	if includeArchived {
		return cache.Key("habits", userID, "all")
	}
	return cache.Key("habits", userID, "active")
}

func (r *CachedHabitRepository) invalidate(ctx context.Context, userID string) {
	log := logger.With("cache")
	if err := r.cache.Del(ctx, r.cacheKey(userID, false), r.cacheKey(userID, true)).Err(); err != nil {
		log.Warn("failed to invalidate habit list", "user", userID, "err", err)
	}
}

func (r *CachedHabitRepository) ListHabits(ctx context.Context, userID string, includeArchived bool) ([]*domain.Habit, error) {
	log := logger.With("cache")
	key := r.cacheKey(userID, includeArchived)

	val, err := r.cache.Get(ctx, key).Bytes()
	if err == nil {
		var habits []*domain.Habit
		if err := json.Unmarshal(val, &habits); err == nil {
			return habits, nil
		}

		log.Warn("corrupted habit list, cleaning up key", "user", userID)
		r.cache.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		log.Warn("redis read error", "err", err)
	}

	habits, err := r.next.ListHabits(ctx, userID, includeArchived)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(habits); err == nil {
		if setErr := r.cache.Set(ctx, key, data, habitListTTL).Err(); setErr != nil {
			log.Warn("redis set error", "err", setErr)
		}
	}

	return habits, nil
}

func (r *CachedHabitRepository) GetHabit(ctx context.Context, id string) (*domain.Habit, error) {
	return r.next.GetHabit(ctx, id)
}

func (r *CachedHabitRepository) CreateHabit(ctx context.Context, habit *domain.Habit) error {
	if err := r.next.CreateHabit(ctx, habit); err != nil {
		return err
	}
	r.invalidate(ctx, habit.UserID)
	return nil
}

func (r *CachedHabitRepository) UpdateHabit(ctx context.Context, habit *domain.Habit) error {
	if err := r.next.UpdateHabit(ctx, habit); err != nil {
		return err
	}
	r.invalidate(ctx, habit.UserID)
	return nil
}

// invalidateOwner drops the cached lists of whoever owns id. Lookup errors
// are ignored; the mutation that follows reports them.
func (r *CachedHabitRepository) invalidateOwner(ctx context.Context, id string) func() {
	habit, err := r.next.GetHabit(ctx, id)
	if err != nil || habit == nil {
		return func() {}
	}
	return func() { r.invalidate(ctx, habit.UserID) }
}

func (r *CachedHabitRepository) ArchiveHabit(ctx context.Context, id string, at time.Time) error {
	defer r.invalidateOwner(ctx, id)()
	return r.next.ArchiveHabit(ctx, id, at)
}

func (r *CachedHabitRepository) UnarchiveHabit(ctx context.Context, id string) error {
	defer r.invalidateOwner(ctx, id)()
	return r.next.UnarchiveHabit(ctx, id)
}

func (r *CachedHabitRepository) DeleteHabit(ctx context.Context, id string) error {
	defer r.invalidateOwner(ctx, id)()
	return r.next.DeleteHabit(ctx, id)
}

func (r *CachedHabitRepository) ReorderHabits(ctx context.Context, userID string, orderedIDs []string) error {
	defer r.invalidate(ctx, userID)
	return r.next.ReorderHabits(ctx, userID, orderedIDs)
}

// ImportAll applies a backup through the wrapped store, which must also be a
// domain.Importer, and drops the importer's cached lists. Nothing is
// invalidated when the import fails because nothing was applied.
func (r *CachedHabitRepository) ImportAll(ctx context.Context, userID string, habits []*domain.Habit, logs []*domain.LogEntry) error {
	imp, ok := r.next.(domain.Importer)
	if !ok {
		return domain.NewStorageError("import", errors.New("wrapped repository does not support bulk import"))
	}
	if err := imp.ImportAll(ctx, userID, habits, logs); err != nil {
		return err
	}
	r.invalidate(ctx, userID)
	return nil
}
