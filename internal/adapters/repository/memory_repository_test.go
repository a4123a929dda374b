package repository_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-grid/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-grid/internal/core/domain"
)

func TestMemoryStore_Contract(t *testing.T) {
	runStoreContract(t, repository.NewMemoryStore())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	h := seed(t, store, "user-1", "Walk", 0)

	got, err := store.GetHabit(ctx, h.ID)
	require.NoError(t, err)
	got.Name = "mutated"
	got.Schedule.Days[0] = 6

	again, err := store.GetHabit(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, "Walk", again.Name)
	assert.NotEqual(t, 6, int(again.Schedule.Days[0]))
}

func TestMemoryStore_ConcurrentUpserts(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	h := seed(t, store, "user-1", "Walk", 0)
	day := domain.MustParseDate("2024-06-10")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status := domain.StatusCompleted
			if i%2 == 0 {
				status = domain.StatusSkipped
			}
			_, err := store.UpsertLog(ctx, "user-1", h.ID, day, status)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	logs, err := store.GetLogsInRange(ctx, "user-1", day, day)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestMemoryStore_Streaks(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()

	require.NoError(t, store.SaveStreak(ctx, domain.StreakSnapshot{UserID: "user-1", HabitID: "h1", Current: 3}))
	require.NoError(t, store.SaveStreak(ctx, domain.StreakSnapshot{UserID: "user-1", HabitID: "h1", Current: 4}))
	require.NoError(t, store.SaveStreak(ctx, domain.StreakSnapshot{UserID: "user-2", HabitID: "h2", Current: 1}))

	snaps, err := store.ListStreaks(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, 4, snaps[0].Current)

	require.NoError(t, store.DeleteStreak(ctx, "user-1", "h1"))
	snaps, err = store.ListStreaks(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, snaps)
}
