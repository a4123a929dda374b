package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-grid/internal/core/analytics"
	"github.com/comitanigiacomo/kanso-grid/internal/core/domain"
	"github.com/comitanigiacomo/kanso-grid/internal/core/services"
)

type MockStreakCache struct {
	mock.Mock
}

func (m *MockStreakCache) SaveStreak(ctx context.Context, snap domain.StreakSnapshot) error {
	return m.Called(ctx, snap).Error(0)
}

func (m *MockStreakCache) ListStreaks(ctx context.Context, userID string) ([]domain.StreakSnapshot, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StreakSnapshot), args.Error(1)
}

func (m *MockStreakCache) DeleteStreak(ctx context.Context, userID, habitID string) error {
	return m.Called(ctx, userID, habitID).Error(0)
}

func completeDays(t *testing.T, repo *MockRepo, h *domain.Habit, end domain.Date, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := repo.UpsertLog(context.Background(), h.UserID, h.ID, end.AddDays(-i), domain.StatusCompleted)
		require.NoError(t, err)
	}
}

func TestAnalyticsService_Overview(t *testing.T) {
	today := domain.MustParseDate("2024-06-14")

	t.Run("Success: Aggregates active habits", func(t *testing.T) {
		repo := NewMockRepo()
		svc := services.NewAnalyticsService(repo, repo, nil)
		walk := seedHabit(t, repo, "user-1", "Walk")
		read := seedHabit(t, repo, "user-1", "Read")
		completeDays(t, repo, walk, today, 10)
		completeDays(t, repo, read, today, 5)

		ov, err := svc.Overview(context.Background(), "user-1", today, 10)

		require.NoError(t, err)
		assert.Len(t, ov.Habits, 2)
		assert.Equal(t, 15, ov.Overall.Completed)
		assert.Equal(t, 20, ov.Overall.Scheduled)
		assert.InDelta(t, 0.75, ov.Overall.Rate, 1e-9)
		assert.Equal(t, 2, ov.TodayScore.Completed)
	})

	t.Run("Success: Defaults the period", func(t *testing.T) {
		repo := NewMockRepo()
		svc := services.NewAnalyticsService(repo, repo, nil)

		ov, err := svc.Overview(context.Background(), "user-1", today, 0)

		require.NoError(t, err)
		assert.Equal(t, analytics.DefaultPeriodDays, ov.Period.Days())
	})

	t.Run("Fail: Period out of range", func(t *testing.T) {
		repo := NewMockRepo()
		svc := services.NewAnalyticsService(repo, repo, nil)

		_, err := svc.Overview(context.Background(), "user-1", today, 400)
		assert.True(t, domain.IsValidation(err))

		_, err = svc.Overview(context.Background(), "user-1", domain.Date{}, 30)
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("Fail: Storage error", func(t *testing.T) {
		repo := NewMockRepo()
		repo.simulateError = domain.NewStorageError("list habits", errors.New("offline"))
		svc := services.NewAnalyticsService(repo, repo, nil)

		_, err := svc.Overview(context.Background(), "user-1", today, 30)
		assert.True(t, domain.IsStorage(err))
	})
}

func TestAnalyticsService_Habit(t *testing.T) {
	today := domain.MustParseDate("2024-06-14")
	repo := NewMockRepo()
	svc := services.NewAnalyticsService(repo, repo, nil)
	walk := seedHabit(t, repo, "user-1", "Walk")
	completeDays(t, repo, walk, today, 5)

	t.Run("Success: Summary and rolling series", func(t *testing.T) {
		detail, err := svc.Habit(context.Background(), "user-1", walk.ID, today)

		require.NoError(t, err)
		assert.Equal(t, 5, detail.CurrentStreak)
		assert.Equal(t, 5, detail.LongestStreak)
		require.Len(t, detail.Rolling, services.RollingPointsCount)
		last := detail.Rolling[len(detail.Rolling)-1]
		assert.True(t, last.Date.Equal(today))
		assert.Equal(t, 5, last.Completed)
		assert.Equal(t, 7, last.Scheduled)
	})

	t.Run("Fail: Other user's habit", func(t *testing.T) {
		_, err := svc.Habit(context.Background(), "user-2", walk.ID, today)
		assert.ErrorIs(t, err, domain.ErrHabitNotFound)
	})
}

func TestAnalyticsService_Connections(t *testing.T) {
	today := domain.MustParseDate("2024-06-14")
	repo := NewMockRepo()
	svc := services.NewAnalyticsService(repo, repo, nil)
	seedHabit(t, repo, "user-1", "Walk")

	conns, ok, err := svc.Connections(context.Background(), "user-1", today)

	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotNil(t, conns)
	assert.Empty(t, conns)
}

func TestAnalyticsService_Streaks(t *testing.T) {
	t.Run("Success: Sorted snapshots from the cache", func(t *testing.T) {
		cache := new(MockStreakCache)
		cache.On("ListStreaks", mock.Anything, "user-1").Return([]domain.StreakSnapshot{
			{HabitID: "b", Current: 1},
			{HabitID: "a", Current: 4, ComputedAt: time.Now()},
		}, nil)
		repo := NewMockRepo()
		svc := services.NewAnalyticsService(repo, repo, cache)

		snaps, err := svc.Streaks(context.Background(), "user-1")

		require.NoError(t, err)
		require.Len(t, snaps, 2)
		assert.Equal(t, "a", snaps[0].HabitID)
		cache.AssertExpectations(t)
	})

	t.Run("Success: Empty without a cache", func(t *testing.T) {
		repo := NewMockRepo()
		svc := services.NewAnalyticsService(repo, repo, nil)

		snaps, err := svc.Streaks(context.Background(), "user-1")

		require.NoError(t, err)
		assert.Empty(t, snaps)
	})

	t.Run("Fail: Cache error", func(t *testing.T) {
		cache := new(MockStreakCache)
		cache.On("ListStreaks", mock.Anything, "user-1").Return(nil, errors.New("redis down"))
		repo := NewMockRepo()
		svc := services.NewAnalyticsService(repo, repo, cache)

		_, err := svc.Streaks(context.Background(), "user-1")
		assert.Error(t, err)
	})
}
