package services

import (
	"context"
	"sort"

	"github.com/comitanigiacomo/kanso-grid/internal/core/analytics"
	"github.com/comitanigiacomo/kanso-grid/internal/core/domain"
)

const (
	MaxPeriodDays      = 365
	RollingWindowDays  = 7
	RollingPointsCount = 30
)

type AnalyticsService struct {
	habitRepo domain.HabitRepository
	logRepo   domain.LogRepository
	streaks   domain.StreakCache
}

func NewAnalyticsService(habitRepo domain.HabitRepository, logRepo domain.LogRepository, streaks domain.StreakCache) *AnalyticsService {
	return &AnalyticsService{
		habitRepo: habitRepo,
		logRepo:   logRepo,
		streaks:   streaks,
	}
}

// HabitDetail is the single habit analytics page.
type HabitDetail struct {
	analytics.Summary
	Rolling []analytics.RatePoint `json:"rolling"`
}

// loadIndex fetches everything needed to compute analytics as of today:
// a year for streaks, plus the requested period when it is longer.
func (s *AnalyticsService) loadIndex(ctx context.Context, userID string, today domain.Date, days int) (*domain.LogIndex, error) {
	if days < analytics.StreakHorizonDays {
		days = analytics.StreakHorizonDays
	}
	r := domain.LastNDays(today, days)
	logs, err := s.logRepo.GetLogsInRange(ctx, userID, r.Start, r.End)
	if err != nil {
		return nil, err
	}
	return domain.NewLogIndex(logs), nil
}

func (s *AnalyticsService) Overview(ctx context.Context, userID string, today domain.Date, periodDays int) (*analytics.Overview, error) {
	if today.IsZero() {
		return nil, domain.NewValidationError("today", "today is required")
	}
	if periodDays == 0 {
		periodDays = analytics.DefaultPeriodDays
	}
	if periodDays < 1 || periodDays > MaxPeriodDays {
		return nil, domain.NewValidationError("period", "period must be between 1 and 365 days")
	}

	habits, err := s.habitRepo.ListHabits(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	idx, err := s.loadIndex(ctx, userID, today, periodDays+analytics.TrendWindowDays*2)
	if err != nil {
		return nil, err
	}

	ov := analytics.ComputeOverview(habits, idx, today, periodDays)
	return &ov, nil
}

func (s *AnalyticsService) Habit(ctx context.Context, userID, habitID string, today domain.Date) (*HabitDetail, error) {
	if today.IsZero() {
		return nil, domain.NewValidationError("today", "today is required")
	}

	habit, err := s.habitRepo.GetHabit(ctx, habitID)
	if err != nil {
		return nil, err
	}
	if habit.UserID != userID {
		return nil, domain.ErrHabitNotFound
	}

	idx, err := s.loadIndex(ctx, userID, today, analytics.StreakHorizonDays+RollingWindowDays+RollingPointsCount)
	if err != nil {
		return nil, err
	}

	return &HabitDetail{
		Summary: analytics.Summarize(habit, idx, today),
		Rolling: analytics.RollingRates(habit, idx, today, RollingWindowDays, RollingPointsCount),
	}, nil
}

// Connections returns the strongest habit pairs. The boolean is false when
// the user has too many active habits for the comparison to run.
func (s *AnalyticsService) Connections(ctx context.Context, userID string, today domain.Date) ([]analytics.Connection, bool, error) {
	if today.IsZero() {
		return nil, false, domain.NewValidationError("today", "today is required")
	}

	habits, err := s.habitRepo.ListHabits(ctx, userID, false)
	if err != nil {
		return nil, false, err
	}
	r := domain.LastNDays(today, analytics.ConnectionWindowDays)
	logs, err := s.logRepo.GetLogsInRange(ctx, userID, r.Start, r.End)
	if err != nil {
		return nil, false, err
	}

	conns, ok := analytics.Connections(habits, domain.NewLogIndex(logs), today)
	if conns == nil {
		conns = []analytics.Connection{}
	}
	return conns, ok, nil
}

// Streaks returns the background snapshots, ordered by habit id. It is
// empty when no streak cache is configured.
func (s *AnalyticsService) Streaks(ctx context.Context, userID string) ([]domain.StreakSnapshot, error) {
	if s.streaks == nil {
		return []domain.StreakSnapshot{}, nil
	}
	snaps, err := s.streaks.ListStreaks(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].HabitID < snaps[j].HabitID })
	return snaps, nil
}
