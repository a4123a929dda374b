package services

import (
	"context"

	"github.com/comitanigiacomo/kanso-grid/internal/core/domain"
)

// MaxLogRangeDays caps a single range query.
const MaxLogRangeDays = 3 * 366

// StreakEnqueuer is notified after every log change so streak snapshots can
// be refreshed in the background.
type StreakEnqueuer interface {
	Enqueue(userID, habitID string)
}

type LogService struct {
	repo      domain.LogRepository
	habitRepo domain.HabitRepository
	worker    StreakEnqueuer
}

func NewLogService(repo domain.LogRepository, habitRepo domain.HabitRepository, worker StreakEnqueuer) *LogService {
	return &LogService{
		repo:      repo,
		habitRepo: habitRepo,
		worker:    worker,
	}
}

func (s *LogService) ownedHabit(ctx context.Context, userID, habitID string) (*domain.Habit, error) {
	habit, err := s.habitRepo.GetHabit(ctx, habitID)
	if err != nil {
		return nil, err
	}
	if habit.UserID != userID {
		return nil, domain.ErrHabitNotFound
	}
	return habit, nil
}

// Set upserts the status of one cell.
func (s *LogService) Set(ctx context.Context, userID, habitID string, date domain.Date, status domain.Status) (*domain.LogEntry, error) {
	probe := domain.LogEntry{HabitID: habitID, Date: date, Status: status}
	if err := probe.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.ownedHabit(ctx, userID, habitID); err != nil {
		return nil, err
	}

	entry, err := s.repo.UpsertLog(ctx, userID, habitID, date, status)
	if err != nil {
		return nil, err
	}

	s.enqueue(userID, habitID)
	return entry, nil
}

// Clear empties one cell and reports whether there was an entry to remove.
func (s *LogService) Clear(ctx context.Context, userID, habitID string, date domain.Date) (bool, error) {
	if date.IsZero() {
		return false, domain.NewValidationError("date", "date is required")
	}
	if _, err := s.ownedHabit(ctx, userID, habitID); err != nil {
		return false, err
	}

	deleted, err := s.repo.DeleteLog(ctx, userID, habitID, date)
	if err != nil {
		return false, err
	}
	if deleted {
		s.enqueue(userID, habitID)
	}
	return deleted, nil
}

func (s *LogService) ListRange(ctx context.Context, userID string, from, to domain.Date) ([]*domain.LogEntry, error) {
	r := domain.DateRange{Start: from, End: to}
	if from.IsZero() || to.IsZero() {
		return nil, domain.NewValidationError("range", "from and to are required")
	}
	if r.Days() == 0 {
		return nil, domain.NewValidationError("range", "from must not be after to")
	}
	if r.Days() > MaxLogRangeDays {
		return nil, domain.NewValidationError("range", "range is too large")
	}

	logs, err := s.repo.GetLogsInRange(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	domain.SortLogs(logs)
	return logs, nil
}

func (s *LogService) enqueue(userID, habitID string) {
	if s.worker != nil {
		s.worker.Enqueue(userID, habitID)
	}
}
