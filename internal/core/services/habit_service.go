package services

import (
	"context"
	"time"

	"github.com/comitanigiacomo/kanso-grid/internal/core/domain"
)

type HabitService struct {
	repo domain.HabitRepository
}

func NewHabitService(repo domain.HabitRepository) *HabitService {
	return &HabitService{
		repo: repo,
	}
}

// CreateHabitInput.ID is optional; clients that create habits offline send
// their own id so a retried request does not create a second habit.
type CreateHabitInput struct {
	ID        string
	UserID    string
	Name      string
	Icon      string
	Color     string
	Schedule  domain.Schedule
	StartDate domain.Date
}

// UpdateHabitInput carries a partial update: empty strings, a nil Schedule
// and a zero StartDate keep the stored value.
type UpdateHabitInput struct {
	ID        string
	UserID    string
	Name      string
	Icon      string
	Color     string
	Schedule  *domain.Schedule
	StartDate domain.Date
}

func mergeString(newVal, oldVal string) string {
	if newVal == "" {
		return oldVal
	}
	return newVal
}

// Create validates and stores a new habit at the end of the active list.
func (s *HabitService) Create(ctx context.Context, input CreateHabitInput) (*domain.Habit, error) {
	habit, err := domain.NewHabit(input.UserID, domain.HabitAttrs{
		Name:      input.Name,
		Icon:      input.Icon,
		Color:     input.Color,
		Schedule:  input.Schedule,
		StartDate: input.StartDate,
	})
	if err != nil {
		return nil, err
	}

	if input.ID != "" {
		existing, err := s.repo.GetHabit(ctx, input.ID)
		switch {
		case err == nil && existing.UserID == input.UserID:
			return existing, nil
		case err == nil:
			return nil, domain.NewValidationError("id", "id already in use")
		case !domain.IsNotFound(err):
			return nil, err
		}
		habit.ID = input.ID
	}

	active, err := s.repo.ListHabits(ctx, input.UserID, false)
	if err != nil {
		return nil, err
	}
	for _, h := range active {
		if h.SortOrder >= habit.SortOrder {
			habit.SortOrder = h.SortOrder + 1
		}
	}

	if err := s.repo.CreateHabit(ctx, habit); err != nil {
		return nil, err
	}

	return habit, nil
}

func (s *HabitService) List(ctx context.Context, userID string, includeArchived bool) ([]*domain.Habit, error) {
	return s.repo.ListHabits(ctx, userID, includeArchived)
}

// Get returns the habit only if it belongs to userID; other users' habits
// are reported as not found.
func (s *HabitService) Get(ctx context.Context, id, userID string) (*domain.Habit, error) {
	habit, err := s.repo.GetHabit(ctx, id)
	if err != nil {
		return nil, err
	}

	if habit.UserID != userID {
		return nil, domain.ErrHabitNotFound
	}
	return habit, nil
}

func (s *HabitService) Update(ctx context.Context, input UpdateHabitInput) (*domain.Habit, error) {
	habit, err := s.Get(ctx, input.ID, input.UserID)
	if err != nil {
		return nil, err
	}

	sched := habit.Schedule
	if input.Schedule != nil {
		sched = *input.Schedule
	}
	start := habit.StartDate
	if !input.StartDate.IsZero() {
		start = input.StartDate
	}

	err = habit.Update(domain.HabitAttrs{
		Name:      mergeString(input.Name, habit.Name),
		Icon:      mergeString(input.Icon, habit.Icon),
		Color:     mergeString(input.Color, habit.Color),
		Schedule:  sched,
		StartDate: start,
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateHabit(ctx, habit); err != nil {
		return nil, err
	}
	return habit, nil
}

func (s *HabitService) Archive(ctx context.Context, id, userID string) error {
	habit, err := s.Get(ctx, id, userID)
	if err != nil {
		return err
	}
	if habit.IsArchived() {
		return nil
	}
	return s.repo.ArchiveHabit(ctx, id, time.Now().UTC())
}

func (s *HabitService) Unarchive(ctx context.Context, id, userID string) error {
	habit, err := s.Get(ctx, id, userID)
	if err != nil {
		return err
	}
	if !habit.IsArchived() {
		return nil
	}
	return s.repo.UnarchiveHabit(ctx, id)
}

// Delete removes the habit and all of its logs.
func (s *HabitService) Delete(ctx context.Context, id, userID string) error {
	if _, err := s.Get(ctx, id, userID); err != nil {
		return err
	}
	return s.repo.DeleteHabit(ctx, id)
}

// Reorder assigns display positions following orderedIDs, which must list
// each of the user's active habits exactly once.
func (s *HabitService) Reorder(ctx context.Context, userID string, orderedIDs []string) error {
	active, err := s.repo.ListHabits(ctx, userID, false)
	if err != nil {
		return err
	}

	known := make(map[string]bool, len(active))
	for _, h := range active {
		known[h.ID] = true
	}

	seen := make(map[string]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if !known[id] {
			return domain.ErrHabitNotFound
		}
		if seen[id] {
			return domain.NewValidationError("ids", "duplicate habit id "+id)
		}
		seen[id] = true
	}
	if len(seen) != len(known) {
		return domain.NewValidationError("ids", "order must list every active habit")
	}

	return s.repo.ReorderHabits(ctx, userID, orderedIDs)
}
