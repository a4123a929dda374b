package repository

import (
	"context"
	"sync"
	"time"

	"github.com/comitanigiacomo/kanso-grid/internal/core/domain"
)

var (
	_ domain.Store       = (*MemoryStore)(nil)
	_ domain.Importer    = (*MemoryStore)(nil)
	_ domain.StreakCache = (*MemoryStore)(nil)
)

// MemoryStore is the in-process storage collaborator. Values are copied on
// the way in and out so callers never share state with the store.
type MemoryStore struct {
	habits  map[string]*domain.Habit
	logs    map[string]*domain.LogEntry
	streaks map[string]map[string]domain.StreakSnapshot

	mu sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		habits:  make(map[string]*domain.Habit),
		logs:    make(map[string]*domain.LogEntry),
		streaks: make(map[string]map[string]domain.StreakSnapshot),
	}
}

func cloneHabit(h *domain.Habit) *domain.Habit {
	c := *h
	if h.ArchivedAt != nil {
		at := *h.ArchivedAt
		c.ArchivedAt = &at
	}
	if h.Schedule.Days != nil {
		c.Schedule.Days = append(c.Schedule.Days[:0:0], h.Schedule.Days...)
	}
	return &c
}

func (r *MemoryStore) ListHabits(ctx context.Context, userID string, includeArchived bool) ([]*domain.Habit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	habits := []*domain.Habit{}
	for _, h := range r.habits {
		if h.UserID != userID || (!includeArchived && h.IsArchived()) {
			continue
		}
		habits = append(habits, cloneHabit(h))
	}
	domain.SortHabits(habits)
	return habits, nil
}

func (r *MemoryStore) GetHabit(ctx context.Context, id string) (*domain.Habit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.habits[id]
	if !ok {
		return nil, domain.ErrHabitNotFound
	}
	return cloneHabit(h), nil
}

func (r *MemoryStore) CreateHabit(ctx context.Context, habit *domain.Habit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.habits[habit.ID]; exists {
		return domain.NewValidationError("id", "habit already exists")
	}
	r.habits[habit.ID] = cloneHabit(habit)
	return nil
}

func (r *MemoryStore) UpdateHabit(ctx context.Context, habit *domain.Habit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.habits[habit.ID]; !ok {
		return domain.ErrHabitNotFound
	}
	r.habits[habit.ID] = cloneHabit(habit)
	return nil
}

func (r *MemoryStore) ArchiveHabit(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.habits[id]
	if !ok {
		return domain.ErrHabitNotFound
	}
	at = at.UTC()
	h.ArchivedAt = &at
	h.UpdatedAt = at
	return nil
}

func (r *MemoryStore) UnarchiveHabit(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.habits[id]
	if !ok {
		return domain.ErrHabitNotFound
	}
	h.ArchivedAt = nil
	h.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryStore) DeleteHabit(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.habits[id]
	if !ok {
		return domain.ErrHabitNotFound
	}
	delete(r.habits, id)
	for k, e := range r.logs {
		if e.HabitID == id {
			delete(r.logs, k)
		}
	}
	if byHabit, ok := r.streaks[h.UserID]; ok {
		delete(byHabit, id)
	}
	return nil
}

func (r *MemoryStore) ReorderHabits(ctx context.Context, userID string, orderedIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range orderedIDs {
		if h, ok := r.habits[id]; !ok || h.UserID != userID {
			return domain.ErrHabitNotFound
		}
	}
	now := time.Now().UTC()
	for i, id := range orderedIDs {
		r.habits[id].SortOrder = i
		r.habits[id].UpdatedAt = now
	}
	return nil
}

func (r *MemoryStore) GetLogsInRange(ctx context.Context, userID string, start, end domain.Date) ([]*domain.LogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rng := domain.DateRange{Start: start, End: end}
	logs := []*domain.LogEntry{}
	for _, e := range r.logs {
		if e.UserID == userID && rng.Contains(e.Date) {
			logs = append(logs, e.Clone())
		}
	}
	domain.SortLogs(logs)
	return logs, nil
}

func (r *MemoryStore) UpsertLog(ctx context.Context, userID, habitID string, date domain.Date, status domain.Status) (*domain.LogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.habits[habitID]; !ok {
		return nil, domain.ErrHabitNotFound
	}

	key := domain.LogKey(habitID, date)
	if e, ok := r.logs[key]; ok {
		e.Status = status
		e.UpdatedAt = time.Now().UTC()
		return e.Clone(), nil
	}

	e := domain.NewLogEntry(userID, habitID, date, status)
	r.logs[key] = e
	return e.Clone(), nil
}

func (r *MemoryStore) DeleteLog(ctx context.Context, userID, habitID string, date domain.Date) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := domain.LogKey(habitID, date)
	e, ok := r.logs[key]
	if !ok || e.UserID != userID {
		return false, nil
	}
	delete(r.logs, key)
	return true, nil
}

// ImportAll applies the whole batch under one lock. Habits owned by another
// user and logs for habits the importer does not own reject the batch.
func (r *MemoryStore) ImportAll(ctx context.Context, userID string, habits []*domain.Habit, logs []*domain.LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	owned := func(habitID string) bool {
		h, ok := r.habits[habitID]
		return ok && h.UserID == userID
	}
	incoming := make(map[string]bool, len(habits))
	for _, h := range habits {
		if existing, ok := r.habits[h.ID]; ok && existing.UserID != userID {
			return domain.ErrHabitNotFound
		}
		incoming[h.ID] = true
	}
	for _, e := range logs {
		if !incoming[e.HabitID] && !owned(e.HabitID) {
			return domain.ErrHabitNotFound
		}
	}

	for _, h := range habits {
		c := cloneHabit(h)
		c.UserID = userID
		r.habits[h.ID] = c
	}

	for _, e := range logs {
		key := domain.LogKey(e.HabitID, e.Date)
		c := e.Clone()
		c.UserID = userID
		if existing, ok := r.logs[key]; ok {
			c.ID = existing.ID
			c.CreatedAt = existing.CreatedAt
		}
		r.logs[key] = c
	}
	return nil
}

func (r *MemoryStore) SaveStreak(ctx context.Context, snap domain.StreakSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byHabit, ok := r.streaks[snap.UserID]
	if !ok {
		byHabit = make(map[string]domain.StreakSnapshot)
		r.streaks[snap.UserID] = byHabit
	}
	byHabit[snap.HabitID] = snap
	return nil
}

func (r *MemoryStore) ListStreaks(ctx context.Context, userID string) ([]domain.StreakSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.StreakSnapshot, 0, len(r.streaks[userID]))
	for _, s := range r.streaks[userID] {
		out = append(out, s)
	}
	return out, nil
}

func (r *MemoryStore) DeleteStreak(ctx context.Context, userID, habitID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if byHabit, ok := r.streaks[userID]; ok {
		delete(byHabit, habitID)
	}
	return nil
}
