package domain

import (
	"context"
	"time"
)

// HabitRepository is the habit half of the storage collaborator. Every
// failure that is not a validation or not-found error must be reported as a
// *StorageError and means the operation was not applied.
type HabitRepository interface {
	// ListHabits returns the user's habits. Without includeArchived only
	// active habits are returned, ordered by SortOrder ascending.
	ListHabits(ctx context.Context, userID string, includeArchived bool) ([]*Habit, error)

	// GetHabit retrieves a habit by its unique identifier.
	GetHabit(ctx context.Context, id string) (*Habit, error)

	// CreateHabit persists a new habit definition.
	CreateHabit(ctx context.Context, habit *Habit) error

	// UpdateHabit replaces the stored state of an existing habit.
	UpdateHabit(ctx context.Context, habit *Habit) error

	ArchiveHabit(ctx context.Context, id string, at time.Time) error
	UnarchiveHabit(ctx context.Context, id string) error

	// DeleteHabit permanently removes a habit and, atomically, all its logs.
	DeleteHabit(ctx context.Context, id string) error

	// ReorderHabits assigns SortOrder 0..n-1 following orderedIDs.
	ReorderHabits(ctx context.Context, userID string, orderedIDs []string) error
}

// LogRepository is the log half of the storage collaborator.
type LogRepository interface {
	// GetLogsInRange returns the user's entries with start <= date <= end.
	GetLogsInRange(ctx context.Context, userID string, start, end Date) ([]*LogEntry, error)

	// UpsertLog creates or replaces in place the entry keyed by (habitID, date).
	// It never fails with a uniqueness violation.
	UpsertLog(ctx context.Context, userID, habitID string, date Date, status Status) (*LogEntry, error)

	// DeleteLog removes the entry keyed by (habitID, date) and reports whether
	// one existed.
	DeleteLog(ctx context.Context, userID, habitID string, date Date) (bool, error)
}

type Store interface {
	HabitRepository
	LogRepository
}

// Importer applies a validated bulk import atomically: habits are upserted by
// ID, logs by (habit, date).
type Importer interface {
	ImportAll(ctx context.Context, userID string, habits []*Habit, logs []*LogEntry) error
}
