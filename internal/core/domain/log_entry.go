package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrLogNotFound   = fmt.Errorf("%w: log entry", ErrNotFound)
	ErrInvalidStatus = NewValidationError("status", "status must be completed or skipped")
)

type Status string

const (
	StatusCompleted Status = "completed"
	StatusSkipped   Status = "skipped"
)

func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusCompleted:
		return StatusCompleted, nil
	case StatusSkipped:
		return StatusSkipped, nil
	}
	return "", ErrInvalidStatus
}

func (s Status) Valid() bool {
	return s == StatusCompleted || s == StatusSkipped
}

// CellState is the rendered state of one (habit, date) cell. Empty means no
// LogEntry exists, which is distinct from both Completed and Skipped.
type CellState int

const (
	CellEmpty CellState = iota
	CellCompleted
	CellSkipped
)

func (c CellState) String() string {
	switch c {
	case CellCompleted:
		return "completed"
	case CellSkipped:
		return "skipped"
	default:
		return "empty"
	}
}

func StateOf(entry *LogEntry) CellState {
	if entry == nil {
		return CellEmpty
	}
	switch entry.Status {
	case StatusCompleted:
		return CellCompleted
	case StatusSkipped:
		return CellSkipped
	}
	return CellEmpty
}

// LogEntry records the outcome of a habit on one calendar day. At most one
// entry exists per (HabitID, Date).
type LogEntry struct {
	ID        string    `json:"id" db:"id"`
	HabitID   string    `json:"habit_id" db:"habit_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Date      Date      `json:"date" db:"log_date"`
	Status    Status    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func NewLogEntry(userID, habitID string, date Date, status Status) *LogEntry {
	now := time.Now().UTC()

	return &LogEntry{
		ID:        uuid.NewString(),
		HabitID:   habitID,
		UserID:    userID,
		Date:      date,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (e *LogEntry) Validate() error {
	var errs ValidationErrors
	if strings.TrimSpace(e.HabitID) == "" {
		errs = append(errs, NewValidationError("habit_id", "habit id is required"))
	}
	if e.Date.IsZero() {
		errs = append(errs, NewValidationError("date", "date is required"))
	}
	if !e.Status.Valid() {
		errs = append(errs, ErrInvalidStatus)
	}
	return errs.OrNil()
}

func (e *LogEntry) Clone() *LogEntry {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}

// SortLogs orders entries by date then habit id, the canonical export order.
func SortLogs(logs []*LogEntry) {
	sort.SliceStable(logs, func(i, j int) bool {
		if c := logs[i].Date.Compare(logs[j].Date); c != 0 {
			return c < 0
		}
		return logs[i].HabitID < logs[j].HabitID
	})
}

// SortHabits orders habits by SortOrder, breaking ties by creation time.
func SortHabits(habits []*Habit) {
	sort.SliceStable(habits, func(i, j int) bool {
		if habits[i].SortOrder != habits[j].SortOrder {
			return habits[i].SortOrder < habits[j].SortOrder
		}
		return habits[i].CreatedAt.Before(habits[j].CreatedAt)
	})
}
