package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrHabitNotFound      = fmt.Errorf("%w: habit", ErrNotFound)
	ErrHabitNameEmpty     = NewValidationError("name", "habit name cannot be empty")
	ErrHabitNameTooLong   = NewValidationError("name", fmt.Sprintf("habit name is too long (max %d chars)", MaxNameLen))
	ErrHabitInvalidUserID = NewValidationError("user_id", "invalid user id")
	ErrInvalidColor       = NewValidationError("color", "invalid color format (must be #RRGGBB)")
	ErrStartDateMissing   = NewValidationError("start_date", "start date is required")
	ErrHabitArchived      = NewValidationError("archived_at", "cannot update an archived habit")
)

var colorRegex = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)

const (
	DefaultIcon = "default_icon"
	MaxNameLen  = 100
)

type Habit struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Name       string     `json:"name"`
	Icon       string     `json:"icon"`
	Color      string     `json:"color"`
	Schedule   Schedule   `json:"schedule_days"`
	StartDate  Date       `json:"start_date"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
	SortOrder  int        `json:"sort_order"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// HabitAttrs are the user editable fields of a habit.
type HabitAttrs struct {
	Name      string
	Icon      string
	Color     string
	Schedule  Schedule
	StartDate Date
}

func (a HabitAttrs) normalize() (HabitAttrs, error) {
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		return a, ErrHabitNameEmpty
	}
	if len([]rune(a.Name)) > MaxNameLen {
		return a, ErrHabitNameTooLong
	}

	a.Color = strings.TrimSpace(a.Color)
	if a.Color != "" && !colorRegex.MatchString(a.Color) {
		return a, ErrInvalidColor
	}

	if a.Icon == "" {
		a.Icon = DefaultIcon
	}

	if err := a.Schedule.Validate(); err != nil {
		return a, err
	}
	if a.Schedule.Kind == ScheduleSpecificDays {
		a.Schedule.Days = normalizeWeekdays(a.Schedule.Days)
	}

	if a.StartDate.IsZero() {
		return a, ErrStartDateMissing
	}
	return a, nil
}

func NewHabit(userID string, attrs HabitAttrs) (*Habit, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrHabitInvalidUserID
	}

	clean, err := attrs.normalize()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	return &Habit{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      clean.Name,
		Icon:      clean.Icon,
		Color:     clean.Color,
		Schedule:  clean.Schedule,
		StartDate: clean.StartDate,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (h *Habit) Update(attrs HabitAttrs) error {
	if h.ArchivedAt != nil {
		return ErrHabitArchived
	}

	clean, err := attrs.normalize()
	if err != nil {
		return err
	}

	h.Name = clean.Name
	h.Icon = clean.Icon
	h.Color = clean.Color
	h.Schedule = clean.Schedule
	h.StartDate = clean.StartDate
	h.UpdatedAt = time.Now().UTC()
	return nil
}

// Validate checks a habit that did not go through NewHabit, e.g. one
// decoded from an import payload.
func (h *Habit) Validate() error {
	var errs ValidationErrors
	if strings.TrimSpace(h.ID) == "" {
		errs = append(errs, NewValidationError("id", "habit id is required"))
	}
	if _, err := (HabitAttrs{
		Name:      h.Name,
		Icon:      h.Icon,
		Color:     h.Color,
		Schedule:  h.Schedule,
		StartDate: h.StartDate,
	}).normalize(); err != nil {
		if ve, ok := err.(*ValidationError); ok {
			errs = append(errs, ve)
		} else {
			errs = append(errs, NewValidationError("schedule_days", err.Error()))
		}
	}
	return errs.OrNil()
}

func (h *Habit) IsArchived() bool { return h.ArchivedAt != nil }

func (h *Habit) ChangePosition(newOrder int) error {
	if h.ArchivedAt != nil {
		return ErrHabitArchived
	}

	h.SortOrder = newOrder
	h.UpdatedAt = time.Now().UTC()
	return nil
}

func (h *Habit) Archive() {
	if h.ArchivedAt != nil {
		return
	}

	now := time.Now().UTC()
	h.ArchivedAt = &now
	h.UpdatedAt = now
}

func (h *Habit) Restore() {
	if h.ArchivedAt == nil {
		return
	}
	h.ArchivedAt = nil
	h.UpdatedAt = time.Now().UTC()
}

// ActiveHabits keeps non-archived habits, preserving order.
func ActiveHabits(habits []*Habit) []*Habit {
	out := make([]*Habit, 0, len(habits))
	for _, h := range habits {
		if !h.IsArchived() {
			out = append(out, h)
		}
	}
	return out
}
