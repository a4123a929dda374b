// Package schedule maps a habit schedule and a date range to the set of days
// on which the habit is expected. Both the grid and analytics build on it.
package schedule

import (
	"github.com/comitanigiacomo/kanso-grid/internal/core/domain"
)

// IsScheduled reports whether date is a scheduled day for a habit with the
// given schedule and start date. Frequency habits place no per-day
// restriction: every day on or after the start date is eligible.
func IsScheduled(date domain.Date, s domain.Schedule, start domain.Date) bool {
	if !start.IsZero() && date.Before(start) {
		return false
	}

	switch s.Kind {
	case domain.ScheduleEveryday:
		return true
	case domain.ScheduleSpecificDays:
		return s.HasDay(date.Weekday())
	case domain.ScheduleFrequency:
		return true
	default:
		return false
	}
}

// IsHabitScheduled is IsScheduled for a habit value.
func IsHabitScheduled(h *domain.Habit, date domain.Date) bool {
	return IsScheduled(date, h.Schedule, h.StartDate)
}

// DatesInRange returns the scheduled dates within [start, end] in ascending
// order. It is empty when start > end or the habit starts after end.
func DatesInRange(start, end domain.Date, s domain.Schedule, habitStart domain.Date) []domain.Date {
	if start.After(end) {
		return nil
	}
	if !habitStart.IsZero() {
		if habitStart.After(end) {
			return nil
		}
		start = domain.MaxDate(start, habitStart)
	}

	out := make([]domain.Date, 0, domain.DaysBetween(start, end)+1)
	for d := start; !d.After(end); d = d.AddDays(1) {
		if IsScheduled(d, s, habitStart) {
			out = append(out, d)
		}
	}
	return out
}

// HabitDatesInRange is DatesInRange for a habit value.
func HabitDatesInRange(h *domain.Habit, r domain.DateRange) []domain.Date {
	return DatesInRange(r.Start, r.End, h.Schedule, h.StartDate)
}

// CountInRange counts scheduled dates without allocating the list.
func CountInRange(start, end domain.Date, s domain.Schedule, habitStart domain.Date) int {
	if start.After(end) {
		return 0
	}
	if !habitStart.IsZero() {
		if habitStart.After(end) {
			return 0
		}
		start = domain.MaxDate(start, habitStart)
	}

	n := 0
	for d := start; !d.After(end); d = d.AddDays(1) {
		if IsScheduled(d, s, habitStart) {
			n++
		}
	}
	return n
}
