package analytics

import (
	"github.com/comitanigiacomo/kanso-grid/internal/core/domain"
	"github.com/comitanigiacomo/kanso-grid/internal/core/schedule"
)

// StreakHorizonDays bounds how far back a current streak is searched.
const StreakHorizonDays = 365

// CurrentStreak counts consecutive completed scheduled days ending today,
// scanning the last StreakHorizonDays newest first. An unlogged today is
// passed over since the day is not over yet; a skipped day, or an unlogged
// past day, ends the streak. A skipped today yields 0.
func CurrentStreak(h *domain.Habit, logs Logs, today domain.Date) int {
	r := domain.LastNDays(today, StreakHorizonDays)
	dates := schedule.DatesInRange(r.Start, r.End, h.Schedule, h.StartDate)

	streak := 0
	for i := len(dates) - 1; i >= 0; i-- {
		d := dates[i]
		st, ok := logs.Status(h.ID, d)

		if d.Equal(today) && !ok {
			continue
		}
		if !ok || st != domain.StatusCompleted {
			break
		}
		streak++
	}
	return streak
}

// LongestStreak is the longest run of completed scheduled days in
// [start, end]. Skipped and empty days both reset the run.
func LongestStreak(h *domain.Habit, logs Logs, start, end domain.Date) int {
	run, longest := 0, 0
	for _, d := range schedule.DatesInRange(start, end, h.Schedule, h.StartDate) {
		if st, ok := logs.Status(h.ID, d); ok && st == domain.StatusCompleted {
			run++
			if run > longest {
				longest = run
			}
			continue
		}
		run = 0
	}
	return longest
}
