// Package analytics derives streaks, completion rates, trends and habit
// connections from habits and their logs. Every function is pure: it reads
// the log lookup it is given and never modifies it.
package analytics

import (
	"github.com/comitanigiacomo/kanso-grid/internal/core/domain"
	"github.com/comitanigiacomo/kanso-grid/internal/core/schedule"
)

// epsilon absorbs float noise at classification thresholds, so a delta
// that is 0.20 on paper is not classified as 0.19999999999999996.
const epsilon = 1e-9

// Logs is the read-only lookup analytics runs on. *domain.LogIndex
// satisfies it.
type Logs interface {
	Status(habitID string, date domain.Date) (domain.Status, bool)
}

// RateResult is a completion rate with its sample. Rate is 0 when Scheduled
// is 0; check HasData before presenting it as a percentage.
type RateResult struct {
	Completed int     `json:"completed"`
	Skipped   int     `json:"skipped"`
	Scheduled int     `json:"scheduled"`
	Rate      float64 `json:"rate"`
}

func (r RateResult) HasData() bool { return r.Scheduled > 0 }

func newRate(completed, skipped, scheduled int) RateResult {
	r := RateResult{Completed: completed, Skipped: skipped, Scheduled: scheduled}
	if scheduled > 0 {
		r.Rate = float64(completed) / float64(scheduled)
	}
	return r
}

// Rate is completed scheduled days over scheduled days in [start, end].
func Rate(h *domain.Habit, logs Logs, start, end domain.Date) RateResult {
	completed, skipped, scheduled := 0, 0, 0
	for _, d := range schedule.DatesInRange(start, end, h.Schedule, h.StartDate) {
		scheduled++
		st, ok := logs.Status(h.ID, d)
		if !ok {
			continue
		}
		switch st {
		case domain.StatusCompleted:
			completed++
		case domain.StatusSkipped:
			skipped++
		}
	}
	return newRate(completed, skipped, scheduled)
}

func RateOver(h *domain.Habit, logs Logs, r domain.DateRange) RateResult {
	return Rate(h, logs, r.Start, r.End)
}

// RatePoint is one sample of a rolling rate series.
type RatePoint struct {
	Date domain.Date `json:"date"`
	RateResult
}

// RollingRates returns points samples, oldest first, each the rate over the
// window days ending on its date. The last sample ends on end.
func RollingRates(h *domain.Habit, logs Logs, end domain.Date, window, points int) []RatePoint {
	if window < 1 || points < 1 {
		return nil
	}
	out := make([]RatePoint, 0, points)
	for i := points - 1; i >= 0; i-- {
		d := end.AddDays(-i)
		out = append(out, RatePoint{Date: d, RateResult: RateOver(h, logs, domain.LastNDays(d, window))})
	}
	return out
}
