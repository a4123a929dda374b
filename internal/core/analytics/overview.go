package analytics

import (
	"sort"

	"github.com/comitanigiacomo/kanso-grid/internal/core/domain"
	"github.com/comitanigiacomo/kanso-grid/internal/core/schedule"
)

const (
	RankingWindowDays   = 30
	MinRankingScheduled = 6
	MaxRanked           = 3
	DefaultPeriodDays   = 30
)

// Summary is the per-habit detail view.
type Summary struct {
	HabitID       string      `json:"habit_id"`
	Name          string      `json:"name"`
	CurrentStreak int         `json:"current_streak"`
	LongestStreak int         `json:"longest_streak"`
	Last30        RateResult  `json:"last_30"`
	Trend         TrendResult `json:"trend"`
	// Year counts the last StreakHorizonDays, bounded by the start date.
	Year RateResult `json:"year"`
}

func Summarize(h *domain.Habit, logs Logs, today domain.Date) Summary {
	year := domain.LastNDays(today, StreakHorizonDays)
	return Summary{
		HabitID:       h.ID,
		Name:          h.Name,
		CurrentStreak: CurrentStreak(h, logs, today),
		LongestStreak: LongestStreak(h, logs, year.Start, year.End),
		Last30:        RateOver(h, logs, domain.LastNDays(today, RankingWindowDays)),
		Trend:         ComputeTrend(h, logs, today),
		Year:          RateOver(h, logs, year),
	}
}

// HabitRow is one habit's line in the overview.
type HabitRow struct {
	HabitID       string      `json:"habit_id"`
	Name          string      `json:"name"`
	Period        RateResult  `json:"period"`
	Last30        RateResult  `json:"last_30"`
	Trend         TrendResult `json:"trend"`
	CurrentStreak int         `json:"current_streak"`
	// Ranked is true when the habit has enough scheduled days in the last
	// 30 to appear in the consistent or slipping lists.
	Ranked bool `json:"ranked"`
}

type Overview struct {
	Today  domain.Date      `json:"today"`
	Period domain.DateRange `json:"period"`

	// Pooled across habits: sum of completed over sum of scheduled.
	Overall    RateResult `json:"overall"`
	TodayScore RateResult `json:"today_score"`

	Habits         []HabitRow   `json:"habits"`
	MostConsistent []HabitRow   `json:"most_consistent"`
	Slipping       []HabitRow   `json:"slipping"`
	Connections    []Connection `json:"connections"`
	// ConnectionsSkipped is set when there were too many active habits.
	ConnectionsSkipped bool `json:"connections_skipped"`
}

// ComputeOverview aggregates every active habit over the periodDays ending
// today.
func ComputeOverview(habits []*domain.Habit, logs Logs, today domain.Date, periodDays int) Overview {
	if periodDays < 1 {
		periodDays = DefaultPeriodDays
	}
	active := domain.ActiveHabits(habits)
	period := domain.LastNDays(today, periodDays)
	last30 := domain.LastNDays(today, RankingWindowDays)

	out := Overview{
		Today:          today,
		Period:         period,
		Habits:         make([]HabitRow, 0, len(active)),
		MostConsistent: []HabitRow{},
		Slipping:       []HabitRow{},
	}

	var completed, skipped, scheduled int
	var todayDone, todayScheduled int
	for _, h := range active {
		row := HabitRow{
			HabitID:       h.ID,
			Name:          h.Name,
			Period:        RateOver(h, logs, period),
			Last30:        RateOver(h, logs, last30),
			Trend:         ComputeTrend(h, logs, today),
			CurrentStreak: CurrentStreak(h, logs, today),
		}
		row.Ranked = row.Last30.Scheduled >= MinRankingScheduled
		out.Habits = append(out.Habits, row)

		completed += row.Period.Completed
		skipped += row.Period.Skipped
		scheduled += row.Period.Scheduled

		if schedule.IsHabitScheduled(h, today) {
			todayScheduled++
			if st, ok := logs.Status(h.ID, today); ok && st == domain.StatusCompleted {
				todayDone++
			}
		}
	}
	out.Overall = newRate(completed, skipped, scheduled)
	out.TodayScore = newRate(todayDone, 0, todayScheduled)

	out.MostConsistent = rankConsistent(out.Habits)
	out.Slipping = rankSlipping(out.Habits)

	conns, ok := Connections(active, logs, today)
	out.ConnectionsSkipped = !ok
	out.Connections = conns
	if out.Connections == nil {
		out.Connections = []Connection{}
	}
	return out
}

func rankConsistent(rows []HabitRow) []HabitRow {
	ranked := make([]HabitRow, 0, len(rows))
	for _, r := range rows {
		if r.Ranked {
			ranked = append(ranked, r)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Last30.Rate > ranked[j].Last30.Rate
	})
	if len(ranked) > MaxRanked {
		ranked = ranked[:MaxRanked]
	}
	return ranked
}

func rankSlipping(rows []HabitRow) []HabitRow {
	ranked := make([]HabitRow, 0, len(rows))
	for _, r := range rows {
		if r.Ranked && r.Trend.Delta < 0 {
			ranked = append(ranked, r)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Trend.Delta < ranked[j].Trend.Delta
	})
	if len(ranked) > MaxRanked {
		ranked = ranked[:MaxRanked]
	}
	return ranked
}
