package analytics

import (
	"sort"

	"github.com/comitanigiacomo/kanso-grid/internal/core/domain"
	"github.com/comitanigiacomo/kanso-grid/internal/core/schedule"
)

const (
	ConnectionWindowDays = 30
	MaxConnectionHabits  = 15
	MinCompletedSample   = 10
	MinMissedSample      = 5
	MinLift              = 0.15
	MaxConnections       = 3
)

// Connection says completing From goes with completing To more often.
type Connection struct {
	From     string  `json:"from_habit_id"`
	FromName string  `json:"from_name"`
	To       string  `json:"to_habit_id"`
	ToName   string  `json:"to_name"`
	Lift     float64 `json:"lift"`

	// PGiven is P(To completed | From completed), PGivenNot the same when
	// From was not completed.
	PGiven    float64 `json:"p_given"`
	PGivenNot float64 `json:"p_given_not"`

	SampleCompleted int `json:"sample_completed"`
	SampleMissed    int `json:"sample_missed"`
}

type dayFlags struct {
	scheduled bool
	completed bool
}

// Connections ranks ordered pairs of active habits by lift over the last
// ConnectionWindowDays (today included), using only days on which both
// habits are scheduled. Pairs need MinCompletedSample days with From
// completed and MinMissedSample without, and at least MinLift. The second
// result is false when there are too many active habits to compare.
func Connections(habits []*domain.Habit, logs Logs, today domain.Date) ([]Connection, bool) {
	active := domain.ActiveHabits(habits)
	if len(active) > MaxConnectionHabits {
		return nil, false
	}

	r := domain.LastNDays(today, ConnectionWindowDays)
	days := r.Dates()

	flags := make([][]dayFlags, len(active))
	for i, h := range active {
		flags[i] = make([]dayFlags, len(days))
		for j, d := range days {
			if !schedule.IsHabitScheduled(h, d) {
				continue
			}
			st, ok := logs.Status(h.ID, d)
			flags[i][j] = dayFlags{scheduled: true, completed: ok && st == domain.StatusCompleted}
		}
	}

	var out []Connection
	for a := range active {
		for b := range active {
			if a == b {
				continue
			}

			var withA, withABoth, withoutA, withoutABoth int
			for j := range days {
				fa, fb := flags[a][j], flags[b][j]
				if !fa.scheduled || !fb.scheduled {
					continue
				}
				if fa.completed {
					withA++
					if fb.completed {
						withABoth++
					}
				} else {
					withoutA++
					if fb.completed {
						withoutABoth++
					}
				}
			}

			if withA < MinCompletedSample || withoutA < MinMissedSample {
				continue
			}

			pGiven := float64(withABoth) / float64(withA)
			pGivenNot := float64(withoutABoth) / float64(withoutA)
			lift := pGiven - pGivenNot
			if lift < MinLift-epsilon {
				continue
			}

			out = append(out, Connection{
				From:            active[a].ID,
				FromName:        active[a].Name,
				To:              active[b].ID,
				ToName:          active[b].Name,
				Lift:            lift,
				PGiven:          pGiven,
				PGivenNot:       pGivenNot,
				SampleCompleted: withA,
				SampleMissed:    withoutA,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Lift != out[j].Lift {
			return out[i].Lift > out[j].Lift
		}
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	if len(out) > MaxConnections {
		out = out[:MaxConnections]
	}
	return out, true
}
