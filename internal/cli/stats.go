package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/comitanigiacomo/kanso-grid/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-grid/internal/core/analytics"
	"github.com/comitanigiacomo/kanso-grid/internal/core/services"
)

type StatsCmd struct {
	Habit  string `help:"Show the detail of one habit (id, prefix or name)."`
	Period int    `short:"p" help:"Period in days for the overview." default:"30"`
	Today  string `help:"Compute as of this day (YYYY-MM-DD)."`
}

func (c *StatsCmd) Run(ctx *Context) error {
	today, err := ctx.dateOrToday(c.Today)
	if err != nil {
		return err
	}
	b, err := ctx.Backend()
	if err != nil {
		return err
	}
	userID, err := ctx.UserID()
	if err != nil {
		return err
	}
	// streak snapshots belong to the server; locally everything is computed
	// on demand
	svc := services.NewAnalyticsService(b.Store, b.Store, repository.NewMemoryStore())

	if c.Habit != "" {
		h, err := resolveHabit(ctx.Ctx, b.Store, userID, c.Habit)
		if err != nil {
			return err
		}
		detail, err := svc.Habit(ctx.Ctx, userID, h.ID, today)
		if err != nil {
			return err
		}
		printDetail(ctx.Out, detail)
		return nil
	}

	ov, err := svc.Overview(ctx.Ctx, userID, today, c.Period)
	if err != nil {
		return err
	}
	printOverview(ctx.Out, ov)
	return nil
}

func pct(r analytics.RateResult) string {
	if r.Scheduled == 0 {
		return "-"
	}
	return fmt.Sprintf("%.0f%%", r.Rate*100)
}

func printOverview(w io.Writer, ov *analytics.Overview) {
	fmt.Fprintf(w, "%s to %s\n", ov.Period.Start, ov.Period.End)
	fmt.Fprintf(w, "Overall: %s (%d/%d)   Today: %d/%d\n\n",
		pct(ov.Overall), ov.Overall.Completed, ov.Overall.Scheduled,
		ov.TodayScore.Completed, ov.TodayScore.Scheduled)

	if len(ov.Habits) == 0 {
		fmt.Fprintln(w, "No active habits")
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("HABIT", "PERIOD", "30 DAYS", "TREND", "STREAK")
	for _, row := range ov.Habits {
		t.Row(row.Name, pct(row.Period), pct(row.Last30), string(row.Trend.Trend), fmt.Sprint(row.CurrentStreak))
	}
	fmt.Fprintln(w, t.String())

	printRanked(w, "Most consistent", ov.MostConsistent)
	printRanked(w, "Slipping", ov.Slipping)

	if ov.ConnectionsSkipped {
		fmt.Fprintln(w, "\nConnections: too many active habits to compare")
	} else if len(ov.Connections) > 0 {
		fmt.Fprintln(w, "\nConnections:")
		for _, c := range ov.Connections {
			fmt.Fprintf(w, "  %s → %s  %+.0f%%\n", c.FromName, c.ToName, c.Lift*100)
		}
	}
}

func printRanked(w io.Writer, title string, rows []analytics.HabitRow) {
	if len(rows) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, r := range rows {
		fmt.Fprintf(w, "  %-20s %s\n", r.Name, pct(r.Last30))
	}
}

func printDetail(w io.Writer, d *services.HabitDetail) {
	fmt.Fprintln(w, d.Name)
	fmt.Fprintf(w, "  Current streak: %d\n", d.CurrentStreak)
	fmt.Fprintf(w, "  Longest streak: %d\n", d.LongestStreak)
	fmt.Fprintf(w, "  Last 30 days:   %s (%d/%d, %d skipped)\n", pct(d.Last30), d.Last30.Completed, d.Last30.Scheduled, d.Last30.Skipped)
	fmt.Fprintf(w, "  Last year:      %s\n", pct(d.Year))
	fmt.Fprintf(w, "  Trend:          %s (%+.0f%%)\n", d.Trend.Trend, d.Trend.Delta*100)
}
