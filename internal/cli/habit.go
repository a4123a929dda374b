package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/comitanigiacomo/kanso-grid/internal/core/domain"
	"github.com/comitanigiacomo/kanso-grid/internal/core/services"
)

type HabitCmd struct {
	Add       HabitAddCmd       `cmd:"" help:"Add a habit."`
	List      HabitListCmd      `cmd:"" help:"List habits."`
	Archive   HabitArchiveCmd   `cmd:"" help:"Hide a habit from the grid, keeping its history."`
	Unarchive HabitUnarchiveCmd `cmd:"" help:"Bring an archived habit back."`
	Delete    HabitDeleteCmd    `cmd:"" help:"Delete a habit and all its logs."`
	Reorder   HabitReorderCmd   `cmd:"" help:"Set the display order."`
}

// habitService opens the backend and returns the service plus the user.
func (c *Context) habitService() (*services.HabitService, *Backend, string, error) {
	b, err := c.Backend()
	if err != nil {
		return nil, nil, "", err
	}
	userID, err := c.UserID()
	if err != nil {
		return nil, nil, "", err
	}
	return services.NewHabitService(b.Store), b, userID, nil
}

type HabitAddCmd struct {
	Name     string `arg:"" help:"Habit name."`
	Schedule string `short:"s" help:"everyday, a weekday list like mon,wed,fri, or Nx for N times a week." default:"everyday"`
	Icon     string `help:"Icon name."`
	Color    string `help:"Color as #RRGGBB."`
	Start    string `help:"Start date (YYYY-MM-DD), default today."`
}

func (c *HabitAddCmd) Run(ctx *Context) error {
	sched, err := parseSchedule(c.Schedule)
	if err != nil {
		return err
	}
	start, err := ctx.dateOrToday(c.Start)
	if err != nil {
		return err
	}
	svc, _, userID, err := ctx.habitService()
	if err != nil {
		return err
	}

	h, err := svc.Create(ctx.Ctx, services.CreateHabitInput{
		UserID:    userID,
		Name:      c.Name,
		Icon:      c.Icon,
		Color:     c.Color,
		Schedule:  sched,
		StartDate: start,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "Added %s (%s), %s from %s\n", h.Name, shortID(h.ID), h.Schedule, h.StartDate)
	return nil
}

type HabitListCmd struct {
	All bool `short:"a" help:"Include archived habits."`
}

func (c *HabitListCmd) Run(ctx *Context) error {
	svc, _, userID, err := ctx.habitService()
	if err != nil {
		return err
	}
	habits, err := svc.List(ctx.Ctx, userID, c.All)
	if err != nil {
		return err
	}
	if len(habits) == 0 {
		fmt.Fprintln(ctx.Out, "No habits found")
		return nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "NAME", "SCHEDULE", "START", "STATUS")
	for _, h := range habits {
		status := "active"
		if h.IsArchived() {
			status = "archived"
		}
		t.Row(shortID(h.ID), h.Name, h.Schedule.String(), h.StartDate.String(), status)
	}
	fmt.Fprintln(ctx.Out, t.String())
	return nil
}

type HabitArchiveCmd struct {
	Habit string `arg:"" help:"Habit id, id prefix or name."`
}

func (c *HabitArchiveCmd) Run(ctx *Context) error {
	return ctx.withHabit(c.Habit, func(svc *services.HabitService, h *domain.Habit, userID string) error {
		if err := svc.Archive(ctx.Ctx, h.ID, userID); err != nil {
			return err
		}
		fmt.Fprintf(ctx.Out, "Archived %s\n", h.Name)
		return nil
	})
}

type HabitUnarchiveCmd struct {
	Habit string `arg:"" help:"Habit id, id prefix or name."`
}

func (c *HabitUnarchiveCmd) Run(ctx *Context) error {
	return ctx.withHabit(c.Habit, func(svc *services.HabitService, h *domain.Habit, userID string) error {
		if err := svc.Unarchive(ctx.Ctx, h.ID, userID); err != nil {
			return err
		}
		fmt.Fprintf(ctx.Out, "Restored %s\n", h.Name)
		return nil
	})
}

type HabitDeleteCmd struct {
	Habit string `arg:"" help:"Habit id, id prefix or name."`
	Yes   bool   `short:"y" help:"Do not ask for confirmation."`
}

func (c *HabitDeleteCmd) Run(ctx *Context) error {
	if !c.Yes {
		return fmt.Errorf("deleting removes every log of the habit; pass --yes to confirm")
	}
	return ctx.withHabit(c.Habit, func(svc *services.HabitService, h *domain.Habit, userID string) error {
		if err := svc.Delete(ctx.Ctx, h.ID, userID); err != nil {
			return err
		}
		fmt.Fprintf(ctx.Out, "Deleted %s\n", h.Name)
		return nil
	})
}

type HabitReorderCmd struct {
	Habits []string `arg:"" help:"Active habits (id, prefix or name) in the new order."`
}

func (c *HabitReorderCmd) Run(ctx *Context) error {
	svc, b, userID, err := ctx.habitService()
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(c.Habits))
	for _, ref := range c.Habits {
		h, err := resolveHabit(ctx.Ctx, b.Store, userID, ref)
		if err != nil {
			return fmt.Errorf("%s: %w", ref, err)
		}
		ids = append(ids, h.ID)
	}
	if err := svc.Reorder(ctx.Ctx, userID, ids); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "Reordered %d habits\n", len(ids))
	return nil
}

func (c *Context) withHabit(ref string, fn func(*services.HabitService, *domain.Habit, string) error) error {
	svc, b, userID, err := c.habitService()
	if err != nil {
		return err
	}
	h, err := resolveHabit(c.Ctx, b.Store, userID, ref)
	if err != nil {
		return err
	}
	return fn(svc, h, userID)
}
