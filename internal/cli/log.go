package cli

import (
	"fmt"

	"github.com/comitanigiacomo/kanso-grid/internal/core/domain"
	"github.com/comitanigiacomo/kanso-grid/internal/core/services"
)

type LogCmd struct {
	Set   LogSetCmd   `cmd:"" help:"Mark a day completed or skipped."`
	Clear LogClearCmd `cmd:"" help:"Empty a day."`
}

func (c *Context) logTarget(ref, date string) (*services.LogService, *domain.Habit, domain.Date, string, error) {
	d, err := c.dateOrToday(date)
	if err != nil {
		return nil, nil, domain.Date{}, "", err
	}
	b, err := c.Backend()
	if err != nil {
		return nil, nil, domain.Date{}, "", err
	}
	userID, err := c.UserID()
	if err != nil {
		return nil, nil, domain.Date{}, "", err
	}
	h, err := resolveHabit(c.Ctx, b.Store, userID, ref)
	if err != nil {
		return nil, nil, domain.Date{}, "", err
	}
	return services.NewLogService(b.Store, b.Store, nil), h, d, userID, nil
}

type LogSetCmd struct {
	Habit  string `arg:"" help:"Habit id, id prefix or name."`
	Status string `arg:"" optional:"" enum:"completed,skipped" default:"completed" help:"completed or skipped."`
	Date   string `short:"d" help:"Day (YYYY-MM-DD), default today."`
}

func (c *LogSetCmd) Run(ctx *Context) error {
	svc, h, date, userID, err := ctx.logTarget(c.Habit, c.Date)
	if err != nil {
		return err
	}
	status, err := domain.ParseStatus(c.Status)
	if err != nil {
		return err
	}
	if _, err := svc.Set(ctx.Ctx, userID, h.ID, date, status); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "%s %s: %s\n", h.Name, date, status)
	return nil
}

type LogClearCmd struct {
	Habit string `arg:"" help:"Habit id, id prefix or name."`
	Date  string `short:"d" help:"Day (YYYY-MM-DD), default today."`
}

func (c *LogClearCmd) Run(ctx *Context) error {
	svc, h, date, userID, err := ctx.logTarget(c.Habit, c.Date)
	if err != nil {
		return err
	}
	deleted, err := svc.Clear(ctx.Ctx, userID, h.ID, date)
	if err != nil {
		return err
	}
	if !deleted {
		fmt.Fprintf(ctx.Out, "%s %s was already empty\n", h.Name, date)
		return nil
	}
	fmt.Fprintf(ctx.Out, "%s %s: cleared\n", h.Name, date)
	return nil
}
