package cli

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/comitanigiacomo/kanso-grid/internal/core/gesture"
	"github.com/comitanigiacomo/kanso-grid/internal/tui"
)

type GridCmd struct {
	Days          int           `help:"Number of days loaded, ending today." default:"365"`
	MoveThreshold float64       `help:"Pointer travel that turns a click into a drag." default:"8" env:"TAP_MOVE_THRESHOLD"`
	DoubleTap     time.Duration `help:"Double click window." default:"300ms" env:"TAP_DOUBLE_WINDOW"`
	SaveDebounce  time.Duration `help:"Idle time before the scroll position is saved." default:"300ms" env:"VIEWPORT_DEBOUNCE"`
}

func (c *GridCmd) Run(ctx *Context) error {
	today, err := ctx.Today()
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

	model := tui.New(ctx.Ctx, tui.Options{
		Store:     b.Store,
		Viewports: b.Viewports,
		UserID:    userID,
		Today:     today,
		Days:      c.Days,
		Tap:       gesture.Config{MovementThreshold: c.MoveThreshold, DoubleTapWindow: c.DoubleTap},
		Debounce:  c.SaveDebounce,
		Clock:     ctx.Clock,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx.Ctx))
	final, err := p.Run()
	if m, ok := final.(tui.Model); ok {
		m.Close()
	}
	if err != nil {
		return fmt.Errorf("grid: %w", err)
	}
	return nil
}
