package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-grid/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-grid/internal/core/clock"
	"github.com/comitanigiacomo/kanso-grid/internal/core/domain"
	"github.com/comitanigiacomo/kanso-grid/internal/core/viewport"
)

const testUser = "tui-user"

var testToday = domain.MustParseDate("2024-06-14")

type fixture struct {
	store     *repository.MemoryStore
	viewports *viewport.MemoryStore
	clock     *clock.Fake
	habits    []*domain.Habit
}

func setup(t *testing.T) (Model, *fixture) {
	t.Helper()

	f := &fixture{
		store:     repository.NewMemoryStore(),
		viewports: viewport.NewMemoryStore(),
		clock:     clock.NewFake(time.Date(2024, 6, 14, 9, 0, 0, 0, time.UTC)),
	}
	ctx := context.Background()
	for i, name := range []string{"Read", "Run"} {
		h, err := domain.NewHabit(testUser, domain.HabitAttrs{
			Name:      name,
			Schedule:  domain.Everyday(),
			StartDate: domain.MustParseDate("2024-01-01"),
		})
		require.NoError(t, err)
		h.SortOrder = i
		require.NoError(t, f.store.CreateHabit(ctx, h))
		f.habits = append(f.habits, h)
	}

	m := New(ctx, Options{
		Store:     f.store,
		Viewports: f.viewports,
		UserID:    testUser,
		Today:     testToday,
		Days:      30,
		Clock:     f.clock,
	})

	m = step(t, m, m.reload()())
	m, cmd := update(t, m, tea.WindowSizeMsg{Width: nameWidth + cellWidth*10, Height: headerRows + footerRows + 5})
	require.NotNil(t, cmd, "restore should follow the first resize")
	m = step(t, m, cmd())

	return m, f
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

// step applies msg and runs the returned command, if any, feeding its message
// back in once.
func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	m, cmd := update(t, m, msg)
	if cmd != nil {
		m, _ = update(t, m, cmd())
	}
	return m
}

func (f *fixture) status(t *testing.T, habitID string) domain.CellState {
	t.Helper()
	logs, err := f.store.GetLogsInRange(context.Background(), testUser, testToday, testToday)
	require.NoError(t, err)
	for _, e := range logs {
		if e.HabitID == habitID {
			return domain.StateOf(e)
		}
	}
	return domain.CellEmpty
}

func keyPress(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// screenOf returns the terminal position of the cell (row, col).
func screenOf(m Model, row, col int) (int, int) {
	r0, c0 := m.firstCell()
	return nameWidth + (col-c0)*cellWidth + 1, headerRows + (row - r0)
}

func click(t *testing.T, m Model, x, y int) Model {
	t.Helper()
	m, _ = update(t, m, tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m, _ = update(t, m, tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	return m
}

// deliverTap feeds the next emitted tap into the model and runs its commit.
func deliverTap(t *testing.T, m Model) Model {
	t.Helper()
	var msg tea.Msg
	select {
	case ev := <-m.events:
		msg = tapMsg(ev)
	default:
		t.Fatal("no tap emitted")
	}
	m, cmd := update(t, m, msg)
	require.NotNil(t, cmd)
	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok)
	m, _ = update(t, m, batch[0]())
	return m
}

func TestModel_Open(t *testing.T) {
	t.Run("Success: First open centers today", func(t *testing.T) {
		m, f := setup(t)

		assert.True(t, m.loaded)
		assert.Equal(t, 2, m.view.Rows())
		x, _ := m.view.Scroll()
		maxX, _ := m.view.MaxScroll()
		assert.Equal(t, maxX, x, "today is the last column so centering clamps to the edge")
		assert.Equal(t, 29, m.col)

		saved, err := f.viewports.LoadViewport(context.Background(), testUser)
		require.NoError(t, err)
		assert.True(t, saved.LastOpened.Equal(testToday))
	})

	t.Run("Success: Renders names and header", func(t *testing.T) {
		m, _ := setup(t)

		out := m.View()
		assert.Contains(t, out, "Read")
		assert.Contains(t, out, "Run")
		assert.Contains(t, out, "14")
	})
}

func TestModel_Keys(t *testing.T) {
	t.Run("Success: Space completes and s skips", func(t *testing.T) {
		m, f := setup(t)

		m = step(t, m, keyPress(" "))
		assert.Equal(t, domain.CellCompleted, f.status(t, f.habits[0].ID))

		m = step(t, m, keyPress("s"))
		assert.Equal(t, domain.CellSkipped, f.status(t, f.habits[0].ID))

		m = step(t, m, keyPress("s"))
		assert.Equal(t, domain.CellEmpty, f.status(t, f.habits[0].ID))
		assert.Zero(t, m.ctl.PendingCount())
	})

	t.Run("Success: Cursor moves and follows", func(t *testing.T) {
		m, _ := setup(t)

		m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
		assert.Equal(t, 1, m.row)
		m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
		assert.Equal(t, 1, m.row, "cursor stays on the last habit")

		for i := 0; i < 12; i++ {
			m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
		}
		assert.Equal(t, 17, m.col)
		_, c0 := m.firstCell()
		assert.Equal(t, 17, c0)

		m, _ = update(t, m, keyPress("t"))
		assert.Equal(t, 29, m.col)
	})

	t.Run("Success: Quit", func(t *testing.T) {
		m, _ := setup(t)

		m, cmd := update(t, m, keyPress("q"))
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
		assert.Empty(t, m.View())
	})

	t.Run("Fail: Save error reverts the cell", func(t *testing.T) {
		m, f := setup(t)
		require.NoError(t, f.store.DeleteHabit(context.Background(), f.habits[0].ID))

		m = step(t, m, keyPress(" "))

		assert.True(t, m.failed)
		assert.Equal(t, domain.CellEmpty, m.ctl.CellState(f.habits[0].ID, testToday))
	})
}

func TestModel_Mouse(t *testing.T) {
	t.Run("Success: Single click completes after the window", func(t *testing.T) {
		m, f := setup(t)
		x, y := screenOf(m, 1, 29)

		m = click(t, m, x, y)
		assert.Equal(t, domain.CellEmpty, f.status(t, f.habits[1].ID), "nothing happens before the window closes")

		f.clock.Advance(m.taps.Config().DoubleTapWindow)
		m = deliverTap(t, m)

		assert.Equal(t, domain.CellCompleted, f.status(t, f.habits[1].ID))
		assert.Equal(t, 1, m.row)
	})

	t.Run("Success: Double click skips", func(t *testing.T) {
		m, f := setup(t)
		x, y := screenOf(m, 1, 29)

		m = click(t, m, x, y)
		m = click(t, m, x, y)
		m = deliverTap(t, m)

		assert.Equal(t, domain.CellSkipped, f.status(t, f.habits[1].ID))
		assert.False(t, m.taps.Pending())
	})

	t.Run("Success: Drag pans and persists the offset", func(t *testing.T) {
		m, f := setup(t)
		x, y := screenOf(m, 0, 25)
		before, _ := m.view.Scroll()

		m, _ = update(t, m, tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
		m, _ = update(t, m, tea.MouseMsg{X: x + cellWidth, Y: y, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
		m, _ = update(t, m, tea.MouseMsg{X: x + cellWidth, Y: y, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})

		after, _ := m.view.Scroll()
		assert.InDelta(t, before-cellPx, after, 1e-9)
		assert.False(t, m.taps.Pending(), "a drag is not a tap")

		assert.True(t, m.persister.Pending())
		f.clock.Advance(300 * time.Millisecond)
		saved, err := f.viewports.LoadViewport(context.Background(), testUser)
		require.NoError(t, err)
		require.NotNil(t, saved.Offset)
		assert.InDelta(t, after, saved.Offset.X, 1e-9)
	})

	t.Run("Success: Reopen restores the saved offset", func(t *testing.T) {
		m, f := setup(t)
		m.view.ScrollTo(5*cellPx, 0)
		m.scrolled()
		m.Close()

		again := New(context.Background(), Options{
			Store: f.store, Viewports: f.viewports, UserID: testUser,
			Today: testToday, Days: 30, Clock: f.clock,
		})
		again = step(t, again, again.reload()())
		again, cmd := update(t, again, tea.WindowSizeMsg{Width: nameWidth + cellWidth*10, Height: 9})
		require.NotNil(t, cmd)
		again = step(t, again, cmd())

		x, _ := again.view.Scroll()
		assert.Equal(t, 5*cellPx, x)
		_, c0 := again.firstCell()
		assert.Equal(t, 5, c0)
		assert.Equal(t, c0, again.col, "cursor moves into the restored window")
	})
}
