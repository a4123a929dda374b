package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/comitanigiacomo/kanso-grid/internal/core/domain"
	"github.com/comitanigiacomo/kanso-grid/internal/core/grid"
	"github.com/comitanigiacomo/kanso-grid/internal/logger"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.view.Resize(m.gridSize())
		if !m.restored && m.loaded {
			m.restored = true
			return m, m.restore()
		}
		m.follow()

	case reloadedMsg:
		if msg.err != nil {
			m.setError("reload failed", msg.err)
			return m, nil
		}
		m.loaded = true
		m.view.SetRows(len(m.ctl.Habits()))
		m.row = clamp(m.row, 0, max(0, m.view.Rows()-1))
		m.status = fmt.Sprintf("%d habits", m.view.Rows())
		m.failed = false
		// the saved offset can only be applied once rows and size are known
		if !m.restored && m.width > 0 {
			m.restored = true
			return m, m.restore()
		}

	case restoredMsg:
		if msg.err != nil {
			logger.Warn("viewport restore failed", "err", msg.err)
		}
		m.view.ScrollTo(msg.pos.X, msg.pos.Y)
		if _, c0 := m.firstCell(); m.col < c0 || m.col >= c0+m.visibleCols() {
			m.col = c0
		}

	case tapMsg:
		cmd := m.apply(grid.OpForTap(msg.Kind), msg.Subject.HabitID, msg.Subject.Date)
		return m, tea.Batch(cmd, m.waitForTap())

	case committedMsg:
		if msg.err != nil {
			m.setError("could not save "+msg.m.Date.String(), msg.err)
		}

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Up):
		m.row = max(0, m.row-1)
		m.follow()
	case key.Matches(msg, m.keys.Down):
		m.row = clamp(m.row+1, 0, max(0, m.view.Rows()-1))
		m.follow()
	case key.Matches(msg, m.keys.Left):
		m.col = max(0, m.col-1)
		m.follow()
	case key.Matches(msg, m.keys.Right):
		m.col = clamp(m.col+1, 0, max(0, m.view.Cols()-1))
		m.follow()
	case key.Matches(msg, m.keys.Today):
		m.col = m.view.TodayIndex()
		m.view.ScrollToToday()
		m.scrolled()
	case key.Matches(msg, m.keys.Reload):
		m.status = "reloading"
		return m, m.reload()
	case key.Matches(msg, m.keys.Complete):
		cmd := m.applyAtCursor(grid.OpToggleComplete)
		return m, cmd
	case key.Matches(msg, m.keys.Skip):
		cmd := m.applyAtCursor(grid.OpToggleSkip)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	const pointer = 0

	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		m.view.ScrollBy(0, -cellPx)
		m.scrolled()
	case msg.Button == tea.MouseButtonWheelDown:
		m.view.ScrollBy(0, cellPx)
		m.scrolled()
	case msg.Button == tea.MouseButtonWheelLeft:
		m.view.ScrollBy(-cellPx, 0)
		m.scrolled()
	case msg.Button == tea.MouseButtonWheelRight:
		m.view.ScrollBy(cellPx, 0)
		m.scrolled()

	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		row, col, ok := m.cellAt(msg.X, msg.Y)
		if !ok {
			m.taps.PointerCancel(pointer)
			return m, nil
		}
		subj, ok := m.subject(row, col)
		if !ok {
			m.taps.PointerCancel(pointer)
			return m, nil
		}
		m.row, m.col = row, col
		x, y := toPx(msg.X, msg.Y)
		m.taps.PointerDown(pointer, x, y, subj)
		sx, sy := m.view.Scroll()
		m.drag = &drag{x: msg.X, y: msg.Y, scrollX: sx, scrollY: sy}

	case msg.Action == tea.MouseActionMotion && m.drag != nil:
		dx, dy := toPx(msg.X-m.drag.x, msg.Y-m.drag.y)
		m.view.ScrollTo(m.drag.scrollX-dx, m.drag.scrollY-dy)
		m.scrolled()

	case msg.Action == tea.MouseActionRelease:
		x, y := toPx(msg.X, msg.Y)
		m.taps.PointerUp(pointer, x, y)
		m.drag = nil
	}
	return m, nil
}

func (m *Model) applyAtCursor(op grid.Op) tea.Cmd {
	subj, ok := m.subject(m.row, m.col)
	if !ok {
		return nil
	}
	return m.apply(op, subj.HabitID, subj.Date)
}

// apply shows the new cell state at once and saves it in the background.
func (m *Model) apply(op grid.Op, habitID string, date domain.Date) tea.Cmd {
	mut, err := m.ctl.Apply(op, habitID, date)
	if err != nil {
		m.setError("cannot change cell", err)
		return nil
	}
	m.status = fmt.Sprintf("%s %s", date, mut.Target())
	m.failed = false
	return m.commit(mut)
}

func (m *Model) setError(what string, err error) {
	logger.Warn(what, "err", err)
	m.status = what + ": " + err.Error()
	m.failed = true
}

// follow scrolls just enough to keep the cursor cell on screen.
func (m *Model) follow() {
	r0, c0 := m.firstCell()
	sx, sy := m.view.Scroll()
	if cols := m.visibleCols(); cols > 0 {
		switch {
		case m.col < c0:
			sx = float64(m.col) * cellPx
		case m.col >= c0+cols:
			sx = float64(m.col-cols+1) * cellPx
		}
	}
	if rows := m.visibleRows(); rows > 0 {
		switch {
		case m.row < r0:
			sy = float64(m.row) * cellPx
		case m.row >= r0+rows:
			sy = float64(m.row-rows+1) * cellPx
		}
	}
	if x, y := m.view.Scroll(); x != sx || y != sy {
		m.view.ScrollTo(sx, sy)
		m.scrolled()
	}
}

// scrolled hands the new offset to the debounced persister.
func (m *Model) scrolled() {
	m.persister.Scrolled(m.view.Scroll())
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
