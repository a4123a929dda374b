package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/comitanigiacomo/kanso-grid/internal/core/domain"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "loading..."
	}

	var b strings.Builder
	m.writeHeader(&b)
	m.writeRows(&b)

	status := statusStyle.Render(m.status)
	if m.failed {
		status = errorStyle.Render(m.status)
	}
	if n := m.ctl.PendingCount(); n > 0 {
		status += statusStyle.Render(fmt.Sprintf("  saving %d…", n))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		b.String(),
		status,
		m.help.View(m.keys),
	)
}

func (m Model) columns() (first, n int) {
	_, first = m.firstCell()
	n = min(m.visibleCols(), m.view.Cols()-first)
	return first, max(0, n)
}

// writeHeader draws the month line and the day-of-month line.
func (m Model) writeHeader(b *strings.Builder) {
	first, n := m.columns()

	months := []string{strings.Repeat(" ", nameWidth)}
	days := []string{padRight(headerStyle.Render("habit"), nameWidth, len("habit"))}
	for i := 0; i < n; i++ {
		date, _ := m.view.DateAt(first + i)
		label := "   "
		if i == 0 || date.Time().Day() == 1 {
			label = date.Time().Format("Jan")
		}
		months = append(months, headerStyle.Render(label))

		style := headerStyle
		if date.Equal(m.today) {
			style = todayHeaderStyle
		}
		days = append(days, style.Render(fmt.Sprintf("%2d ", date.Time().Day())))
	}
	b.WriteString(strings.Join(months, ""))
	b.WriteByte('\n')
	b.WriteString(strings.Join(days, ""))
	b.WriteByte('\n')
}

func (m Model) writeRows(b *strings.Builder) {
	habits := m.ctl.Habits()
	if len(habits) == 0 {
		if m.loaded {
			b.WriteString(statusStyle.Render("no habits yet, add one with `kanso habit add`"))
			b.WriteByte('\n')
		}
		return
	}

	r0, _ := m.firstCell()
	first, n := m.columns()
	rows := min(m.visibleRows(), len(habits)-r0)

	for r := r0; r < r0+rows; r++ {
		h := habits[r]
		name := truncate(h.Name, nameWidth-1)
		b.WriteString(padRight(habitNameStyle(h.Color).Render(name), nameWidth, lipgloss.Width(name)))

		for c := first; c < first+n; c++ {
			date, _ := m.view.DateAt(c)
			cell := m.renderCell(h, date)
			if r == m.row && c == m.col {
				cell = cursorStyle.Render(cell)
			}
			b.WriteString(cell)
		}
		b.WriteByte('\n')
	}
}

func (m Model) renderCell(h *domain.Habit, date domain.Date) string {
	switch m.ctl.CellState(h.ID, date) {
	case domain.CellCompleted:
		return completedStyle.Render(" ● ")
	case domain.CellSkipped:
		return skippedStyle.Render(" – ")
	}
	if date.After(m.today) || !m.ctl.IsScheduled(h.ID, date) {
		return mutedStyle.Render(" · ")
	}
	return emptyStyle.Render(" ○ ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// padRight pads an already styled string whose visible width is w.
func padRight(styled string, width, w int) string {
	if w >= width {
		return styled
	}
	return styled + strings.Repeat(" ", width-w)
}
