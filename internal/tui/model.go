// Package tui renders the habits × dates grid in a terminal. Habit names
// and the date header stay fixed while the cells pan underneath them.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/comitanigiacomo/kanso-grid/internal/core/clock"
	"github.com/comitanigiacomo/kanso-grid/internal/core/domain"
	"github.com/comitanigiacomo/kanso-grid/internal/core/gesture"
	"github.com/comitanigiacomo/kanso-grid/internal/core/grid"
	"github.com/comitanigiacomo/kanso-grid/internal/core/viewport"
)

const (
	nameWidth  = 16
	cellWidth  = 3
	headerRows = 2
	footerRows = 2

	DefaultDays = 365

	// cellPx is the size of one cell in the virtual pixel space shared with
	// the viewport store, so positions saved here restore on other clients.
	cellPx   = grid.DefaultCellSize
	pxPerCol = cellPx / cellWidth
)

type Options struct {
	Store     domain.Store
	Viewports viewport.Store
	UserID    string
	Today     domain.Date
	// Days is the number of days loaded, ending today.
	Days     int
	Tap      gesture.Config
	Debounce time.Duration
	Clock    clock.Clock
}

type (
	tapMsg      gesture.Event
	reloadedMsg struct{ err error }
	restoredMsg struct {
		pos viewport.Position
		err error
	}
	committedMsg struct {
		m   *grid.Mutation
		err error
	}
)

type drag struct {
	x, y             int
	scrollX, scrollY float64
}

type Model struct {
	ctx       context.Context
	ctl       *grid.Controller
	view      *grid.View
	taps      *gesture.Disambiguator
	persister *viewport.Persister
	events    chan gesture.Event
	today     domain.Date

	keys KeyMap
	help help.Model

	width, height int
	row, col      int
	drag          *drag
	loaded        bool
	restored      bool
	status        string
	failed        bool
	quitting      bool
}

func New(ctx context.Context, opts Options) Model {
	if opts.Days <= 0 {
		opts.Days = DefaultDays
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Today.IsZero() {
		opts.Today = domain.DateOf(opts.Clock.Now())
	}
	if opts.Viewports == nil {
		opts.Viewports = viewport.NewMemoryStore()
	}

	window := domain.LastNDays(opts.Today, opts.Days)
	events := make(chan gesture.Event, 16)

	m := Model{
		ctx:       ctx,
		ctl:       grid.NewController(opts.Store, opts.UserID, window),
		view:      grid.NewView(grid.Layout{Dates: window, CellSize: cellPx}, opts.Today),
		persister: viewport.NewPersister(opts.Viewports, opts.UserID, opts.Debounce, opts.Clock),
		events:    events,
		today:     opts.Today,
		keys:      DefaultKeyMap(),
		help:      help.New(),
	}
	m.taps = gesture.NewDisambiguator(opts.Tap, opts.Clock, func(ev gesture.Event) {
		select {
		case events <- ev:
		default:
		}
	})
	m.col = m.view.TodayIndex()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.reload(), m.waitForTap())
}

// Close flushes the scroll position and waits for in-flight saves. Call it
// after the program has exited.
func (m Model) Close() {
	m.taps.Stop()
	m.persister.Flush()
	m.ctl.Wait()
}

func (m Model) reload() tea.Cmd {
	ctl, ctx := m.ctl, m.ctx
	return func() tea.Msg {
		return reloadedMsg{err: ctl.Reload(ctx)}
	}
}

func (m Model) restore() tea.Cmd {
	p, ctx := m.persister, m.ctx
	today, idx := m.today, m.view.TodayIndex()
	width, _ := m.gridSize()
	return func() tea.Msg {
		pos, err := p.Restore(ctx, today, idx, width, cellPx)
		return restoredMsg{pos: pos, err: err}
	}
}

func (m Model) waitForTap() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		return tapMsg(<-events)
	}
}

func (m Model) commit(mut *grid.Mutation) tea.Cmd {
	ctl, ctx := m.ctl, m.ctx
	return func() tea.Msg {
		return committedMsg{m: mut, err: ctl.Commit(ctx, mut)}
	}
}

// gridSize is the cell area in virtual pixels.
func (m Model) gridSize() (w, h float64) {
	cols := max(0, m.width-nameWidth) / cellWidth
	rows := max(0, m.height-headerRows-footerRows)
	return float64(cols) * cellPx, float64(rows) * cellPx
}

// visibleCols and visibleRows are the whole cells that fit on screen.
func (m Model) visibleCols() int { return max(0, m.width-nameWidth) / cellWidth }

func (m Model) visibleRows() int { return max(0, m.height-headerRows-footerRows) }

// firstCell is the top-left cell drawn at the current scroll position.
func (m Model) firstCell() (row, col int) {
	w := m.view.VisibleWindow()
	return max(0, w.Rows.Start), max(0, w.Cols.Start)
}

// cellAt maps a terminal position to the grid cell drawn there.
func (m Model) cellAt(x, y int) (row, col int, ok bool) {
	if x < nameWidth || y < headerRows {
		return 0, 0, false
	}
	dc, dr := (x-nameWidth)/cellWidth, y-headerRows
	if dc >= m.visibleCols() || dr >= m.visibleRows() {
		return 0, 0, false
	}
	r0, c0 := m.firstCell()
	row, col = r0+dr, c0+dc
	if row >= m.view.Rows() || col >= m.view.Cols() {
		return 0, 0, false
	}
	return row, col, true
}

func (m Model) subject(row, col int) (gesture.Subject, bool) {
	habits := m.ctl.Habits()
	if row < 0 || row >= len(habits) {
		return gesture.Subject{}, false
	}
	date, ok := m.view.DateAt(col)
	if !ok {
		return gesture.Subject{}, false
	}
	return gesture.Subject{HabitID: habits[row].ID, Date: date}, true
}

// toPx converts a terminal position to virtual pixels for the tap detector.
func toPx(x, y int) (float64, float64) {
	return float64(x) * pxPerCol, float64(y) * cellPx
}
