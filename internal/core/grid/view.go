package grid

import (
	"math"

	"github.com/comitanigiacomo/kanso-grid/internal/core/domain"
)

// Layout fixes the geometry of a grid.
type Layout struct {
	Dates    domain.DateRange
	Rows     int
	CellSize float64
	Overscan int
}

// View tracks the scroll position of a grid and answers the renderer's
// geometric questions. Scroll offsets are always kept within the scrollable
// area. A View is owned by a single UI loop and is not goroutine safe.
type View struct {
	layout Layout
	today  domain.Date

	width, height    float64
	scrollX, scrollY float64
}

func NewView(layout Layout, today domain.Date) *View {
	if layout.CellSize <= 0 {
		layout.CellSize = DefaultCellSize
	}
	if layout.Overscan < 0 {
		layout.Overscan = DefaultOverscan
	}
	return &View{layout: layout, today: today}
}

func (v *View) Layout() Layout { return v.layout }

// SetRows updates the habit count, e.g. after a reload.
func (v *View) SetRows(n int) {
	v.layout.Rows = n
	v.clamp()
}

func (v *View) SetToday(today domain.Date) { v.today = today }

func (v *View) Resize(width, height float64) {
	v.width, v.height = width, height
	v.clamp()
}

func (v *View) Cols() int { return v.layout.Dates.Days() }

func (v *View) Rows() int { return v.layout.Rows }

func (v *View) Scroll() (x, y float64) { return v.scrollX, v.scrollY }

// MaxScroll is the largest offset on each axis that keeps the viewport on the
// grid.
func (v *View) MaxScroll() (x, y float64) {
	x = math.Max(0, float64(v.Cols())*v.layout.CellSize-v.width)
	y = math.Max(0, float64(v.layout.Rows)*v.layout.CellSize-v.height)
	return x, y
}

func (v *View) ScrollTo(x, y float64) {
	v.scrollX, v.scrollY = x, y
	v.clamp()
}

func (v *View) ScrollBy(dx, dy float64) {
	v.ScrollTo(v.scrollX+dx, v.scrollY+dy)
}

func (v *View) clamp() {
	maxX, maxY := v.MaxScroll()
	v.scrollX = math.Min(math.Max(0, v.scrollX), maxX)
	v.scrollY = math.Min(math.Max(0, v.scrollY), maxY)
}

// VisibleWindow is the block of rows and columns to render at the current
// scroll position.
func (v *View) VisibleWindow() Window {
	return VisibleWindow(v.scrollX, v.scrollY, v.width, v.height,
		v.layout.CellSize, v.layout.Overscan, v.layout.Rows, v.Cols())
}

// ColumnOf returns the column of date, or false when it lies outside the grid.
func (v *View) ColumnOf(date domain.Date) (int, bool) {
	if !v.layout.Dates.Contains(date) {
		return 0, false
	}
	return domain.DaysBetween(v.layout.Dates.Start, date), true
}

func (v *View) DateAt(col int) (domain.Date, bool) {
	if col < 0 || col >= v.Cols() {
		return domain.Date{}, false
	}
	return v.layout.Dates.Start.AddDays(col), true
}

// TodayIndex is the column of today, clamped into the grid when today falls
// outside the loaded range.
func (v *View) TodayIndex() int {
	n := v.Cols()
	if n == 0 {
		return 0
	}
	return clamp(domain.DaysBetween(v.layout.Dates.Start, v.today), 0, n-1)
}

// CenterOffset is the horizontal offset that centers col in the viewport.
func (v *View) CenterOffset(col int) float64 {
	cs := v.layout.CellSize
	return math.Max(0, float64(col)*cs-v.width/2+cs/2)
}

func (v *View) ScrollToToday() {
	v.ScrollTo(v.CenterOffset(v.TodayIndex()), v.scrollY)
}

// JumpToDate centers date horizontally. Dates outside the grid snap to the
// nearest edge.
func (v *View) JumpToDate(date domain.Date) {
	n := v.Cols()
	if n == 0 {
		return
	}
	col := clamp(domain.DaysBetween(v.layout.Dates.Start, date), 0, n-1)
	v.ScrollTo(v.CenterOffset(col), v.scrollY)
}

// CellAt maps a point in viewport coordinates to the cell under it.
func (v *View) CellAt(x, y float64) (row, col int, ok bool) {
	cs := v.layout.CellSize
	if x < 0 || y < 0 || x >= v.width || y >= v.height {
		return 0, 0, false
	}
	col = int(math.Floor((x + v.scrollX) / cs))
	row = int(math.Floor((y + v.scrollY) / cs))
	if col >= v.Cols() || row >= v.layout.Rows {
		return 0, 0, false
	}
	return row, col, true
}
