// Package grid turns the habit list and the log index into a pannable
// habits × dates grid: which cells are visible, what state each cell is in,
// and how taps mutate it.
package grid

import "math"

const (
	DefaultCellSize = 44.0
	DefaultOverscan = 3
)

// Span is an inclusive index range. Empty spans have End < Start.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (s Span) Empty() bool { return s.End < s.Start }

func (s Span) Len() int {
	if s.Empty() {
		return 0
	}
	return s.End - s.Start + 1
}

func (s Span) Contains(i int) bool { return i >= s.Start && i <= s.End }

// Window is the block of cells a renderer must materialize.
type Window struct {
	Rows Span `json:"rows"`
	Cols Span `json:"cols"`
}

// AxisWindow computes the visible index range along one axis:
//
//	start = max(0, floor(offset/cell) - overscan)
//	end   = min(total-1, ceil((offset+extent)/cell) + overscan)
//
// Offsets past either edge of the grid are tolerated and still clamp to the
// grid bounds. A grid with no items yields an empty span.
func AxisWindow(offset, extent, cellSize float64, overscan, total int) Span {
	if total <= 0 || cellSize <= 0 {
		return Span{Start: 0, End: -1}
	}
	if overscan < 0 {
		overscan = 0
	}
	if extent < 0 {
		extent = 0
	}

	start := int(math.Floor(offset/cellSize)) - overscan
	end := int(math.Ceil((offset+extent)/cellSize)) + overscan

	start = clamp(start, 0, total-1)
	end = clamp(end, 0, total-1)
	if end < start {
		end = start
	}
	return Span{Start: start, End: end}
}

// VisibleWindow applies AxisWindow to both axes: columns are dates, rows are
// habits.
func VisibleWindow(scrollX, scrollY, width, height, cellSize float64, overscan, totalRows, totalCols int) Window {
	return Window{
		Rows: AxisWindow(scrollY, height, cellSize, overscan, totalRows),
		Cols: AxisWindow(scrollX, width, cellSize, overscan, totalCols),
	}
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
