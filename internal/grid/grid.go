// Package grid holds the ordered control points that shape a warp.
//
// Points are stored normalized to the unit square, row-major, so that
// resizing the content never changes them. Callers scale to content pixels
// on the way in and out.
package grid

import (
	"math"

	"github.com/pkg/errors"

	"warpcal/pkg/geometry"
)

// NoSelection is the selection index reported when no point is selected.
const NoSelection = -1

// MinControls is the smallest number of control points along either axis.
const MinControls = 2

var (
	// ErrIndexOutOfRange is returned for control point indices outside the grid.
	ErrIndexOutOfRange = errors.New("control point index out of range")
	// ErrInvalidGridSize is returned when fewer than 2 controls per axis are requested.
	ErrInvalidGridSize = errors.New("invalid control grid size")
	// ErrNoSelection is returned by selection edits when nothing is selected.
	ErrNoSelection = errors.New("no control point selected")
)

// Grid is a cols×rows lattice of control points.
type Grid struct {
	cols, rows int
	points     []geometry.Point2D
	selected   int
	dirty      bool
	revision   uint64
}

// New creates a grid with its points spread uniformly over the unit square.
func New(cols, rows int) (*Grid, error) {
	if err := validSize(cols, rows); err != nil {
		return nil, err
	}
	g := &Grid{cols: cols, rows: rows, selected: NoSelection}
	g.points = uniform(cols, rows)
	g.MarkDirty()
	return g, nil
}

func validSize(cols, rows int) error {
	if cols < MinControls || rows < MinControls {
		return errors.Wrapf(ErrInvalidGridSize, "%dx%d, need at least %dx%d", cols, rows, MinControls, MinControls)
	}
	return nil
}

func uniform(cols, rows int) []geometry.Point2D {
	pts := make([]geometry.Point2D, 0, cols*rows)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			pts = append(pts, geometry.Point2D{
				X: float64(c) / float64(cols-1),
				Y: float64(r) / float64(rows-1),
			})
		}
	}
	return pts
}

// Cols returns the number of control points per row.
func (g *Grid) Cols() int { return g.cols }

// Rows returns the number of control points per column.
func (g *Grid) Rows() int { return g.rows }

// Len returns the total number of control points.
func (g *Grid) Len() int { return len(g.points) }

// Size returns the number of control points along each axis.
func (g *Grid) Size() (cols, rows int) { return g.cols, g.rows }

// Index converts a column and row into a linear index.
func (g *Grid) Index(col, row int) int { return row*g.cols + col }

// At returns the point at col,row. Out-of-range coordinates are clamped onto
// the grid, which duplicates the edge knots for spline evaluation.
func (g *Grid) At(col, row int) geometry.Point2D {
	col = clamp(col, 0, g.cols-1)
	row = clamp(row, 0, g.rows-1)
	return g.points[row*g.cols+col]
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

func (g *Grid) checkIndex(i int) error {
	if i < 0 || i >= len(g.points) {
		return errors.Wrapf(ErrIndexOutOfRange, "index %d, grid has %d points", i, len(g.points))
	}
	return nil
}

// Point returns the normalized point at index i.
func (g *Grid) Point(i int) (geometry.Point2D, error) {
	if err := g.checkIndex(i); err != nil {
		return geometry.Point2D{}, err
	}
	return g.points[i], nil
}

// Set replaces the normalized point at index i.
func (g *Grid) Set(i int, p geometry.Point2D) error {
	if err := g.checkIndex(i); err != nil {
		return err
	}
	g.points[i] = p
	g.MarkDirty()
	return nil
}

// Move shifts the point at index i by a normalized delta.
func (g *Grid) Move(i int, delta geometry.Point2D) error {
	if err := g.checkIndex(i); err != nil {
		return err
	}
	g.points[i] = g.points[i].Add(delta)
	g.MarkDirty()
	return nil
}

// Reset spreads the points uniformly over the unit square again.
func (g *Grid) Reset() {
	g.points = uniform(g.cols, g.rows)
	g.MarkDirty()
}

// Resize changes the number of control points, resampling the current shape
// with a linear blend along each axis. The four extreme corners are kept
// exactly. The selection is cleared.
func (g *Grid) Resize(cols, rows int) error {
	if err := validSize(cols, rows); err != nil {
		return err
	}
	if cols == g.cols && rows == g.rows {
		return nil
	}

	// resample every row to the new column count
	wide := make([]geometry.Point2D, 0, cols*g.rows)
	line := make([]geometry.Point2D, g.cols)
	for r := 0; r < g.rows; r++ {
		copy(line, g.points[r*g.cols:(r+1)*g.cols])
		wide = append(wide, resample(line, cols)...)
	}

	// then every column to the new row count
	out := make([]geometry.Point2D, cols*rows)
	column := make([]geometry.Point2D, g.rows)
	for c := 0; c < cols; c++ {
		for r := 0; r < g.rows; r++ {
			column[r] = wide[r*cols+c]
		}
		for r, p := range resample(column, rows) {
			out[r*cols+c] = p
		}
	}

	g.cols, g.rows = cols, rows
	g.points = out
	g.selected = NoSelection
	g.MarkDirty()
	return nil
}

// resample returns n points placed at proportional positions along line.
func resample(line []geometry.Point2D, n int) []geometry.Point2D {
	out := make([]geometry.Point2D, n)
	last := len(line) - 1
	for k := 0; k < n; k++ {
		s := float64(k*last) / float64(n-1)
		i := int(math.Floor(s))
		if i >= last {
			out[k] = line[last]
			continue
		}
		t := s - float64(i)
		if t == 0 {
			out[k] = line[i]
			continue
		}
		out[k] = geometry.Lerp(line[i], line[i+1], t)
	}
	return out
}

// Nearest returns the index of the point closest to p, comparing in a space
// where normalized points are scaled by sx,sy. Ties go to the lowest index.
// ok is false when the closest point is farther than maxDistance.
func (g *Grid) Nearest(p geometry.Point2D, sx, sy, maxDistance float64) (index int, distance float64, ok bool) {
	index = NoSelection
	distance = math.Inf(1)
	for i, q := range g.points {
		if d := p.Distance(q.Mul(sx, sy)); d < distance {
			index, distance = i, d
		}
	}
	if index == NoSelection || distance > maxDistance {
		return index, distance, false
	}
	return index, distance, true
}

// Select makes index i the selected point, replacing any previous selection.
func (g *Grid) Select(i int) error {
	if err := g.checkIndex(i); err != nil {
		return err
	}
	g.selected = i
	return nil
}

// Deselect clears the selection.
func (g *Grid) Deselect() error {
	if g.selected == NoSelection {
		return ErrNoSelection
	}
	g.selected = NoSelection
	return nil
}

// Selected returns the selected index, if any.
func (g *Grid) Selected() (int, bool) {
	return g.selected, g.selected != NoSelection
}

// Corners returns the indices of the top-left, top-right, bottom-left and
// bottom-right points.
func (g *Grid) Corners() [4]int {
	return [4]int{
		0,
		g.cols - 1,
		(g.rows - 1) * g.cols,
		g.rows*g.cols - 1,
	}
}

// CornerSlot maps a linear index onto its corner slot (0 top-left,
// 1 top-right, 2 bottom-left, 3 bottom-right).
func (g *Grid) CornerSlot(i int) (int, bool) {
	for slot, idx := range g.Corners() {
		if idx == i {
			return slot, true
		}
	}
	return 0, false
}

// IsCorner reports whether index i is one of the four corners.
func (g *Grid) IsCorner(i int) bool {
	_, ok := g.CornerSlot(i)
	return ok
}

// Dirty reports whether the points changed since the last ClearDirty.
func (g *Grid) Dirty() bool { return g.dirty }

// MarkDirty flags derived data as stale.
func (g *Grid) MarkDirty() {
	g.dirty = true
	g.revision++
}

// ClearDirty is called by the owner of derived data after rebuilding it.
func (g *Grid) ClearDirty() { g.dirty = false }

// Revision increases on every change to the points or topology.
func (g *Grid) Revision() uint64 { return g.revision }

// Points returns a copy of the normalized points in row-major order.
func (g *Grid) Points() []geometry.Point2D {
	out := make([]geometry.Point2D, len(g.points))
	copy(out, g.points)
	return out
}

// SetPoints replaces the whole grid. pts must hold cols*rows points in
// row-major order.
func (g *Grid) SetPoints(cols, rows int, pts []geometry.Point2D) error {
	if err := validSize(cols, rows); err != nil {
		return err
	}
	if len(pts) != cols*rows {
		return errors.Wrapf(ErrIndexOutOfRange, "%d points for a %dx%d grid", len(pts), cols, rows)
	}
	g.cols, g.rows = cols, rows
	g.points = make([]geometry.Point2D, len(pts))
	copy(g.points, pts)
	g.selected = NoSelection
	g.MarkDirty()
	return nil
}
