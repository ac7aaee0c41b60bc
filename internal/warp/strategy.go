package warp

import (
	"math"

	"github.com/pkg/errors"

	"warpcal/internal/grid"
	"warpcal/internal/mesh"
	"warpcal/pkg/geometry"
)

// meshCache rebuilds a mesh only when the stamp of its inputs changed.
type meshCache struct {
	builder *mesh.Builder
	current *mesh.Mesh
	built   stamp
	valid   bool
}

func (c *meshCache) fresh(st stamp) bool {
	return c.valid && c.built == st
}

// build returns the cached mesh or interpolates a new one from the warp grid,
// passing every position through project when it is non-nil.
func (c *meshCache) build(w *Warp, st stamp, project func(geometry.Point2D) geometry.Point2D) (*mesh.Mesh, error) {
	if c.fresh(st) {
		return c.current, nil
	}
	if c.builder == nil {
		c.builder = mesh.NewBuilder()
	}
	m, err := c.builder.Build(w.grid, w.meshOptions())
	if err != nil {
		c.valid = false
		return nil, errors.Wrap(err, "building mesh")
	}
	if project != nil {
		m.Transform(project)
	}
	c.current, c.built, c.valid = m, st, true
	w.grid.ClearDirty()
	w.log().Debugw("mesh rebuilt", "cols", m.Cols, "rows", m.Rows, "linear", w.linear)
	return m, nil
}

// Helpers shared by kinds whose control points are the grid itself.

func gridControlPoint(w *Warp, i int) (geometry.Point2D, error) {
	p, err := w.grid.Point(i)
	if err != nil {
		return geometry.Point2D{}, err
	}
	return w.toContent(p), nil
}

func setGridControlPoint(w *Warp, i int, p geometry.Point2D) error {
	return w.grid.Set(i, w.toNormalized(p))
}

func nearestGridPoint(w *Warp, p geometry.Point2D) (int, float64) {
	i, d, _ := w.grid.Nearest(p, w.width, w.height, math.Inf(1))
	return i, d
}

// permute reorders the grid points so that new point i is old point
// from(i), keeping the selection on the same index.
func permute(g *grid.Grid, from func(i int) int) {
	cols, rows := g.Size()
	old := g.Points()
	pts := make([]geometry.Point2D, len(old))
	for i := range pts {
		pts[i] = old[from(i)]
	}
	sel, selected := g.Selected()
	// sizes are unchanged, so this cannot fail
	_ = g.SetPoints(cols, rows, pts)
	if selected {
		_ = g.Select(sel)
	}
}

// mirror flips the grid left to right or top to bottom.
func mirror(g *grid.Grid, horizontal bool) {
	cols, rows := g.Size()
	permute(g, func(i int) int {
		c, r := i%cols, i/cols
		if horizontal {
			return r*cols + cols - 1 - c
		}
		return (rows-1-r)*cols + c
	})
}
