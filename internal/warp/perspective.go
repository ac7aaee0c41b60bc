package warp

import (
	"github.com/pkg/errors"

	"warpcal/internal/grid"
	"warpcal/internal/homography"
	"warpcal/internal/mesh"
	"warpcal/pkg/geometry"
)

// Corner slot permutations. Entry i names the old slot that moves into slot i.
var (
	flipHorizontalSlots = [4]int{1, 0, 3, 2}
	flipVerticalSlots   = [4]int{2, 3, 0, 1}
	rotateCWSlots       = [4]int{1, 3, 0, 2}
	rotateCCWSlots      = [4]int{2, 0, 3, 1}
)

// perspectiveStrategy maps the content corners onto an editable quad. The
// quad is a 2×2 grid so slots and indices coincide.
type perspectiveStrategy struct {
	xf     homography.Transform
	built  stamp
	valid  bool
	failed bool
}

func (s *perspectiveStrategy) init(w *Warp) error {
	g, err := grid.New(2, 2)
	if err != nil {
		return err
	}
	w.grid = g
	s.xf = homography.Identity()
	return nil
}

func (s *perspectiveStrategy) reset(w *Warp) { w.grid.Reset() }

func (s *perspectiveStrategy) setSize(*Warp, float64, float64) {}

func (s *perspectiveStrategy) setNumControl(*Warp, int, int) error {
	return errors.Wrap(ErrUnsupported, "perspective warps have exactly four control points")
}

func (s *perspectiveStrategy) controlPoint(w *Warp, i int) (geometry.Point2D, error) {
	return gridControlPoint(w, i)
}

func (s *perspectiveStrategy) setControlPoint(w *Warp, i int, p geometry.Point2D) error {
	return setGridControlPoint(w, i, p)
}

func (s *perspectiveStrategy) find(w *Warp, p geometry.Point2D) (int, float64) {
	return nearestGridPoint(w, p)
}

// transformStamp ignores mesh options, which never affect the homography.
func transformStamp(w *Warp) stamp {
	return stamp{grid: w.grid.Revision(), size: w.sizeRev}
}

func (s *perspectiveStrategy) transform(w *Warp) homography.Transform {
	st := transformStamp(w)
	if s.valid && s.built == st {
		return s.xf
	}

	src := [4]geometry.Point2D{
		{X: 0, Y: 0},
		{X: w.width, Y: 0},
		{X: 0, Y: w.height},
		{X: w.width, Y: w.height},
	}
	var dst [4]geometry.Point2D
	for i := range dst {
		dst[i], _ = gridControlPoint(w, i)
	}

	if dst == src {
		// untouched quad
		s.xf, s.built, s.valid, s.failed = homography.Identity(), st, true, false
		w.grid.ClearDirty()
		return s.xf
	}

	xf, err := homography.Compute(src, dst)
	if err != nil {
		// stay dirty so the next edit retries
		if !s.failed {
			w.log().Warnw("degenerate corner quad, drawing with identity", "corners", dst, "error", err)
		}
		s.xf, s.valid, s.failed = homography.Identity(), false, true
		return s.xf
	}
	s.xf, s.built, s.valid, s.failed = xf, st, true, false
	w.grid.ClearDirty()
	return xf
}

func (s *perspectiveStrategy) degenerate(w *Warp) bool {
	s.transform(w)
	return s.failed
}

func (s *perspectiveStrategy) mesh(*Warp) (*mesh.Mesh, error) { return nil, ErrNoMesh }

func (s *perspectiveStrategy) scope(w *Warp) homography.Transform { return s.transform(w) }

func (s *perspectiveStrategy) flip(w *Warp, horizontal bool) {
	slots := flipVerticalSlots
	if horizontal {
		slots = flipHorizontalSlots
	}
	permute(w.grid, func(i int) int { return slots[i] })
}

func (s *perspectiveStrategy) rotate(w *Warp, clockwise bool) error {
	slots := rotateCCWSlots
	if clockwise {
		slots = rotateCWSlots
	}
	permute(w.grid, func(i int) int { return slots[i] })
	return nil
}

func (s *perspectiveStrategy) stale(w *Warp) bool {
	return !s.valid || s.built != transformStamp(w)
}

func (s *perspectiveStrategy) revision() uint64 { return 0 }
