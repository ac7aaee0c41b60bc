package warp

import (
	"github.com/pkg/errors"

	"warpcal/internal/grid"
	"warpcal/internal/homography"
	"warpcal/internal/mesh"
	"warpcal/pkg/geometry"
)

// bilinearStrategy deforms content with a control grid interpolated into a
// mesh. Control points and mesh positions are in content space.
type bilinearStrategy struct {
	meshCache
}

func (s *bilinearStrategy) init(w *Warp) error {
	g, err := grid.New(DefaultControls, DefaultControls)
	if err != nil {
		return err
	}
	w.grid = g
	s.builder = mesh.NewBuilder()
	return nil
}

func (s *bilinearStrategy) reset(w *Warp) { w.grid.Reset() }

func (s *bilinearStrategy) setSize(*Warp, float64, float64) {}

func (s *bilinearStrategy) setNumControl(w *Warp, cols, rows int) error {
	if err := w.grid.Resize(cols, rows); err != nil {
		return err
	}
	w.log().Debugw("control grid resized", "cols", cols, "rows", rows)
	return nil
}

func (s *bilinearStrategy) controlPoint(w *Warp, i int) (geometry.Point2D, error) {
	return gridControlPoint(w, i)
}

func (s *bilinearStrategy) setControlPoint(w *Warp, i int, p geometry.Point2D) error {
	return setGridControlPoint(w, i, p)
}

func (s *bilinearStrategy) find(w *Warp, p geometry.Point2D) (int, float64) {
	return nearestGridPoint(w, p)
}

func (s *bilinearStrategy) transform(*Warp) homography.Transform { return homography.Identity() }

func (s *bilinearStrategy) degenerate(*Warp) bool { return false }

func (s *bilinearStrategy) mesh(w *Warp) (*mesh.Mesh, error) {
	return s.build(w, w.stamp(), nil)
}

func (s *bilinearStrategy) scope(*Warp) homography.Transform { return homography.Identity() }

func (s *bilinearStrategy) flip(w *Warp, horizontal bool) { mirror(w.grid, horizontal) }

func (s *bilinearStrategy) rotate(w *Warp, _ bool) error {
	return errors.Wrap(ErrUnsupported, "rotating a bilinear warp")
}

func (s *bilinearStrategy) stale(w *Warp) bool { return !s.fresh(w.stamp()) }

func (s *bilinearStrategy) revision() uint64 { return 0 }
