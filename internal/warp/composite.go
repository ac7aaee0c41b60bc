package warp

import (
	"math"

	"warpcal/internal/grid"
	"warpcal/internal/homography"
	"warpcal/internal/mesh"
	"warpcal/pkg/geometry"
)

var unitCorners = [4]geometry.Point2D{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}}

// compositeStrategy places content with a nested perspective warp and
// deforms it further with a control grid.
//
// The local grid holds positions before the perspective stage, with its
// corners pinned to the content corners. Corner indices are forwarded to the
// nested warp and interior points are presented in output space, so the
// corners a caller sees are always exactly the perspective quad.
type compositeStrategy struct {
	meshCache
	perspective *Warp
}

func (s *compositeStrategy) init(w *Warp) error {
	g, err := grid.New(DefaultControls, DefaultControls)
	if err != nil {
		return err
	}
	w.grid = g
	nested, err := NewPerspective(w.width, w.height)
	if err != nil {
		return err
	}
	nested.SetID(w.id)
	s.perspective = nested
	s.builder = mesh.NewBuilder()
	return nil
}

// Perspective returns the nested perspective stage of a composite warp, or
// nil for other kinds.
func (w *Warp) Perspective() *Warp {
	if s, ok := w.strategy.(*compositeStrategy); ok {
		return s.perspective
	}
	return nil
}

func (s *compositeStrategy) reset(w *Warp) {
	w.grid.Reset()
	s.perspective.Reset()
}

func (s *compositeStrategy) setSize(_ *Warp, width, height float64) {
	// already validated by the caller
	_ = s.perspective.SetSize(width, height)
}

func (s *compositeStrategy) setNumControl(w *Warp, cols, rows int) error {
	if err := w.grid.Resize(cols, rows); err != nil {
		return err
	}
	s.pinCorners(w)
	w.log().Debugw("control grid resized", "cols", cols, "rows", rows)
	return nil
}

// pinCorners keeps the local corners on the content corners.
func (s *compositeStrategy) pinCorners(w *Warp) {
	for slot, idx := range w.grid.Corners() {
		if p, _ := w.grid.Point(idx); p != unitCorners[slot] {
			_ = w.grid.Set(idx, unitCorners[slot])
		}
	}
}

func (s *compositeStrategy) controlPoint(w *Warp, i int) (geometry.Point2D, error) {
	if slot, ok := w.grid.CornerSlot(i); ok {
		return s.perspective.ControlPoint(slot)
	}
	p, err := w.grid.Point(i)
	if err != nil {
		return geometry.Point2D{}, err
	}
	return s.perspective.Transform().Apply(w.toContent(p)), nil
}

func (s *compositeStrategy) setControlPoint(w *Warp, i int, p geometry.Point2D) error {
	if slot, ok := w.grid.CornerSlot(i); ok {
		return s.perspective.SetControlPoint(slot, p)
	}
	if _, err := w.grid.Point(i); err != nil {
		return err
	}
	local := s.perspective.Transform().ApplyInverse(p)
	return w.grid.Set(i, w.toNormalized(local))
}

func (s *compositeStrategy) find(w *Warp, p geometry.Point2D) (int, float64) {
	best, dist := grid.NoSelection, math.Inf(1)
	for i := 0; i < w.grid.Len(); i++ {
		q, err := s.controlPoint(w, i)
		if err != nil {
			continue
		}
		if d := p.Distance(q); d < dist {
			best, dist = i, d
		}
	}
	return best, dist
}

func (s *compositeStrategy) transform(*Warp) homography.Transform {
	return s.perspective.Transform()
}

func (s *compositeStrategy) degenerate(*Warp) bool {
	return s.perspective.Degenerate()
}

func (s *compositeStrategy) stamp(w *Warp) stamp {
	st := w.stamp()
	st.nested = s.perspective.Revision()
	return st
}

// mesh interpolates the local grid in content space and projects every
// vertex through the perspective stage.
func (s *compositeStrategy) mesh(w *Warp) (*mesh.Mesh, error) {
	xf := s.perspective.Transform()
	return s.build(w, s.stamp(w), xf.Apply)
}

// The mesh is already in output space.
func (s *compositeStrategy) scope(*Warp) homography.Transform { return homography.Identity() }

func (s *compositeStrategy) flip(_ *Warp, horizontal bool) {
	if horizontal {
		s.perspective.FlipHorizontal()
		return
	}
	s.perspective.FlipVertical()
}

func (s *compositeStrategy) rotate(_ *Warp, clockwise bool) error {
	return s.perspective.RotateContent(clockwise)
}

func (s *compositeStrategy) stale(w *Warp) bool {
	return !s.fresh(s.stamp(w)) || s.perspective.Dirty()
}

func (s *compositeStrategy) revision() uint64 {
	return s.perspective.Revision()
}
