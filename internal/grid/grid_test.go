package grid

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"warpcal/pkg/geometry"
)

func TestNew(t *testing.T) {
	g, err := New(3, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, g.Len(), test.ShouldEqual, 6)
	test.That(t, g.Points(), test.ShouldResemble, []geometry.Point2D{
		{X: 0, Y: 0}, {X: 0.5, Y: 0}, {X: 1, Y: 0},
		{X: 0, Y: 1}, {X: 0.5, Y: 1}, {X: 1, Y: 1},
	})
	test.That(t, g.Dirty(), test.ShouldBeTrue)

	for _, size := range [][2]int{{1, 2}, {2, 1}, {0, 0}, {-3, 4}} {
		_, err := New(size[0], size[1])
		test.That(t, errors.Is(err, ErrInvalidGridSize), test.ShouldBeTrue)
	}
}

func TestAtClamps(t *testing.T) {
	g, err := New(3, 3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, g.At(-1, -1), test.ShouldResemble, g.At(0, 0))
	test.That(t, g.At(5, 1), test.ShouldResemble, g.At(2, 1))
	test.That(t, g.At(1, 9), test.ShouldResemble, g.At(1, 2))
	test.That(t, g.At(1, 1), test.ShouldResemble, geometry.Point2D{X: 0.5, Y: 0.5})
}

func TestSetMove(t *testing.T) {
	g, err := New(2, 2)
	test.That(t, err, test.ShouldBeNil)
	rev := g.Revision()

	test.That(t, g.Set(1, geometry.Point2D{X: 0.9, Y: 0.1}), test.ShouldBeNil)
	test.That(t, g.Move(1, geometry.Point2D{X: 0.05, Y: -0.1}), test.ShouldBeNil)
	p, err := g.Point(1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.X, test.ShouldAlmostEqual, 0.95, 1e-12)
	test.That(t, p.Y, test.ShouldAlmostEqual, 0.0, 1e-12)
	test.That(t, g.Revision(), test.ShouldBeGreaterThan, rev)

	t.Run("out of range leaves state untouched", func(t *testing.T) {
		before := g.Points()
		rev := g.Revision()
		test.That(t, errors.Is(g.Set(4, geometry.Point2D{}), ErrIndexOutOfRange), test.ShouldBeTrue)
		test.That(t, errors.Is(g.Set(-1, geometry.Point2D{}), ErrIndexOutOfRange), test.ShouldBeTrue)
		test.That(t, errors.Is(g.Move(7, geometry.Point2D{X: 1, Y: 1}), ErrIndexOutOfRange), test.ShouldBeTrue)
		_, err := g.Point(4)
		test.That(t, errors.Is(err, ErrIndexOutOfRange), test.ShouldBeTrue)
		test.That(t, g.Points(), test.ShouldResemble, before)
		test.That(t, g.Revision(), test.ShouldEqual, rev)
	})
}

func TestResize(t *testing.T) {
	g, err := New(2, 2)
	test.That(t, err, test.ShouldBeNil)
	// distort the corners so that preservation is meaningful
	corners := []geometry.Point2D{{X: 0.1, Y: 0.05}, {X: 0.93, Y: 0.02}, {X: 0.03, Y: 0.97}, {X: 0.88, Y: 0.91}}
	for slot, idx := range g.Corners() {
		test.That(t, g.Set(idx, corners[slot]), test.ShouldBeNil)
	}
	test.That(t, g.Select(1), test.ShouldBeNil)

	test.That(t, g.Resize(5, 4), test.ShouldBeNil)
	test.That(t, g.Cols(), test.ShouldEqual, 5)
	test.That(t, g.Rows(), test.ShouldEqual, 4)
	test.That(t, g.Len(), test.ShouldEqual, 20)
	_, selected := g.Selected()
	test.That(t, selected, test.ShouldBeFalse)
	for slot, idx := range g.Corners() {
		p, _ := g.Point(idx)
		test.That(t, p, test.ShouldResemble, corners[slot])
	}

	// interior points are a linear blend of the old quad
	mid := g.At(2, 0)
	want := geometry.Lerp(corners[0], corners[1], 0.5)
	test.That(t, mid.X, test.ShouldAlmostEqual, want.X, 1e-12)
	test.That(t, mid.Y, test.ShouldAlmostEqual, want.Y, 1e-12)

	test.That(t, g.Resize(2, 2), test.ShouldBeNil)
	for slot, idx := range g.Corners() {
		p, _ := g.Point(idx)
		test.That(t, p, test.ShouldResemble, corners[slot])
	}

	t.Run("round trip through several densities", func(t *testing.T) {
		for _, size := range [][2]int{{7, 3}, {3, 9}, {4, 4}, {2, 2}} {
			test.That(t, g.Resize(size[0], size[1]), test.ShouldBeNil)
			for slot, idx := range g.Corners() {
				p, _ := g.Point(idx)
				test.That(t, p, test.ShouldResemble, corners[slot])
			}
		}
	})

	t.Run("uniform grid stays uniform", func(t *testing.T) {
		u, err := New(3, 3)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, u.Resize(5, 5), test.ShouldBeNil)
		fresh, _ := New(5, 5)
		for i, p := range u.Points() {
			q, _ := fresh.Point(i)
			test.That(t, p.X, test.ShouldAlmostEqual, q.X, 1e-12)
			test.That(t, p.Y, test.ShouldAlmostEqual, q.Y, 1e-12)
		}
	})

	t.Run("invalid size is rejected", func(t *testing.T) {
		before := g.Points()
		test.That(t, errors.Is(g.Resize(1, 4), ErrInvalidGridSize), test.ShouldBeTrue)
		test.That(t, g.Points(), test.ShouldResemble, before)
	})
}

func TestNearest(t *testing.T) {
	g, err := New(3, 3)
	test.That(t, err, test.ShouldBeNil)

	t.Run("exact hit", func(t *testing.T) {
		for k := 0; k < g.Len(); k++ {
			p, _ := g.Point(k)
			idx, d, ok := g.Nearest(p.Mul(200, 100), 200, 100, 10)
			test.That(t, ok, test.ShouldBeTrue)
			test.That(t, idx, test.ShouldEqual, k)
			test.That(t, d, test.ShouldEqual, 0.0)
		}
	})

	t.Run("beyond max distance", func(t *testing.T) {
		idx, d, ok := g.Nearest(geometry.Point2D{X: 50, Y: 25}, 200, 100, 10)
		test.That(t, ok, test.ShouldBeFalse)
		test.That(t, idx, test.ShouldEqual, 0)
		test.That(t, d, test.ShouldBeGreaterThan, 10)
	})

	t.Run("tie goes to first index", func(t *testing.T) {
		// equidistant from (0,0) and (100,0)
		idx, _, ok := g.Nearest(geometry.Point2D{X: 50, Y: 0}, 200, 100, 100)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, idx, test.ShouldEqual, 0)
	})
}

func TestSelection(t *testing.T) {
	g, err := New(2, 3)
	test.That(t, err, test.ShouldBeNil)

	_, ok := g.Selected()
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, errors.Is(g.Deselect(), ErrNoSelection), test.ShouldBeTrue)

	test.That(t, g.Select(2), test.ShouldBeNil)
	test.That(t, g.Select(4), test.ShouldBeNil)
	idx, ok := g.Selected()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, idx, test.ShouldEqual, 4)

	test.That(t, errors.Is(g.Select(6), ErrIndexOutOfRange), test.ShouldBeTrue)
	idx, _ = g.Selected()
	test.That(t, idx, test.ShouldEqual, 4)

	test.That(t, g.Deselect(), test.ShouldBeNil)
	_, ok = g.Selected()
	test.That(t, ok, test.ShouldBeFalse)
}

func TestCorners(t *testing.T) {
	g, err := New(4, 3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, g.Corners(), test.ShouldResemble, [4]int{0, 3, 8, 11})
	for slot, idx := range g.Corners() {
		got, ok := g.CornerSlot(idx)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, got, test.ShouldEqual, slot)
	}
	test.That(t, g.IsCorner(5), test.ShouldBeFalse)
	test.That(t, g.IsCorner(1), test.ShouldBeFalse)
}

func TestSetPoints(t *testing.T) {
	g, err := New(2, 2)
	test.That(t, err, test.ShouldBeNil)
	pts := []geometry.Point2D{{X: 0, Y: 0}, {X: 0.5, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: 0.5, Y: 1}, {X: 1, Y: 1}}
	test.That(t, g.SetPoints(3, 2, pts), test.ShouldBeNil)
	test.That(t, g.Points(), test.ShouldResemble, pts)
	test.That(t, errors.Is(g.SetPoints(3, 3, pts), ErrIndexOutOfRange), test.ShouldBeTrue)
	test.That(t, errors.Is(g.SetPoints(1, 6, pts), ErrInvalidGridSize), test.ShouldBeTrue)
}
