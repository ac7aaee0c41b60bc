package warp

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"warpcal/pkg/geometry"
)

func mustWarp(t *testing.T, kind Kind) *Warp {
	t.Helper()
	w, err := New(kind, 100, 100)
	test.That(t, err, test.ShouldBeNil)
	return w
}

func TestArenaHandles(t *testing.T) {
	a := NewArena()
	w1 := mustWarp(t, KindBilinear)
	w2 := mustWarp(t, KindPerspective)
	h1 := a.Add(w1)
	h2 := a.Add(w2)
	test.That(t, a.Len(), test.ShouldEqual, 2)
	test.That(t, a.Handles(), test.ShouldResemble, []Handle{h1, h2})

	got, err := a.Get(h2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldEqual, w2)

	test.That(t, a.Remove(h1), test.ShouldBeNil)
	_, err = a.Get(h1)
	test.That(t, errors.Is(err, ErrStaleHandle), test.ShouldBeTrue)
	test.That(t, errors.Is(a.Remove(h1), ErrStaleHandle), test.ShouldBeTrue)

	// the slot is reused but the old handle stays stale
	h3 := a.Add(mustWarp(t, KindPerspectiveBilinear))
	test.That(t, h3.index, test.ShouldEqual, h1.index)
	_, err = a.Get(h1)
	test.That(t, errors.Is(err, ErrStaleHandle), test.ShouldBeTrue)
	test.That(t, a.Handles(), test.ShouldResemble, []Handle{h2, h3})

	_, err = a.Get(Handle{})
	test.That(t, errors.Is(err, ErrStaleHandle), test.ShouldBeTrue)
	test.That(t, Handle{}.IsZero(), test.ShouldBeTrue)

	test.That(t, a.Raise(h2), test.ShouldBeNil)
	test.That(t, a.Handles(), test.ShouldResemble, []Handle{h3, h2})
	test.That(t, errors.Is(a.Raise(h1), ErrStaleHandle), test.ShouldBeTrue)

	test.That(t, a.SetSize(320, 240), test.ShouldBeNil)
	for _, w := range a.Warps() {
		test.That(t, w.Size(), test.ShouldResemble, geometry.NewSize(320, 240))
	}

	a.Clear()
	test.That(t, a.Len(), test.ShouldEqual, 0)
}

func TestArenaSelectClosest(t *testing.T) {
	a := NewArena()
	_, _, ok := a.SelectClosest(geometry.Point2D{})
	test.That(t, ok, test.ShouldBeFalse)

	bottom := mustWarp(t, KindBilinear)
	top := mustWarp(t, KindBilinear)
	test.That(t, top.SetControlPoint(3, geometry.Point2D{X: 60, Y: 60}), test.ShouldBeNil)
	hb := a.Add(bottom)
	ht := a.Add(top)

	h, idx, ok := a.SelectClosest(geometry.Point2D{X: 58, Y: 61})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, h, test.ShouldResemble, ht)
	test.That(t, idx, test.ShouldEqual, 3)

	// identical corners on both warps: the top one wins
	h, idx, ok = a.SelectClosest(geometry.Point2D{X: 1, Y: 1})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, h, test.ShouldResemble, ht)
	test.That(t, idx, test.ShouldEqual, 0)

	h, idx, ok = a.SelectClosest(geometry.Point2D{X: 99, Y: 99})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, h, test.ShouldResemble, hb)
	test.That(t, idx, test.ShouldEqual, 3)
	_, selected := top.Selected()
	test.That(t, selected, test.ShouldBeFalse)

	sh, sw, sidx, ok := a.Selection()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, sh, test.ShouldResemble, hb)
	test.That(t, sw, test.ShouldEqual, bottom)
	test.That(t, sidx, test.ShouldEqual, 3)
}

func TestArenaWarpAt(t *testing.T) {
	a := NewArena()
	left := mustWarp(t, KindPerspective)
	for i, p := range [4]geometry.Point2D{{X: 0, Y: 0}, {X: 40, Y: 0}, {X: 0, Y: 100}, {X: 40, Y: 100}} {
		test.That(t, left.SetControlPoint(i, p), test.ShouldBeNil)
	}
	hl := a.Add(left)
	hf := a.Add(mustWarp(t, KindBilinear))

	h, ok := a.WarpAt(geometry.Point2D{X: 20, Y: 50})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, h, test.ShouldResemble, hf)

	test.That(t, a.Raise(hl), test.ShouldBeNil)
	h, ok = a.WarpAt(geometry.Point2D{X: 20, Y: 50})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, h, test.ShouldResemble, hl)
	h, ok = a.WarpAt(geometry.Point2D{X: 70, Y: 50})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, h, test.ShouldResemble, hf)

	_, ok = a.WarpAt(geometry.Point2D{X: 500, Y: 50})
	test.That(t, ok, test.ShouldBeFalse)
}
