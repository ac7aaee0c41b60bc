package warp

import (
	"math"

	"github.com/pkg/errors"

	"warpcal/pkg/geometry"
)

// ErrStaleHandle is returned for handles whose warp was removed.
var ErrStaleHandle = errors.New("stale warp handle")

// Handle refers to a warp owned by an Arena. The zero Handle is never valid.
type Handle struct {
	index uint32
	gen   uint32
}

// IsZero reports whether h is the zero handle.
func (h Handle) IsZero() bool { return h.gen == 0 }

type slot struct {
	warp *Warp
	gen  uint32
}

// Arena owns a collection of warps in draw order. Callers keep handles
// instead of pointers; a handle goes stale when its warp is removed, even if
// the slot is reused.
type Arena struct {
	slots []slot
	free  []uint32
	order []Handle
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// Add takes ownership of w and appends it on top of the draw order.
func (a *Arena) Add(w *Warp) Handle {
	var h Handle
	if n := len(a.free); n > 0 {
		h.index = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		h.index = uint32(len(a.slots))
		a.slots = append(a.slots, slot{})
	}
	s := &a.slots[h.index]
	s.gen++
	s.warp = w
	h.gen = s.gen
	a.order = append(a.order, h)
	return h
}

// Get resolves a handle.
func (a *Arena) Get(h Handle) (*Warp, error) {
	if h.gen == 0 || int(h.index) >= len(a.slots) {
		return nil, ErrStaleHandle
	}
	s := a.slots[h.index]
	if s.gen != h.gen || s.warp == nil {
		return nil, ErrStaleHandle
	}
	return s.warp, nil
}

// Remove drops the warp behind h.
func (a *Arena) Remove(h Handle) error {
	if _, err := a.Get(h); err != nil {
		return err
	}
	a.slots[h.index].warp = nil
	a.free = append(a.free, h.index)
	for i, o := range a.order {
		if o == h {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
	return nil
}

// Clear removes every warp.
func (a *Arena) Clear() {
	for _, h := range a.Handles() {
		_ = a.Remove(h)
	}
}

// Handles returns the live handles in draw order, bottom first.
func (a *Arena) Handles() []Handle {
	out := make([]Handle, len(a.order))
	copy(out, a.order)
	return out
}

// Len returns the number of live warps.
func (a *Arena) Len() int { return len(a.order) }

// Each calls fn for every warp in draw order and stops at the first error.
func (a *Arena) Each(fn func(Handle, *Warp) error) error {
	for _, h := range a.Handles() {
		w, err := a.Get(h)
		if err != nil {
			continue
		}
		if err := fn(h, w); err != nil {
			return err
		}
	}
	return nil
}

// Warps returns the live warps in draw order.
func (a *Arena) Warps() []*Warp {
	out := make([]*Warp, 0, len(a.order))
	for _, h := range a.order {
		out = append(out, a.slots[h.index].warp)
	}
	return out
}

// SetSize resizes the content of every warp.
func (a *Arena) SetSize(width, height float64) error {
	return a.Each(func(_ Handle, w *Warp) error {
		return w.SetSize(width, height)
	})
}

// Raise moves h to the top of the draw order.
func (a *Arena) Raise(h Handle) error {
	if _, err := a.Get(h); err != nil {
		return err
	}
	for i, o := range a.order {
		if o == h {
			a.order = append(append(a.order[:i], a.order[i+1:]...), h)
			break
		}
	}
	return nil
}

// SelectClosest selects the control point nearest to p across all warps and
// deselects every other warp. Warps on top win ties. ok is false when the
// arena is empty.
func (a *Arena) SelectClosest(p geometry.Point2D) (Handle, int, bool) {
	var (
		best  Handle
		index = -1
		dist  = math.Inf(1)
	)
	for i := len(a.order) - 1; i >= 0; i-- {
		h := a.order[i]
		w := a.slots[h.index].warp
		if idx, d := w.FindControlPoint(p); idx >= 0 && d < dist {
			best, index, dist = h, idx, d
		}
	}
	if index < 0 {
		return Handle{}, -1, false
	}
	for _, h := range a.order {
		w := a.slots[h.index].warp
		if h == best {
			_ = w.SelectControlPoint(index)
			continue
		}
		_ = w.DeselectControlPoint()
	}
	return best, index, true
}

// Selection returns the warp holding the selected control point, topmost
// first.
func (a *Arena) Selection() (Handle, *Warp, int, bool) {
	for i := len(a.order) - 1; i >= 0; i-- {
		h := a.order[i]
		w := a.slots[h.index].warp
		if idx, ok := w.Selected(); ok {
			return h, w, idx, true
		}
	}
	return Handle{}, nil, -1, false
}

// WarpAt returns the topmost warp whose corner quad contains p.
func (a *Arena) WarpAt(p geometry.Point2D) (Handle, bool) {
	for i := len(a.order) - 1; i >= 0; i-- {
		h := a.order[i]
		if geometry.PointInPolygon(p, a.slots[h.index].warp.Outline()) {
			return h, true
		}
	}
	return Handle{}, false
}
