package editing

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"warpcal/internal/logging"
	"warpcal/internal/warp"
	"warpcal/pkg/geometry"
)

// Steps are the increments applied by keyboard edits.
type Steps struct {
	// Nudge and LargeNudge move the selected point, in output pixels.
	Nudge, LargeNudge float64
	// Brightness is added or removed by +/-.
	Brightness float64
	// Resolution is added or removed by F3/F4.
	Resolution int
	// PickRadius is how close to the selected point a drag must start.
	PickRadius float64
}

// DefaultSteps returns the keyboard increments used by the editor.
func DefaultSteps() Steps {
	return Steps{Nudge: 0.5, LargeNudge: 10, Brightness: 0.01, Resolution: 4, PickRadius: 25}
}

// Router translates mouse and key events into warp edits. Every handler
// reports whether it consumed the event.
type Router struct {
	ctx   *Context
	arena *warp.Arena
	steps Steps

	dragging bool
	offset   geometry.Point2D
}

// NewRouter creates a router editing the warps of arena.
func NewRouter(ctx *Context, arena *warp.Arena, steps Steps) *Router {
	return &Router{ctx: ctx, arena: arena, steps: steps}
}

// Context returns the editing context of the router.
func (r *Router) Context() *Context { return r.ctx }

func (r *Router) log() *zap.SugaredLogger { return logging.Named("editing") }

// MouseMove records the mouse position and, in edit mode, selects the
// control point closest to it. It reports whether the selection changed.
func (r *Router) MouseMove(e MouseEvent) bool {
	r.ctx.SetMouse(e.Pos)
	if !r.ctx.EditMode() {
		return false
	}
	prevHandle, _, prevIndex, _ := r.arena.Selection()
	h, idx, ok := r.arena.SelectClosest(e.Pos)
	if !ok || (h == prevHandle && idx == prevIndex) {
		return false
	}
	r.ctx.MarkSelected()
	return true
}

// MouseDown starts dragging the selected control point. A press away from
// it raises the warp under the mouse to the top of the draw order.
func (r *Router) MouseDown(e MouseEvent) bool {
	r.ctx.SetMouse(e.Pos)
	if !r.ctx.EditMode() {
		return false
	}
	_, w, idx, ok := r.arena.Selection()
	if !ok {
		return r.raiseAt(e.Pos)
	}
	p, err := w.ControlPoint(idx)
	if err != nil || e.Pos.Distance(p) > r.steps.PickRadius {
		return r.raiseAt(e.Pos)
	}
	r.offset = e.Pos.Sub(p)
	r.dragging = true
	return true
}

func (r *Router) raiseAt(p geometry.Point2D) bool {
	h, ok := r.arena.WarpAt(p)
	if !ok {
		return false
	}
	handles := r.arena.Handles()
	if handles[len(handles)-1] == h {
		return false
	}
	return r.apply(r.arena.Raise(h))
}

// MouseDrag moves the dragged control point with the mouse.
func (r *Router) MouseDrag(e MouseEvent) bool {
	r.ctx.SetMouse(e.Pos)
	if !r.ctx.EditMode() || !r.dragging {
		return false
	}
	_, w, idx, ok := r.arena.Selection()
	if !ok {
		return false
	}
	return r.apply(w.SetControlPoint(idx, e.Pos.Sub(r.offset)))
}

// MouseUp ends a drag.
func (r *Router) MouseUp(e MouseEvent) bool {
	r.ctx.SetMouse(e.Pos)
	if !r.dragging {
		return false
	}
	r.dragging = false
	return r.ctx.EditMode()
}

// KeyDown applies keyboard edits to the warp holding the selection. W
// toggles edit mode at any time; every other key only works in edit mode.
func (r *Router) KeyDown(e KeyEvent) bool {
	if e.Key == KeyW {
		on := r.ctx.ToggleEditMode()
		r.log().Debugw("edit mode", "on", on)
		return true
	}
	if !r.ctx.EditMode() {
		return false
	}
	switch e.Key {
	case KeyEscape:
		r.ctx.SetEditMode(false)
		r.dragging = false
		return true
	case KeyTab:
		return r.cycleSelection(e.Shift())
	}

	_, w, _, ok := r.arena.Selection()
	if !ok {
		return false
	}
	step := r.steps.Nudge
	if e.Shift() {
		step = r.steps.LargeNudge
	}

	switch e.Key {
	case KeyUp:
		return r.apply(w.MoveSelected(geometry.Point2D{Y: -step}))
	case KeyDown:
		return r.apply(w.MoveSelected(geometry.Point2D{Y: step}))
	case KeyLeft:
		return r.apply(w.MoveSelected(geometry.Point2D{X: -step}))
	case KeyRight:
		return r.apply(w.MoveSelected(geometry.Point2D{X: step}))
	case KeyPlus:
		w.SetBrightness(w.Brightness() + r.steps.Brightness)
	case KeyMinus:
		w.SetBrightness(w.Brightness() - r.steps.Brightness)
	case KeyR:
		w.Reset()
	case KeyM:
		w.SetLinear(!w.IsLinear())
	case KeyF1, KeyF2:
		return r.apply(changeControls(w, e.Key == KeyF2, e.Shift()))
	case KeyF3:
		w.SetResolution(w.Resolution() - r.steps.Resolution)
	case KeyF4:
		w.SetResolution(w.Resolution() + r.steps.Resolution)
	case KeyF5:
		w.SetAdaptive(!w.IsAdaptive())
	case KeyF9:
		return r.apply(w.RotateContent(false))
	case KeyF10:
		return r.apply(w.RotateContent(true))
	case KeyF11:
		w.FlipHorizontal()
	case KeyF12:
		w.FlipVertical()
	default:
		return false
	}
	return true
}

// KeyUp is accepted for symmetry with KeyDown; no key acts on release.
func (r *Router) KeyUp(KeyEvent) bool {
	return false
}

// Resize changes the content size of every warp.
func (r *Router) Resize(width, height float64) error {
	return r.arena.SetSize(width, height)
}

// cycleSelection moves the selection to the next or previous control point
// of the selected warp, or to the first point of the top warp.
func (r *Router) cycleSelection(backwards bool) bool {
	_, w, idx, ok := r.arena.Selection()
	if !ok {
		warps := r.arena.Warps()
		if len(warps) == 0 {
			return false
		}
		w, idx = warps[len(warps)-1], -1
		if backwards {
			idx = 0
		}
	}
	n := w.NumControlPoints()
	next := (idx + 1) % n
	if backwards {
		next = (idx - 1 + n) % n
	}
	if !r.apply(w.SelectControlPoint(next)) {
		return false
	}
	r.ctx.MarkSelected()
	return true
}

// changeControls halves or doubles the number of control intervals along
// one axis, so existing columns or rows stay where they are.
func changeControls(w *warp.Warp, increase, rows bool) error {
	cols, rws := w.Controls()
	n := cols
	if rows {
		n = rws
	}
	if increase {
		n = n*2 - 1
	} else {
		n = max(2, (n+1)/2)
	}
	if rows {
		return w.SetNumControl(cols, n)
	}
	return w.SetNumControl(n, rws)
}

func (r *Router) apply(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, warp.ErrUnsupported) {
		r.log().Debugw("ignored edit", "error", err)
	} else {
		r.log().Warnw("edit failed", "error", err)
	}
	return false
}
