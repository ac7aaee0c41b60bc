// Package warp implements the editable warps used to calibrate projected
// content: a four-corner perspective warp, a control-grid bilinear warp and
// the composition of both.
//
// All warps share one control-point protocol in content pixel space. The
// kind-specific behaviour lives in a strategy selected at construction.
package warp

import (
	"math"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"warpcal/internal/grid"
	"warpcal/internal/homography"
	"warpcal/internal/logging"
	"warpcal/internal/mesh"
	"warpcal/pkg/geometry"
)

const (
	// DefaultControls is the number of control points per axis of a new
	// bilinear grid.
	DefaultControls = 2
	// DefaultBrightness is the brightness of a new warp.
	DefaultBrightness = 1.0
	// DefaultAdaptiveSpacing is the target quad size in pixels in adaptive mode.
	DefaultAdaptiveSpacing = 16.0
	// MaxResolution bounds the base mesh resolution.
	MaxResolution = 128
)

// Warp is a single editable warp.
type Warp struct {
	id   uuid.UUID
	kind Kind

	width, height float64
	brightness    float64

	grid            *grid.Grid
	linear          bool
	adaptive        bool
	adaptiveSpacing float64
	resolution      int
	tex             mesh.TexRect

	// revisions of state that lives outside the grid
	sizeRev uint64
	optsRev uint64

	inScope  bool
	strategy strategy
}

// strategy carries the behaviour that differs between warp kinds.
type strategy interface {
	init(w *Warp) error
	reset(w *Warp)
	setSize(w *Warp, width, height float64)
	setNumControl(w *Warp, cols, rows int) error
	controlPoint(w *Warp, i int) (geometry.Point2D, error)
	setControlPoint(w *Warp, i int, p geometry.Point2D) error
	find(w *Warp, p geometry.Point2D) (int, float64)
	transform(w *Warp) homography.Transform
	degenerate(w *Warp) bool
	mesh(w *Warp) (*mesh.Mesh, error)
	scope(w *Warp) homography.Transform
	flip(w *Warp, horizontal bool)
	rotate(w *Warp, clockwise bool) error
	stale(w *Warp) bool
	revision() uint64
}

// stamp records the input revisions derived data was built from.
type stamp struct {
	grid, size, opts, nested uint64
}

// New creates a warp of the given kind over a width×height content area.
func New(kind Kind, width, height float64) (*Warp, error) {
	if err := validSize(width, height); err != nil {
		return nil, err
	}
	w := &Warp{
		id:              uuid.New(),
		kind:            kind,
		width:           width,
		height:          height,
		brightness:      DefaultBrightness,
		adaptiveSpacing: DefaultAdaptiveSpacing,
		resolution:      mesh.DefaultResolution,
		tex:             mesh.FullTexRect(),
	}
	switch kind {
	case KindPerspective:
		w.strategy = &perspectiveStrategy{}
	case KindBilinear:
		w.strategy = &bilinearStrategy{}
	case KindPerspectiveBilinear:
		w.strategy = &compositeStrategy{}
	default:
		return nil, errors.Wrapf(ErrUnknownKind, "%d", int(kind))
	}
	if err := w.strategy.init(w); err != nil {
		return nil, err
	}
	return w, nil
}

// NewBilinear creates a bilinear warp with a 2×2 control grid.
func NewBilinear(width, height float64) (*Warp, error) {
	return New(KindBilinear, width, height)
}

// NewPerspective creates a perspective warp with its corners on the content
// corners.
func NewPerspective(width, height float64) (*Warp, error) {
	return New(KindPerspective, width, height)
}

// NewPerspectiveBilinear creates a composite warp.
func NewPerspectiveBilinear(width, height float64) (*Warp, error) {
	return New(KindPerspectiveBilinear, width, height)
}

func validSize(width, height float64) error {
	if !(width > 0) || !(height > 0) || math.IsInf(width, 0) || math.IsInf(height, 0) {
		return errors.Wrapf(ErrInvalidSize, "%gx%g", width, height)
	}
	return nil
}

func (w *Warp) log() *zap.SugaredLogger {
	return logging.Named("warp").With("id", w.id.String(), "kind", w.kind.String())
}

// ID returns the stable identifier of the warp.
func (w *Warp) ID() uuid.UUID { return w.id }

// SetID replaces the identifier, used when loading persisted warps.
func (w *Warp) SetID(id uuid.UUID) {
	w.id = id
	if p := w.Perspective(); p != nil {
		p.SetID(id)
	}
}

// Kind returns the warp variant.
func (w *Warp) Kind() Kind { return w.kind }

// Reset restores the undistorted state of the control points.
func (w *Warp) Reset() {
	w.strategy.reset(w)
	w.log().Debug("reset")
}

// Size returns the content size.
func (w *Warp) Size() geometry.Size {
	return geometry.NewSize(w.width, w.height)
}

// Bounds returns the content rectangle.
func (w *Warp) Bounds() geometry.Rect {
	return geometry.NewRect(0, 0, w.width, w.height)
}

// SetSize changes the content size. Control points are kept relative to the
// content, so they scale with it.
func (w *Warp) SetSize(width, height float64) error {
	if err := validSize(width, height); err != nil {
		return err
	}
	if width == w.width && height == w.height {
		return nil
	}
	w.width, w.height = width, height
	w.sizeRev++
	w.strategy.setSize(w, width, height)
	w.log().Debugw("content resized", "width", width, "height", height)
	return nil
}

// Controls returns the number of control points along each axis.
func (w *Warp) Controls() (cols, rows int) {
	return w.grid.Size()
}

// NumControlPoints returns the total number of control points.
func (w *Warp) NumControlPoints() int {
	return w.grid.Len()
}

// SetNumControl changes the control grid density. Perspective warps always
// have four points and return ErrUnsupported.
func (w *Warp) SetNumControl(cols, rows int) error {
	return w.strategy.setNumControl(w, cols, rows)
}

// IsLinear reports whether the mesh uses bilinear instead of spline
// interpolation.
func (w *Warp) IsLinear() bool { return w.linear }

// SetLinear selects bilinear interpolation.
func (w *Warp) SetLinear(linear bool) {
	if w.linear != linear {
		w.linear = linear
		w.optsRev++
	}
}

// SetCurved selects Catmull-Rom interpolation.
func (w *Warp) SetCurved(curved bool) {
	w.SetLinear(!curved)
}

// TexCoords returns the texture rectangle mapped across the mesh.
func (w *Warp) TexCoords() mesh.TexRect { return w.tex }

// SetTexCoords sets the texture rectangle. Swapped coordinates flip the
// content.
func (w *Warp) SetTexCoords(x1, y1, x2, y2 float64) {
	tex := mesh.TexRect{X1: x1, Y1: y1, X2: x2, Y2: y2}
	if tex != w.tex {
		w.tex = tex
		w.optsRev++
	}
}

// Resolution returns the base mesh resolution.
func (w *Warp) Resolution() int { return w.resolution }

// SetResolution sets the base number of mesh quads per axis, clamped to
// [1, MaxResolution]. The effective resolution is rounded so that control
// points land on mesh vertices.
func (w *Warp) SetResolution(n int) {
	n = max(1, min(n, MaxResolution))
	if n != w.resolution {
		w.resolution = n
		w.optsRev++
	}
}

// IsAdaptive reports whether the mesh resolution follows the content size.
func (w *Warp) IsAdaptive() bool { return w.adaptive }

// SetAdaptive switches between a fixed base resolution and one derived from
// the content size.
func (w *Warp) SetAdaptive(adaptive bool) {
	if w.adaptive != adaptive {
		w.adaptive = adaptive
		w.optsRev++
	}
}

// SetAdaptiveSpacing sets the target quad size in pixels used in adaptive
// mode.
func (w *Warp) SetAdaptiveSpacing(px float64) {
	if px > 0 && px != w.adaptiveSpacing {
		w.adaptiveSpacing = px
		w.optsRev++
	}
}

// Brightness returns the colour multiplier in [0, 1].
func (w *Warp) Brightness() float64 { return w.brightness }

// SetBrightness sets the colour multiplier, clamped to [0, 1].
func (w *Warp) SetBrightness(b float64) {
	if math.IsNaN(b) {
		return
	}
	w.brightness = math.Max(0, math.Min(1, b))
}

// FlipHorizontal mirrors the content left to right.
func (w *Warp) FlipHorizontal() { w.strategy.flip(w, true) }

// FlipVertical mirrors the content top to bottom.
func (w *Warp) FlipVertical() { w.strategy.flip(w, false) }

// RotateContent rotates the content by a quarter turn. Only warps with a
// perspective stage support it.
func (w *Warp) RotateContent(clockwise bool) error {
	return w.strategy.rotate(w, clockwise)
}

// ControlPoint returns control point i in content pixels.
func (w *Warp) ControlPoint(i int) (geometry.Point2D, error) {
	return w.strategy.controlPoint(w, i)
}

// SetControlPoint moves control point i to p, in content pixels.
func (w *Warp) SetControlPoint(i int, p geometry.Point2D) error {
	if !p.IsFinite() {
		return errors.Errorf("control point %d: non-finite position %v", i, p)
	}
	return w.strategy.setControlPoint(w, i, p)
}

// MoveControlPoint shifts control point i by delta content pixels.
func (w *Warp) MoveControlPoint(i int, delta geometry.Point2D) error {
	p, err := w.ControlPoint(i)
	if err != nil {
		return err
	}
	return w.SetControlPoint(i, p.Add(delta))
}

// MoveSelected shifts the selected control point.
func (w *Warp) MoveSelected(delta geometry.Point2D) error {
	i, ok := w.Selected()
	if !ok {
		return ErrNoSelection
	}
	return w.MoveControlPoint(i, delta)
}

// SelectControlPoint makes i the only selected point of this warp.
func (w *Warp) SelectControlPoint(i int) error {
	return w.grid.Select(i)
}

// DeselectControlPoint clears the selection.
func (w *Warp) DeselectControlPoint() error {
	return w.grid.Deselect()
}

// Selected returns the selected control point, if any.
func (w *Warp) Selected() (int, bool) {
	return w.grid.Selected()
}

// FindControlPoint returns the control point closest to p and its distance
// in content pixels. Ties go to the lowest index.
func (w *Warp) FindControlPoint(p geometry.Point2D) (int, float64) {
	return w.strategy.find(w, p)
}

// ControlPoints returns every control point in content pixels, row-major.
func (w *Warp) ControlPoints() []geometry.Point2D {
	out := make([]geometry.Point2D, w.grid.Len())
	for i := range out {
		out[i], _ = w.ControlPoint(i)
	}
	return out
}

// IsCorner reports whether control point i is one of the four grid corners.
func (w *Warp) IsCorner(i int) bool {
	return w.grid.IsCorner(i)
}

// ConvertIndex maps a corner index onto its perspective slot: 0 top-left,
// 1 top-right, 2 bottom-left, 3 bottom-right.
func (w *Warp) ConvertIndex(i int) (int, bool) {
	return w.grid.CornerSlot(i)
}

// Corners returns the four corner control points in slot order.
func (w *Warp) Corners() [4]geometry.Point2D {
	var out [4]geometry.Point2D
	for slot, idx := range w.grid.Corners() {
		out[slot], _ = w.ControlPoint(idx)
	}
	return out
}

// Outline returns the corner quad as a closed polygon.
func (w *Warp) Outline() []geometry.Point2D {
	return geometry.QuadOutline(w.Corners())
}

// Transform returns the forward perspective transform, recomputing it if
// stale. Bilinear warps return the identity.
func (w *Warp) Transform() homography.Transform {
	return w.strategy.transform(w)
}

// InvertedTransform returns the inverse of Transform.
func (w *Warp) InvertedTransform() homography.Transform {
	return w.Transform().Inverse()
}

// Degenerate reports whether the last transform computation failed and the
// identity is being used instead.
func (w *Warp) Degenerate() bool {
	return w.strategy.degenerate(w)
}

// Mesh returns the current mesh, rebuilding it if stale. Positions are in
// output pixels. Perspective warps return ErrNoMesh.
func (w *Warp) Mesh() (*mesh.Mesh, error) {
	return w.strategy.mesh(w)
}

// Dirty reports whether derived data will be recomputed on next access.
func (w *Warp) Dirty() bool {
	return w.strategy.stale(w)
}

// Revision increases whenever any state of the warp changes.
func (w *Warp) Revision() uint64 {
	return w.grid.Revision() + w.sizeRev + w.optsRev + w.strategy.revision()
}

// Begin opens a render scope and returns the transform the caller applies to
// its render target while drawing content.
func (w *Warp) Begin() (homography.Transform, error) {
	if w.inScope {
		return homography.Identity(), errors.Wrap(ErrScope, "begin called twice")
	}
	w.inScope = true
	return w.strategy.scope(w), nil
}

// End closes the render scope opened by Begin.
func (w *Warp) End() error {
	if !w.inScope {
		return errors.Wrap(ErrScope, "end without begin")
	}
	w.inScope = false
	return nil
}

func (w *Warp) stamp() stamp {
	return stamp{grid: w.grid.Revision(), size: w.sizeRev, opts: w.optsRev}
}

// meshOptions resolves the effective mesh resolution for the current grid.
func (w *Warp) meshOptions() mesh.Options {
	cols, rows := w.grid.Size()
	baseX, baseY := w.resolution, w.resolution
	if w.adaptive {
		baseX = max(1, int(math.Ceil(w.width/w.adaptiveSpacing)))
		baseY = max(1, int(math.Ceil(w.height/w.adaptiveSpacing)))
	}
	return mesh.Options{
		ResolutionX: mesh.Resolution(baseX, cols),
		ResolutionY: mesh.Resolution(baseY, rows),
		Linear:      w.linear,
		Width:       w.width,
		Height:      w.height,
		Tex:         w.tex,
	}
}

// toContent scales a normalized grid point to content pixels.
func (w *Warp) toContent(p geometry.Point2D) geometry.Point2D {
	return p.Mul(w.width, w.height)
}

// toNormalized scales a content pixel position to the unit square.
func (w *Warp) toNormalized(p geometry.Point2D) geometry.Point2D {
	return p.Div(w.width, w.height)
}

// GridPoints returns the normalized control grid in row-major order. For
// composite warps these are the positions before the perspective stage.
func (w *Warp) GridPoints() []geometry.Point2D {
	return w.grid.Points()
}

// SetGridPoints replaces the normalized control grid. Perspective warps
// accept only 2×2 grids; composite warps keep their corners pinned.
func (w *Warp) SetGridPoints(cols, rows int, pts []geometry.Point2D) error {
	if w.kind == KindPerspective && (cols != 2 || rows != 2) {
		return errors.Wrapf(ErrInvalidGridSize, "perspective warp needs 2x2 points, got %dx%d", cols, rows)
	}
	for i, p := range pts {
		if !p.IsFinite() {
			return errors.Errorf("control point %d: non-finite position %v", i, p)
		}
	}
	if err := w.grid.SetPoints(cols, rows, pts); err != nil {
		return err
	}
	if s, ok := w.strategy.(*compositeStrategy); ok {
		s.pinCorners(w)
	}
	return nil
}
