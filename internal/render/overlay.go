package render

import (
	"image"
	"image/color"
	"math"
	"time"

	"golang.org/x/image/vector"

	"warpcal/internal/editing"
	"warpcal/internal/warp"
	"warpcal/pkg/colorutil"
	"warpcal/pkg/geometry"
)

// Palette holds the overlay colours.
type Palette struct {
	Point    color.RGBA
	Selected color.RGBA
	// Corner marks the perspective corners of composite warps.
	Corner  color.RGBA
	Outline color.RGBA
	Wire    color.RGBA
}

// DefaultPalette returns the editor colours.
func DefaultPalette() Palette {
	return Palette{
		Point:    colorutil.White,
		Selected: colorutil.Yellow,
		Corner:   colorutil.Magenta,
		Outline:  colorutil.Cyan,
		Wire:     colorutil.Scale(colorutil.Green, 0.6),
	}
}

// Overlay draws control points, warp outlines and optionally the mesh
// wireframe on top of the rendered output while edit mode is on.
type Overlay struct {
	ctx *editing.Context

	Palette Palette
	// Pulse is the period of the selected point's colour cycle.
	Pulse time.Duration
	// Radius of the control point markers, in output pixels.
	Radius    float64
	LineWidth float64
	Wireframe bool
}

// NewOverlay creates an overlay reading edit mode and selection time from ctx.
func NewOverlay(ctx *editing.Context, pulse time.Duration) *Overlay {
	return &Overlay{
		ctx:       ctx,
		Palette:   DefaultPalette(),
		Pulse:     pulse,
		Radius:    5,
		LineWidth: 1.5,
	}
}

// SelectedColor returns the colour of the selected point, which cycles from
// the selection colour to white and back once per pulse period, starting at
// the moment of selection.
func (o *Overlay) SelectedColor() color.RGBA {
	if o.Pulse <= 0 {
		return o.Palette.Selected
	}
	phase := float64(o.ctx.SinceSelected()%o.Pulse) / float64(o.Pulse)
	t := 0.5 - 0.5*math.Cos(2*math.Pi*phase)
	return colorutil.Lerp(o.Palette.Selected, colorutil.White, t)
}

// DrawArena draws the overlay of every warp, bottom to top.
func (o *Overlay) DrawArena(dst *image.RGBA, arena *warp.Arena) error {
	for _, w := range arena.Warps() {
		if err := o.Draw(dst, w); err != nil {
			return err
		}
	}
	return nil
}

// Draw draws the overlay of one warp. Nothing is drawn outside edit mode.
func (o *Overlay) Draw(dst *image.RGBA, w *warp.Warp) error {
	if !o.ctx.EditMode() {
		return nil
	}
	p := newPainter(dst)

	if o.Wireframe && w.Kind().HasMesh() {
		m, err := w.Mesh()
		if err != nil {
			return err
		}
		for y := 0; y < m.Rows; y++ {
			for x := 0; x < m.Cols; x++ {
				if x+1 < m.Cols {
					p.segment(m.Vertex(x, y), m.Vertex(x+1, y), o.LineWidth/2)
				}
				if y+1 < m.Rows {
					p.segment(m.Vertex(x, y), m.Vertex(x, y+1), o.LineWidth/2)
				}
			}
		}
		p.fill(o.Palette.Wire)
	}

	outline := w.Outline()
	for i := range outline {
		p.segment(outline[i], outline[(i+1)%len(outline)], o.LineWidth)
	}
	p.fill(o.Palette.Outline)

	selected, hasSelection := w.Selected()
	for i, pt := range w.ControlPoints() {
		c := o.Palette.Point
		if w.Kind() == warp.KindPerspectiveBilinear && w.IsCorner(i) {
			c = o.Palette.Corner
		}
		if hasSelection && i == selected {
			c = o.SelectedColor()
		}
		p.disk(pt, o.Radius)
		p.fill(c)
	}
	return nil
}

// painter accumulates anti-aliased shapes and fills them in one colour.
type painter struct {
	dst *image.RGBA
	z   *vector.Rasterizer
	// shapes drawn since the last fill
	pending bool
}

func newPainter(dst *image.RGBA) *painter {
	b := dst.Bounds()
	return &painter{dst: dst, z: vector.NewRasterizer(b.Dx(), b.Dy())}
}

func (p *painter) point(q geometry.Point2D) (float32, float32) {
	b := p.dst.Bounds()
	return float32(q.X - float64(b.Min.X)), float32(q.Y - float64(b.Min.Y))
}

// segment adds a rectangle of the given half width around a-b.
func (p *painter) segment(a, b geometry.Point2D, halfWidth float64) {
	d := b.Sub(a)
	length := math.Hypot(d.X, d.Y)
	if length == 0 {
		return
	}
	n := geometry.Point2D{X: -d.Y / length * halfWidth, Y: d.X / length * halfWidth}
	p.polygon(a.Add(n), b.Add(n), b.Sub(n), a.Sub(n))
}

// disk adds a regular polygon approximating a circle.
func (p *painter) disk(c geometry.Point2D, r float64) {
	const sides = 24
	var pts [sides]geometry.Point2D
	for i := range pts {
		a := 2 * math.Pi * float64(i) / sides
		pts[i] = geometry.Point2D{X: c.X + r*math.Cos(a), Y: c.Y + r*math.Sin(a)}
	}
	p.polygon(pts[:]...)
}

func (p *painter) polygon(pts ...geometry.Point2D) {
	// consistent winding so overlapping shapes do not cancel
	if geometry.PolygonArea(pts) < 0 {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}
	p.z.MoveTo(p.point(pts[0]))
	for _, q := range pts[1:] {
		p.z.LineTo(p.point(q))
	}
	p.z.ClosePath()
	p.pending = true
}

func (p *painter) fill(c color.RGBA) {
	if !p.pending {
		return
	}
	p.z.Draw(p.dst, p.dst.Bounds(), image.NewUniform(c), image.Point{})
	b := p.dst.Bounds()
	p.z.Reset(b.Dx(), b.Dy())
	p.pending = false
}
