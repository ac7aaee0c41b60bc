// Package render rasterizes warped content in software.
//
// A draw first scales the requested texture region into a content-sized
// buffer, the render target the warp edits against, then maps that buffer to
// the output either through the warp mesh (bilinear kinds) or through the
// inverse of the perspective transform.
package render

import (
	"image"
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"golang.org/x/image/draw"

	cimage "warpcal/internal/image"
	"warpcal/internal/warp"
	"warpcal/pkg/colorutil"
	"warpcal/pkg/geometry"
)

// wEpsilon is the smallest homogeneous w of an inverse-mapped pixel.
const wEpsilon = 1e-12

// Stats counts the work done since the last Clear.
type Stats struct {
	Calls     int
	Triangles int
	Pixels    int
}

// Renderer implements warp.Renderer over an RGBA output image.
type Renderer struct {
	target  *image.RGBA
	content *image.RGBA
	stats   Stats

	// Scaler resamples the source region into the content buffer.
	Scaler draw.Scaler
	// Blend combines warped pixels with the output.
	Blend cimage.BlendMode
}

var _ warp.Renderer = (*Renderer)(nil)

// NewRenderer creates a renderer drawing into target.
func NewRenderer(target *image.RGBA) *Renderer {
	return &Renderer{
		target: target,
		Scaler: draw.ApproxBiLinear,
	}
}

// Target returns the output image.
func (r *Renderer) Target() *image.RGBA { return r.target }

// Stats returns the work counters.
func (r *Renderer) Stats() Stats { return r.stats }

// Clear fills the output with c and resets the counters.
func (r *Renderer) Clear(c color.Color) {
	draw.Draw(r.target, r.target.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	r.stats = Stats{}
}

// DrawWarp draws the src region of tex into the dst region of the warp's
// content.
func (r *Renderer) DrawWarp(w *warp.Warp, tex image.Image, src, dst geometry.Rect) error {
	return w.Draw(r, tex, src, dst)
}

// DrawArena draws the whole of tex stretched over the content of every warp,
// bottom to top.
func (r *Renderer) DrawArena(arena *warp.Arena, tex image.Image) error {
	for _, w := range arena.Warps() {
		if err := r.DrawWarp(w, tex, warp.TexRect(tex), w.Bounds()); err != nil {
			return errors.Wrapf(err, "warp %s", w.ID())
		}
	}
	return nil
}

// Render rasterizes one draw call.
func (r *Renderer) Render(tex image.Image, call warp.DrawCall) error {
	if r.target == nil {
		return errors.New("render: no target")
	}
	if call.Content.Width <= 0 || call.Content.Height <= 0 {
		return errors.Errorf("render: empty content %gx%g", call.Content.Width, call.Content.Height)
	}
	r.stats.Calls++
	r.prepareContent(call.Content)

	draw.Draw(r.content, r.content.Bounds(), image.Transparent, image.Point{}, draw.Src)
	r.Scaler.Scale(r.content, roundRect(call.Dst), tex, roundRect(call.Src), draw.Src, nil)

	if call.Mesh != nil {
		r.rasterizeMesh(call)
		return nil
	}
	r.rasterizeTransform(call)
	return nil
}

func (r *Renderer) prepareContent(size geometry.Size) {
	w, h := int(math.Ceil(size.Width)), int(math.Ceil(size.Height))
	if r.content != nil && r.content.Bounds().Dx() == w && r.content.Bounds().Dy() == h {
		return
	}
	r.content = image.NewRGBA(image.Rect(0, 0, w, h))
}

func (r *Renderer) rasterizeMesh(call warp.DrawCall) {
	m := call.Mesh
	texPoint := func(i uint32) geometry.Point2D {
		return m.TexCoords[i].Mul(call.Content.Width, call.Content.Height)
	}
	for i := 0; i < m.NumTriangles(); i++ {
		a, b, c := m.Triangle(i)
		r.rasterizeTriangle(
			[3]geometry.Point2D{m.Positions[a], m.Positions[b], m.Positions[c]},
			[3]geometry.Point2D{texPoint(a), texPoint(b), texPoint(c)},
			call.Brightness,
		)
		r.stats.Triangles++
	}
}

// rasterizeTriangle fills the output pixels whose centres fall inside pos,
// sampling the content at the barycentric blend of tex.
func (r *Renderer) rasterizeTriangle(pos, tex [3]geometry.Point2D, brightness float64) {
	area := edge(pos[0], pos[1], pos[2])
	if math.Abs(area) < 1e-12 {
		return
	}
	box, ok := r.clipBox(geometry.BoundingBox(pos[:]))
	if !ok {
		return
	}

	for y := box.Min.Y; y < box.Max.Y; y++ {
		for x := box.Min.X; x < box.Max.X; x++ {
			p := geometry.Point2D{X: float64(x) + 0.5, Y: float64(y) + 0.5}
			w0 := edge(pos[1], pos[2], p) / area
			w1 := edge(pos[2], pos[0], p) / area
			w2 := 1 - w0 - w1
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			t := tex[0].Scale(w0).Add(tex[1].Scale(w1)).Add(tex[2].Scale(w2))
			r.shade(x, y, t, brightness)
		}
	}
}

func (r *Renderer) rasterizeTransform(call warp.DrawCall) {
	content := geometry.NewRect(0, 0, call.Content.Width, call.Content.Height)
	corners := content.Corners()
	for i := range corners {
		corners[i] = call.Transform.Apply(corners[i])
	}
	box, ok := r.clipBox(geometry.BoundingBox(corners[:]))
	if !ok {
		return
	}
	inverse := call.Transform.InverseMat4()
	for y := box.Min.Y; y < box.Max.Y; y++ {
		for x := box.Min.X; x < box.Max.X; x++ {
			v := inverse.Mul4x1(mgl64.Vec4{float64(x) + 0.5, float64(y) + 0.5, 0, 1})
			if math.Abs(v[3]) < wEpsilon {
				continue
			}
			q := geometry.Point2D{X: v[0] / v[3], Y: v[1] / v[3]}
			if !content.Contains(q) {
				continue
			}
			r.shade(x, y, q, call.Brightness)
		}
	}
}

// shade samples the content at p and blends the result into output pixel x,y.
func (r *Renderer) shade(x, y int, p geometry.Point2D, brightness float64) {
	c, ok := sample(r.content, p.X, p.Y)
	if !ok {
		return
	}
	c = colorutil.Scale(c, brightness)
	cimage.BlendPixel(r.target, x, y, c, r.Blend, 1)
	r.stats.Pixels++
}

func (r *Renderer) clipBox(b geometry.Rect) (image.Rectangle, bool) {
	box := image.Rect(
		int(math.Floor(b.X)), int(math.Floor(b.Y)),
		int(math.Ceil(b.X+b.Width)), int(math.Ceil(b.Y+b.Height)),
	).Intersect(r.target.Bounds())
	return box, !box.Empty()
}

// sample reads img bilinearly at x,y with pixel centres at half-integers and
// returns the colour without premultiplied alpha. Fully transparent samples
// report false.
func sample(img *image.RGBA, x, y float64) (color.RGBA, bool) {
	b := img.Bounds()
	fx, fy := x-0.5, y-0.5
	x0, y0 := int(math.Floor(fx)), int(math.Floor(fy))
	tx, ty := fx-float64(x0), fy-float64(y0)

	clampX := func(v int) int { return min(max(v, b.Min.X), b.Max.X-1) }
	clampY := func(v int) int { return min(max(v, b.Min.Y), b.Max.Y-1) }
	c00 := img.RGBAAt(clampX(x0), clampY(y0))
	c10 := img.RGBAAt(clampX(x0+1), clampY(y0))
	c01 := img.RGBAAt(clampX(x0), clampY(y0+1))
	c11 := img.RGBAAt(clampX(x0+1), clampY(y0+1))

	mix := func(a, b, c, d uint8) float64 {
		top := float64(a)*(1-tx) + float64(b)*tx
		bottom := float64(c)*(1-tx) + float64(d)*tx
		return top*(1-ty) + bottom*ty
	}
	alpha := mix(c00.A, c10.A, c01.A, c11.A)
	if alpha < 0.5 {
		return color.RGBA{}, false
	}
	k := 255 / alpha
	channel := func(v float64) uint8 {
		return uint8(math.Min(v*k, 255) + 0.5)
	}
	return color.RGBA{
		R: channel(mix(c00.R, c10.R, c01.R, c11.R)),
		G: channel(mix(c00.G, c10.G, c01.G, c11.G)),
		B: channel(mix(c00.B, c10.B, c01.B, c11.B)),
		A: uint8(alpha + 0.5),
	}, true
}

func edge(a, b, p geometry.Point2D) float64 {
	return (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
}

func roundRect(r geometry.Rect) image.Rectangle {
	return image.Rect(
		int(math.Round(r.X)), int(math.Round(r.Y)),
		int(math.Round(r.X+r.Width)), int(math.Round(r.Y+r.Height)),
	)
}
