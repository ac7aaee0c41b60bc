package warp

import (
	"image"

	"go.uber.org/multierr"

	"warpcal/internal/homography"
	"warpcal/internal/mesh"
	"warpcal/pkg/geometry"
)

// DrawCall describes one warped draw: the Src region of a texture is placed
// into the Dst region of the content area, which is then mapped to output
// space through Mesh or Transform.
type DrawCall struct {
	Kind    Kind
	Content geometry.Size
	Src     geometry.Rect
	Dst     geometry.Rect
	// Mesh is set for bilinear kinds. Its positions are in output pixels.
	Mesh *mesh.Mesh
	// Transform maps content to output. It is the identity for mesh kinds.
	Transform  homography.Transform
	Brightness float64
}

// Renderer rasterizes draw calls. Warps never touch pixels themselves.
type Renderer interface {
	Render(tex image.Image, call DrawCall) error
}

// Clip restricts dst to the content bounds and shrinks src by the same
// proportion. ok is false when dst does not overlap the content at all or
// either rectangle is empty. A dst entirely inside the content is returned
// unchanged together with src.
func (w *Warp) Clip(src, dst geometry.Rect) (geometry.Rect, geometry.Rect, bool) {
	if src.Empty() || dst.Empty() {
		return geometry.Rect{}, geometry.Rect{}, false
	}
	content := w.Bounds()
	if content.ContainsRect(dst) {
		return src, dst, true
	}
	clipped, ok := dst.Intersect(content)
	if !ok {
		return geometry.Rect{}, geometry.Rect{}, false
	}

	sx := src.Width / dst.Width
	sy := src.Height / dst.Height
	out := geometry.Rect{
		X:      src.X + (clipped.X-dst.X)*sx,
		Y:      src.Y + (clipped.Y-dst.Y)*sy,
		Width:  clipped.Width * sx,
		Height: clipped.Height * sy,
	}
	return out, clipped, true
}

// Draw renders the src region of tex into the dst region of the content,
// warped. Nothing is drawn when dst misses the content.
func (w *Warp) Draw(r Renderer, tex image.Image, src, dst geometry.Rect) (err error) {
	src, dst, ok := w.Clip(src, dst)
	if !ok {
		return nil
	}

	call := DrawCall{
		Kind:       w.kind,
		Content:    w.Size(),
		Src:        src,
		Dst:        dst,
		Brightness: w.brightness,
	}
	if w.kind.HasMesh() {
		if call.Mesh, err = w.Mesh(); err != nil {
			return err
		}
	}

	if call.Transform, err = w.Begin(); err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, w.End())
	}()
	return r.Render(tex, call)
}

// TexRect returns the full bounds of tex as a Rect, for drawing a whole
// texture.
func TexRect(tex image.Image) geometry.Rect {
	b := tex.Bounds()
	return geometry.NewRect(float64(b.Min.X), float64(b.Min.Y), float64(b.Dx()), float64(b.Dy()))
}
