// Package mesh turns a control grid into a dense triangulated mesh using
// Catmull-Rom spline interpolation.
package mesh

import (
	"github.com/pkg/errors"

	"warpcal/pkg/geometry"
)

// DefaultResolution is the default number of mesh quads along each axis.
const DefaultResolution = 36

// KnotSource provides control points to the builder. At must clamp
// out-of-range coordinates onto the grid.
type KnotSource interface {
	At(col, row int) geometry.Point2D
	Size() (cols, rows int)
}

// Boundary selects how knots outside the grid are obtained for the spline.
type Boundary int

const (
	// BoundaryExtrapolate mirrors the neighbouring interval across the edge
	// (phantom = 2·edge − inner), which reproduces a uniform grid exactly.
	BoundaryExtrapolate Boundary = iota
	// BoundaryClamp repeats the edge knot.
	BoundaryClamp
)

// TexRect is the texture coordinate rectangle mapped across the mesh.
// Swapping X1/X2 or Y1/Y2 flips the content.
type TexRect struct {
	X1, Y1, X2, Y2 float64
}

// FullTexRect covers the whole texture.
func FullTexRect() TexRect {
	return TexRect{X1: 0, Y1: 0, X2: 1, Y2: 1}
}

// Options controls a mesh build.
type Options struct {
	// ResolutionX and ResolutionY are the number of quads along each axis.
	ResolutionX, ResolutionY int
	// Linear selects bilinear instead of Catmull-Rom interpolation.
	Linear   bool
	Boundary Boundary
	// Width and Height scale normalized knots to output coordinates.
	Width, Height float64
	Tex           TexRect
}

// Mesh is a regular lattice of Cols×Rows vertices. Vertex (x, y) is stored at
// index y*Cols + x. Indices hold two triangles per quad and
// depend only on Cols and Rows.
type Mesh struct {
	Cols, Rows int
	Positions  []geometry.Point2D
	TexCoords  []geometry.Point2D
	Indices    []uint32
}

// Vertex returns the position of vertex x,y.
func (m *Mesh) Vertex(x, y int) geometry.Point2D {
	return m.Positions[y*m.Cols+x]
}

// NumTriangles returns the number of triangles in the mesh.
func (m *Mesh) NumTriangles() int {
	return len(m.Indices) / 3
}

// Triangle returns the vertex indices of triangle i.
func (m *Mesh) Triangle(i int) (a, b, c uint32) {
	return m.Indices[3*i], m.Indices[3*i+1], m.Indices[3*i+2]
}

// Bounds returns the bounding box of all positions.
func (m *Mesh) Bounds() geometry.Rect {
	return geometry.BoundingBox(m.Positions)
}

// Transform replaces every position with fn(position).
func (m *Mesh) Transform(fn func(geometry.Point2D) geometry.Point2D) {
	for i, p := range m.Positions {
		m.Positions[i] = fn(p)
	}
}

// Resolution returns the number of quads to use along an axis with the given
// number of controls: base when every control interval receives the same
// whole number of quads, otherwise the nearest multiple of controls-1. This
// guarantees knots land exactly on mesh vertices.
func Resolution(base, controls int) int {
	step := controls - 1
	if step <= 0 {
		return base
	}
	if base <= step {
		return step
	}
	if gcd(base, step) == step {
		return base
	}
	r := base % step
	if 2*r >= step {
		return base + step - r
	}
	return base - r
}

// gcd returns the greatest common divisor using Euclid's algorithm.
func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// CatmullRom evaluates the uniform Catmull-Rom spline through k1 and k2 at t
// in [0, 1], using k0 and k3 to shape the tangents.
func CatmullRom(k0, k1, k2, k3 geometry.Point2D, t float64) geometry.Point2D {
	return geometry.Point2D{
		X: catmullRom(k0.X, k1.X, k2.X, k3.X, t),
		Y: catmullRom(k0.Y, k1.Y, k2.Y, k3.Y, t),
	}
}

func catmullRom(k0, k1, k2, k3, t float64) float64 {
	return k1 + 0.5*t*(k2-k0+t*(2*k0-5*k1+4*k2-k3+t*(3*(k1-k2)+k3-k0)))
}

// Builder builds meshes, reusing buffers and topology between builds. The
// mesh returned by Build stays valid until the next call.
type Builder struct {
	mesh *Mesh
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build interpolates src into a mesh.
func (b *Builder) Build(src KnotSource, opts Options) (*Mesh, error) {
	controlsX, controlsY := src.Size()
	if controlsX < 2 || controlsY < 2 {
		return nil, errors.Errorf("mesh: need at least 2x2 control points, got %dx%d", controlsX, controlsY)
	}
	if opts.ResolutionX < 1 || opts.ResolutionY < 1 {
		return nil, errors.Errorf("mesh: invalid resolution %dx%d", opts.ResolutionX, opts.ResolutionY)
	}

	cols, rows := opts.ResolutionX+1, opts.ResolutionY+1
	m := b.prepare(cols, rows)
	knots := knotReader{src: src, cols: controlsX, rows: controlsY, boundary: opts.Boundary}

	var column [4]geometry.Point2D
	var row [4]geometry.Point2D
	for y := 0; y < rows; y++ {
		// position within the control grid
		v := float64(y*(controlsY-1)) / float64(rows-1)
		r := int(v)
		tv := v - float64(r)

		for x := 0; x < cols; x++ {
			u := float64(x*(controlsX-1)) / float64(cols-1)
			c := int(u)
			tu := u - float64(c)

			var p geometry.Point2D
			if opts.Linear {
				p1 := geometry.Lerp(src.At(c, r), src.At(c+1, r), tu)
				p2 := geometry.Lerp(src.At(c, r+1), src.At(c+1, r+1), tu)
				p = geometry.Lerp(p1, p2, tv)
			} else {
				// interpolate down each of the 4 neighbouring columns, then across
				for i := -1; i < 3; i++ {
					for j := -1; j < 3; j++ {
						column[j+1] = knots.at(c+i, r+j)
					}
					row[i+1] = CatmullRom(column[0], column[1], column[2], column[3], tv)
				}
				p = CatmullRom(row[0], row[1], row[2], row[3], tu)
			}

			idx := y*cols + x
			m.Positions[idx] = p.Mul(opts.Width, opts.Height)
			m.TexCoords[idx] = geometry.Point2D{
				X: opts.Tex.X1 + (opts.Tex.X2-opts.Tex.X1)*float64(x)/float64(cols-1),
				Y: opts.Tex.Y1 + (opts.Tex.Y2-opts.Tex.Y1)*float64(y)/float64(rows-1),
			}
		}
	}
	return m, nil
}

// prepare sizes the buffers and rebuilds the triangle topology when the
// lattice dimensions changed.
func (b *Builder) prepare(cols, rows int) *Mesh {
	if b.mesh != nil && b.mesh.Cols == cols && b.mesh.Rows == rows {
		return b.mesh
	}
	m := &Mesh{
		Cols:      cols,
		Rows:      rows,
		Positions: make([]geometry.Point2D, cols*rows),
		TexCoords: make([]geometry.Point2D, cols*rows),
		Indices:   make([]uint32, 0, (cols-1)*(rows-1)*6),
	}
	for y := 0; y+1 < rows; y++ {
		for x := 0; x+1 < cols; x++ {
			i0 := uint32(y*cols + x)
			i1 := i0 + 1
			i2 := uint32((y+1)*cols + x + 1)
			i3 := i2 - 1
			m.Indices = append(m.Indices, i0, i1, i2, i0, i2, i3)
		}
	}
	b.mesh = m
	return m
}

// knotReader resolves knots outside the grid according to the boundary mode.
type knotReader struct {
	src        KnotSource
	cols, rows int
	boundary   Boundary
}

func (k knotReader) at(col, row int) geometry.Point2D {
	if k.boundary == BoundaryClamp {
		return k.src.At(col, row)
	}
	switch {
	case col < 0:
		return reflect(k.at(0, row), k.at(1, row))
	case col >= k.cols:
		return reflect(k.at(k.cols-1, row), k.at(k.cols-2, row))
	case row < 0:
		return reflect(k.at(col, 0), k.at(col, 1))
	case row >= k.rows:
		return reflect(k.at(col, k.rows-1), k.at(col, k.rows-2))
	}
	return k.src.At(col, row)
}

// reflect returns the phantom knot beyond edge, opposite to inner.
func reflect(edge, inner geometry.Point2D) geometry.Point2D {
	return edge.Scale(2).Sub(inner)
}
