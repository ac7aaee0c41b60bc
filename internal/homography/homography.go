// Package homography estimates the projective transform that maps one
// quadrilateral onto another.
package homography

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"

	"warpcal/internal/linalg"
	"warpcal/pkg/geometry"
)

// ErrDegenerate is returned when the correspondences do not define a valid
// projective transform (collinear or coincident points, zero-area quad).
var ErrDegenerate = errors.New("homography: degenerate point correspondence")

const (
	// wEpsilon is the smallest homogeneous w accepted when projecting a point.
	wEpsilon = 1e-12
	// collinearTolerance is the smallest triangle area, relative to the squared
	// extent of the quad, accepted between any three of its points.
	collinearTolerance = 1e-9
)

// Transform is a planar homography stored as a row-major 3×3 matrix together
// with its inverse:
//
//	| h0 h1 h2 |
//	| h3 h4 h5 |
//	| h6 h7 h8 |
//
// A point (x, y) maps to ((h0 x + h1 y + h2) / w, (h3 x + h4 y + h5) / w)
// with w = h6 x + h7 y + h8.
type Transform struct {
	forward [9]float64
	inverse [9]float64
}

// Identity returns the identity transform.
func Identity() Transform {
	id := [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}
	return Transform{forward: id, inverse: id}
}

// FromMatrix builds a Transform from a row-major 3×3 matrix, computing its
// inverse.
func FromMatrix(h [9]float64) (Transform, error) {
	inv, err := invert(h)
	if err != nil {
		return Identity(), err
	}
	return Transform{forward: h, inverse: inv}, nil
}

// Compute finds the homography that maps each src[i] onto dst[i].
//
// Each correspondence contributes two rows to an 8×9 augmented system whose
// unknowns are h0..h7, with h8 fixed to 1:
//
//	x' = (h0 X + h1 Y + h2) / (h6 X + h7 Y + 1)
//	y' = (h3 X + h4 Y + h5) / (h6 X + h7 Y + 1)
func Compute(src, dst [4]geometry.Point2D) (Transform, error) {
	if err := checkQuad(src); err != nil {
		return Identity(), errors.Wrap(err, "source quad")
	}
	if err := checkQuad(dst); err != nil {
		return Identity(), errors.Wrap(err, "destination quad")
	}

	const n = 8
	a := make([]float64, n*(n+1))
	for i := 0; i < 4; i++ {
		X, Y := src[i].X, src[i].Y
		x, y := dst[i].X, dst[i].Y

		r := a[(2*i)*(n+1) : (2*i+1)*(n+1)]
		r[0], r[1], r[2] = X, Y, 1
		r[6], r[7] = -X*x, -Y*x
		r[8] = x

		r = a[(2*i+1)*(n+1) : (2*i+2)*(n+1)]
		r[3], r[4], r[5] = X, Y, 1
		r[6], r[7] = -X*y, -Y*y
		r[8] = y
	}

	h, err := linalg.Solve(a, n)
	if err != nil {
		return Identity(), multierr.Append(ErrDegenerate, err)
	}

	var forward [9]float64
	copy(forward[:], h)
	forward[8] = 1

	t, err := FromMatrix(forward)
	if err != nil {
		return Identity(), err
	}
	return t, nil
}

// checkQuad rejects quads where any three points are (nearly) collinear.
func checkQuad(q [4]geometry.Point2D) error {
	for i, p := range q {
		if !p.IsFinite() {
			return errors.Wrapf(ErrDegenerate, "point %d is not finite", i)
		}
	}
	bounds := geometry.BoundingBox(q[:])
	extent := math.Max(bounds.Width, bounds.Height)
	if extent == 0 {
		return errors.Wrap(ErrDegenerate, "all points coincide")
	}
	limit := collinearTolerance * extent * extent
	for skip := 0; skip < 4; skip++ {
		var tri []geometry.Point2D
		for i := 0; i < 4; i++ {
			if i != skip {
				tri = append(tri, q[i])
			}
		}
		if geometry.TriangleArea(tri[0], tri[1], tri[2]) <= limit {
			return errors.Wrapf(ErrDegenerate, "points collinear without point %d", skip)
		}
	}
	return nil
}

// invert computes the inverse of a 3×3 matrix, normalized so that its last
// element is 1 whenever possible. Matrices gonum reports as ill-conditioned
// are retried with Gauss-Jordan elimination, which only gives up on a zero
// pivot.
func invert(h [9]float64) ([9]float64, error) {
	var out [9]float64
	var inv mat.Dense
	if err := inv.Inverse(mat.NewDense(3, 3, h[:])); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return [9]float64{}, multierr.Append(ErrDegenerate, err)
		}
		m, err := linalg.Invert(h[:], 3)
		if err != nil {
			return [9]float64{}, multierr.Append(ErrDegenerate, err)
		}
		copy(out[:], m)
	} else {
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				out[r*3+c] = inv.At(r, c)
			}
		}
	}
	if s := out[8]; math.Abs(s) > wEpsilon {
		for i := range out {
			out[i] /= s
		}
	}
	for _, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return [9]float64{}, errors.Wrap(ErrDegenerate, "inverse is not finite")
		}
	}
	return out, nil
}

// Matrix returns the forward matrix in row-major order.
func (t Transform) Matrix() [9]float64 {
	return t.forward
}

// InverseMatrix returns the inverse matrix in row-major order.
func (t Transform) InverseMatrix() [9]float64 {
	return t.inverse
}

// Inverse returns the transform mapping dst back onto src.
func (t Transform) Inverse() Transform {
	return Transform{forward: t.inverse, inverse: t.forward}
}

// IsIdentity reports whether the transform leaves every point unchanged.
func (t Transform) IsIdentity() bool {
	return t.forward == Identity().forward
}

// Apply maps p through the forward transform. Points that land on the line
// at infinity are returned unchanged.
func (t Transform) Apply(p geometry.Point2D) geometry.Point2D {
	out, ok := project(t.forward, p)
	if !ok {
		return p
	}
	return out
}

// ApplyInverse maps p through the inverse transform.
func (t Transform) ApplyInverse(p geometry.Point2D) geometry.Point2D {
	out, ok := project(t.inverse, p)
	if !ok {
		return p
	}
	return out
}

// Project maps p through the forward transform and reports whether the
// result is finite.
func (t Transform) Project(p geometry.Point2D) (geometry.Point2D, bool) {
	return project(t.forward, p)
}

func project(h [9]float64, p geometry.Point2D) (geometry.Point2D, bool) {
	w := h[6]*p.X + h[7]*p.Y + h[8]
	if math.Abs(w) < wEpsilon {
		return geometry.Point2D{}, false
	}
	return geometry.Point2D{
		X: (h[0]*p.X + h[1]*p.Y + h[2]) / w,
		Y: (h[3]*p.X + h[4]*p.Y + h[5]) / w,
	}, true
}

// Mat4 embeds the forward transform into a column-major 4×4 matrix acting on
// (x, y, z, w) with z passed through, suitable as a model matrix.
func (t Transform) Mat4() mgl64.Mat4 {
	return embed(t.forward)
}

// InverseMat4 embeds the inverse transform into a 4×4 matrix.
func (t Transform) InverseMat4() mgl64.Mat4 {
	return embed(t.inverse)
}

func embed(h [9]float64) mgl64.Mat4 {
	return mgl64.Mat4{
		h[0], h[3], 0, h[6],
		h[1], h[4], 0, h[7],
		0, 0, 1, 0,
		h[2], h[5], 0, h[8],
	}
}
