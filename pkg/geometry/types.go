// Package geometry provides basic geometric types used throughout the application.
package geometry

import (
	"math"

	"github.com/golang/geo/r2"
)

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance to another point.
func (p Point2D) Distance(other Point2D) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Add returns the sum of two points.
func (p Point2D) Add(other Point2D) Point2D {
	return Point2D{X: p.X + other.X, Y: p.Y + other.Y}
}

// Sub returns the difference of two points.
func (p Point2D) Sub(other Point2D) Point2D {
	return Point2D{X: p.X - other.X, Y: p.Y - other.Y}
}

// Scale returns the point scaled by a factor.
func (p Point2D) Scale(factor float64) Point2D {
	return Point2D{X: p.X * factor, Y: p.Y * factor}
}

// Mul returns the point scaled component-wise.
func (p Point2D) Mul(sx, sy float64) Point2D {
	return Point2D{X: p.X * sx, Y: p.Y * sy}
}

// Div returns the point divided component-wise. Zero divisors leave the
// component unchanged.
func (p Point2D) Div(sx, sy float64) Point2D {
	out := p
	if sx != 0 {
		out.X /= sx
	}
	if sy != 0 {
		out.Y /= sy
	}
	return out
}

// IsFinite reports whether both coordinates are finite numbers.
func (p Point2D) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Lerp linearly interpolates between a and b.
func Lerp(a, b Point2D, t float64) Point2D {
	return Point2D{X: (1-t)*a.X + t*b.X, Y: (1-t)*a.Y + t*b.Y}
}

// Rect represents a rectangle with floating-point coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NewRect creates a new Rect.
func NewRect(x, y, width, height float64) Rect {
	return Rect{X: x, Y: y, Width: width, Height: height}
}

// RectFromCorners creates a Rect spanning two corners given in any order.
func RectFromCorners(x1, y1, x2, y2 float64) Rect {
	return fromR2(r2.RectFromPoints(r2.Point{X: x1, Y: y1}, r2.Point{X: x2, Y: y2}))
}

// Contains returns true if the point is inside the rectangle.
func (r Rect) Contains(p Point2D) bool {
	return p.X >= r.X && p.X <= r.X+r.Width &&
		p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// ContainsRect returns true if other lies entirely inside the rectangle.
func (r Rect) ContainsRect(other Rect) bool {
	return r.toR2().Contains(other.toR2())
}

// Empty returns true if the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Corners returns the corners in top-left, top-right, bottom-left,
// bottom-right order.
func (r Rect) Corners() [4]Point2D {
	x2, y2 := r.X+r.Width, r.Y+r.Height
	return [4]Point2D{{r.X, r.Y}, {x2, r.Y}, {r.X, y2}, {x2, y2}}
}

// Intersects returns true if this rectangle intersects with another.
func (r Rect) Intersects(other Rect) bool {
	return r.X < other.X+other.Width && r.X+r.Width > other.X &&
		r.Y < other.Y+other.Height && r.Y+r.Height > other.Y
}

// Intersect returns the overlapping area of two rectangles and whether it is
// non-empty.
func (r Rect) Intersect(other Rect) (Rect, bool) {
	if !r.Intersects(other) {
		return Rect{}, false
	}
	out := fromR2(r.toR2().Intersection(other.toR2()))
	return out, !out.Empty()
}

func (r Rect) toR2() r2.Rect {
	return r2.RectFromPoints(r2.Point{X: r.X, Y: r.Y}, r2.Point{X: r.X + r.Width, Y: r.Y + r.Height})
}

func fromR2(rr r2.Rect) Rect {
	if rr.IsEmpty() {
		return Rect{}
	}
	return Rect{X: rr.X.Lo, Y: rr.Y.Lo, Width: rr.X.Length(), Height: rr.Y.Length()}
}

// Size represents a 2D size.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NewSize creates a new Size.
func NewSize(width, height float64) Size {
	return Size{Width: width, Height: height}
}

// BoundingBox computes the axis-aligned bounding box of a set of points.
func BoundingBox(points []Point2D) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
