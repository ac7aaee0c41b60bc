package geometry

import (
	"testing"

	"go.viam.com/test"
)

func TestRectIntersect(t *testing.T) {
	bounds := NewRect(0, 0, 100, 50)

	t.Run("overlap", func(t *testing.T) {
		out, ok := bounds.Intersect(NewRect(-10, 10, 30, 100))
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, out, test.ShouldResemble, NewRect(0, 10, 20, 40))
	})

	t.Run("inside", func(t *testing.T) {
		inner := NewRect(10, 10, 20, 20)
		out, ok := bounds.Intersect(inner)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, out, test.ShouldResemble, inner)
		test.That(t, bounds.ContainsRect(inner), test.ShouldBeTrue)
	})

	t.Run("disjoint", func(t *testing.T) {
		_, ok := bounds.Intersect(NewRect(200, 0, 10, 10))
		test.That(t, ok, test.ShouldBeFalse)
	})

	t.Run("touching edges do not intersect", func(t *testing.T) {
		_, ok := bounds.Intersect(NewRect(100, 0, 10, 10))
		test.That(t, ok, test.ShouldBeFalse)
	})
}

func TestRectFromCorners(t *testing.T) {
	r := RectFromCorners(10, 20, 0, 5)
	test.That(t, r, test.ShouldResemble, NewRect(0, 5, 10, 15))
	test.That(t, r.Corners(), test.ShouldResemble, [4]Point2D{{0, 5}, {10, 5}, {0, 20}, {10, 20}})
}

func TestPolygonHelpers(t *testing.T) {
	square := QuadOutline([4]Point2D{{0, 0}, {10, 0}, {0, 10}, {10, 10}})
	test.That(t, square, test.ShouldResemble, []Point2D{{0, 0}, {10, 0}, {10, 10}, {0, 10}})
	test.That(t, PolygonArea(square), test.ShouldEqual, 100.0)
	test.That(t, IsConvex(square), test.ShouldBeTrue)
	test.That(t, PointInPolygon(Point2D{5, 5}, square), test.ShouldBeTrue)
	test.That(t, PointInPolygon(Point2D{15, 5}, square), test.ShouldBeFalse)

	// top corners swapped: a bow tie
	bowTie := QuadOutline([4]Point2D{{10, 0}, {0, 0}, {0, 10}, {10, 10}})
	test.That(t, IsConvex(bowTie), test.ShouldBeFalse)

	test.That(t, TriangleArea(Point2D{0, 0}, Point2D{4, 0}, Point2D{0, 3}), test.ShouldEqual, 6.0)
	test.That(t, IsConvex([]Point2D{{0, 0}, {1, 1}, {2, 2}}), test.ShouldBeFalse)
}

func TestLerp(t *testing.T) {
	a, b := Point2D{0, 0}, Point2D{10, 20}
	test.That(t, Lerp(a, b, 0), test.ShouldResemble, a)
	test.That(t, Lerp(a, b, 1), test.ShouldResemble, b)
	test.That(t, Lerp(a, b, 0.5), test.ShouldResemble, Point2D{5, 10})
	test.That(t, Point2D{3, 4}.Distance(Point2D{}), test.ShouldEqual, 5.0)
}
