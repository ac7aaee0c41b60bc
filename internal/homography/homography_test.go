package homography

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"warpcal/internal/linalg"
	"warpcal/pkg/geometry"
)

func square(size float64) [4]geometry.Point2D {
	return [4]geometry.Point2D{{X: 0, Y: 0}, {X: size, Y: 0}, {X: 0, Y: size}, {X: size, Y: size}}
}

func TestComputeKeystone(t *testing.T) {
	src := square(100)
	dst := [4]geometry.Point2D{{X: 10, Y: 10}, {X: 90, Y: 20}, {X: 5, Y: 95}, {X: 95, Y: 85}}

	h, err := Compute(src, dst)
	test.That(t, err, test.ShouldBeNil)

	for i := range src {
		got := h.Apply(src[i])
		test.That(t, got.X, test.ShouldAlmostEqual, dst[i].X, 1e-3)
		test.That(t, got.Y, test.ShouldAlmostEqual, dst[i].Y, 1e-3)
	}

	got := h.Apply(geometry.Point2D{X: 0, Y: 0})
	test.That(t, got.X, test.ShouldAlmostEqual, 10, 1e-3)
	test.That(t, got.Y, test.ShouldAlmostEqual, 10, 1e-3)
	got = h.Apply(geometry.Point2D{X: 100, Y: 100})
	test.That(t, got.X, test.ShouldAlmostEqual, 95, 1e-3)
	test.That(t, got.Y, test.ShouldAlmostEqual, 85, 1e-3)
}

func TestForwardInverseConsistency(t *testing.T) {
	cases := []struct {
		name string
		dst  [4]geometry.Point2D
	}{
		{"identity", square(100)},
		{"keystone", [4]geometry.Point2D{{X: 10, Y: 10}, {X: 90, Y: 20}, {X: 5, Y: 95}, {X: 95, Y: 85}}},
		{"scaled", [4]geometry.Point2D{{X: -50, Y: -50}, {X: 150, Y: -50}, {X: -50, Y: 150}, {X: 150, Y: 150}}},
		{"skewed", [4]geometry.Point2D{{X: 30, Y: 0}, {X: 130, Y: 10}, {X: 0, Y: 90}, {X: 100, Y: 120}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, err := Compute(square(100), tc.dst)
			test.That(t, err, test.ShouldBeNil)
			for x := 0.0; x <= 100; x += 12.5 {
				for y := 0.0; y <= 100; y += 12.5 {
					p := geometry.Point2D{X: x, Y: y}
					back := h.ApplyInverse(h.Apply(p))
					test.That(t, back.X, test.ShouldAlmostEqual, p.X, 1e-6)
					test.That(t, back.Y, test.ShouldAlmostEqual, p.Y, 1e-6)
				}
			}
			// the inverse transform maps dst onto src
			inv := h.Inverse()
			for i, q := range tc.dst {
				got := inv.Apply(q)
				test.That(t, got.X, test.ShouldAlmostEqual, square(100)[i].X, 1e-6)
				test.That(t, got.Y, test.ShouldAlmostEqual, square(100)[i].Y, 1e-6)
			}
		})
	}
}

func TestComputeIdentity(t *testing.T) {
	h, err := Compute(square(640), square(640))
	test.That(t, err, test.ShouldBeNil)
	m := h.Matrix()
	want := Identity().Matrix()
	for i := range m {
		test.That(t, m[i], test.ShouldAlmostEqual, want[i], 1e-9)
	}
}

func TestComputeDegenerate(t *testing.T) {
	cases := []struct {
		name string
		dst  [4]geometry.Point2D
	}{
		{"collinear", [4]geometry.Point2D{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 20, Y: 0}, {X: 30, Y: 0}}},
		{"coincident", [4]geometry.Point2D{{X: 5, Y: 5}, {X: 5, Y: 5}, {X: 5, Y: 5}, {X: 5, Y: 5}}},
		{"three on a line", [4]geometry.Point2D{{X: 0, Y: 0}, {X: 50, Y: 50}, {X: 100, Y: 100}, {X: 0, Y: 100}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, err := Compute(square(100), tc.dst)
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, errors.Is(err, ErrDegenerate), test.ShouldBeTrue)
			test.That(t, h.IsIdentity(), test.ShouldBeTrue)
		})
	}
}

func TestMat4Embedding(t *testing.T) {
	h, err := Compute(square(100), [4]geometry.Point2D{{X: 10, Y: 10}, {X: 90, Y: 20}, {X: 5, Y: 95}, {X: 95, Y: 85}})
	test.That(t, err, test.ShouldBeNil)

	p := geometry.Point2D{X: 37, Y: 61}
	want := h.Apply(p)
	v := h.Mat4().Mul4x1(mgl64.Vec4{p.X, p.Y, 0, 1})
	test.That(t, v[0]/v[3], test.ShouldAlmostEqual, want.X, 1e-9)
	test.That(t, v[1]/v[3], test.ShouldAlmostEqual, want.Y, 1e-9)

	product := h.Mat4().Mul4(h.InverseMat4())
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			// the product is the identity up to a scale factor; z passes through
			want := 0.0
			switch {
			case r == 2 && c == 2:
				want = 1
			case r == c:
				want = product.At(3, 3)
			}
			test.That(t, product.At(r, c), test.ShouldAlmostEqual, want, 1e-9)
		}
	}
}

func TestFromMatrixSingular(t *testing.T) {
	_, err := FromMatrix([9]float64{1, 2, 3, 2, 4, 6, 0, 0, 1})
	test.That(t, errors.Is(err, ErrDegenerate), test.ShouldBeTrue)
	test.That(t, errors.Is(err, linalg.ErrSingular), test.ShouldBeTrue)
}

func TestFromMatrixIllConditioned(t *testing.T) {
	// condition number 1e18 is past gonum's tolerance but every pivot is usable
	h := [9]float64{
		1e10, 0, 0,
		0, 1, 0,
		0, 0, 1e-8,
	}
	xf, err := FromMatrix(h)
	test.That(t, err, test.ShouldBeNil)

	inv := xf.InverseMatrix()
	want := [9]float64{1e-18, 0, 0, 0, 1e-8, 0, 0, 0, 1}
	for i := range want {
		test.That(t, inv[i], test.ShouldAlmostEqual, want[i], 1e-12*math.Max(1, math.Abs(want[i])))
	}

	p := geometry.Point2D{X: 3e-10, Y: 5e-9}
	back := xf.ApplyInverse(xf.Apply(p))
	test.That(t, back.X, test.ShouldAlmostEqual, p.X, 1e-20)
	test.That(t, back.Y, test.ShouldAlmostEqual, p.Y, 1e-18)
}

func TestComputeIllConditionedQuad(t *testing.T) {
	// a sliver quad, one pixel tall over 4096 wide
	src := [4]geometry.Point2D{{X: 0, Y: 0}, {X: 4096, Y: 0}, {X: 0, Y: 1}, {X: 4096, Y: 1}}
	dst := [4]geometry.Point2D{{X: 10, Y: 3}, {X: 4000, Y: 0}, {X: 12, Y: 4.5}, {X: 4010, Y: 1.2}}
	h, err := Compute(src, dst)
	test.That(t, err, test.ShouldBeNil)
	for i := range src {
		got := h.Apply(src[i])
		test.That(t, got.X, test.ShouldAlmostEqual, dst[i].X, 1e-3)
		test.That(t, got.Y, test.ShouldAlmostEqual, dst[i].Y, 1e-3)
		back := h.ApplyInverse(dst[i])
		test.That(t, back.X, test.ShouldAlmostEqual, src[i].X, 1e-3)
		test.That(t, back.Y, test.ShouldAlmostEqual, src[i].Y, 1e-3)
	}
}
