package cvwarp

import (
	"image"
	"testing"

	"go.viam.com/test"

	"warpcal/internal/homography"
	"warpcal/pkg/colorutil"
	"warpcal/pkg/geometry"
)

var (
	unit     = [4]geometry.Point2D{{0, 0}, {100, 0}, {0, 100}, {100, 100}}
	keystone = [4]geometry.Point2D{{10, 10}, {90, 0}, {5, 95}, {95, 85}}
)

func TestHomographyMatchesCompute(t *testing.T) {
	ours, err := homography.Compute(unit, keystone)
	test.That(t, err, test.ShouldBeNil)
	theirs, err := Homography(unit, keystone)
	test.That(t, err, test.ShouldBeNil)

	d, err := MaxDifference(ours.Matrix(), theirs)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d, test.ShouldBeLessThan, 1e-4)
}

func TestMaxDifference(t *testing.T) {
	a := [9]float64{2, 0, 0, 0, 2, 0, 0, 0, 2}
	b := [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}
	d, err := MaxDifference(a, b)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d, test.ShouldEqual, 0.0)

	_, err = MaxDifference([9]float64{}, b)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestWarp(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	xf, err := homography.Compute(
		[4]geometry.Point2D{{0, 0}, {20, 0}, {0, 20}, {20, 20}},
		[4]geometry.Point2D{{0, 0}, {10, 0}, {0, 20}, {10, 20}},
	)
	test.That(t, err, test.ShouldBeNil)

	out, err := Warp(img, xf, image.Pt(20, 20))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.RGBAAt(4, 10), test.ShouldResemble, colorutil.White)
	test.That(t, out.RGBAAt(15, 10).A, test.ShouldEqual, uint8(0))
}
