// Package cvwarp computes perspective transforms and warps with OpenCV, as an
// independent reference for the software renderer.
package cvwarp

import (
	"image"
	"image/color"
	"math"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"warpcal/internal/homography"
	"warpcal/pkg/geometry"
)

// Homography returns OpenCV's row-major 3×3 matrix mapping src onto dst,
// normalized so the last entry is 1.
func Homography(src, dst [4]geometry.Point2D) ([9]float64, error) {
	srcVec := gocv.NewPoint2fVectorFromPoints(toPoint2f(src))
	defer srcVec.Close()
	dstVec := gocv.NewPoint2fVectorFromPoints(toPoint2f(dst))
	defer dstVec.Close()

	m := gocv.GetPerspectiveTransform2f(srcVec, dstVec)
	defer m.Close()
	if m.Empty() || m.Rows() != 3 || m.Cols() != 3 {
		return [9]float64{}, errors.New("cvwarp: no perspective transform")
	}

	var h [9]float64
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			h[r*3+c] = m.GetDoubleAt(r, c)
		}
	}
	return normalize(h)
}

// Warp resamples img through t into an image of the given size, with
// bilinear interpolation and a transparent border.
func Warp(img *image.RGBA, t homography.Transform, size image.Point) (*image.RGBA, error) {
	b := img.Bounds()
	src, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC4, img.Pix)
	if err != nil {
		return nil, errors.Wrap(err, "cvwarp: source image")
	}
	defer src.Close()

	m := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	defer m.Close()
	h := t.Matrix()
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m.SetDoubleAt(r, c, h[r*3+c])
		}
	}

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.WarpPerspectiveWithParams(src, &dst, m, size, gocv.InterpolationLinear, gocv.BorderConstant, color.RGBA{})

	out := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	data := dst.ToBytes()
	if len(data) != len(out.Pix) {
		return nil, errors.Errorf("cvwarp: got %d bytes, want %d", len(data), len(out.Pix))
	}
	copy(out.Pix, data)
	return out, nil
}

// MaxDifference compares two homographies after scaling both so their last
// entry is 1, and returns the largest absolute entry difference.
func MaxDifference(a, b [9]float64) (float64, error) {
	na, err := normalize(a)
	if err != nil {
		return 0, err
	}
	nb, err := normalize(b)
	if err != nil {
		return 0, err
	}
	var d float64
	for i := range na {
		d = math.Max(d, math.Abs(na[i]-nb[i]))
	}
	return d, nil
}

func normalize(h [9]float64) ([9]float64, error) {
	if math.Abs(h[8]) < 1e-12 {
		return h, errors.New("cvwarp: homography has no finite scale")
	}
	scale := h[8]
	for i := range h {
		h[i] /= scale
	}
	return h, nil
}

func toPoint2f(q [4]geometry.Point2D) []gocv.Point2f {
	out := make([]gocv.Point2f, len(q))
	for i, p := range q {
		out[i] = gocv.Point2f{X: float32(p.X), Y: float32(p.Y)}
	}
	return out
}
