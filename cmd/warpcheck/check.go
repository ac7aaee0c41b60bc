package main

import (
	"image"
	"image/color"
	"math"

	"github.com/pkg/errors"

	cimage "warpcal/internal/image"
	"warpcal/internal/render"
	"warpcal/internal/render/cvwarp"
	"warpcal/internal/warp"
	"warpcal/pkg/geometry"
)

// result holds the comparison of one warp against OpenCV.
type result struct {
	Skipped    bool
	Degenerate bool
	Folded     bool
	MatrixDiff float64
	Pixels     int
	MeanError  float64
}

// checkWarp compares the transform of w with OpenCV's for the same corners,
// and with withPixels also the software rendering of a test pattern.
func checkWarp(w *warp.Warp, withPixels bool) (result, error) {
	if w.Kind() == warp.KindBilinear {
		return result{Skipped: true}, nil
	}

	// crossed edges still solve but show the content turned inside out
	folded := !geometry.IsConvex(w.Outline())
	xf := w.Transform()
	if w.Degenerate() {
		return result{Degenerate: true, Folded: folded}, nil
	}

	cv, err := cvwarp.Homography(w.Bounds().Corners(), w.Corners())
	if err != nil {
		return result{}, err
	}
	diff, err := cvwarp.MaxDifference(xf.Matrix(), cv)
	if err != nil {
		return result{}, err
	}
	res := result{MatrixDiff: diff, Folded: folded}
	if !withPixels {
		return res, nil
	}

	size := w.Size()
	width, height := int(size.Width), int(size.Height)
	pattern := cimage.TestPattern(width, height, 16, 9)

	ours := image.NewRGBA(image.Rect(0, 0, width, height))
	r := render.NewRenderer(ours)
	r.Clear(color.Transparent)
	if err := r.DrawWarp(w, pattern, warp.TexRect(pattern), w.Bounds()); err != nil {
		return result{}, errors.Wrap(err, "software render")
	}
	theirs, err := cvwarp.Warp(pattern, xf, image.Pt(width, height))
	if err != nil {
		return result{}, err
	}

	res.Pixels, res.MeanError = compare(ours, theirs)
	return res, nil
}

// compare returns the number of pixels opaque in both images and their mean
// absolute channel difference.
func compare(a, b *image.RGBA) (int, float64) {
	var (
		n   int
		sum float64
	)
	bounds := a.Bounds().Intersect(b.Bounds())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			ca, cb := a.RGBAAt(x, y), b.RGBAAt(x, y)
			if ca.A != 255 || cb.A != 255 {
				continue
			}
			n++
			sum += math.Abs(float64(ca.R)-float64(cb.R)) +
				math.Abs(float64(ca.G)-float64(cb.G)) +
				math.Abs(float64(ca.B)-float64(cb.B))
		}
	}
	if n == 0 {
		return 0, 0
	}
	return n, sum / float64(3*n)
}
