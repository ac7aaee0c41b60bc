package image

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
	"golang.org/x/image/tiff"

	"warpcal/pkg/colorutil"
	"warpcal/pkg/geometry"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	src := TestPattern(64, 48, 4, 3)

	pngPath := filepath.Join(dir, "chart.png")
	f, err := os.Create(pngPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, png.Encode(f, src), test.ShouldBeNil)
	test.That(t, f.Close(), test.ShouldBeNil)

	tiffPath := filepath.Join(dir, "chart.TIF")
	f, err = os.Create(tiffPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tiff.Encode(f, src, nil), test.ShouldBeNil)
	test.That(t, f.Close(), test.ShouldBeNil)

	for _, path := range []string{pngPath, tiffPath} {
		layer, err := Load(path)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, layer.Path, test.ShouldEqual, path)
		test.That(t, layer.Size(), test.ShouldResemble, geometry.NewSize(64, 48))
		test.That(t, layer.Visible, test.ShouldBeTrue)
		r, g, b, _ := layer.PixelAt(0, 0).RGBA()
		test.That(t, []uint32{r >> 8, g >> 8, b >> 8}, test.ShouldResemble, []uint32{255, 0, 0})
	}

	_, err = Load(filepath.Join(dir, "chart.gif"))
	test.That(t, err, test.ShouldNotBeNil)
	_, err = Load(filepath.Join(dir, "missing.png"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestLayer(t *testing.T) {
	var empty Layer
	test.That(t, empty.Width(), test.ShouldEqual, 0)
	test.That(t, empty.PixelAt(0, 0), test.ShouldResemble, color.Black)

	l := NewLayer(image.NewRGBA(image.Rect(0, 0, 8, 4)))
	test.That(t, l.Width(), test.ShouldEqual, 8)
	test.That(t, l.Height(), test.ShouldEqual, 4)
	test.That(t, l.PixelAt(8, 0), test.ShouldResemble, color.Black)
	test.That(t, l.TexRect().X2, test.ShouldEqual, 1.0)
}

func TestTestPattern(t *testing.T) {
	img := TestPattern(100, 80, 4, 4)
	test.That(t, img.RGBAAt(0, 0), test.ShouldResemble, colorutil.Red)
	test.That(t, img.RGBAAt(50, 10), test.ShouldResemble, colorutil.Cyan)
	test.That(t, img.RGBAAt(25, 30), test.ShouldResemble, colorutil.White)
	// first cell is dark grey, the next one black
	test.That(t, img.RGBAAt(10, 10), test.ShouldResemble, colorutil.Scale(colorutil.White, 0.25))
	test.That(t, img.RGBAAt(35, 10), test.ShouldResemble, colorutil.Black)

	test.That(t, TestPattern(10, 10, 0, 0).RGBAAt(5, 5), test.ShouldResemble, colorutil.Black)
}

func TestBlend(t *testing.T) {
	grey := color.RGBA{100, 100, 100, 255}
	test.That(t, Blend(grey, colorutil.Red, BlendNormal, 1), test.ShouldResemble, colorutil.Red)
	test.That(t, Blend(grey, colorutil.Red, BlendNormal, 0), test.ShouldResemble, grey)
	test.That(t, Blend(grey, grey, BlendAdd, 1), test.ShouldResemble, color.RGBA{200, 200, 200, 255})
	test.That(t, Blend(colorutil.White, colorutil.White, BlendAdd, 1), test.ShouldResemble, colorutil.White)
	test.That(t, Blend(colorutil.White, colorutil.Cyan, BlendMultiply, 1), test.ShouldResemble, colorutil.Cyan)
	test.That(t, Blend(colorutil.Red, colorutil.Blue, BlendScreen, 1), test.ShouldResemble, colorutil.Magenta)
	test.That(t, Blend(colorutil.White, colorutil.Cyan, BlendDifference, 1), test.ShouldResemble, colorutil.Red)

	test.That(t, ParseBlendMode(" ADD "), test.ShouldEqual, BlendAdd)
	test.That(t, ParseBlendMode("bogus"), test.ShouldEqual, BlendNormal)
	test.That(t, BlendScreen.String(), test.ShouldEqual, "screen")

	dst := image.NewRGBA(image.Rect(0, 0, 2, 2))
	BlendPixel(dst, 1, 1, colorutil.Green, BlendNormal, 1)
	BlendPixel(dst, 5, 5, colorutil.Green, BlendNormal, 1)
	test.That(t, dst.RGBAAt(1, 1), test.ShouldResemble, colorutil.Green)
}
