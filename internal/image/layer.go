// Package image loads content images and blends warped output.
package image

import (
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"warpcal/internal/mesh"
	"warpcal/pkg/colorutil"
	"warpcal/pkg/geometry"
)

// Layer is a content image shown through the warps.
type Layer struct {
	Path    string      // Original file path, empty for generated content
	Image   image.Image // Decoded image data
	Visible bool
	Opacity float64 // 0.0 - 1.0
	Blend   BlendMode
}

// NewLayer wraps img in a visible, opaque layer.
func NewLayer(img image.Image) *Layer {
	return &Layer{
		Image:   img,
		Visible: true,
		Opacity: 1.0,
	}
}

// Load decodes an image file into a Layer.
func Load(path string) (*Layer, error) {
	if !IsSupportedFormat(path) {
		return nil, errors.Errorf("unsupported image format %q", filepath.Ext(path))
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening image")
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}

	layer := NewLayer(img)
	layer.Path = path
	return layer, nil
}

// Width returns the image width in pixels.
func (l *Layer) Width() int {
	if l.Image == nil {
		return 0
	}
	return l.Image.Bounds().Dx()
}

// Height returns the image height in pixels.
func (l *Layer) Height() int {
	if l.Image == nil {
		return 0
	}
	return l.Image.Bounds().Dy()
}

// Size returns the image dimensions.
func (l *Layer) Size() geometry.Size {
	return geometry.NewSize(float64(l.Width()), float64(l.Height()))
}

// TexRect returns the full image in normalized texture coordinates.
func (l *Layer) TexRect() mesh.TexRect {
	return mesh.FullTexRect()
}

// PixelAt returns the colour at the pixel, black outside the image.
func (l *Layer) PixelAt(x, y int) color.Color {
	if l.Image == nil {
		return color.Black
	}
	if !(image.Point{X: x, Y: y}).In(l.Image.Bounds()) {
		return color.Black
	}
	return l.Image.At(x, y)
}

// TestPattern draws a calibration chart: a checkerboard of cols by rows
// cells with a border and centre cross, useful for lining up projectors.
func TestPattern(width, height, cols, rows int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: colorutil.Black}, image.Point{}, draw.Src)
	if cols < 1 || rows < 1 {
		return img
	}

	dark := colorutil.Scale(colorutil.White, 0.25)
	for r := 0; r < rows; r++ {
		y0, y1 := r*height/rows, (r+1)*height/rows
		for c := 0; c < cols; c++ {
			if (r+c)%2 == 1 {
				continue
			}
			x0, x1 := c*width/cols, (c+1)*width/cols
			draw.Draw(img, image.Rect(x0, y0, x1, y1), &image.Uniform{C: dark}, image.Point{}, draw.Src)
		}
	}

	line := func(rect image.Rectangle, c color.RGBA) {
		draw.Draw(img, rect, &image.Uniform{C: c}, image.Point{}, draw.Src)
	}
	for c := 1; c < cols; c++ {
		x := c * width / cols
		line(image.Rect(x, 0, x+1, height), colorutil.White)
	}
	for r := 1; r < rows; r++ {
		y := r * height / rows
		line(image.Rect(0, y, width, y+1), colorutil.White)
	}
	line(image.Rect(width/2-1, 0, width/2+1, height), colorutil.Cyan)
	line(image.Rect(0, height/2-1, width, height/2+1), colorutil.Cyan)

	line(image.Rect(0, 0, width, 2), colorutil.Red)
	line(image.Rect(0, height-2, width, height), colorutil.Red)
	line(image.Rect(0, 0, 2, height), colorutil.Red)
	line(image.Rect(width-2, 0, width, height), colorutil.Red)
	return img
}

// SupportedFormats returns the list of supported image formats.
func SupportedFormats() []string {
	return []string{".png", ".jpg", ".jpeg", ".tiff", ".tif", ".bmp"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}
