package image

import (
	"image"
	"image/color"
	"math"
	"strings"
)

// BlendMode specifies how warped output is combined with what is already
// in the output buffer.
type BlendMode int

const (
	BlendNormal BlendMode = iota
	// BlendAdd sums overlapping projections, for edge blending.
	BlendAdd
	BlendMultiply
	BlendScreen
	BlendDifference
)

func (m BlendMode) String() string {
	switch m {
	case BlendNormal:
		return "normal"
	case BlendAdd:
		return "add"
	case BlendMultiply:
		return "multiply"
	case BlendScreen:
		return "screen"
	case BlendDifference:
		return "difference"
	default:
		return "unknown"
	}
}

// ParseBlendMode returns the mode named s, or BlendNormal.
func ParseBlendMode(s string) BlendMode {
	for m := BlendNormal; m <= BlendDifference; m++ {
		if strings.EqualFold(strings.TrimSpace(s), m.String()) {
			return m
		}
	}
	return BlendNormal
}

// Blend combines src over dst with the given mode and opacity.
func Blend(dst, src color.RGBA, mode BlendMode, opacity float64) color.RGBA {
	sf := [4]float64{float64(src.R) / 255, float64(src.G) / 255, float64(src.B) / 255, float64(src.A) / 255}
	df := [4]float64{float64(dst.R) / 255, float64(dst.G) / 255, float64(dst.B) / 255, float64(dst.A) / 255}

	var rf [3]float64
	for i := 0; i < 3; i++ {
		switch mode {
		case BlendAdd:
			rf[i] = sf[i] + df[i]
		case BlendMultiply:
			rf[i] = sf[i] * df[i]
		case BlendScreen:
			rf[i] = 1 - (1-sf[i])*(1-df[i])
		case BlendDifference:
			rf[i] = math.Abs(sf[i] - df[i])
		default:
			rf[i] = sf[i]
		}
	}

	alpha := sf[3] * clamp(opacity, 0, 1)
	out := func(r, d float64) uint8 {
		return uint8(clamp(r*alpha+d*(1-alpha), 0, 1)*255 + 0.5)
	}
	return color.RGBA{
		R: out(rf[0], df[0]),
		G: out(rf[1], df[1]),
		B: out(rf[2], df[2]),
		A: uint8(clamp(alpha+df[3]*(1-alpha), 0, 1)*255 + 0.5),
	}
}

// BlendPixel blends c into dst at (x, y). Points outside dst are ignored.
func BlendPixel(dst *image.RGBA, x, y int, c color.RGBA, mode BlendMode, opacity float64) {
	if !(image.Point{X: x, Y: y}).In(dst.Bounds()) {
		return
	}
	dst.SetRGBA(x, y, Blend(dst.RGBAAt(x, y), c, mode, opacity))
}

func clamp(x, lo, hi float64) float64 {
	return math.Min(math.Max(x, lo), hi)
}
