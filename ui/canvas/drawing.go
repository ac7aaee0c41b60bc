package canvas

import (
	"fmt"
	"image"
	"image/color"

	"warpcal/internal/app"
)

// digitPatterns contains 3x5 pixel patterns for digits 0-9.
// Each digit is represented as 5 rows of 3 bits.
var digitPatterns = [10][5]uint8{
	{0b111, 0b101, 0b101, 0b101, 0b111}, // 0
	{0b010, 0b110, 0b010, 0b010, 0b111}, // 1
	{0b111, 0b001, 0b111, 0b100, 0b111}, // 2
	{0b111, 0b001, 0b111, 0b001, 0b111}, // 3
	{0b101, 0b101, 0b111, 0b001, 0b001}, // 4
	{0b111, 0b100, 0b111, 0b001, 0b111}, // 5
	{0b111, 0b100, 0b111, 0b101, 0b111}, // 6
	{0b111, 0b001, 0b001, 0b001, 0b001}, // 7
	{0b111, 0b101, 0b111, 0b101, 0b111}, // 8
	{0b111, 0b101, 0b111, 0b001, 0b111}, // 9
}

// letterPatterns covers the letters and symbols of the status line.
var letterPatterns = map[rune][5]uint8{
	'A': {0b010, 0b101, 0b111, 0b101, 0b101},
	'B': {0b110, 0b101, 0b110, 0b101, 0b110},
	'C': {0b011, 0b100, 0b100, 0b100, 0b011},
	'D': {0b110, 0b101, 0b101, 0b101, 0b110},
	'E': {0b111, 0b100, 0b110, 0b100, 0b111},
	'F': {0b111, 0b100, 0b110, 0b100, 0b100},
	'G': {0b011, 0b100, 0b101, 0b101, 0b011},
	'H': {0b101, 0b101, 0b111, 0b101, 0b101},
	'I': {0b111, 0b010, 0b010, 0b010, 0b111},
	'K': {0b101, 0b101, 0b110, 0b101, 0b101},
	'L': {0b100, 0b100, 0b100, 0b100, 0b111},
	'M': {0b101, 0b111, 0b101, 0b101, 0b101},
	'N': {0b101, 0b111, 0b111, 0b101, 0b101},
	'O': {0b010, 0b101, 0b101, 0b101, 0b010},
	'P': {0b110, 0b101, 0b110, 0b100, 0b100},
	'R': {0b110, 0b101, 0b110, 0b101, 0b101},
	'S': {0b011, 0b100, 0b010, 0b001, 0b110},
	'T': {0b111, 0b010, 0b010, 0b010, 0b010},
	'U': {0b101, 0b101, 0b101, 0b101, 0b111},
	'V': {0b101, 0b101, 0b101, 0b101, 0b010},
	'W': {0b101, 0b101, 0b101, 0b111, 0b101},
	'X': {0b101, 0b101, 0b010, 0b101, 0b101},
	'Y': {0b101, 0b101, 0b010, 0b010, 0b010},
	'+': {0b000, 0b010, 0b111, 0b010, 0b000},
	'-': {0b000, 0b000, 0b111, 0b000, 0b000},
	'/': {0b001, 0b001, 0b010, 0b100, 0b100},
	'.': {0b000, 0b000, 0b000, 0b000, 0b010},
	':': {0b000, 0b010, 0b000, 0b010, 0b000},
	' ': {0b000, 0b000, 0b000, 0b000, 0b000},
}

// getCharPattern returns the 3x5 pixel pattern for a character.
// Returns a zero pattern for unsupported characters.
func getCharPattern(ch rune) [5]uint8 {
	if ch >= '0' && ch <= '9' {
		return digitPatterns[ch-'0']
	}
	if ch >= 'a' && ch <= 'z' {
		ch = ch - 'a' + 'A'
	}
	if pattern, ok := letterPatterns[ch]; ok {
		return pattern
	}
	return [5]uint8{}
}

// drawLabel draws text with its top-left corner at (x, y), each font pixel
// scaled to a scale by scale block. A dark backing keeps it readable over
// any content.
func drawLabel(output *image.RGBA, label string, x, y int, col color.RGBA, scale int) {
	scale = max(1, min(scale, 6))
	runes := []rune(label)
	if len(runes) == 0 {
		return
	}
	advance := 4 * scale
	backing := image.Rect(x-scale, y-scale, x+len(runes)*advance, y+6*scale).Intersect(output.Bounds())
	for py := backing.Min.Y; py < backing.Max.Y; py++ {
		for px := backing.Min.X; px < backing.Max.X; px++ {
			c := output.RGBAAt(px, py)
			output.SetRGBA(px, py, color.RGBA{c.R / 4, c.G / 4, c.B / 4, 255})
		}
	}

	bounds := output.Bounds()
	for i, ch := range runes {
		pattern := getCharPattern(ch)
		charX := x + i*advance
		for row := 0; row < 5; row++ {
			for c := 0; c < 3; c++ {
				if pattern[row]&(1<<(2-c)) == 0 {
					continue
				}
				for dy := 0; dy < scale; dy++ {
					for dx := 0; dx < scale; dx++ {
						px, py := charX+c*scale+dx, y+row*scale+dy
						if (image.Point{X: px, Y: py}).In(bounds) {
							output.SetRGBA(px, py, col)
						}
					}
				}
			}
		}
	}
}

// hudScale picks a font scale readable at the given frame width.
func hudScale(width int) int {
	return max(2, width/480)
}

// statusLine describes the selected warp for the edit HUD.
func statusLine(state *app.State) string {
	n := len(state.Warps())
	index, w, point, ok := state.Selection()
	if !ok {
		return fmt.Sprintf("EDIT %d WARPS", n)
	}
	line := fmt.Sprintf("EDIT %d/%d %s P%d B%.2f", index+1, n, w.Kind(), point, w.Brightness())
	if w.Kind().HasMesh() {
		cols, rows := w.Controls()
		line += fmt.Sprintf(" %dX%d R%d", cols, rows, w.Resolution())
		if w.IsAdaptive() {
			line += " ADAPT"
		}
	}
	return line
}
