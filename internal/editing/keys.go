package editing

import "warpcal/pkg/geometry"

// Key identifies a key understood by the router.
type Key int

// Keys handled by the router.
const (
	KeyUnknown Key = iota
	KeyEscape
	KeyTab
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyPlus
	KeyMinus
	KeyR
	KeyM
	KeyW
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF9
	KeyF10
	KeyF11
	KeyF12
)

// Modifier is a bit set of held modifier keys.
type Modifier uint8

// Modifier keys.
const (
	ModShift Modifier = 1 << iota
	ModControl
	ModAlt
)

// KeyEvent is a key press or release.
type KeyEvent struct {
	Key Key
	Mod Modifier
}

// Shift reports whether shift was held.
func (e KeyEvent) Shift() bool { return e.Mod&ModShift != 0 }

// MouseEvent is a pointer event in output pixels.
type MouseEvent struct {
	Pos geometry.Point2D
	Mod Modifier
}
