package canvas

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"

	"warpcal/internal/editing"
)

var keyMap = map[fyne.KeyName]editing.Key{
	fyne.KeyEscape: editing.KeyEscape,
	fyne.KeyTab:    editing.KeyTab,
	fyne.KeyUp:     editing.KeyUp,
	fyne.KeyDown:   editing.KeyDown,
	fyne.KeyLeft:   editing.KeyLeft,
	fyne.KeyRight:  editing.KeyRight,
	fyne.KeyR:      editing.KeyR,
	fyne.KeyM:      editing.KeyM,
	fyne.KeyW:      editing.KeyW,
	fyne.KeyF1:     editing.KeyF1,
	fyne.KeyF2:     editing.KeyF2,
	fyne.KeyF3:     editing.KeyF3,
	fyne.KeyF4:     editing.KeyF4,
	fyne.KeyF5:     editing.KeyF5,
	fyne.KeyF9:     editing.KeyF9,
	fyne.KeyF10:    editing.KeyF10,
	fyne.KeyF11:    editing.KeyF11,
	fyne.KeyF12:    editing.KeyF12,
}

// translateKey maps a fyne key to the editor key. Plus and minus arrive as
// typed runes so the keyboard layout decides them.
func translateKey(name fyne.KeyName) editing.Key {
	if k, ok := keyMap[name]; ok {
		return k
	}
	return editing.KeyUnknown
}

// modifierKey returns the modifier a key press holds, or 0.
func modifierKey(name fyne.KeyName) editing.Modifier {
	switch name {
	case desktop.KeyShiftLeft, desktop.KeyShiftRight:
		return editing.ModShift
	case desktop.KeyControlLeft, desktop.KeyControlRight:
		return editing.ModControl
	case desktop.KeyAltLeft, desktop.KeyAltRight:
		return editing.ModAlt
	}
	return 0
}

// modifiers converts the modifiers of a pointer event.
func modifiers(m fyne.KeyModifier) editing.Modifier {
	var out editing.Modifier
	if m&fyne.KeyModifierShift != 0 {
		out |= editing.ModShift
	}
	if m&fyne.KeyModifierControl != 0 {
		out |= editing.ModControl
	}
	if m&fyne.KeyModifierAlt != 0 {
		out |= editing.ModAlt
	}
	return out
}
