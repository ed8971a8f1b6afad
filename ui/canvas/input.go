package canvas

import (
	"diagram-display/internal/tool"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
)

func button(b desktop.MouseButton) tool.Button {
	switch b {
	case desktop.MouseButtonPrimary:
		return tool.ButtonPrimary
	case desktop.MouseButtonSecondary:
		return tool.ButtonSecondary
	case desktop.MouseButtonTertiary:
		return tool.ButtonMiddle
	default:
		return tool.ButtonNone
	}
}

// modifiers maps fyne modifiers. Super counts as Control so that the
// macOS command key drives the same bindings.
func modifiers(m fyne.KeyModifier) tool.Modifier {
	var out tool.Modifier
	if m&fyne.KeyModifierShift != 0 {
		out |= tool.ModShift
	}
	if m&(fyne.KeyModifierControl|fyne.KeyModifierSuper) != 0 {
		out |= tool.ModControl
	}
	if m&fyne.KeyModifierAlt != 0 {
		out |= tool.ModAlt
	}
	return out
}

func modifierKey(name fyne.KeyName) tool.Modifier {
	switch name {
	case desktop.KeyShiftLeft, desktop.KeyShiftRight:
		return tool.ModShift
	case desktop.KeyControlLeft, desktop.KeyControlRight, desktop.KeySuperLeft, desktop.KeySuperRight:
		return tool.ModControl
	case desktop.KeyAltLeft, desktop.KeyAltRight:
		return tool.ModAlt
	default:
		return 0
	}
}

// standardShortcuts maps fyne's named shortcuts to the key chords the
// dispatcher binds.
var standardShortcuts = map[string]tool.KeyEvent{
	"Copy":      {Key: tool.KeyC, Modifiers: tool.ModControl},
	"Cut":       {Key: tool.KeyX, Modifiers: tool.ModControl},
	"Paste":     {Key: tool.KeyV, Modifiers: tool.ModControl},
	"SelectAll": {Key: tool.KeyA, Modifiers: tool.ModControl},
	"Undo":      {Key: tool.KeyZ, Modifiers: tool.ModControl},
	"Redo":      {Key: tool.KeyZ, Modifiers: tool.ModControl | tool.ModShift},
}

func shortcutKey(s fyne.Shortcut) (tool.KeyEvent, bool) {
	if cs, ok := s.(*desktop.CustomShortcut); ok {
		return tool.KeyEvent{Key: tool.Key(cs.KeyName), Modifiers: modifiers(cs.Modifier)}, true
	}
	ev, ok := standardShortcuts[s.ShortcutName()]
	return ev, ok
}
