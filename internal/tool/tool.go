// Package tool defines the interactive tools that receive pointer and key
// input from the display, and the selection tool used by default.
package tool

import (
	"diagram-display/internal/grip"
	"diagram-display/internal/history"
	"diagram-display/internal/repository"
	"diagram-display/internal/selection"
	"diagram-display/internal/shape"
	"diagram-display/internal/surface"
	"diagram-display/internal/transform"
	"diagram-display/pkg/geometry"
)

// Button identifies a pointer button.
type Button int

const (
	ButtonNone Button = iota
	ButtonPrimary
	ButtonSecondary
	ButtonMiddle
)

// Modifier is a set of held modifier keys.
type Modifier uint

const (
	ModShift Modifier = 1 << iota
	ModControl
	ModAlt
)

// Has reports whether every modifier in o is held.
func (m Modifier) Has(o Modifier) bool { return m&o == o }

// PointerKind is the phase of a pointer event.
type PointerKind int

const (
	PointerDown PointerKind = iota
	PointerMove
	PointerUp
	DoubleClick
)

func (k PointerKind) String() string {
	switch k {
	case PointerDown:
		return "down"
	case PointerMove:
		return "move"
	case PointerUp:
		return "up"
	case DoubleClick:
		return "double-click"
	default:
		return "unknown"
	}
}

// PointerEvent is a pointer event in control space.
type PointerEvent struct {
	Kind      PointerKind
	Button    Button
	Modifiers Modifier
	Position  geometry.Point
}

// Key names follow fyne's key names.
type Key string

const (
	KeyEscape Key = "Escape"
	KeyDelete Key = "Delete"
	KeyF2     Key = "F2"
	KeyA      Key = "A"
	KeyC      Key = "C"
	KeyV      Key = "V"
	KeyX      Key = "X"
	KeyY      Key = "Y"
	KeyZ      Key = "Z"
)

// KeyEvent is a key press.
type KeyEvent struct {
	Key       Key
	Modifiers Modifier
}

// Host is the display a tool works on.
type Host interface {
	Diagram() *shape.Diagram
	Repository() *repository.Repository
	Selection() *selection.Model
	Transform() transform.Transform
	Grips() *grip.Geometry
	HitTolerance() int
	Execute(cmd history.Command) error
	// InvalidateAll requests a repaint of the whole control.
	InvalidateAll()
	EditCaption(s shape.Shape, index int)
}

// Tool processes input while it is the display's current tool. Handlers
// report whether they consumed the event; an error cancels the tool.
type Tool interface {
	Name() string
	ProcessPointerEvent(e PointerEvent) (bool, error)
	ProcessKeyEvent(e KeyEvent) (bool, error)
	// Draw renders previews in control space.
	Draw(s surface.Surface) error
	Cancel()
	EnterDisplay(h Host)
	LeaveDisplay(h Host)
	// WantsAutoScroll reports whether dragging near the edges should scroll.
	WantsAutoScroll() bool
}
