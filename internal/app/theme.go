package app

import (
	"image/color"

	"diagram-display/internal/render"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// DisplayTheme provides the application theme. Its primary and selection
// colours follow the render theme so the widgets around the canvas match
// the selection outlines drawn on it.
type DisplayTheme struct {
	Render render.Theme
}

var _ fyne.Theme = (*DisplayTheme)(nil)

// NewDisplayTheme returns a theme matching th.
func NewDisplayTheme(th render.Theme) *DisplayTheme {
	return &DisplayTheme{Render: th}
}

func (t *DisplayTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary:
		return t.Render.SelectionColor
	case theme.ColorNameSelection:
		c := t.Render.SelectionColor
		c.A = 0x80
		return c
	case theme.ColorNameScrollBar:
		return t.Render.ScrollThumb
	default:
		return theme.DefaultTheme().Color(name, variant)
	}
}

func (t *DisplayTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *DisplayTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *DisplayTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNameScrollBar:
		return 16
	case theme.SizeNameScrollBarSmall:
		return 12
	default:
		return theme.DefaultTheme().Size(name)
	}
}
