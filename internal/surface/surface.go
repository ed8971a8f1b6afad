// Package surface defines the drawing target used by shapes, grips and the
// render pipeline, plus a raster implementation backed by fogleman/gg.
package surface

import (
	"image/color"

	"diagram-display/internal/transform"
	"diagram-display/pkg/geometry"
)

// Style describes a pen or brush by value. Equal styles resolve to the same
// cached drawing resource.
type Style struct {
	Color color.NRGBA
	Alpha uint8
	Width float64
}

// Pen returns a stroke style.
func Pen(c color.NRGBA, width float64) Style {
	return Style{Color: c, Alpha: c.A, Width: width}
}

// Brush returns a fill style.
func Brush(c color.NRGBA) Style {
	return Style{Color: c, Alpha: c.A}
}

// Resolved returns the effective colour, with Alpha replacing the colour's own alpha.
func (s Style) Resolved() color.NRGBA {
	c := s.Color
	c.A = s.Alpha
	return c
}

// Surface is a 2D drawing target. Coordinates are in diagram space after
// SetTransform and in control space after ResetTransform.
type Surface interface {
	Size() (width, height int)

	SetTransform(t transform.Transform)
	ResetTransform()

	SetClip(r geometry.Rect)
	ResetClip()

	Clear(c color.NRGBA)
	FillRect(r geometry.Rect2D, brush Style)
	StrokeRect(r geometry.Rect2D, pen Style)
	DrawLine(x1, y1, x2, y2 float64, pen Style)
	FillPath(p Path, brush Style)
	StrokePath(p Path, pen Style)
	// DrawText centres text inside r.
	DrawText(text string, r geometry.Rect2D, style Style)

	// InvalidateStyles drops every cached resource resolved from a Style.
	InvalidateStyles()
}
