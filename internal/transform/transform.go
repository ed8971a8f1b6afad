// Package transform maps between diagram space and control space.
//
// The forward mapping is
//
//	control = offset + round((diagram - scroll) * zoom)
//
// and the inverse is
//
//	diagram = round((control - offset) / zoom) + scroll
//
// Distances and sizes use round(d * zoom) and round(d / zoom). Rounding is
// half away from zero in both directions.
package transform

import (
	"fmt"
	"math"

	"diagram-display/internal/errs"
	"diagram-display/pkg/geometry"
)

// Transform is an immutable diagram-to-control mapping.
type Transform struct {
	OffsetX, OffsetY int
	ScrollX, ScrollY int
	Zoom             float64
}

// New returns a validated transform.
func New(offsetX, offsetY, scrollX, scrollY int, zoom float64) (Transform, error) {
	t := Transform{OffsetX: offsetX, OffsetY: offsetY, ScrollX: scrollX, ScrollY: scrollY, Zoom: zoom}
	if err := t.Validate(); err != nil {
		return Transform{}, err
	}
	return t, nil
}

// Identity returns the transform with no offset, no scroll and zoom 1.
func Identity() Transform {
	return Transform{Zoom: 1}
}

// Validate fails with errs.ErrInvalidConfiguration when zoom is not positive.
func (t Transform) Validate() error {
	if !(t.Zoom > 0) || math.IsInf(t.Zoom, 0) {
		return fmt.Errorf("zoom %v: %w", t.Zoom, errs.ErrInvalidConfiguration)
	}
	return nil
}

func round(v float64) int {
	return int(math.Round(v))
}

// ToControl maps a diagram point to control space.
func (t Transform) ToControl(p geometry.Point) geometry.Point {
	return geometry.Point{
		X: t.OffsetX + round(float64(p.X-t.ScrollX)*t.Zoom),
		Y: t.OffsetY + round(float64(p.Y-t.ScrollY)*t.Zoom),
	}
}

// ToDiagram maps a control point to diagram space.
func (t Transform) ToDiagram(p geometry.Point) geometry.Point {
	return geometry.Point{
		X: round(float64(p.X-t.OffsetX)/t.Zoom) + t.ScrollX,
		Y: round(float64(p.Y-t.OffsetY)/t.Zoom) + t.ScrollY,
	}
}

// DistanceToControl scales a diagram distance to control space.
func (t Transform) DistanceToControl(d int) int {
	return round(float64(d) * t.Zoom)
}

// DistanceToDiagram scales a control distance to diagram space.
func (t Transform) DistanceToDiagram(d int) int {
	return round(float64(d) / t.Zoom)
}

// RectToControl maps position with the point rule and size with the distance rule.
func (t Transform) RectToControl(r geometry.Rect) geometry.Rect {
	p := t.ToControl(r.Location())
	return geometry.Rect{X: p.X, Y: p.Y, Width: t.DistanceToControl(r.Width), Height: t.DistanceToControl(r.Height)}
}

// RectToDiagram is the inverse of RectToControl.
func (t Transform) RectToDiagram(r geometry.Rect) geometry.Rect {
	p := t.ToDiagram(r.Location())
	return geometry.Rect{X: p.X, Y: p.Y, Width: t.DistanceToDiagram(r.Width), Height: t.DistanceToDiagram(r.Height)}
}

// ToControlF maps a diagram point to control space without rounding.
func (t Transform) ToControlF(p geometry.Point2D) geometry.Point2D {
	return geometry.Point2D{
		X: float64(t.OffsetX) + (p.X-float64(t.ScrollX))*t.Zoom,
		Y: float64(t.OffsetY) + (p.Y-float64(t.ScrollY))*t.Zoom,
	}
}

// Matrix returns the equivalent affine matrix [a b c; d e f] with
// x' = a*x + b*y + c and y' = d*x + e*y + f.
func (t Transform) Matrix() [6]float64 {
	return [6]float64{
		t.Zoom, 0, float64(t.OffsetX) - float64(t.ScrollX)*t.Zoom,
		0, t.Zoom, float64(t.OffsetY) - float64(t.ScrollY)*t.Zoom,
	}
}

func (t Transform) String() string {
	return fmt.Sprintf("offset=(%d,%d) scroll=(%d,%d) zoom=%g", t.OffsetX, t.OffsetY, t.ScrollX, t.ScrollY, t.Zoom)
}
