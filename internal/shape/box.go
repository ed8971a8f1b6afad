package shape

import (
	"image/color"
	"math"

	"diagram-display/internal/surface"
	"diagram-display/pkg/colorutil"
	"diagram-display/pkg/geometry"
)

// Box control points. Every box point except the centre resizes and accepts
// connections; the centre is the rotate and reference point.
const (
	BoxTopLeft ControlPointID = iota + 1
	BoxTopCenter
	BoxTopRight
	BoxMiddleLeft
	BoxMiddleRight
	BoxBottomLeft
	BoxBottomCenter
	BoxBottomRight
	BoxCenter
)

// BoxTypeName is the type name reported by boxes.
const BoxTypeName = "Box"

// Box is a captioned rectangle.
type Box struct {
	base
	Rect    geometry.Rect
	Fill    color.NRGBA
	Line    color.NRGBA
	Caption string

	angle int
}

var (
	_ Shape       = (*Box)(nil)
	_ Captioned   = (*Box)(nil)
	_ Snapshotter = (*Box)(nil)
	_ Rotatable   = (*Box)(nil)
)

// NewBox returns a white box with a black border.
func NewBox(x, y, w, h int) *Box {
	return &Box{
		base: newBase(BoxTypeName),
		Rect: geometry.R(x, y, w, h).Normalize(),
		Fill: colorutil.White,
		Line: colorutil.Black,
	}
}

func (b *Box) TypeName() string         { return BoxTypeName }
func (b *Box) Capabilities() Capability { return HasCaptions | Planar }
func (b *Box) Children() []Shape        { return nil }

func (b *Box) Bounds(tight bool) geometry.Rect {
	if tight {
		return b.Rect
	}
	return b.Rect.Inflate(1, 1)
}

func (b *Box) HitTest(p geometry.Point, tolerance int) bool {
	return b.Rect.Inflate(tolerance, tolerance).Contains(p)
}

func (b *Box) IntersectsWith(r geometry.Rect) bool {
	return b.Rect.Intersects(r.Normalize())
}

func (b *Box) ControlPoints(mask ControlPointCapability) []ControlPointID {
	var ids []ControlPointID
	for id := BoxTopLeft; id <= BoxCenter; id++ {
		if b.HasControlPointCapability(id, mask) {
			ids = append(ids, id)
		}
	}
	return ids
}

func (b *Box) HasControlPointCapability(id ControlPointID, mask ControlPointCapability) bool {
	var caps ControlPointCapability
	switch {
	case id == BoxCenter:
		caps = CapRotate | CapReference
	case id >= BoxTopLeft && id < BoxCenter:
		caps = CapResize | CapConnect
	}
	return caps&mask != 0
}

func (b *Box) ControlPointPosition(id ControlPointID) geometry.Point {
	r := b.Rect
	xs := [3]int{r.X, r.X + r.Width/2, r.Right()}
	ys := [3]int{r.Y, r.Y + r.Height/2, r.Bottom()}
	switch id {
	case BoxTopLeft:
		return geometry.Pt(xs[0], ys[0])
	case BoxTopCenter:
		return geometry.Pt(xs[1], ys[0])
	case BoxTopRight:
		return geometry.Pt(xs[2], ys[0])
	case BoxMiddleLeft:
		return geometry.Pt(xs[0], ys[1])
	case BoxMiddleRight:
		return geometry.Pt(xs[2], ys[1])
	case BoxBottomLeft:
		return geometry.Pt(xs[0], ys[2])
	case BoxBottomCenter:
		return geometry.Pt(xs[1], ys[2])
	case BoxBottomRight:
		return geometry.Pt(xs[2], ys[2])
	default:
		return r.Center()
	}
}

func (b *Box) MoveBy(dx, dy int) {
	b.Rect = b.Rect.Offset(dx, dy)
}

// MoveControlPointBy drags an edge or corner. The rectangle is normalized
// afterwards, so dragging past the opposite edge flips the box.
func (b *Box) MoveControlPointBy(id ControlPointID, dx, dy int) bool {
	x1, y1, x2, y2 := b.Rect.X, b.Rect.Y, b.Rect.Right(), b.Rect.Bottom()
	switch id {
	case BoxTopLeft:
		x1, y1 = x1+dx, y1+dy
	case BoxTopCenter:
		y1 += dy
	case BoxTopRight:
		x2, y1 = x2+dx, y1+dy
	case BoxMiddleLeft:
		x1 += dx
	case BoxMiddleRight:
		x2 += dx
	case BoxBottomLeft:
		x1, y2 = x1+dx, y2+dy
	case BoxBottomCenter:
		y2 += dy
	case BoxBottomRight:
		x2, y2 = x2+dx, y2+dy
	case BoxCenter:
		b.MoveBy(dx, dy)
		return true
	default:
		return false
	}
	b.Rect = geometry.RectFromPoints(geometry.Pt(x1, y1), geometry.Pt(x2, y2))
	return true
}

func (b *Box) Clone() Shape {
	c := *b
	c.base = b.cloneBase()
	return &c
}

func (b *Box) Draw(s surface.Surface) {
	r := b.Rect.ToFloat()
	s.FillRect(r, surface.Brush(b.Fill))
	s.StrokeRect(r, surface.Pen(b.Line, 1))
	if b.Caption != "" {
		s.DrawText(b.Caption, r, surface.Brush(b.Line))
	}
}

func (b *Box) DrawOutline(s surface.Surface, pen surface.Style) {
	s.StrokeRect(b.Rect.ToFloat(), pen)
}

func (b *Box) CaptionCount() int { return 1 }

func (b *Box) CaptionBounds(int) geometry.Rect {
	return b.Rect.Inflate(-2, -2)
}

func (b *Box) CaptionText(int) string { return b.Caption }

func (b *Box) SetCaptionText(_ int, text string) { b.Caption = text }

type boxSnapshot struct {
	rect  geometry.Rect
	angle int
}

func (b *Box) Snapshot() any { return boxSnapshot{rect: b.Rect, angle: b.angle} }

func (b *Box) Restore(snapshot any) {
	if s, ok := snapshot.(boxSnapshot); ok {
		b.Rect, b.angle = s.rect, s.angle
	}
}

// Angle returns the accumulated rotation in tenths of a degree, 0 to 3599.
func (b *Box) Angle() int { return b.angle }

// Rotate turns the box centre around center. Boxes stay axis aligned: an
// odd number of quarter turns swaps width and height.
func (b *Box) Rotate(delta int, center geometry.Point) {
	if delta%3600 == 0 {
		return
	}
	rad := float64(delta) / 10 * math.Pi / 180
	sin, cos := math.Sincos(rad)
	c := b.Rect.Center().Sub(center).ToFloat()
	moved := geometry.Point2D{
		X: c.X*cos - c.Y*sin + float64(center.X),
		Y: c.X*sin + c.Y*cos + float64(center.Y),
	}.Round()

	w, h := b.Rect.Width, b.Rect.Height
	if quarters := int(math.Round(float64(delta) / 900)); quarters%2 != 0 {
		w, h = h, w
	}
	b.Rect = geometry.R(moved.X-w/2, moved.Y-h/2, w, h)
	b.angle = ((b.angle+delta)%3600 + 3600) % 3600
}
