// Package shape defines what the display needs from diagram shapes and
// provides a small reference library (boxes, groups, aggregates) plus the
// diagram container they live in.
package shape

import (
	"diagram-display/internal/layer"
	"diagram-display/internal/surface"
	"diagram-display/pkg/geometry"
)

// Capability flags describe what a shape supports.
type Capability uint

const (
	HasCaptions Capability = 1 << iota
	Planar
	// Group marks a container whose children can be drilled into and
	// selected individually.
	Group
	// Composite marks a container selected as a whole; clicking a part selects it.
	Composite
)

// ControlPointID identifies a control point of a shape.
type ControlPointID int

// NoControlPoint is returned when no control point applies.
const NoControlPoint ControlPointID = 0

// ControlPointCapability describes what a control point is used for.
type ControlPointCapability uint

const (
	CapResize ControlPointCapability = 1 << iota
	CapRotate
	CapConnect
	CapGlue
	CapReference

	CapAny = CapResize | CapRotate | CapConnect | CapGlue | CapReference
)

// Shape is the capability surface the display consumes.
type Shape interface {
	ID() string
	TypeName() string
	TemplateName() string
	Capabilities() Capability

	ZOrder() int
	SetZOrder(z int)
	Layers() layer.IDs
	SetLayers(ids layer.IDs)

	Parent() Shape
	SetParent(p Shape)
	Children() []Shape

	// Bounds returns the bounding rectangle in diagram space. The loose
	// variant includes the pen.
	Bounds(tight bool) geometry.Rect
	HitTest(p geometry.Point, tolerance int) bool
	IntersectsWith(r geometry.Rect) bool

	ControlPoints(mask ControlPointCapability) []ControlPointID
	ControlPointPosition(id ControlPointID) geometry.Point
	HasControlPointCapability(id ControlPointID, mask ControlPointCapability) bool

	MoveBy(dx, dy int)
	MoveControlPointBy(id ControlPointID, dx, dy int) bool

	Clone() Shape

	Draw(s surface.Surface)
	DrawOutline(s surface.Surface, pen surface.Style)

	// ModelObject returns the domain object behind the shape, or nil.
	ModelObject() any
}

// Captioned is implemented by shapes with the HasCaptions capability.
type Captioned interface {
	CaptionCount() int
	CaptionBounds(i int) geometry.Rect
	CaptionText(i int) string
	SetCaptionText(i int, text string)
}

// Rotatable is implemented by shapes that can turn around a point.
// Angles are in tenths of a degree.
type Rotatable interface {
	Angle() int
	Rotate(delta int, center geometry.Point)
}

// Snapshotter is implemented by shapes that can save and restore their
// geometry, so edits that do not invert cleanly can be undone.
type Snapshotter interface {
	Snapshot() any
	Restore(snapshot any)
}

// Has reports whether s has every capability in c.
func Has(s Shape, c Capability) bool {
	return s.Capabilities()&c == c
}

// IsGroup reports whether s is a drill-down group.
func IsGroup(s Shape) bool {
	return s != nil && Has(s, Group)
}

// Root walks up the parent chain and returns the top-level ancestor of s.
func Root(s Shape) Shape {
	for s != nil && s.Parent() != nil {
		s = s.Parent()
	}
	return s
}

// IsAncestor reports whether a is a strict ancestor of s.
func IsAncestor(a, s Shape) bool {
	if a == nil || s == nil {
		return false
	}
	for p := s.Parent(); p != nil; p = p.Parent() {
		if p == a {
			return true
		}
	}
	return false
}

// Siblings reports whether a and b share the same non-nil parent.
func Siblings(a, b Shape) bool {
	return a != nil && b != nil && a.Parent() != nil && a.Parent() == b.Parent()
}

// BoundsOf returns the union of the loose bounds of shapes.
func BoundsOf(shapes []Shape) geometry.Rect {
	var r geometry.Rect
	for _, s := range shapes {
		r = r.Union(s.Bounds(false))
	}
	return r
}

// Captions returns the caption texts of s, or nil.
func Captions(s Shape) []string {
	c, ok := s.(Captioned)
	if !ok || !Has(s, HasCaptions) {
		return nil
	}
	var out []string
	for i := 0; i < c.CaptionCount(); i++ {
		if t := c.CaptionText(i); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// stackPath returns the z-order of the root followed by the child index at
// every level below it.
func stackPath(s Shape) []int {
	var rev []int
	for s != nil {
		p := s.Parent()
		if p == nil {
			rev = append(rev, s.ZOrder())
			break
		}
		idx := 0
		for i, c := range p.Children() {
			if c == s {
				idx = i
				break
			}
		}
		rev = append(rev, idx)
		s = p
	}
	out := make([]int, len(rev))
	for i, v := range rev {
		out[len(rev)-1-i] = v
	}
	return out
}

// CompareStack orders shapes bottom to top: negative when a is drawn below b.
// Children are drawn above their parent's earlier siblings and in child order.
func CompareStack(a, b Shape) int {
	pa, pb := stackPath(a), stackPath(b)
	for i := 0; i < len(pa) && i < len(pb); i++ {
		if pa[i] != pb[i] {
			if pa[i] < pb[i] {
				return -1
			}
			return 1
		}
	}
	return len(pa) - len(pb)
}
