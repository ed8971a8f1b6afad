package shape

import (
	"slices"

	"diagram-display/internal/surface"
	"diagram-display/pkg/geometry"
)

// Type names reported by containers.
const (
	GroupTypeName     = "ShapeGroup"
	AggregateTypeName = "Aggregate"
)

// ContainerCenter is the only control point of a container: its rotate and
// reference point.
const ContainerCenter ControlPointID = 1

// Container holds child shapes. A group lets its children be selected
// individually after drilling in; an aggregate is always selected whole.
type Container struct {
	base
	kind     Capability
	children []Shape
}

var _ Shape = (*Container)(nil)

// NewGroup returns a group owning children.
func NewGroup(children ...Shape) *Container {
	return newContainer(Group, GroupTypeName, children)
}

// NewAggregate returns a composite owning children.
func NewAggregate(children ...Shape) *Container {
	return newContainer(Composite, AggregateTypeName, children)
}

func newContainer(kind Capability, typeName string, children []Shape) *Container {
	c := &Container{base: newBase(typeName), kind: kind}
	for _, ch := range children {
		c.Add(ch)
	}
	return c
}

// Add appends a child and takes ownership of it.
func (c *Container) Add(child Shape) {
	child.SetParent(c)
	c.children = append(c.children, child)
}

// Insert places a child at index i, clamped to the child list.
func (c *Container) Insert(i int, child Shape) {
	i = min(max(i, 0), len(c.children))
	child.SetParent(c)
	c.children = slices.Insert(c.children, i, child)
}

// IndexOf returns the position of child, or -1.
func (c *Container) IndexOf(child Shape) int {
	return slices.Index(c.children, child)
}

// Remove releases a child. It reports whether child was found.
func (c *Container) Remove(child Shape) bool {
	for i, ch := range c.children {
		if ch == child {
			c.children = append(c.children[:i], c.children[i+1:]...)
			child.SetParent(nil)
			return true
		}
	}
	return false
}

// Release removes and returns all children.
func (c *Container) Release() []Shape {
	out := c.children
	c.children = nil
	for _, ch := range out {
		ch.SetParent(nil)
	}
	return out
}

func (c *Container) TypeName() string {
	if c.kind == Group {
		return GroupTypeName
	}
	return AggregateTypeName
}

func (c *Container) Capabilities() Capability { return c.kind }
func (c *Container) Children() []Shape        { return c.children }

func (c *Container) Bounds(tight bool) geometry.Rect {
	var r geometry.Rect
	for _, ch := range c.children {
		r = r.Union(ch.Bounds(tight))
	}
	return r
}

func (c *Container) HitTest(p geometry.Point, tolerance int) bool {
	for _, ch := range c.children {
		if ch.HitTest(p, tolerance) {
			return true
		}
	}
	return false
}

func (c *Container) IntersectsWith(r geometry.Rect) bool {
	for _, ch := range c.children {
		if ch.IntersectsWith(r) {
			return true
		}
	}
	return false
}

func (c *Container) ControlPoints(mask ControlPointCapability) []ControlPointID {
	if c.HasControlPointCapability(ContainerCenter, mask) {
		return []ControlPointID{ContainerCenter}
	}
	return nil
}

func (c *Container) HasControlPointCapability(id ControlPointID, mask ControlPointCapability) bool {
	return id == ContainerCenter && mask&(CapRotate|CapReference) != 0
}

func (c *Container) ControlPointPosition(ControlPointID) geometry.Point {
	return c.Bounds(true).Center()
}

func (c *Container) MoveBy(dx, dy int) {
	for _, ch := range c.children {
		ch.MoveBy(dx, dy)
	}
}

func (c *Container) MoveControlPointBy(id ControlPointID, dx, dy int) bool {
	if id != ContainerCenter {
		return false
	}
	c.MoveBy(dx, dy)
	return true
}

func (c *Container) Clone() Shape {
	out := &Container{base: c.cloneBase(), kind: c.kind}
	for _, ch := range c.children {
		out.Add(ch.Clone())
	}
	return out
}

func (c *Container) Draw(s surface.Surface) {
	for _, ch := range c.children {
		ch.Draw(s)
	}
}

func (c *Container) DrawOutline(s surface.Surface, pen surface.Style) {
	s.StrokeRect(c.Bounds(true).ToFloat(), pen)
}
