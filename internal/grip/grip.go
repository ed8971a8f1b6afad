// Package grip builds the outlines of selection grips and hit-tests them.
//
// Outlines are centred at the origin in control space; callers translate them
// to the control point they decorate. They are cached until the radius or a
// shape setting changes.
package grip

import (
	"fmt"
	"math"

	"diagram-display/internal/errs"
	"diagram-display/internal/surface"
	"diagram-display/pkg/geometry"

	"gonum.org/v1/gonum/spatial/r2"
)

// Kind selects which grip outline is wanted.
type Kind int

const (
	Resize Kind = iota
	Rotate
	Connect
)

func (k Kind) String() string {
	switch k {
	case Resize:
		return "resize"
	case Rotate:
		return "rotate"
	case Connect:
		return "connect"
	default:
		return "unknown"
	}
}

// Shape is the outline used for resize and connection grips.
type Shape int

const (
	Circle Shape = iota
	Diamond
	Hexagon
	Square
)

var shapeNames = map[Shape]string{
	Circle:  "circle",
	Diamond: "diamond",
	Hexagon: "hexagon",
	Square:  "square",
}

func (s Shape) String() string {
	if n, ok := shapeNames[s]; ok {
		return n
	}
	return "unknown"
}

// ParseShape converts a configuration name to a Shape.
func ParseShape(name string) (Shape, error) {
	for s, n := range shapeNames {
		if n == name {
			return s, nil
		}
	}
	return Circle, fmt.Errorf("grip shape %q: %w", name, errs.ErrInvalidParameter)
}

// Geometry owns the grip settings and the outline cache.
type Geometry struct {
	radius  int
	resize  Shape
	connect Shape

	cache  map[Kind]surface.Path
	builds int
}

// New returns grip geometry for the given radius and shapes.
func New(radius int, resize, connect Shape) (*Geometry, error) {
	if radius <= 0 {
		return nil, fmt.Errorf("grip radius %d: %w", radius, errs.ErrInvalidParameter)
	}
	return &Geometry{radius: radius, resize: resize, connect: connect, cache: make(map[Kind]surface.Path)}, nil
}

// Radius returns the grip radius in control units.
func (g *Geometry) Radius() int { return g.radius }

// ResizeShape returns the resize grip shape.
func (g *Geometry) ResizeShape() Shape { return g.resize }

// ConnectShape returns the connection grip shape.
func (g *Geometry) ConnectShape() Shape { return g.connect }

// Margin is how far grips and their pens reach beyond a control point.
func (g *Geometry) Margin() int { return g.radius + 2 }

// SetRadius changes the radius. A non-positive radius fails with
// errs.ErrInvalidParameter and leaves the geometry unchanged.
func (g *Geometry) SetRadius(radius int) error {
	if radius <= 0 {
		return fmt.Errorf("grip radius %d: %w", radius, errs.ErrInvalidParameter)
	}
	if radius != g.radius {
		g.radius = radius
		g.invalidate()
	}
	return nil
}

// SetResizeShape changes the resize grip shape.
func (g *Geometry) SetResizeShape(s Shape) {
	if s != g.resize {
		g.resize = s
		g.invalidate()
	}
}

// SetConnectShape changes the connection grip shape.
func (g *Geometry) SetConnectShape(s Shape) {
	if s != g.connect {
		g.connect = s
		g.invalidate()
	}
}

func (g *Geometry) invalidate() {
	clear(g.cache)
}

// Outline returns the cached outline for kind.
func (g *Geometry) Outline(kind Kind) surface.Path {
	if p, ok := g.cache[kind]; ok {
		return p
	}
	var p surface.Path
	r := float64(g.radius)
	switch kind {
	case Resize:
		p = shapeOutline(g.resize, r)
	case Connect:
		p = shapeOutline(g.connect, r)
	case Rotate:
		p = rotateOutline(r)
	default:
		p = shapeOutline(Circle, r)
	}
	g.cache[kind] = p
	g.builds++
	return p
}

// OutlineAt returns the outline translated to a control-space point.
func (g *Geometry) OutlineAt(kind Kind, center geometry.Point) surface.Path {
	return g.Outline(kind).Translate(float64(center.X), float64(center.Y))
}

// HitTest reports whether control point p lies on the grip of the given kind
// centred at center.
func (g *Geometry) HitTest(kind Kind, center, p geometry.Point) bool {
	shape := Circle
	switch kind {
	case Resize:
		shape = g.resize
	case Connect:
		shape = g.connect
	}
	rel := r2.Sub(vec(p), vec(center))
	if shape == Circle {
		return r2.Norm(rel) <= float64(g.radius)
	}
	var poly []geometry.Point2D
	for _, s := range g.Outline(kind) {
		if s.Kind == surface.SegmentMove || s.Kind == surface.SegmentLine {
			poly = append(poly, geometry.Point2D{X: s.X, Y: s.Y})
		}
	}
	return geometry.PointInConvexPolygon(geometry.Point2D{X: rel.X, Y: rel.Y}, poly)
}

func vec(p geometry.Point) r2.Vec {
	return r2.Vec{X: float64(p.X), Y: float64(p.Y)}
}

func shapeOutline(s Shape, r float64) surface.Path {
	switch s {
	case Square:
		return surface.Path{}.MoveTo(-r, -r).LineTo(r, -r).LineTo(r, r).LineTo(-r, r).Close()
	case Diamond:
		return surface.Path{}.MoveTo(0, -r).LineTo(r, 0).LineTo(0, r).LineTo(-r, 0).Close()
	case Hexagon:
		return polygon(6, r)
	default:
		return surface.Path{}.Arc(0, 0, r, 0, 2*math.Pi).Close()
	}
}

// polygon returns a regular polygon with its first vertex on the positive x axis.
func polygon(n int, r float64) surface.Path {
	rot := r2.NewRotation(2*math.Pi/float64(n), r2.Vec{})
	v := r2.Vec{X: r}
	p := surface.Path{}.MoveTo(v.X, v.Y)
	for i := 1; i < n; i++ {
		v = rot.Rotate(v)
		p = p.LineTo(v.X, v.Y)
	}
	return p.Close()
}

// rotateOutline is three quarters of a circle ending in an open arrow tip.
func rotateOutline(r float64) surface.Path {
	const (
		start = math.Pi / 2
		sweep = 3 * math.Pi / 2
	)
	p := surface.Path{}.Arc(0, 0, r, start, sweep)

	end := start + sweep
	tip := r2.Vec{X: r * math.Cos(end), Y: r * math.Sin(end)}
	// tangent in the direction of travel
	dir := r2.Unit(r2.Vec{X: -math.Sin(end), Y: math.Cos(end)})
	size := math.Max(2, r*0.6)
	back := r2.Scale(-size, dir)
	a := r2.Add(tip, r2.NewRotation(math.Pi/6, r2.Vec{}).Rotate(back))
	b := r2.Add(tip, r2.NewRotation(-math.Pi/6, r2.Vec{}).Rotate(back))
	return p.MoveTo(a.X, a.Y).LineTo(tip.X, tip.Y).LineTo(b.X, b.Y)
}
