package shape

import (
	"image/color"
	"slices"

	"diagram-display/internal/layer"
	"diagram-display/pkg/colorutil"
	"diagram-display/pkg/geometry"
)

// Diagram is a page of top-level shapes kept in z-order.
type Diagram struct {
	Name       string
	Width      int
	Height     int
	Background color.NRGBA

	layers *layer.Set
	shapes []Shape
	nextZ  int
}

// NewDiagram returns an empty diagram of the given nominal size.
func NewDiagram(name string, width, height int) *Diagram {
	return &Diagram{
		Name:       name,
		Width:      width,
		Height:     height,
		Background: colorutil.White,
		layers:     layer.NewSet(),
	}
}

// Rect returns the nominal diagram area.
func (d *Diagram) Rect() geometry.Rect {
	return geometry.R(0, 0, d.Width, d.Height)
}

// Layers returns the diagram's layers.
func (d *Diagram) Layers() *layer.Set {
	return d.layers
}

// Shapes returns the top-level shapes bottom to top.
func (d *Diagram) Shapes() []Shape {
	return d.shapes
}

// Len returns the number of top-level shapes.
func (d *Diagram) Len() int {
	return len(d.shapes)
}

// Add places s on top of the stack unless it already carries a z-order.
func (d *Diagram) Add(s Shape) {
	if s.ZOrder() == 0 {
		d.nextZ++
		s.SetZOrder(d.nextZ)
	} else if s.ZOrder() > d.nextZ {
		d.nextZ = s.ZOrder()
	}
	s.SetParent(nil)
	i, _ := slices.BinarySearchFunc(d.shapes, s.ZOrder(), func(e Shape, z int) int { return e.ZOrder() - z })
	for i < len(d.shapes) && d.shapes[i].ZOrder() == s.ZOrder() {
		i++
	}
	d.shapes = slices.Insert(d.shapes, i, s)
}

// Remove takes a top-level shape off the diagram.
func (d *Diagram) Remove(s Shape) bool {
	i := slices.Index(d.shapes, s)
	if i < 0 {
		return false
	}
	d.shapes = slices.Delete(d.shapes, i, i+1)
	return true
}

// Contains reports whether s is a top-level shape of the diagram.
func (d *Diagram) Contains(s Shape) bool {
	return slices.Contains(d.shapes, s)
}

// ContainsDeep reports whether s or one of its ancestors is on the diagram.
func (d *Diagram) ContainsDeep(s Shape) bool {
	return d.Contains(Root(s))
}

// ShapesBounds returns the union of the loose bounds of all shapes.
func (d *Diagram) ShapesBounds() geometry.Rect {
	return BoundsOf(d.shapes)
}

// ContentBounds is the nominal area extended by any shape outside it.
func (d *Diagram) ContentBounds() geometry.Rect {
	return d.Rect().Union(d.ShapesBounds())
}

// FindShape returns the top-most shape hit at p, descending into containers
// to the deepest hit child. It returns nil when nothing is hit.
func (d *Diagram) FindShape(p geometry.Point, tolerance int) Shape {
	return d.FindShapeFunc(p, tolerance, nil)
}

// FindShapeFunc is FindShape restricted to the top-level shapes accept
// reports true for. A nil accept considers every shape.
func (d *Diagram) FindShapeFunc(p geometry.Point, tolerance int, accept func(Shape) bool) Shape {
	for i := len(d.shapes) - 1; i >= 0; i-- {
		s := d.shapes[i]
		if accept != nil && !accept(s) {
			continue
		}
		if !s.HitTest(p, tolerance) {
			continue
		}
		for {
			children := s.Children()
			var hit Shape
			for j := len(children) - 1; j >= 0; j-- {
				if children[j].HitTest(p, tolerance) {
					hit = children[j]
					break
				}
			}
			if hit == nil {
				return s
			}
			s = hit
		}
	}
	return nil
}

// FindShapes returns the top-level shapes intersecting r, top-most first.
func (d *Diagram) FindShapes(r geometry.Rect) []Shape {
	r = r.Normalize()
	var out []Shape
	for i := len(d.shapes) - 1; i >= 0; i-- {
		if d.shapes[i].IntersectsWith(r) {
			out = append(out, d.shapes[i])
		}
	}
	return out
}

// Find returns the shape with the given id at any depth, or nil.
func (d *Diagram) Find(id string) Shape {
	stack := slices.Clone(d.shapes)
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if s.ID() == id {
			return s
		}
		stack = append(stack, s.Children()...)
	}
	return nil
}
