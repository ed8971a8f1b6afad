// Package selection tracks the shapes selected on a display.
//
// The selection is ordered and free of duplicates, and never holds a shape
// together with one of its ancestors. Every public mutation, or every Batch,
// fires at most one change notification.
package selection

import (
	"fmt"
	"slices"

	"diagram-display/internal/errs"
	"diagram-display/internal/logging"
	"diagram-display/internal/shape"
	"diagram-display/pkg/geometry"
)

// Order selects a traversal order.
type Order int

const (
	// Insertion is the order shapes were selected in.
	Insertion Order = iota
	// TopDown starts with the top-most shape.
	TopDown
	// BottomUp starts with the bottom-most shape.
	BottomUp
)

// Invalidator receives the diagram-space bounds of shapes whose selection
// state changed.
type Invalidator interface {
	MarkRegionDirty(r geometry.Rect)
}

// Changed is passed to listeners after the selection changed.
type Changed struct {
	Shapes       []shape.Shape
	ModelObjects []any
}

// Listener is called with the new selection.
type Listener func(Changed)

// Model is the selection of one display.
type Model struct {
	shapes  []shape.Shape
	diagram *shape.Diagram
	inv     Invalidator

	// Visible filters hit-testing and area, type and template selection.
	// Nil accepts all.
	Visible func(shape.Shape) bool

	listeners []Listener
	batch     int
	changed   bool
}

// New returns an empty selection reporting invalidations to inv, which may be nil.
func New(inv Invalidator) *Model {
	return &Model{inv: inv}
}

// SetDiagram switches the diagram that area and type queries run against.
// The selection is cleared.
func (m *Model) SetDiagram(d *shape.Diagram) {
	m.Clear()
	m.diagram = d
}

// Diagram returns the current diagram, or nil.
func (m *Model) Diagram() *shape.Diagram {
	return m.diagram
}

// OnChanged registers a listener.
func (m *Model) OnChanged(l Listener) {
	m.listeners = append(m.listeners, l)
}

// Batch runs fn with notifications deferred; one notification fires at the
// end if anything changed. Batches nest.
func (m *Model) Batch(fn func()) {
	m.begin()
	defer m.end()
	fn()
}

func (m *Model) begin() { m.batch++ }

func (m *Model) end() {
	m.batch--
	if m.batch == 0 && m.changed {
		m.changed = false
		m.notify()
	}
}

func (m *Model) notify() {
	ev := Changed{Shapes: slices.Clone(m.shapes)}
	for _, s := range m.shapes {
		if o := s.ModelObject(); o != nil {
			ev.ModelObjects = append(ev.ModelObjects, o)
		}
	}
	logging.Logger().Debug("selection changed", "count", len(ev.Shapes))
	for _, l := range m.listeners {
		l(ev)
	}
}

// Count returns the number of selected shapes.
func (m *Model) Count() int { return len(m.shapes) }

// IsEmpty reports whether nothing is selected.
func (m *Model) IsEmpty() bool { return len(m.shapes) == 0 }

// Contains reports whether s is selected.
func (m *Model) Contains(s shape.Shape) bool {
	return slices.Contains(m.shapes, s)
}

// Single returns the selected shape when exactly one is selected.
func (m *Model) Single() shape.Shape {
	if len(m.shapes) == 1 {
		return m.shapes[0]
	}
	return nil
}

// Shapes returns the selection in the requested order.
func (m *Model) Shapes(order Order) []shape.Shape {
	out := slices.Clone(m.shapes)
	switch order {
	case BottomUp:
		slices.SortStableFunc(out, shape.CompareStack)
	case TopDown:
		slices.SortStableFunc(out, func(a, b shape.Shape) int { return shape.CompareStack(b, a) })
	}
	return out
}

// TopMost returns the selected shape drawn on top, or nil.
func (m *Model) TopMost() shape.Shape {
	if s := m.Shapes(TopDown); len(s) > 0 {
		return s[0]
	}
	return nil
}

// BottomMost returns the selected shape drawn at the bottom, or nil.
func (m *Model) BottomMost() shape.Shape {
	if s := m.Shapes(BottomUp); len(s) > 0 {
		return s[0]
	}
	return nil
}

// Bounds returns the union of the selected shapes' bounds.
func (m *Model) Bounds() geometry.Rect {
	return shape.BoundsOf(m.shapes)
}

// ModelObjects returns the model objects behind the selected shapes.
func (m *Model) ModelObjects() []any {
	var out []any
	for _, s := range m.shapes {
		if o := s.ModelObject(); o != nil {
			out = append(out, o)
		}
	}
	return out
}

// Select selects s, replacing the selection unless add is set.
//
// Parts of an aggregate select the aggregate. Children of a group select the
// group, unless the group or one of its children is already selected, in
// which case the child itself is selected.
func (m *Model) Select(s shape.Shape, add bool) error {
	if s == nil {
		return fmt.Errorf("select nil shape: %w", errs.ErrInvalidParameter)
	}
	m.begin()
	defer m.end()

	target := m.resolve(s)
	if !add {
		m.clear(target)
	}
	m.add(target)
	return nil
}

// SelectMany selects every shape in shapes as one action.
func (m *Model) SelectMany(shapes []shape.Shape, add bool) error {
	for _, s := range shapes {
		if s == nil {
			return fmt.Errorf("select nil shape: %w", errs.ErrInvalidParameter)
		}
	}
	m.begin()
	defer m.end()
	if !add {
		m.clear(nil)
	}
	for _, s := range shapes {
		m.add(m.resolve(s))
	}
	return nil
}

// SelectByArea selects every top-level shape intersecting r. Negative
// extents are normalized first.
func (m *Model) SelectByArea(r geometry.Rect, add bool) error {
	if m.diagram == nil {
		return fmt.Errorf("select by area: no diagram: %w", errs.ErrPreconditionFailed)
	}
	found := m.diagram.FindShapes(r.Normalize())
	slices.Reverse(found)
	return m.SelectMany(m.filter(found), add)
}

// SelectByType selects every top-level shape of the given type name.
func (m *Model) SelectByType(typeName string, add bool) error {
	if m.diagram == nil {
		return fmt.Errorf("select by type: no diagram: %w", errs.ErrPreconditionFailed)
	}
	var found []shape.Shape
	for _, s := range m.diagram.Shapes() {
		if s.TypeName() == typeName {
			found = append(found, s)
		}
	}
	return m.SelectMany(m.filter(found), add)
}

// SelectByTemplate selects every top-level shape created from the named template.
func (m *Model) SelectByTemplate(templateName string, add bool) error {
	if m.diagram == nil {
		return fmt.Errorf("select by template: no diagram: %w", errs.ErrPreconditionFailed)
	}
	var found []shape.Shape
	for _, s := range m.diagram.Shapes() {
		if s.TemplateName() == templateName {
			found = append(found, s)
		}
	}
	return m.SelectMany(m.filter(found), add)
}

// SelectAll selects every visible top-level shape.
func (m *Model) SelectAll() error {
	if m.diagram == nil {
		return fmt.Errorf("select all: no diagram: %w", errs.ErrPreconditionFailed)
	}
	return m.SelectMany(m.filter(m.diagram.Shapes()), false)
}

// ShapeAt returns the deepest visible shape hit at diagram point p, or nil.
func (m *Model) ShapeAt(p geometry.Point, tolerance int) shape.Shape {
	if m.diagram == nil {
		return nil
	}
	return m.diagram.FindShapeFunc(p, tolerance, m.Visible)
}

func (m *Model) filter(shapes []shape.Shape) []shape.Shape {
	if m.Visible == nil {
		return shapes
	}
	var out []shape.Shape
	for _, s := range shapes {
		if m.Visible(s) {
			out = append(out, s)
		}
	}
	return out
}

// Unselect removes s. Unselecting a group child removes the whole group:
// the group and every child of it.
func (m *Model) Unselect(s shape.Shape) error {
	if s == nil {
		return fmt.Errorf("unselect nil shape: %w", errs.ErrInvalidParameter)
	}
	m.begin()
	defer m.end()
	m.unselect(s)
	return nil
}

// UnselectMany unselects every shape as one action.
func (m *Model) UnselectMany(shapes []shape.Shape) error {
	if slices.Contains(shapes, nil) {
		return fmt.Errorf("unselect nil shape: %w", errs.ErrInvalidParameter)
	}
	m.begin()
	defer m.end()
	for _, s := range shapes {
		m.unselect(s)
	}
	return nil
}

// Prune drops shapes that left the diagram, together with any selected
// descendants of them, without touching their siblings.
func (m *Model) Prune(removed []shape.Shape) {
	m.begin()
	defer m.end()
	for _, r := range removed {
		for _, s := range slices.Clone(m.shapes) {
			if s == r || shape.IsAncestor(r, s) {
				m.remove(s)
			}
		}
	}
}

// Clear empties the selection, invalidating every former member.
func (m *Model) Clear() {
	m.begin()
	defer m.end()
	m.clear(nil)
}

func (m *Model) unselect(s shape.Shape) {
	cur := s
	for p := cur.Parent(); p != nil && !shape.IsGroup(p); p = cur.Parent() {
		cur = p
	}
	g := cur.Parent()
	if g == nil {
		m.remove(cur)
		return
	}
	m.remove(g)
	for _, c := range g.Children() {
		m.remove(c)
	}
}

// resolve maps a clicked shape to the shape that should be selected. The
// walk is iterative so deep hierarchies cannot exhaust the stack.
func (m *Model) resolve(s shape.Shape) shape.Shape {
	cur := s
	for {
		p := cur.Parent()
		switch {
		case p == nil:
			return cur
		case !shape.IsGroup(p):
			cur = p
		case m.drilledInto(p):
			return cur
		default:
			cur = p
		}
	}
}

// drilledInto reports whether the selection consists only of group g or
// its children.
func (m *Model) drilledInto(g shape.Shape) bool {
	if len(m.shapes) == 0 {
		return false
	}
	for _, s := range m.shapes {
		if s != g && s.Parent() != g {
			return false
		}
	}
	return true
}

func (m *Model) add(s shape.Shape) {
	if m.Contains(s) {
		return
	}
	for _, other := range slices.Clone(m.shapes) {
		if shape.IsAncestor(other, s) || shape.IsAncestor(s, other) {
			m.remove(other)
		}
	}
	m.shapes = append(m.shapes, s)
	m.invalidate(s)
	m.changed = true
}

func (m *Model) remove(s shape.Shape) {
	i := slices.Index(m.shapes, s)
	if i < 0 {
		return
	}
	m.shapes = slices.Delete(m.shapes, i, i+1)
	m.invalidate(s)
	m.changed = true
}

// clear removes every member except keep.
func (m *Model) clear(keep shape.Shape) {
	for _, s := range slices.Clone(m.shapes) {
		if s != keep {
			m.remove(s)
		}
	}
}

func (m *Model) invalidate(s shape.Shape) {
	if m.inv != nil {
		m.inv.MarkRegionDirty(s.Bounds(false))
	}
}
