package history

import (
	"fmt"
	"slices"

	"diagram-display/internal/errs"
	"diagram-display/internal/repository"
	"diagram-display/internal/shape"
	"diagram-display/pkg/geometry"
)

// InsertShapes adds new top-level shapes.
type InsertShapes struct {
	Repo    *repository.Repository
	Diagram *shape.Diagram
	Shapes  []shape.Shape
}

func (c *InsertShapes) Execute() error {
	if len(c.Shapes) == 0 {
		return fmt.Errorf("no shapes: %w", errs.ErrInvalidParameter)
	}
	c.Repo.InsertShapes(c.Diagram, c.Shapes...)
	return nil
}

func (c *InsertShapes) Revert() error {
	c.Repo.DeleteShapes(c.Diagram, c.Shapes...)
	return nil
}

func (c *InsertShapes) Description() string {
	return plural("Insert", c.Shapes)
}

// DeleteShapes removes shapes, remembering where each one sat.
type DeleteShapes struct {
	Repo    *repository.Repository
	Diagram *shape.Diagram
	Shapes  []shape.Shape

	placed []repository.Placement
}

func (c *DeleteShapes) Execute() error {
	c.placed = c.Repo.DeleteShapes(c.Diagram, c.Shapes...)
	if len(c.placed) == 0 {
		return fmt.Errorf("no shapes deleted: %w", errs.ErrPreconditionFailed)
	}
	return nil
}

func (c *DeleteShapes) Revert() error {
	c.Repo.RestoreShapes(c.Diagram, c.placed)
	c.placed = nil
	return nil
}

func (c *DeleteShapes) Description() string {
	return plural("Delete", c.Shapes)
}

// MoveShapes translates shapes by (DX, DY).
type MoveShapes struct {
	Repo    *repository.Repository
	Diagram *shape.Diagram
	Shapes  []shape.Shape
	DX, DY  int
}

func (c *MoveShapes) Execute() error {
	return c.move(c.DX, c.DY)
}

func (c *MoveShapes) Revert() error {
	return c.move(-c.DX, -c.DY)
}

func (c *MoveShapes) move(dx, dy int) error {
	if len(c.Shapes) == 0 {
		return fmt.Errorf("no shapes: %w", errs.ErrInvalidParameter)
	}
	for _, s := range c.Shapes {
		s.MoveBy(dx, dy)
	}
	c.Repo.UpdateShapes(c.Diagram, c.Shapes...)
	return nil
}

func (c *MoveShapes) Description() string {
	return plural("Move", c.Shapes)
}

// MoveControlPoint drags one control point of a shape.
type MoveControlPoint struct {
	Repo    *repository.Repository
	Diagram *shape.Diagram
	Shape   shape.Shape
	Point   shape.ControlPointID
	DX, DY  int

	before any
}

func (c *MoveControlPoint) Execute() error {
	if sn, ok := c.Shape.(shape.Snapshotter); ok {
		c.before = sn.Snapshot()
	}
	if !c.Shape.MoveControlPointBy(c.Point, c.DX, c.DY) {
		return fmt.Errorf("control point %d of %s: %w", c.Point, c.Shape.TypeName(), errs.ErrInvalidParameter)
	}
	c.Repo.UpdateShapes(c.Diagram, c.Shape)
	return nil
}

func (c *MoveControlPoint) Revert() error {
	if sn, ok := c.Shape.(shape.Snapshotter); ok && c.before != nil {
		sn.Restore(c.before)
	} else {
		c.Shape.MoveControlPointBy(c.Point, -c.DX, -c.DY)
	}
	c.Repo.UpdateShapes(c.Diagram, c.Shape)
	return nil
}

func (c *MoveControlPoint) Description() string {
	if shape.Has(c.Shape, shape.Planar) && c.Shape.HasControlPointCapability(c.Point, shape.CapResize) {
		return "Resize " + c.Shape.TypeName()
	}
	return "Move control point"
}

// RotateShapes turns shapes around Center by Angle tenths of a degree.
type RotateShapes struct {
	Repo    *repository.Repository
	Diagram *shape.Diagram
	Shapes  []shape.Shape
	Angle   int
	Center  geometry.Point

	rotated []shape.Shape
	before  []any
}

func (c *RotateShapes) Execute() error {
	c.rotated, c.before = nil, nil
	for _, s := range c.Shapes {
		r, ok := s.(shape.Rotatable)
		if !ok {
			continue
		}
		var snap any
		if sn, ok := s.(shape.Snapshotter); ok {
			snap = sn.Snapshot()
		}
		r.Rotate(c.Angle, c.Center)
		c.rotated = append(c.rotated, s)
		c.before = append(c.before, snap)
	}
	if len(c.rotated) == 0 {
		return fmt.Errorf("nothing to rotate: %w", errs.ErrPreconditionFailed)
	}
	c.Repo.UpdateShapes(c.Diagram, c.rotated...)
	return nil
}

func (c *RotateShapes) Revert() error {
	for i, s := range c.rotated {
		if sn, ok := s.(shape.Snapshotter); ok && c.before[i] != nil {
			sn.Restore(c.before[i])
			continue
		}
		s.(shape.Rotatable).Rotate(-c.Angle, c.Center)
	}
	c.Repo.UpdateShapes(c.Diagram, c.rotated...)
	return nil
}

func (c *RotateShapes) Description() string {
	return plural("Rotate", c.Shapes)
}

// SetCaption replaces the text of one caption.
type SetCaption struct {
	Repo    *repository.Repository
	Diagram *shape.Diagram
	Shape   shape.Shape
	Index   int
	Text    string

	old string
}

func (c *SetCaption) Execute() error {
	captioned, ok := c.Shape.(shape.Captioned)
	if !ok || !shape.Has(c.Shape, shape.HasCaptions) {
		return fmt.Errorf("%s has no captions: %w", c.Shape.TypeName(), errs.ErrInvalidParameter)
	}
	if c.Index < 0 || c.Index >= captioned.CaptionCount() {
		return fmt.Errorf("caption %d: %w", c.Index, errs.ErrInvalidParameter)
	}
	c.old = captioned.CaptionText(c.Index)
	captioned.SetCaptionText(c.Index, c.Text)
	c.Repo.UpdateShapes(c.Diagram, c.Shape)
	return nil
}

func (c *SetCaption) Revert() error {
	c.Shape.(shape.Captioned).SetCaptionText(c.Index, c.old)
	c.Repo.UpdateShapes(c.Diagram, c.Shape)
	return nil
}

func (c *SetCaption) Description() string { return "Edit caption" }

// JoinShapes wraps top-level shapes into a new group or aggregate.
type JoinShapes struct {
	Repo      *repository.Repository
	Diagram   *shape.Diagram
	Shapes    []shape.Shape
	Aggregate bool

	container *shape.Container
	placed    []repository.Placement
}

// Container returns the shape created by the last Execute.
func (c *JoinShapes) Container() *shape.Container { return c.container }

func (c *JoinShapes) Execute() error {
	if len(c.Shapes) < 2 {
		return fmt.Errorf("join needs at least two shapes: %w", errs.ErrPreconditionFailed)
	}
	for _, s := range c.Shapes {
		if !c.Diagram.Contains(s) {
			return fmt.Errorf("%s is not a top-level shape: %w", s.TypeName(), errs.ErrPreconditionFailed)
		}
	}
	members := slices.Clone(c.Shapes)
	slices.SortStableFunc(members, shape.CompareStack)
	top := members[len(members)-1].ZOrder()

	c.placed = c.Repo.DeleteShapes(c.Diagram, members...)
	if c.container == nil {
		if c.Aggregate {
			c.container = shape.NewAggregate()
		} else {
			c.container = shape.NewGroup()
		}
	}
	for _, s := range members {
		c.container.Add(s)
	}
	c.container.SetZOrder(top)
	c.Repo.InsertShapes(c.Diagram, c.container)
	return nil
}

func (c *JoinShapes) Revert() error {
	c.Repo.DeleteShapes(c.Diagram, c.container)
	c.container.Release()
	c.Repo.RestoreShapes(c.Diagram, c.placed)
	return nil
}

func (c *JoinShapes) Description() string {
	if c.Aggregate {
		return "Aggregate"
	}
	return "Group"
}

// SplitShape dissolves a top-level group or aggregate into its children.
// The children take the container's place in the stacking order.
type SplitShape struct {
	Repo      *repository.Repository
	Diagram   *shape.Diagram
	Container *shape.Container

	placed   []repository.Placement
	children []shape.Shape
	zorders  []int
}

func (c *SplitShape) Execute() error {
	if !c.Diagram.Contains(c.Container) {
		return fmt.Errorf("%s is not a top-level shape: %w", c.Container.TypeName(), errs.ErrPreconditionFailed)
	}
	z := c.Container.ZOrder()
	c.placed = c.Repo.DeleteShapes(c.Diagram, c.Container)
	c.children = c.Container.Release()
	c.zorders = make([]int, len(c.children))
	for i, ch := range c.children {
		c.zorders[i] = ch.ZOrder()
		ch.SetZOrder(z)
	}
	c.Repo.InsertShapes(c.Diagram, c.children...)
	return nil
}

func (c *SplitShape) Revert() error {
	c.Repo.DeleteShapes(c.Diagram, c.children...)
	for i, ch := range c.children {
		ch.SetZOrder(c.zorders[i])
		c.Container.Add(ch)
	}
	c.Repo.RestoreShapes(c.Diagram, c.placed)
	return nil
}

func (c *SplitShape) Description() string {
	if shape.Has(c.Container, shape.Composite) {
		return "Split"
	}
	return "Ungroup"
}

func plural(verb string, shapes []shape.Shape) string {
	if len(shapes) == 1 {
		return verb + " " + shapes[0].TypeName()
	}
	return fmt.Sprintf("%s %d shapes", verb, len(shapes))
}
