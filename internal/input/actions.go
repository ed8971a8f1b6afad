package input

import (
	"fmt"
	"slices"
	"strings"

	"diagram-display/internal/errs"
	"diagram-display/internal/history"
	"diagram-display/internal/logging"
	"diagram-display/internal/repository"
	"diagram-display/internal/selection"
	"diagram-display/internal/shape"
	"diagram-display/pkg/geometry"
)

// EditAction is the last clipboard action.
type EditAction int

const (
	EditNone EditAction = iota
	EditCopy
	EditCut
)

// EditBuffer holds copied or cut shapes. Anchor is the top-left corner of
// their bounds; PasteCount counts pastes since the last copy or cut.
type EditBuffer struct {
	Action     EditAction
	Shapes     []shape.Shape
	Anchor     geometry.Point
	PasteCount int
}

// ContextAction is an entry of the context menu.
type ContextAction struct {
	Name    string
	Title   string
	Enabled bool
	Run     func() error
}

// Buffer returns the edit buffer.
func (d *Dispatcher) Buffer() EditBuffer { return d.buffer }

// ResetBuffer empties the edit buffer.
func (d *Dispatcher) ResetBuffer() { d.buffer = EditBuffer{} }

// collecting runs action with invalidation suspended. On success the
// selection is replaced by every shape the repository reported as inserted
// or updated meanwhile; a failed action leaves it alone. Listeners see a
// single selection change.
func (d *Dispatcher) collecting(action func() error) error {
	var err error
	sel := d.cfg.Selection
	sel.Batch(func() {
		resume := d.cfg.Scheduler.Scope()
		defer resume()

		var touched []shape.Shape
		d.collected = &touched
		defer func() { d.collected = nil }()

		if err = action(); err != nil {
			return
		}
		sel.Clear()

		diagram := d.Diagram()
		var live []shape.Shape
		for _, s := range touched {
			if diagram != nil && diagram.ContainsDeep(s) && !slices.Contains(live, s) {
				live = append(live, s)
			}
		}
		if len(live) > 0 {
			err = sel.SelectMany(live, false)
		}
	})
	return err
}

func (d *Dispatcher) collect(ev repository.Event) {
	if d.collected == nil || ev.Diagram != d.Diagram() {
		return
	}
	*d.collected = append(*d.collected, ev.Shapes...)
}

func (d *Dispatcher) shapesDeleted(ev repository.Event) {
	if ev.Diagram != d.Diagram() {
		return
	}
	d.cfg.Selection.Prune(ev.Shapes)
	if d.collected != nil {
		*d.collected = slices.DeleteFunc(*d.collected, func(s shape.Shape) bool {
			return slices.Contains(ev.Shapes, s)
		})
	}
}

func (d *Dispatcher) granted(p Permission, shapes []shape.Shape) error {
	if d.cfg.Security == nil || d.cfg.Security.IsGranted(p, shapes) {
		return nil
	}
	return fmt.Errorf("%s %d shapes: %w", p, len(shapes), errs.ErrPermissionDenied)
}

func (d *Dispatcher) requireDiagram(op string) (*shape.Diagram, error) {
	diagram := d.Diagram()
	if diagram == nil {
		return nil, fmt.Errorf("%s: no diagram: %w", op, errs.ErrPreconditionFailed)
	}
	return diagram, nil
}

// Delete removes the selected shapes.
func (d *Dispatcher) Delete() error {
	diagram, err := d.requireDiagram("delete")
	if err != nil {
		return err
	}
	shapes := d.cfg.Selection.Shapes(selection.Insertion)
	if len(shapes) == 0 {
		return nil
	}
	if err := d.granted(PermissionDelete, shapes); err != nil {
		return err
	}
	return d.collecting(func() error {
		return d.Execute(&history.DeleteShapes{Repo: d.cfg.Repository, Diagram: diagram, Shapes: shapes})
	})
}

// Copy puts clones of the selected shapes into the edit buffer and their
// captions on the clipboard.
func (d *Dispatcher) Copy() error {
	shapes := d.cfg.Selection.Shapes(selection.BottomUp)
	if len(shapes) == 0 {
		return nil
	}
	d.fillBuffer(EditCopy, shapes)
	return nil
}

// Cut copies the selected shapes and deletes them.
func (d *Dispatcher) Cut() error {
	diagram, err := d.requireDiagram("cut")
	if err != nil {
		return err
	}
	shapes := d.cfg.Selection.Shapes(selection.BottomUp)
	if len(shapes) == 0 {
		return nil
	}
	if err := d.granted(PermissionDelete, shapes); err != nil {
		return err
	}
	d.fillBuffer(EditCut, shapes)
	return d.collecting(func() error {
		return d.Execute(&history.DeleteShapes{Repo: d.cfg.Repository, Diagram: diagram, Shapes: shapes})
	})
}

func (d *Dispatcher) fillBuffer(action EditAction, shapes []shape.Shape) {
	clones := make([]shape.Shape, len(shapes))
	var captions []string
	var bounds geometry.Rect
	for i, s := range shapes {
		clones[i] = s.Clone()
		captions = append(captions, shape.Captions(s)...)
		bounds = bounds.Union(s.Bounds(true))
	}
	d.buffer = EditBuffer{Action: action, Shapes: clones, Anchor: bounds.Location()}

	if d.cfg.Clipboard != nil && len(captions) > 0 {
		if err := d.cfg.Clipboard.WriteText(strings.Join(captions, "\n")); err != nil {
			logging.Logger().Warn("clipboard", "err", err)
		}
	}
}

// Paste inserts copies of the edit buffer. With a position the shapes keep
// their layout relative to it; without one they are offset from the
// originals by one grid step per paste.
func (d *Dispatcher) Paste(at *geometry.Point) error {
	diagram, err := d.requireDiagram("paste")
	if err != nil {
		return err
	}
	if len(d.buffer.Shapes) == 0 {
		return nil
	}
	if err := d.granted(PermissionInsert, d.buffer.Shapes); err != nil {
		return err
	}
	d.buffer.PasteCount++
	var dx, dy int
	if at != nil {
		dx, dy = at.X-d.buffer.Anchor.X, at.Y-d.buffer.Anchor.Y
	} else {
		dx = d.cfg.GridSize * d.buffer.PasteCount
		dy = dx
	}
	clones := make([]shape.Shape, len(d.buffer.Shapes))
	for i, s := range d.buffer.Shapes {
		clones[i] = s.Clone()
		clones[i].MoveBy(dx, dy)
	}
	return d.collecting(func() error {
		return d.Execute(&history.InsertShapes{Repo: d.cfg.Repository, Diagram: diagram, Shapes: clones})
	})
}

// Undo reverts the last command and selects what it touched.
func (d *Dispatcher) Undo() error {
	if !d.cfg.History.CanUndo() {
		return nil
	}
	return d.collecting(d.cfg.History.Undo)
}

// Redo executes the last undone command again.
func (d *Dispatcher) Redo() error {
	if !d.cfg.History.CanRedo() {
		return nil
	}
	return d.collecting(d.cfg.History.Redo)
}

// SelectAll selects every visible shape.
func (d *Dispatcher) SelectAll() error {
	if d.Diagram() == nil {
		return nil
	}
	return d.cfg.Selection.SelectAll()
}

// Group joins the selected top-level shapes into a group, or into an
// aggregate when aggregate is set.
func (d *Dispatcher) Group(aggregate bool) error {
	diagram, err := d.requireDiagram("group")
	if err != nil {
		return err
	}
	shapes := d.cfg.Selection.Shapes(selection.BottomUp)
	if err := d.granted(PermissionLayout, shapes); err != nil {
		return err
	}
	return d.collecting(func() error {
		return d.Execute(&history.JoinShapes{Repo: d.cfg.Repository, Diagram: diagram, Shapes: shapes, Aggregate: aggregate})
	})
}

// Ungroup dissolves the selected group or aggregate.
func (d *Dispatcher) Ungroup() error {
	diagram, err := d.requireDiagram("ungroup")
	if err != nil {
		return err
	}
	c, ok := d.cfg.Selection.Single().(*shape.Container)
	if !ok {
		return fmt.Errorf("ungroup: select one group: %w", errs.ErrPreconditionFailed)
	}
	if err := d.granted(PermissionLayout, []shape.Shape{c}); err != nil {
		return err
	}
	return d.collecting(func() error {
		return d.Execute(&history.SplitShape{Repo: d.cfg.Repository, Diagram: diagram, Container: c})
	})
}

// EditSelectedCaption opens the caption editor on a single captioned selection.
func (d *Dispatcher) EditSelectedCaption() error {
	s := d.cfg.Selection.Single()
	if s == nil || !shape.Has(s, shape.HasCaptions) {
		return nil
	}
	d.EditCaption(s, 0)
	return nil
}

// ContextActions lists the context menu entries for the current state.
func (d *Dispatcher) ContextActions() []ContextAction {
	sel := d.cfg.Selection
	diagram := d.Diagram()
	selected := sel.Shapes(selection.Insertion)
	single := sel.Single()

	topLevel := len(selected) >= 2
	for _, s := range selected {
		if diagram == nil || !diagram.Contains(s) {
			topLevel = false
		}
	}
	container, isContainer := single.(*shape.Container)
	isGroup := isContainer && diagram != nil && diagram.Contains(container) && shape.Has(container, shape.Group)
	isAggregate := isContainer && diagram != nil && diagram.Contains(container) && shape.Has(container, shape.Composite)
	canDelete := len(selected) > 0 && d.granted(PermissionDelete, selected) == nil

	return []ContextAction{
		{Name: "cut", Title: "Cut", Enabled: canDelete, Run: d.Cut},
		{Name: "copy", Title: "Copy", Enabled: len(selected) > 0, Run: d.Copy},
		{Name: "paste", Title: "Paste", Enabled: diagram != nil && len(d.buffer.Shapes) > 0, Run: func() error { return d.Paste(nil) }},
		{Name: "delete", Title: "Delete", Enabled: canDelete, Run: d.Delete},
		{Name: "group", Title: "Group", Enabled: topLevel, Run: func() error { return d.Group(false) }},
		{Name: "ungroup", Title: "Ungroup", Enabled: isGroup, Run: d.Ungroup},
		{Name: "aggregate", Title: "Aggregate", Enabled: topLevel, Run: func() error { return d.Group(true) }},
		{Name: "split", Title: "Split", Enabled: isAggregate, Run: d.Ungroup},
		{Name: "undo", Title: undoTitle("Undo", d.cfg.History.UndoDescription()), Enabled: d.cfg.History.CanUndo(), Run: d.Undo},
		{Name: "redo", Title: undoTitle("Redo", d.cfg.History.RedoDescription()), Enabled: d.cfg.History.CanRedo(), Run: d.Redo},
		{Name: "selectAll", Title: "Select All", Enabled: diagram != nil && diagram.Len() > 0, Run: d.SelectAll},
	}
}

func undoTitle(verb, description string) string {
	if description == "" {
		return verb
	}
	return verb + " " + description
}
