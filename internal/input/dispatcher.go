// Package input routes pointer and key events of a display to the current
// tool and implements the built-in behaviour for events no tool handles.
package input

import (
	"fmt"

	"diagram-display/internal/grip"
	"diagram-display/internal/history"
	"diagram-display/internal/invalidate"
	"diagram-display/internal/logging"
	"diagram-display/internal/repository"
	"diagram-display/internal/selection"
	"diagram-display/internal/shape"
	"diagram-display/internal/tool"
	"diagram-display/internal/transform"
	"diagram-display/internal/viewport"
	"diagram-display/pkg/geometry"
)

// Defaults for universal scrolling and pasting.
const (
	DefaultDeadZone  = 10
	DefaultSlowdown  = 4
	DefaultGridSize  = 20
	DefaultTolerance = 2
)

// Permission names an action the security collaborator may deny.
type Permission int

const (
	PermissionInsert Permission = iota
	PermissionDelete
	PermissionLayout
)

func (p Permission) String() string {
	switch p {
	case PermissionInsert:
		return "insert"
	case PermissionDelete:
		return "delete"
	case PermissionLayout:
		return "layout"
	default:
		return "unknown"
	}
}

// Security grants or denies actions on shapes.
type Security interface {
	IsGranted(p Permission, shapes []shape.Shape) bool
}

// ContextMenu displays the actions available at a control-space point.
type ContextMenu interface {
	ShowContextMenu(p geometry.Point, actions []ContextAction)
}

// Clipboard receives the captions of copied shapes.
type Clipboard interface {
	WriteText(text string) error
}

// CaptionEditor edits a caption in place. Bounds are in control space.
type CaptionEditor interface {
	OpenCaptionEditor(s shape.Shape, index int, bounds geometry.Rect, text string)
	CloseCaptionEditor()
}

// ShapeClick is sent once per physical click on a shape.
type ShapeClick struct {
	Shape    shape.Shape
	Button   tool.Button
	Clicks   int
	Position geometry.Point
}

// Config holds the collaborators of a Dispatcher. Diagram, Repository,
// Selection, Viewport, Scheduler, History and Grips are required.
type Config struct {
	Diagram    func() *shape.Diagram
	Repository *repository.Repository
	Selection  *selection.Model
	Viewport   *viewport.Controller
	Scheduler  *invalidate.Scheduler
	History    *history.History
	Grips      *grip.Geometry

	Security      Security
	ContextMenu   ContextMenu
	Clipboard     Clipboard
	CaptionEditor CaptionEditor
	OnShapeClick  func(ShapeClick)

	GridSize     int
	DeadZone     int
	Slowdown     int
	HitTolerance int
}

type universalScroll struct {
	active bool
	anchor geometry.Point
	last   geometry.Point
}

// Dispatcher turns raw input into tool calls and built-in actions.
type Dispatcher struct {
	cfg  Config
	tool tool.Tool

	downHandled map[tool.Button]bool
	pressed     map[tool.Button]bool
	scroll      universalScroll

	buffer    EditBuffer
	collected *[]shape.Shape

	unsubscribe []func()
}

var _ tool.Host = (*Dispatcher)(nil)

// New returns a dispatcher using the selection tool. It subscribes to the
// repository so deleted shapes leave the selection and inserted or updated
// shapes can be collected.
func New(cfg Config) *Dispatcher {
	if cfg.GridSize <= 0 {
		cfg.GridSize = DefaultGridSize
	}
	if cfg.DeadZone <= 0 {
		cfg.DeadZone = DefaultDeadZone
	}
	if cfg.Slowdown <= 0 {
		cfg.Slowdown = DefaultSlowdown
	}
	if cfg.HitTolerance <= 0 {
		cfg.HitTolerance = DefaultTolerance
	}
	d := &Dispatcher{
		cfg:         cfg,
		downHandled: make(map[tool.Button]bool),
		pressed:     make(map[tool.Button]bool),
	}
	d.unsubscribe = []func(){
		cfg.Repository.On(repository.EventShapesInserted, d.collect),
		cfg.Repository.On(repository.EventShapesUpdated, d.collect),
		cfg.Repository.On(repository.EventShapesDeleted, d.shapesDeleted),
	}
	d.SetTool(tool.NewSelectionTool())
	return d
}

// Close leaves the current tool and drops the repository subscriptions.
func (d *Dispatcher) Close() {
	d.tool.LeaveDisplay(d)
	for _, u := range d.unsubscribe {
		u()
	}
	d.unsubscribe = nil
}

// Tool returns the current tool.
func (d *Dispatcher) Tool() tool.Tool { return d.tool }

// SetTool makes t the current tool. A nil tool restores the selection tool.
func (d *Dispatcher) SetTool(t tool.Tool) {
	if t == nil {
		t = tool.NewSelectionTool()
	}
	if d.tool != nil {
		d.tool.LeaveDisplay(d)
	}
	d.tool = t
	t.EnterDisplay(d)
}

// CancelTool aborts whatever the current tool is doing.
func (d *Dispatcher) CancelTool() {
	d.guard("cancel", func() (bool, error) {
		d.tool.Cancel()
		return true, nil
	})
}

// UniversalScrolling reports whether universal scroll is on, and its anchor.
func (d *Dispatcher) UniversalScrolling() (bool, geometry.Point) {
	return d.scroll.active, d.scroll.anchor
}

// EndUniversalScroll turns universal scroll off.
func (d *Dispatcher) EndUniversalScroll() {
	if d.scroll.active {
		d.scroll = universalScroll{}
		d.cfg.Scheduler.InvalidateAll()
	}
}

// PointerDown handles a button press.
func (d *Dispatcher) PointerDown(e tool.PointerEvent) {
	e.Kind = tool.PointerDown
	if d.cfg.Viewport.HitsScrollBar(e.Position) {
		return
	}
	if d.scroll.active {
		d.EndUniversalScroll()
		return
	}
	if e.Button == tool.ButtonMiddle {
		d.scroll = universalScroll{active: true, anchor: e.Position, last: e.Position}
		d.cfg.Scheduler.InvalidateAll()
		return
	}
	d.pressed[e.Button] = true
	d.notifyClick(e, 1)
	d.downHandled[e.Button] = d.toTool(e)
}

// PointerMove handles pointer motion.
func (d *Dispatcher) PointerMove(e tool.PointerEvent) {
	e.Kind = tool.PointerMove
	if d.scroll.active {
		d.scroll.last = e.Position
		d.UniversalScrollTick()
		return
	}
	d.toTool(e)
	if d.anyPressed() && d.tool.WantsAutoScroll() {
		d.cfg.Viewport.AutoScroll(e.Position)
	}
}

// UniversalScrollTick scrolls one step towards the last pointer position
// while universal scroll is on. Callers repeat it on a timer so the view
// keeps moving while the pointer rests.
func (d *Dispatcher) UniversalScrollTick() {
	if !d.scroll.active {
		return
	}
	delta := d.scroll.last.Sub(d.scroll.anchor)
	if delta.Distance(geometry.Point{}) <= float64(d.cfg.DeadZone) {
		return
	}
	t := d.cfg.Viewport.Transform()
	d.cfg.Viewport.ScrollBy(
		t.DistanceToDiagram(delta.X/d.cfg.Slowdown),
		t.DistanceToDiagram(delta.Y/d.cfg.Slowdown),
	)
}

// PointerUp handles a button release. An unhandled secondary release
// selects the shape under the pointer and opens the context menu.
func (d *Dispatcher) PointerUp(e tool.PointerEvent) error {
	e.Kind = tool.PointerUp
	if !d.pressed[e.Button] {
		return nil
	}
	delete(d.pressed, e.Button)
	downHandled := d.downHandled[e.Button]
	delete(d.downHandled, e.Button)

	if d.toTool(e) || downHandled || e.Button != tool.ButtonSecondary {
		return nil
	}
	if diagram := d.Diagram(); diagram != nil {
		p := d.Transform().ToDiagram(e.Position)
		if hit := d.cfg.Selection.ShapeAt(p, d.cfg.HitTolerance); hit != nil && !d.selectedOrOwned(hit) {
			if err := d.cfg.Selection.Select(hit, false); err != nil {
				return err
			}
		}
	}
	if d.cfg.ContextMenu != nil {
		d.cfg.ContextMenu.ShowContextMenu(e.Position, d.ContextActions())
	}
	return nil
}

// DoubleClick handles a double click.
func (d *Dispatcher) DoubleClick(e tool.PointerEvent) {
	e.Kind = tool.DoubleClick
	if d.scroll.active || d.cfg.Viewport.HitsScrollBar(e.Position) {
		return
	}
	d.notifyClick(e, 2)
	d.toTool(e)
}

// KeyDown handles a key press. Built-in bindings apply when the tool does
// not consume the key.
func (d *Dispatcher) KeyDown(e tool.KeyEvent) error {
	if d.guard("key", func() (bool, error) { return d.tool.ProcessKeyEvent(e) }) {
		return nil
	}
	ctrl := e.Modifiers.Has(tool.ModControl)
	switch {
	case e.Key == tool.KeyEscape:
		if d.scroll.active {
			d.EndUniversalScroll()
		} else {
			d.CancelTool()
		}
	case e.Key == tool.KeyF2:
		return d.EditSelectedCaption()
	case e.Key == tool.KeyDelete:
		return d.Delete()
	case ctrl && e.Key == tool.KeyC:
		return d.Copy()
	case ctrl && e.Key == tool.KeyX:
		return d.Cut()
	case ctrl && e.Key == tool.KeyV:
		return d.Paste(nil)
	case ctrl && e.Key == tool.KeyZ && e.Modifiers.Has(tool.ModShift), ctrl && e.Key == tool.KeyY:
		return d.Redo()
	case ctrl && e.Key == tool.KeyZ:
		return d.Undo()
	case ctrl && e.Key == tool.KeyA:
		return d.SelectAll()
	}
	return nil
}

func (d *Dispatcher) anyPressed() bool {
	return len(d.pressed) > 0
}

func (d *Dispatcher) toTool(e tool.PointerEvent) bool {
	return d.guard(e.Kind.String(), func() (bool, error) { return d.tool.ProcessPointerEvent(e) })
}

// guard runs a tool call. Errors and panics are logged and cancel the tool;
// the event then counts as handled.
func (d *Dispatcher) guard(op string, fn func() (bool, error)) (handled bool) {
	t := d.tool
	defer func() {
		if r := recover(); r != nil {
			logging.Logger().Error("tool panicked", "tool", t.Name(), "op", op, "panic", fmt.Sprint(r))
			d.cancelQuietly(t)
			handled = true
		}
	}()
	handled, err := fn()
	if err != nil {
		logging.Logger().Error("tool failed", "tool", t.Name(), "op", op, "err", err)
		d.cancelQuietly(t)
		return true
	}
	return handled
}

func (d *Dispatcher) cancelQuietly(t tool.Tool) {
	defer func() {
		if r := recover(); r != nil {
			logging.Logger().Error("tool cancel panicked", "tool", t.Name(), "panic", fmt.Sprint(r))
		}
	}()
	t.Cancel()
}

func (d *Dispatcher) notifyClick(e tool.PointerEvent, clicks int) {
	if d.cfg.OnShapeClick == nil {
		return
	}
	diagram := d.Diagram()
	if diagram == nil {
		return
	}
	p := d.Transform().ToDiagram(e.Position)
	if hit := d.cfg.Selection.ShapeAt(p, d.cfg.HitTolerance); hit != nil {
		d.cfg.OnShapeClick(ShapeClick{Shape: hit, Button: e.Button, Clicks: clicks, Position: p})
	}
}

func (d *Dispatcher) selectedOrOwned(s shape.Shape) bool {
	for ; s != nil; s = s.Parent() {
		if d.cfg.Selection.Contains(s) {
			return true
		}
	}
	return false
}

// Tool host.

func (d *Dispatcher) Diagram() *shape.Diagram {
	if d.cfg.Diagram == nil {
		return nil
	}
	return d.cfg.Diagram()
}

func (d *Dispatcher) Repository() *repository.Repository { return d.cfg.Repository }
func (d *Dispatcher) Selection() *selection.Model        { return d.cfg.Selection }
func (d *Dispatcher) Transform() transform.Transform     { return d.cfg.Viewport.Transform() }
func (d *Dispatcher) Grips() *grip.Geometry              { return d.cfg.Grips }
func (d *Dispatcher) HitTolerance() int                  { return d.cfg.HitTolerance }
func (d *Dispatcher) InvalidateAll()                     { d.cfg.Scheduler.InvalidateAll() }

// Execute runs cmd through the history.
func (d *Dispatcher) Execute(cmd history.Command) error {
	return d.cfg.History.Execute(cmd)
}

// EditCaption opens the caption editor on caption index of s.
func (d *Dispatcher) EditCaption(s shape.Shape, index int) {
	captioned, ok := s.(shape.Captioned)
	if !ok || d.cfg.CaptionEditor == nil {
		return
	}
	b := d.Transform().RectToControl(captioned.CaptionBounds(index))
	d.cfg.CaptionEditor.OpenCaptionEditor(s, index, b, captioned.CaptionText(index))
}

// CommitCaption stores text edited in the caption editor.
func (d *Dispatcher) CommitCaption(s shape.Shape, index int, text string) error {
	if captioned, ok := s.(shape.Captioned); ok && captioned.CaptionText(index) == text {
		return nil
	}
	return d.Execute(&history.SetCaption{Repo: d.cfg.Repository, Diagram: d.Diagram(), Shape: s, Index: index, Text: text})
}
