// Package app assembles a diagram display from its parts and publishes the
// display-level events collaborators subscribe to.
package app

import (
	"fmt"
	"sync"

	"diagram-display/internal/config"
	"diagram-display/internal/errs"
	"diagram-display/internal/grip"
	"diagram-display/internal/history"
	"diagram-display/internal/input"
	"diagram-display/internal/invalidate"
	"diagram-display/internal/layer"
	"diagram-display/internal/logging"
	"diagram-display/internal/render"
	"diagram-display/internal/repository"
	"diagram-display/internal/selection"
	"diagram-display/internal/shape"
	"diagram-display/internal/surface"
	"diagram-display/internal/transform"
	"diagram-display/internal/viewport"
	"diagram-display/pkg/geometry"
)

// EventType identifies display events.
type EventType int

const (
	// EventZoomChanged carries the new zoom percent.
	EventZoomChanged EventType = iota
	// EventSelectionChanged carries a selection.Changed.
	EventSelectionChanged
	// EventDiagramChanging carries the outgoing diagram, possibly nil.
	EventDiagramChanging
	// EventDiagramChanged carries the new diagram, possibly nil.
	EventDiagramChanged
	// EventShapeClick carries an input.ShapeClick.
	EventShapeClick
	// EventLayerVisibilityChanged carries the layer.IDs whose hidden flag changed.
	EventLayerVisibilityChanged
	// EventActiveLayersChanged carries the new active layer.IDs.
	EventActiveLayersChanged
)

// EventListener is called when an event occurs.
type EventListener func(data any)

// Options holds the collaborators of a Display. Everything may be nil;
// Settings defaults to config.Default and Repository to an empty one.
type Options struct {
	Settings      *config.Settings
	Repository    *repository.Repository
	Security      input.Security
	ContextMenu   input.ContextMenu
	Clipboard     input.Clipboard
	CaptionEditor input.CaptionEditor
}

// Display is one diagram view: viewport, selection, input and rendering of
// the diagram it currently shows.
type Display struct {
	mu sync.RWMutex

	settings *config.Settings
	repo     *repository.Repository
	diagram  *shape.Diagram
	target   invalidate.Target
	editor   input.CaptionEditor

	grips      *grip.Geometry
	scheduler  *invalidate.Scheduler
	viewport   *viewport.Controller
	selection  *selection.Model
	history    *history.History
	dispatcher *input.Dispatcher
	pipeline   *render.Pipeline

	listeners map[EventType][]EventListener

	closeRepo   func()
	diagramSubs []func()
}

// NewDisplay builds a display showing no diagram.
func NewDisplay(opts Options) (*Display, error) {
	s := opts.Settings
	if s == nil {
		s = config.Default()
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	repo := opts.Repository
	if repo == nil {
		repo = repository.New()
	}

	d := &Display{
		settings:  s,
		repo:      repo,
		editor:    opts.CaptionEditor,
		history:   history.New(history.DefaultLimit),
		listeners: make(map[EventType][]EventListener),
	}

	resize, connect, err := s.GripShapes()
	if err != nil {
		return nil, err
	}
	if d.grips, err = grip.New(s.Grip.Radius, resize, connect); err != nil {
		return nil, err
	}

	d.scheduler = invalidate.New(invalidate.Config{
		Target:          d,
		Transform:       func() transform.Transform { return d.viewport.Transform() },
		Margin:          d.grips.Margin,
		RecomputeBounds: func() { d.viewport.Recompute() },
	})
	d.viewport = viewport.New(viewport.Config{
		Content:            d.content,
		Invalidator:        d.scheduler,
		CloseCaptionEditor: d.closeCaptionEditor,
		Margin:             s.View.Margin,
		ScrollBarSize:      s.View.ScrollBarSize,
		ZoomStep:           s.View.ZoomStep,
	})
	d.viewport.OnZoomChange(func(percent int) { d.Emit(EventZoomChanged, percent) })

	d.selection = selection.New(d.scheduler)
	d.selection.Visible = d.shapeVisible
	d.selection.OnChanged(func(c selection.Changed) { d.Emit(EventSelectionChanged, c) })

	d.dispatcher = input.New(input.Config{
		Diagram:       d.Diagram,
		Repository:    repo,
		Selection:     d.selection,
		Viewport:      d.viewport,
		Scheduler:     d.scheduler,
		History:       d.history,
		Grips:         d.grips,
		Security:      opts.Security,
		ContextMenu:   opts.ContextMenu,
		Clipboard:     opts.Clipboard,
		CaptionEditor: opts.CaptionEditor,
		OnShapeClick:  func(c input.ShapeClick) { d.Emit(EventShapeClick, c) },
		GridSize:      s.Grid.Size,
		DeadZone:      s.Input.DeadZone,
		Slowdown:      s.Input.Slowdown,
		HitTolerance:  s.Input.HitTolerance,
	})

	d.pipeline = render.New(render.Config{
		Diagram:         d.Diagram,
		Viewport:        d.viewport,
		Selection:       d.selection,
		Grips:           d.grips,
		Tool:            d.dispatcher.Tool,
		CancelTool:      d.dispatcher.CancelTool,
		UniversalScroll: d.dispatcher.UniversalScrolling,
		DeadZone:        s.Input.DeadZone,
	})
	th, err := s.Theme()
	if err != nil {
		return nil, err
	}
	d.pipeline.SetTheme(th)

	d.closeRepo = repo.On(repository.EventDiagramDeleted, func(ev repository.Event) {
		if ev.Diagram != nil && ev.Diagram == d.Diagram() {
			d.SetDiagram(nil)
		}
	})
	return d, nil
}

// On registers an event listener for the specified event type.
func (d *Display) On(event EventType, listener EventListener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[event] = append(d.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (d *Display) Emit(event EventType, data any) {
	d.mu.RLock()
	listeners := d.listeners[event]
	d.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// Close drops every repository subscription. The display must not be used afterwards.
func (d *Display) Close() {
	d.unsubscribeDiagram()
	d.dispatcher.Close()
	if d.closeRepo != nil {
		d.closeRepo()
		d.closeRepo = nil
	}
}

func (d *Display) Settings() *config.Settings         { return d.settings }
func (d *Display) Repository() *repository.Repository { return d.repo }
func (d *Display) Viewport() *viewport.Controller     { return d.viewport }
func (d *Display) Selection() *selection.Model        { return d.selection }
func (d *Display) History() *history.History          { return d.history }
func (d *Display) Dispatcher() *input.Dispatcher      { return d.dispatcher }
func (d *Display) Pipeline() *render.Pipeline         { return d.pipeline }
func (d *Display) Scheduler() *invalidate.Scheduler   { return d.scheduler }
func (d *Display) Grips() *grip.Geometry              { return d.grips }

// Diagram returns the shown diagram, or nil.
func (d *Display) Diagram() *shape.Diagram { return d.diagram }

// SetRepaintTarget connects the widget that repaints the display.
func (d *Display) SetRepaintTarget(t invalidate.Target) { d.target = t }

// Repaint forwards a control-space repaint request to the target.
func (d *Display) Repaint(r geometry.Rect) {
	if d.target != nil {
		d.target.Repaint(r)
	}
}

// RepaintAll forwards a full repaint request to the target.
func (d *Display) RepaintAll() {
	if d.target != nil {
		d.target.RepaintAll()
	}
}

// SetDiagram swaps the shown diagram. Listeners see EventDiagramChanging
// before anything changes and EventDiagramChanged afterwards. The current
// tool is cancelled, and the selection, the undo history and the edit buffer
// are cleared.
func (d *Display) SetDiagram(diagram *shape.Diagram) {
	if diagram == d.diagram {
		return
	}
	old := d.diagram
	d.Emit(EventDiagramChanging, old)

	d.dispatcher.CancelTool()
	d.dispatcher.EndUniversalScroll()
	d.closeCaptionEditor()
	d.unsubscribeDiagram()

	d.diagram = diagram
	d.selection.SetDiagram(diagram)
	d.history.Clear()
	d.dispatcher.ResetBuffer()
	if diagram != nil {
		d.subscribeDiagram(diagram)
	}

	d.pipeline.MarkBoundsDirty()
	d.viewport.Recompute()
	d.viewport.ScrollTo(d.viewport.HScroll().Min, d.viewport.VScroll().Min)
	d.scheduler.MarkBoundsDirty()

	name := ""
	if diagram != nil {
		name = diagram.Name
	}
	logging.Logger().Info("diagram shown", "name", name)
	d.Emit(EventDiagramChanged, diagram)
}

// ShowDiagram looks up a diagram in the repository by name and shows it.
func (d *Display) ShowDiagram(name string) error {
	diagram := d.repo.Diagram(name)
	if diagram == nil {
		return fmt.Errorf("diagram %q: %w", name, errs.ErrPreconditionFailed)
	}
	d.SetDiagram(diagram)
	return nil
}

func (d *Display) subscribeDiagram(diagram *shape.Diagram) {
	changed := func(ev repository.Event) {
		if ev.Diagram != diagram {
			return
		}
		resume := d.scheduler.Scope()
		defer resume()
		d.scheduler.MarkRegionDirty(shape.BoundsOf(ev.Shapes))
		d.scheduler.MarkBoundsDirty()
	}
	d.diagramSubs = []func(){
		d.repo.On(repository.EventShapesInserted, changed),
		d.repo.On(repository.EventShapesUpdated, changed),
		d.repo.On(repository.EventShapesDeleted, changed),
	}
}

func (d *Display) unsubscribeDiagram() {
	for _, u := range d.diagramSubs {
		u()
	}
	d.diagramSubs = nil
}

// ApplySettings switches grip and colour settings at runtime. Margin, zoom
// step and input settings keep the values the display was built with.
func (d *Display) ApplySettings(s *config.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	resize, connect, err := s.GripShapes()
	if err != nil {
		return err
	}
	th, err := s.Theme()
	if err != nil {
		return err
	}
	if err := d.grips.SetRadius(s.Grip.Radius); err != nil {
		return err
	}
	d.grips.SetResizeShape(resize)
	d.grips.SetConnectShape(connect)
	d.pipeline.SetTheme(th)
	d.settings = s
	d.scheduler.InvalidateAll()
	return nil
}

// SetLayersHidden hides or shows the named layers of the shown diagram.
func (d *Display) SetLayersHidden(hidden bool, names ...string) error {
	if d.diagram == nil {
		return fmt.Errorf("set layer visibility: no diagram: %w", errs.ErrPreconditionFailed)
	}
	ids := d.diagram.Layers().IDsOf(names...)
	if ids == layer.None {
		return fmt.Errorf("layers %v: %w", names, errs.ErrInvalidParameter)
	}
	d.diagram.Layers().SetHidden(ids, hidden)
	d.selection.Prune(d.hiddenSelected())
	d.scheduler.InvalidateAll()
	d.Emit(EventLayerVisibilityChanged, ids)
	return nil
}

// SetActiveLayers replaces the active layers of the shown diagram.
func (d *Display) SetActiveLayers(names ...string) error {
	if d.diagram == nil {
		return fmt.Errorf("set active layers: no diagram: %w", errs.ErrPreconditionFailed)
	}
	ids := d.diagram.Layers().IDsOf(names...)
	d.diagram.Layers().SetActive(ids)
	d.Emit(EventActiveLayersChanged, ids)
	return nil
}

func (d *Display) hiddenSelected() []shape.Shape {
	var out []shape.Shape
	for _, s := range d.selection.Shapes(selection.BottomUp) {
		if !d.shapeVisible(s) {
			out = append(out, s)
		}
	}
	return out
}

func (d *Display) shapeVisible(s shape.Shape) bool {
	if d.diagram == nil {
		return false
	}
	return d.diagram.Layers().ShapeVisible(shape.Root(s).Layers(), d.viewport.ZoomPercent())
}

func (d *Display) content() (geometry.Rect, bool) {
	if d.diagram == nil {
		return geometry.Rect{}, false
	}
	return d.diagram.ContentBounds(), true
}

func (d *Display) closeCaptionEditor() {
	if d.editor != nil {
		d.editor.CloseCaptionEditor()
	}
}

// RenderFrame draws the part of the display inside the control-space clip.
func (d *Display) RenderFrame(s surface.Surface, clip geometry.Rect) render.FrameStats {
	return d.pipeline.RenderFrame(s, clip)
}

// Render draws the whole display onto a new raster surface of the given size.
func (d *Display) Render(width, height int) (*surface.GGSurface, error) {
	s, err := surface.NewGGSurface(width, height)
	if err != nil {
		return nil, err
	}
	w, h := s.Size()
	d.viewport.SetDrawBounds(w, h)
	d.RenderFrame(s, geometry.R(0, 0, w, h))
	return s, nil
}
