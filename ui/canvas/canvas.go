// Package canvas provides the fyne widget that shows a diagram display and
// feeds it mouse, wheel and keyboard input.
package canvas

import (
	"image"
	"sync"
	"time"

	"diagram-display/internal/app"
	"diagram-display/internal/logging"
	"diagram-display/internal/surface"
	"diagram-display/internal/tool"
	"diagram-display/pkg/geometry"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// universalScrollInterval is how often universal scrolling moves the view.
const universalScrollInterval = 30 * time.Millisecond

// DiagramCanvas renders a display into a raster and routes input to its
// dispatcher. All access to the display goes through do, so fyne's event
// and render goroutines never touch it at the same time.
type DiagramCanvas struct {
	widget.BaseWidget

	mu      sync.Mutex
	display *app.Display
	raster  *fynecanvas.Raster
	surface *surface.GGSurface
	dirty   bool

	// raster pixels per fyne unit
	scale float32

	// mods is guarded by modsMu, not mu: focus changes made while mu is
	// held call FocusLost synchronously.
	modsMu  sync.Mutex
	mods    tool.Modifier
	pressed tool.Button
	last    geometry.Point

	scrollStop chan struct{}

	menu   *contextMenu
	editor *captionEditor
}

var (
	_ fyne.Widget         = (*DiagramCanvas)(nil)
	_ desktop.Mouseable   = (*DiagramCanvas)(nil)
	_ desktop.Hoverable   = (*DiagramCanvas)(nil)
	_ desktop.Keyable     = (*DiagramCanvas)(nil)
	_ fyne.Draggable      = (*DiagramCanvas)(nil)
	_ fyne.Scrollable     = (*DiagramCanvas)(nil)
	_ fyne.DoubleTappable = (*DiagramCanvas)(nil)
	_ fyne.Focusable      = (*DiagramCanvas)(nil)
	_ fyne.Shortcutable   = (*DiagramCanvas)(nil)
)

// NewDiagramCanvas creates the widget. The display is created with the
// widget's context menu, caption editor and the system clipboard; opts may
// carry the remaining collaborators.
func NewDiagramCanvas(opts app.Options) (*DiagramCanvas, error) {
	c := &DiagramCanvas{scale: 1}
	c.menu = &contextMenu{canvas: c}
	c.editor = &captionEditor{canvas: c}
	opts.ContextMenu = c.menu
	opts.CaptionEditor = c.editor
	if opts.Clipboard == nil {
		opts.Clipboard = SystemClipboard{}
	}

	d, err := app.NewDisplay(opts)
	if err != nil {
		return nil, err
	}
	c.display = d
	d.SetRepaintTarget(c)

	c.raster = fynecanvas.NewRaster(c.draw)
	c.raster.ScaleMode = fynecanvas.ImageScalePixels
	c.ExtendBaseWidget(c)
	return c, nil
}

// Display returns the display shown by the widget.
func (c *DiagramCanvas) Display() *app.Display { return c.display }

// Do runs fn with exclusive access to the display and repaints afterwards
// when fn invalidated anything.
func (c *DiagramCanvas) Do(fn func(d *app.Display)) {
	c.do(func() { fn(c.display) })
}

func (c *DiagramCanvas) do(fn func()) {
	c.mu.Lock()
	fn()
	dirty := c.dirty
	c.dirty = false
	c.mu.Unlock()
	if dirty {
		c.raster.Refresh()
	}
}

// Repaint implements the display's repaint target. The raster is redrawn
// whole, so the region is not used.
func (c *DiagramCanvas) Repaint(geometry.Rect) { c.dirty = true }

// RepaintAll implements the display's repaint target.
func (c *DiagramCanvas) RepaintAll() { c.dirty = true }

// draw is the raster drawing function.
func (c *DiagramCanvas) draw(w, h int) image.Image {
	c.mu.Lock()
	defer c.mu.Unlock()

	if size := c.Size(); size.Width > 0 {
		c.scale = float32(w) / size.Width
	}
	if c.surface != nil {
		if sw, sh := c.surface.Size(); sw != w || sh != h {
			c.surface = nil
		}
	}
	if c.surface == nil {
		s, err := surface.NewGGSurface(w, h)
		if err != nil {
			logging.Logger().Error("create surface", "err", err)
			return image.NewRGBA(image.Rect(0, 0, w, h))
		}
		c.surface = s
	}
	c.display.RenderFrame(c.surface, geometry.R(0, 0, w, h))
	c.dirty = false
	return c.surface.Image()
}

// toControl converts a widget position to display control space.
func (c *DiagramCanvas) toControl(p fyne.Position) geometry.Point {
	return geometry.Point2D{X: float64(p.X * c.scale), Y: float64(p.Y * c.scale)}.Round()
}

func (c *DiagramCanvas) toFyne(p geometry.Point) fyne.Position {
	return fyne.NewPos(float32(p.X)/c.scale, float32(p.Y)/c.scale)
}

func (c *DiagramCanvas) pointer(kind tool.PointerKind, button tool.Button, pos fyne.Position) tool.PointerEvent {
	c.last = c.toControl(pos)
	return tool.PointerEvent{Kind: kind, Button: button, Modifiers: c.heldMods(), Position: c.last}
}

func (c *DiagramCanvas) heldMods() tool.Modifier {
	c.modsMu.Lock()
	defer c.modsMu.Unlock()
	return c.mods
}

func (c *DiagramCanvas) updateMods(fn func(tool.Modifier) tool.Modifier) {
	c.modsMu.Lock()
	c.mods = fn(c.mods)
	c.modsMu.Unlock()
}

func (c *DiagramCanvas) setMods(m tool.Modifier) {
	c.updateMods(func(tool.Modifier) tool.Modifier { return m })
}

func (c *DiagramCanvas) MouseDown(ev *desktop.MouseEvent) {
	c.requestFocus()
	c.do(func() {
		c.setMods(modifiers(ev.Modifier))
		c.pressed = button(ev.Button)
		dispatcher := c.display.Dispatcher()
		dispatcher.PointerDown(c.pointer(tool.PointerDown, c.pressed, ev.Position))
		if on, _ := dispatcher.UniversalScrolling(); on {
			c.startUniversalScroll()
		}
	})
}

func (c *DiagramCanvas) MouseUp(ev *desktop.MouseEvent) {
	c.do(func() {
		c.setMods(modifiers(ev.Modifier))
		c.release(button(ev.Button), ev.Position)
	})
}

func (c *DiagramCanvas) release(b tool.Button, pos fyne.Position) {
	if b != c.pressed {
		return
	}
	c.pressed = tool.ButtonNone
	if err := c.display.Dispatcher().PointerUp(c.pointer(tool.PointerUp, b, pos)); err != nil {
		logging.Logger().Warn("pointer up", "err", err)
	}
}

func (c *DiagramCanvas) MouseIn(ev *desktop.MouseEvent) {
	c.MouseMoved(ev)
}

func (c *DiagramCanvas) MouseMoved(ev *desktop.MouseEvent) {
	c.do(func() {
		c.setMods(modifiers(ev.Modifier))
		c.display.Dispatcher().PointerMove(c.pointer(tool.PointerMove, tool.ButtonNone, ev.Position))
	})
}

func (c *DiagramCanvas) MouseOut() {}

func (c *DiagramCanvas) Dragged(ev *fyne.DragEvent) {
	c.do(func() {
		c.display.Dispatcher().PointerMove(c.pointer(tool.PointerMove, c.pressed, ev.Position))
	})
}

// DragEnd finishes a drag whose button release was not delivered to the widget.
func (c *DiagramCanvas) DragEnd() {
	c.do(func() {
		if c.pressed != tool.ButtonNone {
			c.release(c.pressed, c.toFyne(c.last))
		}
	})
}

func (c *DiagramCanvas) DoubleTapped(ev *fyne.PointEvent) {
	c.do(func() {
		c.display.Dispatcher().DoubleClick(c.pointer(tool.DoubleClick, tool.ButtonPrimary, ev.Position))
	})
}

// Scrolled scrolls the view, or zooms around the pointer when Control is held.
func (c *DiagramCanvas) Scrolled(ev *fyne.ScrollEvent) {
	c.do(func() {
		vp := c.display.Viewport()
		mods := c.heldMods()
		if mods.Has(tool.ModControl) {
			if ev.Scrolled.DY == 0 {
				return
			}
			if err := vp.ZoomStepAt(ev.Scrolled.DY > 0, c.toControl(ev.Position)); err != nil {
				logging.Logger().Warn("wheel zoom", "err", err)
			}
			return
		}
		t := vp.Transform()
		dx := t.DistanceToDiagram(-int(ev.Scrolled.DX * c.scale))
		dy := t.DistanceToDiagram(-int(ev.Scrolled.DY * c.scale))
		if mods.Has(tool.ModShift) {
			dx, dy = dy, dx
		}
		vp.ScrollBy(dx, dy)
	})
}

func (c *DiagramCanvas) startUniversalScroll() {
	if c.scrollStop != nil {
		return
	}
	stop := make(chan struct{})
	c.scrollStop = stop
	go func() {
		ticker := time.NewTicker(universalScrollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.do(func() {
					dispatcher := c.display.Dispatcher()
					if on, _ := dispatcher.UniversalScrolling(); !on {
						c.stopUniversalScroll()
						return
					}
					dispatcher.UniversalScrollTick()
				})
			}
		}
	}()
}

func (c *DiagramCanvas) stopUniversalScroll() {
	if c.scrollStop != nil {
		close(c.scrollStop)
		c.scrollStop = nil
	}
}

func (c *DiagramCanvas) requestFocus() {
	if cv := canvasFor(c); cv != nil {
		cv.Focus(c)
	}
}

func (c *DiagramCanvas) FocusGained() {}

// FocusLost forgets held modifiers; their key-up events go elsewhere.
func (c *DiagramCanvas) FocusLost() { c.setMods(0) }

func (c *DiagramCanvas) TypedRune(rune) {}

// TypedKey handles keys typed without a shortcut modifier.
func (c *DiagramCanvas) TypedKey(ev *fyne.KeyEvent) {
	c.do(func() {
		c.dispatchKey(tool.KeyEvent{Key: tool.Key(ev.Name), Modifiers: c.heldMods()})
	})
}

// KeyDown tracks the modifier keys.
func (c *DiagramCanvas) KeyDown(ev *fyne.KeyEvent) {
	k := modifierKey(ev.Name)
	c.updateMods(func(m tool.Modifier) tool.Modifier { return m | k })
}

// KeyUp tracks the modifier keys.
func (c *DiagramCanvas) KeyUp(ev *fyne.KeyEvent) {
	k := modifierKey(ev.Name)
	c.updateMods(func(m tool.Modifier) tool.Modifier { return m &^ k })
}

// TypedShortcut handles clipboard, undo and select-all shortcuts.
func (c *DiagramCanvas) TypedShortcut(s fyne.Shortcut) {
	if ev, ok := shortcutKey(s); ok {
		c.key(ev)
	}
}

func (c *DiagramCanvas) key(ev tool.KeyEvent) {
	c.do(func() { c.dispatchKey(ev) })
}

func (c *DiagramCanvas) dispatchKey(ev tool.KeyEvent) {
	if err := c.display.Dispatcher().KeyDown(ev); err != nil {
		logging.Logger().Warn("key", "key", string(ev.Key), "err", err)
	}
}

func (c *DiagramCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &diagramCanvasRenderer{canvas: c}
}

type diagramCanvasRenderer struct {
	canvas *DiagramCanvas
}

func (r *diagramCanvasRenderer) Layout(size fyne.Size) {
	r.canvas.raster.Resize(size)
}

func (r *diagramCanvasRenderer) MinSize() fyne.Size {
	return fyne.NewSize(100, 100)
}

func (r *diagramCanvasRenderer) Refresh() {
	r.canvas.raster.Refresh()
}

func (r *diagramCanvasRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.canvas.raster}
}

func (r *diagramCanvasRenderer) Destroy() {
	r.canvas.do(r.canvas.stopUniversalScroll)
}
