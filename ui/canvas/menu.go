package canvas

import (
	"diagram-display/internal/input"
	"diagram-display/internal/logging"
	"diagram-display/internal/shape"
	"diagram-display/pkg/geometry"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/widget"
)

// contextMenu shows the dispatcher's context actions as a pop-up menu.
type contextMenu struct {
	canvas *DiagramCanvas
}

var _ input.ContextMenu = (*contextMenu)(nil)

// ShowContextMenu is called with the display locked; the menu runs its
// actions through the canvas later.
func (m *contextMenu) ShowContextMenu(p geometry.Point, actions []input.ContextAction) {
	items := make([]*fyne.MenuItem, 0, len(actions))
	for _, a := range actions {
		a := a
		item := fyne.NewMenuItem(a.Title, func() {
			m.canvas.do(func() {
				if err := a.Run(); err != nil {
					logging.Logger().Warn("context action", "action", a.Name, "err", err)
				}
			})
		})
		item.Disabled = !a.Enabled
		items = append(items, item)
	}

	cv := canvasFor(m.canvas)
	if cv == nil {
		return
	}
	pos := fyne.CurrentApp().Driver().AbsolutePositionForObject(m.canvas).Add(m.canvas.toFyne(p))
	widget.ShowPopUpMenuAtPosition(fyne.NewMenu("", items...), cv, pos)
}

// captionEditor edits a caption in a pop-up entry placed over the caption.
type captionEditor struct {
	canvas *DiagramCanvas
	popup  *widget.PopUp

	shape shape.Shape
	index int
}

var _ input.CaptionEditor = (*captionEditor)(nil)

func (e *captionEditor) OpenCaptionEditor(s shape.Shape, index int, bounds geometry.Rect, text string) {
	e.CloseCaptionEditor()
	cv := canvasFor(e.canvas)
	if cv == nil {
		return
	}
	e.shape, e.index = s, index

	entry := widget.NewEntry()
	entry.SetText(text)
	entry.OnSubmitted = func(text string) {
		e.canvas.do(func() {
			target, index := e.shape, e.index
			e.CloseCaptionEditor()
			if err := e.canvas.display.Dispatcher().CommitCaption(target, index, text); err != nil {
				logging.Logger().Warn("edit caption", "err", err)
			}
		})
	}

	e.popup = widget.NewPopUp(entry, cv)
	origin := fyne.CurrentApp().Driver().AbsolutePositionForObject(e.canvas)
	e.popup.ShowAtPosition(origin.Add(e.canvas.toFyne(bounds.Location())))
	size := fyne.NewSize(float32(bounds.Width)/e.canvas.scale, float32(bounds.Height)/e.canvas.scale)
	e.popup.Resize(size.Max(entry.MinSize()))
	cv.Focus(entry)
}

func (e *captionEditor) CloseCaptionEditor() {
	if e.popup != nil {
		e.popup.Hide()
		e.popup = nil
	}
	e.shape = nil
}

func canvasFor(o fyne.CanvasObject) fyne.Canvas {
	if fyne.CurrentApp() == nil {
		return nil
	}
	return fyne.CurrentApp().Driver().CanvasForObject(o)
}
