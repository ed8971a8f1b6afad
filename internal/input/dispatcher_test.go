package input

import (
	"errors"
	"testing"

	"diagram-display/internal/errs"
	"diagram-display/internal/grip"
	"diagram-display/internal/history"
	"diagram-display/internal/invalidate"
	"diagram-display/internal/repository"
	"diagram-display/internal/selection"
	"diagram-display/internal/shape"
	"diagram-display/internal/surface"
	"diagram-display/internal/tool"
	"diagram-display/internal/viewport"
	"diagram-display/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	d       *Dispatcher
	repo    *repository.Repository
	diagram *shape.Diagram
	sel     *selection.Model
	vp      *viewport.Controller
	hist    *history.History

	menus     int
	menuItems []ContextAction
	clicks    []ShapeClick
	clip      string
	changes   int
}

func (h *harness) ShowContextMenu(_ geometry.Point, actions []ContextAction) {
	h.menus++
	h.menuItems = actions
}

func (h *harness) WriteText(text string) error {
	h.clip = text
	return nil
}

type denyAll struct{}

func (denyAll) IsGranted(Permission, []shape.Shape) bool { return false }

// newHarness builds a dispatcher over a 1000x800 diagram in an 800x600
// view. At 100% the diagram origin sits at control (40, 40).
func newHarness(t *testing.T, security Security) *harness {
	t.Helper()
	h := &harness{repo: repository.New(), diagram: shape.NewDiagram("test", 1000, 800), hist: history.New(0)}
	require.NoError(t, h.repo.AddDiagram(h.diagram))

	h.vp = viewport.New(viewport.Config{
		Content: func() (geometry.Rect, bool) { return h.diagram.ContentBounds(), true },
		Margin:  viewport.DefaultMargin,
	})
	h.vp.SetDrawBounds(800, 600)
	sched := invalidate.New(invalidate.Config{Transform: h.vp.Transform, RecomputeBounds: h.vp.Recompute})

	h.sel = selection.New(sched)
	h.sel.SetDiagram(h.diagram)
	h.sel.OnChanged(func(selection.Changed) { h.changes++ })

	g, err := grip.New(4, grip.Square, grip.Circle)
	require.NoError(t, err)
	h.d = New(Config{
		Diagram:      func() *shape.Diagram { return h.diagram },
		Repository:   h.repo,
		Selection:    h.sel,
		Viewport:     h.vp,
		Scheduler:    sched,
		History:      h.hist,
		Grips:        g,
		Security:     security,
		ContextMenu:  h,
		Clipboard:    h,
		OnShapeClick: func(c ShapeClick) { h.clicks = append(h.clicks, c) },
	})
	return h
}

func ctrl(k tool.Key) tool.KeyEvent {
	return tool.KeyEvent{Key: k, Modifiers: tool.ModControl}
}

func at(b tool.Button, x, y int) tool.PointerEvent {
	return tool.PointerEvent{Button: b, Position: geometry.Pt(x, y)}
}

func TestDispatcher_CutPasteOffsetsByGrid(t *testing.T) {
	h := newHarness(t, nil)
	box := shape.NewBox(100, 100, 50, 50)
	h.repo.InsertShapes(h.diagram, box)
	require.NoError(t, h.sel.Select(box, false))

	require.NoError(t, h.d.KeyDown(ctrl(tool.KeyX)))
	assert.Equal(t, 0, h.diagram.Len())
	assert.True(t, h.sel.IsEmpty())
	assert.Equal(t, EditCut, h.d.Buffer().Action)

	h.changes = 0
	require.NoError(t, h.d.KeyDown(ctrl(tool.KeyV)))
	require.Equal(t, 1, h.diagram.Len())
	pasted := h.diagram.Shapes()[0].(*shape.Box)
	assert.Equal(t, geometry.R(120, 120, 50, 50), pasted.Rect)
	assert.NotEqual(t, box.ID(), pasted.ID())
	assert.Equal(t, shape.Shape(pasted), h.sel.Single())
	assert.Equal(t, 1, h.changes, "one selection notification per action")

	require.NoError(t, h.d.KeyDown(ctrl(tool.KeyV)))
	assert.Equal(t, geometry.R(140, 140, 50, 50), h.diagram.Shapes()[1].(*shape.Box).Rect)
	assert.Equal(t, 2, h.d.Buffer().PasteCount)
}

func TestDispatcher_PasteAtPosition(t *testing.T) {
	h := newHarness(t, nil)
	a := shape.NewBox(100, 100, 50, 50)
	b := shape.NewBox(200, 150, 50, 50)
	a.Caption, b.Caption = "first", "second"
	h.repo.InsertShapes(h.diagram, a, b)
	require.NoError(t, h.sel.SelectMany([]shape.Shape{a, b}, false))

	require.NoError(t, h.d.Copy())
	assert.Equal(t, "first\nsecond", h.clip)
	assert.Equal(t, geometry.Pt(100, 100), h.d.Buffer().Anchor)

	require.NoError(t, h.d.Paste(&geometry.Point{X: 500, Y: 500}))
	require.Equal(t, 4, h.diagram.Len())
	assert.Equal(t, geometry.R(500, 500, 50, 50), h.diagram.Shapes()[2].(*shape.Box).Rect)
	assert.Equal(t, geometry.R(600, 550, 50, 50), h.diagram.Shapes()[3].(*shape.Box).Rect)
	assert.Equal(t, 2, h.sel.Count())
	assert.False(t, h.sel.Contains(a))
}

func TestDispatcher_DeleteDenied(t *testing.T) {
	h := newHarness(t, denyAll{})
	box := shape.NewBox(100, 100, 50, 50)
	h.repo.InsertShapes(h.diagram, box)
	require.NoError(t, h.sel.Select(box, false))

	err := h.d.KeyDown(tool.KeyEvent{Key: tool.KeyDelete})
	assert.ErrorIs(t, err, errs.ErrPermissionDenied)
	assert.Equal(t, 1, h.diagram.Len())
	assert.True(t, h.sel.Contains(box))

	assert.ErrorIs(t, h.d.Cut(), errs.ErrPermissionDenied)
	for _, a := range h.d.ContextActions() {
		if a.Name == "delete" || a.Name == "cut" {
			assert.False(t, a.Enabled, a.Name)
		}
	}
}

func TestDispatcher_DeleteUndoRedo(t *testing.T) {
	h := newHarness(t, nil)
	box := shape.NewBox(100, 100, 50, 50)
	other := shape.NewBox(300, 100, 50, 50)
	h.repo.InsertShapes(h.diagram, box, other)
	require.NoError(t, h.sel.Select(box, false))

	require.NoError(t, h.d.KeyDown(tool.KeyEvent{Key: tool.KeyDelete}))
	assert.False(t, h.diagram.Contains(box))
	assert.True(t, h.sel.IsEmpty())

	require.NoError(t, h.d.KeyDown(ctrl(tool.KeyZ)))
	assert.True(t, h.diagram.Contains(box))
	assert.Equal(t, shape.Shape(box), h.sel.Single(), "undo selects what it restored")

	require.NoError(t, h.d.KeyDown(tool.KeyEvent{Key: tool.KeyZ, Modifiers: tool.ModControl | tool.ModShift}))
	assert.False(t, h.diagram.Contains(box))

	require.NoError(t, h.d.KeyDown(ctrl(tool.KeyZ)))
	require.NoError(t, h.d.KeyDown(ctrl(tool.KeyY)))
	assert.False(t, h.diagram.Contains(box))
	assert.Equal(t, []shape.Shape{other}, h.diagram.Shapes())
}

func TestDispatcher_FailedDeleteKeepsSelection(t *testing.T) {
	h := newHarness(t, nil)
	stray := shape.NewBox(100, 100, 50, 50)
	require.NoError(t, h.sel.Select(stray, false))

	h.changes = 0
	err := h.d.Delete()
	assert.ErrorIs(t, err, errs.ErrPreconditionFailed)
	assert.Equal(t, shape.Shape(stray), h.sel.Single())
	assert.Zero(t, h.changes)
}

func TestDispatcher_ResetBuffer(t *testing.T) {
	h := newHarness(t, nil)
	box := shape.NewBox(100, 100, 50, 50)
	h.repo.InsertShapes(h.diagram, box)
	require.NoError(t, h.sel.Select(box, false))
	require.NoError(t, h.d.Copy())
	require.Len(t, h.d.Buffer().Shapes, 1)

	h.d.ResetBuffer()
	assert.Equal(t, EditBuffer{}, h.d.Buffer())
	require.NoError(t, h.d.Paste(nil))
	assert.Equal(t, 1, h.diagram.Len())
	for _, a := range h.d.ContextActions() {
		if a.Name == "paste" {
			assert.False(t, a.Enabled)
		}
	}
}

func TestDispatcher_ExternalDeletePrunesOnce(t *testing.T) {
	h := newHarness(t, nil)
	a := shape.NewBox(0, 0, 10, 10)
	b := shape.NewBox(20, 0, 10, 10)
	c := shape.NewBox(40, 0, 10, 10)
	h.repo.InsertShapes(h.diagram, a, b, c)
	require.NoError(t, h.sel.SelectMany([]shape.Shape{a, b, c}, false))

	h.changes = 0
	h.repo.DeleteShapes(h.diagram, a, b)
	assert.Equal(t, []shape.Shape{c}, h.sel.Shapes(selection.Insertion))
	assert.Equal(t, 1, h.changes)
}

func TestDispatcher_ContextMenuSelectsUnderPointer(t *testing.T) {
	h := newHarness(t, nil)
	a := shape.NewBox(100, 100, 50, 50)
	b := shape.NewBox(300, 100, 50, 50)
	h.repo.InsertShapes(h.diagram, a, b)
	require.NoError(t, h.sel.Select(b, false))

	h.d.PointerDown(at(tool.ButtonSecondary, 160, 160))
	require.NoError(t, h.d.PointerUp(at(tool.ButtonSecondary, 160, 160)))
	assert.Equal(t, shape.Shape(a), h.sel.Single())
	assert.Equal(t, 1, h.menus)
	assert.Len(t, h.menuItems, 11)

	// already selected: selection untouched
	require.NoError(t, h.sel.SelectMany([]shape.Shape{a, b}, false))
	h.d.PointerDown(at(tool.ButtonSecondary, 160, 160))
	require.NoError(t, h.d.PointerUp(at(tool.ButtonSecondary, 160, 160)))
	assert.Equal(t, 2, h.sel.Count())
	assert.Equal(t, 2, h.menus)
}

// scriptedTool handles every event and can be told to fail.
type scriptedTool struct {
	fail      error
	panicking bool
	events    []tool.PointerKind
	cancels   int
}

func (s *scriptedTool) Name() string { return "scripted" }

func (s *scriptedTool) ProcessPointerEvent(e tool.PointerEvent) (bool, error) {
	s.events = append(s.events, e.Kind)
	if s.panicking {
		panic("boom")
	}
	return true, s.fail
}

func (s *scriptedTool) ProcessKeyEvent(tool.KeyEvent) (bool, error) { return false, nil }
func (s *scriptedTool) Draw(surface.Surface) error                  { return nil }
func (s *scriptedTool) Cancel()                                     { s.cancels++ }
func (s *scriptedTool) EnterDisplay(tool.Host)                      {}
func (s *scriptedTool) LeaveDisplay(tool.Host)                      {}
func (s *scriptedTool) WantsAutoScroll() bool                       { return false }

func TestDispatcher_ToolHandledDownSkipsContextMenu(t *testing.T) {
	h := newHarness(t, nil)
	st := &scriptedTool{}
	h.d.SetTool(st)

	h.d.PointerDown(at(tool.ButtonSecondary, 160, 160))
	require.NoError(t, h.d.PointerUp(at(tool.ButtonSecondary, 160, 160)))
	assert.Equal(t, 0, h.menus)
	assert.Equal(t, []tool.PointerKind{tool.PointerDown, tool.PointerUp}, st.events)
}

func TestDispatcher_ToolFailuresCancelTool(t *testing.T) {
	h := newHarness(t, nil)
	st := &scriptedTool{fail: errors.New("broken")}
	h.d.SetTool(st)

	h.d.PointerDown(at(tool.ButtonPrimary, 100, 100))
	assert.Equal(t, 1, st.cancels)

	st.fail, st.panicking = nil, true
	assert.NotPanics(t, func() {
		h.d.PointerMove(at(tool.ButtonPrimary, 110, 100))
	})
	assert.Equal(t, 2, st.cancels)
	assert.Same(t, st, h.d.Tool(), "the tool stays current")
}

func TestDispatcher_ScrollBarIgnored(t *testing.T) {
	h := newHarness(t, nil)
	st := &scriptedTool{}
	h.d.SetTool(st)

	h.d.PointerDown(at(tool.ButtonPrimary, 790, 100))
	assert.Empty(t, st.events)
}

func TestDispatcher_UniversalScroll(t *testing.T) {
	h := newHarness(t, nil)
	st := &scriptedTool{}
	h.d.SetTool(st)

	h.d.PointerDown(at(tool.ButtonMiddle, 400, 300))
	on, anchor := h.d.UniversalScrolling()
	assert.True(t, on)
	assert.Equal(t, geometry.Pt(400, 300), anchor)

	h.d.PointerMove(at(tool.ButtonNone, 405, 305))
	assert.Equal(t, geometry.Pt(0, 0), h.vp.Scroll(), "inside the dead zone")

	h.d.PointerMove(at(tool.ButtonNone, 440, 340))
	assert.Equal(t, geometry.Pt(10, 10), h.vp.Scroll())
	h.d.UniversalScrollTick()
	assert.Equal(t, geometry.Pt(20, 20), h.vp.Scroll())
	assert.Empty(t, st.events, "the tool sees nothing while scrolling")

	h.d.PointerDown(at(tool.ButtonPrimary, 440, 340))
	on, _ = h.d.UniversalScrolling()
	assert.False(t, on)
	assert.Empty(t, st.events, "the ending click is consumed")

	h.d.PointerDown(at(tool.ButtonMiddle, 400, 300))
	require.NoError(t, h.d.KeyDown(tool.KeyEvent{Key: tool.KeyEscape}))
	on, _ = h.d.UniversalScrolling()
	assert.False(t, on)
}

func TestDispatcher_ShapeClickOncePerClick(t *testing.T) {
	h := newHarness(t, nil)
	a := shape.NewBox(100, 100, 50, 50)
	b := shape.NewBox(110, 110, 50, 50)
	h.repo.InsertShapes(h.diagram, a, b)

	h.d.PointerDown(at(tool.ButtonPrimary, 160, 160))
	require.NoError(t, h.d.PointerUp(at(tool.ButtonPrimary, 160, 160)))
	require.Len(t, h.clicks, 1)
	assert.Equal(t, shape.Shape(b), h.clicks[0].Shape, "top-most shape only")
	assert.Equal(t, geometry.Pt(120, 120), h.clicks[0].Position)

	h.d.DoubleClick(at(tool.ButtonPrimary, 160, 160))
	require.Len(t, h.clicks, 2)
	assert.Equal(t, 2, h.clicks[1].Clicks)
}

func TestDispatcher_GroupAndSplitActions(t *testing.T) {
	h := newHarness(t, nil)
	a := shape.NewBox(100, 100, 50, 50)
	b := shape.NewBox(300, 100, 50, 50)
	h.repo.InsertShapes(h.diagram, a, b)
	require.NoError(t, h.d.KeyDown(ctrl(tool.KeyA)))
	assert.Equal(t, 2, h.sel.Count())

	actions := map[string]ContextAction{}
	for _, act := range h.d.ContextActions() {
		actions[act.Name] = act
	}
	require.True(t, actions["aggregate"].Enabled)
	assert.False(t, actions["split"].Enabled)
	require.NoError(t, actions["aggregate"].Run())

	agg, ok := h.sel.Single().(*shape.Container)
	require.True(t, ok)
	assert.True(t, shape.Has(agg, shape.Composite))
	assert.Equal(t, []shape.Shape{agg}, h.diagram.Shapes())

	for _, act := range h.d.ContextActions() {
		if act.Name == "split" {
			require.True(t, act.Enabled)
			require.NoError(t, act.Run())
		}
	}
	assert.Equal(t, 2, h.sel.Count())
	assert.Equal(t, 2, h.diagram.Len())
	assert.Nil(t, a.Parent())
}

func TestDispatcher_F2OpensCaptionEditor(t *testing.T) {
	h := newHarness(t, nil)
	editor := &captionEditor{}
	h.d.cfg.CaptionEditor = editor
	box := shape.NewBox(100, 100, 50, 50)
	box.Caption = "hi"
	h.repo.InsertShapes(h.diagram, box)

	require.NoError(t, h.d.KeyDown(tool.KeyEvent{Key: tool.KeyF2}))
	assert.Nil(t, editor.shape, "needs a selection")

	require.NoError(t, h.sel.Select(box, false))
	require.NoError(t, h.d.KeyDown(tool.KeyEvent{Key: tool.KeyF2}))
	assert.Equal(t, shape.Shape(box), editor.shape)
	assert.Equal(t, "hi", editor.text)
	assert.Equal(t, geometry.R(142, 142, 46, 46), editor.bounds)

	require.NoError(t, h.d.CommitCaption(box, 0, "hello"))
	assert.Equal(t, "hello", box.Caption)
	assert.Equal(t, "Edit caption", h.hist.UndoDescription())
}

type captionEditor struct {
	shape  shape.Shape
	bounds geometry.Rect
	text   string
}

func (c *captionEditor) OpenCaptionEditor(s shape.Shape, _ int, bounds geometry.Rect, text string) {
	c.shape, c.bounds, c.text = s, bounds, text
}

func (c *captionEditor) CloseCaptionEditor() {}

func TestDispatcher_CloseUnsubscribes(t *testing.T) {
	h := newHarness(t, nil)
	assert.Equal(t, 1, h.repo.Listeners(repository.EventShapesDeleted))

	h.d.Close()
	assert.Zero(t, h.repo.Listeners(repository.EventShapesInserted))
	assert.Zero(t, h.repo.Listeners(repository.EventShapesUpdated))
	assert.Zero(t, h.repo.Listeners(repository.EventShapesDeleted))
}
