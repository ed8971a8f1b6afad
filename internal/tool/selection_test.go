package tool

import (
	"image/color"
	"testing"

	"diagram-display/internal/grip"
	"diagram-display/internal/history"
	"diagram-display/internal/repository"
	"diagram-display/internal/selection"
	"diagram-display/internal/shape"
	"diagram-display/internal/surface"
	"diagram-display/internal/transform"
	"diagram-display/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHost struct {
	repo    *repository.Repository
	diagram *shape.Diagram
	sel     *selection.Model
	grips   *grip.Geometry
	hist    *history.History

	repaints int
	edited   shape.Shape
}

func newFakeHost(t *testing.T) *fakeHost {
	t.Helper()
	g, err := grip.New(4, grip.Square, grip.Circle)
	require.NoError(t, err)
	d := shape.NewDiagram("test", 1000, 1000)
	sel := selection.New(nil)
	sel.SetDiagram(d)
	repo := repository.New()
	require.NoError(t, repo.AddDiagram(d))
	return &fakeHost{repo: repo, diagram: d, sel: sel, grips: g, hist: history.New(0)}
}

func (h *fakeHost) Diagram() *shape.Diagram              { return h.diagram }
func (h *fakeHost) Repository() *repository.Repository   { return h.repo }
func (h *fakeHost) Selection() *selection.Model          { return h.sel }
func (h *fakeHost) Transform() transform.Transform       { return transform.Identity() }
func (h *fakeHost) Grips() *grip.Geometry                { return h.grips }
func (h *fakeHost) HitTolerance() int                    { return 2 }
func (h *fakeHost) Execute(cmd history.Command) error    { return h.hist.Execute(cmd) }
func (h *fakeHost) InvalidateAll()                       { h.repaints++ }
func (h *fakeHost) EditCaption(s shape.Shape, index int) { h.edited = s }

func press(t *testing.T, tl Tool, kind PointerKind, x, y int, mods Modifier) bool {
	t.Helper()
	handled, err := tl.ProcessPointerEvent(PointerEvent{Kind: kind, Button: ButtonPrimary, Modifiers: mods, Position: geometry.Pt(x, y)})
	require.NoError(t, err)
	return handled
}

func drag(t *testing.T, tl Tool, from, to geometry.Point) {
	t.Helper()
	press(t, tl, PointerDown, from.X, from.Y, 0)
	press(t, tl, PointerMove, to.X, to.Y, 0)
	press(t, tl, PointerUp, to.X, to.Y, 0)
}

func TestSelectionTool_ClickSelects(t *testing.T) {
	h := newFakeHost(t)
	box := shape.NewBox(100, 100, 100, 50)
	h.repo.InsertShapes(h.diagram, box)
	tl := NewSelectionTool()
	tl.EnterDisplay(h)

	assert.True(t, press(t, tl, PointerDown, 120, 110, 0))
	assert.True(t, press(t, tl, PointerUp, 120, 110, 0))
	assert.Equal(t, shape.Shape(box), h.sel.Single())

	press(t, tl, PointerDown, 500, 500, 0)
	press(t, tl, PointerUp, 500, 500, 0)
	assert.True(t, h.sel.IsEmpty())

	// Ctrl toggles
	press(t, tl, PointerDown, 120, 110, ModShift)
	press(t, tl, PointerUp, 120, 110, ModShift)
	assert.True(t, h.sel.Contains(box))
	press(t, tl, PointerDown, 120, 110, ModControl)
	press(t, tl, PointerUp, 120, 110, ModControl)
	assert.True(t, h.sel.IsEmpty())
}

func TestSelectionTool_SecondaryButtonIgnored(t *testing.T) {
	h := newFakeHost(t)
	tl := NewSelectionTool()
	tl.EnterDisplay(h)

	handled, err := tl.ProcessPointerEvent(PointerEvent{Kind: PointerDown, Button: ButtonSecondary})
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestSelectionTool_DrillIntoGroup(t *testing.T) {
	h := newFakeHost(t)
	a := shape.NewBox(100, 100, 100, 50)
	b := shape.NewBox(300, 100, 50, 50)
	g := shape.NewGroup(a, b)
	h.repo.InsertShapes(h.diagram, g)
	tl := NewSelectionTool()
	tl.EnterDisplay(h)

	press(t, tl, PointerDown, 120, 110, 0)
	press(t, tl, PointerUp, 120, 110, 0)
	assert.Equal(t, shape.Shape(g), h.sel.Single())

	press(t, tl, PointerDown, 120, 110, 0)
	press(t, tl, PointerUp, 120, 110, 0)
	assert.Equal(t, shape.Shape(a), h.sel.Single())
}

func TestSelectionTool_Move(t *testing.T) {
	h := newFakeHost(t)
	box := shape.NewBox(100, 100, 100, 50)
	h.repo.InsertShapes(h.diagram, box)
	tl := NewSelectionTool()
	tl.EnterDisplay(h)

	press(t, tl, PointerDown, 120, 110, 0)
	press(t, tl, PointerMove, 121, 111, 0)
	assert.False(t, tl.WantsAutoScroll(), "below drag distance")
	press(t, tl, PointerMove, 140, 130, 0)
	assert.True(t, tl.WantsAutoScroll())
	assert.Equal(t, geometry.R(100, 100, 100, 50), box.Rect, "only previewed while dragging")
	press(t, tl, PointerUp, 140, 130, 0)

	assert.Equal(t, geometry.R(120, 120, 100, 50), box.Rect)
	assert.False(t, tl.Active())
	require.NoError(t, h.hist.Undo())
	assert.Equal(t, geometry.R(100, 100, 100, 50), box.Rect)
}

func TestSelectionTool_EscapeCancelsDrag(t *testing.T) {
	h := newFakeHost(t)
	box := shape.NewBox(100, 100, 100, 50)
	h.repo.InsertShapes(h.diagram, box)
	tl := NewSelectionTool()
	tl.EnterDisplay(h)

	press(t, tl, PointerDown, 120, 110, 0)
	press(t, tl, PointerMove, 160, 160, 0)
	handled, err := tl.ProcessKeyEvent(KeyEvent{Key: KeyEscape})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.False(t, press(t, tl, PointerUp, 160, 160, 0))
	assert.Equal(t, geometry.R(100, 100, 100, 50), box.Rect)
	assert.False(t, h.hist.CanUndo())

	handled, _ = tl.ProcessKeyEvent(KeyEvent{Key: KeyEscape})
	assert.False(t, handled, "nothing to cancel")
}

func TestSelectionTool_RubberBand(t *testing.T) {
	h := newFakeHost(t)
	a := shape.NewBox(100, 100, 100, 50)
	b := shape.NewBox(300, 100, 50, 50)
	h.repo.InsertShapes(h.diagram, a, b)
	tl := NewSelectionTool()
	tl.EnterDisplay(h)

	drag(t, tl, geometry.Pt(250, 200), geometry.Pt(50, 50))
	assert.Equal(t, []shape.Shape{a}, h.sel.Shapes(selection.Insertion))
	assert.Positive(t, h.repaints)
}

func TestSelectionTool_ResizeByGrip(t *testing.T) {
	h := newFakeHost(t)
	box := shape.NewBox(100, 100, 100, 50)
	h.repo.InsertShapes(h.diagram, box)
	require.NoError(t, h.sel.Select(box, false))
	tl := NewSelectionTool()
	tl.EnterDisplay(h)

	drag(t, tl, geometry.Pt(201, 151), geometry.Pt(221, 171))
	assert.Equal(t, geometry.R(100, 100, 120, 70), box.Rect)
	assert.Equal(t, "Resize Box", h.hist.UndoDescription())
}

func TestSelectionTool_Rotate(t *testing.T) {
	h := newFakeHost(t)
	box := shape.NewBox(100, 100, 100, 50)
	h.repo.InsertShapes(h.diagram, box)
	require.NoError(t, h.sel.Select(box, false))
	tl := NewSelectionTool()
	tl.EnterDisplay(h)

	press(t, tl, PointerDown, 150, 125, 0)
	press(t, tl, PointerMove, 180, 125, 0)
	press(t, tl, PointerMove, 150, 155, 0)

	rec := &recorder{}
	require.NoError(t, tl.Draw(rec))
	assert.Equal(t, []string{"fillpath", "strokepath", "text 90.0°"}, rec.ops)

	press(t, tl, PointerUp, 150, 155, 0)
	assert.Equal(t, geometry.R(125, 75, 50, 100), box.Rect)
	assert.Equal(t, 900, box.Angle())
}

func TestSelectionTool_DoubleClickEditsCaption(t *testing.T) {
	h := newFakeHost(t)
	box := shape.NewBox(100, 100, 100, 50)
	h.repo.InsertShapes(h.diagram, box)
	tl := NewSelectionTool()
	tl.EnterDisplay(h)

	assert.True(t, press(t, tl, DoubleClick, 150, 125, 0))
	assert.Equal(t, shape.Shape(box), h.edited)
	assert.False(t, press(t, tl, DoubleClick, 600, 600, 0))
}

func TestSelectionTool_DrawRubberBand(t *testing.T) {
	h := newFakeHost(t)
	tl := NewSelectionTool()
	tl.EnterDisplay(h)

	press(t, tl, PointerDown, 10, 10, 0)
	press(t, tl, PointerMove, 40, 30, 0)
	rec := &recorder{}
	require.NoError(t, tl.Draw(rec))
	assert.Equal(t, []string{"fillrect", "strokerect"}, rec.ops)
	assert.Equal(t, geometry.Rect2D{X: 10, Y: 10, Width: 30, Height: 20}, rec.rects[0])

	tl.LeaveDisplay(h)
	rec = &recorder{}
	require.NoError(t, tl.Draw(rec))
	assert.Empty(t, rec.ops)
}

// recorder is a Surface that logs the calls it receives.
type recorder struct {
	ops   []string
	rects []geometry.Rect2D
}

func (r *recorder) Size() (int, int)                 { return 100, 100 }
func (r *recorder) SetTransform(transform.Transform) {}
func (r *recorder) ResetTransform()                  {}
func (r *recorder) SetClip(geometry.Rect)            {}
func (r *recorder) ResetClip()                       {}
func (r *recorder) InvalidateStyles()                {}
func (r *recorder) Clear(color.NRGBA)                {}

func (r *recorder) FillRect(rect geometry.Rect2D, _ surface.Style) {
	r.ops = append(r.ops, "fillrect")
	r.rects = append(r.rects, rect)
}

func (r *recorder) StrokeRect(rect geometry.Rect2D, _ surface.Style) {
	r.ops = append(r.ops, "strokerect")
	r.rects = append(r.rects, rect)
}

func (r *recorder) DrawLine(_, _, _, _ float64, _ surface.Style) { r.ops = append(r.ops, "line") }
func (r *recorder) FillPath(surface.Path, surface.Style)         { r.ops = append(r.ops, "fillpath") }
func (r *recorder) StrokePath(surface.Path, surface.Style)       { r.ops = append(r.ops, "strokepath") }

func (r *recorder) DrawText(text string, _ geometry.Rect2D, _ surface.Style) {
	r.ops = append(r.ops, "text "+text)
}
