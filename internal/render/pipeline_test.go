package render

import (
	"errors"
	"image/color"
	"testing"

	"diagram-display/internal/grip"
	"diagram-display/internal/selection"
	"diagram-display/internal/shape"
	"diagram-display/internal/surface"
	"diagram-display/internal/tool"
	"diagram-display/internal/transform"
	"diagram-display/internal/viewport"
	"diagram-display/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is an 800x600 Surface that logs the calls it receives.
type recorder struct {
	ops     []string
	cleared color.NRGBA
}

func (r *recorder) log(op string) { r.ops = append(r.ops, op) }

func (r *recorder) Size() (int, int)                          { return 800, 600 }
func (r *recorder) SetTransform(transform.Transform)          { r.log("transform") }
func (r *recorder) ResetTransform()                           { r.log("reset") }
func (r *recorder) SetClip(geometry.Rect)                     { r.log("clip") }
func (r *recorder) ResetClip()                                { r.log("resetclip") }
func (r *recorder) InvalidateStyles()                         { r.log("invalidate") }
func (r *recorder) FillRect(geometry.Rect2D, surface.Style)   { r.log("fillrect") }
func (r *recorder) StrokeRect(geometry.Rect2D, surface.Style) { r.log("strokerect") }
func (r *recorder) FillPath(surface.Path, surface.Style)      { r.log("fillpath") }
func (r *recorder) StrokePath(surface.Path, surface.Style)    { r.log("strokepath") }

func (r *recorder) DrawLine(_, _, _, _ float64, _ surface.Style)    { r.log("line") }
func (r *recorder) DrawText(string, geometry.Rect2D, surface.Style) { r.log("text") }

func (r *recorder) Clear(c color.NRGBA) {
	r.cleared = c
	r.log("clear")
}

func (r *recorder) count(op string) int {
	n := 0
	for _, o := range r.ops {
		if o == op {
			n++
		}
	}
	return n
}

type fixture struct {
	p       *Pipeline
	diagram *shape.Diagram
	sel     *selection.Model
	tool    tool.Tool
	cancels int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{diagram: shape.NewDiagram("test", 1000, 800)}
	vp := viewport.New(viewport.Config{
		Content: func() (geometry.Rect, bool) {
			if f.diagram == nil {
				return geometry.Rect{}, false
			}
			return f.diagram.ContentBounds(), true
		},
		Margin: viewport.DefaultMargin,
	})
	f.sel = selection.New(nil)
	f.sel.SetDiagram(f.diagram)
	g, err := grip.New(4, grip.Square, grip.Circle)
	require.NoError(t, err)
	f.p = New(Config{
		Diagram: func() *shape.Diagram {
			if f.diagram == nil {
				return nil
			}
			return f.diagram
		},
		Viewport:   vp,
		Selection:  f.sel,
		Grips:      g,
		Tool:       func() tool.Tool { return f.tool },
		CancelTool: func() { f.cancels++ },
	})
	th := DefaultTheme()
	th.GridSize = 100
	f.p.SetTheme(th)
	return f
}

func TestPipeline_NoDiagram(t *testing.T) {
	f := newFixture(t)
	f.diagram = nil
	rec := &recorder{}

	stats := f.p.RenderFrame(rec, geometry.Rect{})
	assert.Equal(t, FrameStats{}, stats)
	assert.Equal(t, []string{"invalidate", "reset", "resetclip", "clear"}, rec.ops)
	assert.Equal(t, f.p.Theme().EmptyBackground, rec.cleared)
}

func TestPipeline_FrameOrder(t *testing.T) {
	f := newFixture(t)
	box := shape.NewBox(100, 100, 50, 50)
	f.diagram.Add(box)
	require.NoError(t, f.sel.Select(box, false))
	rec := &recorder{}

	stats := f.p.RenderFrame(rec, geometry.Rect{})
	assert.Equal(t, 1, stats.Shapes)
	assert.Equal(t, 1, stats.Outlines)
	assert.Equal(t, 14, stats.GridLines)
	assert.Equal(t, 17, stats.Grips, "8 resize, 1 rotate, 8 connect")
	assert.False(t, stats.ToolCancelled)

	want := []string{"invalidate", "reset", "resetclip", "clear", "clip", "transform", "fillrect"}
	require.Greater(t, len(rec.ops), len(want)+14)
	assert.Equal(t, want, rec.ops[:len(want)])
	for _, op := range rec.ops[len(want) : len(want)+14] {
		assert.Equal(t, "line", op)
	}
	rest := rec.ops[len(want)+14:]
	// border, box fill and stroke, selection outline, then control space
	assert.Equal(t, []string{"strokerect", "fillrect", "strokerect", "strokerect", "reset"}, rest[:5])
	assert.Equal(t, f.p.Theme().ControlBackground, rec.cleared)
}

func TestPipeline_HiddenLayer(t *testing.T) {
	f := newFixture(t)
	_, err := f.diagram.Layers().Add("notes")
	require.NoError(t, err)
	ids := f.diagram.Layers().IDsOf("notes")

	box := shape.NewBox(100, 100, 50, 50)
	box.SetLayers(ids)
	f.diagram.Add(box)
	f.diagram.Add(shape.NewBox(300, 100, 50, 50))

	assert.Equal(t, 2, f.p.RenderFrame(&recorder{}, geometry.Rect{}).Shapes)
	f.diagram.Layers().SetHidden(ids, true)
	assert.Equal(t, 1, f.p.RenderFrame(&recorder{}, geometry.Rect{}).Shapes)
}

func TestPipeline_ClipSkipsShapes(t *testing.T) {
	f := newFixture(t)
	f.diagram.Add(shape.NewBox(100, 100, 50, 50))
	f.diagram.Add(shape.NewBox(600, 400, 50, 50))

	// control (0,0)-(300,300) is diagram (-40,-40)-(260,260)
	stats := f.p.RenderFrame(&recorder{}, geometry.R(0, 0, 300, 300))
	assert.Equal(t, 1, stats.Shapes)
}

func TestPipeline_MultiSelectionRotateGripsOnly(t *testing.T) {
	f := newFixture(t)
	a := shape.NewBox(100, 100, 50, 50)
	b := shape.NewBox(300, 100, 50, 50)
	f.diagram.Add(a)
	f.diagram.Add(b)
	require.NoError(t, f.sel.SelectMany([]shape.Shape{a, b}, false))

	rec := &recorder{}
	stats := f.p.RenderFrame(rec, geometry.Rect{})
	assert.Equal(t, 2, stats.Grips)
	assert.Equal(t, 2, stats.Outlines)
	assert.Zero(t, rec.count("fillpath"), "rotate grips are open outlines")
}

func TestPipeline_DrilledChildOutlinesParents(t *testing.T) {
	f := newFixture(t)
	a := shape.NewBox(100, 100, 50, 50)
	inner := shape.NewGroup(a, shape.NewBox(200, 100, 50, 50))
	outer := shape.NewGroup(inner, shape.NewBox(400, 100, 50, 50))
	f.diagram.Add(outer)

	require.NoError(t, f.sel.Select(a, false))
	require.NoError(t, f.sel.Select(a, false))
	require.NoError(t, f.sel.Select(a, false))
	require.Equal(t, shape.Shape(a), f.sel.Single())

	stats := f.p.RenderFrame(&recorder{}, geometry.Rect{})
	assert.Equal(t, 3, stats.Outlines, "the child plus both containers")
}

type brokenTool struct {
	tool.SelectionTool
	err   error
	panic bool
}

func (b *brokenTool) Draw(surface.Surface) error {
	if b.panic {
		panic("draw")
	}
	return b.err
}

func TestPipeline_ToolDrawFailureCancelsTool(t *testing.T) {
	f := newFixture(t)
	f.tool = &brokenTool{err: errors.New("bad preview")}

	stats := f.p.RenderFrame(&recorder{}, geometry.Rect{})
	assert.True(t, stats.ToolCancelled)
	assert.Equal(t, 1, f.cancels)

	f.tool = &brokenTool{panic: true}
	rec := &recorder{}
	assert.NotPanics(t, func() { stats = f.p.RenderFrame(rec, geometry.Rect{}) })
	assert.True(t, stats.ToolCancelled)
	assert.Equal(t, 2, f.cancels)
	assert.Equal(t, "resetclip", rec.ops[len(rec.ops)-1], "the frame completes")
}

func TestPipeline_ThemeChangeInvalidatesStyles(t *testing.T) {
	f := newFixture(t)
	rec := &recorder{}
	f.p.RenderFrame(rec, geometry.Rect{})
	f.p.RenderFrame(rec, geometry.Rect{})
	assert.Equal(t, 1, rec.count("invalidate"))

	th := f.p.Theme()
	th.SelectionColor = color.NRGBA{R: 1, A: 255}
	f.p.SetTheme(th)
	f.p.RenderFrame(rec, geometry.Rect{})
	assert.Equal(t, 2, rec.count("invalidate"))
}

func TestAlignUp(t *testing.T) {
	assert.Equal(t, 0, alignUp(0, 20))
	assert.Equal(t, 20, alignUp(1, 20))
	assert.Equal(t, -20, alignUp(-39, 20))
	assert.Equal(t, -20, alignUp(-20, 20))
}
