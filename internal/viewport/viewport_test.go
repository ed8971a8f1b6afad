package viewport

import (
	"testing"

	"diagram-display/internal/errs"
	"diagram-display/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type invalidations struct {
	bounds, all int
}

func (i *invalidations) MarkBoundsDirty() { i.bounds++ }
func (i *invalidations) InvalidateAll()   { i.all++ }

func newController(content geometry.Rect, drawW, drawH int) (*Controller, *invalidations, *int) {
	inv := &invalidations{}
	closed := 0
	c := New(Config{
		Content:            func() (geometry.Rect, bool) { return content, true },
		Invalidator:        inv,
		CloseCaptionEditor: func() { closed++ },
		Margin:             DefaultMargin,
	})
	c.SetDrawBounds(drawW, drawH)
	return c, inv, &closed
}

func TestController_ScrollRoundTrip(t *testing.T) {
	c, _, closed := newController(geometry.R(0, 0, 1000, 800), 800, 600)

	assert.Equal(t, geometry.Pt(40, 40), c.DiagramOffset())
	before := c.Transform().ToControl(geometry.Pt(500, 400))
	assert.Equal(t, geometry.Pt(540, 440), before)

	c.ScrollTo(50, 50)
	assert.Equal(t, geometry.Pt(490, 390), c.Transform().ToControl(geometry.Pt(500, 400)))
	c.ScrollTo(0, 0)
	assert.Equal(t, before, c.Transform().ToControl(geometry.Pt(500, 400)))
	assert.Equal(t, 2, *closed, "scrolling closes the caption editor")
}

func TestController_Centres(t *testing.T) {
	c, _, _ := newController(geometry.R(0, 0, 400, 200), 800, 600)
	assert.Equal(t, geometry.Pt(200, 200), c.DiagramOffset())
	assert.False(t, c.HScroll().Active)
	assert.False(t, c.VScroll().Active)

	c.ScrollTo(100, 100)
	assert.Equal(t, geometry.Pt(0, 0), c.Scroll(), "inactive axes do not scroll")
}

func TestController_ScrollClamp(t *testing.T) {
	c, inv, _ := newController(geometry.R(0, 0, 1000, 800), 800, 600)
	inv.all = 0

	c.ScrollTo(-500, 5000)
	h, v := c.HScroll(), c.VScroll()
	assert.Equal(t, 720, h.LargeChange)
	assert.Equal(t, geometry.Pt(0, 800-520), c.Scroll())
	assert.Equal(t, 280, v.Limit())
	assert.Equal(t, 1, inv.all)

	c.ScrollBy(0, 10)
	assert.Equal(t, 1, inv.all, "clamped to the same position, nothing to repaint")
}

func TestController_UnchangedScrollKeepsCaptionEditor(t *testing.T) {
	c, inv, closed := newController(geometry.R(0, 0, 1000, 800), 800, 600)
	inv.all = 0

	c.ScrollTo(0, 0)
	c.ScrollBy(-50, -50)
	assert.Equal(t, geometry.Pt(0, 0), c.Scroll())
	assert.Equal(t, 0, *closed)
	assert.Equal(t, 0, inv.all)

	c.ScrollBy(10, 0)
	assert.Equal(t, 1, *closed)
}

func TestController_SetZoom(t *testing.T) {
	c, inv, _ := newController(geometry.R(0, 0, 1000, 800), 800, 600)
	var zooms []int
	c.OnZoomChange(func(p int) { zooms = append(zooms, p) })
	original := c.Transform()

	err := c.SetZoom(0)
	assert.ErrorIs(t, err, errs.ErrInvalidConfiguration)
	assert.ErrorIs(t, err, errs.ErrInvalidParameter)
	assert.Equal(t, 100, c.ZoomPercent())

	bounds := inv.bounds
	require.NoError(t, c.SetZoom(50))
	assert.Equal(t, 0.5, c.ZoomFactor())
	assert.Equal(t, bounds+1, inv.bounds)
	require.NoError(t, c.SetZoom(100))
	assert.Equal(t, original.Zoom, c.Transform().Zoom)
	assert.Equal(t, []int{50, 100}, zooms)

	require.NoError(t, c.SetZoom(100))
	assert.Len(t, zooms, 2, "unchanged zoom is not announced")
}

func TestController_EnsureVisibleReducesZoom(t *testing.T) {
	c, _, _ := newController(geometry.R(0, 0, 4000, 3000), 800, 600)
	target := geometry.R(2000, 1500, 1000, 600)

	c.EnsureVisible(target)
	assert.Equal(t, 70, c.ZoomPercent())
	assert.Equal(t, geometry.Pt(1971, 1357), c.Scroll())

	cr := c.Transform().RectToControl(target)
	inset := c.InsetDrawBounds()
	assert.True(t, inset.Contains(cr.Center()))
	assert.True(t, inset.ContainsRect(cr))
}

func TestController_EnsureVisibleMinimalScroll(t *testing.T) {
	c, _, _ := newController(geometry.R(0, 0, 4000, 3000), 800, 600)

	c.EnsureVisible(geometry.R(100, 100, 50, 50))
	assert.Equal(t, geometry.Pt(0, 0), c.Scroll(), "already visible")

	c.EnsureVisible(geometry.R(1000, 100, 50, 50))
	assert.Equal(t, 100, c.ZoomPercent())
	// right edge 1050 lands on the inset's right edge at 760
	assert.Equal(t, geometry.Pt(330, 0), c.Scroll())

	c.EnsureVisiblePoint(geometry.Pt(10, 10))
	assert.Equal(t, geometry.Pt(10, 0), c.Scroll())
}

func TestController_ZoomAt(t *testing.T) {
	c, _, _ := newController(geometry.R(0, 0, 4000, 3000), 800, 600)
	c.ScrollTo(1000, 1000)
	p := geometry.Pt(400, 300)
	anchor := c.Transform().ToDiagram(p)

	require.NoError(t, c.ZoomAt(200, p))
	assert.Equal(t, p, c.Transform().ToControl(anchor))
}

func TestController_ZoomSteps(t *testing.T) {
	c, _, _ := newController(geometry.R(0, 0, 1000, 800), 800, 600)
	require.NoError(t, c.ZoomIn())
	assert.Equal(t, 125, c.ZoomPercent())
	require.NoError(t, c.ZoomOut())
	assert.Equal(t, 100, c.ZoomPercent())

	require.NoError(t, c.SetZoom(11))
	require.NoError(t, c.ZoomOut())
	assert.Equal(t, 10, c.ZoomPercent())
	require.NoError(t, c.ZoomOut())
	assert.Equal(t, 10, c.ZoomPercent())
}

func TestController_ZoomStepAt(t *testing.T) {
	c, _, _ := newController(geometry.R(0, 0, 4000, 3000), 800, 600)
	c.ScrollTo(1000, 1000)
	p := geometry.Pt(400, 300)
	anchor := c.Transform().ToDiagram(p)

	require.NoError(t, c.ZoomStepAt(true, p))
	assert.Equal(t, 125, c.ZoomPercent())
	assert.Equal(t, p, c.Transform().ToControl(anchor))
	assert.Equal(t, geometry.Pt(1072, 1052), c.Scroll())
}

func TestController_CustomZoomStep(t *testing.T) {
	c := New(Config{
		Content:  func() (geometry.Rect, bool) { return geometry.R(0, 0, 100, 100), true },
		ZoomStep: 2,
	})
	require.NoError(t, c.ZoomIn())
	assert.Equal(t, 200, c.ZoomPercent())
	require.NoError(t, c.ZoomOut())
	require.NoError(t, c.ZoomOut())
	assert.Equal(t, 50, c.ZoomPercent())
}

func TestController_ZoomToFit(t *testing.T) {
	c, _, _ := newController(geometry.R(0, 0, 1440, 520), 800, 600)
	require.NoError(t, c.ZoomToFit())
	assert.Equal(t, 50, c.ZoomPercent())
	assert.False(t, c.HScroll().Active)
}

func TestController_AutoScroll(t *testing.T) {
	c, _, _ := newController(geometry.R(0, 0, 4000, 3000), 800, 600)
	assert.False(t, c.AutoScroll(geometry.Pt(400, 300)))
	assert.True(t, c.AutoScroll(geometry.Pt(799, 300)))
	assert.Equal(t, geometry.Pt(10, 0), c.Scroll())
	assert.False(t, c.AutoScroll(geometry.Pt(400, 2)), "already at the top")
}

func TestController_ScrollBars(t *testing.T) {
	c, _, _ := newController(geometry.R(0, 0, 4000, 3000), 800, 600)
	assert.True(t, c.HitsScrollBar(geometry.Pt(790, 100)))
	assert.True(t, c.HitsScrollBar(geometry.Pt(100, 590)))
	assert.False(t, c.HitsScrollBar(geometry.Pt(100, 100)))

	hBar, hThumb, vBar, vThumb := c.ScrollBarRects()
	assert.Equal(t, geometry.R(0, 584, 800, 16), hBar)
	assert.Equal(t, 0, hThumb.X)
	assert.Equal(t, geometry.R(784, 0, 16, 600), vBar)
	assert.Equal(t, 0, vThumb.Y)

	small, _, _ := newController(geometry.R(0, 0, 100, 100), 800, 600)
	assert.False(t, small.HitsScrollBar(geometry.Pt(790, 590)))
}

func TestController_NoDiagram(t *testing.T) {
	c := New(Config{})
	c.SetDrawBounds(800, 600)
	assert.Equal(t, geometry.Pt(0, 0), c.DiagramOffset())
	c.EnsureVisible(geometry.R(0, 0, 10, 10))
	require.NoError(t, c.ZoomToFit())
	assert.Equal(t, 100, c.ZoomPercent())
}
