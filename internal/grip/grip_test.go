package grip

import (
	"math"
	"testing"

	"diagram-display/internal/errs"
	"diagram-display/internal/surface"
	"diagram-display/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InvalidRadius(t *testing.T) {
	_, err := New(0, Square, Circle)
	assert.ErrorIs(t, err, errs.ErrInvalidParameter)

	g, err := New(3, Square, Circle)
	require.NoError(t, err)
	assert.ErrorIs(t, g.SetRadius(-1), errs.ErrInvalidParameter)
	assert.Equal(t, 3, g.Radius())
}

func TestOutline_Cached(t *testing.T) {
	g, err := New(3, Square, Circle)
	require.NoError(t, err)

	first := g.Outline(Resize)
	g.Outline(Resize)
	g.Outline(Rotate)
	assert.Equal(t, 2, g.builds)

	// unchanged settings keep the cache
	require.NoError(t, g.SetRadius(3))
	g.SetResizeShape(Square)
	g.Outline(Resize)
	assert.Equal(t, 2, g.builds)

	require.NoError(t, g.SetRadius(5))
	second := g.Outline(Resize)
	assert.Equal(t, 3, g.builds)
	assert.NotEqual(t, first, second)
	assert.Equal(t, 5.0, second[1].X)
}

func TestOutline_Shapes(t *testing.T) {
	g, err := New(4, Diamond, Hexagon)
	require.NoError(t, err)

	d := g.Outline(Resize)
	require.Len(t, d, 5)
	assert.True(t, d.Closed())
	assert.Equal(t, surface.Segment{Kind: surface.SegmentMove, X: 0, Y: -4}, d[0])

	h := g.Outline(Connect)
	require.Len(t, h, 7)
	for _, s := range h[:6] {
		assert.InDelta(t, 4, math.Hypot(s.X, s.Y), 1e-9)
	}

	g.SetConnectShape(Circle)
	c := g.Outline(Connect)
	require.Len(t, c, 2)
	assert.Equal(t, surface.SegmentArc, c[0].Kind)
	assert.InDelta(t, 2*math.Pi, c[0].Sweep, 1e-9)
}

func TestOutline_Rotate(t *testing.T) {
	g, err := New(6, Square, Circle)
	require.NoError(t, err)

	p := g.Outline(Rotate)
	require.Len(t, p, 4)
	assert.Equal(t, surface.SegmentArc, p[0].Kind)
	assert.False(t, p.Closed(), "the arrow tip is open")

	// the tip sits on the arc's end point
	x, y := p[0].ArcEnd()
	assert.InDelta(t, x, p[2].X, 1e-9)
	assert.InDelta(t, y, p[2].Y, 1e-9)
}

func TestHitTest(t *testing.T) {
	g, err := New(4, Square, Circle)
	require.NoError(t, err)
	c := geometry.Pt(100, 100)

	assert.True(t, g.HitTest(Resize, c, geometry.Pt(104, 96)), "square corner")
	assert.False(t, g.HitTest(Resize, c, geometry.Pt(105, 100)))

	assert.True(t, g.HitTest(Connect, c, geometry.Pt(100, 104)))
	assert.False(t, g.HitTest(Connect, c, geometry.Pt(103, 103)), "outside the circle")

	g.SetResizeShape(Diamond)
	assert.False(t, g.HitTest(Resize, c, geometry.Pt(103, 103)))
	assert.True(t, g.HitTest(Resize, c, geometry.Pt(102, 102)))
}

func TestParseShape(t *testing.T) {
	s, err := ParseShape("hexagon")
	require.NoError(t, err)
	assert.Equal(t, Hexagon, s)
	_, err = ParseShape("star")
	assert.ErrorIs(t, err, errs.ErrInvalidParameter)
}

func TestMargin(t *testing.T) {
	g, err := New(3, Square, Circle)
	require.NoError(t, err)
	assert.Equal(t, 5, g.Margin())
}
