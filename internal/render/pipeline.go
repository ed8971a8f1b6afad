// Package render draws one frame of a display: background, grid, shapes,
// selection outlines, grips and tool previews.
package render

import (
	"fmt"
	"math"
	"slices"

	"diagram-display/internal/grip"
	"diagram-display/internal/logging"
	"diagram-display/internal/selection"
	"diagram-display/internal/shape"
	"diagram-display/internal/surface"
	"diagram-display/internal/tool"
	"diagram-display/internal/viewport"
	"diagram-display/pkg/geometry"
)

// Config holds the collaborators of a Pipeline. Tool, CancelTool and
// UniversalScroll may be nil.
type Config struct {
	Diagram   func() *shape.Diagram
	Viewport  *viewport.Controller
	Selection *selection.Model
	Grips     *grip.Geometry

	Tool            func() tool.Tool
	CancelTool      func()
	UniversalScroll func() (bool, geometry.Point)
	DeadZone        int
}

// FrameStats summarises what a frame drew.
type FrameStats struct {
	Shapes        int
	Outlines      int
	Grips         int
	GridLines     int
	ToolCancelled bool
}

// Pipeline renders frames onto a surface.
type Pipeline struct {
	cfg   Config
	theme Theme

	boundsDirty bool
	generation  int
	applied     int
	last        surface.Surface
}

// New returns a pipeline using the default theme.
func New(cfg Config) *Pipeline {
	return &Pipeline{cfg: cfg, theme: DefaultTheme(), boundsDirty: true}
}

// Theme returns the current theme.
func (p *Pipeline) Theme() Theme { return p.theme }

// SetTheme replaces the theme. Cached pens and brushes are dropped before
// the next frame.
func (p *Pipeline) SetTheme(t Theme) {
	p.theme = t
	p.generation++
}

// MarkBoundsDirty makes the next frame recompute the viewport first.
func (p *Pipeline) MarkBoundsDirty() { p.boundsDirty = true }

func (p *Pipeline) diagram() *shape.Diagram {
	if p.cfg.Diagram == nil {
		return nil
	}
	return p.cfg.Diagram()
}

// RenderFrame draws everything intersecting the control-space clip.
func (p *Pipeline) RenderFrame(s surface.Surface, clip geometry.Rect) FrameStats {
	var stats FrameStats
	if s != p.last || p.applied != p.generation {
		s.InvalidateStyles()
		p.last, p.applied = s, p.generation
	}

	// 1. viewport
	w, h := s.Size()
	if b := p.cfg.Viewport.DrawBounds(); b.Width != w || b.Height != h {
		p.cfg.Viewport.SetDrawBounds(w, h)
	} else if p.boundsDirty {
		p.cfg.Viewport.Recompute()
	}
	p.boundsDirty = false
	if clip.IsEmpty() {
		clip = geometry.R(0, 0, w, h)
	}

	// 2. control background
	s.ResetTransform()
	s.ResetClip()
	d := p.diagram()
	if d == nil {
		s.Clear(p.theme.EmptyBackground)
		return stats
	}
	s.Clear(p.theme.ControlBackground)
	s.SetClip(clip)

	// 3. diagram background and grid
	tr := p.cfg.Viewport.Transform()
	s.SetTransform(tr)
	page := d.Rect()
	visible := tr.RectToDiagram(clip).Inflate(1, 1)
	s.FillRect(page.ToFloat(), surface.Brush(d.Background))
	if p.theme.ShowGrid && p.theme.GridSize > 0 {
		stats.GridLines = p.drawGrid(s, page.Intersect(visible))
	}

	// 4. border
	s.StrokeRect(page.ToFloat(), surface.Pen(p.theme.BorderColor, 1))

	// 5. shapes and selection outlines
	zoom := p.cfg.Viewport.ZoomPercent()
	layers := d.Layers()
	for _, sh := range d.Shapes() {
		if !layers.ShapeVisible(sh.Layers(), zoom) || !sh.Bounds(false).Intersects(visible) {
			continue
		}
		sh.Draw(s)
		stats.Shapes++
	}
	stats.Outlines = p.drawOutlines(s, visible)

	// 6. grips in control space
	s.ResetTransform()
	stats.Grips = p.drawGrips(s)
	p.drawScrollBars(s)

	// 7. tool preview
	p.drawUniversalScroll(s)
	stats.ToolCancelled = p.drawTool(s)
	s.ResetClip()
	return stats
}

// drawGrid draws grid lines at multiples of the grid size so they stay
// put while scrolling.
func (p *Pipeline) drawGrid(s surface.Surface, area geometry.Rect) int {
	if area.IsEmpty() {
		return 0
	}
	g := p.theme.GridSize
	pen := surface.Pen(p.theme.GridColor, 1)
	n := 0
	for x := alignUp(area.X, g); x < area.Right(); x += g {
		s.DrawLine(float64(x), float64(area.Y), float64(x), float64(area.Bottom()), pen)
		n++
	}
	for y := alignUp(area.Y, g); y < area.Bottom(); y += g {
		s.DrawLine(float64(area.X), float64(y), float64(area.Right()), float64(y), pen)
		n++
	}
	return n
}

// alignUp returns the smallest multiple of g not below v.
func alignUp(v, g int) int {
	r := v % g
	switch {
	case r == 0:
		return v
	case r < 0:
		return v - r
	default:
		return v + g - r
	}
}

// drawOutlines outlines selected shapes bottom to top, then the containers
// of selected children so drilled-into groups stay visible.
func (p *Pipeline) drawOutlines(s surface.Surface, visible geometry.Rect) int {
	sel := p.cfg.Selection
	if sel == nil || sel.IsEmpty() {
		return 0
	}
	pen := surface.Pen(p.theme.SelectionColor, p.theme.SelectionWidth)
	parentPen := surface.Pen(p.theme.ParentColor, 1)
	n := 0
	var parents []shape.Shape
	for _, sh := range sel.Shapes(selection.BottomUp) {
		for a := sh.Parent(); a != nil; a = a.Parent() {
			if !slices.Contains(parents, a) {
				parents = append(parents, a)
			}
		}
		if !sh.Bounds(false).Intersects(visible) {
			continue
		}
		sh.DrawOutline(s, pen)
		n++
	}
	for _, a := range parents {
		if a.Bounds(false).Intersects(visible) {
			a.DrawOutline(s, parentPen)
			n++
		}
	}
	return n
}

// drawGrips draws every grip of a single selection, with its caption
// bounds, or only the rotate grips of a multiple selection.
func (p *Pipeline) drawGrips(s surface.Surface) int {
	sel := p.cfg.Selection
	if sel == nil || sel.IsEmpty() || p.cfg.Grips == nil {
		return 0
	}
	tr := p.cfg.Viewport.Transform()
	fill := surface.Brush(p.theme.GripFill)
	line := surface.Pen(p.theme.GripLine, 1)

	n := 0
	draw := func(sh shape.Shape, kind grip.Kind, mask shape.ControlPointCapability) {
		for _, id := range sh.ControlPoints(mask) {
			path := p.cfg.Grips.OutlineAt(kind, tr.ToControl(sh.ControlPointPosition(id)))
			if path.Closed() {
				s.FillPath(path, fill)
			}
			s.StrokePath(path, line)
			n++
		}
	}

	if single := sel.Single(); single != nil {
		draw(single, grip.Resize, shape.CapResize)
		draw(single, grip.Rotate, shape.CapRotate)
		draw(single, grip.Connect, shape.CapConnect|shape.CapGlue)
		if c, ok := single.(shape.Captioned); ok && shape.Has(single, shape.HasCaptions) {
			pen := surface.Pen(p.theme.CaptionColor, 1)
			for i := 0; i < c.CaptionCount(); i++ {
				s.StrokeRect(tr.RectToControl(c.CaptionBounds(i)).ToFloat(), pen)
			}
		}
		return n
	}
	for _, sh := range sel.Shapes(selection.BottomUp) {
		draw(sh, grip.Rotate, shape.CapRotate)
	}
	return n
}

func (p *Pipeline) drawScrollBars(s surface.Surface) {
	hBar, hThumb, vBar, vThumb := p.cfg.Viewport.ScrollBarRects()
	for _, bar := range [][2]geometry.Rect{{hBar, hThumb}, {vBar, vThumb}} {
		if bar[0].IsEmpty() {
			continue
		}
		s.FillRect(bar[0].ToFloat(), surface.Brush(p.theme.ScrollBar))
		s.FillRect(bar[1].ToFloat(), surface.Brush(p.theme.ScrollThumb))
	}
}

func (p *Pipeline) drawUniversalScroll(s surface.Surface) {
	if p.cfg.UniversalScroll == nil {
		return
	}
	on, anchor := p.cfg.UniversalScroll()
	if !on {
		return
	}
	r := float64(max(p.cfg.DeadZone, 4))
	x, y := float64(anchor.X), float64(anchor.Y)
	ring := surface.Path{}.MoveTo(x+r, y).Arc(x, y, r, 0, 2*math.Pi).Close()
	s.StrokePath(ring, surface.Pen(p.theme.GripLine, 1))
}

// drawTool lets the current tool draw its preview. A failing tool is
// cancelled and the frame completes without it.
func (p *Pipeline) drawTool(s surface.Surface) (cancelled bool) {
	if p.cfg.Tool == nil {
		return false
	}
	t := p.cfg.Tool()
	if t == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			logging.Logger().Error("tool draw panicked", "tool", t.Name(), "panic", fmt.Sprint(r))
			p.cancelTool(t)
			cancelled = true
		}
		s.ResetTransform()
	}()
	if err := t.Draw(s); err != nil {
		logging.Logger().Error("tool draw failed", "tool", t.Name(), "err", err)
		p.cancelTool(t)
		return true
	}
	return false
}

func (p *Pipeline) cancelTool(t tool.Tool) {
	if p.cfg.CancelTool != nil {
		p.cfg.CancelTool()
		return
	}
	t.Cancel()
}
