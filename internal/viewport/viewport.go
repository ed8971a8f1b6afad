// Package viewport owns zoom, scroll position and the diagram offset of a
// display, and derives the coordinate transform from them.
package viewport

import (
	"fmt"
	"math"

	"diagram-display/internal/errs"
	"diagram-display/internal/logging"
	"diagram-display/internal/transform"
	"diagram-display/pkg/geometry"
)

const (
	minZoomPercent = 10
	maxZoomPercent = 1000

	// DefaultZoomStep is the factor applied by ZoomIn and divided out by ZoomOut.
	DefaultZoomStep = 1.25

	// DefaultMargin is the space kept around the diagram content.
	DefaultMargin = 40
	// DefaultScrollBarSize is the thickness of the scroll bar regions.
	DefaultScrollBarSize = 16
)

// ScrollRange is the scroll-bar equivalent state of one axis, in diagram units.
// The scroll value stays within [Min, Max-LargeChange].
type ScrollRange struct {
	Min, Max    int
	LargeChange int
	SmallChange int
	Value       int
	Active      bool
}

// Limit returns the largest valid scroll value.
func (r ScrollRange) Limit() int {
	return max(r.Min, r.Max-r.LargeChange)
}

func (r ScrollRange) clamp(v int) int {
	if !r.Active {
		return r.Min
	}
	return min(max(v, r.Min), r.Limit())
}

// Invalidator receives repaint requests.
type Invalidator interface {
	MarkBoundsDirty()
	InvalidateAll()
}

// Config holds the collaborators and settings of a Controller. Content
// reports the diagram-space area to show and false when no diagram is loaded.
type Config struct {
	Content            func() (geometry.Rect, bool)
	Invalidator        Invalidator
	CloseCaptionEditor func()

	Margin           int
	ScrollBarSize    int
	AutoScrollMargin int
	SmallChange      int
	ZoomStep         float64
}

// Controller is the viewport of one display.
type Controller struct {
	cfg Config

	zoomPercent int
	zoom        float64

	drawW, drawH     int
	offsetX, offsetY int
	h, v             ScrollRange

	onZoom []func(percent int)
}

// New returns a controller at 100% zoom with an empty draw area.
func New(cfg Config) *Controller {
	if cfg.Margin < 0 {
		cfg.Margin = 0
	}
	if cfg.ScrollBarSize <= 0 {
		cfg.ScrollBarSize = DefaultScrollBarSize
	}
	if cfg.AutoScrollMargin <= 0 {
		cfg.AutoScrollMargin = cfg.ScrollBarSize
	}
	if cfg.SmallChange <= 0 {
		cfg.SmallChange = 10
	}
	if cfg.ZoomStep <= 1 {
		cfg.ZoomStep = DefaultZoomStep
	}
	return &Controller{cfg: cfg, zoomPercent: 100, zoom: 1}
}

// OnZoomChange registers a callback for zoom changes.
func (c *Controller) OnZoomChange(callback func(percent int)) {
	c.onZoom = append(c.onZoom, callback)
}

// Transform returns the current diagram-to-control mapping.
func (c *Controller) Transform() transform.Transform {
	return transform.Transform{
		OffsetX: c.offsetX,
		OffsetY: c.offsetY,
		ScrollX: c.h.Value,
		ScrollY: c.v.Value,
		Zoom:    c.zoom,
	}
}

// ZoomPercent returns the zoom level in percent.
func (c *Controller) ZoomPercent() int { return c.zoomPercent }

// ZoomFactor returns the zoom level as a scale factor.
func (c *Controller) ZoomFactor() float64 { return c.zoom }

// Scroll returns the scroll position in diagram units.
func (c *Controller) Scroll() geometry.Point { return geometry.Pt(c.h.Value, c.v.Value) }

// DiagramOffset returns the control-space offset of the diagram origin.
func (c *Controller) DiagramOffset() geometry.Point { return geometry.Pt(c.offsetX, c.offsetY) }

// HScroll returns the horizontal scroll range.
func (c *Controller) HScroll() ScrollRange { return c.h }

// VScroll returns the vertical scroll range.
func (c *Controller) VScroll() ScrollRange { return c.v }

// DrawBounds returns the control-space draw area.
func (c *Controller) DrawBounds() geometry.Rect { return geometry.R(0, 0, c.drawW, c.drawH) }

// InsetDrawBounds is the draw area minus the margin on every side.
func (c *Controller) InsetDrawBounds() geometry.Rect {
	m := c.cfg.Margin
	return geometry.R(m, m, max(0, c.drawW-2*m), max(0, c.drawH-2*m))
}

// SetDrawBounds resizes the draw area.
func (c *Controller) SetDrawBounds(width, height int) {
	if width == c.drawW && height == c.drawH {
		return
	}
	c.drawW, c.drawH = max(0, width), max(0, height)
	c.Recompute()
	c.markBoundsDirty()
}

// Recompute derives offsets and scroll ranges from the content, the draw
// area and the zoom, and clamps the scroll position.
func (c *Controller) Recompute() {
	content, ok := c.content()
	if !ok {
		c.h, c.v = ScrollRange{}, ScrollRange{}
		c.offsetX, c.offsetY = 0, 0
		return
	}
	c.h, c.offsetX = c.axis(content.X, content.Width, c.drawW, c.h.Value)
	c.v, c.offsetY = c.axis(content.Y, content.Height, c.drawH, c.v.Value)
}

func (c *Controller) content() (geometry.Rect, bool) {
	if c.cfg.Content == nil {
		return geometry.Rect{}, false
	}
	return c.cfg.Content()
}

// axis computes one scroll range. Content that fits is centred; otherwise the
// content edge sits one margin inside the draw area at either scroll limit.
func (c *Controller) axis(start, extent, draw, value int) (ScrollRange, int) {
	m := c.cfg.Margin
	zoomed := int(math.Round(float64(extent) * c.zoom))
	if zoomed+2*m <= draw {
		return ScrollRange{Min: start, Max: start, Value: start, SmallChange: c.cfg.SmallChange}, (draw - zoomed) / 2
	}
	visible := max(0, int(math.Round(float64(draw-2*m)/c.zoom)))
	r := ScrollRange{
		Min:         start,
		Max:         start + extent,
		LargeChange: visible,
		SmallChange: c.cfg.SmallChange,
		Active:      true,
	}
	r.Value = r.clamp(value)
	return r, m
}

// SetZoom changes the zoom level. A non-positive percent is rejected with an
// error matching both errs.ErrInvalidConfiguration and errs.ErrInvalidParameter.
func (c *Controller) SetZoom(percent int) error {
	if percent <= 0 {
		return fmt.Errorf("zoom %d%%: %w (%w)", percent, errs.ErrInvalidConfiguration, errs.ErrInvalidParameter)
	}
	if percent == c.zoomPercent {
		return nil
	}
	c.zoomPercent = percent
	c.zoom = float64(percent) / 100
	c.Recompute()
	c.markBoundsDirty()
	logging.Logger().Info("zoom changed", "percent", percent)
	for _, cb := range c.onZoom {
		cb(percent)
	}
	return nil
}

// ZoomAt changes the zoom and scrolls so the diagram point under the
// control-space position p stays under it where the axes allow.
func (c *Controller) ZoomAt(percent int, p geometry.Point) error {
	anchor := c.Transform().ToDiagram(p)
	if err := c.SetZoom(percent); err != nil {
		return err
	}
	t := c.Transform()
	x := anchor.X - t.DistanceToDiagram(p.X-c.offsetX)
	y := anchor.Y - t.DistanceToDiagram(p.Y-c.offsetY)
	c.ScrollTo(x, y)
	return nil
}

// ZoomIn increases the zoom level by one step.
func (c *Controller) ZoomIn() error {
	return c.SetZoom(c.nextZoom(true))
}

// ZoomOut decreases the zoom level by one step.
func (c *Controller) ZoomOut() error {
	return c.SetZoom(c.nextZoom(false))
}

// ZoomStepAt zooms one step in or out around the control-space position p,
// as a mouse wheel does.
func (c *Controller) ZoomStepAt(in bool, p geometry.Point) error {
	return c.ZoomAt(c.nextZoom(in), p)
}

func (c *Controller) nextZoom(in bool) int {
	if in {
		return min(maxZoomPercent, max(c.zoomPercent+1, int(math.Round(float64(c.zoomPercent)*c.cfg.ZoomStep))))
	}
	return max(minZoomPercent, min(c.zoomPercent-1, int(math.Round(float64(c.zoomPercent)/c.cfg.ZoomStep))))
}

// ZoomToFit picks the largest zoom that shows the whole content inside the
// inset draw area.
func (c *Controller) ZoomToFit() error {
	content, ok := c.content()
	inset := c.InsetDrawBounds()
	if !ok || content.IsEmpty() || inset.IsEmpty() {
		return nil
	}
	zx := float64(inset.Width) / float64(content.Width)
	zy := float64(inset.Height) / float64(content.Height)
	percent := int(math.Floor(math.Min(zx, zy) * 100))
	return c.SetZoom(min(maxZoomPercent, max(1, percent)))
}

// ScrollTo moves the scroll position, clamped to the scroll ranges. When the
// position changes the caption editor is closed first.
func (c *Controller) ScrollTo(x, y int) {
	x, y = c.h.clamp(x), c.v.clamp(y)
	if x == c.h.Value && y == c.v.Value {
		return
	}
	if c.cfg.CloseCaptionEditor != nil {
		c.cfg.CloseCaptionEditor()
	}
	c.h.Value, c.v.Value = x, y
	if c.cfg.Invalidator != nil {
		c.cfg.Invalidator.InvalidateAll()
	}
}

// ScrollBy moves the scroll position by a diagram-space delta.
func (c *Controller) ScrollBy(dx, dy int) {
	c.ScrollTo(c.h.Value+dx, c.v.Value+dy)
}

// EnsureVisible brings a diagram-space rectangle into the inset draw area.
// If it cannot fit, the zoom drops to the largest multiple of ten that fits;
// then each active axis scrolls by the smallest amount that shows it.
func (c *Controller) EnsureVisible(r geometry.Rect) {
	r = r.Normalize()
	inset := c.InsetDrawBounds()
	if inset.IsEmpty() {
		return
	}
	cr := c.Transform().RectToControl(r)
	if cr.Width > inset.Width || cr.Height > inset.Height {
		z := math.Inf(1)
		if r.Width > 0 {
			z = float64(inset.Width) / float64(r.Width)
		}
		if r.Height > 0 {
			z = math.Min(z, float64(inset.Height)/float64(r.Height))
		}
		percent := int(z*100) / 10 * 10
		if percent < 10 {
			percent = max(1, int(z*100))
		}
		if percent < c.zoomPercent {
			if err := c.SetZoom(percent); err != nil {
				logging.Logger().Warn("ensure visible", "err", err)
			}
		}
	}

	t := c.Transform()
	cr = t.RectToControl(r)
	x, y := c.h.Value, c.v.Value
	if c.h.Active {
		x += t.DistanceToDiagram(delta(cr.X, cr.Right(), inset.X, inset.Right()))
	}
	if c.v.Active {
		y += t.DistanceToDiagram(delta(cr.Y, cr.Bottom(), inset.Y, inset.Bottom()))
	}
	if x != c.h.Value || y != c.v.Value {
		c.ScrollTo(x, y)
	}
}

// EnsureVisiblePoint brings a diagram-space point into view.
func (c *Controller) EnsureVisiblePoint(p geometry.Point) {
	c.EnsureVisible(geometry.R(p.X, p.Y, 1, 1))
}

// delta is the control-space shift needed to bring [lo, hi) into [ilo, ihi).
func delta(lo, hi, ilo, ihi int) int {
	switch {
	case lo < ilo:
		return lo - ilo
	case hi > ihi:
		return min(hi-ihi, lo-ilo)
	default:
		return 0
	}
}

// AutoScroll scrolls one small step towards the edge the control-space point
// p is near. It reports whether the view moved.
func (c *Controller) AutoScroll(p geometry.Point) bool {
	m := c.cfg.AutoScrollMargin
	step := c.cfg.SmallChange
	dx, dy := 0, 0
	switch {
	case p.X < m:
		dx = -step
	case p.X > c.drawW-m:
		dx = step
	}
	switch {
	case p.Y < m:
		dy = -step
	case p.Y > c.drawH-m:
		dy = step
	}
	if dx == 0 && dy == 0 {
		return false
	}
	before := c.Scroll()
	c.ScrollBy(dx, dy)
	return c.Scroll() != before
}

// HitsScrollBar reports whether a control-space point is on a visible scroll bar.
func (c *Controller) HitsScrollBar(p geometry.Point) bool {
	size := c.cfg.ScrollBarSize
	if c.v.Active && p.X >= c.drawW-size && p.X < c.drawW {
		return true
	}
	if c.h.Active && p.Y >= c.drawH-size && p.Y < c.drawH {
		return true
	}
	return false
}

// ScrollBarRects returns the control-space scroll bar regions and the thumbs
// inside them. Inactive axes return empty rectangles.
func (c *Controller) ScrollBarRects() (hBar, hThumb, vBar, vThumb geometry.Rect) {
	size := c.cfg.ScrollBarSize
	if c.h.Active {
		hBar = geometry.R(0, c.drawH-size, c.drawW, size)
		hThumb = thumb(c.h, hBar.Width)
		hThumb.Y, hThumb.Height = hBar.Y, size
	}
	if c.v.Active {
		vBar = geometry.R(c.drawW-size, 0, size, c.drawH)
		t := thumb(c.v, vBar.Height)
		vThumb = geometry.R(vBar.X, t.X, size, t.Width)
	}
	return
}

// thumb returns the thumb span along a bar of the given length as X and Width.
func thumb(r ScrollRange, length int) geometry.Rect {
	span := r.Max - r.Min
	if span <= 0 {
		return geometry.R(0, 0, length, 0)
	}
	w := max(8, length*r.LargeChange/span)
	pos := (length - w) * (r.Value - r.Min) / max(1, r.Limit()-r.Min)
	return geometry.R(pos, 0, w, 0)
}

func (c *Controller) markBoundsDirty() {
	if c.cfg.Invalidator != nil {
		c.cfg.Invalidator.MarkBoundsDirty()
	}
}
