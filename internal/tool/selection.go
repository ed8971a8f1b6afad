package tool

import (
	"fmt"
	"math"

	"diagram-display/internal/grip"
	"diagram-display/internal/history"
	"diagram-display/internal/selection"
	"diagram-display/internal/shape"
	"diagram-display/internal/surface"
	"diagram-display/pkg/colorutil"
	"diagram-display/pkg/geometry"

	"gonum.org/v1/gonum/spatial/r2"
)

// MinDragDistance is how far, in pixels, the pointer must travel before a
// press becomes a drag.
const MinDragDistance = 3

const (
	pieRadius   = 30
	angleSnap   = 10  // one degree
	angleSnapSh = 150 // 15 degrees with Shift
)

type mode int

const (
	modeIdle mode = iota
	modePressed
	modeMoving
	modeRubberBand
	modeResizing
	modeRotating
)

// SelectionTool selects, moves, resizes and rotates shapes. Edits are
// previewed while dragging and committed as one command on release.
type SelectionTool struct {
	Pen   surface.Style
	Brush surface.Style

	host  Host
	mode  mode
	start geometry.Point
	cur   geometry.Point
	mods  Modifier

	pressed shape.Shape
	drill   bool
	target  shape.Shape
	point   shape.ControlPointID
	pivot   geometry.Point
	startV  r2.Vec
	angle   int
}

var _ Tool = (*SelectionTool)(nil)

// NewSelectionTool returns a selection tool with the default preview styles.
func NewSelectionTool() *SelectionTool {
	return &SelectionTool{
		Pen:   surface.Pen(colorutil.Blue, 1),
		Brush: surface.Style{Color: colorutil.Blue, Alpha: 48},
	}
}

func (t *SelectionTool) Name() string { return "selection" }

func (t *SelectionTool) EnterDisplay(h Host) { t.host = h }

func (t *SelectionTool) LeaveDisplay(Host) {
	t.Cancel()
	t.host = nil
}

func (t *SelectionTool) WantsAutoScroll() bool {
	switch t.mode {
	case modeMoving, modeRubberBand, modeResizing:
		return true
	}
	return false
}

// Active reports whether a drag is in progress.
func (t *SelectionTool) Active() bool { return t.mode != modeIdle }

func (t *SelectionTool) Cancel() {
	was := t.mode
	t.reset()
	if was > modePressed && t.host != nil {
		t.host.InvalidateAll()
	}
}

func (t *SelectionTool) reset() {
	t.mode = modeIdle
	t.pressed, t.target = nil, nil
	t.drill = false
	t.angle = 0
	t.startV = r2.Vec{}
}

func (t *SelectionTool) ProcessKeyEvent(e KeyEvent) (bool, error) {
	if e.Key == KeyEscape && t.mode != modeIdle {
		t.Cancel()
		return true, nil
	}
	return false, nil
}

func (t *SelectionTool) ProcessPointerEvent(e PointerEvent) (bool, error) {
	if t.host == nil || t.host.Diagram() == nil {
		return false, nil
	}
	switch e.Kind {
	case PointerDown:
		if e.Button != ButtonPrimary {
			return false, nil
		}
		return t.down(e)
	case PointerMove:
		return t.move(e)
	case PointerUp:
		if e.Button != ButtonPrimary || t.mode == modeIdle {
			return false, nil
		}
		return true, t.up(e)
	case DoubleClick:
		if e.Button != ButtonPrimary {
			return false, nil
		}
		return t.doubleClick(e), nil
	}
	return false, nil
}

func (t *SelectionTool) down(e PointerEvent) (bool, error) {
	t.reset()
	t.start, t.cur, t.mods = e.Position, e.Position, e.Modifiers
	sel := t.host.Selection()

	if s, id, kind, ok := t.gripAt(e.Position); ok {
		t.target, t.point = s, id
		if kind == grip.Rotate {
			t.mode = modeRotating
			t.pivot = t.host.Transform().ToControl(s.ControlPointPosition(id))
		} else {
			t.mode = modeResizing
		}
		return true, nil
	}

	p := t.host.Transform().ToDiagram(e.Position)
	hit := t.host.Selection().ShapeAt(p, t.host.HitTolerance())
	if hit == nil {
		if !e.Modifiers.Has(ModShift) && !e.Modifiers.Has(ModControl) {
			sel.Clear()
		}
		t.mode = modeRubberBand
		return true, nil
	}

	switch {
	case e.Modifiers.Has(ModControl):
		if owner := selectedOwner(sel, hit); owner != nil {
			return true, sel.Unselect(owner)
		}
		if err := sel.Select(hit, true); err != nil {
			return true, err
		}
	case e.Modifiers.Has(ModShift):
		if err := sel.Select(hit, true); err != nil {
			return true, err
		}
	case selectedOwner(sel, hit) != nil:
		// Keep the selection so it can be dragged; a click without a
		// drag drills into groups on release.
		t.drill = true
	default:
		if err := sel.Select(hit, false); err != nil {
			return true, err
		}
	}
	t.pressed = hit
	t.mode = modePressed
	return true, nil
}

func (t *SelectionTool) move(e PointerEvent) (bool, error) {
	if t.mode == modeIdle {
		return false, nil
	}
	t.cur, t.mods = e.Position, e.Modifiers
	switch t.mode {
	case modePressed:
		if t.cur.Distance(t.start) < MinDragDistance {
			return true, nil
		}
		if t.host.Selection().IsEmpty() {
			t.reset()
			return true, nil
		}
		t.mode = modeMoving
	case modeRotating:
		t.angle = t.rotation()
	}
	t.host.InvalidateAll()
	return true, nil
}

func (t *SelectionTool) up(e PointerEvent) error {
	t.cur, t.mods = e.Position, e.Modifiers
	mode, pressed, drill := t.mode, t.pressed, t.drill
	defer t.Cancel()

	h := t.host
	sel := h.Selection()
	d := h.Diagram()
	switch mode {
	case modePressed:
		if drill && pressed != nil {
			return sel.Select(pressed, false)
		}
	case modeRubberBand:
		tr := h.Transform()
		r := geometry.RectFromPoints(tr.ToDiagram(t.start), tr.ToDiagram(t.cur))
		if r.IsEmpty() {
			return nil
		}
		return sel.SelectByArea(r, e.Modifiers.Has(ModShift) || e.Modifiers.Has(ModControl))
	case modeMoving:
		dx, dy := t.dragDelta()
		if dx == 0 && dy == 0 {
			return nil
		}
		return h.Execute(&history.MoveShapes{Repo: h.Repository(), Diagram: d, Shapes: sel.Shapes(selection.Insertion), DX: dx, DY: dy})
	case modeResizing:
		dx, dy := t.dragDelta()
		if dx == 0 && dy == 0 {
			return nil
		}
		return h.Execute(&history.MoveControlPoint{Repo: h.Repository(), Diagram: d, Shape: t.target, Point: t.point, DX: dx, DY: dy})
	case modeRotating:
		angle := t.rotation()
		if angle == 0 {
			return nil
		}
		center := t.target.ControlPointPosition(t.point)
		return h.Execute(&history.RotateShapes{Repo: h.Repository(), Diagram: d, Shapes: sel.Shapes(selection.Insertion), Angle: angle, Center: center})
	}
	return nil
}

func (t *SelectionTool) doubleClick(e PointerEvent) bool {
	p := t.host.Transform().ToDiagram(e.Position)
	hit := t.host.Selection().ShapeAt(p, t.host.HitTolerance())
	if hit == nil {
		return false
	}
	captioned, ok := hit.(shape.Captioned)
	if !ok || !shape.Has(hit, shape.HasCaptions) {
		return false
	}
	for i := 0; i < captioned.CaptionCount(); i++ {
		if captioned.CaptionBounds(i).Inflate(t.host.HitTolerance(), t.host.HitTolerance()).Contains(p) {
			t.reset()
			t.host.EditCaption(hit, i)
			return true
		}
	}
	return false
}

// gripAt finds the grip under p (control space) for the current selection.
// A single selection offers resize and rotate grips, a multiple selection
// rotate grips only.
func (t *SelectionTool) gripAt(p geometry.Point) (shape.Shape, shape.ControlPointID, grip.Kind, bool) {
	sel := t.host.Selection()
	g := t.host.Grips()
	tr := t.host.Transform()
	kinds := []grip.Kind{grip.Rotate}
	if sel.Count() == 1 {
		kinds = []grip.Kind{grip.Resize, grip.Rotate}
	}
	for _, s := range sel.Shapes(selection.TopDown) {
		for _, kind := range kinds {
			for _, id := range s.ControlPoints(gripCapability(kind)) {
				if g.HitTest(kind, tr.ToControl(s.ControlPointPosition(id)), p) {
					return s, id, kind, true
				}
			}
		}
	}
	return nil, shape.NoControlPoint, 0, false
}

func gripCapability(k grip.Kind) shape.ControlPointCapability {
	switch k {
	case grip.Rotate:
		return shape.CapRotate
	case grip.Connect:
		return shape.CapConnect | shape.CapGlue
	default:
		return shape.CapResize
	}
}

// selectedOwner returns the selected shape that is hit or one of its
// ancestors, or nil.
func selectedOwner(sel *selection.Model, hit shape.Shape) shape.Shape {
	for s := hit; s != nil; s = s.Parent() {
		if sel.Contains(s) {
			return s
		}
	}
	return nil
}

func (t *SelectionTool) dragDelta() (int, int) {
	tr := t.host.Transform()
	d := tr.ToDiagram(t.cur).Sub(tr.ToDiagram(t.start))
	return d.X, d.Y
}

// rotation returns the angle swept around the pivot since the press, in
// tenths of a degree, snapped to whole degrees or to 15 with Shift.
func (t *SelectionTool) rotation() int {
	v := r2.Sub(vec(t.cur), vec(t.pivot))
	if r2.Norm(v) < MinDragDistance {
		return 0
	}
	if r2.Norm(t.startV) == 0 {
		t.startV = v
		return 0
	}
	a := t.startV
	rad := math.Atan2(a.X*v.Y-a.Y*v.X, r2.Dot(a, v))
	tenths := rad * 1800 / math.Pi
	snap := float64(angleSnap)
	if t.mods.Has(ModShift) {
		snap = angleSnapSh
	}
	return int(math.Round(tenths/snap) * snap)
}

func vec(p geometry.Point) r2.Vec {
	return r2.Vec{X: float64(p.X), Y: float64(p.Y)}
}

func (t *SelectionTool) Draw(s surface.Surface) error {
	if t.host == nil {
		return nil
	}
	tr := t.host.Transform()
	switch t.mode {
	case modeRubberBand:
		r := geometry.RectFromPoints(t.start, t.cur).ToFloat()
		s.FillRect(r, t.Brush)
		s.StrokeRect(r, t.Pen)
	case modeMoving:
		dx, dy := t.dragDelta()
		s.SetTransform(tr)
		for _, sh := range t.host.Selection().Shapes(selection.BottomUp) {
			c := sh.Clone()
			c.MoveBy(dx, dy)
			c.DrawOutline(s, t.Pen)
		}
		s.ResetTransform()
	case modeResizing:
		dx, dy := t.dragDelta()
		c := t.target.Clone()
		if !c.MoveControlPointBy(t.point, dx, dy) {
			return fmt.Errorf("preview control point %d of %s", t.point, t.target.TypeName())
		}
		s.SetTransform(tr)
		c.DrawOutline(s, t.Pen)
		s.ResetTransform()
	case modeRotating:
		if r2.Norm(t.startV) == 0 {
			return nil
		}
		start := math.Atan2(t.startV.Y, t.startV.X)
		sweep := float64(t.angle) * math.Pi / 1800
		cx, cy := float64(t.pivot.X), float64(t.pivot.Y)
		pie := surface.Path{}.MoveTo(cx, cy).Arc(cx, cy, pieRadius, start, sweep).Close()
		s.FillPath(pie, t.Brush)
		s.StrokePath(pie, t.Pen)
		label := geometry.Rect2D{X: cx + pieRadius, Y: cy - pieRadius, Width: 2 * pieRadius, Height: pieRadius}
		s.DrawText(fmt.Sprintf("%.1f°", float64(t.angle)/10), label, surface.Brush(t.Pen.Color))
	}
	return nil
}
