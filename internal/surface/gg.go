package surface

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"sync"

	"diagram-display/internal/transform"
	"diagram-display/pkg/geometry"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
)

// BaseFontSize is the caption font size at zoom 1.
const BaseFontSize = 12.0

var (
	fontOnce sync.Once
	monoFont *truetype.Font
	fontErr  error
)

func loadFont() (*truetype.Font, error) {
	fontOnce.Do(func() {
		monoFont, fontErr = truetype.Parse(gomono.TTF)
		if fontErr != nil {
			fontErr = fmt.Errorf("failed to parse font: %w", fontErr)
		}
	})
	return monoFont, fontErr
}

type ggPen struct {
	pattern gg.Pattern
	width   float64
}

// GGSurface draws into an RGBA image through a gg.Context.
type GGSurface struct {
	dc    *gg.Context
	font  *truetype.Font
	faces map[int]font.Face
	pens  *StyleCache[ggPen]

	current    transform.Transform
	hasCurrent bool
}

var _ Surface = (*GGSurface)(nil)

// NewGGSurface returns a surface of the given pixel size.
func NewGGSurface(width, height int) (*GGSurface, error) {
	f, err := loadFont()
	if err != nil {
		return nil, err
	}
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	s := &GGSurface{
		dc:    gg.NewContext(width, height),
		font:  f,
		faces: make(map[int]font.Face),
	}
	s.pens = NewStyleCache(func(st Style) ggPen {
		return ggPen{pattern: gg.NewSolidPattern(st.Resolved()), width: st.Width}
	})
	return s, nil
}

// Size returns the pixel size.
func (s *GGSurface) Size() (int, int) {
	return s.dc.Width(), s.dc.Height()
}

// Image returns the backing image.
func (s *GGSurface) Image() image.Image {
	return s.dc.Image()
}

// SavePNG writes the current image to path.
func (s *GGSurface) SavePNG(path string) error {
	return s.dc.SavePNG(path)
}

// EncodePNG writes the current image to w.
func (s *GGSurface) EncodePNG(w io.Writer) error {
	return s.dc.EncodePNG(w)
}

// CachedStyles returns how many resolved pens and brushes are cached.
func (s *GGSurface) CachedStyles() int {
	return s.pens.Len()
}

func (s *GGSurface) SetTransform(t transform.Transform) {
	s.current = t
	s.hasCurrent = true
	s.apply()
}

func (s *GGSurface) ResetTransform() {
	s.hasCurrent = false
	s.dc.Identity()
}

func (s *GGSurface) apply() {
	s.dc.Identity()
	if !s.hasCurrent {
		return
	}
	m := s.current.Matrix()
	s.dc.Translate(m[2], m[5])
	s.dc.Scale(m[0], m[4])
}

// SetClip restricts drawing to r, given in control space.
func (s *GGSurface) SetClip(r geometry.Rect) {
	s.dc.ResetClip()
	s.dc.Identity()
	s.dc.DrawRectangle(float64(r.X), float64(r.Y), float64(r.Width), float64(r.Height))
	s.dc.Clip()
	s.apply()
}

func (s *GGSurface) ResetClip() {
	s.dc.ResetClip()
}

func (s *GGSurface) Clear(c color.NRGBA) {
	s.dc.SetColor(c)
	s.dc.Clear()
}

func (s *GGSurface) FillRect(r geometry.Rect2D, brush Style) {
	p := s.pens.Get(brush)
	s.dc.SetFillStyle(p.pattern)
	s.dc.DrawRectangle(r.X, r.Y, r.Width, r.Height)
	s.dc.Fill()
}

func (s *GGSurface) StrokeRect(r geometry.Rect2D, pen Style) {
	s.stroke(pen)
	s.dc.DrawRectangle(r.X, r.Y, r.Width, r.Height)
	s.dc.Stroke()
}

func (s *GGSurface) DrawLine(x1, y1, x2, y2 float64, pen Style) {
	s.stroke(pen)
	s.dc.DrawLine(x1, y1, x2, y2)
	s.dc.Stroke()
}

func (s *GGSurface) FillPath(p Path, brush Style) {
	pen := s.pens.Get(brush)
	s.dc.SetFillStyle(pen.pattern)
	s.trace(p)
	s.dc.Fill()
}

func (s *GGSurface) StrokePath(p Path, pen Style) {
	s.stroke(pen)
	s.trace(p)
	s.dc.Stroke()
}

func (s *GGSurface) stroke(st Style) {
	p := s.pens.Get(st)
	s.dc.SetStrokeStyle(p.pattern)
	w := p.width
	if w <= 0 {
		w = 1
	}
	s.dc.SetLineWidth(w)
}

func (s *GGSurface) trace(p Path) {
	s.dc.NewSubPath()
	for _, seg := range p {
		switch seg.Kind {
		case SegmentMove:
			s.dc.MoveTo(seg.X, seg.Y)
		case SegmentLine:
			s.dc.LineTo(seg.X, seg.Y)
		case SegmentArc:
			s.dc.DrawArc(seg.X, seg.Y, seg.Radius, seg.Start, seg.Start+seg.Sweep)
		case SegmentClose:
			s.dc.ClosePath()
		}
	}
}

// DrawText centres text in r. The font follows the current zoom.
func (s *GGSurface) DrawText(text string, r geometry.Rect2D, style Style) {
	scale := 1.0
	if s.hasCurrent {
		scale = s.current.Zoom
	}
	size := int(math.Round(BaseFontSize * scale))
	if size < 1 {
		return
	}
	face, ok := s.faces[size]
	if !ok {
		face = truetype.NewFace(s.font, &truetype.Options{Size: float64(size), DPI: 72, Hinting: font.HintingFull})
		s.faces[size] = face
	}
	// Text is laid out in control space so glyphs are not scaled twice.
	c := r.Center()
	x, y := s.dc.TransformPoint(c.X, c.Y)
	s.dc.Push()
	s.dc.Identity()
	s.dc.SetFontFace(face)
	s.dc.SetColor(style.Resolved())
	s.dc.DrawStringAnchored(text, x, y, 0.5, 0.5)
	s.dc.Pop()
}

func (s *GGSurface) InvalidateStyles() {
	s.pens.Invalidate()
}
