package surface

import "math"

// SegmentKind identifies a path segment.
type SegmentKind int

const (
	SegmentMove SegmentKind = iota
	SegmentLine
	SegmentArc
	SegmentClose
)

func (k SegmentKind) String() string {
	switch k {
	case SegmentMove:
		return "move"
	case SegmentLine:
		return "line"
	case SegmentArc:
		return "arc"
	case SegmentClose:
		return "close"
	default:
		return "unknown"
	}
}

// Segment is one path element. Move and line use X, Y. Arc uses X, Y as the
// centre with Radius, Start and Sweep in radians.
type Segment struct {
	Kind   SegmentKind
	X, Y   float64
	Radius float64
	Start  float64
	Sweep  float64
}

// Path is a sequence of segments.
type Path []Segment

// MoveTo appends a move segment.
func (p Path) MoveTo(x, y float64) Path { return append(p, Segment{Kind: SegmentMove, X: x, Y: y}) }

// LineTo appends a line segment.
func (p Path) LineTo(x, y float64) Path { return append(p, Segment{Kind: SegmentLine, X: x, Y: y}) }

// Arc appends an arc around (cx, cy).
func (p Path) Arc(cx, cy, r, start, sweep float64) Path {
	return append(p, Segment{Kind: SegmentArc, X: cx, Y: cy, Radius: r, Start: start, Sweep: sweep})
}

// Close appends a close segment.
func (p Path) Close() Path { return append(p, Segment{Kind: SegmentClose}) }

// Translate returns a copy of p moved by (dx, dy).
func (p Path) Translate(dx, dy float64) Path {
	out := make(Path, len(p))
	for i, s := range p {
		if s.Kind != SegmentClose {
			s.X += dx
			s.Y += dy
		}
		out[i] = s
	}
	return out
}

// Closed reports whether the path ends with a close segment.
func (p Path) Closed() bool {
	return len(p) > 0 && p[len(p)-1].Kind == SegmentClose
}

// ArcEnd returns the end point of an arc segment.
func (s Segment) ArcEnd() (float64, float64) {
	a := s.Start + s.Sweep
	return s.X + s.Radius*math.Cos(a), s.Y + s.Radius*math.Sin(a)
}
