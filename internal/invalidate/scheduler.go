// Package invalidate batches repaint requests between suspend and resume.
//
// Regions are collected in diagram space and converted to control space only
// when they are flushed, outset by the grip margin so grips drawn around a
// shape are repainted with it.
package invalidate

import (
	"fmt"

	"diagram-display/internal/errs"
	"diagram-display/internal/logging"
	"diagram-display/internal/transform"
	"diagram-display/pkg/geometry"
)

// Target receives control-space repaint requests.
type Target interface {
	Repaint(r geometry.Rect)
	RepaintAll()
}

// Config wires a Scheduler to its collaborators. Transform and Margin are
// consulted at flush time. RecomputeBounds may be nil.
type Config struct {
	Target          Target
	Transform       func() transform.Transform
	Margin          func() int
	RecomputeBounds func()
}

// Scheduler coalesces invalidations while suspended.
type Scheduler struct {
	cfg Config

	depth       int
	pending     geometry.Rect
	boundsDirty bool
	all         bool
}

// New returns a scheduler that is not suspended.
func New(cfg Config) *Scheduler {
	return &Scheduler{cfg: cfg}
}

// Suspend starts or nests a batch.
func (s *Scheduler) Suspend() {
	s.depth++
	if s.depth == 1 {
		s.pending = geometry.Rect{}
	}
}

// Resume ends one level of batching; leaving the outermost level flushes.
// Resuming without a matching Suspend fails with errs.ErrUnbalancedScope.
func (s *Scheduler) Resume() error {
	if s.depth == 0 {
		return fmt.Errorf("resume invalidation: %w", errs.ErrUnbalancedScope)
	}
	s.depth--
	if s.depth == 0 {
		s.flush()
	}
	return nil
}

// Scope suspends and returns the matching resume for use with defer.
func (s *Scheduler) Scope() func() {
	s.Suspend()
	return func() {
		if err := s.Resume(); err != nil {
			logging.Logger().Warn("invalidation scope", "err", err)
		}
	}
}

// Suspended reports whether a batch is open.
func (s *Scheduler) Suspended() bool { return s.depth > 0 }

// Depth returns the nesting depth.
func (s *Scheduler) Depth() int { return s.depth }

// Pending returns the collected diagram-space region.
func (s *Scheduler) Pending() geometry.Rect { return s.pending }

// BoundsDirty reports whether a bounds recompute is pending.
func (s *Scheduler) BoundsDirty() bool { return s.boundsDirty }

// MarkRegionDirty schedules a diagram-space region for repaint.
func (s *Scheduler) MarkRegionDirty(r geometry.Rect) {
	r = r.Normalize()
	if r.IsEmpty() {
		return
	}
	if s.depth > 0 {
		s.pending = s.pending.Union(r)
		return
	}
	s.repaint(r)
}

// InvalidateAll schedules a full repaint without a bounds recompute.
func (s *Scheduler) InvalidateAll() {
	if s.depth > 0 {
		s.all = true
		return
	}
	s.repaintAll()
}

// MarkBoundsDirty schedules a bounds recompute and full repaint.
func (s *Scheduler) MarkBoundsDirty() {
	if s.depth > 0 {
		s.boundsDirty = true
		return
	}
	s.recomputeAll()
}

func (s *Scheduler) flush() {
	switch {
	case s.boundsDirty:
		s.recomputeAll()
	case s.all:
		s.repaintAll()
	case !s.pending.IsEmpty():
		s.repaint(s.pending)
	}
	s.pending = geometry.Rect{}
}

func (s *Scheduler) recomputeAll() {
	s.boundsDirty = false
	if s.cfg.RecomputeBounds != nil {
		s.cfg.RecomputeBounds()
	}
	s.repaintAll()
}

func (s *Scheduler) repaintAll() {
	s.all = false
	logging.Logger().Debug("invalidate: full repaint")
	if s.cfg.Target != nil {
		s.cfg.Target.RepaintAll()
	}
}

func (s *Scheduler) repaint(r geometry.Rect) {
	if s.cfg.Target == nil {
		return
	}
	s.cfg.Target.Repaint(s.ToControl(r))
}

// ToControl converts a diagram-space region to the outset control-space
// rectangle a flush would request.
func (s *Scheduler) ToControl(r geometry.Rect) geometry.Rect {
	t := transform.Identity()
	if s.cfg.Transform != nil {
		t = s.cfg.Transform()
	}
	c := t.RectToControl(r)
	if s.cfg.Margin != nil {
		m := s.cfg.Margin()
		c = c.Inflate(m, m)
	}
	return c
}
