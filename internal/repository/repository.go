// Package repository is the in-memory store of diagrams and shapes. Every
// change is announced to listeners registered per event type.
package repository

import (
	"fmt"
	"slices"
	"sync"

	"diagram-display/internal/errs"
	"diagram-display/internal/logging"
	"diagram-display/internal/shape"
)

// EventType identifies repository events.
type EventType int

const (
	EventShapesInserted EventType = iota
	EventShapesUpdated
	EventShapesDeleted
	EventDiagramInserted
	EventDiagramDeleted
)

func (t EventType) String() string {
	switch t {
	case EventShapesInserted:
		return "shapes inserted"
	case EventShapesUpdated:
		return "shapes updated"
	case EventShapesDeleted:
		return "shapes deleted"
	case EventDiagramInserted:
		return "diagram inserted"
	case EventDiagramDeleted:
		return "diagram deleted"
	default:
		return "unknown"
	}
}

// Event describes one change.
type Event struct {
	Type    EventType
	Diagram *shape.Diagram
	Shapes  []shape.Shape
}

// EventListener is called when an event occurs.
type EventListener func(Event)

type subscription struct {
	id       int
	listener EventListener
}

// Repository holds diagrams by name.
type Repository struct {
	mu        sync.RWMutex
	diagrams  []*shape.Diagram
	listeners map[EventType][]subscription
	nextID    int
}

// New creates an empty repository.
func New() *Repository {
	return &Repository{listeners: make(map[EventType][]subscription)}
}

// On registers an event listener for the specified event type. Calling the
// returned function removes it again.
func (r *Repository) On(event EventType, listener EventListener) (unsubscribe func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := r.nextID
	r.listeners[event] = append(r.listeners[event], subscription{id: id, listener: listener})
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.listeners[event] = slices.DeleteFunc(r.listeners[event], func(s subscription) bool { return s.id == id })
	}
}

// Listeners returns the number of listeners registered for event.
func (r *Repository) Listeners(event EventType) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners[event])
}

// Emit sends an event to all registered listeners.
func (r *Repository) Emit(ev Event) {
	r.mu.RLock()
	listeners := slices.Clone(r.listeners[ev.Type])
	r.mu.RUnlock()

	logging.Logger().Debug("repository event", "type", ev.Type.String(), "shapes", len(ev.Shapes))
	for _, l := range listeners {
		l.listener(ev)
	}
}

// AddDiagram stores d. Names must be unique.
func (r *Repository) AddDiagram(d *shape.Diagram) error {
	r.mu.Lock()
	for _, existing := range r.diagrams {
		if existing.Name == d.Name {
			r.mu.Unlock()
			return fmt.Errorf("diagram %q exists: %w", d.Name, errs.ErrInvalidParameter)
		}
	}
	r.diagrams = append(r.diagrams, d)
	r.mu.Unlock()
	r.Emit(Event{Type: EventDiagramInserted, Diagram: d})
	return nil
}

// RemoveDiagram drops d.
func (r *Repository) RemoveDiagram(d *shape.Diagram) bool {
	r.mu.Lock()
	i := slices.Index(r.diagrams, d)
	if i < 0 {
		r.mu.Unlock()
		return false
	}
	r.diagrams = slices.Delete(r.diagrams, i, i+1)
	r.mu.Unlock()
	r.Emit(Event{Type: EventDiagramDeleted, Diagram: d})
	return true
}

// Diagram returns the diagram with the given name, or nil.
func (r *Repository) Diagram(name string) *shape.Diagram {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.diagrams {
		if d.Name == name {
			return d
		}
	}
	return nil
}

// Diagrams returns all diagrams in insertion order.
func (r *Repository) Diagrams() []*shape.Diagram {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.diagrams)
}

// InsertShapes adds top-level shapes to d.
func (r *Repository) InsertShapes(d *shape.Diagram, shapes ...shape.Shape) {
	if len(shapes) == 0 {
		return
	}
	for _, s := range shapes {
		d.Add(s)
	}
	r.Emit(Event{Type: EventShapesInserted, Diagram: d, Shapes: shapes})
}

// UpdateShapes announces that shapes changed in place.
func (r *Repository) UpdateShapes(d *shape.Diagram, shapes ...shape.Shape) {
	if len(shapes) == 0 {
		return
	}
	r.Emit(Event{Type: EventShapesUpdated, Diagram: d, Shapes: shapes})
}

// Placement records where a shape sat before it was deleted.
type Placement struct {
	Shape  shape.Shape
	Parent *shape.Container
	Index  int
}

// DeleteShapes removes shapes from d, or from the container owning them,
// and returns their former placements in removal order.
func (r *Repository) DeleteShapes(d *shape.Diagram, shapes ...shape.Shape) []Placement {
	var placed []Placement
	for _, s := range shapes {
		if p, ok := detach(d, s); ok {
			placed = append(placed, p)
		}
	}
	if len(placed) > 0 {
		removed := make([]shape.Shape, len(placed))
		for i, p := range placed {
			removed[i] = p.Shape
		}
		r.Emit(Event{Type: EventShapesDeleted, Diagram: d, Shapes: removed})
	}
	return placed
}

// RestoreShapes puts deleted shapes back where DeleteShapes found them.
func (r *Repository) RestoreShapes(d *shape.Diagram, placed []Placement) {
	if len(placed) == 0 {
		return
	}
	restored := make([]shape.Shape, len(placed))
	for i := len(placed) - 1; i >= 0; i-- {
		p := placed[i]
		if p.Parent != nil {
			p.Parent.Insert(p.Index, p.Shape)
		} else {
			d.Add(p.Shape)
		}
		restored[i] = p.Shape
	}
	r.Emit(Event{Type: EventShapesInserted, Diagram: d, Shapes: restored})
}

func detach(d *shape.Diagram, s shape.Shape) (Placement, bool) {
	if p := s.Parent(); p != nil {
		c, ok := p.(*shape.Container)
		if !ok {
			return Placement{}, false
		}
		i := c.IndexOf(s)
		if !c.Remove(s) {
			return Placement{}, false
		}
		return Placement{Shape: s, Parent: c, Index: i}, true
	}
	if !d.Remove(s) {
		return Placement{}, false
	}
	return Placement{Shape: s}, true
}
