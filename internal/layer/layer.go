// Package layer provides named diagram layers with visibility and zoom thresholds.
package layer

import (
	"fmt"
	"math/bits"

	"diagram-display/internal/errs"
)

// MaxLayers is the number of layers a diagram can hold.
const MaxLayers = 32

// IDs is a set of layers, one bit per layer.
type IDs uint32

// None is the empty layer set.
const None IDs = 0

// All contains every layer.
const All IDs = ^IDs(0)

// Has reports whether every layer in other is also in ids.
func (ids IDs) Has(other IDs) bool {
	return ids&other == other
}

// Count returns the number of layers in the set.
func (ids IDs) Count() int {
	return bits.OnesCount32(uint32(ids))
}

// Layer is one named layer.
type Layer struct {
	ID     IDs    // single bit
	Name   string // unique within a set
	Title  string
	Hidden bool

	// Zoom thresholds in percent. Zero means unbounded.
	LowerZoomThreshold int
	UpperZoomThreshold int
}

// VisibleAt reports whether the layer is drawn at the given zoom percent.
func (l *Layer) VisibleAt(zoomPercent int) bool {
	if l.Hidden {
		return false
	}
	if l.LowerZoomThreshold > 0 && zoomPercent < l.LowerZoomThreshold {
		return false
	}
	if l.UpperZoomThreshold > 0 && zoomPercent > l.UpperZoomThreshold {
		return false
	}
	return true
}

// Set is the ordered layer collection of a diagram.
type Set struct {
	layers []*Layer
	active IDs
}

// NewSet returns an empty layer set.
func NewSet() *Set {
	return &Set{}
}

// Add creates a layer with the next free id.
func (s *Set) Add(name string) (*Layer, error) {
	if name == "" {
		return nil, fmt.Errorf("layer name is empty: %w", errs.ErrInvalidParameter)
	}
	if s.Find(name) != nil {
		return nil, fmt.Errorf("layer %q exists: %w", name, errs.ErrInvalidParameter)
	}
	if len(s.layers) >= MaxLayers {
		return nil, fmt.Errorf("more than %d layers: %w", MaxLayers, errs.ErrInvalidParameter)
	}
	l := &Layer{ID: IDs(1) << len(s.layers), Name: name, Title: name}
	s.layers = append(s.layers, l)
	return l, nil
}

// Find returns the layer with the given name, or nil.
func (s *Set) Find(name string) *Layer {
	for _, l := range s.layers {
		if l.Name == name {
			return l
		}
	}
	return nil
}

// IDsOf returns the set of the named layers. Unknown names are ignored.
func (s *Set) IDsOf(names ...string) IDs {
	var ids IDs
	for _, n := range names {
		if l := s.Find(n); l != nil {
			ids |= l.ID
		}
	}
	return ids
}

// Layers returns the layers in creation order.
func (s *Set) Layers() []*Layer {
	return s.layers
}

// SetHidden hides or shows every layer in ids.
func (s *Set) SetHidden(ids IDs, hidden bool) {
	for _, l := range s.layers {
		if ids.Has(l.ID) {
			l.Hidden = hidden
		}
	}
}

// SetActive replaces the active layers; new shapes are placed on them.
func (s *Set) SetActive(ids IDs) {
	s.active = ids
}

// Active returns the active layers.
func (s *Set) Active() IDs {
	return s.active
}

// Visible returns the layers drawn at the given zoom percent.
func (s *Set) Visible(zoomPercent int) IDs {
	var ids IDs
	for _, l := range s.layers {
		if l.VisibleAt(zoomPercent) {
			ids |= l.ID
		}
	}
	return ids
}

// ShapeVisible reports whether a shape on the given layers is drawn. Shapes on
// no layer are always drawn; otherwise one visible layer is enough.
func (s *Set) ShapeVisible(shapeLayers IDs, zoomPercent int) bool {
	if shapeLayers == None {
		return true
	}
	return shapeLayers&s.Visible(zoomPercent) != 0
}
