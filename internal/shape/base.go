package shape

import (
	"diagram-display/internal/layer"

	"github.com/google/uuid"
)

// base carries the bookkeeping shared by the reference shapes.
type base struct {
	id       string
	template string
	z        int
	layers   layer.IDs
	parent   Shape
	model    any
}

func newBase(template string) base {
	return base{id: uuid.NewString(), template: template}
}

// cloneBase copies everything except identity, stacking and parent.
func (b *base) cloneBase() base {
	return base{id: uuid.NewString(), template: b.template, layers: b.layers, model: b.model}
}

func (b *base) ID() string                { return b.id }
func (b *base) TemplateName() string      { return b.template }
func (b *base) ZOrder() int               { return b.z }
func (b *base) SetZOrder(z int)           { b.z = z }
func (b *base) Layers() layer.IDs         { return b.layers }
func (b *base) SetLayers(ids layer.IDs)   { b.layers = ids }
func (b *base) Parent() Shape             { return b.parent }
func (b *base) SetParent(p Shape)         { b.parent = p }
func (b *base) ModelObject() any          { return b.model }
func (b *base) SetModelObject(m any)      { b.model = m }
func (b *base) SetTemplateName(t string)  { b.template = t }
