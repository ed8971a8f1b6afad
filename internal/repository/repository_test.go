package repository

import (
	"testing"

	"diagram-display/internal/errs"
	"diagram-display/internal/shape"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_Events(t *testing.T) {
	r := New()
	d := shape.NewDiagram("main", 100, 100)
	require.NoError(t, r.AddDiagram(d))
	assert.ErrorIs(t, r.AddDiagram(shape.NewDiagram("main", 1, 1)), errs.ErrInvalidParameter)

	var got []Event
	for _, et := range []EventType{EventShapesInserted, EventShapesUpdated, EventShapesDeleted} {
		r.On(et, func(ev Event) { got = append(got, ev) })
	}

	a := shape.NewBox(0, 0, 10, 10)
	b := shape.NewBox(20, 0, 10, 10)
	r.InsertShapes(d, a, b)
	r.UpdateShapes(d, a)
	r.DeleteShapes(d, b)
	r.DeleteShapes(d, b) // already gone: no event

	require.Len(t, got, 3)
	assert.Equal(t, EventShapesInserted, got[0].Type)
	assert.Equal(t, []shape.Shape{a, b}, got[0].Shapes)
	assert.Equal(t, EventShapesUpdated, got[1].Type)
	assert.Equal(t, []shape.Shape{b}, got[2].Shapes)
	assert.Equal(t, []shape.Shape{a}, d.Shapes())
}

func TestRepository_DeleteChild(t *testing.T) {
	r := New()
	d := shape.NewDiagram("main", 100, 100)
	child := shape.NewBox(0, 0, 10, 10)
	g := shape.NewGroup(child, shape.NewBox(20, 0, 10, 10))
	r.InsertShapes(d, g)

	r.DeleteShapes(d, child)
	assert.Len(t, g.Children(), 1)
	assert.Nil(t, child.Parent())
	assert.True(t, d.Contains(g))
}

func TestRepository_Diagrams(t *testing.T) {
	r := New()
	a := shape.NewDiagram("a", 1, 1)
	require.NoError(t, r.AddDiagram(a))
	assert.Equal(t, a, r.Diagram("a"))
	assert.Nil(t, r.Diagram("b"))
	assert.True(t, r.RemoveDiagram(a))
	assert.False(t, r.RemoveDiagram(a))
	assert.Empty(t, r.Diagrams())
}

func TestRepository_RestoreShapes(t *testing.T) {
	r := New()
	d := shape.NewDiagram("main", 100, 100)
	a, b, c := shape.NewBox(0, 0, 1, 1), shape.NewBox(0, 0, 1, 1), shape.NewBox(0, 0, 1, 1)
	g := shape.NewGroup(a, b, c)
	top := shape.NewBox(50, 50, 5, 5)
	r.InsertShapes(d, g, top)

	placed := r.DeleteShapes(d, a, c, top)
	require.Len(t, placed, 3)
	assert.Equal(t, []shape.Shape{b}, g.Children())
	assert.Equal(t, 0, placed[0].Index)
	assert.Equal(t, 1, placed[1].Index)

	var inserted []shape.Shape
	r.On(EventShapesInserted, func(ev Event) { inserted = ev.Shapes })
	r.RestoreShapes(d, placed)

	assert.Equal(t, []shape.Shape{a, b, c}, g.Children())
	assert.Equal(t, []shape.Shape{g, top}, d.Shapes())
	assert.Equal(t, []shape.Shape{a, c, top}, inserted)
}

func TestRepository_Unsubscribe(t *testing.T) {
	r := New()
	d := shape.NewDiagram("main", 100, 100)
	require.NoError(t, r.AddDiagram(d))

	var first, second int
	stop := r.On(EventShapesInserted, func(Event) { first++ })
	r.On(EventShapesInserted, func(Event) { second++ })
	assert.Equal(t, 2, r.Listeners(EventShapesInserted))

	r.InsertShapes(d, shape.NewBox(0, 0, 10, 10))
	stop()
	stop()
	r.InsertShapes(d, shape.NewBox(0, 0, 10, 10))

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
	assert.Equal(t, 1, r.Listeners(EventShapesInserted))
}
