package layer

import (
	"testing"

	"diagram-display/internal/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayer_VisibleAt(t *testing.T) {
	l := &Layer{LowerZoomThreshold: 50, UpperZoomThreshold: 200}
	assert.False(t, l.VisibleAt(49))
	assert.True(t, l.VisibleAt(50))
	assert.True(t, l.VisibleAt(200))
	assert.False(t, l.VisibleAt(201))

	l.Hidden = true
	assert.False(t, l.VisibleAt(100))

	unbounded := &Layer{}
	assert.True(t, unbounded.VisibleAt(1))
	assert.True(t, unbounded.VisibleAt(10000))
}

func TestSet(t *testing.T) {
	s := NewSet()
	bg, err := s.Add("background")
	require.NoError(t, err)
	notes, err := s.Add("notes")
	require.NoError(t, err)
	assert.Equal(t, IDs(1), bg.ID)
	assert.Equal(t, IDs(2), notes.ID)

	_, err = s.Add("notes")
	assert.ErrorIs(t, err, errs.ErrInvalidParameter)

	notes.LowerZoomThreshold = 100
	assert.Equal(t, bg.ID, s.Visible(50))
	assert.Equal(t, bg.ID|notes.ID, s.Visible(100))

	assert.True(t, s.ShapeVisible(None, 50), "shapes on no layer are always drawn")
	assert.False(t, s.ShapeVisible(notes.ID, 50))
	assert.True(t, s.ShapeVisible(notes.ID|bg.ID, 50))

	s.SetHidden(bg.ID, true)
	assert.False(t, s.ShapeVisible(bg.ID, 100))
	assert.Equal(t, notes.ID, s.IDsOf("notes", "missing"))
}

func TestSet_Full(t *testing.T) {
	s := NewSet()
	for i := 0; i < MaxLayers; i++ {
		_, err := s.Add(string(rune('a' + i)))
		require.NoError(t, err)
	}
	_, err := s.Add("overflow")
	assert.ErrorIs(t, err, errs.ErrInvalidParameter)
	assert.Equal(t, MaxLayers, All.Count())
}
