package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefs_Fallbacks(t *testing.T) {
	p := LoadFrom(filepath.Join(t.TempDir(), "missing.json"))
	assert.Equal(t, 100, p.Int(KeyZoomPercent, 100))
	assert.Equal(t, 1.5, p.Float("ratio", 1.5))
	assert.True(t, p.Bool(KeyShowGrid, true))
	assert.Empty(t, p.String(KeyLastFile))
}

func TestPrefs_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", prefsFile)
	p := LoadFrom(path)
	p.SetInt(KeyZoomPercent, 150)
	p.SetString(KeyLastFile, "/tmp/a.diagram")
	p.SetBool(KeyShowGrid, false)
	p.SetFloat(KeyWindowWidth, 1024.5)
	require.NoError(t, p.Save())

	q := LoadFrom(path)
	assert.Equal(t, 150, q.Int(KeyZoomPercent, 100))
	assert.Equal(t, "/tmp/a.diagram", q.String(KeyLastFile))
	assert.False(t, q.Bool(KeyShowGrid, true))
	assert.Equal(t, 1024.5, q.Float(KeyWindowWidth, 0))
	assert.Equal(t, path, q.Path())
}

func TestPrefs_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), prefsFile)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	p := LoadFrom(path)
	assert.Equal(t, 7, p.Int(KeyZoomPercent, 7))
}
