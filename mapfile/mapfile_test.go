package mapfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Trillien/Roboc/element"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMap(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestListReadsMapsSortedByName(t *testing.T) {
	dir := t.TempDir()
	writeMap(t, dir, "b.txt", "OU")
	writeMap(t, dir, "a.txt", "U")
	writeMap(t, dir, "ignored.map", "U")

	maps, err := List(dir, ".txt")
	require.NoError(t, err)
	require.Len(t, maps, 2)
	assert.Equal(t, "a", maps[0].Name)
	assert.Equal(t, "U", maps[0].Content)
	assert.Equal(t, "b", maps[1].Name)
}

func TestListEmptyDirectory(t *testing.T) {
	_, err := List(t.TempDir(), ".txt")
	assert.ErrorIs(t, err, ErrNoMaps)
}

func TestListMissingDirectory(t *testing.T) {
	_, err := List(filepath.Join(t.TempDir(), "nope"), ".txt")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	registry := element.NewDefaultRegistry()
	known := registry.Symbols()
	required := registry.WinningSymbols()

	assert.NoError(t, Validate("OOOO\nO .U\nOOOO", known, required))
	assert.ErrorContains(t, Validate("OOOO\nO .O\nOOOO", known, required), "required symbol")
	assert.ErrorContains(t, Validate("OZOU", known, required), "unknown symbol")
}

func TestValidateIgnoresLineBreaks(t *testing.T) {
	registry := element.NewDefaultRegistry()
	assert.NoError(t, Validate("OU\r\nOO", registry.Symbols(), registry.WinningSymbols()))
}
