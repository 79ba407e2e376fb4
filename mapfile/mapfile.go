// Package mapfile loads and checks the maze maps shipped on disk.
package mapfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
)

// Map is one candidate maze read from the maps directory.
type Map struct {
	Name    string
	Content string
}

// ErrNoMaps reports a maps directory with no usable map file.
var ErrNoMaps = errors.New("mapfile: no map found")

// List reads every file with the given extension from dir, sorted by
// name. The name of a map is its file name without the extension.
func List(dir, ext string) ([]Map, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("mapfile: reading %s: %w", dir, err)
	}
	var maps []Map
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ext) {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("mapfile: reading %s: %w", entry.Name(), err)
		}
		maps = append(maps, Map{
			Name:    strings.TrimSuffix(entry.Name(), ext),
			Content: string(content),
		})
	}
	if len(maps) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoMaps, dir)
	}
	sort.Slice(maps, func(i, j int) bool { return maps[i].Name < maps[j].Name })
	return maps, nil
}

// Validate checks that the map uses only known symbols and contains
// every required one (the winning cells a playable maze cannot lack).
// Line breaks are structure, not symbols.
func Validate(content string, known, required map[rune]struct{}) error {
	var symbols strings.Builder
	for _, line := range strings.Split(content, "\n") {
		symbols.WriteString(strings.TrimRight(line, "\r"))
	}
	flat := symbols.String()
	for symbol := range required {
		if !strings.ContainsRune(flat, symbol) {
			return fmt.Errorf("mapfile: required symbol %q missing", symbol)
		}
	}
	for _, symbol := range flat {
		if _, ok := known[unicode.ToUpper(symbol)]; !ok {
			return fmt.Errorf("mapfile: unknown symbol %q", symbol)
		}
	}
	return nil
}
