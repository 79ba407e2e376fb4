package control

import (
	"regexp"
	"testing"

	"github.com/Trillien/Roboc/element"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	s := NewDefaultSet()
	tests := []struct {
		input string
		want  []string
	}{
		{"N3E2", []string{"N", "N", "N", "E", "E"}},
		{"MN", []string{"MN"}},
		{"PS", []string{"PS"}},
		{"N", []string{"N"}},
		{"N1", []string{"N"}},
		{"N0", nil},
		{"S2MO", []string{"S", "S", "MO"}},
		{"A2NZB", []string{"N"}},
		{"", nil},
		{"42", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.Extract(tt.input), "input %q", tt.input)
	}
}

func TestValidationPattern(t *testing.T) {
	s := NewDefaultSet()
	// Validated the way clients do: the whole line must match.
	pattern := regexp.MustCompile("^(?:" + s.ValidationPattern() + ")$")

	assert.True(t, pattern.MatchString("N3E2"))
	assert.True(t, pattern.MatchString("MN"))
	assert.True(t, pattern.MatchString("N12PSE"))
	assert.False(t, pattern.MatchString("Q"))
	assert.False(t, pattern.MatchString("NX"))
	assert.False(t, pattern.MatchString("M3"))
	assert.False(t, pattern.MatchString(""))
}

func TestDecodeMovement(t *testing.T) {
	s := NewDefaultSet()
	direction, transform := s.Decode("E")
	assert.Equal(t, Coord{1, 0}, direction)
	assert.Nil(t, transform)

	direction, _ = s.Decode("N")
	assert.Equal(t, Coord{0, -1}, direction)
}

func TestDecodeTransformation(t *testing.T) {
	s := NewDefaultSet()
	direction, transform := s.Decode("MN")
	require.NotNil(t, transform)
	assert.Equal(t, Coord{0, -1}, direction)
	assert.Equal(t, element.WallFamily, transform.Family)
	assert.Equal(t, "wall up", transform.Verb)

	direction, transform = s.Decode("PS")
	require.NotNil(t, transform)
	assert.Equal(t, Coord{0, 1}, direction)
	assert.Equal(t, element.DoorFamily, transform.Family)
}

func TestDirectionsFollowBindingOrder(t *testing.T) {
	s := NewDefaultSet()
	assert.Equal(t, []Coord{{0, -1}, {0, 1}, {1, 0}, {-1, 0}}, s.Directions())
	assert.Equal(t, "NSEO", s.MoveKeys())
}

func TestDescriptions(t *testing.T) {
	s := NewDefaultSet()
	descriptions := s.Descriptions()
	require.Len(t, descriptions, 6)
	assert.Equal(t, "N - Move north - Usage: N[0-99]", descriptions[0])
	assert.Contains(t, descriptions[4], "M - Wall up an obstacle")
}

func TestCustomBindingsRebuildPatterns(t *testing.T) {
	s := NewSet()
	s.BindMove('W', Coord{0, -1}, "Move up", "Usage: W")
	assert.Equal(t, []string{"W"}, s.Extract("W"))

	s.BindMove('D', Coord{1, 0}, "Move right", "Usage: D")
	assert.Equal(t, []string{"W", "D", "D"}, s.Extract("WD2"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "N2E", Normalize(" n2e\n"))
}
