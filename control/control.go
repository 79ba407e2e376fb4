// Package control turns raw player input into atomic game commands.
//
// A control set binds single-character keys to movements and
// transformations. The bindings are configured at startup, the regular
// expressions used to validate and extract input are derived from them,
// nothing is hardcoded beyond the default bindings in NewDefaultSet.
package control

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Trillien/Roboc/element"
)

// Coord is a board coordinate or a unit displacement vector.
type Coord struct {
	X, Y int
}

// Add returns the coordinate shifted by the vector d.
func (c Coord) Add(d Coord) Coord {
	return Coord{c.X + d.X, c.Y + d.Y}
}

// Move binds a key to a displacement vector.
type Move struct {
	Key         rune
	Direction   Coord
	Description string
}

// Transform binds a key to a transformation family. Verb names the
// action in player-facing messages ("wall up", "drill").
type Transform struct {
	Key         rune
	Family      element.Family
	Verb        string
	Description string
}

// Set holds the configured controls of a game. It is built explicitly
// once per process (or per test) and passed by reference to consumers.
type Set struct {
	moves      map[rune]*Move
	transforms map[rune]*Transform

	moveKeys      []rune // registration order
	transformKeys []rune
	descriptions  []string

	extract *regexp.Regexp // compiled on first use, reset on bind
}

func NewSet() *Set {
	return &Set{
		moves:      make(map[rune]*Move),
		transforms: make(map[rune]*Transform),
	}
}

// BindMove registers a movement key with its displacement vector.
func (s *Set) BindMove(key rune, direction Coord, description, usage string) {
	s.moves[key] = &Move{Key: key, Direction: direction, Description: description}
	s.moveKeys = append(s.moveKeys, key)
	s.describe(key, description, usage)
}

// BindTransform registers a transformation key.
func (s *Set) BindTransform(key rune, family element.Family, verb, description, usage string) {
	s.transforms[key] = &Transform{Key: key, Family: family, Verb: verb, Description: description}
	s.transformKeys = append(s.transformKeys, key)
	s.describe(key, description, usage)
}

func (s *Set) describe(key rune, description, usage string) {
	s.descriptions = append(s.descriptions, string(key)+" - "+description+" - "+usage)
	s.extract = nil
}

// Directions returns the registered displacement vectors in binding order.
func (s *Set) Directions() []Coord {
	directions := make([]Coord, 0, len(s.moveKeys))
	for _, key := range s.moveKeys {
		directions = append(directions, s.moves[key].Direction)
	}
	return directions
}

// Descriptions returns one help line per registered control.
func (s *Set) Descriptions() []string {
	return s.descriptions
}

// MoveKeys returns the movement keys as a string, in binding order.
func (s *Set) MoveKeys() string {
	return string(s.moveKeys)
}

func (s *Set) movePattern() string {
	return "([" + regexp.QuoteMeta(string(s.moveKeys)) + "])([0-9]*)"
}

func (s *Set) transformPattern() string {
	return "([" + regexp.QuoteMeta(string(s.transformKeys)) + "])([" +
		regexp.QuoteMeta(string(s.moveKeys)) + "])"
}

// ValidationPattern returns the regular expression a full input line
// must match before commands are extracted from it. It is shipped to
// clients so invalid input is rejected before transmission.
func (s *Set) ValidationPattern() string {
	return "((" + s.movePattern() + ")|(" + s.transformPattern() + "))+"
}

func (s *Set) extraction() *regexp.Regexp {
	if s.extract == nil {
		s.extract = regexp.MustCompile("(?:" + s.movePattern() + ")|(?:" + s.transformPattern() + ")")
	}
	return s.extract
}

// Extract converts an input line into an ordered list of atomic
// commands. A movement followed by a repeat count expands into that many
// unit movements, a transformation stays a two-character command.
// Characters matching no control are silently dropped; rejecting
// malformed lines is the caller's concern, via ValidationPattern.
func (s *Set) Extract(input string) []string {
	var commands []string
	for _, match := range s.extraction().FindAllStringSubmatch(input, -1) {
		movement, repetition, transformation, direction := match[1], match[2], match[3], match[4]
		switch {
		case movement != "" && repetition != "":
			count, err := strconv.Atoi(repetition)
			if err != nil {
				// Repeat count out of int range, play the move once.
				commands = append(commands, movement)
				continue
			}
			for i := 0; i < count; i++ {
				commands = append(commands, movement)
			}
		case movement != "":
			commands = append(commands, movement)
		default:
			commands = append(commands, transformation+direction)
		}
	}
	return commands
}

// Decode resolves an extracted command into its displacement vector and,
// for a two-character command, the requested transformation.
func (s *Set) Decode(command string) (Coord, *Transform) {
	keys := []rune(command)
	move, ok := s.moves[keys[len(keys)-1]]
	if !ok {
		return Coord{}, nil
	}
	if len(keys) == 2 {
		return move.Direction, s.transforms[keys[0]]
	}
	return move.Direction, nil
}

// NewDefaultSet builds the standard bindings: N/S/E/O for the four
// cardinal directions, M to wall up and P to drill.
func NewDefaultSet() *Set {
	s := NewSet()
	s.BindMove('N', Coord{0, -1}, "Move north", "Usage: N[0-99]")
	s.BindMove('S', Coord{0, 1}, "Move south", "Usage: S[0-99]")
	s.BindMove('E', Coord{1, 0}, "Move east", "Usage: E[0-99]")
	s.BindMove('O', Coord{-1, 0}, "Move west", "Usage: O[0-99]")
	moves := s.MoveKeys()
	s.BindTransform('M', element.WallFamily, "wall up", "Wall up an obstacle", "Usage: M<"+moves+">")
	s.BindTransform('P', element.DoorFamily, "drill", "Drill an obstacle", "Usage: P<"+moves+">")
	return s
}

// Normalize upper-cases an input line the way maps and commands are
// decoded, so 'n2e' and 'N2E' extract identically.
func Normalize(input string) string {
	return strings.ToUpper(strings.TrimSpace(input))
}
