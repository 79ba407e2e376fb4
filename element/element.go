// Package element defines the tiles a maze is built from.
//
// Every tile on the board is described by an Element: a map symbol, a
// display symbol, a human readable description and a set of orthogonal
// capabilities. Elements are interned per registry, so two cells holding
// the same tile share one *Element and identity comparison is enough.
package element

import (
	"fmt"
	"unicode"
)

// Capability is one orthogonal trait an element may carry. A single
// element usually combines several, a door for instance is both
// traversable and transformable into a wall.
type Capability uint8

const (
	// Decoded elements are stored in the grid when a map is read.
	// Recognized symbols without Decoded resolve through the fallback.
	Decoded Capability = 1 << iota
	// Traversable elements can be walked through.
	Traversable
	// Winning elements end the game for the player reaching them.
	Winning
	// Startable elements are valid starting positions.
	Startable
	// Transformable elements can be changed into another element.
	Transformable
	// DefaultFallback marks the element used for every coordinate the
	// grid does not define. Exactly one element per registry carries it.
	DefaultFallback
)

// Family tags a transformable element with the transformation that
// applies to it. The empty family means "not transformable".
type Family string

const (
	NoFamily   Family = ""
	WallFamily Family = "wall"  // element can be walled up
	DoorFamily Family = "drill" // element can be drilled open
)

// Element is an immutable tile definition, shared by reference.
type Element struct {
	Symbol      rune   // symbol read from a map file
	Display     string // symbol printed on the board
	Description string // e.g. "the door", used in player-facing messages
	Family      Family
	Transformed *Element // what the element becomes, nil when not transformable

	caps Capability
}

// Has reports whether the element carries the capability. It is nil-safe
// so callers may test unresolved lookups directly.
func (e *Element) Has(c Capability) bool {
	return e != nil && e.caps&c != 0
}

// Registry maps map symbols to interned elements. It is populated once
// at startup and never mutated afterwards.
type Registry struct {
	bySymbol map[rune]*Element
	fallback *Element
}

func NewRegistry() *Registry {
	return &Registry{bySymbol: make(map[rune]*Element)}
}

// Register adds an element definition under its map symbol. Symbols are
// folded to upper case, matching how maps are decoded.
func (r *Registry) Register(e *Element, caps Capability) error {
	e.caps = caps
	symbol := unicode.ToUpper(e.Symbol)
	if _, dup := r.bySymbol[symbol]; dup {
		return fmt.Errorf("element: symbol %q registered twice", symbol)
	}
	if caps&DefaultFallback != 0 {
		if r.fallback != nil {
			return fmt.Errorf("element: fallback %q already registered, cannot add %q",
				r.fallback.Symbol, symbol)
		}
		r.fallback = e
	}
	r.bySymbol[symbol] = e
	return nil
}

// Resolve returns the element registered for symbol, or the fallback
// element when the symbol is unknown. It never fails.
func (r *Registry) Resolve(symbol rune) *Element {
	if e, ok := r.bySymbol[unicode.ToUpper(symbol)]; ok {
		return e
	}
	return r.fallback
}

// Known reports whether symbol maps to a registered element.
func (r *Registry) Known(symbol rune) bool {
	_, ok := r.bySymbol[unicode.ToUpper(symbol)]
	return ok
}

// Default returns the fallback element.
func (r *Registry) Default() *Element {
	return r.fallback
}

// Symbols returns every symbol recognized when reading a map.
func (r *Registry) Symbols() map[rune]struct{} {
	known := make(map[rune]struct{}, len(r.bySymbol))
	for symbol := range r.bySymbol {
		known[symbol] = struct{}{}
	}
	return known
}

// WinningSymbols returns the symbols a playable map must contain.
func (r *Registry) WinningSymbols() map[rune]struct{} {
	winning := make(map[rune]struct{})
	for symbol, e := range r.bySymbol {
		if e.Has(Winning) {
			winning[symbol] = struct{}{}
		}
	}
	return winning
}

// NewDefaultRegistry builds the standard tile set: doors that can be
// walled up, walls that can be drilled open, exits and floor.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()

	door := &Element{Symbol: '.', Display: ".", Description: "the door", Family: WallFamily}
	wall := &Element{Symbol: 'O', Display: "O", Description: "the wall", Family: DoorFamily}
	exit := &Element{Symbol: 'U', Display: "U", Description: "the exit"}
	floor := &Element{Symbol: ' ', Display: " ", Description: "the floor"}
	door.Transformed = wall
	wall.Transformed = door

	// The registrations cannot fail: distinct symbols, a single fallback.
	_ = r.Register(door, Decoded|Traversable|Transformable)
	_ = r.Register(wall, Decoded|Transformable)
	_ = r.Register(exit, Decoded|Traversable|Winning)
	_ = r.Register(floor, Traversable|Startable|DefaultFallback)
	return r
}
