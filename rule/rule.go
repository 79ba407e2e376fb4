// Package rule validates proposed moves against the maze rules.
//
// Rules are pure functions evaluated against an ephemeral snapshot of
// the board, which keeps them side-effect free and independently
// testable, and keeps the maze state machine free of validation logic.
// The outcome is an explicit variant value, never an error or a panic:
// winning and rule violations are expected, frequent results.
package rule

import (
	"github.com/Trillien/Roboc/control"
	"github.com/Trillien/Roboc/element"
)

// Kind discriminates the outcome of a rule check.
type Kind int

const (
	// Ok means the move passed every rule.
	Ok Kind = iota
	// Violation means the move breaks a rule; Reason explains why.
	Violation
	// Won means the move lands the player on a winning element.
	Won
)

// Result is the outcome of evaluating one rule, or of a whole rule set.
type Result struct {
	Kind   Kind
	Reason string
}

// Snapshot is a read-only projection of the board built fresh for each
// single-step validation. It lives for one check call only.
type Snapshot struct {
	// Target is the coordinate the move or transformation aims at.
	Target control.Coord
	// Obstacle is the element at Target, the registry fallback when the
	// grid defines nothing there.
	Obstacle *element.Element
	// Transform is the requested transformation, nil for a plain move.
	Transform *control.Transform
	// Opponents holds the coordinates of every other player.
	Opponents []control.Coord
}

// Rule checks one aspect of a snapshot.
type Rule func(*Snapshot) Result

// Engine holds the movement and transformation rule sets. Both are open
// for extension through Register calls; rules run in registration order
// and the first non-Ok result short-circuits the rest, so violation
// checks must be registered before win checks.
type Engine struct {
	movement  []Rule
	transform []Rule
}

func NewEngine() *Engine {
	return &Engine{}
}

// RegisterMovement appends a rule to the movement set.
func (e *Engine) RegisterMovement(r Rule) {
	e.movement = append(e.movement, r)
}

// RegisterTransform appends a rule to the transformation set.
func (e *Engine) RegisterTransform(r Rule) {
	e.transform = append(e.transform, r)
}

// CheckAll evaluates the movement set when the snapshot carries no
// transformation, the transformation set otherwise.
func (e *Engine) CheckAll(s *Snapshot) Result {
	rules := e.movement
	if s.Transform != nil {
		rules = e.transform
	}
	for _, r := range rules {
		if result := r(s); result.Kind != Ok {
			return result
		}
	}
	return Result{Kind: Ok}
}

// CrossObstacle rejects moves onto elements that cannot be walked
// through.
func CrossObstacle(s *Snapshot) Result {
	if !s.Obstacle.Has(element.Traversable) {
		return Result{Kind: Violation, Reason: "You cannot cross " + s.Obstacle.Description + "!"}
	}
	return Result{Kind: Ok}
}

// MeetOpponent rejects moves and transformations aimed at a coordinate
// another player occupies.
func MeetOpponent(s *Snapshot) Result {
	for _, opponent := range s.Opponents {
		if s.Target == opponent {
			return Result{Kind: Violation, Reason: "A player already occupies " + s.Obstacle.Description + "!"}
		}
	}
	return Result{Kind: Ok}
}

// WinGame turns a move onto a winning element into a win.
func WinGame(s *Snapshot) Result {
	if s.Obstacle.Has(element.Winning) {
		return Result{Kind: Won}
	}
	return Result{Kind: Ok}
}

// TransformObstacle rejects transformations whose family does not match
// the target element.
func TransformObstacle(s *Snapshot) Result {
	if s.Transform != nil {
		if !s.Obstacle.Has(element.Transformable) || s.Obstacle.Family != s.Transform.Family {
			return Result{Kind: Violation,
				Reason: "You cannot " + s.Transform.Verb + " " + s.Obstacle.Description + "!"}
		}
	}
	return Result{Kind: Ok}
}

// NewDefaultEngine builds the standard rule sets. Movement: the target
// must be traversable, free of opponents, and reaching a winning element
// ends the game. Transformation: the target must be free of opponents
// and belong to the requested family.
func NewDefaultEngine() *Engine {
	e := NewEngine()
	e.RegisterMovement(CrossObstacle)
	e.RegisterMovement(MeetOpponent)
	e.RegisterMovement(WinGame)
	e.RegisterTransform(MeetOpponent)
	e.RegisterTransform(TransformObstacle)
	return e
}
