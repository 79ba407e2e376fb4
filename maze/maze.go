// Package maze holds the authoritative game state: the grid of
// elements, the player roster, the turn order and the game lifecycle.
//
// A Maze is owned by exactly one goroutine, the server loop, and is
// therefore lock-free. Every operation that changes visible state
// appends outbound datagrams that the owner flushes to the connected
// clients afterwards.
package maze

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/Trillien/Roboc/control"
	"github.com/Trillien/Roboc/element"
	"github.com/Trillien/Roboc/rule"
	"github.com/Trillien/Roboc/transport"
	"github.com/google/uuid"
)

// Phase is the game lifecycle state. Transitions are monotonic:
// Lobby -> Playing -> Finished, never backwards.
type Phase int

const (
	Lobby Phase = iota
	Playing
	Finished
)

// Datagram is one outbound message addressed to a single client.
type Datagram struct {
	To       uuid.UUID
	Category transport.Category
	Body     string
}

// ErrUnknownPlayer reports an operation on a client identity the roster
// does not contain. It indicates a state desync bug between the server
// loop and the maze, never a user mistake.
var ErrUnknownPlayer = errors.New("maze: unknown player identity")

// Grid maps coordinates to elements. Coordinates it does not define
// resolve to the registry's fallback element.
type Grid map[control.Coord]*element.Element

// Board glyphs for the viewing player and everyone else.
const (
	robotGlyph    = "X"
	opponentGlyph = "x"
)

// Maze is the board state machine.
type Maze struct {
	name     string
	registry *element.Registry
	controls *control.Set
	engine   *rule.Engine

	grid    Grid
	exits   []control.Coord
	starts  []control.Coord // ranked by ascending distance from an exit
	unknown map[rune]struct{}

	roster  map[uuid.UUID]*Player
	queue   []*Player // turn order, head acts next
	phase   Phase
	winner  *Player
	current *Player

	datagrams []Datagram
}

// New decodes a multi-line map into a grid and computes the ranked
// start positions. Symbols that resolve to no registered element are
// recorded for diagnostics and fall back to the default element.
func New(mapText, name string, registry *element.Registry, controls *control.Set, engine *rule.Engine) *Maze {
	m := &Maze{
		name:     name,
		registry: registry,
		controls: controls,
		engine:   engine,
		grid:     make(Grid),
		unknown:  make(map[rune]struct{}),
		roster:   make(map[uuid.UUID]*Player),
	}
	m.decode(mapText)
	m.rankStarts()
	return m
}

func (m *Maze) decode(mapText string) {
	for y, line := range strings.Split(mapText, "\n") {
		for x, symbol := range line {
			if !m.registry.Known(symbol) {
				m.unknown[symbol] = struct{}{}
			}
			e := m.registry.Resolve(symbol)
			coord := control.Coord{X: x, Y: y}
			if e.Has(element.Winning) {
				m.exits = append(m.exits, coord)
			}
			if e.Has(element.Decoded) {
				m.grid[coord] = e
			}
		}
	}
}

// rankStarts walks the board outwards from the exits, following the
// registered movement directions, and collects every startable cell by
// ascending distance. A traversable cell extends the search at d+1, a
// cell transformable into a traversable one at d+2 (the extra step
// reflects the cost of transforming through it). Candidates found at
// the same distance are shuffled so map scan order gives no player an
// edge.
func (m *Maze) rankStarts() {
	min, max := m.bounds()
	visited := make(map[control.Coord]int, len(m.exits))
	for _, exit := range m.exits {
		visited[exit] = 0
	}
	for distance := 0; ; distance++ {
		pending := false
		var frontier []control.Coord
		for pos, d := range visited {
			if d >= distance {
				pending = true
			}
			if d == distance {
				frontier = append(frontier, pos)
			}
		}
		if !pending {
			break
		}
		var found []control.Coord
		for _, pos := range frontier {
			for _, direction := range m.controls.Directions() {
				coord := pos.Add(direction)
				if coord.X < min.X || coord.X > max.X || coord.Y < min.Y || coord.Y > max.Y {
					continue
				}
				if _, seen := visited[coord]; seen {
					continue
				}
				terrain := m.at(coord)
				switch {
				case terrain.Has(element.Startable):
					visited[coord] = distance + 1
					found = append(found, coord)
				case terrain.Has(element.Traversable):
					visited[coord] = distance + 1
				case terrain.Has(element.Transformable) && terrain.Transformed.Has(element.Traversable):
					visited[coord] = distance + 2
				}
			}
		}
		if len(found) > 0 {
			rand.Shuffle(len(found), func(i, j int) {
				found[i], found[j] = found[j], found[i]
			})
			m.starts = append(m.starts, found...)
		}
	}
}

// at resolves a coordinate through the grid or the fallback element.
func (m *Maze) at(coord control.Coord) *element.Element {
	if e, ok := m.grid[coord]; ok {
		return e
	}
	return m.registry.Default()
}

// bounds returns the two extreme corners of the board. The board is not
// fixed-size: players can walk beyond the decoded grid, so once the game
// runs their positions stretch the bounding box.
func (m *Maze) bounds() (control.Coord, control.Coord) {
	coords := make([]control.Coord, 0, len(m.grid)+len(m.queue))
	for coord := range m.grid {
		coords = append(coords, coord)
	}
	if m.phase >= Playing {
		for _, p := range m.queue {
			coords = append(coords, p.Pos)
		}
	}
	if len(coords) == 0 {
		return control.Coord{}, control.Coord{}
	}
	min, max := coords[0], coords[0]
	for _, c := range coords[1:] {
		if c.X < min.X {
			min.X = c.X
		}
		if c.X > max.X {
			max.X = c.X
		}
		if c.Y < min.Y {
			min.Y = c.Y
		}
		if c.Y > max.Y {
			max.Y = c.Y
		}
	}
	return min, max
}

// Render draws the board as text for one viewer: the viewer as X, every
// opponent as x, then the decoded grid with the fallback filling the
// holes. A nil viewer (before the game starts) renders the bare board.
func (m *Maze) Render(viewer *Player) string {
	min, max := m.bounds()
	var opponents []control.Coord
	var viewerPos *control.Coord
	if m.phase >= Playing && viewer != nil {
		for _, p := range m.queue {
			if p != viewer {
				opponents = append(opponents, p.Pos)
			}
		}
		viewerPos = &viewer.Pos
	}

	var board strings.Builder
	for y := min.Y; y <= max.Y; y++ {
	cell:
		for x := min.X; x <= max.X; x++ {
			coord := control.Coord{X: x, Y: y}
			if viewerPos != nil && coord == *viewerPos {
				board.WriteString(robotGlyph)
				continue
			}
			for _, opponent := range opponents {
				if coord == opponent {
					board.WriteString(opponentGlyph)
					continue cell
				}
			}
			board.WriteString(m.at(coord).Display)
		}
		board.WriteString("\n")
	}
	return board.String()
}

// Accessors used by the server loop and diagnostics.

func (m *Maze) Phase() Phase                      { return m.phase }
func (m *Maze) Winner() *Player                   { return m.winner }
func (m *Maze) Name() string                      { return m.name }
func (m *Maze) Exits() []control.Coord            { return m.exits }
func (m *Maze) Starts() []control.Coord           { return m.starts }
func (m *Maze) UnknownSymbols() map[rune]struct{} { return m.unknown }

// ValidationPattern returns the input schema clients must match once
// the game runs.
func (m *Maze) ValidationPattern() string {
	return m.controls.ValidationPattern()
}

// Open reports whether the maze can still seat a new player: only
// before the game starts, and only while ranked start positions remain.
func (m *Maze) Open() bool {
	return len(m.queue) < len(m.starts)
}

// Datagrams drains the outbound messages accumulated by the previous
// operations, oldest first.
func (m *Maze) Datagrams() []Datagram {
	d := m.datagrams
	m.datagrams = nil
	return d
}

func (m *Maze) send(to uuid.UUID, category transport.Category, body string) {
	m.datagrams = append(m.datagrams, Datagram{To: to, Category: category, Body: body})
}

func (m *Maze) display(to uuid.UUID, body string) {
	m.send(to, transport.Display, body)
}

// broadcastBoard sends every client its own view of the board.
func (m *Maze) broadcastBoard() {
	for id, p := range m.roster {
		m.display(id, m.Render(p))
		m.display(id, "")
	}
}

// announceTurn tells every client whose turn it is. Nothing is
// announced once the game is over.
func (m *Maze) announceTurn() {
	if m.phase >= Finished {
		return
	}
	for id, p := range m.roster {
		if m.queue[0] == p {
			m.display(id, "It is your turn to play")
		} else {
			m.display(id, "It is "+m.queue[0].Name+"'s turn to play")
		}
	}
}

// AddPlayer seats a new player and queues their welcome messages.
// It succeeds only in the lobby phase and only while a ranked start
// position remains unclaimed; otherwise it returns nil and the caller
// must tell the client in plain words.
func (m *Maze) AddPlayer(id uuid.UUID, name string) *Player {
	if m.phase != Lobby || !m.Open() {
		return nil
	}
	p := newPlayer(id, name)
	m.roster[id] = p
	m.queue = append(m.queue, p)

	m.display(id, "")
	m.display(id, "Welcome, "+name+".")
	m.display(id, "You are playing on maze '"+m.name+"'")
	m.display(id, m.Render(nil))
	return p
}

// RemovePlayer takes a player out of the game. Once the game runs, a
// roster reduced to one player (or none) finishes the game and crowns
// the survivor. Removing an identity the roster does not contain is a
// programming error and is reported as such.
func (m *Maze) RemovePlayer(id uuid.UUID) error {
	p, ok := m.roster[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, id)
	}
	delete(m.roster, id)
	for i, queued := range m.queue {
		if queued == p {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			break
		}
	}
	if m.phase >= Playing {
		if len(m.queue) <= 1 {
			m.phase = Finished
			if len(m.queue) == 1 {
				m.winner = m.queue[0]
			}
		}
		for other := range m.roster {
			m.display(other, p.Name+" has left the game.")
		}
		m.broadcastBoard()
		m.announceTurn()
	}
	return nil
}

// Begin starts the game: assigns start positions and play order, then
// announces the rules of engagement to every client.
//
// The base index is drawn from [0, len(starts)-len(roster)] and the
// shuffled roster receives consecutive ranked positions from there, so
// players land in adjacent distance bands rather than clustering by
// join order. One shuffle decides both seating and turn order.
func (m *Maze) Begin() {
	m.phase = Playing

	base := rand.Intn(len(m.starts) - len(m.queue) + 1)
	rand.Shuffle(len(m.queue), func(i, j int) {
		m.queue[i], m.queue[j] = m.queue[j], m.queue[i]
	})
	for i, p := range m.queue {
		p.Pos = m.starts[base+i]
	}

	for id := range m.roster {
		m.send(id, transport.ValidationSchema, m.controls.ValidationPattern())
		m.send(id, transport.ValidationError, "This input is not valid!")
		m.display(id, "The game begins! You are "+strconv.Itoa(len(m.queue))+" players")
		for _, description := range m.controls.Descriptions() {
			m.display(id, description)
		}
	}
	m.broadcastBoard()
	m.announceTurn()
}

// QueueCommand extracts the atomic commands from a raw input line and
// appends them to the sender's backlog, echoing the extraction back.
func (m *Maze) QueueCommand(id uuid.UUID, input string) error {
	p, ok := m.roster[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, id)
	}
	commands := m.controls.Extract(input)
	p.queueCommands(commands)
	if p.Pending() > 0 {
		m.display(id, "Commands: "+strings.Join(commands, " "))
	}
	return nil
}

// Play runs queued commands in turn order until the player whose turn
// it is has none left, or the game finishes.
//
// The head of the turn queue acts next. A player with no pending
// command keeps the turn: they are put back at the head and the loop
// stops, nobody is skipped. A command that violates a rule is reported
// to its author only and the author keeps the turn; the failed command
// is consumed, not retried. A valid command is applied (movement or
// transformation), the author goes to the back of the queue and the
// board is broadcast. A winning move finishes the game and is still
// applied, so the final board shows the winner on the exit.
func (m *Maze) Play() {
	for m.phase < Finished {
		m.current = m.queue[0]
		m.queue = m.queue[1:]
		command, ok := m.current.nextCommand()
		if !ok {
			m.queue = append([]*Player{m.current}, m.queue...)
			m.current = nil
			return
		}
		direction, transform := m.controls.Decode(command)
		snapshot := m.snapshot(direction, transform)
		result := m.engine.CheckAll(&snapshot)
		switch result.Kind {
		case rule.Violation:
			m.display(m.current.ID, result.Reason)
			m.queue = append([]*Player{m.current}, m.queue...)
			m.current = nil
			continue
		case rule.Won:
			m.phase = Finished
			m.winner = m.current
		}

		if transform != nil {
			transformed := snapshot.Obstacle.Transformed
			if snapshot.Obstacle.Has(element.Transformable) && transformed.Has(element.Decoded) {
				m.grid[snapshot.Target] = transformed
			} else {
				delete(m.grid, snapshot.Target)
			}
		} else {
			m.current.Pos = snapshot.Target
		}

		m.queue = append(m.queue, m.current)
		m.current = nil
		m.broadcastBoard()
		m.announceTurn()
	}
}

// snapshot projects the state one rule check needs: the target cell and
// the opponents of the player about to act. m.current has already been
// popped, so the queue holds exactly the opponents.
func (m *Maze) snapshot(direction control.Coord, transform *control.Transform) rule.Snapshot {
	target := m.current.Pos.Add(direction)
	opponents := make([]control.Coord, 0, len(m.queue))
	for _, p := range m.queue {
		opponents = append(opponents, p.Pos)
	}
	return rule.Snapshot{
		Target:    target,
		Obstacle:  m.at(target),
		Transform: transform,
		Opponents: opponents,
	}
}

// Finish names the winner (or nobody) to every remaining client and
// tells them the game is over.
func (m *Maze) Finish() {
	for id, p := range m.roster {
		if m.winner == p {
			m.display(id, "You have won the game!")
		} else if m.winner != nil {
			m.display(id, m.winner.Name+" has won the game!")
		}
		m.send(id, transport.End, "")
	}
}
