package maze

import (
	"github.com/Trillien/Roboc/control"
	"github.com/google/uuid"
)

// Player is one connected participant: an opaque identity routing
// messages back to the right connection, a display name, a position and
// the queue of commands awaiting their turns.
type Player struct {
	ID   uuid.UUID
	Name string
	Pos  control.Coord

	commands []string
}

func newPlayer(id uuid.UUID, name string) *Player {
	return &Player{ID: id, Name: name}
}

// queueCommands appends parsed commands to the player's backlog.
func (p *Player) queueCommands(commands []string) {
	p.commands = append(p.commands, commands...)
}

// nextCommand pops the oldest pending command.
func (p *Player) nextCommand() (string, bool) {
	if len(p.commands) == 0 {
		return "", false
	}
	command := p.commands[0]
	p.commands = p.commands[1:]
	return command, true
}

// Pending reports how many commands the player has queued.
func (p *Player) Pending() int {
	return len(p.commands)
}
