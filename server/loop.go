package server

import (
	"errors"
	"strings"

	"github.com/Trillien/Roboc/bus"
	"github.com/Trillien/Roboc/maze"
	"github.com/Trillien/Roboc/transport"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Loop is the single consumer of the bus and the only goroutine that
// ever touches the maze. It drives the game lifecycle: lobby until a
// client types the start key, then the playing loop until the maze
// finishes, then the final announcements and shutdown.
func (s *GameServer) Loop() {
	log.Info("GameServer.Loop starting")
	s.open.Store(s.Maze.Open())

	s.lobby()

	s.open.Store(false)
	log.Info("Game starting")
	s.Maze.Begin()
	s.flush()

	s.play()

	log.Info("Game over")
	s.Maze.Finish()
	s.flush()
	s.Shutdown()
}

// lobby seats players until one of them types the start key.
func (s *GameServer) lobby() {
	for {
		envelope := s.Bus.Pop()
		switch envelope.Category {
		case transport.NewPlayer:
			s.welcome(envelope)
		case transport.Left:
			s.farewell(envelope.Sender)
			s.open.Store(s.Maze.Open())
		case transport.Command:
			if strings.EqualFold(strings.TrimSpace(envelope.Body), s.StartKey) {
				log.Infof("%s pressed '%s'", s.clientName(envelope.Sender), s.StartKey)
				return
			}
		}
	}
}

// welcome seats a newcomer, or turns them away in plain words when the
// lobby is full.
func (s *GameServer) welcome(envelope bus.Envelope) {
	if s.Maze.AddPlayer(envelope.Sender, envelope.Body) == nil {
		s.sendTo(envelope.Sender, transport.Message{
			Category: transport.Display,
			Body:     "The game is full or has already started.",
		})
		s.sendTo(envelope.Sender, transport.Message{Category: transport.End})
		s.dropClient(envelope.Sender)
		return
	}
	s.flush()
	s.sendTo(envelope.Sender, transport.Message{
		Category: transport.ValidationSchema,
		Body:     "[" + s.StartKey + "]",
	})
	s.sendTo(envelope.Sender, transport.Message{
		Category: transport.ValidationError,
		Body:     "Invalid input.",
	})
	s.sendTo(envelope.Sender, transport.Message{
		Category: transport.Display,
		Body:     "Press " + s.StartKey + " to start the game:",
	})
	s.open.Store(s.Maze.Open())
	log.Infof("%s joined", envelope.Body)
}

// play runs the game until the maze reaches its final phase.
func (s *GameServer) play() {
	for s.Maze.Phase() < maze.Finished {
		envelope := s.Bus.Pop()
		switch envelope.Category {
		case transport.Left:
			s.farewell(envelope.Sender)
		case transport.Command:
			if err := s.Maze.QueueCommand(envelope.Sender, envelope.Body); err != nil {
				// Commands from clients that never became players.
				log.Warnf("ignoring command: %v", err)
				continue
			}
			log.Infof("%s entered '%s'", s.clientName(envelope.Sender), envelope.Body)
			s.Maze.Play()
			s.flush()
		}
	}
}

// farewell removes a disconnected client, and its player when it had
// one. A roster desync between loop and maze is a bug, not a condition
// to recover from.
func (s *GameServer) farewell(id uuid.UUID) {
	s.mu.Lock()
	_, known := s.clients[id]
	s.mu.Unlock()
	if !known {
		// Turned away in the lobby, nothing to clean up.
		return
	}
	name := s.clientName(id)
	if err := s.Maze.RemovePlayer(id); err != nil {
		if errors.Is(err, maze.ErrUnknownPlayer) {
			log.Panicf("client/player desync: %v", err)
		}
	}
	s.flush()
	s.dropClient(id)
	log.Infof("%s left the game", name)
}

// flush delivers every datagram the previous maze operations produced.
func (s *GameServer) flush() {
	for _, d := range s.Maze.Datagrams() {
		s.sendTo(d.To, transport.Message{Category: d.Category, Body: d.Body})
	}
}

func (s *GameServer) clientName(id uuid.UUID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.clients[id]; ok {
		return c.name
	}
	return id.String()
}
