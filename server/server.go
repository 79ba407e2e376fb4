// Package server accepts client connections and drives the game.
//
// Concurrency model: one reader goroutine per connection pushing
// envelopes onto the bus, one writer goroutine per connection draining
// its outbound channel, one acceptor goroutine per listening endpoint,
// and exactly one consumer goroutine (Loop) owning the maze. The maze is
// never touched outside Loop, which is what keeps it lock-free.
package server

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/Trillien/Roboc/bus"
	"github.com/Trillien/Roboc/maze"
	"github.com/Trillien/Roboc/transport"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/matryer/way"
	log "github.com/sirupsen/logrus"
)

// Path of the WebSocket gateway endpoint.
const URI_WS = "/play"

// outboundBuffer bounds the datagrams queued per client. A client that
// stops reading loses messages instead of stalling the game loop.
const outboundBuffer = 16

// client is one connected peer and its outbound queue.
type client struct {
	id   uuid.UUID
	name string
	conn transport.Conn
	out  chan transport.Message
}

// GameServer wires the listening endpoints, the bus and the maze
// together.
type GameServer struct {
	Maze     *maze.Maze
	Bus      *bus.Bus
	StartKey string

	mu      sync.Mutex
	clients map[uuid.UUID]*client

	open     atomic.Bool // accepting new players
	listener net.Listener
	upgrader *websocket.Upgrader
	nameSeq  atomic.Int32
	done     chan struct{}
}

func NewGameServer(m *maze.Maze, b *bus.Bus, startKey string) *GameServer {
	return &GameServer{
		Maze:     m,
		Bus:      b,
		StartKey: startKey,
		clients:  make(map[uuid.UUID]*client),
		upgrader: &websocket.Upgrader{},
		done:     make(chan struct{}),
	}
}

// ListenTCP opens the framed-TCP endpoint and starts accepting.
func (s *GameServer) ListenTCP(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listening on %s: %w", addr, err)
	}
	s.listener = listener
	go s.acceptLoop()
	return nil
}

func (s *GameServer) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
			default:
				log.Warnf("accept: %v", err)
			}
			return
		}
		if !s.open.Load() {
			// The lobby is closed, refuse like an unreachable server.
			_ = conn.Close()
			continue
		}
		s.register(transport.NewTCPConn(conn))
	}
}

// Routes builds the HTTP router of the WebSocket gateway. The gateway
// speaks the same envelope protocol as the TCP endpoint.
func (s *GameServer) Routes() *way.Router {
	router := way.NewRouter()
	router.HandleFunc("GET", URI_WS, s.handleWS)
	return router
}

func (s *GameServer) handleWS(w http.ResponseWriter, r *http.Request) {
	if !s.open.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("websocket upgrade: %v", err)
		return
	}
	s.register(transport.NewWSConn(conn))
}

// register seats a new connection: assigns it an identity and a name,
// starts its reader and writer goroutines, and announces the newcomer
// on the bus.
func (s *GameServer) register(conn transport.Conn) {
	c := &client{
		id:   uuid.New(),
		name: fmt.Sprintf("Player %d", s.nameSeq.Add(1)),
		conn: conn,
		out:  make(chan transport.Message, outboundBuffer),
	}
	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()

	go s.write(c)
	go s.read(c)
	s.Bus.Push(bus.Envelope{Sender: c.id, Category: transport.NewPlayer, Body: c.name})
}

// read forwards inbound messages to the bus. On any connection error it
// pushes the terminal left envelope and exits; that envelope is what
// lets the consumer clean up the player's state, so it is never skipped.
func (s *GameServer) read(c *client) {
	defer s.Bus.Push(bus.Envelope{Sender: c.id, Category: transport.Left})
	for {
		m, err := c.conn.Receive()
		if err != nil {
			if errors.Is(err, transport.ErrMalformed) {
				log.Warnf("%s sent a malformed message: %v", c.name, err)
				continue
			}
			return
		}
		s.Bus.Push(bus.Envelope{Sender: c.id, Category: m.Category, Body: m.Body})
	}
}

// write drains the client's outbound channel onto its connection. The
// channel is closed by dropClient; the connection is closed here once
// drained.
func (s *GameServer) write(c *client) {
	for m := range c.out {
		if err := c.conn.Send(m); err != nil {
			log.Warnf("sending to %s: %v", c.name, err)
		}
	}
	_ = c.conn.Close()
}

// sendTo queues one message for a client. Unknown identities are
// already-dropped clients, their messages evaporate. A full outbound
// buffer drops the message rather than blocking the game loop.
func (s *GameServer) sendTo(id uuid.UUID, m transport.Message) {
	s.mu.Lock()
	c := s.clients[id]
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case c.out <- m:
	default:
		log.Warnf("dropping message to %s, outbound buffer full", c.name)
	}
}

// dropClient forgets a connection. Only the consumer goroutine calls it,
// so no send can race the close of the outbound channel.
func (s *GameServer) dropClient(id uuid.UUID) {
	s.mu.Lock()
	c := s.clients[id]
	delete(s.clients, id)
	s.mu.Unlock()
	if c != nil {
		close(c.out)
	}
}

// Shutdown closes the listener and every remaining connection.
func (s *GameServer) Shutdown() {
	close(s.done)
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.mu.Lock()
	remaining := make([]uuid.UUID, 0, len(s.clients))
	for id := range s.clients {
		remaining = append(remaining, id)
	}
	s.mu.Unlock()
	for _, id := range remaining {
		s.dropClient(id)
	}
}
