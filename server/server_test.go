package server

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Trillien/Roboc/bus"
	"github.com/Trillien/Roboc/control"
	"github.com/Trillien/Roboc/element"
	"github.com/Trillien/Roboc/maze"
	"github.com/Trillien/Roboc/rule"
	"github.com/Trillien/Roboc/transport"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoSeatMap has exactly two ranked start positions.
const twoSeatMap = "OOOO\nO  U\nOOOO"

func newTestServer(t *testing.T) *GameServer {
	t.Helper()
	m := maze.New(twoSeatMap, "test",
		element.NewDefaultRegistry(), control.NewDefaultSet(), rule.NewDefaultEngine())
	return NewGameServer(m, bus.New(0), "C")
}

// testClient talks to the server through an in-memory pipe, collecting
// everything the server sends.
type testClient struct {
	conn     transport.Conn
	raw      net.Conn
	messages chan transport.Message
}

// connect registers a new connection the way the acceptor would.
func connect(t *testing.T, s *GameServer) *testClient {
	t.Helper()
	clientSide, serverSide := net.Pipe()
	s.register(transport.NewTCPConn(serverSide))

	c := &testClient{
		conn:     transport.NewTCPConn(clientSide),
		raw:      clientSide,
		messages: make(chan transport.Message, 64),
	}
	go func() {
		defer close(c.messages)
		for {
			m, err := c.conn.Receive()
			if err != nil {
				return
			}
			c.messages <- m
		}
	}()
	t.Cleanup(func() { _ = c.raw.Close() })
	return c
}

// expect consumes messages until one matches, failing on timeout.
func (c *testClient) expect(t *testing.T, category transport.Category, contains string) transport.Message {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case m, ok := <-c.messages:
			if !ok {
				t.Fatalf("connection closed while waiting for %s %q", category, contains)
			}
			if m.Category == category && strings.Contains(m.Body, contains) {
				return m
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s %q", category, contains)
		}
	}
}

func (c *testClient) send(t *testing.T, body string) {
	t.Helper()
	require.NoError(t, c.conn.Send(transport.Message{Category: transport.Command, Body: body}))
}

func TestGameLifecycle(t *testing.T) {
	s := newTestServer(t)
	go s.Loop()

	one := connect(t, s)
	one.expect(t, transport.Display, "Welcome, Player 1.")
	one.expect(t, transport.ValidationSchema, "[C]")
	one.expect(t, transport.Display, "Press C to start the game:")

	two := connect(t, s)
	two.expect(t, transport.Display, "Welcome, Player 2.")

	one.send(t, "C")
	one.expect(t, transport.ValidationSchema, "N")
	one.expect(t, transport.Display, "The game begins! You are 2 players")
	two.expect(t, transport.Display, "The game begins! You are 2 players")

	// The survivor wins when the opponent disconnects mid-game.
	_ = two.raw.Close()
	one.expect(t, transport.Display, "Player 2 has left the game.")
	one.expect(t, transport.Display, "You have won the game!")
	one.expect(t, transport.End, "")

	assert.Equal(t, maze.Finished, s.Maze.Phase())
}

func TestLateClientIsTurnedAwayPolitely(t *testing.T) {
	s := newTestServer(t)
	go s.Loop()

	one := connect(t, s)
	one.expect(t, transport.Display, "Welcome, Player 1.")
	two := connect(t, s)
	two.expect(t, transport.Display, "Welcome, Player 2.")

	// Both seats are taken now.
	three := connect(t, s)
	three.expect(t, transport.Display, "The game is full or has already started.")
	three.expect(t, transport.End, "")
}

func TestCommandsAreValidatedByTheMaze(t *testing.T) {
	s := newTestServer(t)
	go s.Loop()

	one := connect(t, s)
	one.expect(t, transport.Display, "Welcome, Player 1.")
	two := connect(t, s)
	two.expect(t, transport.Display, "Welcome, Player 2.")

	one.send(t, "C")
	one.expect(t, transport.Display, "The game begins")
	two.expect(t, transport.Display, "The game begins")

	// Whoever holds the turn, walking north runs into the outer wall.
	one.send(t, "N")
	two.send(t, "N")
	deadline := time.After(2 * time.Second)
	for {
		select {
		case m := <-one.messages:
			if m.Category == transport.Display && strings.Contains(m.Body, "You cannot cross the wall!") {
				return
			}
		case m := <-two.messages:
			if m.Category == transport.Display && strings.Contains(m.Body, "You cannot cross the wall!") {
				return
			}
		case <-deadline:
			t.Fatal("no rule violation was reported")
		}
	}
}

func TestGatewayRefusesWhenClosed(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + URI_WS
	_, response, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, response)
	assert.Equal(t, http.StatusServiceUnavailable, response.StatusCode)
}

func TestGatewaySeatsPlayersWhenOpen(t *testing.T) {
	s := newTestServer(t)
	go s.Loop()
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()
	s.open.Store(true)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + URI_WS
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	conn := transport.NewWSConn(ws)
	for {
		m, err := conn.Receive()
		require.NoError(t, err)
		if m.Category == transport.Display && strings.Contains(m.Body, "Welcome, Player 1.") {
			return
		}
	}
}
