package transport

import (
	"bytes"
	"encoding/gob"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTCPRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	sent := Message{Category: Command, Body: "N3E2"}
	go func() {
		_ = NewTCPConn(client).Send(sent)
	}()

	received, err := NewTCPConn(server).Receive()
	require.NoError(t, err)
	assert.Equal(t, sent, received)
}

func TestTCPFrameLayout(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	sent := Message{Category: Display, Body: "hello"}
	go func() {
		_ = NewTCPConn(client).Send(sent)
	}()

	// The frame is written in one call: a 3-byte big-endian length
	// header followed by exactly that many payload bytes.
	raw := make([]byte, 4096)
	n, err := server.Read(raw)
	require.NoError(t, err)
	require.Greater(t, n, headerLen)

	length := int(raw[0])<<16 | int(raw[1])<<8 | int(raw[2])
	assert.Equal(t, n-headerLen, length)

	var decoded Message
	require.NoError(t, gob.NewDecoder(bytes.NewReader(raw[headerLen:n])).Decode(&decoded))
	assert.Equal(t, sent, decoded)
}

func TestTCPReceiveFromClosedPeer(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	require.NoError(t, client.Close())

	_, err := NewTCPConn(server).Receive()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestTCPReceiveMalformedPayload(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go func() {
		// A well-framed message whose payload is not a gob stream.
		_, _ = client.Write([]byte{0, 0, 3, 'b', 'a', 'd'})
	}()

	_, err := NewTCPConn(server).Receive()
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestWSRoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		conn := NewWSConn(ws)
		m, err := conn.Receive()
		require.NoError(t, err)
		require.NoError(t, conn.Send(m))
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	conn := NewWSConn(ws)
	defer conn.Close()

	sent := Message{Category: ValidationSchema, Body: "[C]"}
	require.NoError(t, conn.Send(sent))
	received, err := conn.Receive()
	require.NoError(t, err)
	assert.Equal(t, sent, received)
}
