// Package transport frames and codes messages between server and
// clients.
//
// Over plain TCP a message is a fixed 3-byte big-endian length header
// followed by that many bytes of gob-encoded payload. Over WebSocket the
// same gob payload travels in one binary frame, the framing being the
// socket's own. Both implementations satisfy Conn, so the rest of the
// system treats Send and Receive as atomic operations that either
// succeed or fail with a typed error.
package transport

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/gorilla/websocket"
)

// Category tags a message with its meaning.
type Category string

const (
	// Inbound, client to server.
	NewPlayer Category = "new_player"
	Left      Category = "left"
	Command   Category = "command"

	// Outbound, server to client.
	Display          Category = "display"
	ValidationSchema Category = "validation_schema"
	ValidationError  Category = "validation_error"
	End              Category = "end"
)

// Message is one unit of exchange between server and client.
type Message struct {
	Category Category
	Body     string
}

var (
	// ErrClosed reports that the peer closed or reset the connection.
	ErrClosed = errors.New("transport: connection closed")
	// ErrMalformed reports a payload that could not be decoded.
	ErrMalformed = errors.New("transport: malformed payload")
	// ErrTooLarge reports a payload exceeding the frame capacity.
	ErrTooLarge = errors.New("transport: message exceeds frame capacity")
)

const (
	headerLen  = 3
	maxPayload = 1<<(8*headerLen) - 1
)

// Conn sends and receives whole messages.
type Conn interface {
	Send(Message) error
	Receive() (Message, error)
	Close() error
}

// TCPConn frames gob-encoded messages over a stream connection.
type TCPConn struct {
	conn net.Conn
}

func NewTCPConn(conn net.Conn) *TCPConn {
	return &TCPConn{conn: conn}
}

func (t *TCPConn) Send(m Message) error {
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(m); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	length := payload.Len()
	if length > maxPayload {
		return ErrTooLarge
	}
	frame := make([]byte, 0, headerLen+length)
	frame = append(frame, byte(length>>16), byte(length>>8), byte(length))
	frame = append(frame, payload.Bytes()...)
	if _, err := t.conn.Write(frame); err != nil {
		return fmt.Errorf("%w: %v", ErrClosed, err)
	}
	return nil
}

func (t *TCPConn) Receive() (Message, error) {
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(t.conn, header); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrClosed, err)
	}
	length := int(header[0])<<16 | int(header[1])<<8 | int(header[2])
	payload := make([]byte, length)
	if _, err := io.ReadFull(t.conn, payload); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrClosed, err)
	}
	var m Message
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return m, nil
}

func (t *TCPConn) Close() error {
	return t.conn.Close()
}

// WSConn carries gob-encoded messages in binary WebSocket frames.
type WSConn struct {
	conn *websocket.Conn
}

func NewWSConn(conn *websocket.Conn) *WSConn {
	return &WSConn{conn: conn}
}

func (w *WSConn) Send(m Message) error {
	writer, err := w.conn.NextWriter(websocket.BinaryMessage)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrClosed, err)
	}
	if err := gob.NewEncoder(writer).Encode(m); err != nil {
		_ = writer.Close()
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrClosed, err)
	}
	return nil
}

func (w *WSConn) Receive() (Message, error) {
	_, reader, err := w.conn.NextReader()
	if err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrClosed, err)
	}
	var m Message
	if err := gob.NewDecoder(reader).Decode(&m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return m, nil
}

func (w *WSConn) Close() error {
	return w.conn.Close()
}
