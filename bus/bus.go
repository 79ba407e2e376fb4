// Package bus carries envelopes from the network listeners to the game
// loop.
//
// Every producer goroutine (one per connection) pushes envelopes, a
// single consumer pops them in strict FIFO order. Serializing all game
// state mutations through the bus is what lets the maze stay free of
// locks: only the consumer ever touches it.
package bus

import (
	"github.com/Trillien/Roboc/transport"
	"github.com/google/uuid"
)

// Envelope is one message in flight between a listener and the game
// loop: who sent it, what it is, and its payload.
type Envelope struct {
	Sender   uuid.UUID
	Category transport.Category
	Body     string
}

// Bus is a multi-producer, single-consumer FIFO queue built on a
// buffered channel. Ordering across producers is arrival order; there is
// no priority, no loss and no deduplication. Push blocks a producer only
// when the consumer lags by more than the configured capacity.
type Bus struct {
	envelopes chan Envelope
}

// DefaultCapacity bounds the backlog a stalled consumer can accumulate.
const DefaultCapacity = 256

func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{envelopes: make(chan Envelope, capacity)}
}

// Push appends an envelope. Safe to call from any goroutine.
func (b *Bus) Push(e Envelope) {
	b.envelopes <- e
}

// Pop removes and returns the oldest envelope, blocking until one is
// present. Exactly one goroutine may call Pop in a loop.
func (b *Bus) Pop() Envelope {
	return <-b.envelopes
}

// Reset discards every pending envelope. Only meant for use between
// games or test runs, never concurrently with live producers.
func (b *Bus) Reset() {
	for {
		select {
		case <-b.envelopes:
		default:
			return
		}
	}
}
