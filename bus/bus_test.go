package bus

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Trillien/Roboc/transport"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFIFOOrderIsPreserved(t *testing.T) {
	b := New(0)
	sender := uuid.New()
	for i := 0; i < 100; i++ {
		b.Push(Envelope{Sender: sender, Category: transport.Command, Body: fmt.Sprintf("%d", i)})
	}
	for i := 0; i < 100; i++ {
		assert.Equal(t, fmt.Sprintf("%d", i), b.Pop().Body)
	}
}

func TestConcurrentProducersLoseNothing(t *testing.T) {
	const producers = 4
	const perProducer = 25

	b := New(producers * perProducer)
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			sender := uuid.New()
			for i := 0; i < perProducer; i++ {
				b.Push(Envelope{Sender: sender, Body: fmt.Sprintf("%d/%d", p, i)})
			}
		}(p)
	}
	wg.Wait()

	// Every envelope arrives exactly once, and each producer's own
	// sequence stays in order even though producers interleave.
	lastSeen := make(map[uuid.UUID]int)
	for i := 0; i < producers*perProducer; i++ {
		e := b.Pop()
		parts := strings.SplitN(e.Body, "/", 2)
		seq, err := strconv.Atoi(parts[1])
		require.NoError(t, err)
		previous, seen := lastSeen[e.Sender]
		if seen {
			assert.Equal(t, previous+1, seq, "per-producer order must hold")
		} else {
			assert.Equal(t, 0, seq)
		}
		lastSeen[e.Sender] = seq
	}
	assert.Len(t, lastSeen, producers)
}

func TestPopBlocksUntilPush(t *testing.T) {
	b := New(0)
	popped := make(chan Envelope)
	go func() {
		popped <- b.Pop()
	}()

	select {
	case <-popped:
		t.Fatal("Pop returned before anything was pushed")
	case <-time.After(20 * time.Millisecond):
	}

	b.Push(Envelope{Body: "wake up"})
	select {
	case e := <-popped:
		assert.Equal(t, "wake up", e.Body)
	case <-time.After(time.Second):
		t.Fatal("Pop never woke up")
	}
}

func TestResetDiscardsPending(t *testing.T) {
	b := New(0)
	b.Push(Envelope{Body: "stale"})
	b.Push(Envelope{Body: "stale too"})
	b.Reset()
	b.Push(Envelope{Body: "fresh"})
	assert.Equal(t, "fresh", b.Pop().Body)
}
