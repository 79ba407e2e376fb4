// Command client connects to a maze server, prints what the server
// sends and forwards the player's input, validated locally against the
// schema the server shipped.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"regexp"
	"sync"

	"github.com/Trillien/Roboc/control"
	"github.com/Trillien/Roboc/transport"
	log "github.com/sirupsen/logrus"
)

// quitKey leaves the game at any moment.
const quitKey = "Q"

// validator holds the last validation schema the server shipped. Input
// entered before any schema arrives is dropped without complaint: the
// server has not told us yet what a valid line looks like.
type validator struct {
	mu      sync.Mutex
	pattern *regexp.Regexp
	message string
}

func (v *validator) configure(category transport.Category, body string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	switch category {
	case transport.ValidationSchema:
		pattern, err := regexp.Compile("^(?:" + body + ")$")
		if err != nil {
			log.Warnf("server sent an invalid schema: %v", err)
			return
		}
		v.pattern = pattern
	case transport.ValidationError:
		v.message = body
	}
}

// check returns whether the input may be sent and, when it may not, the
// message to show.
func (v *validator) check(input string) (bool, string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.pattern == nil {
		return false, ""
	}
	if v.pattern.MatchString(input) {
		return true, ""
	}
	return false, v.message
}

func main() {
	address := flag.String("address", "localhost", "server address")
	port := flag.Int("port", 12800, "server port")
	flag.Parse()
	if *port < 0 || *port > 65535 {
		log.Fatalln("the port is a number between 0 and 65535")
	}

	conn := dial(fmt.Sprintf("%s:%d", *address, *port))
	defer conn.Close()
	tc := transport.NewTCPConn(conn)

	v := &validator{}
	over := make(chan struct{})
	go receive(tc, v, over)

	fmt.Println("Type " + quitKey + " to quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		input := control.Normalize(scanner.Text())
		if input == quitKey {
			return
		}
		select {
		case <-over:
			// Game over, only the quit key matters now.
			continue
		default:
		}
		ok, message := v.check(input)
		if !ok {
			if message != "" {
				fmt.Println(message)
			}
			continue
		}
		if err := tc.Send(transport.Message{Category: transport.Command, Body: input}); err != nil {
			log.Warnf("sending: %v", err)
			return
		}
	}
}

// dial connects to the server, offering to retry when it is unreachable.
func dial(addr string) net.Conn {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Println("Connecting to the server...")
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			fmt.Println("Connected to the server.")
			return conn
		}
		fmt.Printf("Could not connect to %s\n", addr)
		for {
			fmt.Print("Do you want to retry (O/N)? ")
			if !scanner.Scan() {
				os.Exit(0)
			}
			answer := control.Normalize(scanner.Text())
			if answer == "N" || answer == quitKey {
				os.Exit(0)
			}
			if answer == "O" {
				break
			}
		}
	}
}

// receive prints server messages and tracks the validation parameters
// until the server ends the game or the connection drops.
func receive(conn transport.Conn, v *validator, over chan struct{}) {
	for {
		m, err := conn.Receive()
		if err != nil {
			if errors.Is(err, transport.ErrMalformed) {
				log.Warnf("malformed message: %v", err)
				continue
			}
			fmt.Println("Connection closed by the server.")
			fmt.Println("Type " + quitKey + " to quit")
			close(over)
			return
		}
		switch m.Category {
		case transport.Display:
			fmt.Println(m.Body)
		case transport.ValidationSchema, transport.ValidationError:
			v.configure(m.Category, m.Body)
		case transport.End:
			if m.Body != "" {
				fmt.Println(m.Body)
			}
			fmt.Println("Type " + quitKey + " to quit")
			close(over)
			return
		}
	}
}
