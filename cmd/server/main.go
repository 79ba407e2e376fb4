// Command server hosts one maze game: it prompts for a map, listens for
// clients over framed TCP and the WebSocket gateway, and runs the game
// loop until someone wins.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/Trillien/Roboc/bus"
	"github.com/Trillien/Roboc/config"
	"github.com/Trillien/Roboc/control"
	"github.com/Trillien/Roboc/element"
	"github.com/Trillien/Roboc/mapfile"
	"github.com/Trillien/Roboc/maze"
	"github.com/Trillien/Roboc/rule"
	"github.com/Trillien/Roboc/server"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	port := flag.Int("port", cfg.Port, "TCP listening port")
	httpPort := flag.Int("http-port", cfg.HTTPPort, "WebSocket gateway port")
	mapsDir := flag.String("maps", cfg.MapsDir, "directory searched for map files")
	flag.Parse()
	if *port < 0 || *port > 65535 || *httpPort < 0 || *httpPort > 65535 {
		log.Fatalln("ports are numbers between 0 and 65535")
	}

	registry := element.NewDefaultRegistry()
	controls := control.NewDefaultSet()

	chosen := chooseMap(*mapsDir, cfg.MapExt, registry)
	m := maze.New(chosen.Content, chosen.Name, registry, controls, rule.NewDefaultEngine())
	for symbol := range m.UnknownSymbols() {
		log.Warnf("map %s: unknown symbol %q decoded as the default element", chosen.Name, symbol)
	}

	srv := server.NewGameServer(m, bus.New(cfg.BusCapacity), cfg.StartKey)
	addr := fmt.Sprintf(":%d", *port)
	if err := srv.ListenTCP(addr); err != nil {
		log.Fatalln(err)
	}
	log.Infof("Waiting for clients on %s", addr)

	go func() {
		gatewayAddr := fmt.Sprintf(":%d", *httpPort)
		log.Infof("WebSocket gateway on %s%s", gatewayAddr, server.URI_WS)
		if err := http.ListenAndServe(gatewayAddr, srv.Routes()); err != nil {
			log.Warnf("gateway stopped: %v", err)
		}
	}()

	srv.Loop()
	log.Info("Closing down")
}

// chooseMap lists the valid maps of the directory and asks which one to
// play on.
func chooseMap(dir, ext string, registry *element.Registry) mapfile.Map {
	maps, err := mapfile.List(dir, ext)
	if err != nil {
		log.Fatalln(err)
	}
	known := registry.Symbols()
	required := registry.WinningSymbols()
	var playable []mapfile.Map
	for _, m := range maps {
		if err := mapfile.Validate(m.Content, known, required); err != nil {
			log.Warnf("skipping map %s: %v", m.Name, err)
			continue
		}
		playable = append(playable, m)
	}
	if len(playable) == 0 {
		log.Fatalln("no playable map found in", dir)
	}

	fmt.Println("Existing mazes:")
	for i, m := range playable {
		fmt.Printf("  %d - %s\n", i+1, m.Name)
	}
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("Enter a maze number to start playing: ")
		if !scanner.Scan() {
			log.Fatalln("no map selected")
		}
		number, err := strconv.Atoi(scanner.Text())
		if err != nil {
			fmt.Println("You did not enter a number")
			continue
		}
		if number < 1 || number > len(playable) {
			fmt.Println("This maze does not exist")
			continue
		}
		fmt.Println()
		return playable[number-1]
	}
}
