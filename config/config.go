// Package config loads the server configuration from the environment.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config holds the server's runtime settings.
type Config struct {
	Port        int    // TCP listening port
	HTTPPort    int    // WebSocket gateway port
	MapsDir     string // directory searched for map files
	MapExt      string // extension of map files
	StartKey    string // key a client types in the lobby to start the game
	BusCapacity int    // message bus backlog
}

// Load reads the configuration from environment variables, after
// loading an optional .env file. Unset variables fall back to
// built-in defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Debugf("no .env file loaded: %v", err)
	}
	return Config{
		Port:        getEnvInt("ROBOC_PORT", 12800),
		HTTPPort:    getEnvInt("ROBOC_HTTP_PORT", 8080),
		MapsDir:     getEnv("ROBOC_MAPS_DIR", "cartes"),
		MapExt:      getEnv("ROBOC_MAP_EXT", ".txt"),
		StartKey:    getEnv("ROBOC_START_KEY", "C"),
		BusCapacity: getEnvInt("ROBOC_BUS_CAPACITY", 0),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Fatalf("environment variable %s must be an integer: %v", key, err)
	}
	return parsed
}
