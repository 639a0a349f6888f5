package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config lists the tunable parameters for the WardTrack server.
type Config struct {
	HTTPPort        int
	MQTTBindAddress string
	DatabasePath    string
	RosterPath      string // empty means the built-in roster
	PresenceTimeout time.Duration
	LogLevel        string
}

const (
	defaultHTTPPort        = 8080
	defaultMQTTBindAddress = ":1883"
	defaultDatabasePath    = "data/wardtrack.db"
	defaultPresenceMinutes = 5
	defaultLogLevel        = "info"
)

// Load derives configuration values from environment variables, falling back to defaults.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:        defaultHTTPPort,
		MQTTBindAddress: defaultMQTTBindAddress,
		DatabasePath:    defaultDatabasePath,
		PresenceTimeout: defaultPresenceMinutes * time.Minute,
		LogLevel:        defaultLogLevel,
	}

	if v := os.Getenv("WARDTRACK_HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid WARDTRACK_HTTP_PORT: %w", err)
		}
		cfg.HTTPPort = port
	}

	if v := os.Getenv("WARDTRACK_MQTT_BIND"); v != "" {
		cfg.MQTTBindAddress = v
	}

	if v := os.Getenv("WARDTRACK_DATABASE_PATH"); v != "" {
		cfg.DatabasePath = v
	}

	if v := os.Getenv("WARDTRACK_ROSTER_PATH"); v != "" {
		cfg.RosterPath = v
	}

	if v := os.Getenv("WARDTRACK_PRESENCE_TIMEOUT_MINUTES"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil || minutes <= 0 {
			return Config{}, fmt.Errorf("invalid WARDTRACK_PRESENCE_TIMEOUT_MINUTES: %q", v)
		}
		cfg.PresenceTimeout = time.Duration(minutes) * time.Minute
	}

	if v := os.Getenv("WARDTRACK_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	return cfg, nil
}
