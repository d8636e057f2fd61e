package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds server configuration loaded from the environment
type Config struct {
	Host string `env:"HOST" envDefault:""`
	Port int    `env:"PORT" envDefault:"8080"`

	// StorageType selects the storage backend ("memory" or "redis")
	StorageType string `env:"STORAGE_TYPE" envDefault:"memory"`
	RedisURL    string `env:"REDIS_URL"`

	// SessionPollInterval is how often clients are expected to revalidate
	// their session. A superseded client can keep acting for up to one
	// interval before being cut off; that staleness window is accepted.
	SessionPollInterval time.Duration `env:"SESSION_POLL_INTERVAL" envDefault:"15s"`

	// HeartbeatTimeout is how long a realtime connection may stay silent
	// before it is forcibly disconnected
	HeartbeatTimeout time.Duration `env:"HEARTBEAT_TIMEOUT" envDefault:"60s"`

	// SendQueueSize is the per-connection outbound message buffer
	SendQueueSize int `env:"SEND_QUEUE_SIZE" envDefault:"64"`
}

// Load parses configuration from environment variables
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
