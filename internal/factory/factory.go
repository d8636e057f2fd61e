package factory

import (
	"errors"
	"io"
	"log/slog"

	"github.com/chessroom/chessroom/internal/dependencies/clock"
	"github.com/chessroom/chessroom/internal/dependencies/random"
	"github.com/chessroom/chessroom/internal/realtime/game"
	"github.com/chessroom/chessroom/internal/realtime/hub"
	"github.com/chessroom/chessroom/internal/services/match"
	"github.com/chessroom/chessroom/internal/services/room"
	"github.com/chessroom/chessroom/internal/services/session"
	"github.com/chessroom/chessroom/internal/storage"
	"github.com/chessroom/chessroom/internal/storage/memory"
	redisstorage "github.com/chessroom/chessroom/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Registry  *room.Registry
	Recorder  *match.Recorder
	Authority *session.Authority

	// Realtime
	Hub   *hub.Hub
	Relay *game.Relay
}

// Config holds configuration for the application factory
type Config struct {
	// SessionConfig holds configuration for the session authority (optional)
	// If zero value, defaults to session.DefaultConfig()
	SessionConfig session.Config
	// HubConfig holds configuration for the realtime hub (optional)
	// If zero value, defaults to hub.DefaultConfig()
	HubConfig hub.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	clk := clock.New()
	rnd := random.New()

	return newWithDependencies(store, clk, rnd, cfg.SessionConfig, cfg.HubConfig, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, sessionCfg session.Config, hubCfg hub.Config, logger *slog.Logger) *App {
	recorder := match.NewRecorder(store, clk, rnd, logger)
	registry := room.NewRegistry(store, recorder, clk, logger)
	authority := session.NewAuthority(store, clk, rnd, sessionCfg, logger)

	realtimeHub := hub.New(hubCfg, logger)
	relay := game.NewRelay(realtimeHub, registry, recorder, logger)

	return &App{
		Storage:   store,
		Clock:     clk,
		Random:    rnd,
		Registry:  registry,
		Recorder:  recorder,
		Authority: authority,
		Hub:       realtimeHub,
		Relay:     relay,
	}
}
