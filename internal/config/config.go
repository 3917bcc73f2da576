// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for all game and server settings.
//
// IMPORTANT: When changing values, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
	"time"
)

// =============================================================================
// GAME CONFIGURATION
// =============================================================================

// GameConfig holds the per-room simulation settings.
// These values are shared between the tick orchestrator, the bomb engine,
// the fog-of-war computation and the bot AI.
type GameConfig struct {
	GridWidth  int // Arena width in tiles (border included)
	GridHeight int // Arena height in tiles (border included)
	TickRate   int // Simulation ticks per second
	MaxPlayers int // Humans + bots per room

	// Bomb engine
	FuseTime          time.Duration // Base fuse (quick_fuse level 0)
	ExplosionDuration time.Duration // How long an explosion is rendered
	BombSlideSpeed    float64       // Tiles per second for kicked bombs

	// Fog of war
	FogRadius         int           // Base perception radius (eagle_eye level 0)
	BombAudioRange    float64       // Ticking audible within this range, LOS ignored
	BombWarningTime   time.Duration // Bombs pierce fog during this final window
	BombWarningRange  float64       // Extra tiles beyond fog radius during warning
	ExplosionVisRange float64       // Explosions perceptible within this flat range

	// Power-ups
	PowerUpDropChance float64 // Per destroyed block
	PowerUpChoices    int     // Choices offered per drop

	// Shrink zone
	ShrinkStartDelay time.Duration // After round start before first contraction
	ShrinkInterval   time.Duration // Between contractions
	ShrinkAmount     int           // Cells removed per edge per contraction

	// Bot AI
	BotDecisionInterval time.Duration // Minimum time between bot re-evaluations
}

// DefaultGame returns the default game configuration.
func DefaultGame() GameConfig {
	return GameConfig{
		GridWidth:  15,
		GridHeight: 13,
		TickRate:   20,
		MaxPlayers: 4,

		FuseTime:          3 * time.Second,
		ExplosionDuration: 500 * time.Millisecond,
		BombSlideSpeed:    5,

		FogRadius:         5,
		BombAudioRange:    3,
		BombWarningTime:   time.Second,
		BombWarningRange:  5,
		ExplosionVisRange: 5,

		PowerUpDropChance: 0.3,
		PowerUpChoices:    3,

		ShrinkStartDelay: 60 * time.Second,
		ShrinkInterval:   10 * time.Second,
		ShrinkAmount:     1,

		BotDecisionInterval: 100 * time.Millisecond,
	}
}

// GameFromEnv returns game configuration with environment variable overrides.
// Environment variables take precedence over defaults.
func GameFromEnv() GameConfig {
	cfg := DefaultGame()

	if w := getEnvInt("GRID_WIDTH", 0); w > 0 {
		cfg.GridWidth = w
	}
	if h := getEnvInt("GRID_HEIGHT", 0); h > 0 {
		cfg.GridHeight = h
	}
	if tr := getEnvInt("TICK_RATE", 0); tr > 0 {
		cfg.TickRate = tr
	}
	if d := getEnvDuration("SHRINK_START_DELAY", 0); d > 0 {
		cfg.ShrinkStartDelay = d
	}
	if d := getEnvDuration("SHRINK_INTERVAL", 0); d > 0 {
		cfg.ShrinkInterval = d
	}
	if c := getEnvFloat("POWERUP_DROP_CHANCE", -1); c >= 0 && c <= 1 {
		cfg.PowerUpDropChance = c
	}

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP/WebSocket server settings.
type ServerConfig struct {
	Port        int
	MaxRooms    int           // Hard cap on concurrent rooms
	IdleTimeout time.Duration // Rooms with no activity are reaped after this
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:        3001,
		MaxRooms:    500,
		IdleTimeout: 30 * time.Minute,
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if mr := getEnvInt("MAX_ROOMS", 0); mr > 0 {
		cfg.MaxRooms = mr
	}
	if d := getEnvDuration("ROOM_IDLE_TIMEOUT", 0); d > 0 {
		cfg.IdleTimeout = d
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Game   GameConfig
	Server ServerConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Game:   GameFromEnv(),
		Server: ServerFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
