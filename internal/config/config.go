// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for server, arena and ship settings.
//
// Every section has a DefaultX constructor and an XFromEnv variant where
// environment variables take precedence over defaults.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port              int
	CORSOrigins       []string      // Allowed origins; "*" suffix matches any port
	RequestsPerSecond float64       // Per-IP request rate
	Burst             int           // Per-IP burst
	BroadcastInterval time.Duration // WebSocket push cadence
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port: 3000,
		CORSOrigins: []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		},
		RequestsPerSecond: 60,
		Burst:             120,
		BroadcastInterval: 50 * time.Millisecond,
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if origins := getEnvList("CORS_ORIGINS"); len(origins) > 0 {
		cfg.CORSOrigins = origins
	}
	if rps := getEnvFloat("RATE_LIMIT_RPS", 0); rps > 0 {
		cfg.RequestsPerSecond = rps
	}
	if b := getEnvInt("RATE_LIMIT_BURST", 0); b > 0 {
		cfg.Burst = b
	}
	if ms := getEnvInt("BROADCAST_INTERVAL_MS", 0); ms > 0 {
		cfg.BroadcastInterval = time.Duration(ms) * time.Millisecond
	}

	return cfg
}

// =============================================================================
// GAME CONFIGURATION
// =============================================================================

// GameConfig holds arena and match settings.
type GameConfig struct {
	TickRate    int     // Simulation ticks per second
	WorldWidth  float64 // Arena width in world units
	WorldHeight float64 // Arena height in world units
	Players     int     // Number of players (ships) per match
	AIPlayers   []int   // Player indices that start under AI control
	RestartTime float64 // Seconds on the game-over screen before auto restart
	RestartKey  string  // Key that restarts a finished match early
}

// DefaultGame returns the default game configuration.
func DefaultGame() GameConfig {
	return GameConfig{
		TickRate:    60,
		WorldWidth:  1280,
		WorldHeight: 720,
		Players:     2,
		RestartTime: 15,
		RestartKey:  "Space",
	}
}

// GameFromEnv returns game configuration with environment variable overrides.
func GameFromEnv() GameConfig {
	cfg := DefaultGame()

	if t := getEnvInt("TICK_RATE", 0); t > 0 {
		cfg.TickRate = t
	}
	if w := getEnvFloat("WORLD_WIDTH", 0); w > 0 {
		cfg.WorldWidth = w
	}
	if h := getEnvFloat("WORLD_HEIGHT", 0); h > 0 {
		cfg.WorldHeight = h
	}
	if p := getEnvInt("PLAYERS", 0); p > 0 {
		cfg.Players = p
	}
	for _, s := range getEnvList("AI_PLAYERS") {
		if i, err := strconv.Atoi(s); err == nil {
			cfg.AIPlayers = append(cfg.AIPlayers, i)
		}
	}
	if r := getEnvFloat("RESTART_TIME", 0); r > 0 {
		cfg.RestartTime = r
	}
	if k := os.Getenv("RESTART_KEY"); k != "" {
		cfg.RestartKey = k
	}

	return cfg
}

// =============================================================================
// SHIP CONFIGURATION
// =============================================================================

// ShipConfig holds the tunables of a spawned ship.
type ShipConfig struct {
	Acceleration     float64 // units/s² while thrusting
	TurnSpeed        float64 // degrees/s
	ShootCooldown    float64 // seconds
	MuzzleOffset     float64 // distance from hull centre to projectile spawn
	ProjectileSpeed  float64 // units/s
	ProjectileLife   float64 // seconds
	ProjectileRadius float64 // 0 disables projectile colliders
	ImpulseCooldown  float64 // seconds
	ImpulsePower     float64 // instantaneous velocity change
	ColliderRadius   float64
}

// DefaultShip returns the default ship configuration.
func DefaultShip() ShipConfig {
	return ShipConfig{
		Acceleration:    25,
		TurnSpeed:       180,
		ShootCooldown:   1,
		MuzzleOffset:    40,
		ProjectileSpeed: 200,
		ProjectileLife:  5,
		ImpulseCooldown: 3,
		ImpulsePower:    75,
		ColliderRadius:  15,
	}
}

// ShipFromEnv returns ship configuration with environment variable overrides.
func ShipFromEnv() ShipConfig {
	cfg := DefaultShip()

	overrideFloat(&cfg.Acceleration, "SHIP_ACCELERATION")
	overridePositive(&cfg.TurnSpeed, "SHIP_TURN_SPEED")
	overrideFloat(&cfg.ShootCooldown, "SHIP_SHOOT_COOLDOWN")
	overrideFloat(&cfg.MuzzleOffset, "SHIP_MUZZLE_OFFSET")
	overridePositive(&cfg.ProjectileSpeed, "PROJECTILE_SPEED")
	overridePositive(&cfg.ProjectileLife, "PROJECTILE_LIFE")
	overrideFloat(&cfg.ProjectileRadius, "PROJECTILE_RADIUS")
	overrideFloat(&cfg.ImpulseCooldown, "SHIP_IMPULSE_COOLDOWN")
	overrideFloat(&cfg.ImpulsePower, "SHIP_IMPULSE_POWER")
	overridePositive(&cfg.ColliderRadius, "SHIP_RADIUS")

	return cfg
}

// =============================================================================
// GRAVITY WELL CONFIGURATION
// =============================================================================

// WellConfig holds the central gravity well settings.
type WellConfig struct {
	MaxPower        float64
	DragRadius      float64
	DragCoefficient float64
	TeleportRadius  float64
	ExitSpeed       float64
}

// DefaultWell returns the default well configuration.
func DefaultWell() WellConfig {
	return WellConfig{
		MaxPower:        1500,
		DragRadius:      50,
		DragCoefficient: 0.3,
		TeleportRadius:  10,
		ExitSpeed:       20,
	}
}

// WellFromEnv returns well configuration with environment variable overrides.
func WellFromEnv() WellConfig {
	cfg := DefaultWell()

	overrideFloat(&cfg.MaxPower, "WELL_POWER")
	overrideFloat(&cfg.DragRadius, "WELL_DRAG_RADIUS")
	overrideFloat(&cfg.DragCoefficient, "WELL_DRAG_COEFFICIENT")
	overrideFloat(&cfg.TeleportRadius, "WELL_TELEPORT_RADIUS")
	overrideFloat(&cfg.ExitSpeed, "WELL_EXIT_SPEED")

	return cfg
}

// =============================================================================
// RESOURCE LIMITS
// =============================================================================

// ResourceLimits caps snapshot payloads.
type ResourceLimits struct {
	MaxShips       int
	MaxProjectiles int
	MaxWells       int
}

// DefaultLimits returns the default resource limits.
func DefaultLimits() ResourceLimits {
	return ResourceLimits{
		MaxShips:       16,
		MaxProjectiles: 512,
		MaxWells:       4,
	}
}

// =============================================================================
// EVENT LOG CONFIGURATION
// =============================================================================

// EventLogConfig holds the match event log settings.
type EventLogConfig struct {
	Path               string // Empty disables file output
	MaxEventsPerSec    int
	MaxEventsPerSource int
}

// DefaultEventLog returns the default event log configuration.
func DefaultEventLog() EventLogConfig {
	return EventLogConfig{
		Path:               "events.jsonl",
		MaxEventsPerSec:    10000,
		MaxEventsPerSource: 200,
	}
}

// EventLogFromEnv returns event log configuration with environment variable overrides.
func EventLogFromEnv() EventLogConfig {
	cfg := DefaultEventLog()

	if p, ok := os.LookupEnv("EVENT_LOG_PATH"); ok {
		cfg.Path = p
	}
	if n := getEnvInt("EVENT_LOG_MAX_PER_SEC", 0); n > 0 {
		cfg.MaxEventsPerSec = n
	}
	if n := getEnvInt("EVENT_LOG_MAX_PER_SOURCE", 0); n > 0 {
		cfg.MaxEventsPerSource = n
	}

	return cfg
}

// =============================================================================
// DEBUG SERVER CONFIGURATION
// =============================================================================

// DebugConfig holds the pprof/metrics server settings.
type DebugConfig struct {
	Enabled       bool
	ListenAddr    string
	AllowExternal bool
	BasicAuthUser string
	BasicAuthPass string
}

// DefaultDebug returns the default debug server configuration.
func DefaultDebug() DebugConfig {
	return DebugConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060",
	}
}

// DebugFromEnv returns debug configuration with environment variable overrides.
func DebugFromEnv() DebugConfig {
	cfg := DefaultDebug()

	if os.Getenv("DISABLE_DEBUG_SERVER") == "true" {
		cfg.Enabled = false
	}
	if addr := os.Getenv("DEBUG_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	cfg.AllowExternal = os.Getenv("ALLOW_DEBUG_EXTERNAL") == "true"
	cfg.BasicAuthUser = os.Getenv("DEBUG_USER")
	cfg.BasicAuthPass = os.Getenv("DEBUG_PASS")

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Server   ServerConfig
	Game     GameConfig
	Ship     ShipConfig
	Well     WellConfig
	Limits   ResourceLimits
	EventLog EventLogConfig
	Debug    DebugConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Server:   ServerFromEnv(),
		Game:     GameFromEnv(),
		Ship:     ShipFromEnv(),
		Well:     WellFromEnv(),
		Limits:   DefaultLimits(),
		EventLog: EventLogFromEnv(),
		Debug:    DebugFromEnv(),
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

// overrideFloat replaces *dst with a non-negative float from the environment
func overrideFloat(dst *float64, key string) {
	if f := getEnvFloat(key, -1); f >= 0 {
		*dst = f
	}
}

// overridePositive replaces *dst only with a strictly positive float, for
// values where zero would break the simulation (radii, speeds, lifetimes)
func overridePositive(dst *float64, key string) {
	if f := getEnvFloat(key, 0); f > 0 {
		*dst = f
	}
}

// getEnvList splits a comma-separated variable, dropping empty items
func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
