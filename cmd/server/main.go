package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"spacewar/internal/api"
	"spacewar/internal/config"
	"spacewar/internal/game"
	"spacewar/internal/game/geom"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		// Try current directory as fallback
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("🚀 ================================")
	log.Println("🚀  SPACEWAR - ARENA SERVER")
	log.Println("🚀 ================================")

	appConfig := config.Load()
	serverCfg := appConfig.Server
	gameCfg := appConfig.Game

	log.Printf("🎮 Config: %d TPS, %gx%g arena, %d players, restart after %gs",
		gameCfg.TickRate, gameCfg.WorldWidth, gameCfg.WorldHeight, gameCfg.Players, gameCfg.RestartTime)

	engine := game.NewEngineWithOptions(engineOptions(appConfig))
	limits := engine.GetLimits()
	log.Printf("🛡️ Snapshot limits: %d ships, %d projectiles", limits.MaxShips, limits.MaxProjectiles)

	engine.SetTickObserver(api.NewMetricsObserver(engine.EventLogCounts))
	engine.SetCallbacks(
		func(sd game.ShipDestroyed) {
			log.Printf("💥 Ship of player %d destroyed (%s)", sd.Player, sd.Cause)
		},
		func(result game.MatchResult, scores []int) {
			log.Printf("🏆 %s, scores %v", result, scores)
		},
	)

	if path := appConfig.EventLog.Path; path != "" {
		if err := engine.StartEventLog(path); err != nil {
			log.Printf("⚠️ Event log disabled: %v", err)
		} else {
			log.Printf("📝 Event log: %s", path)
		}
	}

	debugCfg := appConfig.Debug
	if err := api.StartDebugServer(api.ObservabilityConfig{
		Enabled:       debugCfg.Enabled,
		ListenAddr:    debugCfg.ListenAddr,
		AllowExternal: debugCfg.AllowExternal,
		BasicAuthUser: debugCfg.BasicAuthUser,
		BasicAuthPass: debugCfg.BasicAuthPass,
	}); err != nil {
		log.Printf("⚠️ Debug server disabled: %v", err)
	}

	api.SetAllowedOrigins(serverCfg.CORSOrigins)
	server := api.NewServer(engine, api.ServerConfig{
		CORSOrigins: serverCfg.CORSOrigins,
		RateLimit: api.RateLimitConfig{
			RequestsPerSecond: serverCfg.RequestsPerSecond,
			Burst:             serverCfg.Burst,
			CleanupInterval:   api.DefaultRateLimitConfig.CleanupInterval,
		},
		BroadcastInterval: serverCfg.BroadcastInterval,
	})

	engine.Start()
	log.Println("✅ Game Engine started")

	go func() {
		addr := ":" + strconv.Itoa(serverCfg.Port)
		log.Printf("🌐 API server on http://localhost%s", addr)

		if err := server.Start(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Println("")
	log.Println("📋 Controls (POST /api/keys or the /ws feed):")
	for i, km := range game.DefaultKeymaps {
		log.Printf("   Player %d: turn %s/%s, thrust %s, burst %s, shoot %s, AI %s",
			i, km.Left, km.Right, km.Thrust, km.ThrustBurst, km.Shoot, game.DefaultMakeAIKeys[i])
	}
	log.Printf("   Restart: %s", gameCfg.RestartKey)
	log.Println("")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		log.Printf("⚠️ Server shutdown: %v", err)
	}
	engine.Stop()
	engine.StopEventLog()
	log.Println("👋 Goodbye!")
}

// engineOptions maps the app configuration onto the engine
func engineOptions(cfg config.AppConfig) game.EngineOptions {
	ship := game.ShipParams{
		Acceleration:     cfg.Ship.Acceleration,
		TurnSpeed:        cfg.Ship.TurnSpeed,
		ShootCooldown:    cfg.Ship.ShootCooldown,
		MuzzleOffset:     cfg.Ship.MuzzleOffset,
		ProjectileSpeed:  cfg.Ship.ProjectileSpeed,
		ImpulseCooldown:  cfg.Ship.ImpulseCooldown,
		ImpulsePower:     cfg.Ship.ImpulsePower,
		ColliderRadius:   cfg.Ship.ColliderRadius,
		ProjectileLife:   cfg.Ship.ProjectileLife,
		ProjectileRadius: cfg.Ship.ProjectileRadius,
	}
	well := game.WellParams{
		MaxPower:        cfg.Well.MaxPower,
		DragRadius:      cfg.Well.DragRadius,
		DragCoefficient: cfg.Well.DragCoefficient,
		TeleportRadius:  cfg.Well.TeleportRadius,
		ExitSpeed:       cfg.Well.ExitSpeed,
	}
	limits := game.ResourceLimits{
		MaxShips:       cfg.Limits.MaxShips,
		MaxProjectiles: cfg.Limits.MaxProjectiles,
		MaxWells:       cfg.Limits.MaxWells,
	}

	return game.EngineOptions{
		TickRate:    cfg.Game.TickRate,
		WorldSize:   geom.V(cfg.Game.WorldWidth, cfg.Game.WorldHeight),
		Players:     cfg.Game.Players,
		AIPlayers:   cfg.Game.AIPlayers,
		RestartTime: cfg.Game.RestartTime,
		RestartKey:  game.Key(cfg.Game.RestartKey),
		Ship:        &ship,
		Well:        &well,
		Limits:      &limits,
		EventLog: game.EventLogOptions{
			MaxEventsPerSec:    cfg.EventLog.MaxEventsPerSec,
			MaxEventsPerSource: cfg.EventLog.MaxEventsPerSource,
		},
	}
}
