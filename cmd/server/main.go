package main

import (
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"bomber-royal/internal/api"
	"bomber-royal/internal/config"
	"bomber-royal/internal/game"
	"bomber-royal/internal/game/ai"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("💡 No .env file found, using environment variables only")
	} else {
		log.Println("✅ Loaded environment from .env")
	}

	log.Println("💣 ================================")
	log.Println("💣  BOMBER ROYAL - GAME SERVER")
	log.Println("💣 ================================")

	appConfig := config.Load()
	gameCfg := appConfig.Game
	serverCfg := appConfig.Server

	log.Printf("🎮 Config: %dx%d grid, %d TPS, %d players max, fog radius %d",
		gameCfg.GridWidth, gameCfg.GridHeight, gameCfg.TickRate, gameCfg.MaxPlayers, gameCfg.FogRadius)

	registry := game.NewAbilityRegistry()
	rooms := game.NewRoomManager(gameCfg, serverCfg, registry, func(rng *rand.Rand) game.BotDriver {
		return ai.NewManager(gameCfg.BotDecisionInterval, rng)
	})

	// Hub and engine reference each other; the hub is created by the
	// server, so the engine gets its broadcaster wired afterwards.
	engine := game.NewEngine(gameCfg, nil)
	server := api.NewServer(rooms, engine, serverCfg)
	engine.SetBroadcaster(server.Hub())
	engine.SetTickObserver(api.RecordTick)

	if err := api.StartDebugServer(api.DefaultObservabilityConfig()); err != nil {
		log.Printf("⚠️ Debug server failed: %v", err)
	}

	addr := fmt.Sprintf(":%d", serverCfg.Port)
	go func() {
		if err := server.Start(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	for _, room := range rooms.Rooms() {
		engine.StopRound(room)
	}
	server.Stop()
	log.Println("👋 Goodbye!")
}
