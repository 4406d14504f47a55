package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"goCrashServer/api"
	"goCrashServer/config"
	"goCrashServer/db"
	"goCrashServer/game"
	"goCrashServer/ws"
)

func main() {
	log.Println("🚀 Starting crash game server...")

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	if err := db.InitPostgres(); err != nil {
		log.Fatalf("❌ Failed to init postgres: %v", err)
	}
	defer db.ClosePostgres()

	if err := db.InitRedis(); err != nil {
		log.Printf("⚠️ Redis unavailable, running without cache: %v", err)
		db.RedisClient = nil
	} else {
		defer db.CloseRedis()
	}

	store, err := db.NewStore(db.PostgresPool, db.RedisClient)
	if err != nil {
		log.Fatalf("❌ Failed to create store: %v", err)
	}

	engineCfg := game.Config{
		TickInterval:   config.TickInterval,
		RestartTime:    config.RestartTime,
		BlockingPoll:   config.BlockingPoll,
		AfterCrashTime: config.AfterCrashTime,
		CreateRetry:    config.CreateRetry,
		SettleWarn:     config.SettleWarn,
		CashOutWorkers: config.CashOutWorkers,
		EventBuffer:    config.EventBuffer,
	}
	engine := game.New(store, engineCfg)
	hub := ws.NewHub(engine, store)
	server := api.NewServer(engine, store, hub, []byte(cfg.JWTSecret))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go hub.Run(ctx)

	engineDone := make(chan struct{})
	go func() {
		engine.Run(ctx)
		close(engineDone)
	}()

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.Router(cfg),
	}

	go func() {
		log.Printf("🌐 HTTP server listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ HTTP server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("🛑 Shutting down...")

	// Ask the engine to stop after the current round settles; the
	// context stays live until it has so the round can finish.
	engine.Shutdown()
	select {
	case <-engineDone:
	case <-sigCh:
		log.Println("⚠️ Second signal, exiting immediately")
	case <-time.After(30 * time.Second):
		log.Println("⚠️ Round did not settle in time, forcing exit")
	}
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ HTTP shutdown error: %v", err)
	}

	log.Println("👋 Server stopped")
}
