package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"pulsewatch/config"
	"pulsewatch/internals/app"
	"pulsewatch/internals/server"
	"pulsewatch/pkg/db"
	"pulsewatch/pkg/logger"
)

func main() {
	// Load envs
	cfg, err := config.LoadConfig("env.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Get Context with signals attached -> when ever a signal occurs , then `Done` channel of ctx will get closed
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Base/global logger
	log := logger.Init(cfg)
	log.Info().Msg("logger initialized")

	// Initialize DB Pool
	dbPool, err := db.ConnectToDB(ctx, cfg.DB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize db pool")
	}
	log.Info().Msg("database pool initialized")

	// Inject Dependencies
	container, err := app.NewContainer(ctx, dbPool, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize dependencies")
	}
	log.Info().Msg("dependencies initialized")

	// start promoters and queue consumers
	container.Start(ctx)
	log.Info().Msg("task queues running")

	// heal check loops that went quiet while the engine was down
	if cfg.Scheduler.RestoreOnStart {
		restored, err := container.Scheduler.RestoreStalledLoops(ctx)
		if err != nil {
			log.Error().Err(err).Msg("startup restore sweep failed")
		} else {
			log.Info().Int("restored", restored).Msg("startup restore sweep complete")
		}
	}

	// Register Routes
	router := container.NewRouter()
	log.Info().Msg("routes registered")

	// Start HTTP Server -> Runs in a seperate goroutines in background and receive requests
	srv := server.New(fmt.Sprintf(":%d", cfg.Port), router, log)
	srv.Start()

	// main goroutine is for gracefull shutdown

	<-ctx.Done() // WAIT FOR SIGNAL
	log.Info().Msg("shutdown signal received")

	// 1. Stop HTTP server (stop accepting requests)
	if err := srv.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}

	// 2. Shutdown background workers & infra
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second) // buffer time to close all resources
	defer cancel()

	if err := container.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("dependecies shutdown failed")
	}

	// Shutdown done
	log.Info().Msg("graceful shutdown complete")
}
