package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"birthprev/internal/config"
	"birthprev/internal/container"
)

func main() {
	cfg, loaded, err := config.LoadWithDotenv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	deps, err := container.New(cfg)
	if err != nil {
		log.Fatalf("Failed to build dependencies: %v", err)
	}
	defer deps.Close()
	if !loaded {
		deps.Logger.Debug("no .env file found, using system environment variables")
	}

	server := deps.APIServer()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			deps.Logger.Error("API shutdown: %v", err)
		}
	}()

	if err := server.Start(); err != nil {
		deps.Logger.Error("API server failed: %v", err)
		deps.Close()
		log.Fatal(err)
	}
}
