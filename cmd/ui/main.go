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
	cfg, _, err := config.LoadWithDotenv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	deps, err := container.New(cfg)
	if err != nil {
		log.Fatalf("Failed to build dependencies: %v", err)
	}
	defer deps.Close()

	app, err := deps.UIApp()
	if err != nil {
		log.Fatal("Failed to create UI app:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = app.Shutdown(shutdownCtx)
	}()

	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}
