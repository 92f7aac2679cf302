package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"birthprev/internal/config"
	"birthprev/internal/container"
)

// main serves the web UI and the JSON API side by side until interrupted.
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
		deps.Logger.Info("no .env file found, using system environment variables")
	}

	uiApp, err := deps.UIApp()
	if err != nil {
		log.Fatal("Failed to create UI app:", err)
	}
	apiServer := deps.APIServer()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(uiApp.Start)
	g.Go(apiServer.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		uiErr := uiApp.Shutdown(shutdownCtx)
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return uiErr
	})

	if err := g.Wait(); err != nil {
		deps.Logger.Error("server stopped: %v", err)
	}
}
