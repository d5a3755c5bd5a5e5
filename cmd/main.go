package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yungbote/coursehub-backend/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("Failed to init app: %v\n", err)
		os.Exit(1)
	}

	if err := a.Start(); err != nil {
		a.Log.Error("Failed to start background jobs", "error", err)
		a.Close(context.Background())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := a.Server()
	errCh := make(chan error, 1)
	go func() {
		a.Log.Info("Server listening", "addr", srv.Addr())
		errCh <- srv.Run()
	}()

	exitCode := 0
	select {
	case err := <-errCh:
		if err != nil {
			a.Log.Error("Server failed", "error", err)
			exitCode = 1
		}
	case <-ctx.Done():
		a.Log.Info("Shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.Log.Warn("Server shutdown did not complete", "error", err)
	}
	a.Close(shutdownCtx)

	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
