package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yungbote/briefs-backend/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("Failed to init app: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.Start()

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + a.Cfg.Port
		a.Log.Info("Server listening", "addr", addr)
		errCh <- a.Run(addr)
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
		a.Log.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			a.Log.Error("Server failed", "error", err)
			exitCode = 1
		}
	}
	a.Close()
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
