// Command face-matcher is a local stand-in for the face comparison service.
// It speaks the same POST /verify contract the liveness gateway calls.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"votebooth/internal/platform/httpserver"
	"votebooth/internal/platform/logger"
)

func main() {
	log := logger.New(os.Getenv("LOG_LEVEL"))

	addr := os.Getenv("FACE_MATCHER_ADDR")
	if addr == "" {
		addr = ":5001"
	}
	mode := Mode(os.Getenv("FACE_MATCHER_MODE"))
	if mode == "" {
		mode = ModeCompare
	}

	srv := httpserver.New(addr, newRouter(mode, log))
	go func() {
		log.Info("starting face matcher", "addr", addr, "mode", string(mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("face matcher stopped", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
