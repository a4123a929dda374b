package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-grid/internal/config"
	"github.com/comitanigiacomo/kanso-grid/internal/core/clock"
	"github.com/comitanigiacomo/kanso-grid/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", "err", err)
	}

	if err := logger.Init(logger.Config{Level: cfg.LogLevel, File: cfg.LogFile, Prefix: "kanso-api"}); err != nil {
		logger.Fatal("failed to initialize logger", "err", err)
	}
	gin.SetMode(gin.ReleaseMode)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	srv, err := newServer(ctx, cfg, clock.Real())
	cancel()
	if err != nil {
		logger.Fatal("startup failed", "err", err)
	}

	go func() {
		logger.Info("Kanso Grid running", "addr", "http://localhost:"+cfg.Port)
		if err := srv.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("critical server error", "err", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("stop signal received, shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.http.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", "err", err)
	}
	srv.Close()

	logger.Info("server stopped gracefully")
}
