package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"theonebook/internal/bootstrap"
	"theonebook/internal/config"
	"theonebook/internal/server"
	"theonebook/internal/util"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}
	defer rt.Close()

	if _, err := rt.App.Seed(ctx, cfg.Seed); err != nil {
		log.Fatalf("failed to seed database: %v", err)
	}

	httpServer, err := server.New(server.Config{
		App:               rt.App,
		AllowedOrigins:    cfg.AllowedOrigins,
		TrustedProxies:    rt.TrustedProxies,
		LoginLimiter:      rt.LoginLimiter,
		ExportRequireAuth: cfg.Export.RequireAuth,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := cfg.Addr()
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // exports fetch every page image before responding
		IdleTimeout:  60 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "err", err)
		}
	}()

	slog.Info("server listening", "addr", addr, "redis", rt.Redis != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
		stop()
	}
	<-shutdownDone
	slog.Info("server stopped")
}
