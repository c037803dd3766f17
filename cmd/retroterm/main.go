package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/victorivanov/retroterm/internal/auth"
	"github.com/victorivanov/retroterm/internal/config"
	"github.com/victorivanov/retroterm/internal/debug"
	"github.com/victorivanov/retroterm/internal/gateway"
	"github.com/victorivanov/retroterm/internal/notify"
	"github.com/victorivanov/retroterm/internal/session"
	"github.com/victorivanov/retroterm/internal/transport"
)

const gatewayRetryDelay = 5 * time.Second

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)

	identity, err := auth.Inspect(cfg.Token)
	if err != nil {
		log.Error("inspecting access token failed", "error", err)
		os.Exit(1)
	}
	log.Info("session starting", "userID", identity.UserID, "server", cfg.ServerURL)

	// --- Session state ---

	api := transport.NewClient(cfg.ServerURL, cfg.Token)
	queue := notify.NewQueue(notify.LogRenderer{Log: log}, log)
	cache := session.NewDMCache(api, session.NopView{}, identity.UserID, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	channels := cache.LoadAll(startCtx)
	cancel()
	log.Info("DM channels loaded", "count", len(channels))

	// --- Gateway ---

	gw := gateway.NewClient(cfg.ServerURL, cfg.Token, cache, queue, log)
	go func() {
		for {
			if err := gw.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Warn("gateway connection lost", "error", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(gatewayRetryDelay):
			}
		}
	}()

	// --- Debug server ---

	dbg := debug.NewServer(cache, queue)
	go func() {
		log.Info("debug server listening", "addr", cfg.DebugAddr)
		if err := dbg.Start(cfg.DebugAddr); err != nil && err != http.ErrServerClosed {
			log.Error("debug server error", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dbg.Shutdown(shutdownCtx); err != nil {
		log.Error("debug server shutdown error", "error", err)
	}
	queue.ClearAll()
}
