package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/viaship/trackshot/api"
	"github.com/viaship/trackshot/browserpool"
	"github.com/viaship/trackshot/cache"
	"github.com/viaship/trackshot/captcha"
	"github.com/viaship/trackshot/carrier"
	"github.com/viaship/trackshot/config"
	"github.com/viaship/trackshot/creds"
	"github.com/viaship/trackshot/tracker"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("trackshot starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"contextPool", cfg.Browser.ContextPoolSize,
	)

	// ── 3. Initialise browser pool (Chrome launches on first session) ──
	browser := browserpool.New(cfg.Browser)
	defer browser.Close()

	// ── 4. Credential rotators and CAPTCHA resolver ─────────────────
	visionKeys := creds.NewRotator(cfg.Creds.VisionKeys)
	autoTokens := creds.NewRotator(cfg.Creds.AutomationTokens)
	if !visionKeys.HasAny() {
		slog.Warn("no vision keys configured; image-CAPTCHA carriers will fail")
	}
	if !autoTokens.HasAny() {
		slog.Warn("no automation tokens configured; challenge-gated carriers will fail")
	}
	resolver := captcha.NewResolver(nil, cfg.Captcha, visionKeys, autoTokens)

	// ── 5. Strategies and facade ────────────────────────────────────
	deps := carrier.NewDeps(browser, resolver, cfg.Carrier)
	registry := carrier.NewRegistry(deps)
	tr := tracker.New(registry, browser, cfg.Carrier)

	// ── 5b. Initialise cache ────────────────────────────────────────
	cc := cache.New(cfg.Cache.MaxEntries)

	// ── 6. Setup router and start HTTP server ───────────────────────
	startTime := time.Now()
	router := api.NewRouter(tr, cfg, cc, startTime)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight acquisitions 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// browser.Close() runs via defer: tears down contexts and kills Chrome.
	slog.Info("trackshot stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
