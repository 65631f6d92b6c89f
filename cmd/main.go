// Package main provides the entry point for the webhook event router.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"voice-webhook-router/internal/config"
	"voice-webhook-router/internal/crm"
	"voice-webhook-router/internal/handler"
	"voice-webhook-router/internal/logger"
	"voice-webhook-router/internal/search"
)

// Run is the testable entrypoint for the application.
func Run(ctx context.Context) error {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	log.Info("Starting Voice Webhook Event Router")

	if missing := cfg.Missing(); len(missing) > 0 {
		// Not fatal: affected paths answer with clean error strings.
		log.Warn("configuration incomplete", zap.Strings("missing", missing))
	}

	overrides := search.DefaultOverrides()
	if cfg.OverridesPath != "" {
		loaded, err := search.LoadOverrides(cfg.OverridesPath)
		if err != nil {
			log.Error("failed to load override table, using built-in defaults",
				zap.String("path", cfg.OverridesPath), zap.Error(err))
		} else {
			overrides = loaded
			log.Info("override table loaded",
				zap.String("path", cfg.OverridesPath), zap.Int("entries", len(loaded)))
		}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	h := handler.New(log, cfg, crm.New(cfg, log), search.New(cfg, log, overrides))
	r.Get("/healthz", h.Healthz)
	r.Post("/webhook", h.Webhook)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down server")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	return nil
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := Run(ctx); err != nil {
		os.Exit(1)
	}
}
