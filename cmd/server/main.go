package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"safe-apple-bridge/internal/api"
	"safe-apple-bridge/internal/apps"
	"safe-apple-bridge/internal/config"
	"safe-apple-bridge/internal/executor"
	"safe-apple-bridge/internal/monitor"
	"safe-apple-bridge/internal/osa"
	"safe-apple-bridge/internal/security"
	"safe-apple-bridge/internal/storage"
)

func main() {
	// Structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	// Optional .env file; real environment always wins.
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("loaded .env file")
	}

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	var cfg *config.Config
	var err error

	if _, statErr := os.Stat(configPath); statErr == nil {
		cfg, err = config.Load(configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", configPath).Msg("failed to load config")
		}
	} else {
		log.Info().Msg("no config file found, using defaults")
		cfg = config.DefaultConfig()
		cfg.ApplyEnv()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize metrics
	metrics := monitor.NewMetrics()

	// Initialize database (optional; the in-memory audit log works without it)
	var db *storage.DB
	if cfg.Database.DSN != "" {
		db, err = storage.New(ctx, cfg.Database.DSN)
		if err != nil {
			log.Warn().Err(err).Msg("database unavailable, audit persistence disabled")
		} else {
			defer db.Close()
		}
	}

	var sinks []security.AuditSink
	var auditWriter *storage.AuditWriter
	if db != nil {
		auditWriter = storage.NewAuditWriter(db, 10000)
		auditWriter.Start()
		defer auditWriter.Flush(10 * time.Second)
		sinks = append(sinks, auditWriter)
	}

	// Safety layer: limiters, audit log, executor
	limiters := security.NewLimiters(cfg.Security.RateLimits)
	auditLog := security.NewAuditLogger(sinks...)
	exec := executor.New(cfg, limiters, auditLog, metrics)

	// External tool boundary
	invoker := osa.NewInvoker()
	interp := osa.NewInterpreter(cfg.Bridge, invoker)
	engine := osa.NewQueryEngine(cfg.Bridge, invoker)

	// Operation catalog
	handlers := api.NewHandlers(
		apps.NewMail(exec, interp, cfg),
		apps.NewMessages(exec, interp, engine, cfg),
		apps.NewContacts(exec, interp, cfg),
		apps.NewReminders(exec, interp, cfg),
		auditLog,
		db,
	)

	server := api.NewServer(cfg, handlers, db, metrics)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh

		log.Info().Str("signal", sig.String()).Msg("shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown error")
		}

		cancel()
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server failed")
	}

	log.Info().Msg("server stopped")
}
