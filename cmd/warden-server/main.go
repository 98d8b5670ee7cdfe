package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx as database/sql driver
	"github.com/joho/godotenv"
	"github.com/warden-bot/warden/internal/api"
	"github.com/warden-bot/warden/internal/blacklist"
	"github.com/warden-bot/warden/internal/chread"
	"github.com/warden-bot/warden/internal/config"
	"github.com/warden-bot/warden/internal/onebot"
	"github.com/warden-bot/warden/internal/policy"
	"github.com/warden-bot/warden/internal/router"
	"github.com/warden-bot/warden/internal/scanner"
	"github.com/warden-bot/warden/internal/storage"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	cfg := config.FromEnv()

	logger := mustBuildLogger(cfg.LogLevel)
	defer logger.Sync() //nolint:errcheck // best-effort flush

	logger.Info("starting warden server",
		zap.String("http_port", cfg.HTTPPort),
		zap.Int("monitored_groups", len(cfg.MonitoredGroups)),
		zap.Int("exempt_groups", len(cfg.ExemptGroups)),
		zap.Int("exclusion_words", len(cfg.ExclusionWords)),
		zap.Int("min_level", cfg.MinLevel),
	)

	if cfg.OneBotURL == "" {
		logger.Fatal("ONEBOT_WS_URL is required")
	}

	// Blacklist store — Postgres or in-memory fallback
	var store blacklist.Store
	if cfg.PostgresDSN != "" {
		db, err := sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			logger.Fatal("failed to open postgres", zap.Error(err))
		}
		defer func() { _ = db.Close() }()
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.PingContext(context.Background()); err != nil {
			logger.Fatal("failed to ping postgres", zap.Error(err))
		}
		pgStore, err := blacklist.NewPostgresStore(db, logger)
		if err != nil {
			logger.Fatal("failed to init blacklist store", zap.Error(err))
		}
		store = pgStore
		logger.Info("postgres blacklist store connected")
	} else {
		store = blacklist.NewMemoryStore()
		logger.Warn("no POSTGRES_DSN set, blacklist is in-memory and not durable")
	}

	// Audit event writer — ClickHouse or LogWriter fallback
	var writer storage.EventWriter
	if cfg.ClickHouseDSN != "" {
		chWriter, err := storage.NewClickHouseWriter(cfg.ClickHouseDSN, logger)
		if err != nil {
			logger.Warn("clickhouse connection failed, falling back to log writer",
				zap.Error(err),
			)
			writer = storage.NewLogWriter(logger)
		} else {
			writer = chWriter
			logger.Info("clickhouse writer connected")
		}
	} else {
		writer = storage.NewLogWriter(logger)
		logger.Info("no CLICKHOUSE_DSN set, using log writer")
	}
	defer writer.Close()

	// ClickHouse reader (for the events/analytics endpoints)
	var chReader *chread.Reader
	if cfg.ClickHouseDSN != "" {
		var err error
		chReader, err = chread.NewReader(cfg.ClickHouseDSN, logger)
		if err != nil {
			logger.Warn("clickhouse reader connection failed", zap.Error(err))
			chReader = nil
		} else {
			defer func() { _ = chReader.Close() }()
			logger.Info("clickhouse reader connected")
		}
	}

	// Platform client and the moderation pipeline
	client := onebot.New(cfg.OneBotURL, cfg.OneBotAccessToken, cfg.CallTimeout, logger)
	sc := scanner.New(cfg, store, logger)
	adm := policy.New(cfg, store, client, logger)
	rt := router.New(sc, adm, client, writer, logger)

	runCtx, stop := context.WithCancel(context.Background())
	defer stop()

	go func() {
		if err := client.Run(runCtx, rt.Dispatch); err != nil && runCtx.Err() == nil {
			logger.Error("onebot client stopped", zap.Error(err))
		}
	}()

	// Admin HTTP server
	deps := &api.Dependencies{
		Store:          store,
		Reader:         chReader,
		Logger:         logger,
		AdminTokenHash: cfg.AdminTokenHash,
		CacheTTL:       cfg.AuthCacheTTL,
	}
	httpServer := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      api.NewRouter(deps),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	// Block until shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", zap.String("signal", sig.String()))

	stop()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}

	logger.Info("warden server stopped")
}

func mustBuildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build logger: %v", err))
	}
	return logger
}
