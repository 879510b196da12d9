package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/veritas-dev/trust-ledger/internal/api"
	"github.com/veritas-dev/trust-ledger/internal/engine"
	"github.com/veritas-dev/trust-ledger/internal/keystore"
	"github.com/veritas-dev/trust-ledger/internal/ledger"
	"github.com/veritas-dev/trust-ledger/internal/server"
	"github.com/veritas-dev/trust-ledger/internal/telemetry"
	"github.com/veritas-dev/trust-ledger/internal/umbrella"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	dataDir := getenv("TRUST_DATA_DIR", "./data")
	port := getenv("TRUST_HTTP_PORT", "7400")
	dbPath := getenv("TRUST_LEDGER_DB", filepath.Join(dataDir, "ledger.db"))

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		logger.Error("data_dir_failed", "dir", dataDir, "err", err)
		os.Exit(1)
	}

	if endpoint := os.Getenv("TRUST_OTLP_ENDPOINT"); endpoint != "" {
		shutdown, err := telemetry.Setup(context.Background(), endpoint, "trustd")
		if err != nil {
			logger.Error("telemetry_failed", "endpoint", endpoint, "err", err)
			os.Exit(1)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(ctx)
		}()
		logger.Info("telemetry_enabled", "endpoint", endpoint)
	}

	store, err := ledger.OpenSQLite(dbPath)
	if err != nil {
		logger.Error("store_open_failed", "path", dbPath, "err", err)
		os.Exit(1)
	}
	defer store.Close()

	chain, err := ledger.Open(store)
	if err != nil {
		logger.Error("ledger_open_failed", "err", err)
		os.Exit(1)
	}
	height, tip := chain.Tip()
	logger.Info("ledger_loaded", "path", dbPath, "height", height, "tip", tip)

	keys := keystore.NewStore()
	eng := engine.New(chain, umbrella.NewGateway(keys), keys, logger)
	router := server.New(&api.Handler{Engine: eng})

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("http_start", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http_error", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	logger.Info("http_shutdown")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
