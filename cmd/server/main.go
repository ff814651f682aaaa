/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the leave engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present), then parse flags
  2. Load the engine configuration (calendar + rules)
  3. Open the store (SQLite or PostgreSQL)
  4. Build the leave services and API handler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS (environment fallback in parentheses):
  -port          HTTP server port (PORT, default 8080)
  -driver        sqlite | postgres (DB_DRIVER, default sqlite)
  -db            SQLite database path (DB_PATH, default leave.db)
  -database-url  PostgreSQL URL (DATABASE_URL)
  -config        Engine configuration JSON (ENGINE_CONFIG, default built-in)
  -log-level     debug | info | warn | error (LOG_LEVEL, default info)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the store
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/leave.db"

  # Run against PostgreSQL with a custom calendar
  DATABASE_URL=postgres://leave@localhost/leave ./server -driver=postgres -config=calendar.json

SEE ALSO:
  - api/server.go: Router configuration
  - factory/config.go: Engine configuration format
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/warp/leave-engine/api"
	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/postgres"
	"github.com/warp/leave-engine/store/sqlite"
)

// store is what the server needs from either driver.
type store interface {
	generic.TxStore
	Ping(ctx context.Context) error
	Close() error
}

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine; the environment and flags still apply.
	envErr := godotenv.Load()

	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		return err
	}
	logger := api.NewLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		logger.Warn("failed to load .env", "error", envErr)
	}

	engineCfg, err := factory.NewConfigFactory().Load(cfg.EngineFile)
	if err != nil {
		return fmt.Errorf("failed to load engine config: %w", err)
	}
	cal, err := calendar.New(engineCfg.Calendar)
	if err != nil {
		return fmt.Errorf("failed to build calendar: %w", err)
	}

	st, err := openStore(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer st.Close()

	requests, err := leave.NewRequestService(st, cal, engineCfg.Eligibility, logger)
	if err != nil {
		return fmt.Errorf("failed to build request service: %w", err)
	}
	handler := api.NewHandler(requests, leave.NewDirectory(st, logger), engineCfg, logger)
	handler.Ping = st.Ping

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "driver", cfg.Driver, "engine_config", cfg.EngineFile)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return err
	case <-quit:
	}

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func openStore(ctx context.Context, cfg serverConfig) (store, error) {
	switch cfg.Driver {
	case DriverPostgres:
		return postgres.New(ctx, cfg.DatabaseURL)
	default:
		return sqlite.New(cfg.DBPath)
	}
}
