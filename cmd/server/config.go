package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type serverConfig struct {
	Port        int
	Driver      string
	DBPath      string
	DatabaseURL string
	EngineFile  string // empty: built-in defaults
	LogLevel    slog.Level
}

// parseConfig reads flags from args. Every flag defaults to its
// environment variable, which defaults to a built-in value.
func parseConfig(args []string) (serverConfig, error) {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return serverConfig{}, fmt.Errorf("invalid PORT: %w", err)
	}

	var cfg serverConfig
	var level string
	fs.IntVar(&cfg.Port, "port", port, "HTTP server port (PORT)")
	fs.StringVar(&cfg.Driver, "driver", getEnv("DB_DRIVER", DriverSQLite), "store driver: sqlite or postgres (DB_DRIVER)")
	fs.StringVar(&cfg.DBPath, "db", getEnv("DB_PATH", "leave.db"), "SQLite database path, \":memory:\" for in-memory (DB_PATH)")
	fs.StringVar(&cfg.DatabaseURL, "database-url", getEnv("DATABASE_URL", ""), "PostgreSQL connection URL (DATABASE_URL)")
	fs.StringVar(&cfg.EngineFile, "config", getEnv("ENGINE_CONFIG", ""), "engine configuration JSON file (ENGINE_CONFIG)")
	fs.StringVar(&level, "log-level", getEnv("LOG_LEVEL", "info"), "debug, info, warn or error (LOG_LEVEL)")
	if err := fs.Parse(args); err != nil {
		return serverConfig{}, err
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(level)); err != nil {
		return serverConfig{}, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg.Driver = strings.ToLower(cfg.Driver)
	switch cfg.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return serverConfig{}, fmt.Errorf("driver %s needs -database-url or DATABASE_URL", DriverPostgres)
		}
	default:
		return serverConfig{}, fmt.Errorf("unknown driver %q (use %s or %s)", cfg.Driver, DriverSQLite, DriverPostgres)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return serverConfig{}, fmt.Errorf("invalid port %d", cfg.Port)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
