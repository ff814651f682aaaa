package main

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_DRIVER", "DB_PATH", "DATABASE_URL", "ENGINE_CONFIG", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	cfg, err := parseConfig(nil)

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, DriverSQLite, cfg.Driver)
	assert.Equal(t, "leave.db", cfg.DBPath)
	assert.Empty(t, cfg.EngineFile)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestParseConfig_EnvironmentThenFlags(t *testing.T) {
	// GIVEN: Environment values
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://leave@localhost/leave")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ENGINE_CONFIG", "calendar.json")

	// WHEN: A flag overrides one of them
	cfg, err := parseConfig([]string{"-port", "7070"})

	// THEN: The flag wins and the rest come from the environment
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, DriverPostgres, cfg.Driver)
	assert.Equal(t, "postgres://leave@localhost/leave", cfg.DatabaseURL)
	assert.Equal(t, "calendar.json", cfg.EngineFile)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestParseConfig_Invalid(t *testing.T) {
	for _, key := range []string{"PORT", "DB_DRIVER", "DATABASE_URL", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	cases := map[string][]string{
		"unknown driver":       {"-driver", "mysql"},
		"postgres without url": {"-driver", "postgres"},
		"bad log level":        {"-log-level", "loud"},
		"port out of range":    {"-port", "70000"},
		"unknown flag":         {"-verbose"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parseConfig(args)
			assert.Error(t, err)
		})
	}

	t.Run("bad PORT", func(t *testing.T) {
		t.Setenv("PORT", "eighty")
		_, err := parseConfig(nil)
		assert.Error(t, err)
	})
}
