// Package config provides application configuration through environment variables.
package config

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/allisson/go-env"
	"github.com/joho/godotenv"

	"github.com/cofferlabs/coffer/crypto"
)

// Config holds the settings for the coffer CLI.
type Config struct {
	// DBPath is the bbolt database file backing the durable tier.
	DBPath string

	// Password derives the store key when set. It takes precedence over Key.
	Password string

	// Key is a base64-encoded 256-bit key (the crypto.ExportKey encoding).
	// Used when Password is empty; when both are empty a throwaway session
	// key is generated.
	Key string

	// Iterations is the PBKDF2 iteration count used with Password.
	Iterations int

	// LogLevel is the logging level ("debug", "info", "warn", "error").
	LogLevel string
}

// Load loads configuration from environment variables, plus a .env file in
// the current directory if one exists. Only the local .env is consulted;
// picking up credentials from an ancestor directory's file would be a
// surprise for a secrets tool.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		DBPath:     env.GetString("COFFER_DB_PATH", defaultDBPath()),
		Password:   env.GetString("COFFER_PASSWORD", ""),
		Key:        env.GetString("COFFER_KEY", ""),
		Iterations: env.GetInt("COFFER_ITERATIONS", crypto.DefaultIterations),
		LogLevel:   env.GetString("COFFER_LOG_LEVEL", "info"),
	}
}

// SlogLevel maps LogLevel onto a slog.Level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "coffer.db"
	}
	return filepath.Join(home, ".coffer", "coffer.db")
}
