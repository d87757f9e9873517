package main

import (
	"log/slog"
	"os"
	"strings"
)

// envDefaults holds flag defaults read from the environment.
type envDefaults struct {
	DBPath    string
	LogLevel  string
	LogFormat string
}

func loadEnv() envDefaults {
	return envDefaults{
		DBPath:    getEnv("GTFSTABLES_DB", "gtfstables.db"),
		LogLevel:  getEnv("GTFSTABLES_LOG_LEVEL", "info"),
		LogFormat: getEnv("GTFSTABLES_LOG_FORMAT", "text"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// setupLogging configures the default slog logger. Logs go to stderr so that
// stdout stays clean for command output.
func setupLogging(level, format string) {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
