package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// New constructs a JSON slog logger. When LOG_FILE is set, records are also
// written to a size-rotated file.
func New() *slog.Logger {
	level := parseLevel(os.Getenv("LOG_LEVEL"))
	handler := slog.NewJSONHandler(output(os.Getenv("LOG_FILE")), &slog.HandlerOptions{Level: level})
	return slog.New(handler).With("service", "meeting-summarizer")
}

func output(path string) io.Writer {
	path = strings.TrimSpace(path)
	if path == "" {
		return os.Stdout
	}
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
	return io.MultiWriter(os.Stdout, rotator)
}

func parseLevel(level string) slog.Leveler {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
