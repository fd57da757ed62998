package logging

import (
	"io"
	"log/slog"
	"os"
)

// Setup initializes the global slog logger with JSON output to stdout.
func Setup(extra ...slog.Handler) *slog.Logger {
	return SetupWriter(os.Stdout, extra...)
}

// SetupWriter is Setup with a configurable destination for the JSON stream.
func SetupWriter(w io.Writer, extra ...slog.Handler) *slog.Logger {
	var handler slog.Handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	if len(extra) > 0 {
		handler = NewMultiHandler(append([]slog.Handler{handler}, extra...)...)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
