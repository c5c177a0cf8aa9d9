package logging

import (
	"log/slog"
	"os"
)

// Logger wraps slog for structured logging.
type Logger struct {
	*slog.Logger
}

// New creates a Logger that outputs text or JSON depending on config.
// The server runs JSON at debug level; the CLI runs text at info unless
// --verbose raises it.
func New(jsonMode bool, level slog.Level) *Logger {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if jsonMode {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return &Logger{slog.New(handler)}
}

// Component returns a child logger tagged with the emitting component.
func (l *Logger) Component(name string) *Logger {
	return &Logger{l.With("component", name)}
}
