package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Service is attached to every log line as the "service" field.
const Service = "saldo"

type ctxKey struct{}

// New creates a console logger for a component such as "api", "worker" or
// "migrate". An empty component is left out of the output.
func New(component string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	return NewWithWriter(output, component)
}

// NewWithWriter creates a logger for component that writes JSON lines to w.
func NewWithWriter(w io.Writer, component string) zerolog.Logger {
	ctx := zerolog.New(w).With().Timestamp().Caller().Str("service", Service)
	if component != "" {
		ctx = ctx.Str("component", component)
	}
	return ctx.Logger()
}

// NewFromConfig creates a logger with the given level and format. Format
// "json" writes JSON lines; anything else uses the console writer. An
// unknown level falls back to info.
func NewFromConfig(component, level, format string) zerolog.Logger {
	var log zerolog.Logger
	if strings.EqualFold(format, "json") {
		log = NewWithWriter(os.Stdout, component)
	} else {
		log = New(component)
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return log.Level(lvl)
}

// WithContext adds the logger to the context
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext retrieves the logger from the context or returns a console
// logger without a component.
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
		return logger
	}
	return New("")
}

// WithBackend tags log lines with the name of the ledger store backend.
func WithBackend(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("backend", name).Logger()
}
