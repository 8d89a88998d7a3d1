package util

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

type loggerContextKey struct{}

// ParseLevel maps debug, info, warn, error to slog levels. Defaults to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// InitLogger configures the global slog logger.
// format "text" writes colored human-readable lines to stderr (color only on a TTY);
// anything else writes JSON to stdout.
func InitLogger(level, format string) *slog.Logger {
	logger := slog.New(newHandler(ParseLevel(level), format, os.Stdout, os.Stderr))
	slog.SetDefault(logger)
	return logger
}

func newHandler(level slog.Level, format string, stdout io.Writer, stderr *os.File) slog.Handler {
	if strings.EqualFold(strings.TrimSpace(format), "text") {
		return tint.NewHandler(colorable.NewColorable(stderr), &tint.Options{
			Level:      level,
			TimeFormat: "15:04:05.000",
			NoColor:    !isatty.IsTerminal(stderr.Fd()),
			AddSource:  level == slog.LevelDebug,
		})
	}
	return slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
	})
}

// ContextWithLogger stores a request-scoped logger in ctx.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, logger)
}

// LoggerFromContext returns the request-scoped logger or slog.Default().
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerContextKey{}).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}
