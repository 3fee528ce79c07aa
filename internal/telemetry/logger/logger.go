package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	// Slog exposes the underlying logger for components that take a
	// *slog.Logger directly.
	Slog() *slog.Logger
}

// Config holds logger configuration.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, text
	// Output defaults to os.Stderr.
	Output    io.Writer
	AddSource bool
	// Service, when set, is attached to every record.
	Service string
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "json",
		Output: os.Stderr,
	}
}

// level is shared by every logger built by New, so SetLevel on a config
// reload reaches loggers already handed to components.
var level = new(slog.LevelVar)

// New creates a logger. Unknown levels or formats are rejected.
func New(cfg Config) (Logger, error) {
	lvl, ok := parseLevel(cfg.Level)
	if !ok {
		return nil, fmt.Errorf("logger: unknown level %q", cfg.Level)
	}
	level.Set(lvl)

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			return redactSensitive(a)
		},
	}

	var h slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json", "":
		h = slog.NewJSONHandler(out, opts)
	case "text":
		h = slog.NewTextHandler(out, opts)
	default:
		return nil, fmt.Errorf("logger: unknown format %q", cfg.Format)
	}

	l := slog.New(contextHandler{h})
	if cfg.Service != "" {
		l = l.With("service", cfg.Service)
	}
	return &slogLogger{l: l}, nil
}

// SetLevel changes the level of every logger built by New. Unknown
// levels are ignored.
func SetLevel(s string) {
	if lvl, ok := parseLevel(s); ok {
		level.Set(lvl)
	}
}

// GetLevel returns the current level name.
func GetLevel() string {
	return strings.ToLower(level.Level().String())
}

// SetDefault installs l as the slog default, so packages logging through
// slog.Default share its handler.
func SetDefault(l Logger) {
	slog.SetDefault(l.Slog())
}

type slogLogger struct {
	l *slog.Logger
}

func (s *slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s *slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s *slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s *slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }

func (s *slogLogger) With(args ...any) Logger {
	return &slogLogger{l: s.l.With(args...)}
}

func (s *slogLogger) Slog() *slog.Logger {
	return s.l
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
