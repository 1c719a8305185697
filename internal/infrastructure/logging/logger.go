package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/campus-portal/internal/infrastructure/config"
)

// serviceName is attached to every record as the "service" attribute.
const serviceName = "campusportal"

// Logger is the portal's structured logger. The embedded *slog.Logger can
// be handed to packages that take one directly.
type Logger struct {
	*slog.Logger
}

// New logs to stdout, or stderr when cfg.Output is "stderr".
func New(cfg config.LoggingConfig, version string) *Logger {
	var w io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		w = os.Stderr
	}
	return NewWithWriter(cfg, version, w)
}

// NewWithWriter logs to w. Format "text" selects slog's key=value handler;
// anything else gets JSON. Every record carries service and version.
func NewWithWriter(cfg config.LoggingConfig, version string, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var h slog.Handler = slog.NewJSONHandler(w, opts)
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(w, opts)
	}

	return &Logger{Logger: slog.New(h).With("service", serviceName, "version", version)}
}

// parseLevel accepts slog's names in any case plus "warning". Anything it
// cannot read means info.
func parseLevel(s string) slog.Level {
	if strings.EqualFold(s, "warning") {
		s = "warn"
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// With returns a child logger carrying args on every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default is the logger used until configuration is loaded.
func Default() *Logger {
	return NewWithWriter(config.LoggingConfig{}, "dev", os.Stdout)
}

// Discard drops every record.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}
