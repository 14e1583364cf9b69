// Package logging builds the process slog handler from configuration.
package logging

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"boardpacks/internal/config"

	"github.com/topi314/tint"
)

const (
	FormatJSON = "json"
	FormatText = "text"
)

func ParseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return slog.LevelInfo
	}
	return l
}

// NewHandler returns a JSON handler for the json format and a colored tint handler otherwise.
func NewHandler(w io.Writer, cfg config.LogConfig) slog.Handler {
	level := ParseLevel(cfg.Level)
	if cfg.Format == FormatJSON {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{
			AddSource: cfg.AddSource,
			Level:     level,
		})
	}
	return tint.NewHandler(w, &tint.Options{
		AddSource:  cfg.AddSource,
		Level:      level,
		NoColor:    cfg.NoColor,
		TimeFormat: time.StampMilli,
	})
}

// Setup installs the configured handler as the default logger.
func Setup(w io.Writer, cfg config.LogConfig) *slog.Logger {
	logger := slog.New(NewHandler(w, cfg))
	slog.SetDefault(logger)
	return logger
}
