package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New creates a console logger writing to w. debug forces the debug level.
func New(w io.Writer, level string, debug bool) zerolog.Logger {
	writer := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.TimeOnly,
	}

	lvl := ParseLevel(level)
	if debug && lvl > zerolog.DebugLevel {
		lvl = zerolog.DebugLevel
	}
	return zerolog.New(writer).Level(lvl).With().Timestamp().Logger()
}

// Component returns a child logger tagged with component
func Component(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
