package observability

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// NewLogger builds the process logger. Pretty console output is used in dev mode.
func NewLogger(level string, pretty bool) *zerolog.Logger {
	lvl := zerolog.InfoLevel
	switch strings.ToLower(level) {
	case "debug":
		lvl = zerolog.DebugLevel
	case "warn":
		lvl = zerolog.WarnLevel
	case "error":
		lvl = zerolog.ErrorLevel
	}
	var out io.Writer = os.Stdout
	if pretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05.000"}
	}
	logger := zerolog.New(out).Level(lvl).With().Timestamp().Str("version", Version).Logger()
	return &logger
}

// Component derives a child logger tagged with the component name.
func Component(l *zerolog.Logger, name string) *zerolog.Logger {
	if l == nil {
		nop := zerolog.Nop()
		l = &nop
	}
	c := l.With().Str("component", name).Logger()
	return &c
}
