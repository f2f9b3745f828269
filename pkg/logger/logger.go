// pkg/logger/logger.go
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

var (
	// Log is the global logger instance
	Log zerolog.Logger
)

func init() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano

	Log = build(os.Stdout, "console", zerolog.InfoLevel)
	log.Logger = Log
}

func build(out io.Writer, format string, level zerolog.Level) zerolog.Logger {
	w := out
	// The Functions host collects stdout line by line, so json keeps one
	// record per line; console is for local runs.
	if strings.ToLower(format) != "json" {
		w = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "2006-01-02 15:04:05",
		}
	}

	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Caller().
		Logger()
}

// Configure rebuilds the global logger with the given level and format
// ("console" or "json"). Unknown levels fall back to info.
func Configure(levelStr, format string) {
	level, err := zerolog.ParseLevel(strings.ToLower(levelStr))
	if err != nil || levelStr == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	Log = build(os.Stdout, format, level)
	log.Logger = Log
	if err != nil {
		Log.Warn().Str("level", levelStr).Msg("invalid log level, defaulting to info")
	}
}

// SetOutput redirects the global logger, keeping its level. Used by tests
// that assert on log lines.
func SetOutput(out io.Writer, format string) {
	Log = build(out, format, Log.GetLevel())
	log.Logger = Log
}
