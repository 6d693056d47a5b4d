package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns the process logger tagged with the service name.
// APP_ENV=dev (or development, local) writes debug-level console output;
// anything else writes JSON at info level.
func NewLogger(env string) zerolog.Logger {
	return newLogger(env, os.Stdout)
}

func newLogger(env string, out io.Writer) zerolog.Logger {
	var l zerolog.Logger
	switch env {
	case "dev", "development", "local":
		l = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).Level(zerolog.DebugLevel)
	default:
		l = zerolog.New(out).Level(zerolog.InfoLevel)
	}
	return l.With().Timestamp().Str("service", "campmap").Logger()
}
