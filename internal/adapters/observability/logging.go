package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a zerolog Logger writing to stderr (stdout belongs to
// the terminal UI). APP_ENV=dev (or development) uses a human-friendly
// console writer.
func NewLogger(env string) zerolog.Logger {
	var out io.Writer = os.Stderr
	if env == "dev" || env == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

// NewFileLogger logs to the given file, for interactive runs where stderr
// is occupied by the UI. Falls back to stderr when the file cannot be
// opened.
func NewFileLogger(path string) zerolog.Logger {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return NewLogger("")
	}
	return zerolog.New(f).With().Timestamp().Logger()
}
