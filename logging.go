package main

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// logger is the process-wide logger. It stays silent until initLogger runs so
// tests that never call it produce no log noise.
var logger = zerolog.Nop()

// newLogger builds a console logger. Banners and the summary go to stdout,
// so logs always go to the writer given here (stderr in practice).
func newLogger(w io.Writer, debug, quiet bool) zerolog.Logger {
	level := zerolog.InfoLevel
	switch {
	case debug:
		level = zerolog.DebugLevel
	case quiet:
		level = zerolog.WarnLevel
	}

	writer := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

func initLogger(debug, quiet bool) {
	logger = newLogger(os.Stderr, debug, quiet)
}
