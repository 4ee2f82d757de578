package obs

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	loggerOnce sync.Once
	logger     zerolog.Logger
)

// Logger returns the shared structured logger used across the service.
func Logger() zerolog.Logger {
	loggerOnce.Do(func() {
		logger = zerolog.New(os.Stdout).With().Timestamp().Str("service", "atlasforge-api").Logger()
	})
	return logger
}

// Ops returns the operator side channel: background failures that must be
// visible to operators but never to end users (e.g. the analyzer
// notification) log here.
func Ops() zerolog.Logger {
	return Logger().With().Str("channel", "ops").Logger()
}

// NewLogger builds a logger writing to w. Used by tests to capture output.
func NewLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}
