package testutil

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// TestLogger is an io.Writer that forwards each log line to t.Log.
type TestLogger struct {
	t *testing.T
}

// Write implements io.Writer.
func (l *TestLogger) Write(p []byte) (int, error) {
	l.t.Helper()
	l.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// NewTestLogger returns a debug level logger that writes to the test log.
func NewTestLogger(t *testing.T) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: &TestLogger{t: t}, NoColor: true}).
		Level(zerolog.DebugLevel).
		With().
		Timestamp().
		Logger()
}
