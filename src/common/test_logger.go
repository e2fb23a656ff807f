package common

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
)

// testWriter turns each log line into a t.Log call, so logs only show up for
// failing tests or with -v.
type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (int, error) {
	line := bytes.TrimSuffix(p, []byte{'\n'})
	if len(line) > 0 {
		w.t.Helper()
		w.t.Log(string(line))
	}
	return len(p), nil
}

// NewTestLogger returns a debug-level logger writing through t.
func NewTestLogger(t testing.TB) *logrus.Logger {
	logger := logrus.New()
	logger.Out = testWriter{t: t}
	logger.Level = logrus.DebugLevel
	return logger
}
