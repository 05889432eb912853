package erddaptesting

import (
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
)

// NewLogger returns a logger whose output is attached to tb, so it appears next to the test
// that produced it. Records below error level are dropped unless DEBUG is set to 1 (info) or
// 2 (debug).
func NewLogger(tb testing.TB) *slog.Logger {
	w := &testWriter{tb: tb}
	tb.Cleanup(w.close)
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: levelFromEnv()}))
}

func levelFromEnv() slog.Level {
	switch os.Getenv("DEBUG") {
	case "2":
		return slog.LevelDebug
	case "1":
		return slog.LevelInfo
	default:
		return slog.LevelError
	}
}

// testWriter forwards to tb.Log until the test ends and to stderr afterwards, since
// background goroutines may still log after cleanup.
type testWriter struct {
	tb     testing.TB
	mu     sync.Mutex
	closed bool
}

func (w *testWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return os.Stderr.Write(p)
	}
	w.tb.Log(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}

func (w *testWriter) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
}
