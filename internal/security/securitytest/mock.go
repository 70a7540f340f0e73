// Package securitytest provides logging helpers for other packages' tests.
package securitytest

import (
	"bytes"
	"io"
	"log/slog"
	"sync"

	"github.com/flemzord/mindcanvas/internal/security"
)

// NewTestRedactor creates a Redactor with no patterns, so test strings that
// happen to look like keys are left alone.
func NewTestRedactor() *security.Redactor {
	return &security.Redactor{}
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// LogBuffer is a concurrency-safe buffer for capturing log output.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// Write implements io.Writer.
func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// String returns everything written so far.
func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// CaptureLogger returns a debug-level text logger and the buffer it writes to.
func CaptureLogger() (*slog.Logger, *LogBuffer) {
	buf := &LogBuffer{}
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}
