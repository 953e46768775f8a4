package codexsdk

import (
	"io"
	"log/slog"
)

// NopLogger returns a logger that discards all output.
// Use this when you want silent operation with no logging overhead.
func NopLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// NewTextLogger returns a text logger writing records at level or above
// to w. Handy for debugging a run:
//
//	codexsdk.WithLogger(codexsdk.NewTextLogger(os.Stderr, slog.LevelDebug))
func NewTextLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
