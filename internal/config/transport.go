// Package config provides configuration types for the Codex SDK.
package config

import (
	"context"
	"log/slog"
)

// Transport defines the line-oriented link to a codex app-server.
// Implement this to provide custom transports for testing, mocking,
// or alternative communication methods (e.g., a websocket listener).
//
// The default implementation is AppServerTransport which spawns a
// subprocess. Custom transports can be injected via BackendConfig.NewTransport.
type Transport interface {
	// Start initializes the transport and prepares it for communication.
	// The context bounds the lifetime of the connection, not just startup.
	Start(ctx context.Context) error

	// ReadMessages returns channels for receiving raw lines and errors.
	// Each line is one JSON-RPC envelope without its trailing newline.
	// Both channels are closed when reading completes.
	ReadMessages(ctx context.Context) (<-chan []byte, <-chan error)

	// SendMessage writes one envelope (newline is appended if missing).
	// This method must be safe for concurrent use.
	SendMessage(ctx context.Context, data []byte) error

	// Close terminates the transport and releases resources.
	// It's safe to call Close multiple times.
	Close() error

	// IsReady returns true if the transport is ready for communication.
	IsReady() bool
}

// TransportSettings are the per-connection settings a transport is built
// from. A change in any of them forces the backend to build a new transport.
type TransportSettings struct {
	// CodexPath is the codex binary to launch. Empty means discover it.
	CodexPath string

	// Cwd is the working directory of the app-server process.
	Cwd string

	// Env holds environment overrides merged over the host environment.
	Env map[string]string

	// Logger receives transport diagnostics.
	Logger *slog.Logger

	// Stderr, when set, receives each stderr line of the process.
	Stderr func(string)
}

// TransportFactory builds a transport for the given settings.
type TransportFactory func(settings TransportSettings) (Transport, error)
