package codexsdk

import (
	"net/http"

	"github.com/BjornMelin/codex-sdk-agents/internal/config"
	"github.com/BjornMelin/codex-sdk-agents/internal/subprocess"
	"github.com/BjornMelin/codex-sdk-agents/internal/wsconn"
)

// Transport defines the line-oriented link to a codex app-server.
// Implement this to provide custom transports for testing, mocking,
// or alternative communication methods.
//
// The default implementation spawns `codex app-server` as a subprocess.
// Custom transports can be injected with WithTransportFactory.
type Transport = config.Transport

// TransportSettings are the per-connection settings a transport is built
// from: codex binary, working directory and environment.
type TransportSettings = config.TransportSettings

// TransportFactory builds a transport for the given settings.
type TransportFactory = config.TransportFactory

// SubprocessTransport returns the default factory spawning
// `codex app-server` over stdio.
func SubprocessTransport() TransportFactory {
	return subprocess.NewTransport
}

// WebSocketTransport returns a factory dialing a `codex app-server
// --listen` websocket endpoint. Settings other than the logger are
// ignored since the server process is already running.
func WebSocketTransport(url string, header http.Header) TransportFactory {
	return wsconn.Factory(url, header)
}
