package codexsdk

import "github.com/BjornMelin/codex-sdk-agents/internal/errors"

// Re-export error types from internal package

// CLINotFoundError indicates the codex binary was not found.
type CLINotFoundError = errors.CLINotFoundError

// CLIConnectionError indicates failure to connect to the app-server.
type CLIConnectionError = errors.CLIConnectionError

// ProcessError indicates the app-server process failed.
type ProcessError = errors.ProcessError

// JSONDecodeError indicates a line from the app-server was not valid JSON.
type JSONDecodeError = errors.JSONDecodeError

// InvalidEnvelopeError indicates a line was JSON but not a JSON-RPC envelope.
type InvalidEnvelopeError = errors.InvalidEnvelopeError

// RPCError is a JSON-RPC error returned for a request.
type RPCError = errors.RPCError

// RequestTimeoutError indicates a request got no response in time.
type RequestTimeoutError = errors.RequestTimeoutError

// SessionError indicates an operation invalid for the backend's state.
type SessionError = errors.SessionError

// TurnFailedError indicates the turn ended with status failed.
type TurnFailedError = errors.TurnFailedError

// ServerError is an error notification the app-server sent during a run.
type ServerError = errors.ServerError

// ConfigError indicates invalid options.
type ConfigError = errors.ConfigError

// CodexSDKError is the base interface for all SDK errors.
type CodexSDKError = errors.CodexSDKError

// Re-export sentinel errors from internal package.
var (
	// ErrTransportNotConnected indicates the transport is not connected.
	ErrTransportNotConnected = errors.ErrTransportNotConnected

	// ErrConnectionClosed indicates the app-server connection went away.
	ErrConnectionClosed = errors.ErrConnectionClosed

	// ErrRequestTimeout indicates a request timed out.
	ErrRequestTimeout = errors.ErrRequestTimeout

	// ErrBackendClosed indicates the backend has been closed and cannot be reused.
	ErrBackendClosed = errors.ErrBackendClosed

	// ErrNoActiveTurn indicates Interrupt was called without a running turn.
	ErrNoActiveTurn = errors.ErrNoActiveTurn

	// ErrInjectUnsupported indicates mid-turn injection was requested.
	ErrInjectUnsupported = errors.ErrInjectUnsupported
)
