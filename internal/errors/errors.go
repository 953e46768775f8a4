package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// CodexSDKError is the base interface for all SDK errors.
type CodexSDKError interface {
	error
	IsCodexSDKError() bool
}

// Compile-time verification that all error types implement CodexSDKError.
var (
	_ CodexSDKError = (*CLINotFoundError)(nil)
	_ CodexSDKError = (*CLIConnectionError)(nil)
	_ CodexSDKError = (*ProcessError)(nil)
	_ CodexSDKError = (*JSONDecodeError)(nil)
	_ CodexSDKError = (*InvalidEnvelopeError)(nil)
	_ CodexSDKError = (*RPCError)(nil)
	_ CodexSDKError = (*RequestTimeoutError)(nil)
	_ CodexSDKError = (*SessionError)(nil)
	_ CodexSDKError = (*TurnFailedError)(nil)
	_ CodexSDKError = (*ServerError)(nil)
	_ CodexSDKError = (*ConfigError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrTransportNotConnected indicates the transport is not connected.
	ErrTransportNotConnected = errors.New("transport not connected")

	// ErrConnectionClosed is delivered to every call still pending when the
	// connection to the app-server is torn down.
	ErrConnectionClosed = errors.New("codex app-server connection closed")

	// ErrRequestTimeout indicates a request timed out.
	ErrRequestTimeout = errors.New("request timeout")

	// ErrStdinClosed indicates stdin was closed due to context cancellation.
	ErrStdinClosed = errors.New("stdin closed")

	// ErrBackendClosed indicates the backend has been closed and cannot be reused.
	ErrBackendClosed = errors.New("backend closed: create a new one with NewBackend()")

	// ErrNoActiveTurn indicates interrupt was called without a running turn.
	ErrNoActiveTurn = errors.New("no active app-server turn: start a run before calling Interrupt()")

	// ErrInjectUnsupported indicates mid-turn injection was requested.
	ErrInjectUnsupported = errors.New("inject is not supported by codex app-server v2: start a new run instead")
)

// CLINotFoundError indicates the codex binary was not found.
type CLINotFoundError struct {
	SearchedPaths []string
}

func (e *CLINotFoundError) Error() string {
	return fmt.Sprintf("codex CLI not found in: %v", e.SearchedPaths)
}

// IsCodexSDKError implements CodexSDKError.
func (e *CLINotFoundError) IsCodexSDKError() bool { return true }

// CLIConnectionError indicates failure to spawn or connect to the app-server.
type CLIConnectionError struct {
	Err error
}

func (e *CLIConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to codex app-server: %v", e.Err)
}

func (e *CLIConnectionError) Unwrap() error {
	return e.Err
}

// IsCodexSDKError implements CodexSDKError.
func (e *CLIConnectionError) IsCodexSDKError() bool { return true }

// ProcessError indicates the app-server process exited unexpectedly.
type ProcessError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("codex app-server failed (exit %d): %v", e.ExitCode, e.Err)
	}

	return fmt.Sprintf("codex app-server failed (exit %d): %s", e.ExitCode, e.Stderr)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// IsCodexSDKError implements CodexSDKError.
func (e *ProcessError) IsCodexSDKError() bool { return true }

// JSONDecodeError indicates an inbound line was not valid JSON.
// This error preserves the original raw data that failed to parse.
type JSONDecodeError struct {
	RawData string
	Err     error
}

func (e *JSONDecodeError) Error() string {
	return fmt.Sprintf("failed to decode JSON from app-server: %v", e.Err)
}

func (e *JSONDecodeError) Unwrap() error {
	return e.Err
}

// IsCodexSDKError implements CodexSDKError.
func (e *JSONDecodeError) IsCodexSDKError() bool { return true }

// InvalidEnvelopeError indicates a JSON-RPC envelope failed validation.
// Direction is "inbound" or "outbound"; Kind names the envelope that was
// expected ("request", "notification", "response", "error") or is empty
// when the shape matched none of them.
type InvalidEnvelopeError struct {
	Direction string
	Kind      string
	Err       error
}

func (e *InvalidEnvelopeError) Error() string {
	kind := e.Kind
	if kind == "" {
		kind = "message"
	}

	if e.Err != nil {
		return fmt.Sprintf("invalid %s JSON-RPC %s: %v", e.Direction, kind, e.Err)
	}

	return fmt.Sprintf("invalid %s JSON-RPC %s", e.Direction, kind)
}

func (e *InvalidEnvelopeError) Unwrap() error {
	return e.Err
}

// IsCodexSDKError implements CodexSDKError.
func (e *InvalidEnvelopeError) IsCodexSDKError() bool { return true }

// RPCError is an error envelope returned by the app-server for a request.
type RPCError struct {
	Method  string
	Code    int64
	Message string
	Data    json.RawMessage
}

func (e *RPCError) Error() string {
	if e.Method != "" {
		return fmt.Sprintf("%s: rpc error %d: %s", e.Method, e.Code, e.Message)
	}

	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// IsCodexSDKError implements CodexSDKError.
func (e *RPCError) IsCodexSDKError() bool { return true }

// RequestTimeoutError indicates a single request received no answer in time.
type RequestTimeoutError struct {
	Method  string
	Timeout time.Duration
}

func (e *RequestTimeoutError) Error() string {
	return fmt.Sprintf("request %s timed out after %s", e.Method, e.Timeout)
}

func (e *RequestTimeoutError) Unwrap() error {
	return ErrRequestTimeout
}

// IsCodexSDKError implements CodexSDKError.
func (e *RequestTimeoutError) IsCodexSDKError() bool { return true }

// SessionError indicates an operation was invalid for the current session state.
type SessionError struct {
	Op  string
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// IsCodexSDKError implements CodexSDKError.
func (e *SessionError) IsCodexSDKError() bool { return true }

// TurnFailedError indicates the app-server reported a turn as failed.
type TurnFailedError struct {
	ThreadID string
	TurnID   string
	Message  string
	Details  json.RawMessage
}

// DefaultTurnFailedMessage is used when a failed turn carries no message.
const DefaultTurnFailedMessage = "Codex turn failed"

func (e *TurnFailedError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = DefaultTurnFailedMessage
	}

	if e.TurnID != "" {
		return fmt.Sprintf("turn %s failed: %s", e.TurnID, msg)
	}

	return "turn failed: " + msg
}

// IsCodexSDKError implements CodexSDKError.
func (e *TurnFailedError) IsCodexSDKError() bool { return true }

// ServerError is a top-level "error" notification raised by the app-server
// during a turn.
type ServerError struct {
	Message string
	Details json.RawMessage
}

func (e *ServerError) Error() string {
	return "codex app-server error: " + e.Message
}

// IsCodexSDKError implements CodexSDKError.
func (e *ServerError) IsCodexSDKError() bool { return true }

// ConfigError indicates invalid backend or run configuration.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid configuration: %v", e.Err)
	}

	return fmt.Sprintf("invalid configuration %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsCodexSDKError implements CodexSDKError.
func (e *ConfigError) IsCodexSDKError() bool { return true }
