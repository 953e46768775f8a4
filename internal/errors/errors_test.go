package errors

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCLINotFoundError(t *testing.T) {
	err := &CLINotFoundError{
		SearchedPaths: []string{"/usr/bin/codex", "/opt/bin/codex"},
	}

	require.Equal(
		t,
		"codex CLI not found in: [/usr/bin/codex /opt/bin/codex]",
		err.Error(),
	)
	require.True(t, err.IsCodexSDKError())
}

func TestCLIConnectionError(t *testing.T) {
	root := errors.New("spawn failed")
	err := &CLIConnectionError{Err: root}

	require.Equal(t, "failed to connect to codex app-server: spawn failed", err.Error())
	require.ErrorIs(t, err, root)
	require.True(t, err.IsCodexSDKError())
}

func TestProcessError_WithUnderlyingError(t *testing.T) {
	root := errors.New("signal: killed")
	err := &ProcessError{
		ExitCode: 9,
		Stderr:   "ignored when Err is set",
		Err:      root,
	}

	require.Equal(t, "codex app-server failed (exit 9): signal: killed", err.Error())
	require.ErrorIs(t, err, root)
	require.True(t, err.IsCodexSDKError())
}

func TestProcessError_WithStderrOnly(t *testing.T) {
	err := &ProcessError{
		ExitCode: 2,
		Stderr:   "not logged in",
	}

	require.Equal(t, "codex app-server failed (exit 2): not logged in", err.Error())
	require.NoError(t, err.Unwrap())
}

func TestJSONDecodeError(t *testing.T) {
	root := errors.New("unexpected token")
	err := &JSONDecodeError{
		RawData: `{"id":1,`,
		Err:     root,
	}

	require.Equal(t, "failed to decode JSON from app-server: unexpected token", err.Error())
	require.ErrorIs(t, err, root)
	require.True(t, err.IsCodexSDKError())
}

func TestInvalidEnvelopeError(t *testing.T) {
	root := errors.New("missing properties: [\"method\"]")

	err := &InvalidEnvelopeError{Direction: "outbound", Kind: "request", Err: root}
	require.Equal(t, `invalid outbound JSON-RPC request: missing properties: ["method"]`, err.Error())
	require.ErrorIs(t, err, root)

	unknown := &InvalidEnvelopeError{Direction: "inbound"}
	require.Equal(t, "invalid inbound JSON-RPC message", unknown.Error())
}

func TestRPCError(t *testing.T) {
	err := &RPCError{
		Method:  "thread/start",
		Code:    -32602,
		Message: "invalid params",
		Data:    json.RawMessage(`{"field":"cwd"}`),
	}

	require.Equal(t, "thread/start: rpc error -32602: invalid params", err.Error())
	require.True(t, err.IsCodexSDKError())

	bare := &RPCError{Code: -32603, Message: "boom"}
	require.Equal(t, "rpc error -32603: boom", bare.Error())
}

func TestRequestTimeoutError(t *testing.T) {
	err := &RequestTimeoutError{Method: "model/list", Timeout: 1500 * time.Millisecond}

	require.Equal(t, "request model/list timed out after 1.5s", err.Error())
	require.ErrorIs(t, err, ErrRequestTimeout)

	target, ok := errors.AsType[*RequestTimeoutError](error(err))
	require.True(t, ok)
	require.Equal(t, "model/list", target.Method)
}

func TestSessionError(t *testing.T) {
	err := &SessionError{Op: "interrupt", Err: ErrNoActiveTurn}

	require.ErrorIs(t, err, ErrNoActiveTurn)
	require.Contains(t, err.Error(), "interrupt: no active app-server turn")
}

func TestTurnFailedError(t *testing.T) {
	err := &TurnFailedError{TurnID: "u1", Message: "context window exceeded"}
	require.Equal(t, "turn u1 failed: context window exceeded", err.Error())

	empty := &TurnFailedError{}
	require.Equal(t, "turn failed: Codex turn failed", empty.Error())
}

func TestServerError(t *testing.T) {
	err := &ServerError{Message: "stream disconnected"}

	require.Equal(t, "codex app-server error: stream disconnected", err.Error())
	require.True(t, err.IsCodexSDKError())
}

func TestConfigError(t *testing.T) {
	root := errors.New("must not set both command and url")

	err := &ConfigError{Field: "mcp_servers.docs", Err: root}
	require.Equal(t, "invalid configuration mcp_servers.docs: must not set both command and url", err.Error())
	require.ErrorIs(t, err, root)

	noField := &ConfigError{Err: root}
	require.Equal(t, "invalid configuration: must not set both command and url", noField.Error())
}
