package jsonrpc

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	sdkerrors "github.com/BjornMelin/codex-sdk-agents/internal/errors"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()

	codec, err := NewCodec()
	require.NoError(t, err)

	return codec
}

func TestDecode_Classification(t *testing.T) {
	codec := newTestCodec(t)

	tests := []struct {
		name string
		line string
		kind Kind
	}{
		{name: "response", line: `{"id":1,"result":{"ok":true}}`, kind: KindResponse},
		{name: "response with null result", line: `{"id":1,"result":null}`, kind: KindResponse},
		{name: "error", line: `{"id":"a","error":{"code":-32601,"message":"nope"}}`, kind: KindError},
		{name: "request", line: `{"id":7,"method":"item/tool/requestUserInput","params":{}}`, kind: KindRequest},
		{name: "notification", line: `{"method":"turn/started","params":{"turn":{"id":"u1"}}}`, kind: KindNotification},
		{name: "notification without params", line: `{"method":"initialized"}`, kind: KindNotification},
		{name: "extra members allowed", line: `{"jsonrpc":"2.0","id":1,"result":1,"x":true}`, kind: KindResponse},
		{name: "response wins over request", line: `{"id":1,"method":"m","result":{}}`, kind: KindResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := codec.Decode([]byte(tt.line))
			require.NoError(t, err)
			require.Equal(t, tt.kind, env.Kind())
		})
	}
}

func TestDecode_Fields(t *testing.T) {
	codec := newTestCodec(t)

	env, err := codec.Decode([]byte(`{"id":"req-9","method":"execCommandApproval","params":{"callId":"c1"}}`))
	require.NoError(t, err)

	req, ok := env.(*Request)
	require.True(t, ok)
	require.Equal(t, NewStringID("req-9"), req.ID)
	require.Equal(t, "execCommandApproval", req.Method)
	require.JSONEq(t, `{"callId":"c1"}`, string(req.Params))

	env, err = codec.Decode([]byte(`{"id":3,"error":{"code":-32000,"message":"bad","data":{"k":1}}}`))
	require.NoError(t, err)

	errResp, ok := env.(*ErrorResponse)
	require.True(t, ok)

	n, ok := errResp.ID.Int64()
	require.True(t, ok)
	require.Equal(t, int64(3), n)
	require.Equal(t, int64(-32000), errResp.Error.Code)
	require.Equal(t, "bad", errResp.Error.Message)
	require.JSONEq(t, `{"k":1}`, string(errResp.Error.Data))
}

func TestDecode_Rejects(t *testing.T) {
	codec := newTestCodec(t)

	t.Run("invalid json", func(t *testing.T) {
		_, err := codec.Decode([]byte(`{"id":1,`))

		var decodeErr *sdkerrors.JSONDecodeError
		require.ErrorAs(t, err, &decodeErr)
		require.Equal(t, `{"id":1,`, decodeErr.RawData)
	})

	shapes := []string{
		`{"id":1}`,
		`{"foo":"bar"}`,
		`[1,2,3]`,
		`"hello"`,
		`{"id":null,"method":"x"}`,
		`{"id":true,"result":1}`,
		`{"method":5}`,
		`{"id":1,"error":{"code":"x","message":"m"}}`,
	}

	for _, line := range shapes {
		t.Run(line, func(t *testing.T) {
			_, err := codec.Decode([]byte(line))
			require.ErrorIs(t, err, ErrUnknownShape)

			var envErr *sdkerrors.InvalidEnvelopeError
			require.True(t, errors.As(err, &envErr))
			require.Equal(t, "inbound", envErr.Direction)
		})
	}
}

func TestEncode(t *testing.T) {
	codec := newTestCodec(t)

	req, err := NewRequest(NewIntID(1), "initialize", map[string]any{
		"clientInfo": map[string]string{"name": "codex-toolloop"},
	})
	require.NoError(t, err)

	data, err := codec.Encode(req)
	require.NoError(t, err)
	require.JSONEq(t, `{"id":1,"method":"initialize","params":{"clientInfo":{"name":"codex-toolloop"}}}`, string(data))
	require.NotContains(t, string(data), "\n")

	note, err := NewNotification("initialized", nil)
	require.NoError(t, err)

	data, err = codec.Encode(note)
	require.NoError(t, err)
	require.JSONEq(t, `{"method":"initialized"}`, string(data))

	resp, err := NewResponse(NewStringID("s1"), nil)
	require.NoError(t, err)

	data, err = codec.Encode(resp)
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"s1","result":{}}`, string(data))

	data, err = codec.Encode(&ErrorResponse{
		ID:    NewIntID(4),
		Error: ErrorObject{Code: CodeMethodNotFound, Message: "unsupported"},
	})
	require.NoError(t, err)
	require.JSONEq(t, `{"id":4,"error":{"code":-32601,"message":"unsupported"}}`, string(data))
}

func TestEncode_InvalidOutbound(t *testing.T) {
	codec := newTestCodec(t)

	_, err := codec.Encode(&Request{Method: "thread/start"})

	var envErr *sdkerrors.InvalidEnvelopeError
	require.ErrorAs(t, err, &envErr)
	require.Equal(t, "outbound", envErr.Direction)
	require.Equal(t, "request", envErr.Kind)
}

func TestRequestID_RoundTrip(t *testing.T) {
	for _, literal := range []string{`1`, `"1"`, `"abc"`, `9007199254740993`, `1.5`} {
		var id RequestID
		require.NoError(t, json.Unmarshal([]byte(literal), &id))

		out, err := json.Marshal(id)
		require.NoError(t, err)
		require.Equal(t, literal, string(out))
	}

	var intID RequestID
	require.NoError(t, json.Unmarshal([]byte(`5`), &intID))
	require.NotEqual(t, NewStringID("5"), intID)
	require.Equal(t, "5", intID.String())
	require.Equal(t, `"5"`, NewStringID("5").String())
	require.True(t, RequestID{}.IsZero())
}
