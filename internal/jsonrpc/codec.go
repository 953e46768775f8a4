package jsonrpc

import (
	"encoding/json"
	"errors"
	"fmt"

	sdkerrors "github.com/BjornMelin/codex-sdk-agents/internal/errors"
)

// ErrUnknownShape is wrapped by the error Decode returns for JSON values
// that match no envelope shape.
var ErrUnknownShape = errors.New("unknown message shape")

// Codec decodes inbound lines and encodes outbound envelopes, validating
// both directions against the envelope schemas.
type Codec struct {
	validator *Validator
}

// NewCodec creates a codec backed by the shared validator.
func NewCodec() (*Codec, error) {
	v, err := DefaultValidator()
	if err != nil {
		return nil, err
	}

	return &Codec{validator: v}, nil
}

// wireMessage is the union of all envelope members.
type wireMessage struct {
	ID     RequestID       `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	Result json.RawMessage `json:"result"`
	Error  *ErrorObject    `json:"error"`
}

// Decode parses one line into an Envelope.
//
// Invalid JSON yields a *errors.JSONDecodeError. Valid JSON that matches
// none of the four shapes yields a *errors.InvalidEnvelopeError.
func (c *Codec) Decode(line []byte) (Envelope, error) {
	var generic any
	if err := json.Unmarshal(line, &generic); err != nil {
		return nil, &sdkerrors.JSONDecodeError{RawData: string(line), Err: err}
	}

	kind, ok := c.validator.Classify(generic)
	if !ok {
		return nil, &sdkerrors.InvalidEnvelopeError{
			Direction: "inbound",
			Err:       ErrUnknownShape,
		}
	}

	var msg wireMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		return nil, &sdkerrors.InvalidEnvelopeError{
			Direction: "inbound",
			Kind:      kind.String(),
			Err:       err,
		}
	}

	switch kind {
	case KindResponse:
		return &Response{ID: msg.ID, Result: msg.Result}, nil
	case KindError:
		return &ErrorResponse{ID: msg.ID, Error: *msg.Error}, nil
	case KindRequest:
		return &Request{ID: msg.ID, Method: msg.Method, Params: nullToEmpty(msg.Params)}, nil
	case KindNotification:
		return &Notification{Method: msg.Method, Params: nullToEmpty(msg.Params)}, nil
	default:
		panic(fmt.Sprintf("jsonrpc: unreachable envelope kind %d", kind))
	}
}

// Encode validates env and returns its single-line JSON form without a
// trailing newline.
func (c *Codec) Encode(env Envelope) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, &sdkerrors.InvalidEnvelopeError{
			Direction: "outbound",
			Kind:      env.Kind().String(),
			Err:       err,
		}
	}

	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, &sdkerrors.InvalidEnvelopeError{
			Direction: "outbound",
			Kind:      env.Kind().String(),
			Err:       err,
		}
	}

	if err := c.validator.Validate(env.Kind(), generic); err != nil {
		return nil, &sdkerrors.InvalidEnvelopeError{
			Direction: "outbound",
			Kind:      env.Kind().String(),
			Err:       err,
		}
	}

	return data, nil
}

func nullToEmpty(raw json.RawMessage) json.RawMessage {
	if string(raw) == "null" {
		return nil
	}

	return raw
}
