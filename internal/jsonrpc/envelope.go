package jsonrpc

import (
	"encoding/json"
)

// Standard JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Kind identifies which of the four envelope shapes a message has.
type Kind int

const (
	// KindRequest carries an id and a method and expects an answer.
	KindRequest Kind = iota + 1
	// KindNotification carries a method and no id.
	KindNotification
	// KindResponse carries an id and a result.
	KindResponse
	// KindError carries an id and an error object.
	KindError
)

// String returns the lower-case envelope name.
func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindNotification:
		return "notification"
	case KindResponse:
		return "response"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Envelope is one JSON-RPC message. The set of implementations is closed:
// *Request, *Notification, *Response and *ErrorResponse.
type Envelope interface {
	Kind() Kind
	envelope()
}

// Request is a call that expects a Response or ErrorResponse with the same id.
type Request struct {
	ID     RequestID       `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Notification is a one-way message.
type Notification struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is the successful answer to a Request.
type Response struct {
	ID     RequestID       `json:"id"`
	Result json.RawMessage `json:"result"`
}

// ErrorResponse is the failed answer to a Request.
type ErrorResponse struct {
	ID    RequestID   `json:"id"`
	Error ErrorObject `json:"error"`
}

// ErrorObject is the error member of an ErrorResponse.
type ErrorObject struct {
	Code    int64           `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Kind implements Envelope.
func (*Request) Kind() Kind { return KindRequest }

// Kind implements Envelope.
func (*Notification) Kind() Kind { return KindNotification }

// Kind implements Envelope.
func (*Response) Kind() Kind { return KindResponse }

// Kind implements Envelope.
func (*ErrorResponse) Kind() Kind { return KindError }

func (*Request) envelope()       {}
func (*Notification) envelope()  {}
func (*Response) envelope()      {}
func (*ErrorResponse) envelope() {}

// Compile-time verification of the closed variant set.
var (
	_ Envelope = (*Request)(nil)
	_ Envelope = (*Notification)(nil)
	_ Envelope = (*Response)(nil)
	_ Envelope = (*ErrorResponse)(nil)
)

// NewRequest builds a Request, marshaling params when non-nil.
func NewRequest(id RequestID, method string, params any) (*Request, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return nil, err
	}

	return &Request{ID: id, Method: method, Params: raw}, nil
}

// NewNotification builds a Notification, marshaling params when non-nil.
func NewNotification(method string, params any) (*Notification, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return nil, err
	}

	return &Notification{Method: method, Params: raw}, nil
}

// NewResponse builds a Response. A nil result is sent as an empty object.
func NewResponse(id RequestID, result any) (*Response, error) {
	if result == nil {
		return &Response{ID: id, Result: json.RawMessage("{}")}, nil
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}

	return &Response{ID: id, Result: raw}, nil
}

func marshalParams(params any) (json.RawMessage, error) {
	if params == nil {
		return nil, nil
	}

	if raw, ok := params.(json.RawMessage); ok {
		return raw, nil
	}

	return json.Marshal(params)
}
