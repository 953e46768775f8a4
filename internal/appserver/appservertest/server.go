// Package appservertest provides an in-memory codex app-server for tests.
//
// Server implements config.Transport. It answers initialize on its own,
// records every request the client sends and replies through per-method
// handlers registered with Handle.
package appservertest

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/BjornMelin/codex-sdk-agents/internal/jsonrpc"
)

// ErrClosed is returned by SendMessage after Close.
var ErrClosed = stderrors.New("appservertest: server closed")

// Call is one request received from the client.
type Call struct {
	ID     jsonrpc.RequestID
	Method string
	Params json.RawMessage
}

// Message is an outbound notification or server request emitted after a
// reply. A zero ID makes it a notification.
type Message struct {
	ID     jsonrpc.RequestID
	Method string
	Params any
}

// Result is how a handler answers a call.
type Result struct {
	// Value is the result member. Nil sends {}.
	Value any

	// Error, when set, replaces Value with an error reply.
	Error *jsonrpc.ErrorObject

	// Then is pushed, in order, after the reply.
	Then []Message

	// NoReply leaves the call pending forever.
	NoReply bool
}

// HandlerFunc answers one call. It runs with the server locked and must
// not call Server methods; emit follow-up traffic through Result.Then.
type HandlerFunc func(call Call) Result

// Reply is the client's answer to a server request.
type Reply struct {
	ID     jsonrpc.RequestID
	Result json.RawMessage
	Error  *jsonrpc.ErrorObject
}

// Server is an in-memory app-server speaking JSONL JSON-RPC.
type Server struct {
	// StartErr, when set, is returned by Start.
	StartErr error

	mu       sync.Mutex
	handlers map[string]HandlerFunc
	calls    []Call
	started  bool
	closed   bool
	lines    chan []byte
	errs     chan error
	replies  chan Reply
	closedCh chan struct{}
}

// NewServer returns a server that answers only initialize.
func NewServer() *Server {
	return &Server{
		handlers: make(map[string]HandlerFunc),
		lines:    make(chan []byte, 1024),
		errs:     make(chan error, 4),
		replies:  make(chan Reply, 64),
		closedCh: make(chan struct{}),
	}
}

// Handle registers fn for method, replacing any earlier handler.
func (s *Server) Handle(method string, fn HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handlers[method] = fn
}

// Start implements config.Transport.
func (s *Server) Start(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.StartErr != nil {
		return s.StartErr
	}

	s.started = true

	return nil
}

// ReadMessages implements config.Transport.
func (s *Server) ReadMessages(context.Context) (<-chan []byte, <-chan error) {
	return s.lines, s.errs
}

// IsReady implements config.Transport.
func (s *Server) IsReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.started && !s.closed
}

// Close implements config.Transport.
func (s *Server) Close() error {
	s.Fail(nil)

	return nil
}

// Closed is closed once the client closes the transport or Fail is called.
func (s *Server) Closed() <-chan struct{} {
	return s.closedCh
}

// Fail ends the connection as if the process exited with err.
func (s *Server) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.closed = true

	if err != nil {
		s.errs <- err
	}

	close(s.lines)
	close(s.errs)
	close(s.closedCh)
}

// SendMessage implements config.Transport. Requests are dispatched to their
// handler; replies to server requests are queued for NextReply.
func (s *Server) SendMessage(_ context.Context, data []byte) error {
	var msg struct {
		ID     *jsonrpc.RequestID   `json:"id"`
		Method string               `json:"method"`
		Params json.RawMessage      `json:"params"`
		Result json.RawMessage      `json:"result"`
		Error  *jsonrpc.ErrorObject `json:"error"`
	}

	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("appservertest: bad line %q: %w", data, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	switch {
	case msg.Method != "" && msg.ID != nil:
		call := Call{ID: *msg.ID, Method: msg.Method, Params: msg.Params}
		s.calls = append(s.calls, call)
		s.dispatchLocked(call)
	case msg.Method != "":
		s.calls = append(s.calls, Call{Method: msg.Method, Params: msg.Params})
	case msg.ID != nil:
		s.replies <- Reply{ID: *msg.ID, Result: msg.Result, Error: msg.Error}
	}

	return nil
}

func (s *Server) dispatchLocked(call Call) {
	fn, ok := s.handlers[call.Method]

	var res Result

	switch {
	case ok:
		res = fn(call)
	case call.Method == "initialize":
		res = Result{Value: map[string]string{"userAgent": "codex_sdk_go/0.98.0"}}
	}

	if res.NoReply {
		return
	}

	if res.Error != nil {
		s.pushLocked(&jsonrpc.ErrorResponse{ID: call.ID, Error: *res.Error})
	} else {
		resp, err := jsonrpc.NewResponse(call.ID, res.Value)
		if err != nil {
			panic(err)
		}

		s.pushLocked(resp)
	}

	for _, m := range res.Then {
		s.pushLocked(m.envelope())
	}
}

func (m Message) envelope() jsonrpc.Envelope {
	var (
		env jsonrpc.Envelope
		err error
	)

	if m.ID.IsZero() {
		env, err = jsonrpc.NewNotification(m.Method, m.Params)
	} else {
		env, err = jsonrpc.NewRequest(m.ID, m.Method, m.Params)
	}

	if err != nil {
		panic(err)
	}

	return env
}

func (s *Server) pushLocked(env jsonrpc.Envelope) {
	if s.closed {
		return
	}

	data, err := json.Marshal(env)
	if err != nil {
		panic(err)
	}

	s.lines <- data
}

// Push emits a notification or server request.
func (s *Server) Push(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pushLocked(m.envelope())
}

// Notify emits a notification.
func (s *Server) Notify(method string, params any) {
	s.Push(Message{Method: method, Params: params})
}

// PushLine emits a raw line, valid or not.
func (s *Server) PushLine(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.lines <- []byte(line)
	}
}

// Calls returns the requests and notifications received so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Call, len(s.calls))
	copy(out, s.calls)

	return out
}

// CallsTo returns the received calls of one method.
func (s *Server) CallsTo(method string) []Call {
	var out []Call

	for _, c := range s.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}

	return out
}

// NextReply waits for the client's next answer to a server request.
func (s *Server) NextReply(timeout time.Duration) (Reply, bool) {
	select {
	case r := <-s.replies:
		return r, true
	case <-time.After(timeout):
		return Reply{}, false
	}
}
