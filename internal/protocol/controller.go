package protocol

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/BjornMelin/codex-sdk-agents/internal/errors"
	"github.com/BjornMelin/codex-sdk-agents/internal/jsonrpc"
)

const (
	// DefaultRequestTimeout bounds a request that sets no other limit.
	DefaultRequestTimeout = 60 * time.Second

	// MethodInitialize and NotificationInitialized form the handshake.
	MethodInitialize        = "initialize"
	NotificationInitialized = "initialized"

	scopeName = "github.com/BjornMelin/codex-sdk-agents/internal/protocol"

	// errDrainTimeout bounds how long a dead link is given to report why.
	errDrainTimeout = time.Second
)

// Transport is the line link the controller drives.
//
// This interface is satisfied by subprocess.AppServerTransport and
// wsconn.Transport, and by in-memory fakes in tests.
type Transport interface {
	Start(ctx context.Context) error
	ReadMessages(ctx context.Context) (<-chan []byte, <-chan error)
	SendMessage(ctx context.Context, data []byte) error
	Close() error
}

// Options configures a Controller.
type Options struct {
	// Logger receives protocol diagnostics. Nil disables logging.
	Logger *slog.Logger

	// RequestTimeout is the default per-request timeout.
	// If zero, DefaultRequestTimeout is used.
	RequestTimeout time.Duration

	// InitializeParams is sent as the params of the initialize request.
	InitializeParams any

	// TracerProvider supplies the tracer for request spans.
	// If nil, the global provider is used.
	TracerProvider trace.TracerProvider
}

// NotificationListener receives server notifications.
type NotificationListener func(ctx context.Context, n *jsonrpc.Notification)

// RequestListener receives server-initiated requests. Exactly one listener
// is expected to answer each request with SendResponse or SendError.
type RequestListener func(ctx context.Context, r *jsonrpc.Request)

// Controller correlates JSON-RPC traffic with a codex app-server.
//
// The Controller handles:
//   - The initialize/initialized handshake, run once for concurrent callers
//   - Outbound requests with monotonic integer ids and per-request timeouts
//   - Routing responses and errors to the waiting caller
//   - Fan-out of notifications and server requests to listeners
//
// Close is the only teardown path. It terminates the transport, rejects
// every pending call and stops every listener.
type Controller struct {
	log        *slog.Logger
	transport  Transport
	codec      *jsonrpc.Codec
	tracer     trace.Tracer
	timeout    time.Duration
	initParams any

	// lifetime of the connection; cancelled by shutdown
	ctx    context.Context
	cancel context.CancelFunc

	startGroup singleflight.Group
	ready      atomic.Bool
	initResult json.RawMessage

	nextID atomic.Int64

	// Pending calls, separate from inbound dispatch.
	pendingMu sync.Mutex
	pending   map[int64]*pendingCall
	closed    bool

	notifications listenerSet[*jsonrpc.Notification]
	requests      listenerSet[*jsonrpc.Request]

	errMu    sync.RWMutex
	fatalErr error

	closeOnce sync.Once
	done      chan struct{}
	group     errgroup.Group
}

type pendingCall struct {
	method    string
	createdAt time.Time
	result    chan callResult
}

type callResult struct {
	raw    json.RawMessage
	rpcErr *jsonrpc.ErrorObject
	err    error
}

// NewController creates a controller over transport. Nothing is started
// until Start or the first Request.
func NewController(transport Transport, opts Options) (*Controller, error) {
	codec, err := jsonrpc.NewCodec()
	if err != nil {
		return nil, fmt.Errorf("build envelope codec: %w", err)
	}

	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Controller{
		log:        log.With("component", "protocol"),
		transport:  transport,
		codec:      codec,
		tracer:     tp.Tracer(scopeName),
		timeout:    timeout,
		initParams: opts.InitializeParams,
		ctx:        ctx,
		cancel:     cancel,
		pending:    make(map[int64]*pendingCall, 8),
		done:       make(chan struct{}),
	}, nil
}

// Done returns a channel that is closed when the controller shuts down.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// FatalError returns the cause of an unexpected shutdown, if any.
func (c *Controller) FatalError() error {
	c.errMu.RLock()
	defer c.errMu.RUnlock()

	return c.fatalErr
}

// IsReady reports whether the handshake has completed and the controller
// is still open.
func (c *Controller) IsReady() bool {
	select {
	case <-c.done:
		return false
	default:
		return c.ready.Load()
	}
}

// InitializeResult returns the raw initialize response once started.
func (c *Controller) InitializeResult() json.RawMessage {
	if !c.ready.Load() {
		return nil
	}

	return c.initResult
}

// Start connects the transport and performs the handshake. Concurrent
// callers share one attempt. A failed attempt closes the controller.
func (c *Controller) Start(ctx context.Context) error {
	if c.IsReady() {
		return nil
	}

	if err := c.closedError(); err != nil {
		return err
	}

	// The handshake outlives a single caller's cancellation; the caller only
	// stops waiting for it.
	startCtx := context.WithoutCancel(ctx)

	ch := c.startGroup.DoChan("start", func() (any, error) {
		if c.ready.Load() {
			return nil, nil
		}

		return nil, c.start(startCtx)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) start(ctx context.Context) error {
	c.log.Debug("Starting protocol controller")

	if err := c.transport.Start(c.ctx); err != nil {
		c.shutdown(err)

		return err
	}

	lines, errs := c.transport.ReadMessages(c.ctx)

	c.group.Go(func() error {
		c.readLoop(lines, errs)

		return nil
	})

	raw, err := c.call(ctx, MethodInitialize, c.initParams, c.timeout)
	if err != nil {
		err = fmt.Errorf("initialize: %w", err)
		c.shutdown(err)

		return err
	}

	c.initResult = raw
	c.log.Debug("codex app-server initialize response", "result", string(raw))

	if err := c.notify(ctx, NotificationInitialized, nil); err != nil {
		err = fmt.Errorf("initialized: %w", err)
		c.shutdown(err)

		return err
	}

	c.ready.Store(true)
	c.log.Info("Protocol controller started")

	return nil
}

// CallOption adjusts a single request.
type CallOption func(*callConfig)

type callConfig struct {
	timeout time.Duration
}

// WithTimeout overrides the default timeout for one request.
func WithTimeout(d time.Duration) CallOption {
	return func(cfg *callConfig) {
		if d > 0 {
			cfg.timeout = d
		}
	}
}

// Request sends method with params and decodes the result into out, which
// may be nil. The controller is started first if needed.
//
// A JSON-RPC error reply is returned as *errors.RPCError. A request that
// sees no reply in time fails with *errors.RequestTimeoutError and its late
// reply is discarded.
func (c *Controller) Request(ctx context.Context, method string, params, out any, opts ...CallOption) error {
	cfg := callConfig{timeout: c.timeout}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, span := c.tracer.Start(ctx, method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("rpc.system", "jsonrpc"),
			attribute.String("rpc.method", method),
		),
	)
	defer span.End()

	err := c.Start(ctx)
	if err == nil {
		var raw json.RawMessage

		raw, err = c.call(ctx, method, params, cfg.timeout)
		if err == nil && out != nil && len(raw) > 0 {
			if uerr := json.Unmarshal(raw, out); uerr != nil {
				err = fmt.Errorf("decode %s result: %w", method, uerr)
			}
		}
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return err
}

func (c *Controller) call(ctx context.Context, method string, params any, timeout time.Duration) (json.RawMessage, error) {
	id := c.nextID.Add(1)

	req, err := jsonrpc.NewRequest(jsonrpc.NewIntID(id), method, params)
	if err != nil {
		return nil, fmt.Errorf("marshal %s params: %w", method, err)
	}

	data, err := c.codec.Encode(req)
	if err != nil {
		return nil, err
	}

	call := &pendingCall{
		method:    method,
		createdAt: time.Now(),
		result:    make(chan callResult, 1),
	}

	c.pendingMu.Lock()
	if c.closed {
		c.pendingMu.Unlock()

		return nil, c.closedError()
	}

	c.pending[id] = call
	c.pendingMu.Unlock()

	c.log.Debug("Sending request", "id", id, "method", method)

	if err := c.transport.SendMessage(ctx, data); err != nil {
		c.forget(id)
		c.log.Error("Failed to send request", "method", method, "error", err)

		return nil, fmt.Errorf("send %s: %w", method, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-call.result:
		switch {
		case res.err != nil:
			return nil, res.err
		case res.rpcErr != nil:
			c.log.Debug("Request returned error", "id", id, "method", method, "code", res.rpcErr.Code)

			return nil, &errors.RPCError{
				Method:  method,
				Code:    res.rpcErr.Code,
				Message: res.rpcErr.Message,
				Data:    res.rpcErr.Data,
			}
		default:
			c.log.Debug("Received response", "id", id, "method", method, "elapsed", time.Since(call.createdAt))

			return res.raw, nil
		}

	case <-timer.C:
		c.forget(id)
		c.log.Warn("Request timed out", "id", id, "method", method, "timeout", timeout)

		return nil, &errors.RequestTimeoutError{Method: method, Timeout: timeout}

	case <-ctx.Done():
		c.forget(id)
		c.log.Debug("Request cancelled", "id", id, "method", method)

		return nil, ctx.Err()
	}
}

func (c *Controller) forget(id int64) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}

// Pending returns the number of calls awaiting a reply.
func (c *Controller) Pending() int {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	return len(c.pending)
}

// Notify sends a one-way notification. The controller is started first if
// needed.
func (c *Controller) Notify(ctx context.Context, method string, params any) error {
	if err := c.Start(ctx); err != nil {
		return err
	}

	return c.notify(ctx, method, params)
}

func (c *Controller) notify(ctx context.Context, method string, params any) error {
	n, err := jsonrpc.NewNotification(method, params)
	if err != nil {
		return fmt.Errorf("marshal %s params: %w", method, err)
	}

	return c.send(ctx, n)
}

// SendResponse answers a server request.
func (c *Controller) SendResponse(ctx context.Context, id jsonrpc.RequestID, result any) error {
	resp, err := jsonrpc.NewResponse(id, result)
	if err != nil {
		return fmt.Errorf("marshal response %s: %w", id, err)
	}

	return c.send(ctx, resp)
}

// SendError answers a server request with a JSON-RPC error.
func (c *Controller) SendError(ctx context.Context, id jsonrpc.RequestID, obj jsonrpc.ErrorObject) error {
	return c.send(ctx, &jsonrpc.ErrorResponse{ID: id, Error: obj})
}

func (c *Controller) send(ctx context.Context, env jsonrpc.Envelope) error {
	if err := c.closedError(); err != nil {
		return err
	}

	data, err := c.codec.Encode(env)
	if err != nil {
		return err
	}

	if err := c.transport.SendMessage(ctx, data); err != nil {
		return fmt.Errorf("send %s: %w", env.Kind(), err)
	}

	return nil
}

// OnNotification registers fn for every server notification. The returned
// func unsubscribes; notifications not yet delivered to fn are dropped.
func (c *Controller) OnNotification(fn NotificationListener) (unsubscribe func()) {
	return subscribe(c, &c.notifications, fn, false)
}

// OnServerRequest registers fn for every server-initiated request. The
// returned func unsubscribes; requests already queued for fn are still
// delivered, so each one gets its answer. Requests that arrive later go to
// the remaining listeners or are rejected with method-not-found.
func (c *Controller) OnServerRequest(fn RequestListener) (unsubscribe func()) {
	return subscribe(c, &c.requests, fn, true)
}

func subscribe[T any](c *Controller, set *listenerSet[T], fn func(context.Context, T), drain bool) func() {
	id, ok := set.add(fn, func(box *mailbox[T]) {
		go box.run(c.ctx)
	})
	if !ok {
		return func() {}
	}

	var once sync.Once

	return func() {
		once.Do(func() { set.remove(id, drain) })
	}
}

func (c *Controller) readLoop(lines <-chan []byte, errs <-chan error) {
	defer c.log.Debug("Protocol read loop stopped")

	var lastErr error

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				c.log.Debug("Transport lines closed")
				c.shutdown(drainErrors(errs, lastErr))

				return
			}

			c.handleLine(line)

		case err, ok := <-errs:
			if !ok {
				errs = nil

				continue
			}

			if err != nil {
				c.log.Debug("Transport error", "error", err)
				lastErr = err
			}

		case <-c.done:
			return
		}
	}
}

// drainErrors collects whatever the transport reports after its lines end
// and returns the most recent error.
func drainErrors(errs <-chan error, last error) error {
	if errs == nil {
		return last
	}

	timer := time.NewTimer(errDrainTimeout)
	defer timer.Stop()

	for {
		select {
		case err, ok := <-errs:
			if !ok {
				return last
			}

			if err != nil && !stderrors.Is(err, context.Canceled) {
				last = err
			}
		case <-timer.C:
			return last
		}
	}
}

func (c *Controller) handleLine(line []byte) {
	env, err := c.codec.Decode(line)
	if err != nil {
		c.log.Warn("Dropping invalid message from codex app-server", "error", err, "line", truncate(line))

		return
	}

	switch msg := env.(type) {
	case *jsonrpc.Response:
		c.resolve(msg.ID, callResult{raw: msg.Result})

	case *jsonrpc.ErrorResponse:
		obj := msg.Error
		c.resolve(msg.ID, callResult{rpcErr: &obj})

	case *jsonrpc.Request:
		c.log.Debug("Received server request", "id", msg.ID.String(), "method", msg.Method)

		if c.requests.dispatch(msg) == 0 {
			c.log.Warn("No handler registered for server request", "method", msg.Method)

			err := c.SendError(c.ctx, msg.ID, jsonrpc.ErrorObject{
				Code:    jsonrpc.CodeMethodNotFound,
				Message: "no handler registered",
			})
			if err != nil {
				c.log.Debug("Could not reject server request", "error", err)
			}
		}

	case *jsonrpc.Notification:
		c.notifications.dispatch(msg)

	default:
		c.log.Error("Unreachable envelope kind", "kind", env.Kind())
	}
}

func (c *Controller) resolve(id jsonrpc.RequestID, res callResult) {
	n, ok := id.Int64()
	if !ok {
		c.log.Debug("Ignoring unmatched response", "id", id.String())

		return
	}

	c.pendingMu.Lock()
	call, exists := c.pending[n]
	delete(c.pending, n)
	c.pendingMu.Unlock()

	if !exists {
		c.log.Debug("Ignoring unmatched response", "id", n)

		return
	}

	// Buffered and owned by us now that the entry is removed.
	call.result <- res
}

// Close tears the connection down: the transport is closed, pending calls
// fail with ErrConnectionClosed and listeners are stopped. Safe to call
// multiple times.
//
// Close waits for the read loop but not for listener callbacks still
// running, so a listener may call it. Mailboxes exit once their queued
// items are delivered.
func (c *Controller) Close() error {
	c.shutdown(nil)

	return c.group.Wait()
}

func (c *Controller) shutdown(cause error) {
	c.closeOnce.Do(func() {
		c.log.Debug("Shutting down protocol controller", "cause", cause)

		c.errMu.Lock()
		c.fatalErr = cause
		c.errMu.Unlock()

		close(c.done)

		if err := c.transport.Close(); err != nil {
			c.log.Debug("Transport close error", "error", err)
		}

		c.cancel()

		closeErr := errors.ErrConnectionClosed
		if cause != nil {
			closeErr = fmt.Errorf("%w: %w", errors.ErrConnectionClosed, cause)
		}

		c.pendingMu.Lock()
		pending := c.pending
		c.pending = nil
		c.closed = true
		c.pendingMu.Unlock()

		for _, call := range pending {
			call.result <- callResult{err: closeErr}
		}

		c.notifications.close()
		c.requests.close()

		c.log.Info("Protocol controller stopped", "rejected", len(pending))
	})
}

// closedError returns nil while the controller is open.
func (c *Controller) closedError() error {
	select {
	case <-c.done:
	default:
		return nil
	}

	if cause := c.FatalError(); cause != nil {
		return fmt.Errorf("%w: %w", errors.ErrConnectionClosed, cause)
	}

	return errors.ErrConnectionClosed
}

func truncate(line []byte) string {
	const limit = 512

	if len(line) <= limit {
		return string(line)
	}

	return string(line[:limit]) + "..."
}
