package protocol

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BjornMelin/codex-sdk-agents/internal/errors"
	"github.com/BjornMelin/codex-sdk-agents/internal/jsonrpc"
)

// fakeTransport is an in-memory line link. Tests play the server by reading
// sent and calling push.
type fakeTransport struct {
	startErr error
	starts   atomic.Int32

	sent chan []byte

	mu     sync.Mutex
	closed bool
	lines  chan []byte
	errs   chan error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		sent:  make(chan []byte, 64),
		lines: make(chan []byte, 64),
		errs:  make(chan error, 4),
	}
}

func (f *fakeTransport) Start(context.Context) error {
	f.starts.Add(1)

	return f.startErr
}

func (f *fakeTransport) ReadMessages(context.Context) (<-chan []byte, <-chan error) {
	return f.lines, f.errs
}

func (f *fakeTransport) SendMessage(ctx context.Context, data []byte) error {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()

	if closed {
		return errors.ErrStdinClosed
	}

	select {
	case f.sent <- data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeTransport) push(line string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.closed {
		f.lines <- []byte(line)
	}
}

// die simulates the process exiting with err.
func (f *fakeTransport) die(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}

	f.closed = true

	if err != nil {
		f.errs <- err
	}

	close(f.lines)
	close(f.errs)
}

func (f *fakeTransport) Close() error {
	f.die(nil)

	return nil
}

type wireMsg struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
}

// num returns the numeric id, or -1 for string and missing ids.
func (m wireMsg) num() int64 {
	var n int64
	if err := json.Unmarshal(m.ID, &n); err != nil {
		return -1
	}

	return n
}

func (f *fakeTransport) next(t *testing.T) wireMsg {
	t.Helper()

	select {
	case data := <-f.sent:
		var msg wireMsg
		require.NoError(t, json.Unmarshal(data, &msg))

		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for outbound message")

		return wireMsg{}
	}
}

// handshake answers initialize and consumes initialized.
func (f *fakeTransport) handshake(t *testing.T) {
	t.Helper()

	init := f.next(t)
	require.Equal(t, MethodInitialize, init.Method)
	require.NotNil(t, init.ID)
	f.push(fmt.Sprintf(`{"id":%d,"result":{"userAgent":"codex/0.98.0"}}`, init.num()))

	initialized := f.next(t)
	require.Equal(t, NotificationInitialized, initialized.Method)
	require.Nil(t, initialized.ID)
}

func newStartedController(t *testing.T) (*Controller, *fakeTransport) {
	t.Helper()

	ft := newFakeTransport()

	c, err := NewController(ft, Options{
		InitializeParams: map[string]any{"clientInfo": map[string]string{"name": "test", "version": "0"}},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	done := make(chan error, 1)
	go func() { done <- c.Start(context.Background()) }()

	ft.handshake(t)
	require.NoError(t, <-done)

	return c, ft
}

func TestController_Handshake(t *testing.T) {
	t.Parallel()

	ft := newFakeTransport()

	c, err := NewController(ft, Options{
		InitializeParams: map[string]any{"clientInfo": map[string]string{"name": "codex-toolloop"}},
	})
	require.NoError(t, err)

	defer c.Close()

	var wg sync.WaitGroup
	errs := make(chan error, 10)

	for range 10 {
		wg.Go(func() { errs <- c.Start(context.Background()) })
	}

	init := ft.next(t)
	require.Equal(t, int64(1), init.num())
	require.JSONEq(t, `{"clientInfo":{"name":"codex-toolloop"}}`, string(init.Params))
	ft.push(`{"id":1,"result":{"userAgent":"codex/0.98.0"}}`)

	require.Equal(t, NotificationInitialized, ft.next(t).Method)

	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	require.Equal(t, int32(1), ft.starts.Load())
	require.True(t, c.IsReady())
	require.JSONEq(t, `{"userAgent":"codex/0.98.0"}`, string(c.InitializeResult()))

	// Nothing else was sent.
	select {
	case extra := <-ft.sent:
		t.Fatalf("unexpected message %s", extra)
	default:
	}
}

func TestController_StartFailureCloses(t *testing.T) {
	t.Parallel()

	ft := newFakeTransport()
	ft.startErr = &errors.CLINotFoundError{SearchedPaths: []string{"/nope/codex"}}

	c, err := NewController(ft, Options{})
	require.NoError(t, err)

	err = c.Start(context.Background())

	var notFound *errors.CLINotFoundError
	require.ErrorAs(t, err, &notFound)
	require.False(t, c.IsReady())

	err = c.Request(context.Background(), "model/list", nil, nil)
	require.ErrorIs(t, err, errors.ErrConnectionClosed)
	require.ErrorAs(t, err, &notFound)

	require.NoError(t, c.Close())
}

func TestController_OutOfOrderResponses(t *testing.T) {
	t.Parallel()

	c, ft := newStartedController(t)

	type result struct {
		Name string `json:"name"`
	}

	var first, second result

	errA := make(chan error, 1)
	errB := make(chan error, 1)

	go func() { errA <- c.Request(context.Background(), "thread/read", map[string]string{"threadId": "a"}, &first) }()

	reqA := ft.next(t)

	go func() { errB <- c.Request(context.Background(), "thread/read", map[string]string{"threadId": "b"}, &second) }()

	reqB := ft.next(t)
	require.Greater(t, reqB.num(), reqA.num())

	ft.push(fmt.Sprintf(`{"id":%d,"result":{"name":"b"}}`, reqB.num()))
	ft.push(fmt.Sprintf(`{"id":%d,"result":{"name":"a"}}`, reqA.num()))

	require.NoError(t, <-errA)
	require.NoError(t, <-errB)
	require.Equal(t, "a", first.Name)
	require.Equal(t, "b", second.Name)
	require.Zero(t, c.Pending())
}

func TestController_RPCError(t *testing.T) {
	t.Parallel()

	c, ft := newStartedController(t)

	errCh := make(chan error, 1)
	go func() { errCh <- c.Request(context.Background(), "thread/resume", nil, nil) }()

	req := ft.next(t)
	ft.push(fmt.Sprintf(`{"id":%d,"error":{"code":-32600,"message":"thread not found","data":{"threadId":"t9"}}}`, req.num()))

	err := <-errCh

	rpcErr, ok := stderrors.AsType[*errors.RPCError](err)
	require.True(t, ok)
	require.Equal(t, "thread/resume", rpcErr.Method)
	require.Equal(t, int64(-32600), rpcErr.Code)
	require.Equal(t, "thread not found", rpcErr.Message)
	require.JSONEq(t, `{"threadId":"t9"}`, string(rpcErr.Data))
}

func TestController_CloseRejectsPending(t *testing.T) {
	t.Parallel()

	c, ft := newStartedController(t)

	const n = 5

	errs := make(chan error, n)

	for range n {
		go func() { errs <- c.Request(context.Background(), "model/list", nil, nil) }()
	}

	for range n {
		ft.next(t)
	}

	require.Eventually(t, func() bool { return c.Pending() == n }, time.Second, 5*time.Millisecond)

	require.NoError(t, c.Close())

	for range n {
		select {
		case err := <-errs:
			require.ErrorIs(t, err, errors.ErrConnectionClosed)
			require.EqualError(t, err, "codex app-server connection closed")
		case <-time.After(5 * time.Second):
			t.Fatal("pending request hung after Close")
		}
	}

	require.Zero(t, c.Pending())
	require.NoError(t, c.Close())
}

func TestController_TimeoutThenLateResponse(t *testing.T) {
	t.Parallel()

	c, ft := newStartedController(t)

	errCh := make(chan error, 1)
	go func() {
		errCh <- c.Request(context.Background(), "turn/start", nil, nil, WithTimeout(20*time.Millisecond))
	}()

	req := ft.next(t)
	err := <-errCh

	require.ErrorIs(t, err, errors.ErrRequestTimeout)

	timeoutErr, ok := stderrors.AsType[*errors.RequestTimeoutError](err)
	require.True(t, ok)
	require.Equal(t, "turn/start", timeoutErr.Method)
	require.Zero(t, c.Pending())

	// The late reply is ignored and the connection keeps working.
	ft.push(fmt.Sprintf(`{"id":%d,"result":{}}`, req.num()))

	var out map[string]any

	go func() { errCh <- c.Request(context.Background(), "model/list", nil, &out) }()

	next := ft.next(t)
	ft.push(fmt.Sprintf(`{"id":%d,"result":{"data":[]}}`, next.num()))

	require.NoError(t, <-errCh)
	require.Contains(t, out, "data")
}

func TestController_ContextCancel(t *testing.T) {
	t.Parallel()

	c, ft := newStartedController(t)

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- c.Request(ctx, "turn/start", nil, nil) }()

	ft.next(t)
	cancel()

	require.ErrorIs(t, <-errCh, context.Canceled)
	require.Zero(t, c.Pending())
	require.True(t, c.IsReady())
}

func TestController_DropsInvalidLines(t *testing.T) {
	t.Parallel()

	c, ft := newStartedController(t)

	got := make(chan string, 4)
	unsubscribe := c.OnNotification(func(_ context.Context, n *jsonrpc.Notification) {
		got <- n.Method
	})
	defer unsubscribe()

	ft.push(`not json`)
	ft.push(`{"foo":"bar"}`)
	ft.push(`{"id":"abc","result":{}}`)
	ft.push(`{"id":999,"result":{}}`)
	ft.push(`{"method":"turn/started","params":{"threadId":"t1"}}`)

	select {
	case method := <-got:
		require.Equal(t, "turn/started", method)
	case <-time.After(5 * time.Second):
		t.Fatal("valid notification after invalid lines was not delivered")
	}

	require.True(t, c.IsReady())
}

func TestController_NotificationFanOut(t *testing.T) {
	t.Parallel()

	c, ft := newStartedController(t)

	var (
		mu   sync.Mutex
		a, b []string
	)

	unsubA := c.OnNotification(func(_ context.Context, n *jsonrpc.Notification) {
		mu.Lock()
		a = append(a, n.Method)
		mu.Unlock()
	})

	release := make(chan struct{})
	unsubB := c.OnNotification(func(_ context.Context, n *jsonrpc.Notification) {
		<-release

		mu.Lock()
		b = append(b, n.Method)
		mu.Unlock()
	})

	methods := []string{"thread/started", "turn/started", "item/started", "turn/completed"}
	for _, m := range methods {
		ft.push(fmt.Sprintf(`{"method":%q,"params":{}}`, m))
	}

	// A stalled listener does not hold back the other one.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(a) == len(methods)
	}, 5*time.Second, 5*time.Millisecond)

	close(release)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(b) == len(methods)
	}, 5*time.Second, 5*time.Millisecond)

	mu.Lock()
	require.Equal(t, methods, a)
	require.Equal(t, methods, b)
	mu.Unlock()

	unsubA()
	unsubA()
	unsubB()

	ft.push(`{"method":"thread/compacted","params":{}}`)
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	require.Len(t, a, len(methods))
	mu.Unlock()
}

func TestController_ServerRequestWithoutListener(t *testing.T) {
	t.Parallel()

	_, ft := newStartedController(t)

	ft.push(`{"id":"srv-1","method":"item/tool/requestUserInput","params":{}}`)

	reply := ft.next(t)
	require.Empty(t, reply.Method)
	require.JSONEq(t, `{"code":-32601,"message":"no handler registered"}`, string(reply.Error))
}

func TestController_ServerRequestListener(t *testing.T) {
	t.Parallel()

	c, ft := newStartedController(t)

	unsubscribe := c.OnServerRequest(func(ctx context.Context, r *jsonrpc.Request) {
		assert.Equal(t, "item/commandExecution/requestApproval", r.Method)
		assert.NoError(t, c.SendResponse(ctx, r.ID, map[string]string{"decision": "decline"}))
	})
	defer unsubscribe()

	ft.push(`{"id":7,"method":"item/commandExecution/requestApproval","params":{"threadId":"t1"}}`)

	data := <-ft.sent
	require.JSONEq(t, `{"id":7,"result":{"decision":"decline"}}`, string(data))
}

func TestController_UnsubscribeAnswersQueuedRequests(t *testing.T) {
	t.Parallel()

	c, ft := newStartedController(t)

	entered := make(chan struct{}, 2)
	release := make(chan struct{})

	unsubscribe := c.OnServerRequest(func(ctx context.Context, r *jsonrpc.Request) {
		entered <- struct{}{}
		<-release
		assert.NoError(t, c.SendResponse(ctx, r.ID, map[string]string{"decision": "decline"}))
	})

	ft.push(`{"id":100,"method":"item/commandExecution/requestApproval","params":{}}`)
	ft.push(`{"id":101,"method":"item/commandExecution/requestApproval","params":{}}`)

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first request was not delivered")
	}

	// The second request is still queued when the listener goes away.
	unsubscribe()
	close(release)

	var ids []int64
	for range 2 {
		reply := ft.next(t)
		require.JSONEq(t, `{"decision":"decline"}`, string(reply.Result))
		ids = append(ids, reply.num())
	}

	require.Equal(t, []int64{100, 101}, ids)

	// Later requests have nobody to answer them.
	ft.push(`{"id":102,"method":"item/commandExecution/requestApproval","params":{}}`)

	reply := ft.next(t)
	require.EqualValues(t, 102, reply.num())
	require.JSONEq(t, `{"code":-32601,"message":"no handler registered"}`, string(reply.Error))
}

func TestController_CloseFromListener(t *testing.T) {
	t.Parallel()

	c, ft := newStartedController(t)

	closed := make(chan error, 1)
	unsubscribe := c.OnNotification(func(context.Context, *jsonrpc.Notification) {
		closed <- c.Close()
	})
	defer unsubscribe()

	ft.push(`{"method":"turn/started","params":{}}`)

	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Close called from a listener did not return")
	}

	<-c.Done()
	require.False(t, c.IsReady())
}

func TestController_TransportDeath(t *testing.T) {
	t.Parallel()

	c, ft := newStartedController(t)

	errCh := make(chan error, 1)
	go func() { errCh <- c.Request(context.Background(), "turn/start", nil, nil) }()

	ft.next(t)

	procErr := &errors.ProcessError{ExitCode: 101, Stderr: "panic"}
	ft.die(procErr)

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, errors.ErrConnectionClosed)
		require.ErrorIs(t, err, procErr)
	case <-time.After(5 * time.Second):
		t.Fatal("pending request hung after transport death")
	}

	<-c.Done()
	require.Equal(t, procErr, c.FatalError())
	require.False(t, c.IsReady())
	require.ErrorIs(t, c.Notify(context.Background(), "initialized", nil), errors.ErrConnectionClosed)
}

func TestController_ConcurrentRequestsAndClose(t *testing.T) {
	t.Parallel()

	for range 50 {
		c, ft := newStartedController(t)

		// Echo server: answer every request with an empty result.
		go func() {
			for data := range ft.sent {
				var msg wireMsg
				if json.Unmarshal(data, &msg) == nil && msg.ID != nil {
					ft.push(fmt.Sprintf(`{"id":%d,"result":{}}`, msg.num()))
				}
			}
		}()

		var wg sync.WaitGroup

		for range 8 {
			wg.Go(func() {
				err := c.Request(context.Background(), "model/list", nil, nil)
				if err != nil {
					assert.True(t,
						stderrors.Is(err, errors.ErrConnectionClosed) || stderrors.Is(err, errors.ErrStdinClosed),
						"unexpected error: %v", err)
				}
			})
		}

		wg.Go(func() { _ = c.Close() })
		wg.Wait()

		require.Zero(t, c.Pending())
		close(ft.sent)
	}
}
