// Package wsconn connects to a codex app-server started with
// `codex app-server --listen ws://HOST:PORT`. Each websocket text frame
// carries one JSON-RPC envelope.
package wsconn

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/BjornMelin/codex-sdk-agents/internal/config"
	"github.com/BjornMelin/codex-sdk-agents/internal/errors"
)

const (
	// HandshakeTimeout bounds the websocket upgrade.
	HandshakeTimeout = 5 * time.Second

	// ReadLimit caps a single frame, matching the stdio line cap.
	ReadLimit = 32 * 1024 * 1024

	closeGracePeriod = time.Second
)

// Transport is a config.Transport over one websocket connection.
type Transport struct {
	url    string
	header http.Header
	log    *slog.Logger
	dialer *websocket.Dialer

	mu      sync.Mutex
	conn    *websocket.Conn
	reading bool
	closed  bool

	// gorilla allows one concurrent writer.
	writeMu sync.Mutex
}

// Compile-time verification that Transport implements config.Transport.
var _ config.Transport = (*Transport)(nil)

// New returns a transport that dials url on Start. header is sent with the
// upgrade request (for example an Authorization bearer token).
func New(url string, header http.Header, log *slog.Logger) *Transport {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &Transport{
		url:    url,
		header: header,
		log:    log.With("component", "wsconn"),
		dialer: &websocket.Dialer{
			HandshakeTimeout: HandshakeTimeout,
			NetDialContext:   (&net.Dialer{Timeout: HandshakeTimeout}).DialContext,
		},
	}
}

// Factory returns a config.TransportFactory that ignores the process
// settings and always dials url.
func Factory(url string, header http.Header) config.TransportFactory {
	return func(settings config.TransportSettings) (config.Transport, error) {
		return New(url, header, settings.Logger), nil
	}
}

// Start dials the endpoint.
func (t *Transport) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return errors.ErrTransportNotConnected
	}

	if t.conn != nil {
		return nil
	}

	t.log.Debug("Dialing codex app-server", "url", t.url)

	conn, resp, err := t.dialer.DialContext(ctx, t.url, t.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	if err != nil {
		return &errors.CLIConnectionError{Err: fmt.Errorf("dial %s: %w", t.url, err)}
	}

	conn.SetReadLimit(ReadLimit)
	t.conn = conn

	return nil
}

// ReadMessages streams text frames until the connection ends.
func (t *Transport) ReadMessages(ctx context.Context) (<-chan []byte, <-chan error) {
	out := make(chan []byte, 64)
	errs := make(chan error, 1)

	t.mu.Lock()
	conn := t.conn
	ok := conn != nil && !t.reading && !t.closed
	t.reading = true
	t.mu.Unlock()

	if !ok {
		errs <- errors.ErrTransportNotConnected

		close(out)
		close(errs)

		return out, errs
	}

	go func() {
		defer close(out)
		defer close(errs)

		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				if !t.isClosed() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					errs <- &errors.CLIConnectionError{Err: err}
				}

				return
			}

			if kind != websocket.TextMessage {
				t.log.Debug("Ignoring non-text frame", "type", kind)

				continue
			}

			data = bytes.TrimSpace(data)
			if len(data) == 0 {
				continue
			}

			select {
			case out <- data:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, errs
}

// SendMessage writes one envelope as a text frame.
func (t *Transport) SendMessage(ctx context.Context, data []byte) error {
	t.mu.Lock()
	conn := t.conn
	closed := t.closed
	t.mu.Unlock()

	if conn == nil || closed {
		return errors.ErrTransportNotConnected
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
		defer func() { _ = conn.SetWriteDeadline(time.Time{}) }()
	}

	if err := conn.WriteMessage(websocket.TextMessage, bytes.TrimRight(data, "\n")); err != nil {
		return &errors.CLIConnectionError{Err: err}
	}

	return nil
}

// IsReady reports whether the connection is open.
func (t *Transport) IsReady() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.conn != nil && !t.closed
}

func (t *Transport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.closed
}

// Close sends a close frame and drops the connection. The remote server
// keeps running.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()

		return nil
	}

	t.closed = true
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return nil
	}

	t.writeMu.Lock()
	err := conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(closeGracePeriod))
	t.writeMu.Unlock()

	if err != nil && !stderrors.Is(err, websocket.ErrCloseSent) {
		t.log.Debug("Failed to send close frame", "error", err)
	}

	return conn.Close()
}
