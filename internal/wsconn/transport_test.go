package wsconn

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/BjornMelin/codex-sdk-agents/internal/appserver"
	"github.com/BjornMelin/codex-sdk-agents/internal/config"
	"github.com/BjornMelin/codex-sdk-agents/internal/errors"
)

// newAppServer serves a minimal app-server behind bearer auth: initialize
// and model/list are answered, other requests fail and notifications are
// ignored.
func newAppServer(t *testing.T) string {
	t.Helper()

	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)

			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}

			var msg struct {
				ID     *int64 `json:"id"`
				Method string `json:"method"`
			}

			if json.Unmarshal(data, &msg) != nil || msg.ID == nil {
				continue
			}

			var result string

			switch msg.Method {
			case "initialize":
				result = `{"userAgent":"codex/0.98.0"}`
			case "model/list":
				result = `{"data":[{"id":"gpt-5.2-codex","model":"gpt-5.2-codex","isDefault":true}],"nextCursor":null}`
			default:
				reply, _ := json.Marshal(map[string]any{
					"id":    *msg.ID,
					"error": map[string]any{"code": -32601, "message": "unknown method"},
				})
				_ = conn.WriteMessage(websocket.TextMessage, reply)

				continue
			}

			reply, _ := json.Marshal(map[string]any{"id": *msg.ID, "result": json.RawMessage(result)})
			if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func authHeader() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer secret")

	return h
}

func TestTransport_ClientRoundTrip(t *testing.T) {
	t.Parallel()

	url := newAppServer(t)

	factory := Factory(url, authHeader())
	tr, err := factory(config.TransportSettings{})
	require.NoError(t, err)

	client, err := appserver.NewClient(tr, appserver.Options{})
	require.NoError(t, err)

	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	models, err := client.ModelList(ctx, nil)
	require.NoError(t, err)
	require.Len(t, models.Data, 1)
	require.Equal(t, "gpt-5.2-codex", models.Data[0].ID)

	err = client.Request(ctx, "bogus/method", nil, nil)
	require.ErrorContains(t, err, "unknown method")

	require.NoError(t, client.Close())
	require.False(t, tr.IsReady())
}

func TestTransport_DialFailure(t *testing.T) {
	t.Parallel()

	url := newAppServer(t)

	tr := New(url, nil, nil)

	err := tr.Start(context.Background())

	var connErr *errors.CLIConnectionError
	require.ErrorAs(t, err, &connErr)
	require.False(t, tr.IsReady())
}

func TestTransport_NotStarted(t *testing.T) {
	t.Parallel()

	tr := New("ws://127.0.0.1:1", nil, nil)

	require.ErrorIs(t, tr.SendMessage(context.Background(), []byte(`{}`)), errors.ErrTransportNotConnected)

	lines, errs := tr.ReadMessages(context.Background())

	_, ok := <-lines
	require.False(t, ok)
	require.ErrorIs(t, <-errs, errors.ErrTransportNotConnected)

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
	require.ErrorIs(t, tr.Start(context.Background()), errors.ErrTransportNotConnected)
}

func TestTransport_ServerHangupEndsRead(t *testing.T) {
	t.Parallel()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"method":"configWarning","params":{"summary":"x"}}`+"\n"))
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte{0x01})
		_ = conn.WriteMessage(websocket.TextMessage, []byte("   "))
		_ = conn.Close()
	}))
	t.Cleanup(srv.Close)

	tr := New("ws"+strings.TrimPrefix(srv.URL, "http"), nil, nil)
	require.NoError(t, tr.Start(context.Background()))

	defer tr.Close()

	lines, errs := tr.ReadMessages(context.Background())

	var got []string
	for line := range lines {
		got = append(got, string(line))
	}

	require.Equal(t, []string{`{"method":"configWarning","params":{"summary":"x"}}`}, got)

	var connErr *errors.CLIConnectionError
	require.ErrorAs(t, <-errs, &connErr)
}
