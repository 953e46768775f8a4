package codexsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/BjornMelin/codex-sdk-agents/internal/appserver"
	"github.com/BjornMelin/codex-sdk-agents/internal/appserver/appservertest"
)

const waitFor = 5 * time.Second

// fakeCodex hands out one in-memory app-server per transport and scripts
// every turn as an agent message followed by turn/completed.
type fakeCodex struct {
	reply string

	mu      sync.Mutex
	servers []*appservertest.Server
	turns   int
}

func newFakeCodex(reply string) *fakeCodex {
	return &fakeCodex{reply: reply}
}

func (f *fakeCodex) factory(TransportSettings) (Transport, error) {
	srv := appservertest.NewServer()

	srv.Handle(appserver.MethodThreadStart, func(appservertest.Call) appservertest.Result {
		return appservertest.Result{Value: map[string]any{"thread": map[string]any{"id": "thr"}}}
	})

	srv.Handle(appserver.MethodTurnStart, func(call appservertest.Call) appservertest.Result {
		var p struct {
			ThreadID string `json:"threadId"`
		}

		_ = json.Unmarshal(call.Params, &p)

		f.mu.Lock()
		f.turns++
		turnID := fmt.Sprintf("turn-%d", f.turns)
		f.mu.Unlock()

		return appservertest.Result{
			Value: map[string]any{"turn": map[string]any{"id": turnID, "items": []any{}, "status": "inProgress"}},
			Then:  f.script(p.ThreadID, turnID),
		}
	})

	f.mu.Lock()
	f.servers = append(f.servers, srv)
	f.mu.Unlock()

	return srv, nil
}

func (f *fakeCodex) script(threadID, turnID string) []appservertest.Message {
	item := map[string]any{"threadId": threadID, "turnId": turnID, "item": map[string]any{"type": "agentMessage", "id": "m1"}}

	return []appservertest.Message{
		{Method: appserver.NotifyTurnStarted, Params: map[string]any{"threadId": threadID, "turn": map[string]any{"id": turnID, "status": "inProgress"}}},
		{Method: appserver.NotifyItemStarted, Params: item},
		{Method: appserver.NotifyAgentMessageDelta, Params: map[string]any{"threadId": threadID, "turnId": turnID, "itemId": "m1", "delta": f.reply}},
		{Method: appserver.NotifyTurnCompleted, Params: map[string]any{"threadId": threadID, "turn": map[string]any{"id": turnID, "status": "completed"}}},
	}
}

func (f *fakeCodex) server(i int) *appservertest.Server {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.servers[i]
}

func (f *fakeCodex) serverCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.servers)
}

func testContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	t.Cleanup(cancel)

	return ctx
}
