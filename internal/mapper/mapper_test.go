package mapper

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BjornMelin/codex-sdk-agents/internal/appserver"
	"github.com/BjornMelin/codex-sdk-agents/internal/errors"
	"github.com/BjornMelin/codex-sdk-agents/internal/events"
	"github.com/BjornMelin/codex-sdk-agents/internal/jsonrpc"
)

type recorder struct {
	mu  sync.Mutex
	evs []events.Event
}

func (r *recorder) handle(_ context.Context, ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.evs = append(r.evs, ev)
}

func (r *recorder) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]events.Type, 0, len(r.evs))
	for _, ev := range r.evs {
		out = append(out, ev.Type())
	}

	return out
}

func (r *recorder) messages() []events.MessageCompleted {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []events.MessageCompleted

	for _, ev := range r.evs {
		if mc, ok := ev.(events.MessageCompleted); ok {
			out = append(out, mc)
		}
	}

	return out
}

func newMapper(t *testing.T, opts Options) (*Mapper, *recorder) {
	t.Helper()

	rec := &recorder{}
	opts.Handler = rec.handle

	return New(opts), rec
}

func notify(t *testing.T, m *Mapper, method, params string) {
	t.Helper()

	m.HandleNotification(context.Background(), &jsonrpc.Notification{Method: method, Params: json.RawMessage(params)})
}

func delta(t *testing.T, m *Mapper, itemID, text string) {
	t.Helper()

	params, err := json.Marshal(map[string]string{"threadId": "t1", "turnId": "u1", "itemId": itemID, "delta": text})
	require.NoError(t, err)

	notify(t, m, appserver.NotifyAgentMessageDelta, string(params))
}

func TestMapper_DeltasThenCompletion(t *testing.T) {
	t.Parallel()

	m, rec := newMapper(t, Options{})

	delta(t, m, "m1", "He")
	delta(t, m, "m1", "llo ")
	notify(t, m, appserver.NotifyItemCompleted,
		`{"threadId":"t1","turnId":"u1","item":{"type":"agentMessage","id":"m1"}}`)
	notify(t, m, appserver.NotifyItemCompleted,
		`{"threadId":"t1","turnId":"u1","item":{"type":"agentMessage","id":"m1","text":"ignored"}}`)

	msgs := rec.messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "Hello ", msgs[0].Text)
	require.Equal(t, "m1", msgs[0].ItemID)
	require.Equal(t, "Hello ", m.FullText())

	// Deltas after completion are dropped.
	delta(t, m, "m1", "late")
	require.Equal(t, []events.Type{
		events.TypeMessageDelta,
		events.TypeMessageDelta,
		events.TypeItemCompleted,
		events.TypeMessageCompleted,
		events.TypeItemCompleted,
	}, rec.types())
}

func TestMapper_CompletionPrefersItemText(t *testing.T) {
	t.Parallel()

	m, rec := newMapper(t, Options{})

	delta(t, m, "m1", "draft")
	notify(t, m, appserver.NotifyItemCompleted,
		`{"threadId":"t1","turnId":"u1","item":{"type":"agentMessage","id":"m1","text":"final"}}`)

	msgs := rec.messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "final", msgs[0].Text)
}

func TestMapper_EmptyCompletionEmitsNothing(t *testing.T) {
	t.Parallel()

	m, rec := newMapper(t, Options{})

	notify(t, m, appserver.NotifyItemStarted,
		`{"threadId":"t1","turnId":"u1","item":{"type":"agentMessage","id":"m1"}}`)
	notify(t, m, appserver.NotifyItemCompleted,
		`{"threadId":"t1","turnId":"u1","item":{"type":"agentMessage","id":"m1","text":""}}`)

	require.Empty(t, rec.messages())
	require.Empty(t, m.FullText())

	m.FlushMessages(context.Background())
	require.Empty(t, rec.messages())
}

func TestMapper_FlushAfterTurnWithoutItemCompleted(t *testing.T) {
	t.Parallel()

	var completions []TurnCompletion

	m, rec := newMapper(t, Options{OnTurnCompleted: func(c TurnCompletion) {
		completions = append(completions, c)
	}})

	notify(t, m, appserver.NotifyThreadStarted, `{"thread":{"id":"t1"}}`)
	notify(t, m, appserver.NotifyTurnStarted, `{"threadId":"t1","turn":{"id":"u1","status":"inProgress"}}`)
	notify(t, m, appserver.NotifyItemStarted,
		`{"threadId":"t1","turnId":"u1","item":{"type":"agentMessage","id":"i1"}}`)
	delta(t, m, "i1", "Hel")
	delta(t, m, "i1", "lo")
	notify(t, m, appserver.NotifyTurnCompleted, `{"threadId":"t1","turn":{"id":"u1","status":"completed"}}`)

	require.Len(t, completions, 1)
	require.Equal(t, TurnCompletion{ThreadID: "t1", TurnID: "u1", Status: appserver.TurnStatusCompleted}, completions[0])

	m.FlushMessages(context.Background())
	m.FlushMessages(context.Background())

	msgs := rec.messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "Hello", msgs[0].Text)
	require.Equal(t, "t1", msgs[0].ThreadID)
	require.Equal(t, "u1", msgs[0].TurnID)

	require.Equal(t, "Hello", m.FullText())
	require.Equal(t, "t1", m.ThreadID())
	require.Equal(t, "u1", m.ActiveTurnID())
	require.NoError(t, m.CompletionError())
}

func TestMapper_TurnCompletedFlushesFirst(t *testing.T) {
	t.Parallel()

	m, rec := newMapper(t, Options{})

	notify(t, m, appserver.NotifyTurnStarted, `{"threadId":"t1","turn":{"id":"u1","status":"inProgress"}}`)
	delta(t, m, "a", "one")
	delta(t, m, "b", "two")
	notify(t, m, appserver.NotifyTurnCompleted, `{"threadId":"t1","turn":{"id":"u1","status":"completed"}}`)

	require.Equal(t, []events.Type{
		events.TypeTurnStarted,
		events.TypeMessageDelta,
		events.TypeMessageDelta,
		events.TypeMessageCompleted,
		events.TypeMessageCompleted,
		events.TypeTurnCompleted,
	}, rec.types())

	msgs := rec.messages()
	require.Equal(t, "a", msgs[0].ItemID)
	require.Equal(t, "u1", msgs[0].TurnID)
	require.Equal(t, "t1", msgs[1].ThreadID)

	m.FlushMessages(context.Background())
	require.Len(t, rec.types(), 6)
}

func TestMapper_FailedTurnFlushesFirst(t *testing.T) {
	t.Parallel()

	m, rec := newMapper(t, Options{})

	delta(t, m, "a", "partial")
	notify(t, m, appserver.NotifyTurnCompleted, `{"threadId":"t1","turn":{"id":"u1","status":"failed"}}`)

	require.Equal(t, []events.Type{
		events.TypeMessageDelta,
		events.TypeMessageCompleted,
		events.TypeTurnFailed,
	}, rec.types())
	require.Equal(t, "partial", m.FullText())
}

func TestMapper_Detach(t *testing.T) {
	t.Parallel()

	m, rec := newMapper(t, Options{})

	delta(t, m, "a", "kept")
	m.Detach()
	delta(t, m, "a", " dropped")
	m.FlushMessages(context.Background())

	require.Equal(t, []events.Type{events.TypeMessageDelta}, rec.types())
	require.Equal(t, "kept dropped", m.FullText())
}

func TestMapper_FlushOrder(t *testing.T) {
	t.Parallel()

	m, rec := newMapper(t, Options{})

	delta(t, m, "a", "first ")
	delta(t, m, "b", "second")
	delta(t, m, "a", "more ")

	m.FlushMessages(context.Background())

	msgs := rec.messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "a", msgs[0].ItemID)
	require.Equal(t, "first more ", msgs[0].Text)
	require.Equal(t, "b", msgs[1].ItemID)
	require.Equal(t, "first more second", m.FullText())
}

const endTurn = `{"threadId":"t1","turnId":"u1","item":{"type":"message","role":"assistant","end_turn":true}}`

func TestMapper_EndTurnFallbackPerItem(t *testing.T) {
	t.Parallel()

	m, rec := newMapper(t, Options{})

	delta(t, m, "a", "one ")
	delta(t, m, "b", "two")
	notify(t, m, appserver.NotifyRawResponseItemCompleted, endTurn)

	msgs := rec.messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "b", msgs[0].ItemID)
	require.Equal(t, "two", msgs[0].Text)

	// The earlier item stays buffered until flushed.
	m.FlushMessages(context.Background())

	msgs = rec.messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "a", msgs[1].ItemID)
	require.Equal(t, "twoone ", m.FullText())
}

func TestMapper_EndTurnFallbackLastMessage(t *testing.T) {
	t.Parallel()

	m, rec := newMapper(t, Options{Fallback: FallbackLastMessage})

	delta(t, m, "a", "one ")
	delta(t, m, "b", "two")
	notify(t, m, appserver.NotifyRawResponseItemCompleted, endTurn)

	msgs := rec.messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "b", msgs[0].ItemID)
	require.Equal(t, "one two", msgs[0].Text)

	m.FlushMessages(context.Background())
	require.Len(t, rec.messages(), 1)
	require.Equal(t, "one two", m.FullText())
}

func TestMapper_EndTurnIgnoresNonMessages(t *testing.T) {
	t.Parallel()

	m, rec := newMapper(t, Options{})

	delta(t, m, "a", "x")
	notify(t, m, appserver.NotifyRawResponseItemCompleted,
		`{"threadId":"t1","turnId":"u1","item":{"type":"message","end_turn":false}}`)
	notify(t, m, appserver.NotifyRawResponseItemCompleted,
		`{"threadId":"t1","turnId":"u1","item":{"type":"reasoning","end_turn":true}}`)

	require.Empty(t, rec.messages())
}

func TestFallbackPolicy_Valid(t *testing.T) {
	t.Parallel()

	require.True(t, FallbackPolicy("").Valid())
	require.True(t, FallbackPerItem.Valid())
	require.True(t, FallbackLastMessage.Valid())
	require.False(t, FallbackPolicy("everything").Valid())
}

func TestMapper_ThreadFilter(t *testing.T) {
	t.Parallel()

	m, rec := newMapper(t, Options{})
	m.SetThreadID("t1")

	notify(t, m, appserver.NotifyThreadStarted, `{"thread":{"id":"other"}}`)
	notify(t, m, appserver.NotifyTurnStarted, `{"threadId":"other","turn":{"id":"x","status":"inProgress"}}`)
	notify(t, m, appserver.NotifyAgentMessageDelta, `{"threadId":"other","turnId":"x","itemId":"z","delta":"no"}`)
	notify(t, m, appserver.NotifyTurnStarted, `{"threadId":"t1","turn":{"id":"u1","status":"inProgress"}}`)

	require.Equal(t, []events.Type{events.TypeTurnStarted}, rec.types())
	require.Equal(t, "t1", m.ThreadID())
	require.Equal(t, "u1", m.ActiveTurnID())

	m.HandleServerRequest(context.Background(), &jsonrpc.Request{
		ID:     jsonrpc.NewIntID(1),
		Method: appserver.RequestCommandExecutionApproval,
		Params: json.RawMessage(`{"threadId":"other","turnId":"x","itemId":"c"}`),
	})
	require.Len(t, rec.types(), 1)

	// Legacy approvals carry a conversation id, not a thread id.
	m.HandleServerRequest(context.Background(), &jsonrpc.Request{
		ID:     jsonrpc.NewIntID(2),
		Method: appserver.RequestExecCommandApproval,
		Params: json.RawMessage(`{"conversationId":"other","callId":"c","command":["ls"],"cwd":"/"}`),
	})
	require.Equal(t, []events.Type{events.TypeTurnStarted, events.TypeApprovalRequested}, rec.types())
}

func TestMapper_UnboundThreadAcceptsAll(t *testing.T) {
	t.Parallel()

	m, rec := newMapper(t, Options{})

	notify(t, m, appserver.NotifyTurnStarted, `{"threadId":"any","turn":{"id":"u9","status":"inProgress"}}`)
	require.Equal(t, []events.Type{events.TypeTurnStarted}, rec.types())
	require.Empty(t, m.ThreadID())

	notify(t, m, appserver.NotifyThreadStarted, `{"thread":{"id":"t7"}}`)
	require.Equal(t, "t7", m.ThreadID())
}

func TestMapper_ErrorNotificationIsSticky(t *testing.T) {
	t.Parallel()

	m, rec := newMapper(t, Options{})

	notify(t, m, appserver.NotifyError,
		`{"error":{"message":"stream disconnected","codexErrorInfo":"other"},"willRetry":false,"threadId":"t1","turnId":"u1"}`)
	notify(t, m, appserver.NotifyTurnCompleted, `{"threadId":"t1","turn":{"id":"u1","status":"completed"}}`)

	var serverErr *errors.ServerError
	require.ErrorAs(t, m.CompletionError(), &serverErr)
	require.Equal(t, "stream disconnected", serverErr.Message)
	require.JSONEq(t, `{"codexErrorInfo":"other"}`, string(serverErr.Details))

	ev, ok := rec.evs[0].(events.Error)
	require.True(t, ok)
	require.Equal(t, "stream disconnected", ev.Message)
}

func TestMapper_FailedTurn(t *testing.T) {
	t.Parallel()

	var completion TurnCompletion

	m, rec := newMapper(t, Options{OnTurnCompleted: func(c TurnCompletion) { completion = c }})

	notify(t, m, appserver.NotifyTurnCompleted,
		`{"threadId":"t1","turn":{"id":"u1","status":"failed","error":{"message":"usage limit","additionalDetails":"try later"}}}`)

	turnErr, ok := stderrors.AsType[*errors.TurnFailedError](m.CompletionError())
	require.True(t, ok)
	require.Equal(t, "usage limit", turnErr.Message)
	require.Equal(t, "u1", turnErr.TurnID)

	failed, ok := rec.evs[0].(events.TurnFailed)
	require.True(t, ok)
	require.Equal(t, "usage limit", failed.Message)
	require.JSONEq(t, `{"additionalDetails":"try later"}`, string(failed.Details))

	require.Equal(t, appserver.TurnStatusFailed, completion.Status)
	require.NotNil(t, completion.Error)
}

func TestMapper_FailedTurnDefaultMessage(t *testing.T) {
	t.Parallel()

	m, rec := newMapper(t, Options{})

	notify(t, m, appserver.NotifyTurnCompleted, `{"threadId":"t1","turn":{"id":"u1","status":"failed"}}`)

	require.EqualError(t, m.CompletionError(), "turn u1 failed: "+errors.DefaultTurnFailedMessage)

	failed, ok := rec.evs[0].(events.TurnFailed)
	require.True(t, ok)
	require.Equal(t, errors.DefaultTurnFailedMessage, failed.Message)
	require.Nil(t, failed.Details)
}

func TestMapper_Usage(t *testing.T) {
	t.Parallel()

	m, rec := newMapper(t, Options{})
	require.Nil(t, m.Usage())

	notify(t, m, appserver.NotifyThreadTokenUsageUpdated, `{"threadId":"t1","turnId":"u1","tokenUsage":{
		"total":{"totalTokens":200,"inputTokens":150,"cachedInputTokens":20,"outputTokens":50,"reasoningOutputTokens":0},
		"last":{"totalTokens":30,"inputTokens":20,"cachedInputTokens":5,"outputTokens":10,"reasoningOutputTokens":0},
		"modelContextWindow":null}}`)
	notify(t, m, appserver.NotifyTurnCompleted, `{"threadId":"t1","turn":{"id":"u1","status":"completed"}}`)

	want := &events.Usage{InputTokens: 20, OutputTokens: 10, CachedInputTokens: 5}
	require.Equal(t, want, m.Usage())

	completed, ok := rec.evs[1].(events.TurnCompleted)
	require.True(t, ok)
	require.Equal(t, want, completed.Usage)
}

func TestMapper_FileChanges(t *testing.T) {
	t.Parallel()

	m, rec := newMapper(t, Options{})

	notify(t, m, appserver.NotifyItemStarted,
		`{"threadId":"t1","turnId":"u1","item":{"type":"fileChange","id":"f1","changes":[],"status":"inProgress"}}`)
	notify(t, m, appserver.NotifyItemCompleted, `{"threadId":"t1","turnId":"u1","item":{
		"type":"fileChange","id":"f1","status":"completed","changes":[
			{"path":"a.go","kind":{"type":"add"},"diff":""},
			{"path":"b.go","kind":{"type":"update","move_path":"c.go"},"diff":""},
			{"path":"d.go","kind":{"type":"update"},"diff":""},
			{"path":"e.go","kind":{"type":"delete"},"diff":""}]}}`)

	require.Equal(t, []events.Type{
		events.TypeItemStarted,
		events.TypeToolStarted,
		events.TypeItemCompleted,
		events.TypeFileChanged,
		events.TypeFileChanged,
		events.TypeFileChanged,
		events.TypeFileChanged,
		events.TypeToolCompleted,
	}, rec.types())

	var kinds []events.FileChangeKind

	for _, ev := range rec.evs {
		if fc, ok := ev.(events.FileChanged); ok {
			kinds = append(kinds, fc.Kind)
		}
	}

	require.Equal(t, []events.FileChangeKind{events.FileAdded, events.FileRenamed, events.FileModified, events.FileDeleted}, kinds)
	require.Equal(t, "c.go", rec.evs[4].(events.FileChanged).MovePath)
}

func TestMapper_CommandExecution(t *testing.T) {
	t.Parallel()

	m, rec := newMapper(t, Options{})

	notify(t, m, appserver.NotifyItemStarted, `{"threadId":"t1","turnId":"u1","item":{
		"type":"commandExecution","id":"c1","command":"go test ./...","cwd":"/repo","processId":"42",
		"status":"inProgress","commandActions":[]}}`)
	notify(t, m, appserver.NotifyCommandOutputDelta, `{"threadId":"t1","turnId":"u1","itemId":"c1","delta":"ok"}`)
	notify(t, m, appserver.NotifyItemCompleted, `{"threadId":"t1","turnId":"u1","item":{
		"type":"commandExecution","id":"c1","command":"go test ./...","cwd":"/repo","processId":"42",
		"status":"completed","commandActions":[],"exitCode":0,"aggregatedOutput":"ok\n","durationMs":1200}}`)

	started, ok := rec.evs[1].(events.ToolStarted)
	require.True(t, ok)
	require.Equal(t, "go test ./...", started.ToolName)
	require.JSONEq(t, `{"command":"go test ./...","cwd":"/repo","commandActions":[],"processId":"42"}`, string(started.Payload))

	_, ok = rec.evs[2].(events.CommandOutputDelta)
	require.True(t, ok)

	exec, ok := rec.evs[4].(events.CommandExecuted)
	require.True(t, ok)
	require.Equal(t, "42", exec.ProcessID)
	require.Equal(t, "ok\n", exec.AggregatedOutputTail)
	require.NotNil(t, exec.ExitCode)
	require.Equal(t, 0, *exec.ExitCode)

	done, ok := rec.evs[5].(events.ToolCompleted)
	require.True(t, ok)
	require.Equal(t, int64(1200), *done.DurationMs)
}

func TestMapper_MCPToolCall(t *testing.T) {
	t.Parallel()

	m, rec := newMapper(t, Options{})

	notify(t, m, appserver.NotifyItemStarted, `{"threadId":"t1","turnId":"u1","item":{
		"type":"mcpToolCall","id":"x1","server":"docs","tool":"search","status":"inProgress","arguments":{}}}`)
	notify(t, m, appserver.NotifyItemCompleted, `{"threadId":"t1","turnId":"u1","item":{
		"type":"mcpToolCall","id":"x1","server":"docs","tool":"search","status":"completed",
		"result":{"content":[]},"durationMs":5}}`)

	started := rec.evs[1].(events.ToolStarted)
	require.Equal(t, "docs.search", started.ToolName)

	done := rec.evs[3].(events.ToolCompleted)
	require.Equal(t, "docs.search", done.ToolName)
	require.JSONEq(t, `{"content":[]}`, string(done.Result))
}

func TestMapper_CollabToolCall(t *testing.T) {
	t.Parallel()

	m, rec := newMapper(t, Options{})

	notify(t, m, appserver.NotifyItemStarted, `{"threadId":"t1","turnId":"u1","item":{
		"type":"collabAgentToolCall","id":"k1","tool":"spawn","status":"inProgress",
		"senderThreadId":"t1","receiverThreadIds":["t2"],"prompt":"help","agentsStates":{"t2":{"status":"running"},"t3":null}}}`)

	require.Equal(t, []events.Type{events.TypeItemStarted, events.TypeCollabToolCallUpdated, events.TypeToolStarted}, rec.types())

	update := rec.evs[1].(events.CollabToolCallUpdated)
	require.Equal(t, []string{"t2"}, update.ReceiverThreadIDs)
	require.Len(t, update.AgentsStates, 1)

	started := rec.evs[2].(events.ToolStarted)
	require.Equal(t, "spawn", started.ToolName)
	require.JSONEq(t, `{"senderThreadId":"t1","receiverThreadIds":["t2"],"status":"inProgress","prompt":"help",
		"agentsStates":{"t2":{"status":"running"}}}`, string(started.Payload))
}

func TestMapper_ReasoningAndPassthrough(t *testing.T) {
	t.Parallel()

	m, rec := newMapper(t, Options{})

	notify(t, m, appserver.NotifyReasoningSummaryPartAdded, `{"threadId":"t1","turnId":"u1","itemId":"r1","summaryIndex":1}`)
	notify(t, m, appserver.NotifyReasoningTextDelta, `{"threadId":"t1","turnId":"u1","itemId":"r1","delta":"hm","contentIndex":0}`)
	notify(t, m, "codex/event/unknown", `{"x":1}`)
	notify(t, m, appserver.NotifyTurnStarted, `"not an object"`)

	part := rec.evs[0].(events.ReasoningSummaryDelta)
	require.Empty(t, part.Delta)
	require.Equal(t, 1, *part.SummaryIndex)

	text := rec.evs[1].(events.ReasoningTextDelta)
	require.Equal(t, "hm", text.Delta)

	pass := rec.evs[2].(events.Notification)
	require.Equal(t, "codex/event/unknown", pass.Method)
	require.JSONEq(t, `{"x":1}`, string(pass.Params))

	malformed := rec.evs[3].(events.Notification)
	require.Equal(t, appserver.NotifyTurnStarted, malformed.Method)
}

func TestMapper_ServerRequests(t *testing.T) {
	t.Parallel()

	m, rec := newMapper(t, Options{})

	m.HandleServerRequest(context.Background(), &jsonrpc.Request{
		ID:     jsonrpc.NewIntID(7),
		Method: appserver.RequestFileChangeApproval,
		Params: json.RawMessage(`{"threadId":"t1","turnId":"u1","itemId":"f1"}`),
	})
	m.HandleServerRequest(context.Background(), &jsonrpc.Request{
		ID:     jsonrpc.NewStringID("q"),
		Method: appserver.RequestToolUserInput,
		Params: json.RawMessage(`{"threadId":"t1","turnId":"u1","itemId":"i","questions":[{"id":"a","header":"H","question":"Q?"}]}`),
	})
	m.HandleServerRequest(context.Background(), &jsonrpc.Request{
		ID:     jsonrpc.NewIntID(8),
		Method: "item/unknown/request",
	})

	require.Len(t, rec.evs, 2)

	approval := rec.evs[0].(events.ApprovalRequested)
	require.Equal(t, events.ApprovalFileChange, approval.Kind)
	require.Equal(t, jsonrpc.NewIntID(7), approval.RequestID)

	input := rec.evs[1].(events.UserInputRequested)
	require.Equal(t, jsonrpc.NewStringID("q"), input.RequestID)
	require.Len(t, input.Params.Questions, 1)
	require.Equal(t, "a", input.Params.Questions[0].ID)
}

func TestMapper_HandlerMayReadState(t *testing.T) {
	t.Parallel()

	var seen string

	var m *Mapper

	m = New(Options{Handler: func(_ context.Context, ev events.Event) {
		if ev.Type() == events.TypeMessageCompleted {
			seen = m.FullText()
		}
	}})

	delta(t, m, "m1", "hi")
	m.FlushMessages(context.Background())

	require.Equal(t, "hi", seen)
}
