package appserver

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BjornMelin/codex-sdk-agents/internal/appserver/appservertest"
	"github.com/BjornMelin/codex-sdk-agents/internal/errors"
	"github.com/BjornMelin/codex-sdk-agents/internal/jsonrpc"
)

func newTestClient(t *testing.T) (*Client, *appservertest.Server) {
	t.Helper()

	srv := appservertest.NewServer()

	c, err := NewClient(srv, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c, srv
}

func TestClient_InitializeSendsClientInfo(t *testing.T) {
	t.Parallel()

	c, srv := newTestClient(t)
	require.NoError(t, c.Start(context.Background()))

	init := srv.CallsTo("initialize")
	require.Len(t, init, 1)
	require.JSONEq(t, `{"clientInfo":{"name":"codex-toolloop","title":"Codex ToolLoop","version":"0.1.0"}}`,
		string(init[0].Params))
	require.Len(t, srv.CallsTo("initialized"), 1)
}

func TestClient_ThreadStart(t *testing.T) {
	t.Parallel()

	c, srv := newTestClient(t)
	srv.Handle(MethodThreadStart, func(appservertest.Call) appservertest.Result {
		return appservertest.Result{Value: map[string]any{
			"thread": map[string]any{"id": "t1", "preview": ""},
			"model":  "gpt-5.2-codex",
		}}
	})

	model := "gpt-5.2-codex"
	resp, err := c.ThreadStart(context.Background(), &ThreadStartParams{
		Model:                 &model,
		ExperimentalRawEvents: true,
	})
	require.NoError(t, err)
	require.Equal(t, "t1", resp.Thread.ID)
	require.Equal(t, "gpt-5.2-codex", resp.Model)

	calls := srv.CallsTo(MethodThreadStart)
	require.Len(t, calls, 1)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(calls[0].Params, &sent))
	require.Equal(t, "gpt-5.2-codex", sent["model"])
	require.Equal(t, true, sent["experimentalRawEvents"])
	require.Contains(t, sent, "cwd")
	require.Nil(t, sent["cwd"])
}

func TestClient_NilParamsSendEmptyObject(t *testing.T) {
	t.Parallel()

	c, srv := newTestClient(t)
	srv.Handle(MethodModelList, func(appservertest.Call) appservertest.Result {
		return appservertest.Result{Value: map[string]any{
			"data": []map[string]any{{"id": "gpt-5.2-codex", "model": "gpt-5.2-codex", "isDefault": true}},
		}}
	})

	resp, err := c.ModelList(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	require.True(t, resp.Data[0].IsDefault)
	require.JSONEq(t, `{}`, string(srv.CallsTo(MethodModelList)[0].Params))
}

func TestClient_TurnInterrupt(t *testing.T) {
	t.Parallel()

	c, srv := newTestClient(t)

	require.NoError(t, c.TurnInterrupt(context.Background(), "t1", "u1"))
	require.JSONEq(t, `{"threadId":"t1","turnId":"u1"}`, string(srv.CallsTo(MethodTurnInterrupt)[0].Params))
}

func TestClient_RPCError(t *testing.T) {
	t.Parallel()

	c, srv := newTestClient(t)
	srv.Handle(MethodThreadRead, func(appservertest.Call) appservertest.Result {
		return appservertest.Result{Error: &jsonrpc.ErrorObject{Code: -32600, Message: "thread not found"}}
	})

	_, err := c.ThreadRead(context.Background(), &ThreadReadParams{ThreadID: "missing"})

	rpcErr, ok := stderrors.AsType[*errors.RPCError](err)
	require.True(t, ok)
	require.Equal(t, int64(-32600), rpcErr.Code)
	require.Equal(t, MethodThreadRead, rpcErr.Method)
}

func TestClient_MCPServerStatusList(t *testing.T) {
	t.Parallel()

	c, srv := newTestClient(t)
	srv.Handle(MethodMCPServerStatusList, func(appservertest.Call) appservertest.Result {
		return appservertest.Result{Value: json.RawMessage(`{
			"data": [{
				"name": "docs",
				"tools": {"search": {"name": "search", "inputSchema": {"type": "object"}}},
				"resources": [],
				"resourceTemplates": [],
				"authStatus": "bearerToken"
			}],
			"nextCursor": null
		}`)}
	})

	resp, err := c.MCPServerStatusList(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	require.Equal(t, []string{"docs.search"}, resp.Data[0].ToolNames())
	require.Nil(t, resp.NextCursor)
}

func TestClient_Responders(t *testing.T) {
	t.Parallel()

	c, srv := newTestClient(t)
	require.NoError(t, c.Start(context.Background()))

	ctx := context.Background()

	tests := []struct {
		name    string
		respond func(id jsonrpc.RequestID) error
		want    string
	}{
		{
			name: "command execution",
			respond: func(id jsonrpc.RequestID) error {
				return c.RespondCommandExecutionApproval(ctx, id, DecisionAcceptForSession)
			},
			want: `{"decision":"acceptForSession"}`,
		},
		{
			name: "file change",
			respond: func(id jsonrpc.RequestID) error {
				return c.RespondFileChangeApproval(ctx, id, DecisionDecline)
			},
			want: `{"decision":"decline"}`,
		},
		{
			name: "user input",
			respond: func(id jsonrpc.RequestID) error {
				return c.RespondUserInput(ctx, id, map[string]UserInputAnswer{"q1": {Answers: []string{"yes"}}})
			},
			want: `{"answers":{"q1":{"answers":["yes"]}}}`,
		},
		{
			name: "user input nil",
			respond: func(id jsonrpc.RequestID) error {
				return c.RespondUserInput(ctx, id, nil)
			},
			want: `{"answers":{}}`,
		},
		{
			name: "apply patch",
			respond: func(id jsonrpc.RequestID) error {
				return c.RespondApplyPatchApproval(ctx, id, ReviewApproved)
			},
			want: `{"decision":"approved"}`,
		},
		{
			name: "exec command",
			respond: func(id jsonrpc.RequestID) error {
				return c.RespondExecCommandApproval(ctx, id, ReviewAbort)
			},
			want: `{"decision":"abort"}`,
		},
	}

	for i, tt := range tests {
		id := jsonrpc.NewIntID(int64(100 + i))
		require.NoError(t, tt.respond(id), tt.name)

		reply, ok := srv.NextReply(5 * time.Second)
		require.True(t, ok, tt.name)
		require.Equal(t, id, reply.ID, tt.name)
		require.JSONEq(t, tt.want, string(reply.Result), tt.name)
	}
}

func TestClient_AnswerDefaults(t *testing.T) {
	t.Parallel()

	c, srv := newTestClient(t)
	require.NoError(t, c.Start(context.Background()))

	tests := []struct {
		method string
		want   string
	}{
		{RequestCommandExecutionApproval, `{"decision":"decline"}`},
		{RequestFileChangeApproval, `{"decision":"decline"}`},
		{RequestToolUserInput, `{"answers":{}}`},
		{RequestApplyPatchApproval, `{"decision":"denied"}`},
		{RequestExecCommandApproval, `{"decision":"denied"}`},
	}

	for i, tt := range tests {
		req := &ServerRequest{ID: jsonrpc.NewStringID(tt.method), Method: tt.method, Params: json.RawMessage(`{}`)}

		// A handler with no opinion falls back to the default.
		handler := ServerRequestHandlerFunc(func(context.Context, *ServerRequest) (any, error) {
			return nil, nil
		})

		var h ServerRequestHandler = handler
		if i%2 == 0 {
			h = nil
		}

		require.NoError(t, c.Answer(context.Background(), req, h))

		reply, ok := srv.NextReply(5 * time.Second)
		require.True(t, ok, tt.method)
		require.Nil(t, reply.Error, tt.method)
		require.JSONEq(t, tt.want, string(reply.Result), tt.method)
	}
}

func TestClient_AnswerErrors(t *testing.T) {
	t.Parallel()

	c, srv := newTestClient(t)
	require.NoError(t, c.Start(context.Background()))

	failing := ServerRequestHandlerFunc(func(context.Context, *ServerRequest) (any, error) {
		return nil, stderrors.New("operator unavailable")
	})

	req := &ServerRequest{ID: jsonrpc.NewIntID(7), Method: RequestFileChangeApproval}
	require.NoError(t, c.Answer(context.Background(), req, failing))

	reply, ok := srv.NextReply(5 * time.Second)
	require.True(t, ok)
	require.NotNil(t, reply.Error)
	require.Equal(t, int64(jsonrpc.CodeInternalError), reply.Error.Code)
	require.Equal(t, "operator unavailable", reply.Error.Message)

	req = &ServerRequest{ID: jsonrpc.NewIntID(8), Method: "item/unknown/request"}
	require.NoError(t, c.Answer(context.Background(), req, nil))

	reply, ok = srv.NextReply(5 * time.Second)
	require.True(t, ok)
	require.NotNil(t, reply.Error)
	require.Equal(t, int64(jsonrpc.CodeMethodNotFound), reply.Error.Code)
}

func TestServerRequest_Decode(t *testing.T) {
	t.Parallel()

	req := &ServerRequest{
		Method: RequestToolUserInput,
		Params: json.RawMessage(`{"threadId":"t1","turnId":"u1","itemId":"i1",
			"questions":[{"id":"q1","header":"Pick","question":"Which?","options":[{"label":"a","description":"A"}]}]}`),
	}

	var p UserInputParams
	require.NoError(t, req.Decode(&p))
	require.Equal(t, "t1", req.ThreadID())
	require.Len(t, p.Questions, 1)
	require.Equal(t, "a", p.Questions[0].Options[0].Label)

	legacy := &ServerRequest{Method: RequestExecCommandApproval, Params: json.RawMessage(`{"conversationId":"c1"}`)}
	require.Empty(t, legacy.ThreadID())

	require.Error(t, (&ServerRequest{Method: "x"}).Decode(&p))
}

func TestUserInput_MarshalJSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal([]UserInput{TextInput("hi"), ImageInput("https://x/y.png"), SkillInput("lint", "/s")})
	require.NoError(t, err)
	require.JSONEq(t, `[
		{"type":"text","text":"hi","text_elements":[]},
		{"type":"image","url":"https://x/y.png"},
		{"type":"skill","name":"lint","path":"/s"}
	]`, string(data))

	_, err = json.Marshal(UserInput{Type: "bogus"})
	require.Error(t, err)
}
