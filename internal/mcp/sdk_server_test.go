package mcp

import (
	"context"
	"errors"
	"testing"

	mcpgo "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

func newEchoServer() *SDKServer {
	server := NewSDKServer("demo", "1.0.0")
	server.AddTool(
		NewTool("echo", "echoes text", SimpleSchema(map[string]string{"text": "string"})),
		func(_ context.Context, req *mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
			args, err := ParseArguments(req)
			if err != nil {
				return nil, err
			}

			text, _ := args["text"].(string)

			return TextResult("echo: " + text), nil
		},
	)

	return server
}

func TestSDKServerMetadata(t *testing.T) {
	server := NewSDKServer("demo", "1.2.3")

	require.Equal(t, "demo", server.Name())
	require.Equal(t, "1.2.3", server.Version())
	require.Empty(t, server.Tools())
}

func TestSDKServerToolsAndCallTool(t *testing.T) {
	server := newEchoServer()
	server.AddTool(NewTool("alpha", "no schema", nil), func(context.Context, *mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		return nil, nil
	})

	tools := server.Tools()
	require.Len(t, tools, 2)
	require.Equal(t, "alpha", tools[0].Name)
	require.Equal(t, "echo", tools[1].Name)
	require.NotNil(t, tools[0].InputSchema, "missing schema defaults to an object schema")

	result := server.CallTool(context.Background(), "echo", map[string]any{"text": "hello"})
	require.False(t, result.IsError)
	require.Len(t, result.Content, 1)

	text, ok := result.Content[0].(*mcpgo.TextContent)
	require.True(t, ok)
	require.Equal(t, "echo: hello", text.Text)

	empty := server.CallTool(context.Background(), "alpha", nil)
	require.False(t, empty.IsError)
	require.Empty(t, empty.Content)

	missing := server.CallTool(context.Background(), "unknown", map[string]any{})
	require.True(t, missing.IsError)
}

func TestSDKServerCallTool_HandlerError(t *testing.T) {
	server := NewSDKServer("demo", "1.0.0")
	server.AddTool(
		NewTool("fails", "always fails", nil),
		func(_ context.Context, _ *mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
			return nil, errors.New("boom")
		},
	)

	result := server.CallTool(context.Background(), "fails", map[string]any{})
	require.True(t, result.IsError)

	text, ok := result.Content[0].(*mcpgo.TextContent)
	require.True(t, ok)
	require.Equal(t, "Tool execution failed: boom", text.Text)
}

func TestSDKServerServe(t *testing.T) {
	server := newEchoServer()
	t.Cleanup(func() { require.NoError(t, server.Close()) })

	ctx := context.Background()

	cfg, err := server.Serve(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, ServerTypeHTTP, cfg.Type())
	require.Contains(t, cfg.URL, "http://127.0.0.1:")
	require.NoError(t, cfg.Validate())

	again, err := server.Serve(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, cfg.URL, again.URL)

	client := mcpgo.NewClient(&mcpgo.Implementation{Name: "test-client", Version: "0.0.1"}, nil)

	session, err := client.Connect(ctx, &mcpgo.StreamableClientTransport{Endpoint: cfg.URL}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	listed, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	require.Len(t, listed.Tools, 1)
	require.Equal(t, "echo", listed.Tools[0].Name)

	result, err := session.CallTool(ctx, &mcpgo.CallToolParams{
		Name:      "echo",
		Arguments: map[string]any{"text": "over http"},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)

	text, ok := result.Content[0].(*mcpgo.TextContent)
	require.True(t, ok)
	require.Equal(t, "echo: over http", text.Text)
}

func TestSDKServerClose_Idempotent(t *testing.T) {
	server := newEchoServer()

	require.NoError(t, server.Close())

	_, err := server.Serve(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, server.Close())
	require.NoError(t, server.Close())
}

func TestSimpleSchema(t *testing.T) {
	schema := SimpleSchema(map[string]string{
		"name":   "string",
		"active": "bool",
		"scores": "[]float64",
	})

	require.Equal(t, "object", schema.Type)
	require.Equal(t, []string{"active", "name", "scores"}, schema.Required)
	require.Equal(t, "string", schema.Properties["name"].Type)
	require.Equal(t, "boolean", schema.Properties["active"].Type)
	require.Equal(t, "array", schema.Properties["scores"].Type)
	require.Equal(t, "number", schema.Properties["scores"].Items.Type)
}

func TestGoTypeToJSONSchema(t *testing.T) {
	tests := []struct {
		goType    string
		wantType  string
		wantItems string
	}{
		{goType: "string", wantType: "string"},
		{goType: "int64", wantType: "integer"},
		{goType: "float32", wantType: "number"},
		{goType: "boolean", wantType: "boolean"},
		{goType: "map[string]any", wantType: "object"},
		{goType: "[]int", wantType: "array", wantItems: "integer"},
		{goType: "[]", wantType: "string"},
		{goType: "customType", wantType: "string"},
	}

	for _, tt := range tests {
		t.Run(tt.goType, func(t *testing.T) {
			got := goTypeToJSONSchema(tt.goType)

			require.Equal(t, tt.wantType, got.Type)

			if tt.wantItems != "" {
				require.NotNil(t, got.Items)
				require.Equal(t, tt.wantItems, got.Items.Type)
			}
		})
	}
}

func TestParseArguments(t *testing.T) {
	args, err := ParseArguments(nil)
	require.NoError(t, err)
	require.Empty(t, args)

	args, err = ParseArguments(&mcpgo.CallToolRequest{Params: &mcpgo.CallToolParamsRaw{
		Arguments: []byte(`{"name":"codex","count":3}`),
	}})
	require.NoError(t, err)
	require.Equal(t, "codex", args["name"])
	require.InDelta(t, 3, args["count"], 0)

	_, err = ParseArguments(&mcpgo.CallToolRequest{Params: &mcpgo.CallToolParamsRaw{
		Arguments: []byte(`{"name":`),
	}})
	require.ErrorContains(t, err, "failed to unmarshal arguments")
}
