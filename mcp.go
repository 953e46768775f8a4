package codexsdk

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/BjornMelin/codex-sdk-agents/internal/config"
	internalmcp "github.com/BjornMelin/codex-sdk-agents/internal/mcp"
)

// MCPServerConfig is an MCP server directive forwarded to codex as
// mcp_servers.<id>.* thread config. Set either Command (stdio) or URL
// (streamable HTTP), never both.
type MCPServerConfig = internalmcp.ServerConfig

// MCPServerType is the transport codex uses to reach an MCP server.
type MCPServerType = internalmcp.ServerType

const (
	MCPServerTypeStdio = internalmcp.ServerTypeStdio
	MCPServerTypeHTTP  = internalmcp.ServerTypeHTTP
)

// ToolResolver resolves the MCP servers a workflow step may use.
type ToolResolver = config.ToolResolver

// sdkToolsServerName is the name WithSDKTools registers its server under.
const sdkToolsServerName = "sdk"

// Tool is a map-in, map-out tool run inside the host program.
//
//	add := codexsdk.NewFuncTool(
//	    "add",
//	    "Adds two numbers",
//	    map[string]any{
//	        "type": "object",
//	        "properties": map[string]any{
//	            "a": map[string]any{"type": "number"},
//	            "b": map[string]any{"type": "number"},
//	        },
//	        "required": []string{"a", "b"},
//	    },
//	    func(ctx context.Context, input map[string]any) (map[string]any, error) {
//	        return map[string]any{"sum": input["a"].(float64) + input["b"].(float64)}, nil
//	    },
//	)
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description tells codex what the tool does.
	Description() string

	// InputSchema returns a JSON schema describing expected input.
	InputSchema() map[string]any

	// Execute runs the tool with the provided input.
	Execute(ctx context.Context, input map[string]any) (map[string]any, error)
}

// ToolFunc is a function-based tool implementation.
type ToolFunc func(ctx context.Context, input map[string]any) (map[string]any, error)

// NewFuncTool creates a Tool from a function.
func NewFuncTool(name, description string, schema map[string]any, fn ToolFunc) Tool {
	return &funcTool{
		name:        name,
		description: description,
		schema:      schema,
		fn:          fn,
	}
}

type funcTool struct {
	name        string
	description string
	schema      map[string]any
	fn          ToolFunc
}

var _ Tool = (*funcTool)(nil)

func (t *funcTool) Name() string                { return t.name }
func (t *funcTool) Description() string         { return t.description }
func (t *funcTool) InputSchema() map[string]any { return t.schema }
func (t *funcTool) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	return t.fn(ctx, input)
}

// WithSDKTools serves tools from an in-process MCP server named "sdk".
// Codex sees them as mcp__sdk__<name>.
func WithSDKTools(tools ...Tool) Option {
	server := newToolServer(tools)

	return WithSDKMCPServer(sdkToolsServerName, server)
}

// newToolServer wraps Tool values into an SDKMCPServer.
func newToolServer(tools []Tool) *SDKMCPServer {
	server := internalmcp.NewSDKServer(sdkToolsServerName, "1.0.0")

	for _, t := range tools {
		mcpTool := internalmcp.NewTool(t.Name(), t.Description(), mapToJSONSchema(t.InputSchema()))
		server.AddTool(mcpTool, toolToMCPHandler(t))
	}

	return &SDKMCPServer{server: server}
}

// toolToMCPHandler adapts Tool.Execute to an mcp.ToolHandler.
func toolToMCPHandler(t Tool) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := internalmcp.ParseArguments(req)
		if err != nil {
			return internalmcp.ErrorResult(fmt.Sprintf("failed to parse arguments: %v", err)), nil
		}

		result, err := t.Execute(ctx, args)
		if err != nil {
			return internalmcp.ErrorResult(err.Error()), nil
		}

		data, err := json.Marshal(result)
		if err != nil {
			return internalmcp.ErrorResult(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}

		return internalmcp.TextResult(string(data)), nil
	}
}

// mapToJSONSchema converts a map[string]any JSON schema to *jsonschema.Schema.
// An unconvertible schema yields an empty object schema.
func mapToJSONSchema(m map[string]any) *jsonschema.Schema {
	if m == nil {
		return nil
	}

	data, err := json.Marshal(m)
	if err != nil {
		return &jsonschema.Schema{Type: "object"}
	}

	var schema jsonschema.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return &jsonschema.Schema{Type: "object"}
	}

	return &schema
}
