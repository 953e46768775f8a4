package codexsdk

import (
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	internalmcp "github.com/BjornMelin/codex-sdk-agents/internal/mcp"
)

// Re-export MCP SDK types for public API.
type (
	// CallToolResult is the server's response to a tool call.
	// Use TextResult or ErrorResult to create results.
	CallToolResult = mcp.CallToolResult

	// CallToolRequest is the request passed to tool handlers.
	CallToolRequest = mcp.CallToolRequest

	// MCPContent is the interface for content types in tool results.
	MCPContent = mcp.Content

	// MCPTextContent represents text content in a tool result.
	MCPTextContent = mcp.TextContent

	// MCPTool represents an MCP tool definition from the official SDK.
	MCPTool = mcp.Tool

	// MCPToolAnnotations describes optional hints about tool behavior.
	MCPToolAnnotations = mcp.ToolAnnotations

	// Schema is a JSON Schema object for tool input validation.
	Schema = jsonschema.Schema
)

// SDKToolHandler runs a tool call inside the host program.
//
// Use ParseArguments to read the input and TextResult or ErrorResult to
// answer. Returning a Go error reports a failed call to codex.
type SDKToolHandler = mcp.ToolHandler

// SDKToolOption configures an SDKTool during construction.
type SDKToolOption func(*SDKTool)

// WithAnnotations sets MCP tool annotations (hints about tool behavior).
func WithAnnotations(annotations *mcp.ToolAnnotations) SDKToolOption {
	return func(t *SDKTool) {
		t.Annotations = annotations
	}
}

// SDKTool is a tool served by an SDKMCPServer.
type SDKTool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
	Handler     SDKToolHandler
	Annotations *mcp.ToolAnnotations
}

// NewSDKTool creates a tool for an in-process MCP server.
//
//	lookup := codexsdk.NewSDKTool("lookup_ticket", "Fetch a ticket by id",
//	    codexsdk.SimpleSchema(map[string]string{"id": "string"}),
//	    func(ctx context.Context, req *codexsdk.CallToolRequest) (*codexsdk.CallToolResult, error) {
//	        args, err := codexsdk.ParseArguments(req)
//	        if err != nil {
//	            return codexsdk.ErrorResult(err.Error()), nil
//	        }
//	        return codexsdk.TextResult(tickets[args["id"].(string)]), nil
//	    },
//	    codexsdk.WithAnnotations(&codexsdk.MCPToolAnnotations{ReadOnlyHint: true}),
//	)
func NewSDKTool(
	name, description string,
	inputSchema *jsonschema.Schema,
	handler SDKToolHandler,
	opts ...SDKToolOption,
) *SDKTool {
	t := &SDKTool{
		Name:        name,
		Description: description,
		InputSchema: inputSchema,
		Handler:     handler,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// SimpleSchema creates an object schema from a property type map such as
// {"a": "float64", "b": "string"}. Every property is required.
//
// Type mappings:
//   - "string"           → {"type": "string"}
//   - "int", "int64"     → {"type": "integer"}
//   - "float64", "float" → {"type": "number"}
//   - "bool"             → {"type": "boolean"}
//   - "[]string"         → {"type": "array", "items": {"type": "string"}}
//   - "any", "object"    → {"type": "object"}
func SimpleSchema(props map[string]string) *jsonschema.Schema {
	return internalmcp.SimpleSchema(props)
}

// TextResult creates a CallToolResult with text content.
func TextResult(text string) *mcp.CallToolResult {
	return internalmcp.TextResult(text)
}

// ErrorResult creates a CallToolResult indicating an error.
func ErrorResult(message string) *mcp.CallToolResult {
	return internalmcp.ErrorResult(message)
}

// ParseArguments unmarshals CallToolRequest arguments into a map.
func ParseArguments(req *mcp.CallToolRequest) (map[string]any, error) {
	return internalmcp.ParseArguments(req)
}
