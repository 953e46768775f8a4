package codexsdk

import (
	"context"

	internalmcp "github.com/BjornMelin/codex-sdk-agents/internal/mcp"
)

// SDKMCPServer is an MCP server whose tools run inside this program.
//
// codex reaches it over a loopback streamable HTTP endpoint that the
// backend starts on the first run and stops on Close. Codex sees its tools
// as mcp__<name>__<tool>, where name is the one given to WithSDKMCPServer.
type SDKMCPServer struct {
	server *internalmcp.SDKServer
}

// NewSDKMCPServer creates an in-process MCP server with tools.
//
//	tickets := codexsdk.NewSDKMCPServer("tickets", "1.0.0", lookupTool)
//
//	backend, err := codexsdk.NewBackend(
//	    codexsdk.WithSDKMCPServer("tickets", tickets),
//	)
func NewSDKMCPServer(name, version string, tools ...*SDKTool) *SDKMCPServer {
	server := internalmcp.NewSDKServer(name, version)

	for _, tool := range tools {
		mcpTool := internalmcp.NewTool(tool.Name, tool.Description, tool.InputSchema)
		mcpTool.Annotations = tool.Annotations
		server.AddTool(mcpTool, tool.Handler)
	}

	return &SDKMCPServer{server: server}
}

// Name returns the server name reported to MCP clients.
func (s *SDKMCPServer) Name() string {
	return s.server.Name()
}

// AddTool registers another tool. Threads started afterwards see it.
func (s *SDKMCPServer) AddTool(tool *SDKTool) {
	mcpTool := internalmcp.NewTool(tool.Name, tool.Description, tool.InputSchema)
	mcpTool.Annotations = tool.Annotations
	s.server.AddTool(mcpTool, tool.Handler)
}

// Tools lists the registered tools sorted by name.
func (s *SDKMCPServer) Tools() []*MCPTool {
	return s.server.Tools()
}

// CallTool runs a tool directly, without codex. Useful in tests.
func (s *SDKMCPServer) CallTool(ctx context.Context, name string, input map[string]any) *CallToolResult {
	return s.server.CallTool(ctx, name, input)
}

// Close stops the loopback endpoint if it is running.
func (s *SDKMCPServer) Close() error {
	return s.server.Close()
}
