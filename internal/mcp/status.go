package mcp

import (
	"slices"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// AuthStatus reports how codex is authenticated against an MCP server.
type AuthStatus string

const (
	AuthStatusUnsupported AuthStatus = "unsupported"
	AuthStatusNotLoggedIn AuthStatus = "notLoggedIn"
	AuthStatusBearerToken AuthStatus = "bearerToken"
	AuthStatusOAuth       AuthStatus = "oAuth"
)

// ServerStatus describes one MCP server as reported by mcpServerStatus/list.
type ServerStatus struct {
	Name              string                  `json:"name"`
	Tools             map[string]*mcp.Tool    `json:"tools"`
	Resources         []*mcp.Resource         `json:"resources"`
	ResourceTemplates []*mcp.ResourceTemplate `json:"resourceTemplates"`
	AuthStatus        AuthStatus              `json:"authStatus"`
}

// ToolNames returns the qualified server.tool names exposed by the server,
// sorted.
func (s *ServerStatus) ToolNames() []string {
	names := make([]string, 0, len(s.Tools))
	for name := range s.Tools {
		names = append(names, s.Name+"."+name)
	}

	slices.Sort(names)

	return names
}
