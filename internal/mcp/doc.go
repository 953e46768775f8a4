// Package mcp describes the MCP servers a codex thread may use.
//
// ServerConfig is the directive forwarded to codex app-server as
// mcp_servers.<id>.* thread config overrides: either a stdio command codex
// launches itself or a URL it connects to.
//
// SDKServer is an in-process server whose tools run inside the host program.
// It is served on a loopback streamable HTTP endpoint so codex can reach it
// through an ordinary url directive.
package mcp
