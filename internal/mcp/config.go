package mcp

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// ServerType represents the transport codex uses to reach an MCP server.
type ServerType string

const (
	// ServerTypeStdio launches the server as a child process of codex.
	ServerTypeStdio ServerType = "stdio"
	// ServerTypeHTTP connects to a streamable HTTP endpoint.
	ServerTypeHTTP ServerType = "http"
)

// ErrCommandAndURL indicates a server directive sets both a command and a url.
var ErrCommandAndURL = errors.New("must not set both command and url")

// ErrNoEndpoint indicates a server directive sets neither a command nor a url.
var ErrNoEndpoint = errors.New("must set either command or url")

// ServerConfig is an MCP server directive forwarded to codex as
// mcp_servers.<id>.* thread config overrides.
//
// A directive is either a stdio server (Command, Args, Cwd, Env) or an
// HTTP server (URL, HTTPHeaders); never both.
type ServerConfig struct {
	Command     string            `json:"command,omitempty" yaml:"command,omitempty"`
	Args        []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Cwd         string            `json:"cwd,omitempty" yaml:"cwd,omitempty"`
	Env         map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	URL         string            `json:"url,omitempty" yaml:"url,omitempty"`
	HTTPHeaders map[string]string `json:"http_headers,omitempty" yaml:"http_headers,omitempty"`

	// EnabledTools limits the tools codex exposes from this server.
	EnabledTools []string `json:"enabled_tools,omitempty" yaml:"enabled_tools,omitempty"`
	// DisabledTools hides tools even when EnabledTools admits them.
	DisabledTools []string `json:"disabled_tools,omitempty" yaml:"disabled_tools,omitempty"`
}

// Type reports which transport the directive describes.
func (c ServerConfig) Type() ServerType {
	if c.URL != "" {
		return ServerTypeHTTP
	}

	return ServerTypeStdio
}

// Validate checks that exactly one of Command and URL is set.
func (c ServerConfig) Validate() error {
	switch {
	case c.Command != "" && c.URL != "":
		return ErrCommandAndURL
	case c.Command == "" && c.URL == "":
		return ErrNoEndpoint
	default:
		return nil
	}
}

// Overrides writes the directive for server id into dst as dotted
// mcp_servers.<id>.<field> keys. Only non-empty fields are written.
func (c ServerConfig) Overrides(id string, dst map[string]any) {
	prefix := "mcp_servers." + id + "."

	if c.Command != "" {
		dst[prefix+"command"] = c.Command
	}

	if len(c.Args) > 0 {
		dst[prefix+"args"] = slices.Clone(c.Args)
	}

	if c.Cwd != "" {
		dst[prefix+"cwd"] = c.Cwd
	}

	if len(c.Env) > 0 {
		dst[prefix+"env"] = maps.Clone(c.Env)
	}

	if c.URL != "" {
		dst[prefix+"url"] = c.URL
	}

	if len(c.HTTPHeaders) > 0 {
		dst[prefix+"http_headers"] = maps.Clone(c.HTTPHeaders)
	}

	if len(c.EnabledTools) > 0 {
		dst[prefix+"enabled_tools"] = slices.Clone(c.EnabledTools)
	}

	if len(c.DisabledTools) > 0 {
		dst[prefix+"disabled_tools"] = slices.Clone(c.DisabledTools)
	}
}

// ApplyOverrides validates every directive in servers and writes them into
// dst in id order. The first invalid directive aborts with an error naming
// the server.
func ApplyOverrides(servers map[string]ServerConfig, dst map[string]any) error {
	for _, id := range slices.Sorted(maps.Keys(servers)) {
		cfg := servers[id]
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("mcp server %q %w", id, err)
		}

		cfg.Overrides(id, dst)
	}

	return nil
}
