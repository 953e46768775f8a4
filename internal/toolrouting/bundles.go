package toolrouting

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/BjornMelin/codex-sdk-agents/internal/mcp"
)

// BundleMode controls how a bundle's tools are exposed.
type BundleMode string

const (
	// ModeDirect exposes the allowed tools as-is.
	ModeDirect BundleMode = "direct"
	// ModeMeta exposes the server behind codex's tool search.
	ModeMeta BundleMode = "meta"
)

// Bundle is a named slice of one MCP server's tools.
type Bundle struct {
	Label      string     `yaml:"label,omitempty"`
	Server     string     `yaml:"server"`
	Mode       BundleMode `yaml:"mode,omitempty"`
	AllowTools []string   `yaml:"allow_tools,omitempty"`
	DenyTools  []string   `yaml:"deny_tools,omitempty"`
}

// Server is an MCP server a bundle can target.
type Server struct {
	mcp.ServerConfig `yaml:",inline"`

	Label    string `yaml:"label,omitempty"`
	Disabled bool   `yaml:"disabled,omitempty"`
}

// Registry resolves workflow steps to MCP server directives.
// It satisfies the backend's tool resolver contract.
type Registry struct {
	servers map[string]Server
	bundles map[string]Bundle
	router  *Router
}

// NewRegistry validates bundles against servers and returns a registry
// routing through router.
func NewRegistry(servers map[string]Server, bundles map[string]Bundle, router *Router) (*Registry, error) {
	for _, id := range slices.Sorted(maps.Keys(servers)) {
		if err := servers[id].Validate(); err != nil {
			return nil, fmt.Errorf("mcp server %q %w", id, err)
		}
	}

	for _, id := range slices.Sorted(maps.Keys(bundles)) {
		b := bundles[id]
		if _, ok := servers[b.Server]; !ok {
			return nil, fmt.Errorf("bundle %q targets unknown server %q", id, b.Server)
		}

		switch b.Mode {
		case "", ModeDirect, ModeMeta:
		default:
			return nil, fmt.Errorf("bundle %q has unknown mode %q", id, b.Mode)
		}
	}

	return &Registry{
		servers: servers,
		bundles: bundles,
		router:  router,
	}, nil
}

// Router returns the registry's router.
func (r *Registry) Router() *Router {
	return r.router
}

// ResolveTools returns the server directives routed to step. Bundles that
// target the same server are combined: allow lists union (an empty list
// admits every tool) and deny lists union. Unknown bundle ids are errors.
func (r *Registry) ResolveTools(_ context.Context, step StepAddress) (map[string]mcp.ServerConfig, error) {
	type acc struct {
		allowAll bool
		allow    []string
		deny     []string
	}

	byServer := make(map[string]*acc)

	for _, bundleID := range r.router.Resolve(step) {
		b, ok := r.bundles[bundleID]
		if !ok {
			return nil, fmt.Errorf("step %s: unknown bundle %q", step, bundleID)
		}

		if r.servers[b.Server].Disabled {
			continue
		}

		a := byServer[b.Server]
		if a == nil {
			a = &acc{}
			byServer[b.Server] = a
		}

		if len(b.AllowTools) == 0 {
			a.allowAll = true
		} else {
			a.allow = append(a.allow, b.AllowTools...)
		}

		a.deny = append(a.deny, b.DenyTools...)
	}

	out := make(map[string]mcp.ServerConfig, len(byServer))
	for serverID, a := range byServer {
		cfg := r.servers[serverID].ServerConfig

		if !a.allowAll {
			cfg.EnabledTools = sortedUnique(a.allow)
		}

		cfg.DisabledTools = sortedUnique(a.deny)
		out[serverID] = cfg
	}

	return out, nil
}

func sortedUnique(in []string) []string {
	if len(in) == 0 {
		return nil
	}

	out := slices.Clone(in)
	slices.Sort(out)

	return slices.Compact(out)
}
