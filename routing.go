package codexsdk

import (
	"log/slog"

	"github.com/BjornMelin/codex-sdk-agents/internal/toolrouting"
)

// Tool routing maps a workflow step (workflow, role, step) to tool bundles,
// and each bundle to a slice of one MCP server's tools.
type (
	// StepAddress names one workflow step.
	StepAddress = toolrouting.StepAddress
	// RoutingTable maps workflow → role → step → bundle ids.
	RoutingTable = toolrouting.Table
	// ToolBundle is a named slice of one MCP server's tools.
	ToolBundle = toolrouting.Bundle
	// ToolServer is an MCP server a bundle can target.
	ToolServer = toolrouting.Server
	// ToolRegistry resolves steps to MCP server directives.
	ToolRegistry = toolrouting.Registry
	// ToolRoutingWatcher serves a routing file and reloads it on change.
	ToolRoutingWatcher = toolrouting.Watcher
	// ToolRouter resolves steps to bundle ids.
	ToolRouter = toolrouting.Router
)

// Bundle modes.
const (
	BundleModeDirect = toolrouting.ModeDirect
	BundleModeMeta   = toolrouting.ModeMeta
)

// NewToolRouter builds a router; overrides take precedence per step.
func NewToolRouter(table, overrides RoutingTable) *ToolRouter {
	return toolrouting.NewRouter(table, overrides)
}

// NewToolRegistry validates servers and bundles and binds them to a router.
func NewToolRegistry(servers map[string]ToolServer, bundles map[string]ToolBundle, router *ToolRouter) (*ToolRegistry, error) {
	return toolrouting.NewRegistry(servers, bundles, router)
}

// LoadToolRouting reads a YAML routing file into a registry.
func LoadToolRouting(path string) (*ToolRegistry, error) {
	return toolrouting.LoadRegistry(path)
}

// NewToolRoutingWatcher loads path and returns a watcher that reloads it
// after Start. Pass it to WithToolResolver.
func NewToolRoutingWatcher(path string, logger *slog.Logger) (*ToolRoutingWatcher, error) {
	return toolrouting.NewWatcher(path, logger)
}
