package config

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/BjornMelin/codex-sdk-agents/internal/appserver"
	"github.com/BjornMelin/codex-sdk-agents/internal/mapper"
	"github.com/BjornMelin/codex-sdk-agents/internal/mcp"
	"github.com/BjornMelin/codex-sdk-agents/internal/toolrouting"
)

// DefaultRequestTimeout bounds every JSON-RPC request that sets no other limit.
const DefaultRequestTimeout = 60 * time.Second

// ToolResolver resolves the MCP servers a workflow step may use.
// The backend merges the result into the thread's mcp_servers overrides.
type ToolResolver interface {
	ResolveTools(ctx context.Context, step toolrouting.StepAddress) (map[string]mcp.ServerConfig, error)
}

// ServerRequestHandler answers server-initiated requests. A nil result
// with a nil error selects the default answer.
type ServerRequestHandler = appserver.ServerRequestHandler

// BackendConfig configures a backend for its whole lifetime.
type BackendConfig struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// CodexPath is the explicit path to the codex binary.
	// If empty, the binary is searched in PATH and common install locations.
	CodexPath string

	// DefaultModel is used when a run names no model.
	// If empty, models.DefaultModel is used.
	DefaultModel string

	// ClientInfo identifies this client in the initialize handshake.
	// If nil, appserver.DefaultClientInfo is sent.
	ClientInfo *appserver.ClientInfo

	// RequestTimeout bounds each JSON-RPC request.
	// If zero, DefaultRequestTimeout is used.
	RequestTimeout time.Duration

	// Stderr is a callback function for handling app-server stderr output.
	Stderr func(string)

	// ListenURL connects to an already running `codex app-server --listen`
	// websocket endpoint instead of spawning a subprocess.
	ListenURL string

	// NewTransport overrides how transports are built.
	// If nil, a subprocess (or websocket when ListenURL is set) transport is used.
	NewTransport TransportFactory `json:"-"`

	// ServerRequestHandler answers approval and user-input requests.
	// If nil, or if it returns a nil result, conservative defaults are sent:
	// approvals are declined or denied and user input is answered empty.
	ServerRequestHandler ServerRequestHandler `json:"-"`

	// ToolResolver contributes MCP servers per workflow step.
	ToolResolver ToolResolver `json:"-"`

	// SDKMCPServers are in-process MCP servers exposed to every thread.
	// Map key is the server name codex sees.
	SDKMCPServers map[string]*mcp.SDKServer `json:"-"`

	// MessageFallback selects how an end-of-turn raw response item completes
	// the last agent message when no item/completed arrived for it.
	MessageFallback mapper.FallbackPolicy

	// TracerProvider supplies the tracer for run and request spans.
	// If nil, the global OpenTelemetry provider is used.
	TracerProvider trace.TracerProvider `json:"-"`
}

// RunOptions configures a single run.
type RunOptions struct {
	// Cwd is the working directory codex operates in. Defaults to the
	// process working directory.
	Cwd string

	// Model is the model id (e.g., "gpt-5.2-codex").
	Model string

	// CodexPath overrides BackendConfig.CodexPath for this run.
	CodexPath string

	// Env provides additional environment variables for the app-server process.
	Env map[string]string

	// ApprovalPolicy controls when codex asks before acting.
	ApprovalPolicy ApprovalPolicy

	// SandboxMode is the thread-level sandbox.
	SandboxMode SandboxMode

	// SandboxPolicy is the turn-level sandbox, sent on turn/start.
	SandboxPolicy *appserver.SandboxPolicy

	// ReasoningEffort is the requested reasoning depth.
	ReasoningEffort ReasoningEffort

	// ReasoningSummary controls reasoning summaries for the turn.
	ReasoningSummary ReasoningSummary

	// ThreadMode defaults to ThreadPersistent.
	ThreadMode ThreadMode

	// SkipGitRepoCheck lets codex run outside a git repository.
	SkipGitRepoCheck bool

	// ConfigOverrides are extra codex config keys (dotted paths allowed).
	ConfigOverrides map[string]any

	// MCPServers are forwarded as mcp_servers.<id>.* overrides.
	MCPServers map[string]mcp.ServerConfig

	// Step selects the workflow step whose tool bundles are resolved through
	// BackendConfig.ToolResolver.
	Step *toolrouting.StepAddress

	// BaseInstructions replaces codex's base instructions for a new thread.
	BaseInstructions string

	// DeveloperInstructions are appended as developer instructions.
	DeveloperInstructions string

	// OutputSchema constrains the final message to a JSON Schema.
	OutputSchema any

	// CollaborationMode selects a collaboration preset for the turn.
	CollaborationMode *appserver.CollaborationMode

	// Input replaces the default single text input built from the prompt.
	Input []appserver.UserInput

	// Timeout cancels the run after this duration. Zero means no limit
	// beyond the caller's context.
	Timeout time.Duration
}

// NormalizeRunOptions returns a copy of opts with enum spellings normalized
// and ThreadMode defaulted. A nil opts yields the defaults.
func NormalizeRunOptions(opts *RunOptions) *RunOptions {
	out := &RunOptions{}
	if opts != nil {
		*out = *opts
	}

	if out.ApprovalPolicy != "" {
		out.ApprovalPolicy = NormalizeApprovalPolicy(out.ApprovalPolicy)
	}

	if out.SandboxMode != "" {
		out.SandboxMode = NormalizeSandboxMode(out.SandboxMode)
	}

	if out.ThreadMode == "" {
		out.ThreadMode = ThreadPersistent
	}

	return out
}

// ValidateRunOptions rejects unknown enum values.
func ValidateRunOptions(opts *RunOptions) error {
	if opts.ApprovalPolicy != "" && !opts.ApprovalPolicy.Valid() {
		return invalidEnum("approvalPolicy", opts.ApprovalPolicy)
	}

	if opts.SandboxMode != "" && !opts.SandboxMode.Valid() {
		return invalidEnum("sandboxMode", opts.SandboxMode)
	}

	if opts.ReasoningEffort != "" && !opts.ReasoningEffort.Valid() {
		return invalidEnum("reasoningEffort", opts.ReasoningEffort)
	}

	if opts.ReasoningSummary != "" && !opts.ReasoningSummary.Valid() {
		return invalidEnum("reasoningSummary", opts.ReasoningSummary)
	}

	if opts.ThreadMode != "" && !opts.ThreadMode.Valid() {
		return invalidEnum("threadMode", opts.ThreadMode)
	}

	if opts.Timeout < 0 {
		return invalidEnum("timeout", opts.Timeout.String())
	}

	return nil
}
