package codexsdk

import (
	"log/slog"
	"maps"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/BjornMelin/codex-sdk-agents/internal/config"
	"github.com/BjornMelin/codex-sdk-agents/internal/mapper"
	internalmcp "github.com/BjornMelin/codex-sdk-agents/internal/mcp"
	"github.com/BjornMelin/codex-sdk-agents/internal/toolrouting"
)

// BackendConfig configures a backend for its whole lifetime.
type BackendConfig = config.BackendConfig

// RunOptions configures a single run.
type RunOptions = config.RunOptions

// Options holds everything the functional options can set. Backend is
// fixed when the backend is built; Run supplies per-run defaults that
// options passed to Backend.Run override.
type Options struct {
	Backend BackendConfig
	Run     RunOptions
}

// Option configures Options using the functional options pattern.
// This is the only option type; NewBackend, Query and Backend.Run all
// accept it.
type Option func(*Options)

// applyOptions applies functional options to a fresh Options.
func applyOptions(opts []Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// ===== Backend =====

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Backend.Logger = logger
	}
}

// WithCodexPath sets the explicit path to the codex binary.
// If not set, the binary is searched in PATH and common install locations.
func WithCodexPath(path string) Option {
	return func(o *Options) {
		o.Backend.CodexPath = path
	}
}

// WithDefaultModel sets the model used when a run names none.
func WithDefaultModel(model string) Option {
	return func(o *Options) {
		o.Backend.DefaultModel = model
	}
}

// WithClientInfo sets the client identity sent in the initialize handshake.
func WithClientInfo(name, title, version string) Option {
	return func(o *Options) {
		o.Backend.ClientInfo = &ClientInfo{Name: name, Title: title, Version: version}
	}
}

// WithRequestTimeout bounds each JSON-RPC request.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.Backend.RequestTimeout = timeout
	}
}

// WithStderr sets a callback receiving each stderr line of the app-server.
func WithStderr(handler func(string)) Option {
	return func(o *Options) {
		o.Backend.Stderr = handler
	}
}

// WithListenURL connects to a running `codex app-server --listen ws://...`
// instead of spawning a subprocess.
func WithListenURL(url string) Option {
	return func(o *Options) {
		o.Backend.ListenURL = url
	}
}

// WithTransportFactory overrides how transports are built. Useful for tests.
func WithTransportFactory(factory TransportFactory) Option {
	return func(o *Options) {
		o.Backend.NewTransport = factory
	}
}

// WithServerRequestHandler answers approval and user-input requests.
// Without one, approvals are declined and user input is answered empty.
func WithServerRequestHandler(handler ServerRequestHandler) Option {
	return func(o *Options) {
		o.Backend.ServerRequestHandler = handler
	}
}

// WithToolResolver resolves per-step MCP servers, typically a
// *ToolRegistry or *ToolRoutingWatcher.
func WithToolResolver(resolver ToolResolver) Option {
	return func(o *Options) {
		o.Backend.ToolResolver = resolver
	}
}

// WithSDKMCPServer exposes an in-process MCP server to every thread under
// name. May be given more than once.
func WithSDKMCPServer(name string, server *SDKMCPServer) Option {
	return func(o *Options) {
		if o.Backend.SDKMCPServers == nil {
			o.Backend.SDKMCPServers = make(map[string]*internalmcp.SDKServer)
		}

		o.Backend.SDKMCPServers[name] = server.server
	}
}

// WithMessageFallback selects how an end-of-turn response item completes
// the last agent message.
func WithMessageFallback(policy MessageFallback) Option {
	return func(o *Options) {
		o.Backend.MessageFallback = mapper.FallbackPolicy(policy)
	}
}

// WithTracerProvider sets the OpenTelemetry provider for run and request
// spans. Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Options) {
		o.Backend.TracerProvider = tp
	}
}

// ===== Run =====

// WithCwd sets the working directory codex operates in.
// Changing it between runs restarts the app-server and resumes the thread.
func WithCwd(cwd string) Option {
	return func(o *Options) {
		o.Run.Cwd = cwd
	}
}

// WithModel specifies which model to use (e.g., "gpt-5.2-codex").
func WithModel(model string) Option {
	return func(o *Options) {
		o.Run.Model = model
	}
}

// WithRunCodexPath overrides the codex binary for one run.
func WithRunCodexPath(path string) Option {
	return func(o *Options) {
		o.Run.CodexPath = path
	}
}

// WithEnv provides additional environment variables for the app-server
// process.
func WithEnv(env map[string]string) Option {
	return func(o *Options) {
		o.Run.Env = env
	}
}

// WithApprovalPolicy controls when codex asks before acting.
func WithApprovalPolicy(policy ApprovalPolicy) Option {
	return func(o *Options) {
		o.Run.ApprovalPolicy = policy
	}
}

// WithSandboxMode sets the thread-level sandbox.
func WithSandboxMode(mode SandboxMode) Option {
	return func(o *Options) {
		o.Run.SandboxMode = mode
	}
}

// WithSandboxPolicy sets the turn-level sandbox policy.
func WithSandboxPolicy(policy *SandboxPolicy) Option {
	return func(o *Options) {
		o.Run.SandboxPolicy = policy
	}
}

// WithReasoningEffort sets the reasoning depth.
func WithReasoningEffort(effort ReasoningEffort) Option {
	return func(o *Options) {
		o.Run.ReasoningEffort = effort
	}
}

// WithReasoningSummary controls reasoning summaries.
func WithReasoningSummary(summary ReasoningSummary) Option {
	return func(o *Options) {
		o.Run.ReasoningSummary = summary
	}
}

// WithThreadMode selects persistent (default) or stateless threads.
func WithThreadMode(mode ThreadMode) Option {
	return func(o *Options) {
		o.Run.ThreadMode = mode
	}
}

// WithSkipGitRepoCheck lets codex run outside a git repository.
func WithSkipGitRepoCheck(skip bool) Option {
	return func(o *Options) {
		o.Run.SkipGitRepoCheck = skip
	}
}

// WithConfigOverrides adds codex config keys. Dotted paths are allowed.
// Later calls merge over earlier ones.
func WithConfigOverrides(overrides map[string]any) Option {
	return func(o *Options) {
		if o.Run.ConfigOverrides == nil {
			o.Run.ConfigOverrides = make(map[string]any, len(overrides))
		}

		maps.Copy(o.Run.ConfigOverrides, overrides)
	}
}

// WithMCPServer adds an MCP server directive under id.
func WithMCPServer(id string, server MCPServerConfig) Option {
	return func(o *Options) {
		if o.Run.MCPServers == nil {
			o.Run.MCPServers = make(map[string]MCPServerConfig)
		}

		o.Run.MCPServers[id] = server
	}
}

// WithStep selects the workflow step whose tool bundles are resolved
// through the configured ToolResolver.
func WithStep(workflow, role, step string) Option {
	return func(o *Options) {
		o.Run.Step = &toolrouting.StepAddress{WorkflowID: workflow, RoleID: role, StepID: step}
	}
}

// WithBaseInstructions replaces codex's base instructions for new threads.
func WithBaseInstructions(instructions string) Option {
	return func(o *Options) {
		o.Run.BaseInstructions = instructions
	}
}

// WithDeveloperInstructions sets developer instructions for new threads.
func WithDeveloperInstructions(instructions string) Option {
	return func(o *Options) {
		o.Run.DeveloperInstructions = instructions
	}
}

// WithOutputSchema constrains the final message to a JSON Schema.
// See OutputSchemaFor to derive one from a Go type.
func WithOutputSchema(schema any) Option {
	return func(o *Options) {
		o.Run.OutputSchema = schema
	}
}

// WithCollaborationMode selects a collaboration preset for the turn.
func WithCollaborationMode(mode *CollaborationMode) Option {
	return func(o *Options) {
		o.Run.CollaborationMode = mode
	}
}

// WithInput replaces the text input built from the prompt.
func WithInput(items ...UserInput) Option {
	return func(o *Options) {
		o.Run.Input = items
	}
}

// WithTimeout cancels the run after d. The run then settles with empty
// text, like a cancelled context.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Run.Timeout = d
	}
}
