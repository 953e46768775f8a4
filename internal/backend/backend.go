// Package backend runs codex turns over an app-server connection. It owns
// the connection and the current thread, recreates the connection when
// spawn-time settings change and resumes the thread across recreations.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/BjornMelin/codex-sdk-agents/internal/appserver"
	"github.com/BjornMelin/codex-sdk-agents/internal/cancel"
	"github.com/BjornMelin/codex-sdk-agents/internal/config"
	"github.com/BjornMelin/codex-sdk-agents/internal/errors"
	"github.com/BjornMelin/codex-sdk-agents/internal/events"
	"github.com/BjornMelin/codex-sdk-agents/internal/jsonrpc"
	"github.com/BjornMelin/codex-sdk-agents/internal/mapper"
	"github.com/BjornMelin/codex-sdk-agents/internal/mcp"
	"github.com/BjornMelin/codex-sdk-agents/internal/models"
	"github.com/BjornMelin/codex-sdk-agents/internal/subprocess"
	"github.com/BjornMelin/codex-sdk-agents/internal/wsconn"
)

const (
	scopeName = "github.com/BjornMelin/codex-sdk-agents/internal/backend"

	// interruptTimeout bounds the best-effort interrupt sent on cancellation.
	interruptTimeout = 5 * time.Second

	// completionBuffer holds turn completions that arrive before turn/start
	// returns, or that belong to an earlier interrupted turn.
	completionBuffer = 8
)

// RunResult is the outcome of a settled run. A cancelled run has empty Text
// and no TurnID when it was cancelled before the turn started.
type RunResult struct {
	RunID    string
	Backend  string
	Model    string
	ThreadID string
	TurnID   string
	Text     string
	Usage    *events.Usage
}

// Backend is a codex session over one app-server connection at a time.
// Runs are serialized; Interrupt and Close may be called concurrently with
// a run.
type Backend struct {
	cfg    config.BackendConfig
	log    *slog.Logger
	tracer trace.Tracer

	runMu sync.Mutex

	mu           sync.Mutex
	client       *appserver.Client
	fingerprint  string
	threadID     string
	activeTurnID string
	closed       bool
}

// New returns a backend. Nothing is spawned until the first run.
func New(cfg *config.BackendConfig) (*Backend, error) {
	var c config.BackendConfig
	if cfg != nil {
		c = *cfg
	}

	if !c.MessageFallback.Valid() {
		return nil, &errors.ConfigError{
			Field: "messageFallback",
			Err:   fmt.Errorf("unknown policy %q", c.MessageFallback),
		}
	}

	log := c.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	tp := c.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return &Backend{
		cfg:    c,
		log:    log.With("component", "backend"),
		tracer: tp.Tracer(scopeName),
	}, nil
}

// ThreadID returns the current thread, or "" before the first run.
func (b *Backend) ThreadID() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.threadID
}

// Client returns the live connection, or nil when none is open.
func (b *Backend) Client() *appserver.Client {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.client
}

// Run sends prompt as a new turn and waits for it to settle. Cancelling ctx
// or hitting opts.Timeout returns an empty result without error after a
// best-effort interrupt. A failed turn or an app-server error returns the
// recorded *errors.TurnFailedError or *errors.ServerError.
func (b *Backend) Run(ctx context.Context, prompt string, opts *config.RunOptions, handler events.Handler) (*RunResult, error) {
	runID := ulid.Make().String()

	ctx, span := b.tracer.Start(ctx, "codex.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("codex.run_id", runID)),
	)
	defer span.End()

	res, err := b.run(ctx, runID, prompt, opts, handler)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	span.SetAttributes(
		attribute.String("codex.thread_id", res.ThreadID),
		attribute.String("codex.turn_id", res.TurnID),
		attribute.String("codex.model", res.Model),
	)

	return res, nil
}

//nolint:gocyclo // linear run state machine
func (b *Backend) run(ctx context.Context, runID, prompt string, opts *config.RunOptions, handler events.Handler) (*RunResult, error) {
	b.runMu.Lock()
	defer b.runMu.Unlock()

	if b.isClosed() {
		return nil, errors.ErrBackendClosed
	}

	opts = config.NormalizeRunOptions(opts)
	if err := config.ValidateRunOptions(opts); err != nil {
		return nil, err
	}

	log := b.log.With("run_id", runID)

	cwd := opts.Cwd
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}

		cwd = wd
	}

	model := models.Resolve(opts.Model, b.cfg.DefaultModel)

	result := &RunResult{RunID: runID, Backend: events.BackendAppServer, Model: model}

	var timeoutCtx context.Context = context.Background()

	if opts.Timeout > 0 {
		var cancelTimeout context.CancelFunc

		timeoutCtx, cancelTimeout = context.WithTimeout(context.Background(), opts.Timeout)
		defer cancelTimeout()
	}

	runCtx, release := cancel.Any(ctx, timeoutCtx)
	defer release()

	if runCtx.Err() != nil {
		log.Debug("Run cancelled before start", "cause", cancel.Cause(runCtx))

		return result, nil
	}

	threadConfig, err := b.threadConfig(runCtx, opts)
	if err != nil {
		return nil, err
	}

	settings := config.TransportSettings{
		CodexPath: opts.CodexPath,
		Cwd:       cwd,
		Env:       opts.Env,
		Logger:    b.cfg.Logger,
		Stderr:    b.cfg.Stderr,
	}
	if settings.CodexPath == "" {
		settings.CodexPath = b.cfg.CodexPath
	}

	client, recreated, err := b.ensureClient(runCtx, settings)
	if err != nil {
		if runCtx.Err() != nil {
			return result, nil
		}

		return nil, err
	}

	completions := make(chan mapper.TurnCompletion, completionBuffer)

	m := mapper.New(mapper.Options{
		Backend:  events.BackendAppServer,
		Handler:  handler,
		Fallback: b.cfg.MessageFallback,
		Logger:   log,
		OnTurnCompleted: func(c mapper.TurnCompletion) {
			select {
			case completions <- c:
			default:
				log.Warn("Dropping turn completion", "turn_id", c.TurnID)
			}
		},
	})

	offNotification := client.OnNotification(m.HandleNotification)
	offRequest := client.OnServerRequest(func(ctx context.Context, r *jsonrpc.Request) {
		m.HandleServerRequest(ctx, r)
		b.answer(ctx, client, r)
	})

	// Server requests still queued when the run settles are answered, but
	// no event reaches handler once run returns.
	defer func() {
		offNotification()
		offRequest()
		m.Detach()

		b.mu.Lock()
		b.activeTurnID = ""
		b.mu.Unlock()
	}()

	threadID, err := b.ensureThread(runCtx, client, recreated, cwd, model, threadConfig, opts)
	if err != nil {
		if runCtx.Err() != nil {
			return result, nil
		}

		return nil, err
	}

	m.SetThreadID(threadID)

	result.ThreadID = threadID
	log = log.With("thread_id", threadID)

	input := opts.Input
	if len(input) == 0 {
		input = []appserver.UserInput{appserver.TextInput(prompt)}
	}

	turnParams := &appserver.TurnStartParams{
		ThreadID:          threadID,
		Input:             input,
		Cwd:               &cwd,
		ApprovalPolicy:    optional(string(opts.ApprovalPolicy)),
		SandboxPolicy:     opts.SandboxPolicy,
		Model:             optional(opts.Model),
		Effort:            optional(string(opts.ReasoningEffort)),
		Summary:           optional(string(opts.ReasoningSummary)),
		OutputSchema:      opts.OutputSchema,
		CollaborationMode: opts.CollaborationMode,
	}

	turn, err := client.TurnStart(runCtx, turnParams)
	if err != nil {
		if runCtx.Err() != nil {
			return result, nil
		}

		return nil, fmt.Errorf("start turn: %w", err)
	}

	turnID := turn.Turn.ID

	b.mu.Lock()
	b.activeTurnID = turnID
	b.mu.Unlock()

	result.TurnID = turnID

	log.Debug("Turn started", "turn_id", turnID)

	for {
		select {
		case c := <-completions:
			if c.TurnID != "" && c.TurnID != turnID {
				log.Debug("Ignoring completion of another turn", "turn_id", c.TurnID)

				continue
			}

			m.FlushMessages(ctx)

			if err := m.CompletionError(); err != nil {
				return nil, err
			}

			result.Text = m.FullText()
			result.Usage = m.Usage()

			log.Debug("Turn completed", "turn_id", turnID, "status", c.Status)

			return result, nil

		case <-runCtx.Done():
			log.Info("Run cancelled, interrupting turn", "turn_id", turnID, "cause", cancel.Cause(runCtx))

			ictx, icancel := context.WithTimeout(context.WithoutCancel(ctx), interruptTimeout)
			if err := client.TurnInterrupt(ictx, threadID, turnID); err != nil {
				log.Debug("Interrupt after cancellation failed", "error", err)
			}

			icancel()

			return result, nil

		case <-client.Done():
			return nil, connectionLost(client)
		}
	}
}

// ensureClient returns a started connection for settings. It reports
// whether a new connection was built; any previous one is fully closed
// first.
func (b *Backend) ensureClient(ctx context.Context, settings config.TransportSettings) (*appserver.Client, bool, error) {
	fp, err := fingerprint(settings)
	if err != nil {
		return nil, false, err
	}

	b.mu.Lock()
	old := b.client
	reuse := old != nil && b.fingerprint == fp && !isDone(old)
	b.mu.Unlock()

	if reuse {
		return old, false, nil
	}

	if old != nil {
		b.log.Info("Recreating app-server connection", "cwd", settings.Cwd)

		if err := old.Close(); err != nil {
			b.log.Debug("Closing previous connection", "error", err)
		}

		b.mu.Lock()
		b.client = nil
		b.fingerprint = ""
		b.mu.Unlock()
	}

	client, err := Dial(ctx, &b.cfg, settings)
	if err != nil {
		return nil, false, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		_ = client.Close()

		return nil, false, errors.ErrBackendClosed
	}

	b.client = client
	b.fingerprint = fp

	return client, true, nil
}

// Dial builds a transport for settings the way cfg selects, then starts
// an app-server client over it. The caller owns the returned client.
func Dial(ctx context.Context, cfg *config.BackendConfig, settings config.TransportSettings) (*appserver.Client, error) {
	transport, err := newTransport(cfg, settings)
	if err != nil {
		return nil, err
	}

	client, err := appserver.NewClient(transport, appserver.Options{
		Logger:         cfg.Logger,
		ClientInfo:     cfg.ClientInfo,
		RequestTimeout: cfg.RequestTimeout,
		TracerProvider: cfg.TracerProvider,
	})
	if err != nil {
		_ = transport.Close()

		return nil, err
	}

	if err := client.Start(ctx); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("start app-server: %w", err)
	}

	return client, nil
}

func newTransport(cfg *config.BackendConfig, settings config.TransportSettings) (config.Transport, error) {
	switch {
	case cfg.NewTransport != nil:
		return cfg.NewTransport(settings)
	case cfg.ListenURL != "":
		return wsconn.Factory(cfg.ListenURL, nil)(settings)
	default:
		return subprocess.NewTransport(settings)
	}
}

// ensureThread starts, resumes or reuses the backend's thread.
func (b *Backend) ensureThread(
	ctx context.Context,
	client *appserver.Client,
	recreated bool,
	cwd, model string,
	threadConfig map[string]any,
	opts *config.RunOptions,
) (string, error) {
	b.mu.Lock()
	if opts.ThreadMode == config.ThreadStateless {
		b.threadID = ""
	}

	threadID := b.threadID
	b.mu.Unlock()

	switch {
	case threadID == "":
		resp, err := client.ThreadStart(ctx, &appserver.ThreadStartParams{
			Model:                 &model,
			Cwd:                   &cwd,
			ApprovalPolicy:        optional(string(opts.ApprovalPolicy)),
			Sandbox:               optional(string(opts.SandboxMode)),
			Config:                threadConfig,
			BaseInstructions:      optional(opts.BaseInstructions),
			DeveloperInstructions: optional(opts.DeveloperInstructions),
			ExperimentalRawEvents: true,
		})
		if err != nil {
			return "", fmt.Errorf("start thread: %w", err)
		}

		threadID = resp.Thread.ID

		b.log.Debug("Thread started", "thread_id", threadID)

	case recreated:
		resp, err := client.ThreadResume(ctx, &appserver.ThreadResumeParams{
			ThreadID:              threadID,
			Cwd:                   &cwd,
			ApprovalPolicy:        optional(string(opts.ApprovalPolicy)),
			Sandbox:               optional(string(opts.SandboxMode)),
			Config:                threadConfig,
			BaseInstructions:      optional(opts.BaseInstructions),
			DeveloperInstructions: optional(opts.DeveloperInstructions),
		})
		if err != nil {
			return "", fmt.Errorf("resume thread %s: %w", threadID, err)
		}

		threadID = resp.Thread.ID

		b.log.Debug("Thread resumed", "thread_id", threadID)
	}

	b.mu.Lock()
	b.threadID = threadID
	b.mu.Unlock()

	return threadID, nil
}

// threadConfig builds the config overrides sent on thread/start and
// thread/resume. Nil means none.
func (b *Backend) threadConfig(ctx context.Context, opts *config.RunOptions) (map[string]any, error) {
	out := make(map[string]any, len(opts.ConfigOverrides)+4)
	maps.Copy(out, opts.ConfigOverrides)

	if opts.ReasoningEffort != "" {
		out["model_reasoning_effort"] = string(opts.ReasoningEffort)
	}

	if opts.SkipGitRepoCheck {
		out["skip_git_repo_check"] = true
	}

	servers := make(map[string]mcp.ServerConfig)

	if opts.Step != nil && b.cfg.ToolResolver != nil {
		resolved, err := b.cfg.ToolResolver.ResolveTools(ctx, *opts.Step)
		if err != nil {
			return nil, fmt.Errorf("resolve tools for %s: %w", opts.Step, err)
		}

		maps.Copy(servers, resolved)
	}

	for name, srv := range b.cfg.SDKMCPServers {
		directive, err := srv.Serve(ctx, b.cfg.Logger)
		if err != nil {
			return nil, err
		}

		servers[name] = directive
	}

	maps.Copy(servers, opts.MCPServers)

	if err := mcp.ApplyOverrides(servers, out); err != nil {
		return nil, &errors.ConfigError{Field: "mcpServers", Err: err}
	}

	if len(out) == 0 {
		return nil, nil
	}

	return out, nil
}

// answer replies to a server request through the configured handler.
func (b *Backend) answer(ctx context.Context, client *appserver.Client, r *jsonrpc.Request) {
	req := appserver.NewServerRequest(r)

	if err := client.Answer(ctx, req, b.cfg.ServerRequestHandler); err != nil {
		b.log.Warn("Failed to answer server request", "method", req.Method, "id", req.ID.String(), "error", err)
	}
}

// Interrupt asks the server to stop the active turn.
func (b *Backend) Interrupt(ctx context.Context) error {
	b.mu.Lock()
	client, threadID, turnID := b.client, b.threadID, b.activeTurnID
	b.mu.Unlock()

	if client == nil || threadID == "" || turnID == "" {
		return &errors.SessionError{Op: "interrupt", Err: errors.ErrNoActiveTurn}
	}

	b.log.Info("Interrupting turn", "thread_id", threadID, "turn_id", turnID)

	if err := client.TurnInterrupt(ctx, threadID, turnID); err != nil {
		return fmt.Errorf("interrupt turn %s: %w", turnID, err)
	}

	return nil
}

// Inject always fails: app-server v2 cannot add input to a running turn.
func (b *Backend) Inject(context.Context, string) error {
	return &errors.SessionError{Op: "inject", Err: errors.ErrInjectUnsupported}
}

// Close terminates the connection and forgets the thread. In-process MCP
// servers are stopped. Safe to call multiple times.
func (b *Backend) Close() error {
	b.mu.Lock()
	client := b.client
	b.client = nil
	b.fingerprint = ""
	b.threadID = ""
	b.activeTurnID = ""
	b.closed = true
	b.mu.Unlock()

	var closeErr error

	if client != nil {
		b.log.Info("Closing backend")

		closeErr = client.Close()
	}

	for name, srv := range b.cfg.SDKMCPServers {
		if err := srv.Close(); err != nil {
			b.log.Debug("Closing MCP server", "server", name, "error", err)
		}
	}

	return closeErr
}

func (b *Backend) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.closed
}

// fingerprint identifies the spawn-time settings of a connection.
func fingerprint(s config.TransportSettings) (string, error) {
	data, err := json.Marshal(struct {
		Cwd          string            `json:"cwd"`
		CodexPath    string            `json:"codexPath"`
		EnvOverrides map[string]string `json:"envOverrides"`
	}{s.Cwd, s.CodexPath, s.Env})
	if err != nil {
		return "", fmt.Errorf("fingerprint settings: %w", err)
	}

	return string(data), nil
}

func isDone(c *appserver.Client) bool {
	select {
	case <-c.Done():
		return true
	default:
		return false
	}
}

func connectionLost(c *appserver.Client) error {
	if cause := c.Controller().FatalError(); cause != nil {
		return fmt.Errorf("%w: %w", errors.ErrConnectionClosed, cause)
	}

	return errors.ErrConnectionClosed
}

func optional(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
