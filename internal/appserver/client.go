package appserver

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/BjornMelin/codex-sdk-agents/internal/jsonrpc"
	"github.com/BjornMelin/codex-sdk-agents/internal/mcp"
	"github.com/BjornMelin/codex-sdk-agents/internal/protocol"
)

// Options configures a Client.
type Options struct {
	// Logger receives client diagnostics. Nil disables logging.
	Logger *slog.Logger

	// ClientInfo is sent in the initialize handshake.
	// If nil, DefaultClientInfo is used.
	ClientInfo *ClientInfo

	// RequestTimeout bounds each request. Zero selects the protocol default.
	RequestTimeout time.Duration

	// TracerProvider supplies the tracer for request spans.
	TracerProvider trace.TracerProvider
}

// MCPServerStatusListResponse is the result of mcpServerStatus/list.
type MCPServerStatusListResponse struct {
	Data       []mcp.ServerStatus `json:"data"`
	NextCursor *string            `json:"nextCursor"`
}

// Client is the typed method surface of a codex app-server connection.
// Every method starts the connection on first use.
type Client struct {
	ctrl *protocol.Controller
	log  *slog.Logger
}

// NewClient builds a client over transport. Nothing is started until Start
// or the first call.
func NewClient(transport protocol.Transport, opts Options) (*Client, error) {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	info := DefaultClientInfo
	if opts.ClientInfo != nil {
		info = *opts.ClientInfo
	}

	ctrl, err := protocol.NewController(transport, protocol.Options{
		Logger:           log,
		RequestTimeout:   opts.RequestTimeout,
		InitializeParams: InitializeParams{ClientInfo: info},
		TracerProvider:   opts.TracerProvider,
	})
	if err != nil {
		return nil, err
	}

	return &Client{ctrl: ctrl, log: log.With("component", "appserver")}, nil
}

// Controller exposes the underlying connection.
func (c *Client) Controller() *protocol.Controller {
	return c.ctrl
}

// Start connects and performs the handshake.
func (c *Client) Start(ctx context.Context) error {
	return c.ctrl.Start(ctx)
}

// Close terminates the connection.
func (c *Client) Close() error {
	return c.ctrl.Close()
}

// Done is closed when the connection shuts down.
func (c *Client) Done() <-chan struct{} {
	return c.ctrl.Done()
}

// OnNotification registers a notification listener.
func (c *Client) OnNotification(fn protocol.NotificationListener) func() {
	return c.ctrl.OnNotification(fn)
}

// OnServerRequest registers a server-request listener.
func (c *Client) OnServerRequest(fn protocol.RequestListener) func() {
	return c.ctrl.OnServerRequest(fn)
}

// Request sends an arbitrary method, for methods without a typed wrapper.
func (c *Client) Request(ctx context.Context, method string, params, out any) error {
	return c.ctrl.Request(ctx, method, params, out)
}

func call[T any](ctx context.Context, c *Client, method string, params any) (*T, error) {
	var out T
	if err := c.ctrl.Request(ctx, method, params, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// orEmpty sends {} for a nil params pointer.
func orEmpty[T any](p *T) *T {
	if p == nil {
		return new(T)
	}

	return p
}

// ThreadStart starts a new thread.
func (c *Client) ThreadStart(ctx context.Context, params *ThreadStartParams) (*ThreadResponse, error) {
	return call[ThreadResponse](ctx, c, MethodThreadStart, orEmpty(params))
}

// ThreadResume loads a stored thread so turns can continue it.
func (c *Client) ThreadResume(ctx context.Context, params *ThreadResumeParams) (*ThreadResponse, error) {
	return call[ThreadResponse](ctx, c, MethodThreadResume, orEmpty(params))
}

// ThreadFork copies a stored thread into a new one.
func (c *Client) ThreadFork(ctx context.Context, params *ThreadForkParams) (*ThreadResponse, error) {
	return call[ThreadResponse](ctx, c, MethodThreadFork, orEmpty(params))
}

// ThreadRead returns a stored thread, optionally with its turns.
func (c *Client) ThreadRead(ctx context.Context, params *ThreadReadParams) (*ThreadReadResponse, error) {
	return call[ThreadReadResponse](ctx, c, MethodThreadRead, orEmpty(params))
}

// ThreadList pages through stored threads.
func (c *Client) ThreadList(ctx context.Context, params *ThreadListParams) (*ThreadListResponse, error) {
	return call[ThreadListResponse](ctx, c, MethodThreadList, orEmpty(params))
}

// ThreadLoadedList lists the ids of threads loaded in memory.
func (c *Client) ThreadLoadedList(ctx context.Context, params *ThreadLoadedListParams) (*ThreadLoadedListResponse, error) {
	return call[ThreadLoadedListResponse](ctx, c, MethodThreadLoadedList, orEmpty(params))
}

// ThreadArchive archives a thread.
func (c *Client) ThreadArchive(ctx context.Context, threadID string) error {
	return c.ctrl.Request(ctx, MethodThreadArchive, ThreadArchiveParams{ThreadID: threadID}, nil)
}

// ThreadRollback drops the last NumTurns turns of a thread.
func (c *Client) ThreadRollback(ctx context.Context, params *ThreadRollbackParams) (*ThreadReadResponse, error) {
	return call[ThreadReadResponse](ctx, c, MethodThreadRollback, orEmpty(params))
}

// TurnStart starts a turn. Progress arrives as notifications.
func (c *Client) TurnStart(ctx context.Context, params *TurnStartParams) (*TurnResponse, error) {
	return call[TurnResponse](ctx, c, MethodTurnStart, orEmpty(params))
}

// TurnInterrupt asks the app-server to stop a running turn.
func (c *Client) TurnInterrupt(ctx context.Context, threadID, turnID string) error {
	return c.ctrl.Request(ctx, MethodTurnInterrupt, TurnInterruptParams{ThreadID: threadID, TurnID: turnID}, nil)
}

// ReviewStart starts a review turn.
func (c *Client) ReviewStart(ctx context.Context, params *ReviewStartParams) (*ReviewStartResponse, error) {
	return call[ReviewStartResponse](ctx, c, MethodReviewStart, orEmpty(params))
}

// ModelList pages through available models.
func (c *Client) ModelList(ctx context.Context, params *ListParams) (*ModelListResponse, error) {
	return call[ModelListResponse](ctx, c, MethodModelList, orEmpty(params))
}

// CollaborationModeList lists collaboration mode presets.
func (c *Client) CollaborationModeList(ctx context.Context) (*CollaborationModeListResponse, error) {
	return call[CollaborationModeListResponse](ctx, c, MethodCollaborationModeList, struct{}{})
}

// SkillsList lists skills visible from the given working directories.
func (c *Client) SkillsList(ctx context.Context, params *SkillsListParams) (*SkillsListResponse, error) {
	return call[SkillsListResponse](ctx, c, MethodSkillsList, orEmpty(params))
}

// SkillsConfigWrite enables or disables a skill.
func (c *Client) SkillsConfigWrite(ctx context.Context, params *SkillsConfigWriteParams) (*SkillsConfigWriteResponse, error) {
	return call[SkillsConfigWriteResponse](ctx, c, MethodSkillsConfigWrite, orEmpty(params))
}

// ConfigRead returns the effective codex configuration.
func (c *Client) ConfigRead(ctx context.Context, params *ConfigReadParams) (*ConfigReadResponse, error) {
	return call[ConfigReadResponse](ctx, c, MethodConfigRead, orEmpty(params))
}

// ConfigValueWrite writes one configuration key.
func (c *Client) ConfigValueWrite(ctx context.Context, params *ConfigValueWriteParams) (*ConfigWriteResponse, error) {
	return call[ConfigWriteResponse](ctx, c, MethodConfigValueWrite, orEmpty(params))
}

// ConfigBatchWrite writes several configuration keys atomically.
func (c *Client) ConfigBatchWrite(ctx context.Context, params *ConfigBatchWriteParams) (*ConfigWriteResponse, error) {
	return call[ConfigWriteResponse](ctx, c, MethodConfigBatchWrite, orEmpty(params))
}

// ConfigRequirementsRead returns administrator configuration requirements.
func (c *Client) ConfigRequirementsRead(ctx context.Context) (*ConfigRequirementsReadResponse, error) {
	return call[ConfigRequirementsReadResponse](ctx, c, MethodConfigRequirementsRead, nil)
}

// AccountRead returns the authenticated account.
func (c *Client) AccountRead(ctx context.Context, params *AccountReadParams) (*AccountReadResponse, error) {
	return call[AccountReadResponse](ctx, c, MethodAccountRead, orEmpty(params))
}

// AccountRateLimitsRead returns the account's current rate limits.
func (c *Client) AccountRateLimitsRead(ctx context.Context) (*RateLimitsResponse, error) {
	return call[RateLimitsResponse](ctx, c, MethodAccountRateLimitsRead, nil)
}

// AccountLoginStart begins an API key or ChatGPT login.
func (c *Client) AccountLoginStart(ctx context.Context, params *LoginParams) (*LoginResponse, error) {
	return call[LoginResponse](ctx, c, MethodAccountLoginStart, orEmpty(params))
}

// AccountLoginCancel cancels a pending login.
func (c *Client) AccountLoginCancel(ctx context.Context, loginID string) (*LoginCancelResponse, error) {
	return call[LoginCancelResponse](ctx, c, MethodAccountLoginCancel, LoginCancelParams{LoginID: loginID})
}

// AccountLogout signs out.
func (c *Client) AccountLogout(ctx context.Context) error {
	return c.ctrl.Request(ctx, MethodAccountLogout, nil, nil)
}

// FeedbackUpload submits feedback, optionally with logs.
func (c *Client) FeedbackUpload(ctx context.Context, params *FeedbackUploadParams) (*FeedbackUploadResponse, error) {
	return call[FeedbackUploadResponse](ctx, c, MethodFeedbackUpload, orEmpty(params))
}

// MCPServerOAuthLogin starts an OAuth login for a configured MCP server.
// Completion arrives as an mcpServer/oauthLogin/completed notification.
func (c *Client) MCPServerOAuthLogin(ctx context.Context, params *MCPOAuthLoginParams) (*MCPOAuthLoginResponse, error) {
	return call[MCPOAuthLoginResponse](ctx, c, MethodMCPServerOAuthLogin, orEmpty(params))
}

// MCPServerConfigReload reloads MCP server configuration from disk.
func (c *Client) MCPServerConfigReload(ctx context.Context) error {
	return c.ctrl.Request(ctx, MethodMCPServerConfigReload, nil, nil)
}

// MCPServerStatusList pages through MCP servers and the tools they expose.
func (c *Client) MCPServerStatusList(ctx context.Context, params *ListParams) (*MCPServerStatusListResponse, error) {
	return call[MCPServerStatusListResponse](ctx, c, MethodMCPServerStatusList, orEmpty(params))
}

// CommandExec runs one command under the server's sandbox, outside any thread.
func (c *Client) CommandExec(ctx context.Context, params *CommandExecParams) (*CommandExecResponse, error) {
	return call[CommandExecResponse](ctx, c, MethodCommandExec, orEmpty(params))
}

// RespondCommandExecutionApproval answers item/commandExecution/requestApproval.
func (c *Client) RespondCommandExecutionApproval(ctx context.Context, id jsonrpc.RequestID, decision ApprovalDecision) error {
	return c.ctrl.SendResponse(ctx, id, ApprovalResponse{Decision: decision})
}

// RespondFileChangeApproval answers item/fileChange/requestApproval.
func (c *Client) RespondFileChangeApproval(ctx context.Context, id jsonrpc.RequestID, decision ApprovalDecision) error {
	return c.ctrl.SendResponse(ctx, id, ApprovalResponse{Decision: decision})
}

// RespondUserInput answers item/tool/requestUserInput. answers is keyed by
// question id; nil sends an empty map.
func (c *Client) RespondUserInput(ctx context.Context, id jsonrpc.RequestID, answers map[string]UserInputAnswer) error {
	if answers == nil {
		answers = map[string]UserInputAnswer{}
	}

	return c.ctrl.SendResponse(ctx, id, UserInputResponse{Answers: answers})
}

// RespondApplyPatchApproval answers the legacy applyPatchApproval request.
func (c *Client) RespondApplyPatchApproval(ctx context.Context, id jsonrpc.RequestID, decision ReviewDecision) error {
	return c.ctrl.SendResponse(ctx, id, ReviewResponse{Decision: decision})
}

// RespondExecCommandApproval answers the legacy execCommandApproval request.
func (c *Client) RespondExecCommandApproval(ctx context.Context, id jsonrpc.RequestID, decision ReviewDecision) error {
	return c.ctrl.SendResponse(ctx, id, ReviewResponse{Decision: decision})
}

// Answer resolves req through handler and sends exactly one reply. A nil
// handler, or a nil result from it, sends DefaultResult. A handler error, or
// a method with no default, is answered with a JSON-RPC error.
func (c *Client) Answer(ctx context.Context, req *ServerRequest, handler ServerRequestHandler) error {
	var (
		result any
		err    error
	)

	if handler != nil {
		result, err = handler.HandleServerRequest(ctx, req)
	}

	if err != nil {
		c.log.Debug("Server request handler failed", "method", req.Method, "error", err)

		return c.ctrl.SendError(ctx, req.ID, jsonrpc.ErrorObject{
			Code:    jsonrpc.CodeInternalError,
			Message: err.Error(),
		})
	}

	if result == nil {
		def, ok := DefaultResult(req.Method)
		if !ok {
			c.log.Warn("Unsupported server request", "method", req.Method)

			return c.ctrl.SendError(ctx, req.ID, jsonrpc.ErrorObject{
				Code:    jsonrpc.CodeMethodNotFound,
				Message: "unsupported server request: " + req.Method,
			})
		}

		result = def
	}

	return c.ctrl.SendResponse(ctx, req.ID, result)
}
