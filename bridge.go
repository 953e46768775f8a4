package codexsdk

import (
	"context"

	"github.com/BjornMelin/codex-sdk-agents/internal/appserver"
	"github.com/BjornMelin/codex-sdk-agents/internal/backend"
	internalmcp "github.com/BjornMelin/codex-sdk-agents/internal/mcp"
)

// Bridge is the full typed method surface of one app-server connection:
// threads, turns, reviews, models, skills, config, account, MCP status and
// command execution, plus the server request responders.
//
// Unlike Backend, a Bridge does not track threads or map events; callers
// subscribe with OnNotification and OnServerRequest themselves.
//
//	bridge, err := codexsdk.NewBridge(ctx, codexsdk.WithCwd(dir))
//	if err != nil {
//	    return err
//	}
//	defer bridge.Close()
//
//	threads, err := bridge.ThreadList(ctx, &codexsdk.ThreadListParams{})
type Bridge struct {
	*appserver.Client
}

// NewBridge connects to an app-server and completes the handshake.
// Backend options select the transport; the run options Cwd, Env and
// codex path configure the spawned process.
func NewBridge(ctx context.Context, opts ...Option) (*Bridge, error) {
	options := applyOptions(opts)

	codexPath := options.Run.CodexPath
	if codexPath == "" {
		codexPath = options.Backend.CodexPath
	}

	client, err := backend.Dial(ctx, &options.Backend, TransportSettings{
		CodexPath: codexPath,
		Cwd:       options.Run.Cwd,
		Env:       options.Run.Env,
		Logger:    options.Backend.Logger,
		Stderr:    options.Backend.Stderr,
	})
	if err != nil {
		return nil, err
	}

	return &Bridge{Client: client}, nil
}

// Typed request and response shapes of the Bridge methods.
type (
	Thread                        = appserver.Thread
	Turn                          = appserver.Turn
	TurnError                     = appserver.TurnError
	TurnStatus                    = appserver.TurnStatus
	ThreadStartParams             = appserver.ThreadStartParams
	ThreadResumeParams            = appserver.ThreadResumeParams
	ThreadForkParams              = appserver.ThreadForkParams
	ThreadResponse                = appserver.ThreadResponse
	ThreadReadParams              = appserver.ThreadReadParams
	ThreadReadResponse            = appserver.ThreadReadResponse
	ThreadListParams              = appserver.ThreadListParams
	ThreadListResponse            = appserver.ThreadListResponse
	ThreadLoadedListParams        = appserver.ThreadLoadedListParams
	ThreadLoadedListResponse      = appserver.ThreadLoadedListResponse
	ThreadRollbackParams          = appserver.ThreadRollbackParams
	TurnStartParams               = appserver.TurnStartParams
	TurnResponse                  = appserver.TurnResponse
	ReviewTarget                  = appserver.ReviewTarget
	ReviewStartParams             = appserver.ReviewStartParams
	ReviewStartResponse           = appserver.ReviewStartResponse
	ListParams                    = appserver.ListParams
	AppServerModel                = appserver.Model
	ModelListResponse             = appserver.ModelListResponse
	CollaborationModeListResponse = appserver.CollaborationModeListResponse
	SkillsListParams              = appserver.SkillsListParams
	SkillsListResponse            = appserver.SkillsListResponse
	SkillsConfigWriteParams       = appserver.SkillsConfigWriteParams
	ConfigReadParams              = appserver.ConfigReadParams
	ConfigReadResponse            = appserver.ConfigReadResponse
	ConfigValueWriteParams        = appserver.ConfigValueWriteParams
	ConfigBatchWriteParams        = appserver.ConfigBatchWriteParams
	ConfigWriteResponse           = appserver.ConfigWriteResponse
	AccountReadParams             = appserver.AccountReadParams
	AccountReadResponse           = appserver.AccountReadResponse
	RateLimitsResponse            = appserver.RateLimitsResponse
	LoginParams                   = appserver.LoginParams
	LoginResponse                 = appserver.LoginResponse
	FeedbackUploadParams          = appserver.FeedbackUploadParams
	MCPOAuthLoginParams           = appserver.MCPOAuthLoginParams
	MCPServerStatusListResponse   = appserver.MCPServerStatusListResponse
	MCPServerStatus               = internalmcp.ServerStatus
	CommandExecParams             = appserver.CommandExecParams
	CommandExecResponse           = appserver.CommandExecResponse
)
