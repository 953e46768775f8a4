// Package events defines the normalized events emitted while a codex run
// progresses.
//
// Event is a closed set: every implementation lives in this package and
// consumers switch on the concrete type.
//
//	switch ev := ev.(type) {
//	case events.MessageDelta:
//		fmt.Print(ev.TextDelta)
//	case events.ApprovalRequested:
//		log.Printf("approval requested: %s", ev.Kind)
//	}
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/BjornMelin/codex-sdk-agents/internal/appserver"
	"github.com/BjornMelin/codex-sdk-agents/internal/jsonrpc"
)

// BackendAppServer names the app-server backend in event metadata.
const BackendAppServer = "app-server"

// Type is the stable name of an event kind.
type Type string

const (
	TypeThreadStarted            Type = "codex.thread.started"
	TypeTurnStarted              Type = "codex.turn.started"
	TypeTurnCompleted            Type = "codex.turn.completed"
	TypeTurnFailed               Type = "codex.turn.failed"
	TypeMessageDelta             Type = "codex.message.delta"
	TypeMessageCompleted         Type = "codex.message.completed"
	TypeToolStarted              Type = "codex.tool.started"
	TypeToolCompleted            Type = "codex.tool.completed"
	TypeMCPToolCallProgress      Type = "codex.mcp.toolcall.progress"
	TypeFileChanged              Type = "codex.file.changed"
	TypeCommandExecuted          Type = "codex.command.executed"
	TypeCommandOutputDelta       Type = "codex.command.output.delta"
	TypeFileChangeOutputDelta    Type = "codex.fileChange.output.delta"
	TypeReasoningSummaryDelta    Type = "codex.reasoning.summary.delta"
	TypeReasoningTextDelta       Type = "codex.reasoning.text.delta"
	TypeDiffUpdated              Type = "codex.turn.diff.updated"
	TypePlanUpdated              Type = "codex.turn.plan.updated"
	TypeTokenUsageUpdated        Type = "codex.thread.tokenUsage.updated"
	TypeThreadCompacted          Type = "codex.thread.compacted"
	TypeItemStarted              Type = "codex.item.started"
	TypeItemCompleted            Type = "codex.item.completed"
	TypeRawResponseItemCompleted Type = "codex.raw.response.item.completed"
	TypeApprovalRequested        Type = "codex.approval.requested"
	TypeUserInputRequested       Type = "codex.user_input.requested"
	TypeCollabToolCallUpdated    Type = "codex.collab.toolcall.updated"
	TypeAccountUpdated           Type = "codex.account.updated"
	TypeAccountRateLimitsUpdated Type = "codex.account.rateLimits.updated"
	TypeAccountLoginCompleted    Type = "codex.account.login.completed"
	TypeMCPOAuthCompleted        Type = "codex.mcp.oauth.completed"
	TypeConfigWarning            Type = "codex.config.warning"
	TypeDeprecationNotice        Type = "codex.deprecation.notice"
	TypeWorldWritableWarning     Type = "codex.windows.worldWritableWarning"
	TypeCommandStdin             Type = "codex.command.stdin"
	TypeNotification             Type = "codex.notification"
	TypeError                    Type = "codex.error"
)

// Event is one normalized event. Values are immutable once emitted.
type Event interface {
	// Type returns the event kind.
	Type() Type
	// Metadata returns the fields shared by every event.
	Metadata() Meta

	event()
}

// Handler receives events in emission order.
type Handler func(ctx context.Context, ev Event)

// Meta holds the fields shared by every event.
type Meta struct {
	Backend   string    `json:"backend"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMeta stamps backend with the current time.
func NewMeta(backend string) Meta {
	return Meta{Backend: backend, Timestamp: time.Now()}
}

// Metadata implements Event.
func (m Meta) Metadata() Meta { return m }

// Usage is the token usage of the last turn.
type Usage struct {
	InputTokens       int64 `json:"inputTokens"`
	OutputTokens      int64 `json:"outputTokens"`
	CachedInputTokens int64 `json:"cachedInputTokens"`
}

// UsageFrom converts the last-turn breakdown of a thread usage report.
func UsageFrom(u *appserver.ThreadTokenUsage) *Usage {
	if u == nil {
		return nil
	}

	return &Usage{
		InputTokens:       u.Last.InputTokens,
		OutputTokens:      u.Last.OutputTokens,
		CachedInputTokens: u.Last.CachedInputTokens,
	}
}

// ThreadStarted is emitted when a thread is created or resumed.
type ThreadStarted struct {
	Meta
	ThreadID string `json:"threadId"`
}

// TurnStarted is emitted when a turn begins.
type TurnStarted struct {
	Meta
	ThreadID string `json:"threadId,omitempty"`
	TurnID   string `json:"turnId,omitempty"`
}

// TurnCompleted is emitted when a turn ends without failing.
type TurnCompleted struct {
	Meta
	ThreadID string `json:"threadId,omitempty"`
	TurnID   string `json:"turnId,omitempty"`
	Usage    *Usage `json:"usage,omitempty"`
}

// TurnFailed is emitted when a turn fails.
type TurnFailed struct {
	Meta
	ThreadID string          `json:"threadId,omitempty"`
	TurnID   string          `json:"turnId,omitempty"`
	Message  string          `json:"message"`
	Details  json.RawMessage `json:"details,omitempty"`
}

// MessageDelta is an incremental piece of an agent message.
type MessageDelta struct {
	Meta
	ThreadID  string `json:"threadId,omitempty"`
	TurnID    string `json:"turnId,omitempty"`
	ItemID    string `json:"itemId,omitempty"`
	TextDelta string `json:"textDelta"`
}

// MessageCompleted carries the final text of an agent message. It is
// emitted at most once per item and never with empty text.
type MessageCompleted struct {
	Meta
	ThreadID string `json:"threadId,omitempty"`
	TurnID   string `json:"turnId,omitempty"`
	ItemID   string `json:"itemId,omitempty"`
	Text     string `json:"text"`
}

// ToolStarted is emitted when a command, file change, MCP tool or
// collaboration tool call starts.
type ToolStarted struct {
	Meta
	ThreadID string          `json:"threadId,omitempty"`
	TurnID   string          `json:"turnId,omitempty"`
	ToolType string          `json:"toolType"`
	ToolName string          `json:"toolName,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// ToolCompleted is emitted when a tool call ends.
type ToolCompleted struct {
	Meta
	ThreadID   string          `json:"threadId,omitempty"`
	TurnID     string          `json:"turnId,omitempty"`
	ToolType   string          `json:"toolType"`
	ToolName   string          `json:"toolName,omitempty"`
	DurationMs *int64          `json:"durationMs,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
}

// MCPToolCallProgress reports MCP tool progress.
type MCPToolCallProgress struct {
	Meta
	ThreadID string `json:"threadId,omitempty"`
	TurnID   string `json:"turnId,omitempty"`
	ItemID   string `json:"itemId"`
	Message  string `json:"message"`
}

// FileChangeKind classifies a file change.
type FileChangeKind string

const (
	FileAdded    FileChangeKind = "added"
	FileModified FileChangeKind = "modified"
	FileDeleted  FileChangeKind = "deleted"
	FileRenamed  FileChangeKind = "renamed"
	FileUnknown  FileChangeKind = "unknown"
)

// ClassifyChange maps a patch change kind to a FileChangeKind and, for
// renames, the destination path.
func ClassifyChange(k appserver.PatchChangeKind) (FileChangeKind, string) {
	switch k.Type {
	case "add":
		return FileAdded, ""
	case "delete":
		return FileDeleted, ""
	case "update":
		if k.MovePath != nil && *k.MovePath != "" {
			return FileRenamed, *k.MovePath
		}

		return FileModified, ""
	default:
		return FileUnknown, ""
	}
}

// FileChanged reports one changed file.
type FileChanged struct {
	Meta
	ThreadID string         `json:"threadId,omitempty"`
	TurnID   string         `json:"turnId,omitempty"`
	Path     string         `json:"path"`
	Kind     FileChangeKind `json:"kind"`
	MovePath string         `json:"movePath,omitempty"`
	Summary  string         `json:"summary,omitempty"`
}

// CommandExecuted reports a finished shell command.
type CommandExecuted struct {
	Meta
	ThreadID             string          `json:"threadId,omitempty"`
	TurnID               string          `json:"turnId,omitempty"`
	Command              string          `json:"command"`
	Cwd                  string          `json:"cwd,omitempty"`
	CommandActions       json.RawMessage `json:"commandActions,omitempty"`
	ProcessID            string          `json:"processId,omitempty"`
	ExitCode             *int            `json:"exitCode,omitempty"`
	AggregatedOutputTail string          `json:"aggregatedOutputTail,omitempty"`
	DurationMs           *int64          `json:"durationMs,omitempty"`
}

// CommandOutputDelta streams command output.
type CommandOutputDelta struct {
	Meta
	ThreadID string `json:"threadId,omitempty"`
	TurnID   string `json:"turnId,omitempty"`
	ItemID   string `json:"itemId,omitempty"`
	Delta    string `json:"delta"`
}

// FileChangeOutputDelta streams file-change tool output.
type FileChangeOutputDelta struct {
	Meta
	ThreadID string `json:"threadId,omitempty"`
	TurnID   string `json:"turnId,omitempty"`
	ItemID   string `json:"itemId,omitempty"`
	Delta    string `json:"delta"`
}

// ReasoningSummaryDelta streams a reasoning summary. An empty Delta marks the
// start of a new summary part.
type ReasoningSummaryDelta struct {
	Meta
	ThreadID     string `json:"threadId,omitempty"`
	TurnID       string `json:"turnId,omitempty"`
	ItemID       string `json:"itemId,omitempty"`
	Delta        string `json:"delta"`
	SummaryIndex *int   `json:"summaryIndex,omitempty"`
}

// ReasoningTextDelta streams raw reasoning content.
type ReasoningTextDelta struct {
	Meta
	ThreadID     string `json:"threadId,omitempty"`
	TurnID       string `json:"turnId,omitempty"`
	ItemID       string `json:"itemId,omitempty"`
	Delta        string `json:"delta"`
	ContentIndex *int   `json:"contentIndex,omitempty"`
}

// DiffUpdated carries the turn's aggregated diff.
type DiffUpdated struct {
	Meta
	ThreadID string `json:"threadId,omitempty"`
	TurnID   string `json:"turnId,omitempty"`
	Diff     string `json:"diff"`
}

// PlanUpdated carries the agent's plan.
type PlanUpdated struct {
	Meta
	ThreadID    string               `json:"threadId,omitempty"`
	TurnID      string               `json:"turnId,omitempty"`
	Explanation string               `json:"explanation,omitempty"`
	Plan        []appserver.PlanStep `json:"plan"`
}

// TokenUsageUpdated reports thread token usage.
type TokenUsageUpdated struct {
	Meta
	ThreadID string                     `json:"threadId,omitempty"`
	TurnID   string                     `json:"turnId,omitempty"`
	Usage    appserver.ThreadTokenUsage `json:"usage"`
}

// ThreadCompacted reports a context compaction.
type ThreadCompacted struct {
	Meta
	ThreadID string `json:"threadId"`
	TurnID   string `json:"turnId"`
}

// ItemStarted forwards item/started with the raw item.
type ItemStarted struct {
	Meta
	ThreadID string          `json:"threadId,omitempty"`
	TurnID   string          `json:"turnId,omitempty"`
	Item     json.RawMessage `json:"item"`
}

// ItemCompleted forwards item/completed with the raw item.
type ItemCompleted struct {
	Meta
	ThreadID string          `json:"threadId,omitempty"`
	TurnID   string          `json:"turnId,omitempty"`
	Item     json.RawMessage `json:"item"`
}

// RawResponseItemCompleted forwards a raw model response item.
type RawResponseItemCompleted struct {
	Meta
	ThreadID string          `json:"threadId"`
	TurnID   string          `json:"turnId"`
	Item     json.RawMessage `json:"item"`
}

// ApprovalKind names what an approval request is for.
type ApprovalKind string

const (
	ApprovalCommand     ApprovalKind = "command"
	ApprovalFileChange  ApprovalKind = "fileChange"
	ApprovalApplyPatch  ApprovalKind = "applyPatch"
	ApprovalExecCommand ApprovalKind = "execCommand"
)

// ApprovalKindFor returns the approval kind of a server request method.
func ApprovalKindFor(method string) (ApprovalKind, bool) {
	switch method {
	case appserver.RequestCommandExecutionApproval:
		return ApprovalCommand, true
	case appserver.RequestFileChangeApproval:
		return ApprovalFileChange, true
	case appserver.RequestApplyPatchApproval:
		return ApprovalApplyPatch, true
	case appserver.RequestExecCommandApproval:
		return ApprovalExecCommand, true
	default:
		return "", false
	}
}

// ApprovalRequested reports an approval request. The answer is sent by the
// backend's server request handler, not by event consumers.
type ApprovalRequested struct {
	Meta
	RequestID jsonrpc.RequestID `json:"requestId"`
	Kind      ApprovalKind      `json:"kind"`
	Params    json.RawMessage   `json:"params"`
}

// UserInputRequested reports a tool asking the user questions.
type UserInputRequested struct {
	Meta
	RequestID jsonrpc.RequestID         `json:"requestId"`
	Params    appserver.UserInputParams `json:"params"`
}

// CollabToolCallUpdated reports a collaboration agent tool call.
type CollabToolCallUpdated struct {
	Meta
	ThreadID          string                     `json:"threadId,omitempty"`
	TurnID            string                     `json:"turnId,omitempty"`
	ItemID            string                     `json:"itemId"`
	Tool              string                     `json:"tool"`
	Status            string                     `json:"status"`
	SenderThreadID    string                     `json:"senderThreadId"`
	ReceiverThreadIDs []string                   `json:"receiverThreadIds"`
	Prompt            *string                    `json:"prompt,omitempty"`
	AgentsStates      map[string]json.RawMessage `json:"agentsStates,omitempty"`
}

// AccountUpdated reports a change of auth mode. AuthMode is nil when
// signed out.
type AccountUpdated struct {
	Meta
	AuthMode *string `json:"authMode"`
}

// AccountRateLimitsUpdated carries a rate limit snapshot.
type AccountRateLimitsUpdated struct {
	Meta
	RateLimits json.RawMessage `json:"rateLimits"`
}

// AccountLoginCompleted ends a login flow.
type AccountLoginCompleted struct {
	Meta
	LoginID *string `json:"loginId"`
	Success bool    `json:"success"`
	Error   *string `json:"error"`
}

// MCPOAuthCompleted ends an MCP OAuth login.
type MCPOAuthCompleted struct {
	Meta
	Name    string `json:"name"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ConfigWarning reports a configuration problem.
type ConfigWarning struct {
	Meta
	Summary string  `json:"summary"`
	Details *string `json:"details,omitempty"`
}

// DeprecationNotice reports deprecated usage.
type DeprecationNotice struct {
	Meta
	Summary string  `json:"summary"`
	Details *string `json:"details,omitempty"`
}

// WorldWritableWarning reports world-writable directories on Windows.
type WorldWritableWarning struct {
	Meta
	SamplePaths []string `json:"samplePaths"`
	ExtraCount  int      `json:"extraCount"`
	FailedScan  bool     `json:"failedScan"`
}

// CommandStdin reports input written to an interactive command.
type CommandStdin struct {
	Meta
	ThreadID  string `json:"threadId"`
	TurnID    string `json:"turnId"`
	ItemID    string `json:"itemId"`
	ProcessID string `json:"processId"`
	Stdin     string `json:"stdin"`
}

// Notification forwards a notification with no dedicated event.
type Notification struct {
	Meta
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Error reports a runtime error raised by the app-server.
type Error struct {
	Meta
	Message string          `json:"message"`
	Details json.RawMessage `json:"details,omitempty"`
}

func (ThreadStarted) Type() Type            { return TypeThreadStarted }
func (TurnStarted) Type() Type              { return TypeTurnStarted }
func (TurnCompleted) Type() Type            { return TypeTurnCompleted }
func (TurnFailed) Type() Type               { return TypeTurnFailed }
func (MessageDelta) Type() Type             { return TypeMessageDelta }
func (MessageCompleted) Type() Type         { return TypeMessageCompleted }
func (ToolStarted) Type() Type              { return TypeToolStarted }
func (ToolCompleted) Type() Type            { return TypeToolCompleted }
func (MCPToolCallProgress) Type() Type      { return TypeMCPToolCallProgress }
func (FileChanged) Type() Type              { return TypeFileChanged }
func (CommandExecuted) Type() Type          { return TypeCommandExecuted }
func (CommandOutputDelta) Type() Type       { return TypeCommandOutputDelta }
func (FileChangeOutputDelta) Type() Type    { return TypeFileChangeOutputDelta }
func (ReasoningSummaryDelta) Type() Type    { return TypeReasoningSummaryDelta }
func (ReasoningTextDelta) Type() Type       { return TypeReasoningTextDelta }
func (DiffUpdated) Type() Type              { return TypeDiffUpdated }
func (PlanUpdated) Type() Type              { return TypePlanUpdated }
func (TokenUsageUpdated) Type() Type        { return TypeTokenUsageUpdated }
func (ThreadCompacted) Type() Type          { return TypeThreadCompacted }
func (ItemStarted) Type() Type              { return TypeItemStarted }
func (ItemCompleted) Type() Type            { return TypeItemCompleted }
func (RawResponseItemCompleted) Type() Type { return TypeRawResponseItemCompleted }
func (ApprovalRequested) Type() Type        { return TypeApprovalRequested }
func (UserInputRequested) Type() Type       { return TypeUserInputRequested }
func (CollabToolCallUpdated) Type() Type    { return TypeCollabToolCallUpdated }
func (AccountUpdated) Type() Type           { return TypeAccountUpdated }
func (AccountRateLimitsUpdated) Type() Type { return TypeAccountRateLimitsUpdated }
func (AccountLoginCompleted) Type() Type    { return TypeAccountLoginCompleted }
func (MCPOAuthCompleted) Type() Type        { return TypeMCPOAuthCompleted }
func (ConfigWarning) Type() Type            { return TypeConfigWarning }
func (DeprecationNotice) Type() Type        { return TypeDeprecationNotice }
func (WorldWritableWarning) Type() Type     { return TypeWorldWritableWarning }
func (CommandStdin) Type() Type             { return TypeCommandStdin }
func (Notification) Type() Type             { return TypeNotification }
func (Error) Type() Type                    { return TypeError }

func (ThreadStarted) event()            {}
func (TurnStarted) event()              {}
func (TurnCompleted) event()            {}
func (TurnFailed) event()               {}
func (MessageDelta) event()             {}
func (MessageCompleted) event()         {}
func (ToolStarted) event()              {}
func (ToolCompleted) event()            {}
func (MCPToolCallProgress) event()      {}
func (FileChanged) event()              {}
func (CommandExecuted) event()          {}
func (CommandOutputDelta) event()       {}
func (FileChangeOutputDelta) event()    {}
func (ReasoningSummaryDelta) event()    {}
func (ReasoningTextDelta) event()       {}
func (DiffUpdated) event()              {}
func (PlanUpdated) event()              {}
func (TokenUsageUpdated) event()        {}
func (ThreadCompacted) event()          {}
func (ItemStarted) event()              {}
func (ItemCompleted) event()            {}
func (RawResponseItemCompleted) event() {}
func (ApprovalRequested) event()        {}
func (UserInputRequested) event()       {}
func (CollabToolCallUpdated) event()    {}
func (AccountUpdated) event()           {}
func (AccountRateLimitsUpdated) event() {}
func (AccountLoginCompleted) event()    {}
func (MCPOAuthCompleted) event()        {}
func (ConfigWarning) event()            {}
func (DeprecationNotice) event()        {}
func (WorldWritableWarning) event()     {}
func (CommandStdin) event()             {}
func (Notification) event()             {}
func (Error) event()                    {}

// Marshal encodes ev as a JSON object with a leading "type" member.
func Marshal(ev Event) ([]byte, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", ev.Type(), err)
	}

	typ, err := json.Marshal(ev.Type())
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(body)+len(typ)+9)
	out = append(out, `{"type":`...)
	out = append(out, typ...)

	if len(body) > 2 {
		out = append(out, ',')
		out = append(out, body[1:]...)
	} else {
		out = append(out, '}')
	}

	return out, nil
}
