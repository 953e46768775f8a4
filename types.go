package codexsdk

import (
	"github.com/BjornMelin/codex-sdk-agents/internal/appserver"
	"github.com/BjornMelin/codex-sdk-agents/internal/config"
	"github.com/BjornMelin/codex-sdk-agents/internal/events"
	"github.com/BjornMelin/codex-sdk-agents/internal/mapper"
)

// ===== Enums =====

// ApprovalPolicy controls when codex asks before acting.
type ApprovalPolicy = config.ApprovalPolicy

// SandboxMode is the thread-level sandbox.
type SandboxMode = config.SandboxMode

// ReasoningEffort is the requested reasoning depth.
type ReasoningEffort = config.ReasoningEffort

// ReasoningSummary controls reasoning summaries.
type ReasoningSummary = config.ReasoningSummary

// ThreadMode selects whether runs share a thread.
type ThreadMode = config.ThreadMode

// MessageFallback selects how an end-of-turn response item completes the
// last agent message.
type MessageFallback = mapper.FallbackPolicy

const (
	ApprovalUntrusted = config.ApprovalUntrusted
	ApprovalOnFailure = config.ApprovalOnFailure
	ApprovalOnRequest = config.ApprovalOnRequest
	ApprovalNever     = config.ApprovalNever

	SandboxReadOnly         = config.SandboxReadOnly
	SandboxWorkspaceWrite   = config.SandboxWorkspaceWrite
	SandboxDangerFullAccess = config.SandboxDangerFullAccess

	EffortNone    = config.EffortNone
	EffortMinimal = config.EffortMinimal
	EffortLow     = config.EffortLow
	EffortMedium  = config.EffortMedium
	EffortHigh    = config.EffortHigh
	EffortXHigh   = config.EffortXHigh

	SummaryAuto     = config.SummaryAuto
	SummaryConcise  = config.SummaryConcise
	SummaryDetailed = config.SummaryDetailed
	SummaryNone     = config.SummaryNone

	// ThreadPersistent reuses one thread across runs.
	ThreadPersistent = config.ThreadPersistent
	// ThreadStateless starts a new thread for every run.
	ThreadStateless = config.ThreadStateless

	// FallbackPerItem completes the last message from its own deltas.
	FallbackPerItem = mapper.FallbackPerItem
	// FallbackLastMessage completes the last message with every
	// uncompleted message's text.
	FallbackLastMessage = mapper.FallbackLastMessage
)

// ===== Inputs =====

// UserInput is one turn input item.
type UserInput = appserver.UserInput

// SandboxPolicy is the turn-level sandbox policy.
type SandboxPolicy = appserver.SandboxPolicy

// SandboxPolicyType discriminates sandbox policies.
type SandboxPolicyType = appserver.SandboxPolicyType

const (
	SandboxPolicyReadOnly         = appserver.SandboxPolicyReadOnly
	SandboxPolicyWorkspaceWrite   = appserver.SandboxPolicyWorkspaceWrite
	SandboxPolicyDangerFullAccess = appserver.SandboxPolicyDangerFullAccess
	SandboxPolicyExternalSandbox  = appserver.SandboxPolicyExternalSandbox
)

// CollaborationMode is a collaboration preset for a turn.
type CollaborationMode = appserver.CollaborationMode

// ClientInfo identifies this client in the initialize handshake.
type ClientInfo = appserver.ClientInfo

// ===== Server requests =====

// ServerRequest is an approval or user-input request from codex.
type ServerRequest = appserver.ServerRequest

// ServerRequestHandler answers server requests. Returning (nil, nil)
// selects the conservative default answer.
type ServerRequestHandler = config.ServerRequestHandler

// ServerRequestHandlerFunc adapts a function to ServerRequestHandler.
type ServerRequestHandlerFunc = appserver.ServerRequestHandlerFunc

// ApprovalDecision answers command and file change approvals.
type ApprovalDecision = appserver.ApprovalDecision

// ReviewDecision answers legacy applyPatch and execCommand approvals.
type ReviewDecision = appserver.ReviewDecision

// Approval request params and answers.
type (
	CommandExecutionApprovalParams = appserver.CommandExecutionApprovalParams
	FileChangeApprovalParams       = appserver.FileChangeApprovalParams
	ApplyPatchApprovalParams       = appserver.ApplyPatchApprovalParams
	ExecCommandApprovalParams      = appserver.ExecCommandApprovalParams
	UserInputParams                = appserver.UserInputParams
	UserInputAnswer                = appserver.UserInputAnswer
	ApprovalResponse               = appserver.ApprovalResponse
	ReviewResponse                 = appserver.ReviewResponse
	UserInputResponse              = appserver.UserInputResponse
)

const (
	DecisionAccept           = appserver.DecisionAccept
	DecisionAcceptForSession = appserver.DecisionAcceptForSession
	DecisionDecline          = appserver.DecisionDecline
	DecisionCancel           = appserver.DecisionCancel

	ReviewApproved           = appserver.ReviewApproved
	ReviewApprovedForSession = appserver.ReviewApprovedForSession
	ReviewDenied             = appserver.ReviewDenied
	ReviewAbort              = appserver.ReviewAbort
)

// Server request methods.
const (
	RequestCommandExecutionApproval = appserver.RequestCommandExecutionApproval
	RequestFileChangeApproval       = appserver.RequestFileChangeApproval
	RequestToolUserInput            = appserver.RequestToolUserInput
	RequestApplyPatchApproval       = appserver.RequestApplyPatchApproval
	RequestExecCommandApproval      = appserver.RequestExecCommandApproval
)

// ===== Events =====

// Event is one normalized event emitted during a run.
type Event = events.Event

// EventType is the stable name of an event kind.
type EventType = events.Type

// EventHandler receives events in order. It must not block for long.
type EventHandler = events.Handler

// EventMeta is carried by every event.
type EventMeta = events.Meta

// Usage is token usage for a run.
type Usage = events.Usage

// Event kinds. Switch on the concrete type to read an event.
type (
	ThreadStartedEvent            = events.ThreadStarted
	TurnStartedEvent              = events.TurnStarted
	TurnCompletedEvent            = events.TurnCompleted
	TurnFailedEvent               = events.TurnFailed
	MessageDeltaEvent             = events.MessageDelta
	MessageCompletedEvent         = events.MessageCompleted
	ToolStartedEvent              = events.ToolStarted
	ToolCompletedEvent            = events.ToolCompleted
	MCPToolCallProgressEvent      = events.MCPToolCallProgress
	FileChangedEvent              = events.FileChanged
	CommandExecutedEvent          = events.CommandExecuted
	CommandOutputDeltaEvent       = events.CommandOutputDelta
	FileChangeOutputDeltaEvent    = events.FileChangeOutputDelta
	ReasoningSummaryDeltaEvent    = events.ReasoningSummaryDelta
	ReasoningTextDeltaEvent       = events.ReasoningTextDelta
	DiffUpdatedEvent              = events.DiffUpdated
	PlanUpdatedEvent              = events.PlanUpdated
	TokenUsageUpdatedEvent        = events.TokenUsageUpdated
	ThreadCompactedEvent          = events.ThreadCompacted
	ItemStartedEvent              = events.ItemStarted
	ItemCompletedEvent            = events.ItemCompleted
	RawResponseItemCompletedEvent = events.RawResponseItemCompleted
	ApprovalRequestedEvent        = events.ApprovalRequested
	UserInputRequestedEvent       = events.UserInputRequested
	CollabToolCallUpdatedEvent    = events.CollabToolCallUpdated
	AccountUpdatedEvent           = events.AccountUpdated
	AccountRateLimitsUpdatedEvent = events.AccountRateLimitsUpdated
	AccountLoginCompletedEvent    = events.AccountLoginCompleted
	MCPOAuthCompletedEvent        = events.MCPOAuthCompleted
	ConfigWarningEvent            = events.ConfigWarning
	DeprecationNoticeEvent        = events.DeprecationNotice
	WorldWritableWarningEvent     = events.WorldWritableWarning
	CommandStdinEvent             = events.CommandStdin
	NotificationEvent             = events.Notification
	ErrorEvent                    = events.Error
)

// Event kind names, as returned by Event.Type.
const (
	EventThreadStarted            = events.TypeThreadStarted
	EventTurnStarted              = events.TypeTurnStarted
	EventTurnCompleted            = events.TypeTurnCompleted
	EventTurnFailed               = events.TypeTurnFailed
	EventMessageDelta             = events.TypeMessageDelta
	EventMessageCompleted         = events.TypeMessageCompleted
	EventToolStarted              = events.TypeToolStarted
	EventToolCompleted            = events.TypeToolCompleted
	EventMCPToolCallProgress      = events.TypeMCPToolCallProgress
	EventFileChanged              = events.TypeFileChanged
	EventCommandExecuted          = events.TypeCommandExecuted
	EventCommandOutputDelta       = events.TypeCommandOutputDelta
	EventFileChangeOutputDelta    = events.TypeFileChangeOutputDelta
	EventReasoningSummaryDelta    = events.TypeReasoningSummaryDelta
	EventReasoningTextDelta       = events.TypeReasoningTextDelta
	EventDiffUpdated              = events.TypeDiffUpdated
	EventPlanUpdated              = events.TypePlanUpdated
	EventTokenUsageUpdated        = events.TypeTokenUsageUpdated
	EventThreadCompacted          = events.TypeThreadCompacted
	EventItemStarted              = events.TypeItemStarted
	EventItemCompleted            = events.TypeItemCompleted
	EventRawResponseItemCompleted = events.TypeRawResponseItemCompleted
	EventApprovalRequested        = events.TypeApprovalRequested
	EventUserInputRequested       = events.TypeUserInputRequested
	EventCollabToolCallUpdated    = events.TypeCollabToolCallUpdated
	EventAccountUpdated           = events.TypeAccountUpdated
	EventAccountRateLimitsUpdated = events.TypeAccountRateLimitsUpdated
	EventAccountLoginCompleted    = events.TypeAccountLoginCompleted
	EventMCPOAuthCompleted        = events.TypeMCPOAuthCompleted
	EventConfigWarning            = events.TypeConfigWarning
	EventDeprecationNotice        = events.TypeDeprecationNotice
	EventWorldWritableWarning     = events.TypeWorldWritableWarning
	EventCommandStdin             = events.TypeCommandStdin
	EventNotification             = events.TypeNotification
	EventError                    = events.TypeError
)

// ApprovalKind names what an approval request is for.
type ApprovalKind = events.ApprovalKind

// FileChangeKind classifies a file change.
type FileChangeKind = events.FileChangeKind

// MarshalEvent encodes an event as {"type": ..., ...fields}.
func MarshalEvent(ev Event) ([]byte, error) {
	return events.Marshal(ev)
}

// ===== Inputs helpers =====

// TextInput returns a plain text input item.
func TextInput(text string) UserInput {
	return appserver.TextInput(text)
}

// ImageInput returns a remote image input item.
func ImageInput(url string) UserInput {
	return appserver.ImageInput(url)
}

// LocalImageInput returns an input item referencing an image on disk.
func LocalImageInput(path string) UserInput {
	return appserver.LocalImageInput(path)
}

// SkillInput returns an input item invoking a skill.
func SkillInput(name, path string) UserInput {
	return appserver.SkillInput(name, path)
}
