package appserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/BjornMelin/codex-sdk-agents/internal/jsonrpc"
)

// ApprovalDecision answers the v2 command and file-change approval requests.
type ApprovalDecision string

const (
	DecisionAccept           ApprovalDecision = "accept"
	DecisionAcceptForSession ApprovalDecision = "acceptForSession"
	DecisionDecline          ApprovalDecision = "decline"
	DecisionCancel           ApprovalDecision = "cancel"
)

// ReviewDecision answers the legacy applyPatchApproval and
// execCommandApproval requests.
type ReviewDecision string

const (
	ReviewApproved           ReviewDecision = "approved"
	ReviewApprovedForSession ReviewDecision = "approved_for_session"
	ReviewDenied             ReviewDecision = "denied"
	ReviewAbort              ReviewDecision = "abort"
)

// ServerRequest is a request initiated by the app-server that expects
// exactly one answer.
type ServerRequest struct {
	ID     jsonrpc.RequestID
	Method string
	Params json.RawMessage
}

// NewServerRequest wraps a decoded request envelope.
func NewServerRequest(r *jsonrpc.Request) *ServerRequest {
	return &ServerRequest{ID: r.ID, Method: r.Method, Params: r.Params}
}

// Decode unmarshals the request params into v.
func (r *ServerRequest) Decode(v any) error {
	if len(r.Params) == 0 {
		return fmt.Errorf("%s: missing params", r.Method)
	}

	if err := json.Unmarshal(r.Params, v); err != nil {
		return fmt.Errorf("%s: decode params: %w", r.Method, err)
	}

	return nil
}

// ThreadID returns the threadId carried in the params, or "" when the
// request has none (the legacy approval methods use conversationId).
func (r *ServerRequest) ThreadID() string {
	var p struct {
		ThreadID string `json:"threadId"`
	}

	if len(r.Params) == 0 || json.Unmarshal(r.Params, &p) != nil {
		return ""
	}

	return p.ThreadID
}

// CommandExecutionApprovalParams are the params of
// item/commandExecution/requestApproval.
type CommandExecutionApprovalParams struct {
	ThreadID string  `json:"threadId"`
	TurnID   string  `json:"turnId"`
	ItemID   string  `json:"itemId"`
	Reason   *string `json:"reason,omitempty"`
	Command  *string `json:"command,omitempty"`
	Cwd      *string `json:"cwd,omitempty"`
}

// FileChangeApprovalParams are the params of item/fileChange/requestApproval.
type FileChangeApprovalParams struct {
	ThreadID  string  `json:"threadId"`
	TurnID    string  `json:"turnId"`
	ItemID    string  `json:"itemId"`
	Reason    *string `json:"reason,omitempty"`
	GrantRoot *string `json:"grantRoot,omitempty"`
}

// UserInputOption is one suggested answer to a question.
type UserInputOption struct {
	Label       string `json:"label"`
	Description string `json:"description"`
}

// UserInputQuestion is one question of item/tool/requestUserInput.
type UserInputQuestion struct {
	ID       string            `json:"id"`
	Header   string            `json:"header"`
	Question string            `json:"question"`
	Options  []UserInputOption `json:"options,omitempty"`
}

// UserInputParams are the params of item/tool/requestUserInput.
type UserInputParams struct {
	ThreadID  string              `json:"threadId"`
	TurnID    string              `json:"turnId"`
	ItemID    string              `json:"itemId"`
	Questions []UserInputQuestion `json:"questions"`
}

// UserInputAnswer holds the answers to one question.
type UserInputAnswer struct {
	Answers []string `json:"answers"`
}

// ApplyPatchApprovalParams are the params of applyPatchApproval.
type ApplyPatchApprovalParams struct {
	ConversationID string          `json:"conversationId"`
	CallID         string          `json:"callId"`
	FileChanges    json.RawMessage `json:"fileChanges,omitempty"`
	Reason         *string         `json:"reason,omitempty"`
	GrantRoot      *string         `json:"grantRoot,omitempty"`
}

// ExecCommandApprovalParams are the params of execCommandApproval.
type ExecCommandApprovalParams struct {
	ConversationID string          `json:"conversationId"`
	CallID         string          `json:"callId"`
	Command        []string        `json:"command"`
	Cwd            string          `json:"cwd"`
	Reason         *string         `json:"reason,omitempty"`
	ParsedCmd      json.RawMessage `json:"parsedCmd,omitempty"`
}

// ApprovalResponse answers a v2 approval request.
type ApprovalResponse struct {
	Decision ApprovalDecision `json:"decision"`
}

// ReviewResponse answers a legacy approval request.
type ReviewResponse struct {
	Decision ReviewDecision `json:"decision"`
}

// UserInputResponse answers item/tool/requestUserInput. Answers is keyed by
// question id.
type UserInputResponse struct {
	Answers map[string]UserInputAnswer `json:"answers"`
}

// DefaultResult returns the conservative answer for method: approvals are
// declined or denied and user input is answered with no answers.
// ok is false for methods this package does not know.
func DefaultResult(method string) (result any, ok bool) {
	switch method {
	case RequestCommandExecutionApproval, RequestFileChangeApproval:
		return ApprovalResponse{Decision: DecisionDecline}, true
	case RequestToolUserInput:
		return UserInputResponse{Answers: map[string]UserInputAnswer{}}, true
	case RequestApplyPatchApproval, RequestExecCommandApproval:
		return ReviewResponse{Decision: ReviewDenied}, true
	default:
		return nil, false
	}
}

// ServerRequestHandler answers server-initiated requests.
//
// Returning a nil result and nil error selects DefaultResult. Returning an
// error answers the request with a JSON-RPC error carrying its message.
type ServerRequestHandler interface {
	HandleServerRequest(ctx context.Context, req *ServerRequest) (result any, err error)
}

// ServerRequestHandlerFunc adapts a function to ServerRequestHandler.
type ServerRequestHandlerFunc func(ctx context.Context, req *ServerRequest) (any, error)

// HandleServerRequest implements ServerRequestHandler.
func (f ServerRequestHandlerFunc) HandleServerRequest(ctx context.Context, req *ServerRequest) (any, error) {
	return f(ctx, req)
}
