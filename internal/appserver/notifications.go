package appserver

import "encoding/json"

// ErrorNotification is the params of the top-level error notification.
type ErrorNotification struct {
	Error     TurnError `json:"error"`
	WillRetry bool      `json:"willRetry"`
	ThreadID  string    `json:"threadId"`
	TurnID    string    `json:"turnId"`
}

// AccountUpdatedNotification reports a change of auth mode.
type AccountUpdatedNotification struct {
	AuthMode *string `json:"authMode"`
}

// AccountRateLimitsUpdatedNotification carries a rate limit snapshot.
type AccountRateLimitsUpdatedNotification struct {
	RateLimits json.RawMessage `json:"rateLimits"`
}

// AccountLoginCompletedNotification ends a login flow.
type AccountLoginCompletedNotification struct {
	LoginID *string `json:"loginId"`
	Success bool    `json:"success"`
	Error   *string `json:"error"`
}

// MCPServerOAuthLoginCompletedNotification ends an MCP OAuth login.
type MCPServerOAuthLoginCompletedNotification struct {
	Name    string  `json:"name"`
	Success bool    `json:"success"`
	Error   *string `json:"error,omitempty"`
}

// NoticeNotification is the params of deprecationNotice and configWarning.
type NoticeNotification struct {
	Summary string  `json:"summary"`
	Details *string `json:"details"`
}

// WorldWritableWarningNotification lists world-writable directories found on
// Windows.
type WorldWritableWarningNotification struct {
	SamplePaths []string `json:"samplePaths"`
	ExtraCount  int      `json:"extraCount"`
	FailedScan  bool     `json:"failedScan"`
}

// ThreadStartedNotification announces a thread.
type ThreadStartedNotification struct {
	Thread Thread `json:"thread"`
}

// TurnNotification is the params of turn/started and turn/completed.
type TurnNotification struct {
	ThreadID string `json:"threadId"`
	Turn     Turn   `json:"turn"`
}

// TurnDiffUpdatedNotification carries the aggregated diff of a turn.
type TurnDiffUpdatedNotification struct {
	ThreadID string `json:"threadId"`
	TurnID   string `json:"turnId"`
	Diff     string `json:"diff"`
}

// PlanStep is one step of the agent's plan.
type PlanStep struct {
	Step   string `json:"step"`
	Status string `json:"status"`
}

// TurnPlanUpdatedNotification carries the agent's current plan.
type TurnPlanUpdatedNotification struct {
	ThreadID    string     `json:"threadId"`
	TurnID      string     `json:"turnId"`
	Explanation *string    `json:"explanation"`
	Plan        []PlanStep `json:"plan"`
}

// TokenUsageBreakdown counts tokens for one scope.
type TokenUsageBreakdown struct {
	TotalTokens           int64 `json:"totalTokens"`
	InputTokens           int64 `json:"inputTokens"`
	CachedInputTokens     int64 `json:"cachedInputTokens"`
	OutputTokens          int64 `json:"outputTokens"`
	ReasoningOutputTokens int64 `json:"reasoningOutputTokens"`
}

// ThreadTokenUsage holds cumulative and last-turn token usage.
type ThreadTokenUsage struct {
	Total              TokenUsageBreakdown `json:"total"`
	Last               TokenUsageBreakdown `json:"last"`
	ModelContextWindow *int64              `json:"modelContextWindow"`
}

// ThreadTokenUsageUpdatedNotification reports token usage.
type ThreadTokenUsageUpdatedNotification struct {
	ThreadID   string           `json:"threadId"`
	TurnID     string           `json:"turnId"`
	TokenUsage ThreadTokenUsage `json:"tokenUsage"`
}

// ThreadCompactedNotification reports a context compaction.
type ThreadCompactedNotification struct {
	ThreadID string `json:"threadId"`
	TurnID   string `json:"turnId"`
}

// Thread item types.
const (
	ItemAgentMessage        = "agentMessage"
	ItemCommandExecution    = "commandExecution"
	ItemFileChange          = "fileChange"
	ItemMCPToolCall         = "mcpToolCall"
	ItemCollabAgentToolCall = "collabAgentToolCall"
)

// PatchChangeKind describes one file change. MovePath is set for renames.
type PatchChangeKind struct {
	Type     string  `json:"type"`
	MovePath *string `json:"move_path,omitempty"`
}

// FileUpdateChange is one file of a fileChange item.
type FileUpdateChange struct {
	Path string          `json:"path"`
	Kind PatchChangeKind `json:"kind"`
	Diff string          `json:"diff,omitempty"`
}

// ThreadItem is the union of the item kinds the bridge inspects. Fields not
// used by an item's type are left zero.
type ThreadItem struct {
	Type string `json:"type"`
	ID   string `json:"id"`

	// agentMessage
	Text *string `json:"text,omitempty"`

	// commandExecution
	Command          string          `json:"command,omitempty"`
	Cwd              string          `json:"cwd,omitempty"`
	CommandActions   json.RawMessage `json:"commandActions,omitempty"`
	ProcessID        *string         `json:"processId,omitempty"`
	ExitCode         *int            `json:"exitCode,omitempty"`
	AggregatedOutput *string         `json:"aggregatedOutput,omitempty"`
	DurationMs       *int64          `json:"durationMs,omitempty"`

	// fileChange
	Changes []FileUpdateChange `json:"changes,omitempty"`

	// mcpToolCall and collabAgentToolCall
	Server string          `json:"server,omitempty"`
	Tool   string          `json:"tool,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Status string          `json:"status,omitempty"`

	// collabAgentToolCall
	SenderThreadID    string                     `json:"senderThreadId,omitempty"`
	ReceiverThreadIDs []string                   `json:"receiverThreadIds,omitempty"`
	Prompt            *string                    `json:"prompt,omitempty"`
	AgentsStates      map[string]json.RawMessage `json:"agentsStates,omitempty"`
}

// ItemNotification is the params of item/started and item/completed. Item
// keeps the raw payload; Decoded is the parsed view.
type ItemNotification struct {
	ThreadID string          `json:"threadId"`
	TurnID   string          `json:"turnId"`
	Item     json.RawMessage `json:"item"`
}

// Decoded parses Item.
func (n *ItemNotification) Decoded() (ThreadItem, error) {
	var item ThreadItem
	err := json.Unmarshal(n.Item, &item)

	return item, err
}

// RawResponseItemCompletedNotification carries a raw model response item.
type RawResponseItemCompletedNotification struct {
	ThreadID string          `json:"threadId"`
	TurnID   string          `json:"turnId"`
	Item     json.RawMessage `json:"item"`
}

// EndsTurn reports whether the item is a message flagged end_turn.
func (n *RawResponseItemCompletedNotification) EndsTurn() bool {
	var head struct {
		Type    string `json:"type"`
		EndTurn *bool  `json:"end_turn"`
	}

	if json.Unmarshal(n.Item, &head) != nil {
		return false
	}

	return head.Type == "message" && head.EndTurn != nil && *head.EndTurn
}

// DeltaNotification is the params of the streaming delta notifications.
type DeltaNotification struct {
	ThreadID string `json:"threadId"`
	TurnID   string `json:"turnId"`
	ItemID   string `json:"itemId"`
	Delta    string `json:"delta"`
}

// TerminalInteractionNotification reports stdin written to a running command.
type TerminalInteractionNotification struct {
	ThreadID  string `json:"threadId"`
	TurnID    string `json:"turnId"`
	ItemID    string `json:"itemId"`
	ProcessID string `json:"processId"`
	Stdin     string `json:"stdin"`
}

// MCPToolCallProgressNotification reports MCP tool progress.
type MCPToolCallProgressNotification struct {
	ThreadID string `json:"threadId"`
	TurnID   string `json:"turnId"`
	ItemID   string `json:"itemId"`
	Message  string `json:"message"`
}

// ReasoningNotification is the params of the reasoning notifications.
// SummaryIndex is set for summary deltas and parts, ContentIndex for raw
// reasoning text.
type ReasoningNotification struct {
	ThreadID     string `json:"threadId"`
	TurnID       string `json:"turnId"`
	ItemID       string `json:"itemId"`
	Delta        string `json:"delta"`
	SummaryIndex *int   `json:"summaryIndex,omitempty"`
	ContentIndex *int   `json:"contentIndex,omitempty"`
}
