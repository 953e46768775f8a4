package mapper

import (
	"encoding/json"
	"unicode/utf8"

	"github.com/BjornMelin/codex-sdk-agents/internal/appserver"
	"github.com/BjornMelin/codex-sdk-agents/internal/errors"
	"github.com/BjornMelin/codex-sdk-agents/internal/events"
	"github.com/BjornMelin/codex-sdk-agents/internal/jsonrpc"
)

// outputTailLimit bounds CommandExecuted.AggregatedOutputTail.
const outputTailLimit = 8 << 10

// mapNotification updates state and returns the events to emit. It runs
// with m.mu held.
//
//nolint:gocyclo // one case per notification method
func (m *Mapper) mapNotification(n *jsonrpc.Notification) ([]events.Event, *TurnCompletion) {
	meta := events.NewMeta(m.backend)

	switch n.Method {
	case appserver.NotifyError:
		p, err := decode[appserver.ErrorNotification](n)
		if err != nil {
			return m.malformed(n, err), nil
		}

		d := details(p.Error.CodexErrorInfo, p.Error.AdditionalDetails)
		m.sticky = &errors.ServerError{Message: p.Error.Message, Details: d}

		return one(events.Error{Meta: meta, Message: p.Error.Message, Details: d}), nil

	case appserver.NotifyAccountUpdated:
		p, err := decode[appserver.AccountUpdatedNotification](n)
		if err != nil {
			return m.malformed(n, err), nil
		}

		return one(events.AccountUpdated{Meta: meta, AuthMode: p.AuthMode}), nil

	case appserver.NotifyAccountRateLimitsUpdated:
		p, err := decode[appserver.AccountRateLimitsUpdatedNotification](n)
		if err != nil {
			return m.malformed(n, err), nil
		}

		return one(events.AccountRateLimitsUpdated{Meta: meta, RateLimits: p.RateLimits}), nil

	case appserver.NotifyAccountLoginCompleted:
		p, err := decode[appserver.AccountLoginCompletedNotification](n)
		if err != nil {
			return m.malformed(n, err), nil
		}

		return one(events.AccountLoginCompleted{Meta: meta, LoginID: p.LoginID, Success: p.Success, Error: p.Error}), nil

	case appserver.NotifyMCPServerOAuthLoginCompleted:
		p, err := decode[appserver.MCPServerOAuthLoginCompletedNotification](n)
		if err != nil {
			return m.malformed(n, err), nil
		}

		ev := events.MCPOAuthCompleted{Meta: meta, Name: p.Name, Success: p.Success}
		if p.Error != nil {
			ev.Error = *p.Error
		}

		return one(ev), nil

	case appserver.NotifyDeprecationNotice, appserver.NotifyConfigWarning:
		p, err := decode[appserver.NoticeNotification](n)
		if err != nil {
			return m.malformed(n, err), nil
		}

		if n.Method == appserver.NotifyConfigWarning {
			return one(events.ConfigWarning{Meta: meta, Summary: p.Summary, Details: p.Details}), nil
		}

		return one(events.DeprecationNotice{Meta: meta, Summary: p.Summary, Details: p.Details}), nil

	case appserver.NotifyWorldWritableWarning:
		p, err := decode[appserver.WorldWritableWarningNotification](n)
		if err != nil {
			return m.malformed(n, err), nil
		}

		return one(events.WorldWritableWarning{
			Meta:        meta,
			SamplePaths: p.SamplePaths,
			ExtraCount:  p.ExtraCount,
			FailedScan:  p.FailedScan,
		}), nil

	case appserver.NotifyThreadStarted:
		p, err := decode[appserver.ThreadStartedNotification](n)
		if err != nil {
			return m.malformed(n, err), nil
		}

		if m.threadID == "" {
			m.threadID = p.Thread.ID
		}

		if !m.matchesLocked(p.Thread.ID) {
			return nil, nil
		}

		return one(events.ThreadStarted{Meta: meta, ThreadID: p.Thread.ID}), nil

	case appserver.NotifyTurnStarted:
		p, err := decode[appserver.TurnNotification](n)
		if err != nil {
			return m.malformed(n, err), nil
		}

		if !m.matchesLocked(p.ThreadID) {
			return nil, nil
		}

		m.activeTurnID = p.Turn.ID

		return one(events.TurnStarted{Meta: meta, ThreadID: p.ThreadID, TurnID: p.Turn.ID}), nil

	case appserver.NotifyTurnCompleted:
		p, err := decode[appserver.TurnNotification](n)
		if err != nil {
			return m.malformed(n, err), nil
		}

		if !m.matchesLocked(p.ThreadID) {
			return nil, nil
		}

		return m.turnCompleted(meta, p)

	case appserver.NotifyTurnDiffUpdated:
		p, err := decode[appserver.TurnDiffUpdatedNotification](n)
		if err != nil {
			return m.malformed(n, err), nil
		}

		if !m.matchesLocked(p.ThreadID) {
			return nil, nil
		}

		return one(events.DiffUpdated{Meta: meta, ThreadID: p.ThreadID, TurnID: p.TurnID, Diff: p.Diff}), nil

	case appserver.NotifyTurnPlanUpdated:
		p, err := decode[appserver.TurnPlanUpdatedNotification](n)
		if err != nil {
			return m.malformed(n, err), nil
		}

		if !m.matchesLocked(p.ThreadID) {
			return nil, nil
		}

		ev := events.PlanUpdated{Meta: meta, ThreadID: p.ThreadID, TurnID: p.TurnID, Plan: p.Plan}
		if p.Explanation != nil {
			ev.Explanation = *p.Explanation
		}

		return one(ev), nil

	case appserver.NotifyThreadTokenUsageUpdated:
		p, err := decode[appserver.ThreadTokenUsageUpdatedNotification](n)
		if err != nil {
			return m.malformed(n, err), nil
		}

		if !m.matchesLocked(p.ThreadID) {
			return nil, nil
		}

		usage := p.TokenUsage
		m.usage = &usage

		return one(events.TokenUsageUpdated{Meta: meta, ThreadID: p.ThreadID, TurnID: p.TurnID, Usage: usage}), nil

	case appserver.NotifyThreadCompacted:
		p, err := decode[appserver.ThreadCompactedNotification](n)
		if err != nil {
			return m.malformed(n, err), nil
		}

		if !m.matchesLocked(p.ThreadID) {
			return nil, nil
		}

		return one(events.ThreadCompacted{Meta: meta, ThreadID: p.ThreadID, TurnID: p.TurnID}), nil

	case appserver.NotifyItemStarted:
		p, err := decode[appserver.ItemNotification](n)
		if err != nil {
			return m.malformed(n, err), nil
		}

		if !m.matchesLocked(p.ThreadID) {
			return nil, nil
		}

		return m.itemStarted(meta, &p), nil

	case appserver.NotifyItemCompleted:
		p, err := decode[appserver.ItemNotification](n)
		if err != nil {
			return m.malformed(n, err), nil
		}

		if !m.matchesLocked(p.ThreadID) {
			return nil, nil
		}

		return m.itemCompleted(meta, &p), nil

	case appserver.NotifyRawResponseItemCompleted:
		p, err := decode[appserver.RawResponseItemCompletedNotification](n)
		if err != nil {
			return m.malformed(n, err), nil
		}

		if !m.matchesLocked(p.ThreadID) {
			return nil, nil
		}

		evs := one(events.RawResponseItemCompleted{Meta: meta, ThreadID: p.ThreadID, TurnID: p.TurnID, Item: p.Item})

		if _, done := m.completed[m.lastMessage]; p.EndsTurn() && m.lastMessage != "" && !done {
			text := m.fallbackTextLocked()
			if ev := m.completeLocked(m.lastMessage, text, p.ThreadID, p.TurnID); ev != nil {
				evs = append(evs, ev)
			}
		}

		return evs, nil

	case appserver.NotifyAgentMessageDelta:
		p, err := decode[appserver.DeltaNotification](n)
		if err != nil {
			return m.malformed(n, err), nil
		}

		if !m.matchesLocked(p.ThreadID) {
			return nil, nil
		}

		if _, done := m.completed[p.ItemID]; done {
			return nil, nil
		}

		m.bufferLocked(p.ItemID).WriteString(p.Delta)
		m.lastMessage = p.ItemID

		return one(events.MessageDelta{
			Meta:      meta,
			ThreadID:  p.ThreadID,
			TurnID:    p.TurnID,
			ItemID:    p.ItemID,
			TextDelta: p.Delta,
		}), nil

	case appserver.NotifyCommandOutputDelta, appserver.NotifyFileChangeOutputDelta:
		p, err := decode[appserver.DeltaNotification](n)
		if err != nil {
			return m.malformed(n, err), nil
		}

		if !m.matchesLocked(p.ThreadID) {
			return nil, nil
		}

		if n.Method == appserver.NotifyFileChangeOutputDelta {
			return one(events.FileChangeOutputDelta{
				Meta: meta, ThreadID: p.ThreadID, TurnID: p.TurnID, ItemID: p.ItemID, Delta: p.Delta,
			}), nil
		}

		return one(events.CommandOutputDelta{
			Meta: meta, ThreadID: p.ThreadID, TurnID: p.TurnID, ItemID: p.ItemID, Delta: p.Delta,
		}), nil

	case appserver.NotifyCommandTerminalInteraction:
		p, err := decode[appserver.TerminalInteractionNotification](n)
		if err != nil {
			return m.malformed(n, err), nil
		}

		if !m.matchesLocked(p.ThreadID) {
			return nil, nil
		}

		return one(events.CommandStdin{
			Meta:      meta,
			ThreadID:  p.ThreadID,
			TurnID:    p.TurnID,
			ItemID:    p.ItemID,
			ProcessID: p.ProcessID,
			Stdin:     p.Stdin,
		}), nil

	case appserver.NotifyMCPToolCallProgress:
		p, err := decode[appserver.MCPToolCallProgressNotification](n)
		if err != nil {
			return m.malformed(n, err), nil
		}

		if !m.matchesLocked(p.ThreadID) {
			return nil, nil
		}

		return one(events.MCPToolCallProgress{
			Meta: meta, ThreadID: p.ThreadID, TurnID: p.TurnID, ItemID: p.ItemID, Message: p.Message,
		}), nil

	case appserver.NotifyReasoningSummaryTextDelta, appserver.NotifyReasoningSummaryPartAdded:
		p, err := decode[appserver.ReasoningNotification](n)
		if err != nil {
			return m.malformed(n, err), nil
		}

		if !m.matchesLocked(p.ThreadID) {
			return nil, nil
		}

		delta := p.Delta
		if n.Method == appserver.NotifyReasoningSummaryPartAdded {
			delta = ""
		}

		return one(events.ReasoningSummaryDelta{
			Meta:         meta,
			ThreadID:     p.ThreadID,
			TurnID:       p.TurnID,
			ItemID:       p.ItemID,
			Delta:        delta,
			SummaryIndex: p.SummaryIndex,
		}), nil

	case appserver.NotifyReasoningTextDelta:
		p, err := decode[appserver.ReasoningNotification](n)
		if err != nil {
			return m.malformed(n, err), nil
		}

		if !m.matchesLocked(p.ThreadID) {
			return nil, nil
		}

		return one(events.ReasoningTextDelta{
			Meta:         meta,
			ThreadID:     p.ThreadID,
			TurnID:       p.TurnID,
			ItemID:       p.ItemID,
			Delta:        p.Delta,
			ContentIndex: p.ContentIndex,
		}), nil

	default:
		return one(events.Notification{Meta: meta, Method: n.Method, Params: n.Params}), nil
	}
}

func (m *Mapper) turnCompleted(meta events.Meta, p appserver.TurnNotification) ([]events.Event, *TurnCompletion) {
	m.activeTurnID = p.Turn.ID

	completion := &TurnCompletion{
		ThreadID: p.ThreadID,
		TurnID:   p.Turn.ID,
		Status:   p.Turn.Status,
		Error:    p.Turn.Error,
	}

	threadID := p.ThreadID
	if threadID == "" {
		threadID = m.threadID
	}

	// Buffered messages complete before the terminal event.
	evs := m.flushLocked(threadID, p.Turn.ID)

	if p.Turn.Status == appserver.TurnStatusFailed {
		msg := errors.DefaultTurnFailedMessage

		var d json.RawMessage

		if p.Turn.Error != nil {
			if p.Turn.Error.Message != "" {
				msg = p.Turn.Error.Message
			}

			d = details(p.Turn.Error.CodexErrorInfo, p.Turn.Error.AdditionalDetails)
		}

		m.sticky = &errors.TurnFailedError{ThreadID: p.ThreadID, TurnID: p.Turn.ID, Message: msg, Details: d}

		return append(evs, events.TurnFailed{
			Meta:     meta,
			ThreadID: p.ThreadID,
			TurnID:   p.Turn.ID,
			Message:  msg,
			Details:  d,
		}), completion
	}

	return append(evs, events.TurnCompleted{
		Meta:     meta,
		ThreadID: p.ThreadID,
		TurnID:   p.Turn.ID,
		Usage:    events.UsageFrom(m.usage),
	}), completion
}

func (m *Mapper) itemStarted(meta events.Meta, p *appserver.ItemNotification) []events.Event {
	evs := one(events.ItemStarted{Meta: meta, ThreadID: p.ThreadID, TurnID: p.TurnID, Item: p.Item})

	item, err := p.Decoded()
	if err != nil {
		m.log.Warn("Malformed thread item", "method", appserver.NotifyItemStarted, "error", err)

		return evs
	}

	tool := events.ToolStarted{Meta: meta, ThreadID: p.ThreadID, TurnID: p.TurnID, ToolType: item.Type}

	switch item.Type {
	case appserver.ItemAgentMessage:
		m.lastMessage = item.ID
		m.bufferLocked(item.ID)

		return evs

	case appserver.ItemCommandExecution:
		tool.ToolName = item.Command
		tool.Payload = marshalPayload(struct {
			Command        string          `json:"command"`
			Cwd            string          `json:"cwd"`
			CommandActions json.RawMessage `json:"commandActions,omitempty"`
			ProcessID      *string         `json:"processId,omitempty"`
		}{item.Command, item.Cwd, item.CommandActions, item.ProcessID})

	case appserver.ItemFileChange:

	case appserver.ItemMCPToolCall:
		tool.ToolName = item.Server + "." + item.Tool

	case appserver.ItemCollabAgentToolCall:
		evs = append(evs, m.collabUpdate(meta, p, &item))

		tool.ToolName = item.Tool
		tool.Payload = marshalPayload(struct {
			SenderThreadID    string                     `json:"senderThreadId"`
			ReceiverThreadIDs []string                   `json:"receiverThreadIds"`
			Status            string                     `json:"status"`
			Prompt            *string                    `json:"prompt,omitempty"`
			AgentsStates      map[string]json.RawMessage `json:"agentsStates,omitempty"`
		}{item.SenderThreadID, item.ReceiverThreadIDs, item.Status, item.Prompt, agentStates(item.AgentsStates)})

	default:
		return evs
	}

	return append(evs, tool)
}

func (m *Mapper) itemCompleted(meta events.Meta, p *appserver.ItemNotification) []events.Event {
	evs := one(events.ItemCompleted{Meta: meta, ThreadID: p.ThreadID, TurnID: p.TurnID, Item: p.Item})

	item, err := p.Decoded()
	if err != nil {
		m.log.Warn("Malformed thread item", "method", appserver.NotifyItemCompleted, "error", err)

		return evs
	}

	done := events.ToolCompleted{Meta: meta, ThreadID: p.ThreadID, TurnID: p.TurnID, ToolType: item.Type}

	switch item.Type {
	case appserver.ItemAgentMessage:
		text := ""
		if item.Text != nil {
			text = *item.Text
		} else if b, ok := m.buffers[item.ID]; ok {
			text = b.String()
		}

		if ev := m.completeLocked(item.ID, text, p.ThreadID, p.TurnID); ev != nil {
			evs = append(evs, ev)
		}

		return evs

	case appserver.ItemFileChange:
		for _, change := range item.Changes {
			kind, move := events.ClassifyChange(change.Kind)
			evs = append(evs, events.FileChanged{
				Meta:     meta,
				ThreadID: p.ThreadID,
				TurnID:   p.TurnID,
				Path:     change.Path,
				Kind:     kind,
				MovePath: move,
			})
		}

	case appserver.ItemCommandExecution:
		exec := events.CommandExecuted{
			Meta:           meta,
			ThreadID:       p.ThreadID,
			TurnID:         p.TurnID,
			Command:        item.Command,
			Cwd:            item.Cwd,
			CommandActions: item.CommandActions,
			ExitCode:       item.ExitCode,
			DurationMs:     item.DurationMs,
		}

		if item.ProcessID != nil {
			exec.ProcessID = *item.ProcessID
		}

		if item.AggregatedOutput != nil {
			exec.AggregatedOutputTail = tail(*item.AggregatedOutput, outputTailLimit)
		}

		evs = append(evs, exec)

		done.ToolName = item.Command
		done.DurationMs = item.DurationMs

	case appserver.ItemMCPToolCall:
		done.ToolName = item.Server + "." + item.Tool
		done.DurationMs = item.DurationMs

		if isObject(item.Result) {
			done.Result = item.Result
		}

	case appserver.ItemCollabAgentToolCall:
		evs = append(evs, m.collabUpdate(meta, p, &item))

		done.ToolName = item.Tool

	default:
		return evs
	}

	return append(evs, done)
}

func (m *Mapper) collabUpdate(meta events.Meta, p *appserver.ItemNotification, item *appserver.ThreadItem) events.Event {
	return events.CollabToolCallUpdated{
		Meta:              meta,
		ThreadID:          p.ThreadID,
		TurnID:            p.TurnID,
		ItemID:            item.ID,
		Tool:              item.Tool,
		Status:            item.Status,
		SenderThreadID:    item.SenderThreadID,
		ReceiverThreadIDs: item.ReceiverThreadIDs,
		Prompt:            item.Prompt,
		AgentsStates:      agentStates(item.AgentsStates),
	}
}

// malformed logs a notification whose params did not decode and forwards it
// unchanged.
func (m *Mapper) malformed(n *jsonrpc.Notification, err error) []events.Event {
	m.log.Warn("Malformed notification params", "method", n.Method, "error", err)

	return one(events.Notification{Meta: events.NewMeta(m.backend), Method: n.Method, Params: n.Params})
}

func one(ev events.Event) []events.Event {
	return []events.Event{ev}
}

// agentStates drops null entries.
func agentStates(states map[string]json.RawMessage) map[string]json.RawMessage {
	if len(states) == 0 {
		return nil
	}

	out := make(map[string]json.RawMessage, len(states))

	for k, v := range states {
		if len(v) == 0 || string(v) == "null" {
			continue
		}

		out[k] = v
	}

	if len(out) == 0 {
		return nil
	}

	return out
}

func isObject(raw json.RawMessage) bool {
	for _, c := range raw {
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		case '{':
			return true
		default:
			return false
		}
	}

	return false
}

func tail(s string, limit int) string {
	if len(s) <= limit {
		return s
	}

	start := len(s) - limit
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}

	return s[start:]
}
