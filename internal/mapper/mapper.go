// Package mapper turns app-server notifications and server requests into
// normalized events and accumulates the agent's message text for a run.
package mapper

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/BjornMelin/codex-sdk-agents/internal/appserver"
	"github.com/BjornMelin/codex-sdk-agents/internal/events"
	"github.com/BjornMelin/codex-sdk-agents/internal/jsonrpc"
)

// FallbackPolicy selects how an end-of-turn raw response item completes an
// agent message that never received item/completed.
type FallbackPolicy string

const (
	// FallbackPerItem completes the last message item from its own buffer.
	FallbackPerItem FallbackPolicy = "perItem"

	// FallbackLastMessage completes the last message item with every
	// uncompleted buffer joined in arrival order, and marks them all
	// completed.
	FallbackLastMessage FallbackPolicy = "lastMessage"
)

// Valid reports whether p is a known policy. The empty policy is valid and
// means FallbackPerItem.
func (p FallbackPolicy) Valid() bool {
	return p == "" || p == FallbackPerItem || p == FallbackLastMessage
}

// TurnCompletion describes a settled turn.
type TurnCompletion struct {
	ThreadID string
	TurnID   string
	Status   appserver.TurnStatus
	Error    *appserver.TurnError
}

// Options configures a Mapper.
type Options struct {
	// Backend is stamped on every event. Defaults to events.BackendAppServer.
	Backend string

	// Handler receives events. Nil drops them; state is still tracked.
	Handler events.Handler

	// OnTurnCompleted is called after the turn/completed event is emitted.
	OnTurnCompleted func(TurnCompletion)

	// Fallback selects the end_turn completion policy.
	Fallback FallbackPolicy

	// Logger receives diagnostics. Nil disables logging.
	Logger *slog.Logger
}

// Mapper is the per-run event normalizer. It never answers server requests.
//
// Event emission is serialized: the handler is never called concurrently
// and sees events in the order their sources were handled. The handler may
// call the Mapper's getters but not its Handle methods.
type Mapper struct {
	backend         string
	handler         events.Handler
	onTurnCompleted func(TurnCompletion)
	fallback        FallbackPolicy
	log             *slog.Logger

	emitMu sync.Mutex

	mu           sync.Mutex
	threadID     string
	activeTurnID string
	sticky       error
	usage        *appserver.ThreadTokenUsage

	// message accumulation
	order       []string
	buffers     map[string]*strings.Builder
	completed   map[string]struct{}
	segments    []string
	lastMessage string
}

// New returns a Mapper with no bound thread.
func New(opts Options) *Mapper {
	backend := opts.Backend
	if backend == "" {
		backend = events.BackendAppServer
	}

	fallback := opts.Fallback
	if fallback == "" {
		fallback = FallbackPerItem
	}

	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &Mapper{
		backend:         backend,
		handler:         opts.Handler,
		onTurnCompleted: opts.OnTurnCompleted,
		fallback:        fallback,
		log:             log.With("component", "mapper"),
		buffers:         make(map[string]*strings.Builder),
		completed:       make(map[string]struct{}),
	}
}

// SetThreadID binds the mapper to a thread. Traffic for other threads is
// ignored from then on.
func (m *Mapper) SetThreadID(threadID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.threadID = threadID
}

// ThreadID returns the bound thread, or "".
func (m *Mapper) ThreadID() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.threadID
}

// ActiveTurnID returns the most recently started or completed turn.
func (m *Mapper) ActiveTurnID() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.activeTurnID
}

// CompletionError returns the error recorded by an error notification or a
// failed turn. Once set it is never cleared.
func (m *Mapper) CompletionError() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.sticky
}

// Usage returns the last reported turn usage, or nil if none was reported.
func (m *Mapper) Usage() *events.Usage {
	m.mu.Lock()
	defer m.mu.Unlock()

	return events.UsageFrom(m.usage)
}

// FullText joins completed message texts in completion order.
func (m *Mapper) FullText() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return strings.Join(m.segments, "")
}

// FlushMessages completes every buffered message that has not completed yet,
// in arrival order. Calling it again emits nothing.
func (m *Mapper) FlushMessages(ctx context.Context) {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()

	m.mu.Lock()
	evs := m.flushLocked(m.threadID, m.activeTurnID)
	m.mu.Unlock()

	m.emit(ctx, evs)
}

// Detach stops event delivery. An emission in progress finishes first, so
// the handler is never called after Detach returns. State is still tracked.
func (m *Mapper) Detach() {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()

	m.handler = nil
}

func (m *Mapper) flushLocked(threadID, turnID string) []events.Event {
	var evs []events.Event

	for _, id := range m.order {
		if _, done := m.completed[id]; done {
			continue
		}

		if ev := m.completeLocked(id, m.buffers[id].String(), threadID, turnID); ev != nil {
			evs = append(evs, ev)
		}
	}

	return evs
}

// HandleNotification maps one notification.
func (m *Mapper) HandleNotification(ctx context.Context, n *jsonrpc.Notification) {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()

	m.mu.Lock()
	evs, completion := m.mapNotification(n)
	m.mu.Unlock()

	m.emit(ctx, evs)

	if completion != nil && m.onTurnCompleted != nil {
		m.onTurnCompleted(*completion)
	}
}

// HandleServerRequest maps an approval or user-input request to an event.
func (m *Mapper) HandleServerRequest(ctx context.Context, r *jsonrpc.Request) {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()

	req := appserver.NewServerRequest(r)

	switch req.Method {
	case appserver.RequestCommandExecutionApproval,
		appserver.RequestFileChangeApproval,
		appserver.RequestToolUserInput:
		if tid := req.ThreadID(); tid != "" && !m.matches(tid) {
			m.log.Debug("Ignoring server request for another thread", "method", req.Method, "thread_id", tid)

			return
		}
	}

	meta := events.NewMeta(m.backend)

	if req.Method == appserver.RequestToolUserInput {
		var params appserver.UserInputParams
		if err := req.Decode(&params); err != nil {
			m.log.Warn("Malformed user input request", "error", err)
		}

		m.emit(ctx, []events.Event{events.UserInputRequested{Meta: meta, RequestID: req.ID, Params: params}})

		return
	}

	if kind, ok := events.ApprovalKindFor(req.Method); ok {
		m.emit(ctx, []events.Event{events.ApprovalRequested{
			Meta:      meta,
			RequestID: req.ID,
			Kind:      kind,
			Params:    req.Params,
		}})
	}
}

func (m *Mapper) matches(threadID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.matchesLocked(threadID)
}

func (m *Mapper) matchesLocked(threadID string) bool {
	return m.threadID == "" || m.threadID == threadID
}

func (m *Mapper) emit(ctx context.Context, evs []events.Event) {
	if m.handler == nil {
		return
	}

	for _, ev := range evs {
		m.handler(ctx, ev)
	}
}

// completeLocked records a message completion. It returns nil when the item
// already completed or text is empty.
func (m *Mapper) completeLocked(itemID, text, threadID, turnID string) events.Event {
	if _, done := m.completed[itemID]; done {
		return nil
	}

	m.completed[itemID] = struct{}{}

	if text == "" {
		return nil
	}

	m.segments = append(m.segments, text)

	return events.MessageCompleted{
		Meta:     events.NewMeta(m.backend),
		ThreadID: threadID,
		TurnID:   turnID,
		ItemID:   itemID,
		Text:     text,
	}
}

func (m *Mapper) bufferLocked(itemID string) *strings.Builder {
	if b, ok := m.buffers[itemID]; ok {
		return b
	}

	b := &strings.Builder{}
	m.buffers[itemID] = b
	m.order = append(m.order, itemID)

	return b
}

// fallbackTextLocked returns the text the end_turn fallback completes the
// last message with.
func (m *Mapper) fallbackTextLocked() string {
	if m.fallback != FallbackLastMessage {
		if b, ok := m.buffers[m.lastMessage]; ok {
			return b.String()
		}

		return ""
	}

	var sb strings.Builder

	for _, id := range m.order {
		if _, done := m.completed[id]; done {
			continue
		}

		sb.WriteString(m.buffers[id].String())

		if id != m.lastMessage {
			m.completed[id] = struct{}{}
		}
	}

	return sb.String()
}

func decode[T any](n *jsonrpc.Notification) (T, error) {
	var v T
	if len(n.Params) == 0 {
		return v, errMissingParams
	}

	err := json.Unmarshal(n.Params, &v)

	return v, err
}

var errMissingParams = stderrors.New("missing params")

func details(codexErrorInfo, additional json.RawMessage) json.RawMessage {
	if len(codexErrorInfo) == 0 && len(additional) == 0 {
		return nil
	}

	data, err := json.Marshal(struct {
		CodexErrorInfo    json.RawMessage `json:"codexErrorInfo,omitempty"`
		AdditionalDetails json.RawMessage `json:"additionalDetails,omitempty"`
	}{codexErrorInfo, additional})
	if err != nil {
		return nil
	}

	return data
}

func marshalPayload(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}

	return data
}
