package codexsdk

import (
	"context"
)

// RunResult is the outcome of a settled run. A cancelled or timed-out run
// has empty Text and no error.
type RunResult struct {
	// RunID identifies the run in logs and spans.
	RunID string
	// Backend is always "app-server".
	Backend string
	// Model is the model the run asked for.
	Model    string
	ThreadID string
	// TurnID is empty when the run was cancelled before its turn started.
	TurnID string
	// Text is the agent's messages concatenated in completion order.
	Text string
	// Usage is the last token usage reported, if any.
	Usage *Usage
}

// Backend runs codex turns against a `codex app-server` it owns.
//
// A backend keeps one app-server process and one thread alive across runs.
// Changing the working directory, environment or codex binary between runs
// restarts the process and resumes the same thread; changing the model
// does not.
//
// Lifecycle: backends are single-use. After Close(), create a new one with
// NewBackend().
//
// Example usage:
//
//	backend, err := codexsdk.NewBackend(
//	    codexsdk.WithLogger(slog.Default()),
//	    codexsdk.WithCwd(repoDir),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	result, err := backend.Run(ctx, "Summarize this repository",
//	    func(ctx context.Context, ev codexsdk.Event) {
//	        if d, ok := ev.(codexsdk.MessageDeltaEvent); ok {
//	            fmt.Print(d.TextDelta)
//	        }
//	    },
//	    codexsdk.WithReasoningEffort(codexsdk.EffortHigh),
//	)
type Backend interface {
	// Run sends prompt as a new turn and blocks until it settles. Events
	// are delivered to handler in order; handler may be nil.
	// Options passed here override the run options given to NewBackend;
	// backend options are ignored.
	//
	// Cancelling ctx interrupts the turn and returns an empty result.
	// A failed turn returns *TurnFailedError; an app-server error
	// notification during the run returns *ServerError.
	Run(ctx context.Context, prompt string, handler EventHandler, opts ...Option) (*RunResult, error)

	// Interrupt asks codex to stop the running turn. Returns a
	// *SessionError wrapping ErrNoActiveTurn when nothing is running.
	Interrupt(ctx context.Context) error

	// Inject always returns a *SessionError wrapping ErrInjectUnsupported:
	// app-server v2 cannot extend a running turn.
	Inject(ctx context.Context, content string) error

	// ThreadID returns the current thread, or "" before the first run.
	ThreadID() string

	// Close terminates the app-server and forgets the thread.
	// Safe to call multiple times.
	Close() error
}

// NewBackend creates a backend. Nothing is spawned until the first run.
// Returns *ConfigError for invalid options.
func NewBackend(opts ...Option) (Backend, error) {
	b, err := newBackendImpl(applyOptions(opts))
	if err != nil {
		return nil, err
	}

	return b, nil
}
