package codexsdk

import (
	"context"
	"maps"

	"github.com/BjornMelin/codex-sdk-agents/internal/backend"
)

// backendWrapper adapts the internal backend to the public interface.
type backendWrapper struct {
	impl     *backend.Backend
	defaults RunOptions
}

var _ Backend = (*backendWrapper)(nil)

func newBackendImpl(options *Options) (*backendWrapper, error) {
	impl, err := backend.New(&options.Backend)
	if err != nil {
		return nil, err
	}

	return &backendWrapper{impl: impl, defaults: options.Run}, nil
}

func (b *backendWrapper) Run(ctx context.Context, prompt string, handler EventHandler, opts ...Option) (*RunResult, error) {
	res, err := b.impl.Run(ctx, prompt, b.runOptions(opts), handler)
	if err != nil {
		return nil, err
	}

	return &RunResult{
		RunID:    res.RunID,
		Backend:  res.Backend,
		Model:    res.Model,
		ThreadID: res.ThreadID,
		TurnID:   res.TurnID,
		Text:     res.Text,
		Usage:    res.Usage,
	}, nil
}

// runOptions layers per-run options over the backend's defaults. Map
// valued options are copied so runs never share them.
func (b *backendWrapper) runOptions(opts []Option) *RunOptions {
	options := &Options{Run: b.defaults}
	options.Run.ConfigOverrides = maps.Clone(b.defaults.ConfigOverrides)
	options.Run.MCPServers = maps.Clone(b.defaults.MCPServers)

	for _, opt := range opts {
		opt(options)
	}

	return &options.Run
}

func (b *backendWrapper) Interrupt(ctx context.Context) error {
	return b.impl.Interrupt(ctx)
}

func (b *backendWrapper) Inject(ctx context.Context, content string) error {
	return b.impl.Inject(ctx, content)
}

func (b *backendWrapper) ThreadID() string {
	return b.impl.ThreadID()
}

func (b *backendWrapper) Close() error {
	return b.impl.Close()
}
