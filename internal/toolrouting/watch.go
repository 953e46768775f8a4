package toolrouting

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/BjornMelin/codex-sdk-agents/internal/mcp"
)

// Watcher serves tool resolution from a routing file and reloads it when the
// file changes. A reload that fails to parse or validate keeps the previous
// registry.
type Watcher struct {
	path string
	log  *slog.Logger

	current atomic.Pointer[Registry]

	// OnReload, when set, is called after every reload attempt.
	OnReload func(reg *Registry, err error)

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewWatcher loads path once and returns a watcher serving it.
// Call Start to begin watching for changes.
func NewWatcher(path string, log *slog.Logger) (*Watcher, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path: filepath.Clean(path),
		log:  log.With("component", "toolrouting"),
	}
	w.current.Store(reg)

	return w, nil
}

// Current returns the registry in effect.
func (w *Watcher) Current() *Registry {
	return w.current.Load()
}

// ResolveTools resolves step against the registry in effect.
func (w *Watcher) ResolveTools(ctx context.Context, step StepAddress) (map[string]mcp.ServerConfig, error) {
	return w.current.Load().ResolveTools(ctx, step)
}

// Start watches the file's directory until ctx is done or Close is called.
// The directory is watched so that editors replacing the file by rename are
// picked up.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}

	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		_ = fsw.Close()

		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	ctx, cancel := context.WithCancel(ctx)
	w.fsw = fsw
	w.cancel = cancel
	w.started = true

	w.wg.Go(func() {
		w.loop(ctx)
	})

	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}

			if filepath.Clean(ev.Name) != w.path {
				continue
			}

			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}

			w.reload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}

			w.log.Warn("Tool routing watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	reg, err := LoadRegistry(w.path)
	if err != nil {
		w.log.Warn("Keeping previous tool routing", "path", w.path, "error", err)
	} else {
		w.current.Store(reg)
		w.log.Debug("Reloaded tool routing", "path", w.path)
	}

	if w.OnReload != nil {
		w.OnReload(reg, err)
	}
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()

		return nil
	}

	w.started = false
	w.cancel()
	fsw := w.fsw
	w.mu.Unlock()

	err := fsw.Close()
	w.wg.Wait()

	return err
}
