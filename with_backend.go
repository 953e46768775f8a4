package codexsdk

import (
	"context"
	"fmt"
)

// WithBackend manages backend lifecycle with automatic cleanup.
//
// This helper creates a backend with the provided options, executes the
// callback function, and ensures the app-server is shut down via Close()
// when done.
//
// If the callback returns an error, it is returned to the caller.
// If Close() fails, a warning is logged but does not override the callback's error.
//
// Example usage:
//
//	err := codexsdk.WithBackend(ctx, func(b codexsdk.Backend) error {
//	    first, err := b.Run(ctx, "Write a failing test for parseConfig", nil)
//	    if err != nil {
//	        return err
//	    }
//	    // The second run continues the same thread.
//	    _, err = b.Run(ctx, "Now make it pass", nil)
//	    return err
//	},
//	    codexsdk.WithLogger(log),
//	    codexsdk.WithCwd(repoDir),
//	)
func WithBackend(ctx context.Context, fn func(Backend) error, opts ...Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	options := applyOptions(opts)

	log := options.Backend.Logger
	if log == nil {
		log = NopLogger()
	}

	backend, err := NewBackend(opts...)
	if err != nil {
		return fmt.Errorf("failed to create backend: %w", err)
	}

	defer func() {
		if closeErr := backend.Close(); closeErr != nil {
			log.Warn("failed to close backend", "error", closeErr)
		}
	}()

	return fn(backend)
}
