package codexsdk

import (
	"context"
	"iter"
)

// streamBuffer is how many events Stream queues ahead of the consumer.
const streamBuffer = 64

// Run executes prompt once on a fresh backend and shuts it down.
//
//	result, err := codexsdk.Run(ctx, "What does this repo do?",
//	    codexsdk.WithCwd(repoDir),
//	    codexsdk.WithSandboxMode(codexsdk.SandboxReadOnly),
//	)
func Run(ctx context.Context, prompt string, opts ...Option) (*RunResult, error) {
	var result *RunResult

	err := WithBackend(ctx, func(b Backend) error {
		var err error

		result, err = b.Run(ctx, prompt, nil)

		return err
	}, opts...)
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Query executes prompt once on a fresh backend and yields its events as
// they arrive.
//
// Error handling:
//
//   - Setup failures (invalid options, codex not found) are yielded once
//     and iteration stops.
//
//   - A failed run yields its *TurnFailedError or *ServerError after the
//     last event.
//
//   - Cancelling ctx interrupts the turn; iteration ends without an error.
//
// Breaking out of the loop interrupts the turn and waits for it to settle.
func Query(ctx context.Context, prompt string, opts ...Option) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		options := applyOptions(opts)

		log := options.Backend.Logger
		if log == nil {
			log = NopLogger()
		}

		b, err := NewBackend(opts...)
		if err != nil {
			yield(nil, err)

			return
		}

		defer func() {
			if err := b.Close(); err != nil {
				log.Warn("failed to close backend", "error", err)
			}
		}()

		for ev, err := range Stream(ctx, b, prompt) {
			if !yield(ev, err) {
				return
			}
		}
	}
}

// Stream runs prompt on b and yields its events as they arrive. The
// run's error, if any, is yielded last. Breaking out of the loop cancels
// the run and waits for it to settle, so b is free for the next run once
// iteration returns.
func Stream(ctx context.Context, b Backend, prompt string, opts ...Option) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		evs := make(chan Event, streamBuffer)
		done := make(chan error, 1)

		go func() {
			defer close(evs)

			_, err := b.Run(runCtx, prompt, func(_ context.Context, ev Event) {
				select {
				case evs <- ev:
				case <-runCtx.Done():
				}
			}, opts...)
			done <- err
		}()

		for ev := range evs {
			if !yield(ev, nil) {
				cancel()

				for range evs {
				}

				<-done

				return
			}
		}

		if err := <-done; err != nil {
			yield(nil, err)
		}
	}
}
