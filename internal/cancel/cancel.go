// Package cancel merges several cancellation sources into one context.
package cancel

import "context"

// Any returns a context that is done as soon as any of ctxs is done. Its
// values come from the first context and its cause is the cause of the
// context that finished first. Calling the returned CancelFunc releases
// the watchers and cancels the merged context; it is safe to call more than
// once.
//
// With no contexts the result is a plain cancelable background context.
func Any(ctxs ...context.Context) (context.Context, context.CancelFunc) {
	if len(ctxs) == 0 {
		return context.WithCancel(context.Background())
	}

	merged, cancel := context.WithCancelCause(ctxs[0])

	stops := make([]func() bool, 0, len(ctxs)-1)

	for _, src := range ctxs[1:] {
		if src == nil {
			continue
		}

		if src.Err() != nil {
			cancel(context.Cause(src))

			break
		}

		stops = append(stops, context.AfterFunc(src, func() {
			cancel(context.Cause(src))
		}))
	}

	return merged, func() {
		for _, stop := range stops {
			stop()
		}

		cancel(context.Canceled)
	}
}

// Cause reports why ctx finished, or nil while it is live.
func Cause(ctx context.Context) error {
	if ctx.Err() == nil {
		return nil
	}

	return context.Cause(ctx)
}
