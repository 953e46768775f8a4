// Package errors defines error types for the Codex SDK.
//
// Errors fall into transport failures (spawn, process exit, closed
// connection, malformed envelopes), protocol errors returned by the
// app-server, per-request timeouts, session misuse, and run failures
// reported by the app-server during a turn. All error types support
// error unwrapping and can be checked using errors.Is, errors.As, and errors.AsType.
package errors
