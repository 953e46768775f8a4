// Package subprocess runs `codex app-server` as a child process and exposes
// its stdio as a line transport.
//
// Each stdout line is one JSON-RPC envelope. Stderr is drained continuously,
// logged at debug level, forwarded to an optional callback and kept as a
// bounded tail for ProcessError reports. Close shuts the process group down
// in stages: stdin is closed first, then SIGINT, then SIGKILL.
package subprocess
