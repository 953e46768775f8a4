// Package appserver is the typed method surface of the codex app-server
// protocol: request and response types, method names, server-initiated
// requests and the Client that sends them over a protocol.Controller.
package appserver
