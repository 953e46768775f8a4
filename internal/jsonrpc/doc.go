// Package jsonrpc implements the line-delimited JSON-RPC envelopes spoken by
// codex app-server.
//
// Each message is one JSON object on its own line. The "jsonrpc" version
// member is neither required nor sent. Inbound lines are classified, in
// order, as a response (id and result), an error (id and error), a request
// (id and method) or a notification (method without id). Schemas are loose:
// unknown members are ignored.
package jsonrpc
