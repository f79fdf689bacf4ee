// Package gateway implements the per-request MCP server factory (spec.md
// §4.5) and the HTTP dispatcher (spec.md §4.7) that ties it to an inbound
// streaming HTTP request. Grounded on the teacher's
// aggregator.AggregatorServer, stripped to its single-request, sessionless
// shape: no dynamic capability tracking, no OAuth, no long-lived server.
package gateway

import (
	"errors"

	"mcpgateway/internal/resolver"
)

// JSON-RPC error codes for pre-transport failures (spec.md §4.7), modeled on
// the Sentinel-Gate proxy router's ErrCodeMethodNotFound/ErrCodeInternal
// constants and on the standard JSON-RPC reserved range. Only invalid-request
// and internal-error ever reach this envelope: method-not-found and disposed
// failures happen inside a tool/prompt call, after the per-request MCP
// server has taken over the response, and are framed as MCP-level errors by
// mcp-go rather than as a pre-transport JSON-RPC envelope (spec.md §7:
// "otherwise framed MCP errors from the upstream pass through unchanged").
const (
	codeInvalidRequest = -32600
	codeInternalError  = -32603
)

// rpcError is the JSON-RPC error envelope's "error" field shape (spec.md
// §4.7's JSON error body shape).
type rpcError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// errorEnvelope is the full JSON-RPC error response body for failures that
// happen before the transport takes over.
type errorEnvelope struct {
	JSONRPC string    `json:"jsonrpc"`
	Error   rpcError  `json:"error"`
	ID      *int      `json:"id"`
}

func newEnvelope(code int, message string) errorEnvelope {
	return errorEnvelope{JSONRPC: "2.0", Error: rpcError{Code: code, Message: message}, ID: nil}
}

// codeForResolveError classifies a resolver failure into a JSON-RPC error
// code per spec.md §7's error-kind table: every resolver failure is
// *invalid-request* (unknown profile/server, cycle).
func codeForResolveError(err error) int {
	var invalid *resolver.ErrInvalidRequest
	if errors.As(err, &invalid) {
		return codeInvalidRequest
	}
	return codeInternalError
}
