// Package rpc implements the JSON-RPC 2.0 method dispatcher exposed over
// the transport's SSE/POST pair: an MCP-shaped surface (initialize,
// tools/list, tools/call, resources/list, resources/read) backed by the
// log store, the ingestion sources, and the diagnostic sink.
//
// Envelope shape is grounded on the BeadsLog request/response structs in
// the retrieval pack's other_examples; method routing and the
// tool/resource split follow the service's own domain rather than any
// single example.
package rpc

import (
	"context"
	"encoding/json"

	"github.com/logrelay/logrelay/internal/diag"
	"github.com/logrelay/logrelay/internal/sourcemgr"
	"github.com/logrelay/logrelay/internal/store"
)

const jsonrpcVersion = "2.0"

// Standard JSON-RPC 2.0 error codes, the subset this server needs.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Request is one JSON-RPC 2.0 call or notification.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request carries no id, and so
// expects no response.
func (r Request) IsNotification() bool {
	return len(r.ID) == 0 || string(r.ID) == "null"
}

// Response is one JSON-RPC 2.0 reply.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Handler processes one method's params and returns a result or an
// error, never both.
type Handler func(ctx context.Context, params json.RawMessage) (any, *Error)

// Dispatcher routes requests to registered handlers.
type Dispatcher struct {
	store   store.Store
	sources *sourcemgr.Manager
	diag    *diag.Registry
	methods map[string]Handler
}

// New builds a dispatcher with every tool and resource method registered.
func New(st store.Store, sources *sourcemgr.Manager, diagnostics *diag.Registry) *Dispatcher {
	d := &Dispatcher{
		store:   st,
		sources: sources,
		diag:    diagnostics,
		methods: make(map[string]Handler),
	}
	d.registerCore()
	d.registerTools()
	d.registerResources()
	return d
}

func (d *Dispatcher) registerCore() {
	d.methods["initialize"] = d.handleInitialize
	d.methods["notifications/initialized"] = d.handleInitialized
	d.methods["ping"] = d.handlePing
}

func (d *Dispatcher) handleInitialize(ctx context.Context, params json.RawMessage) (any, *Error) {
	return map[string]any{
		"protocolVersion": "2024-11-05",
		"capabilities": map[string]any{
			"tools":     map[string]any{},
			"resources": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    "logrelay",
			"version": "1.0.0",
		},
	}, nil
}

func (d *Dispatcher) handleInitialized(ctx context.Context, params json.RawMessage) (any, *Error) {
	d.diag.Log("rpc", "client acknowledged initialization")
	return nil, nil
}

func (d *Dispatcher) handlePing(ctx context.Context, params json.RawMessage) (any, *Error) {
	return map[string]any{}, nil
}

// Dispatch parses a single JSON-RPC message and returns the response to
// send, or nil for a notification that produces no response.
func (d *Dispatcher) Dispatch(ctx context.Context, raw []byte) *Response {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return &Response{
			JSONRPC: jsonrpcVersion,
			Error:   &Error{Code: CodeParseError, Message: "parse error: " + err.Error()},
		}
	}

	handler, ok := d.methods[req.Method]
	if !ok {
		if req.IsNotification() {
			return nil
		}
		return &Response{
			JSONRPC: jsonrpcVersion,
			ID:      req.ID,
			Error:   &Error{Code: CodeMethodNotFound, Message: "Method not found: " + req.Method},
		}
	}

	result, handlerErr := handler(ctx, req.Params)
	if req.IsNotification() {
		if handlerErr != nil {
			d.diag.Error("rpc", "notification "+req.Method+" failed: "+handlerErr.Message)
		}
		return nil
	}

	resp := &Response{JSONRPC: jsonrpcVersion, ID: req.ID}
	if handlerErr != nil {
		resp.Error = handlerErr
	} else {
		resp.Result = result
	}
	return resp
}

func internalError(err error) *Error {
	return &Error{Code: CodeInternalError, Message: err.Error()}
}

func invalidParams(err error) *Error {
	return &Error{Code: CodeInvalidParams, Message: err.Error()}
}
