package mcp

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/qiq-ai/typesense-mcp/jsonrpc"
)

// HTTPTransport serves one JSON-RPC envelope per POST request. Responses
// are also broadcast to any open event streams when a registry is set.
type HTTPTransport struct {
	handler jsonrpc.Handler
	streams *StreamRegistry
	logger  *slog.Logger
}

// NewHTTPTransport creates a request/response transport. streams may be
// nil to disable broadcasting.
func NewHTTPTransport(handler jsonrpc.Handler, streams *StreamRegistry, logger *slog.Logger) *HTTPTransport {
	return &HTTPTransport{
		handler: handler,
		streams: streams,
		logger:  logger,
	}
}

func (t *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		// No request body means no envelope to process
		http.Error(w, "upgrade required: POST a JSON-RPC envelope or connect over WebSocket", http.StatusUpgradeRequired)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		t.writeResponse(w, jsonrpc.NewResponse(nil, nil, jsonrpc.NewError(jsonrpc.ErrParse, err.Error())))
		return
	}

	var request jsonrpc.Request
	if err := json.Unmarshal(body, &request); err != nil {
		t.writeResponse(w, jsonrpc.NewResponse(nil, nil, jsonrpc.NewError(jsonrpc.ErrParse, err.Error())))
		return
	}

	response := t.handler.Handle(r.Context(), request)
	t.writeResponse(w, response)

	if t.streams != nil {
		t.streams.Broadcast(response)
	}
}

func (t *HTTPTransport) writeResponse(w http.ResponseWriter, response jsonrpc.Response) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		t.logger.Error("error encoding response", "error", err)
	}
}
