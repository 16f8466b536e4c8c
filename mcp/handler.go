package mcp

import (
	"log/slog"
	"net/http"
)

// NewHandler mounts all three transports on a single mux:
// /ws for persistent bidirectional connections, /rpc for single
// request/response envelopes, and /events for the server-push stream fed
// by /rpc results.
func NewHandler(server *Server, logger *slog.Logger) http.Handler {
	streams := NewStreamRegistry()

	mux := http.NewServeMux()
	mux.Handle("/ws", NewWSTransport(server, logger))
	mux.Handle("/rpc", NewHTTPTransport(server, streams, logger))
	mux.Handle("/events", NewSSETransport(server, streams, logger))
	return mux
}
