package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/net/websocket"

	"github.com/qiq-ai/typesense-mcp/jsonrpc"
)

const maxDecodeErrorsPerConn = 3

// WSTransport serves a persistent bidirectional JSON-RPC connection over
// WebSocket. Each received frame is dispatched and answered with exactly
// one response frame.
type WSTransport struct {
	handler jsonrpc.Handler
	logger  *slog.Logger
	server  websocket.Server
}

// NewWSTransport creates a WebSocket transport for the given handler
func NewWSTransport(handler jsonrpc.Handler, logger *slog.Logger) *WSTransport {
	t := &WSTransport{
		handler: handler,
		logger:  logger,
	}
	t.server = websocket.Server{
		Handshake: func(config *websocket.Config, req *http.Request) error {
			config.Protocol = []string{selectSubprotocol(offeredSubprotocols(req))}
			return nil
		},
		Handler: t.serve,
	}
	return t
}

func (t *WSTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		http.Error(w, "websocket upgrade required", http.StatusUpgradeRequired)
		return
	}
	t.server.ServeHTTP(w, r)
}

// offeredSubprotocols returns the subprotocols the client offered during
// the handshake
func offeredSubprotocols(r *http.Request) []string {
	var offered []string
	for _, header := range r.Header.Values("Sec-WebSocket-Protocol") {
		for _, proto := range strings.Split(header, ",") {
			if proto = strings.TrimSpace(proto); proto != "" {
				offered = append(offered, proto)
			}
		}
	}
	return offered
}

// selectSubprotocol picks "mcp" if offered, else "jsonrpc" if offered,
// else defaults to "mcp". A missing subprotocol never rejects the
// connection.
func selectSubprotocol(offered []string) string {
	for _, proto := range offered {
		if proto == "mcp" {
			return "mcp"
		}
	}
	for _, proto := range offered {
		if proto == "jsonrpc" {
			return "jsonrpc"
		}
	}
	return "mcp"
}

func (t *WSTransport) serve(conn *websocket.Conn) {
	defer conn.Close()

	ctx := context.Background()
	remote := ""
	if req := conn.Request(); req != nil {
		ctx = req.Context()
		remote = req.RemoteAddr
	}
	t.logger.Debug("websocket connected", "remote", remote)

	decoder := json.NewDecoder(conn)
	encoder := json.NewEncoder(conn)

	decodeErrors := 0
	for {
		var request jsonrpc.Request
		if err := decoder.Decode(&request); err != nil {
			if errors.Is(err, io.EOF) {
				t.logger.Debug("websocket closed", "remote", remote)
				return
			}
			decodeErrors++
			response := jsonrpc.NewResponse(nil, nil, jsonrpc.NewError(jsonrpc.ErrParse, err.Error()))
			if err := encoder.Encode(response); err != nil {
				return
			}
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		response := t.handler.Handle(ctx, request)
		if err := encoder.Encode(response); err != nil {
			t.logger.Error("error encoding response", "error", err)
			return
		}
	}
}
