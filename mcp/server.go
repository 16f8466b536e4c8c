package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/qiq-ai/typesense-mcp/jsonrpc"
)

// Server dispatches JSON-RPC requests to tools held in a Registry.
// It is stateless per invocation; concurrent calls are not serialized.
type Server struct {
	registry *Registry
	info     ServerInfo
	logger   *slog.Logger
}

// ServerOption configures a Server
type ServerOption func(*Server)

// WithLogger sets the logger used by the server
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithServerInfo sets the name and version reported by initialize
func WithServerInfo(name, version string) ServerOption {
	return func(s *Server) {
		s.info = ServerInfo{Name: name, Version: version}
	}
}

// NewServer creates a new server dispatching to the given registry
func NewServer(registry *Registry, opts ...ServerOption) *Server {
	s := &Server{
		registry: registry,
		info:     ServerInfo{Name: "typesense-mcp", Version: "dev"},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ jsonrpc.Handler = &Server{}

// Handle processes a single JSON-RPC request and returns a response
func (s *Server) Handle(ctx context.Context, request jsonrpc.Request) jsonrpc.Response {
	if request.Method == "" {
		return jsonrpc.NewResponse(request.Id, nil, jsonrpc.NewError(jsonrpc.ErrInvalidRequest, "method is required"))
	}

	s.logger.Debug("handling request", "method", request.Method, "id", request.Id)

	switch request.Method {
	case "initialize":
		return s.handleInitialize(request)
	case "ping":
		return jsonrpc.NewResponse(request.Id, struct{}{}, nil)
	case "tools/list":
		return s.handleToolsList(request)
	case "tools/call":
		return s.handleToolsCall(ctx, request)
	default:
		return jsonrpc.NewResponse(request.Id, nil, jsonrpc.NewError(jsonrpc.ErrMethodNotFound, nil))
	}
}

// InitializeResult returns the result initialize reports, also emitted as
// the opening event on server-push streams.
func (s *Server) InitializeResult() InitializeResponse {
	return InitializeResponse{
		ProtocolVersion: Version,
		Capabilities: ServerCapabilities{
			Tools: &struct {
				ListChanged bool `json:"listChanged"`
			}{ListChanged: false},
		},
		ServerInfo: s.info,
	}
}

func (s *Server) handleInitialize(request jsonrpc.Request) jsonrpc.Response {
	return jsonrpc.NewResponse(request.Id, s.InitializeResult(), nil)
}

func (s *Server) handleToolsList(request jsonrpc.Request) jsonrpc.Response {
	return jsonrpc.NewResponse(request.Id, ToolsListResponse{Tools: s.registry.List()}, nil)
}

func (s *Server) handleToolsCall(ctx context.Context, request jsonrpc.Request) jsonrpc.Response {
	var params ToolCallParams
	if len(request.Params) > 0 {
		if err := json.Unmarshal(request.Params, &params); err != nil {
			return jsonrpc.NewResponse(request.Id, nil, jsonrpc.NewError(jsonrpc.ErrInvalidParams, err.Error()))
		}
	}

	if params.Name == "" {
		return jsonrpc.NewResponse(request.Id, nil, jsonrpc.NewError(jsonrpc.ErrInvalidParams, "tool name is required"))
	}

	def, ok := s.registry.Get(params.Name)
	if !ok {
		return jsonrpc.NewResponse(request.Id, nil, jsonrpc.NewError(jsonrpc.ErrMethodNotFound, fmt.Sprintf("unknown tool: %s", params.Name)))
	}

	args := params.Arguments
	if args == nil {
		args = map[string]interface{}{}
	}

	if err := ValidateToolArguments(def, args); err != nil {
		return jsonrpc.NewResponse(request.Id, nil, jsonrpc.NewError(jsonrpc.ErrInvalidParams, err.Error()))
	}

	result, err := s.callTool(ctx, def, args)
	if err != nil {
		s.logger.Error("tool call failed", "tool", def.Name, "error", err)
		return jsonrpc.NewResponse(request.Id, nil, jsonrpc.NewError(jsonrpc.ErrToolInvocation, err.Error()))
	}

	return jsonrpc.NewResponse(request.Id, result, nil)
}

// callTool invokes the tool's call function, converting a panic into an
// error so no failure escapes the dispatcher.
func (s *Server) callTool(ctx context.Context, def ToolDef, args map[string]interface{}) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %s panicked: %v", def.Name, r)
		}
	}()
	return def.Call(ctx, args)
}
