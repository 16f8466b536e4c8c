package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/qiq-ai/typesense-mcp/jsonrpc"
)

// Stream is one open server-sent event connection
type Stream struct {
	id      string
	w       http.ResponseWriter
	flusher http.Flusher
	ctx     context.Context
	mu      sync.Mutex
}

// writeEvent writes a single SSE event frame and flushes it
func (s *Stream) writeEvent(event string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.ctx.Done():
		return fmt.Errorf("stream closed")
	default:
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// StreamRegistry tracks open streams so responses can be broadcast to them.
// A stream whose write fails is removed without affecting the others.
type StreamRegistry struct {
	mu      sync.RWMutex
	streams map[string]*Stream
}

// NewStreamRegistry creates an empty stream registry
func NewStreamRegistry() *StreamRegistry {
	return &StreamRegistry{
		streams: make(map[string]*Stream),
	}
}

func (r *StreamRegistry) add(s *Stream) {
	r.mu.Lock()
	r.streams[s.id] = s
	r.mu.Unlock()
}

func (r *StreamRegistry) remove(id string) {
	r.mu.Lock()
	delete(r.streams, id)
	r.mu.Unlock()
}

// Len returns the number of open streams
func (r *StreamRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.streams)
}

// Broadcast sends payload as a message event to every open stream,
// best-effort
func (r *StreamRegistry) Broadcast(payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}

	r.mu.RLock()
	streams := make([]*Stream, 0, len(r.streams))
	for _, s := range r.streams {
		streams = append(streams, s)
	}
	r.mu.RUnlock()

	for _, s := range streams {
		if err := s.writeEvent("message", data); err != nil {
			r.remove(s.id)
		}
	}
}

// SSETransport serves a long-lived text/event-stream of message and ping
// events. Each stream opens with the initialize result, then receives
// keep-alive pings until the client disconnects.
type SSETransport struct {
	server    *Server
	streams   *StreamRegistry
	keepAlive time.Duration
	logger    *slog.Logger
}

// NewSSETransport creates a server-push transport backed by the given
// stream registry
func NewSSETransport(server *Server, streams *StreamRegistry, logger *slog.Logger) *SSETransport {
	return &SSETransport{
		server:    server,
		streams:   streams,
		keepAlive: 25 * time.Second,
		logger:    logger,
	}
}

func (t *SSETransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	stream := &Stream{
		id:      uuid.NewString(),
		w:       w,
		flusher: flusher,
		ctx:     r.Context(),
	}
	t.streams.add(stream)
	defer t.streams.remove(stream.id)

	t.logger.Debug("stream opened", "stream", stream.id, "remote", r.RemoteAddr)

	init := jsonrpc.NewResponse(nil, t.server.InitializeResult(), nil)
	data, err := json.Marshal(init)
	if err == nil {
		if err := stream.writeEvent("message", data); err != nil {
			return
		}
	}

	ticker := time.NewTicker(t.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			t.logger.Debug("stream closed", "stream", stream.id)
			return
		case <-ticker.C:
			if err := stream.writeEvent("ping", []byte("{}")); err != nil {
				return
			}
		}
	}
}
