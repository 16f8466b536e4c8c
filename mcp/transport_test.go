package mcp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/qiq-ai/typesense-mcp/jsonrpc"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTransportTestServer(t *testing.T) *Server {
	t.Helper()
	server, _ := setupTestServer(t)
	return server
}

func TestHTTPTransportPost(t *testing.T) {
	ts := httptest.NewServer(NewHTTPTransport(newTransportTestServer(t), nil, discardLogger()))
	defer ts.Close()

	body := `{"jsonrpc":"2.0","method":"tools/list","id":5}`
	resp, err := http.Post(ts.URL, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	assert.Equal(t, float64(5), decoded["id"])

	result, ok := decoded["result"].(map[string]interface{})
	require.True(t, ok)
	tools, ok := result["tools"].([]interface{})
	require.True(t, ok)
	assert.Len(t, tools, 3)
}

func TestHTTPTransportGetRequiresUpgrade(t *testing.T) {
	ts := httptest.NewServer(NewHTTPTransport(newTransportTestServer(t), nil, discardLogger()))
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

func TestHTTPTransportParseError(t *testing.T) {
	ts := httptest.NewServer(NewHTTPTransport(newTransportTestServer(t), nil, discardLogger()))
	defer ts.Close()

	resp, err := http.Post(ts.URL, "application/json", strings.NewReader(`{not json`))
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))

	errObj, ok := decoded["error"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(-32700), errObj["code"])
	assert.Nil(t, decoded["id"])
}

func TestWSTransportRequiresUpgrade(t *testing.T) {
	ts := httptest.NewServer(NewWSTransport(newTransportTestServer(t), discardLogger()))
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

func TestWSTransportRoundTrip(t *testing.T) {
	ts := httptest.NewServer(NewWSTransport(newTransportTestServer(t), discardLogger()))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	config, err := websocket.NewConfig(wsURL, "http://localhost/")
	require.NoError(t, err)
	config.Protocol = []string{"jsonrpc"}

	conn, err := websocket.DialConfig(config)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, json.NewEncoder(conn).Encode(jsonrpc.NewRequest("initialize", nil, 1)))

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(conn).Decode(&resp))

	result, ok := resp["result"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, Version, result["protocolVersion"])

	// a second frame on the same connection
	params, err := json.Marshal(ToolCallParams{Name: "echo", Arguments: map[string]interface{}{"text": "hi"}})
	require.NoError(t, err)
	require.NoError(t, json.NewEncoder(conn).Encode(jsonrpc.NewRequest("tools/call", params, 2)))

	var second map[string]interface{}
	require.NoError(t, json.NewDecoder(conn).Decode(&second))
	assert.Equal(t, float64(2), second["id"])
}

func TestSelectSubprotocol(t *testing.T) {
	tests := []struct {
		name    string
		offered []string
		want    string
	}{
		{"mcp preferred", []string{"jsonrpc", "mcp"}, "mcp"},
		{"jsonrpc fallback", []string{"jsonrpc", "other"}, "jsonrpc"},
		{"unknown offers", []string{"graphql-ws"}, "mcp"},
		{"nothing offered", nil, "mcp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, selectSubprotocol(tt.offered))
		})
	}
}

// readEvent reads one SSE event frame from the stream
func readEvent(t *testing.T, reader *bufio.Reader) (event string, data string) {
	t.Helper()
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && event != "":
			return event, data
		}
	}
}

func TestSSEStream(t *testing.T) {
	server := newTransportTestServer(t)
	streams := NewStreamRegistry()

	sse := NewSSETransport(server, streams, discardLogger())
	sse.keepAlive = 30 * time.Millisecond

	mux := http.NewServeMux()
	mux.Handle("/events", sse)
	mux.Handle("/rpc", NewHTTPTransport(server, streams, discardLogger()))

	ts := httptest.NewServer(mux)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	reader := bufio.NewReader(resp.Body)

	// the stream opens with the initialize result
	event, data := readEvent(t, reader)
	assert.Equal(t, "message", event)
	assert.Contains(t, data, "protocolVersion")

	// keep-alive pings follow
	event, _ = readEvent(t, reader)
	assert.Equal(t, "ping", event)

	// a POST result is returned to the caller and broadcast to the stream
	body := `{"jsonrpc":"2.0","method":"tools/list","id":"bcast-1"}`
	postResp, err := http.Post(ts.URL+"/rpc", "application/json", bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	postResp.Body.Close()

	for {
		event, data = readEvent(t, reader)
		if event == "ping" {
			continue
		}
		break
	}
	assert.Equal(t, "message", event)
	assert.Contains(t, data, "bcast-1")
	assert.Contains(t, data, "tools")
}

func TestSSEStreamRemovedOnDisconnect(t *testing.T) {
	server := newTransportTestServer(t)
	streams := NewStreamRegistry()

	sse := NewSSETransport(server, streams, discardLogger())
	sse.keepAlive = 10 * time.Millisecond

	ts := httptest.NewServer(sse)
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return streams.Len() == 1 }, time.Second, 10*time.Millisecond)

	resp.Body.Close()

	require.Eventually(t, func() bool { return streams.Len() == 0 }, time.Second, 10*time.Millisecond)
}
