package jsonrpc

// Result represents a method result value
type Result interface{}

// Response represents a JSON-RPC response object.
// Exactly one of Result or Error is set; the ID echoes the request's ID,
// or is null when the request could not be parsed at all.
type Response struct {
	Version string `json:"jsonrpc"`
	Result  Result `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
	ID      ID     `json:"id"`
}

// NewResponse creates a new Response object
func NewResponse(id interface{}, result Result, err *Error) Response {
	respID, _ := NewID(id)

	return Response{
		Version: Version,
		ID:      respID,
		Result:  result,
		Error:   err,
	}
}
