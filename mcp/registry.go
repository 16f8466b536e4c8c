package mcp

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidToolDefinition is returned when a tool is registered without a
// name or without a call function.
var ErrInvalidToolDefinition = errors.New("invalid tool definition")

// ToolFunc executes a tool call. Implementations are expected to contain
// their own failures and return degraded results; an error or panic that
// escapes is converted to a protocol error by the dispatcher.
type ToolFunc func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// ToolDef is a registered tool: the wire-visible descriptor plus its call
// function.
type ToolDef struct {
	Name         string
	Description  string
	InputSchema  map[string]interface{}
	OutputSchema map[string]interface{}
	Call         ToolFunc
}

// Descriptor returns the wire-visible portion of the tool definition.
func (d ToolDef) Descriptor() Tool {
	return Tool{
		Name:         d.Name,
		Description:  d.Description,
		InputSchema:  d.InputSchema,
		OutputSchema: d.OutputSchema,
	}
}

// Registry holds tool definitions by name. Re-registering a known name
// replaces the prior definition atomically.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]ToolDef
	order []string
}

// NewRegistry creates an empty tool registry
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]ToolDef),
	}
}

// Register adds or replaces a tool definition
func (r *Registry) Register(def ToolDef) error {
	if def.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidToolDefinition)
	}
	if def.Call == nil {
		return fmt.Errorf("%w: tool %q has no call function", ErrInvalidToolDefinition, def.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[def.Name]; !exists {
		r.order = append(r.order, def.Name)
	}
	r.tools[def.Name] = def
	return nil
}

// List returns the descriptors of every registered tool, in registration order
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		tools = append(tools, r.tools[name].Descriptor())
	}
	return tools
}

// Get returns the definition registered under name
func (r *Registry) Get(name string) (ToolDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.tools[name]
	return def, ok
}
