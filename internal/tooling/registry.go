package tooling

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"vla/internal/domain"
)

var (
	// ErrUnknownTool is returned by Get for a name nothing registered.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrDuplicateTool is returned by Register when the name is taken.
	ErrDuplicateTool = errors.New("tool already registered")
)

// ToolRegistry holds SchemaTool implementations keyed by name. The agent uses
// it to render tool descriptions into the prompt and dispatch calls. Tools are
// kept in registration order so prompts are stable between turns.
type ToolRegistry struct {
	mu    sync.RWMutex
	order []string
	tools map[string]SchemaTool
}

// NewToolRegistry returns an empty, ready-to-use registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]SchemaTool)}
}

// NewToolRegistryWith registers every tool in order and fails on the first
// nil or duplicate tool.
func NewToolRegistryWith(tools ...SchemaTool) (*ToolRegistry, error) {
	r := NewToolRegistry()
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a named tool after the ones already present.
func (r *ToolRegistry) Register(tool SchemaTool) error {
	if tool == nil {
		return errors.New("tool must not be nil")
	}
	name := tool.Name()
	if name == "" {
		return errors.New("tool name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateTool, name)
	}
	r.tools[name] = tool
	r.order = append(r.order, name)
	return nil
}

// Get looks a tool up by name.
func (r *ToolRegistry) Get(name string) (SchemaTool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return tool, nil
}

// Names returns the registered tool names in registration order.
func (r *ToolRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of registered tools.
func (r *ToolRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// List returns all registered tools in registration order.
func (r *ToolRegistry) List() []SchemaTool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SchemaTool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Definitions returns domain.ToolDefinition for every registered tool, with
// the argument list flattened out of the schema for prompt rendering.
func (r *ToolRegistry) Definitions() []domain.ToolDefinition {
	tools := r.List()
	out := make([]domain.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		def := t.Definition()
		out = append(out, domain.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: json.RawMessage(def),
			Args:        ArgsFromSchema(def),
		})
	}
	return out
}
