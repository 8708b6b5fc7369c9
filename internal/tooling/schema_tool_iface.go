package tooling

import (
	"context"
	"encoding/json"

	"vla/internal/domain"
)

// SchemaTool is a tool whose input is described by a JSON Schema generated from
// a Go struct via invopop/jsonschema. The agent renders Definition() into the
// prompt and validates the model's arguments before calling Call().
type SchemaTool interface {
	// Name returns the unique tool name the model refers to (e.g. "get_current_time").
	Name() string
	// Description returns a human-readable description for the model.
	Description() string
	// Definition returns the JSON Schema string for the tool's input struct.
	Definition() string
	// Call executes the tool with the given JSON arguments.
	// Implementations must validate args against the schema before execution.
	Call(ctx context.Context, args json.RawMessage) (*domain.ToolResult, error)
}
