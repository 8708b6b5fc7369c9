package brain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"vla/internal/domain"
	"vla/internal/metrics"
	"vla/internal/tooling"
)

// msgToolFailed is the observation returned when a tool errors or panics.
const msgToolFailed = "Sorry, something went wrong while handling that request."

// ToolDispatcher connects the brain to SchemaTool implementations.
// It formats tool definitions for the prompt and validates the model's
// arguments against each tool's schema before execution.
type ToolDispatcher struct {
	registry *tooling.ToolRegistry
	logger   *slog.Logger
}

// DispatcherOption configures a ToolDispatcher.
type DispatcherOption func(*ToolDispatcher)

// WithDispatcherLogger sets the logger. Nil is ignored.
func WithDispatcherLogger(l *slog.Logger) DispatcherOption {
	return func(d *ToolDispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewToolDispatcher creates a dispatcher backed by the given registry.
// Panics if registry is nil.
func NewToolDispatcher(registry *tooling.ToolRegistry, opts ...DispatcherOption) *ToolDispatcher {
	if registry == nil {
		panic("tool_dispatcher: registry must not be nil")
	}
	d := &ToolDispatcher{registry: registry, logger: slog.Default()}
	for _, o := range opts {
		o(d)
	}
	return d
}

// FormatToolsForLLM returns the registered tool definitions in registration order.
func (d *ToolDispatcher) FormatToolsForLLM() []domain.ToolDefinition {
	return d.registry.Definitions()
}

// Names returns the registered tool names.
func (d *ToolDispatcher) Names() []string {
	return d.registry.Names()
}

// HandleToolCall looks up the tool by name, validates the raw JSON arguments
// against the tool's JSON Schema, and only then calls the tool. If the tool is
// unknown or validation fails, a descriptive error is returned and the tool is
// never invoked.
func (d *ToolDispatcher) HandleToolCall(ctx context.Context, name string, args json.RawMessage) (*domain.ToolResult, error) {
	tool, err := d.registry.Get(name)
	if err != nil {
		return nil, err // "unknown tool: ..."
	}

	if len(bytes.TrimSpace(args)) == 0 {
		args = json.RawMessage("{}")
	}
	if err := tooling.ValidateAgainstSchema(args, tool.Definition()); err != nil {
		return nil, fmt.Errorf("schema validation failed for tool %q: %w", name, err)
	}

	return tool.Call(ctx, args)
}

// Invoke runs a tool on the model's raw action input and always returns the
// observation text. Unknown tools, invalid input, tool errors and panics all
// become text the model can react to.
func (d *ToolDispatcher) Invoke(ctx context.Context, name, input string) (observation string) {
	start := time.Now()
	status := string(domain.ToolFailed)
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tool panicked", "tool", name, "panic", r)
			observation = msgToolFailed
			status = string(domain.ToolFailed)
		}
		metrics.ObserveTool(name, status, time.Since(start))
	}()

	tool, err := d.registry.Get(name)
	if err != nil {
		status = "unknown"
		return fmt.Sprintf("%s is not a valid tool, try one of [%s].", name, strings.Join(d.registry.Names(), ", "))
	}

	args := ArgsFromInput(tool.Definition(), input)
	result, err := d.HandleToolCall(ctx, name, args)
	if err != nil {
		if strings.Contains(err.Error(), "schema validation failed") {
			status = "invalid"
			d.logger.Warn("invalid tool input", "tool", name, "input", input, "error", err)
			return fmt.Sprintf("Invalid input for %s: %v", name, err)
		}
		d.logger.Error("tool call failed", "tool", name, "error", err)
		return msgToolFailed
	}
	if result != nil && result.Status != "" {
		status = string(result.Status)
	} else {
		status = string(domain.ToolOK)
	}
	return result.Text()
}

// ArgsFromInput turns a model's action input into a JSON object for a tool.
// JSON objects pass through with null members removed. A JSON string or plain
// text is assigned to the tool's first required argument (or its first
// argument when none is required).
func ArgsFromInput(schema, input string) json.RawMessage {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "```json")
	input = strings.Trim(input, "`")
	input = strings.TrimSpace(input)

	if strings.HasPrefix(input, "{") {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal([]byte(input), &obj); err == nil {
			for k, v := range obj {
				if string(bytes.TrimSpace(v)) == "null" {
					delete(obj, k)
				}
			}
			if raw, err := json.Marshal(obj); err == nil {
				return raw
			}
		}
		return json.RawMessage(input)
	}

	var s string
	if err := json.Unmarshal([]byte(input), &s); err == nil {
		input = s
	}
	args := tooling.ArgsFromSchema(schema)
	if len(args) == 0 || input == "" {
		return json.RawMessage("{}")
	}
	target := args[0].Name
	for _, a := range args {
		if a.Required {
			target = a.Name
			break
		}
	}
	raw, _ := json.Marshal(map[string]string{target: input})
	return raw
}
