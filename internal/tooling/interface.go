package tooling

import "vla/internal/domain"

// ToolDefinition and ToolResult are re-exported.
type ToolDefinition = domain.ToolDefinition
type ToolResult = domain.ToolResult

// OK wraps a successful observation.
func OK(text string, meta map[string]string) *ToolResult {
	return &ToolResult{Status: domain.ToolOK, Data: text, Metadata: meta}
}

// Clarify wraps a question back to the prospect.
func Clarify(text string) *ToolResult {
	return &ToolResult{Status: domain.ToolClarify, Data: text}
}

// Rejected wraps a refusal from the scheduling system.
func Rejected(text string, meta map[string]string) *ToolResult {
	return &ToolResult{Status: domain.ToolRejected, Data: text, Metadata: meta}
}

// Failed wraps an infrastructure failure. The text is still safe to show.
func Failed(text string) *ToolResult {
	return &ToolResult{Status: domain.ToolFailed, Data: text}
}
