package domain

import "context"

// LLMProvider is the model-agnostic interface for text generation.
// Implementations may be OpenAI, Anthropic, Ollama, local scripts, or mocks.
type LLMProvider interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// Tokenizer counts tokens in a string for LLM context window management.
type Tokenizer interface {
	// CountTokens returns the number of tokens in the given text.
	CountTokens(text string) (int, error)
}

// ContextManager fits messages into a model's context window.
type ContextManager interface {
	// FitToWindow takes messages and a system prompt, and returns messages
	// that fit within the configured token limit. The system prompt tokens
	// are always reserved. Older messages are dropped first (sliding window).
	FitToWindow(messages []Message, systemPrompt string) ([]Message, error)
}

// ActionRecorder receives a short description of every completed tool action
// so the conversation state can report what the agent did on the prospect's
// behalf.
type ActionRecorder interface {
	RecordAction(ctx context.Context, action string) error
}

// ActionRecorderFunc adapts a function to ActionRecorder.
type ActionRecorderFunc func(ctx context.Context, action string) error

func (f ActionRecorderFunc) RecordAction(ctx context.Context, action string) error {
	return f(ctx, action)
}
