package context

import (
	"fmt"

	"vla/internal/domain"
)

// Window trims a conversation to the most recent messages whose rendered
// transcript fits a token budget next to the prompt. When older messages are
// dropped the window is realigned to start on a prospect message, so the
// model never sees an agent reply without the question it answered.
type Window struct {
	tokenizer domain.Tokenizer
	budget    int
}

// NewWindow panics on a nil tokenizer or a non-positive budget; both are
// wiring mistakes.
func NewWindow(tokenizer domain.Tokenizer, budget int) *Window {
	if tokenizer == nil {
		panic("context: tokenizer must not be nil")
	}
	if budget <= 0 {
		panic("context: budget must be > 0")
	}
	return &Window{tokenizer: tokenizer, budget: budget}
}

// Budget returns the token budget shared by prompt and transcript.
func (w *Window) Budget() int { return w.budget }

// FitToWindow implements domain.ContextManager.
func (w *Window) FitToWindow(messages []domain.Message, systemPrompt string) ([]domain.Message, error) {
	if len(messages) == 0 {
		return []domain.Message{}, nil
	}
	used := 0
	if systemPrompt != "" {
		n, err := w.tokenizer.CountTokens(systemPrompt)
		if err != nil {
			return nil, fmt.Errorf("context: prompt tokens: %w", err)
		}
		if n > w.budget {
			return nil, fmt.Errorf("context: prompt needs %d tokens, budget is %d", n, w.budget)
		}
		used = n
	}

	start := len(messages)
	for start > 0 {
		n, err := w.tokenizer.CountTokens(MessageText(messages[start-1]))
		if err != nil {
			return nil, fmt.Errorf("context: message %d tokens: %w", start-1, err)
		}
		if used+n > w.budget {
			break
		}
		used += n
		start--
	}
	if start == 0 {
		return messages, nil
	}
	for start < len(messages) && messages[start].Role != domain.RoleUser {
		start++
	}
	return messages[start:], nil
}

var _ domain.ContextManager = (*Window)(nil)
