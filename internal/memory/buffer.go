// Package memory holds the rolling transcript a conversational agent sees.
package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	vlactx "vla/internal/context"
	"vla/internal/domain"
)

// nowFunc is package-level so tests can pin message timestamps.
var nowFunc = time.Now

// Buffer is an append-only conversation transcript. When a ContextManager is
// set, Window and Render return only the most recent messages that fit.
type Buffer struct {
	mu       sync.Mutex
	messages []domain.Message
	window   domain.ContextManager
}

// NewBuffer returns a buffer seeded with prior messages. window may be nil.
func NewBuffer(window domain.ContextManager, seed ...domain.Message) *Buffer {
	b := &Buffer{window: window}
	b.messages = append(b.messages, seed...)
	return b
}

// Add appends a message and returns it.
func (b *Buffer) Add(role domain.MessageRole, text string) domain.Message {
	msg := domain.Message{
		ID:        uuid.NewString(),
		Role:      role,
		Timestamp: nowFunc(),
		Content:   text,
	}
	b.mu.Lock()
	b.messages = append(b.messages, msg)
	b.mu.Unlock()
	return msg
}

// AddExchange appends a prospect message and the agent's reply.
func (b *Buffer) AddExchange(human, ai string) {
	b.Add(domain.RoleUser, human)
	b.Add(domain.RoleAssistant, ai)
}

// Messages returns a copy of every message in order.
func (b *Buffer) Messages() []domain.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Message(nil), b.messages...)
}

// Len returns the number of stored messages.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.messages)
}

// Clear drops every message.
func (b *Buffer) Clear() {
	b.mu.Lock()
	b.messages = nil
	b.mu.Unlock()
}

// Window returns the messages that fit next to systemPrompt. A window never
// starts with an agent reply whose question was trimmed away.
func (b *Buffer) Window(systemPrompt string) ([]domain.Message, error) {
	msgs := b.Messages()
	if b.window == nil || len(msgs) == 0 {
		return msgs, nil
	}
	fitted, err := b.window.FitToWindow(msgs, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("memory: %w", err)
	}
	return fitted, nil
}

// Render returns the windowed transcript as "Human: ..." / "AI: ..." lines.
func (b *Buffer) Render(systemPrompt string) (string, error) {
	msgs, err := b.Window(systemPrompt)
	if err != nil {
		return "", err
	}
	return vlactx.Render(msgs), nil
}
