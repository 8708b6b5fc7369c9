package llm

import (
	"context"
	"sync"

	"vla/internal/domain"
)

// DefaultLocalReply is what LocalProvider answers when it has no script.
const DefaultLocalReply = "Final Answer: Thanks for reaching out! A member of our leasing team will follow up with you shortly."

// LocalProvider is a model-agnostic stub for running without API keys. It
// replays a script of replies in order and repeats the last one once the
// script is exhausted. It implements domain.LLMProvider.
type LocalProvider struct {
	mu      sync.Mutex
	replies []string
	prompts []string
	calls   int
}

// NewLocalProvider returns a provider that replays replies. With no replies
// it always answers DefaultLocalReply.
func NewLocalProvider(replies ...string) *LocalProvider {
	return &LocalProvider{replies: replies}
}

// Generate implements domain.LLMProvider.
func (p *LocalProvider) Generate(ctx context.Context, prompt string, _ domain.GenerateOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts = append(p.prompts, prompt)
	p.calls++
	if len(p.replies) == 0 {
		return DefaultLocalReply, nil
	}
	i := p.calls - 1
	if i >= len(p.replies) {
		i = len(p.replies) - 1
	}
	return p.replies[i], nil
}

// Prompts returns every prompt received so far.
func (p *LocalProvider) Prompts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.prompts...)
}

// Ensure LocalProvider implements domain.LLMProvider at compile time.
var _ domain.LLMProvider = (*LocalProvider)(nil)
