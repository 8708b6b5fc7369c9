package agent

import (
	"context"

	"vla/internal/brain"
	"vla/internal/domain"
	"vla/internal/memory"
)

// ChatConversational keeps a rolling transcript. Each Run sees the most
// recent exchanges that fit in the memory window and appends its own.
type ChatConversational struct {
	exec   *Executor
	memory *memory.Buffer
}

// NewChatConversational binds an LLM, tools and configuration to a memory
// buffer. A nil buffer starts an empty, unbounded transcript.
func NewChatConversational(llm domain.LLMProvider, tools *brain.ToolDispatcher, cfg Config, mem *memory.Buffer, opts ...Option) (*ChatConversational, error) {
	exec, err := newExecutor(llm, tools, chatStyle{}, cfg, opts...)
	if err != nil {
		return nil, err
	}
	if mem == nil {
		mem = memory.NewBuffer(nil)
	}
	return &ChatConversational{exec: exec, memory: mem}, nil
}

// Memory returns the agent's transcript.
func (a *ChatConversational) Memory() *memory.Buffer { return a.memory }

// Run answers one prospect message and records the exchange.
func (a *ChatConversational) Run(ctx context.Context, message string) (string, error) {
	res, err := a.RunDetailed(ctx, message)
	if err != nil {
		return "", err
	}
	return res.Answer, nil
}

// RunDetailed answers one message, records the exchange and returns the
// intermediate steps.
func (a *ChatConversational) RunDetailed(ctx context.Context, message string) (Result, error) {
	history, err := a.memory.Render("")
	if err != nil {
		a.exec.logger.Warn("memory window failed, continuing without history", "error", err)
		history = ""
	}
	res, err := a.exec.execute(ctx, history, message)
	if err != nil {
		return Result{}, err
	}
	a.memory.AddExchange(message, res.Answer)
	return res, nil
}
