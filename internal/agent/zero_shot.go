package agent

import (
	"context"

	"vla/internal/brain"
	"vla/internal/domain"
)

// ZeroShot is the stateless agent: every Run sees only the prompt prefix,
// the tools and the message.
type ZeroShot struct {
	exec *Executor
}

// NewZeroShot binds an LLM, a tool set and a configuration.
func NewZeroShot(llm domain.LLMProvider, tools *brain.ToolDispatcher, cfg Config, opts ...Option) (*ZeroShot, error) {
	exec, err := newExecutor(llm, tools, zeroShotStyle{}, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &ZeroShot{exec: exec}, nil
}

// Run answers one prospect message.
func (a *ZeroShot) Run(ctx context.Context, message string) (string, error) {
	res, err := a.exec.execute(ctx, "", message)
	if err != nil {
		return "", err
	}
	return res.Answer, nil
}

// RunDetailed answers one message and returns the intermediate steps.
func (a *ZeroShot) RunDetailed(ctx context.Context, message string) (Result, error) {
	return a.exec.execute(ctx, "", message)
}
