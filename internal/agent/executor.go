package agent

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"vla/internal/brain"
	"vla/internal/domain"
	"vla/internal/metrics"
)

// msgLLMUnavailable is the reply when the model cannot be reached.
const msgLLMUnavailable = "I'm sorry, I'm having trouble answering right now. A member of our leasing team will follow up with you shortly."

// invalidFormatObservation is fed back when a reply cannot be parsed.
const invalidFormatObservation = "Invalid or incomplete response. Please reply using the required format."

// Executor runs the ReAct loop for one agent style.
type Executor struct {
	llm    domain.LLMProvider
	tools  *brain.ToolDispatcher
	style  style
	cfg    Config
	logger *slog.Logger
}

// Option configures an agent.
type Option func(*Executor)

// WithLogger sets the logger. Nil is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

func newExecutor(llm domain.LLMProvider, tools *brain.ToolDispatcher, s style, cfg Config, opts ...Option) (*Executor, error) {
	if llm == nil {
		return nil, errors.New("agent: llm must not be nil")
	}
	if tools == nil {
		return nil, errors.New("agent: tool dispatcher must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Executor{llm: llm, tools: tools, style: s, cfg: cfg.withDefaults(), logger: slog.Default()}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Result describes a finished turn.
type Result struct {
	Answer string
	Steps  []Step
	// Outcome is "answer", "max_iterations" or "error".
	Outcome string
}

// execute runs the loop. It only returns an error when ctx itself is done;
// model failures degrade to an apologetic answer.
func (e *Executor) execute(ctx context.Context, history, input string) (Result, error) {
	turn := uuid.NewString()
	log := e.logger.With("agent", e.style.name(), "turn", turn)
	tools := e.tools.FormatToolsForLLM()
	opts := domain.GenerateOptions{Temperature: e.cfg.Temperature, Stop: []string{"Observation:"}}

	var steps []Step
	finish := func(answer, outcome string) Result {
		metrics.AgentTurns.WithLabelValues(e.style.name(), outcome).Inc()
		log.Info("turn finished", "outcome", outcome, "steps", len(steps))
		return Result{Answer: answer, Steps: steps, Outcome: outcome}
	}

	for i := 0; i < e.cfg.MaxIterations; i++ {
		prompt := e.style.prompt(e.cfg.Prefix, tools, history, input, steps)
		text, err := e.generate(ctx, prompt, opts)
		if err != nil {
			if ctx.Err() != nil {
				finish(msgLLMUnavailable, "error")
				return Result{}, ctx.Err()
			}
			log.Error("llm call failed", "iteration", i, "error", err)
			return finish(msgLLMUnavailable, "error"), nil
		}

		d, err := e.style.parse(text)
		if err != nil {
			log.Warn("unparseable model reply", "iteration", i, "error", err)
			steps = append(steps, Step{Decision: d, Observation: invalidFormatObservation})
			continue
		}
		if d.Done {
			answer := strings.TrimSpace(d.Final)
			if answer == "" {
				answer = FallbackReply
			}
			return finish(answer, "answer"), nil
		}

		log.Debug("tool call", "tool", d.Tool, "input", d.Input)
		obs := e.tools.Invoke(ctx, d.Tool, d.Input)
		steps = append(steps, Step{Decision: d, Observation: obs})
	}

	log.Warn("max iterations reached", "max", e.cfg.MaxIterations)
	return finish(FallbackReply, "max_iterations"), nil
}

func (e *Executor) generate(ctx context.Context, prompt string, opts domain.GenerateOptions) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()
	start := time.Now()
	text, err := e.llm.Generate(callCtx, prompt, opts)
	if err != nil {
		return "", err
	}
	e.logger.Debug("llm reply", "elapsed", time.Since(start), "chars", len(text))
	return text, nil
}
