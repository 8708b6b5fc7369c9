// Package brain fronts the configured language models for the agents. It
// bounds each call, fails over to backup models and cuts replies at the stop
// sequences so a model that ignores them cannot invent its own observations.
package brain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"vla/internal/domain"
	"vla/internal/metrics"
)

// Option configures a Brain.
type Option func(*Brain)

// WithLogger sets the logger. Nil keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(b *Brain) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithFallbacks appends backup models tried in order after the primary fails.
// Nil entries are skipped.
func WithFallbacks(providers ...domain.LLMProvider) Option {
	return func(b *Brain) {
		for _, p := range providers {
			if p != nil {
				b.models = append(b.models, p)
			}
		}
	}
}

// WithCallTimeout bounds every model round-trip. Zero leaves only the
// caller's deadline.
func WithCallTimeout(d time.Duration) Option {
	return func(b *Brain) {
		if d > 0 {
			b.callTimeout = d
		}
	}
}

// Brain implements domain.LLMProvider over an ordered list of models.
type Brain struct {
	models      []domain.LLMProvider // models[0] is the primary
	callTimeout time.Duration
	logger      *slog.Logger
}

// NewBrain panics on a nil primary model.
func NewBrain(primary domain.LLMProvider, opts ...Option) *Brain {
	if primary == nil {
		panic("brain: provider must not be nil")
	}
	b := &Brain{models: []domain.LLMProvider{primary}, logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Generate asks each model in turn until one answers. The answer is cut at
// the first stop sequence it contains.
func (b *Brain) Generate(ctx context.Context, prompt string, opts domain.GenerateOptions) (string, error) {
	var errs []error
	for i, m := range b.models {
		if i > 0 {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			b.logger.Warn("model failed, trying fallback", "fallback", i, "error", errs[len(errs)-1])
		}
		out, err := b.call(ctx, m, prompt, opts)
		if err == nil {
			return truncateAtStop(out, opts.Stop), nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 1 {
		return "", errs[0]
	}
	return "", fmt.Errorf("brain: all %d models failed: %w", len(errs), errors.Join(errs...))
}

// call runs one round-trip under the call timeout and records it.
func (b *Brain) call(ctx context.Context, m domain.LLMProvider, prompt string, opts domain.GenerateOptions) (string, error) {
	if b.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.callTimeout)
		defer cancel()
	}
	start := time.Now()
	out, err := m.Generate(ctx, prompt, opts)
	outcome := "ok"
	if errors.Is(err, context.DeadlineExceeded) {
		outcome = "timeout"
	} else if err != nil {
		outcome = "error"
	}
	metrics.ObserveLLM(outcome, time.Since(start))
	return out, err
}

// truncateAtStop drops everything from the earliest stop sequence on.
func truncateAtStop(s string, stop []string) string {
	cut := len(s)
	for _, seq := range stop {
		if seq == "" {
			continue
		}
		if i := strings.Index(s, seq); i >= 0 && i < cut {
			cut = i
		}
	}
	return s[:cut]
}

var _ domain.LLMProvider = (*Brain)(nil)
