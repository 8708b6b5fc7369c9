// Package retry retries transient LLM failures with capped exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"vla/internal/domain"
)

// Config controls retry behaviour for LLM calls.
type Config struct {
	MaxRetries     int           // retries after the first attempt (0 = none)
	InitialBackoff time.Duration // delay before the first retry
	MaxBackoff     time.Duration // cap on any single delay
	Multiplier     float64       // growth per retry, >= 1
}

// DefaultConfig returns the defaults written to a fresh vla.json.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
	}
}

// FromDomain converts the file config (milliseconds). Zero or negative
// fields fall back to DefaultConfig, except MaxRetries.
func FromDomain(rc domain.RetryConfig) Config {
	def := DefaultConfig()
	cfg := Config{
		MaxRetries:     rc.MaxRetries,
		InitialBackoff: time.Duration(rc.InitialBackoff) * time.Millisecond,
		MaxBackoff:     time.Duration(rc.MaxBackoff) * time.Millisecond,
		Multiplier:     float64(rc.Multiplier),
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = def.Multiplier
	}
	return cfg
}

// Validate checks that all Config fields are within acceptable ranges.
func (c Config) Validate() error {
	switch {
	case c.MaxRetries < 0:
		return errors.New("retry: MaxRetries must be >= 0")
	case c.InitialBackoff <= 0:
		return errors.New("retry: InitialBackoff must be > 0")
	case c.MaxBackoff < c.InitialBackoff:
		return errors.New("retry: MaxBackoff must be >= InitialBackoff")
	case c.Multiplier < 1.0:
		return errors.New("retry: Multiplier must be >= 1.0")
	}
	return nil
}

// backoff returns the delay before retry n (0-based).
func (c Config) backoff(n int) time.Duration {
	d := c.InitialBackoff
	for i := 0; i < n; i++ {
		d = time.Duration(float64(d) * c.Multiplier)
		if d >= c.MaxBackoff {
			return c.MaxBackoff
		}
	}
	return d
}

// =============================================================================
// Error Classification
// =============================================================================

// StatusCoder is implemented by provider errors that carry the HTTP status
// of the failed call.
type StatusCoder interface {
	HTTPStatus() int
}

// transientMessages are substrings of errors from providers that do not
// expose a status code.
var transientMessages = []string{
	"connection refused",
	"connection reset",
	"EOF",
	"status 429", "status 500", "status 502", "status 503", "status 504", "status 529",
}

// IsRetryable reports whether err is a transient failure: 429, 529, 500-504,
// a network timeout or a dropped connection. Context errors never are.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		code := sc.HTTPStatus()
		return code == 429 || code == 529 || (code >= 500 && code <= 504)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := err.Error()
	for _, s := range transientMessages {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// =============================================================================
// Do
// =============================================================================

// wait sleeps for d or until ctx is done. Tests replace it.
var wait = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do runs fn until it succeeds, fails permanently or retries run out.
// The last error is wrapped with the attempt count.
func Do(ctx context.Context, cfg Config, logger *slog.Logger, op string, fn func(context.Context) error) error {
	if logger == nil {
		logger = slog.Default()
	}
	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		if attempt == cfg.MaxRetries {
			return fmt.Errorf("%s: retries exhausted after %d attempts: %w", op, attempt+1, err)
		}
		delay := cfg.backoff(attempt)
		logger.Warn("transient failure, retrying", "op", op, "attempt", attempt+1, "delay", delay, "error", err)
		if werr := wait(ctx, delay); werr != nil {
			return werr
		}
	}
}

// =============================================================================
// Provider
// =============================================================================

// Provider decorates an LLMProvider with Do.
type Provider struct {
	inner  domain.LLMProvider
	config Config
	logger *slog.Logger
}

// NewProvider wraps inner. inner must not be nil; a nil logger uses slog.Default.
func NewProvider(inner domain.LLMProvider, cfg Config, logger *slog.Logger) *Provider {
	if inner == nil {
		panic("retry: inner provider must not be nil")
	}
	return &Provider{inner: inner, config: cfg, logger: logger}
}

// Generate implements domain.LLMProvider.
func (p *Provider) Generate(ctx context.Context, prompt string, opts domain.GenerateOptions) (string, error) {
	var out string
	err := Do(ctx, p.config, p.logger, "llm generate", func(ctx context.Context) error {
		var err error
		out, err = p.inner.Generate(ctx, prompt, opts)
		return err
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

var _ domain.LLMProvider = (*Provider)(nil)
