package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"vla/internal/domain"
)

// =============================================================================
// Test Doubles
// =============================================================================

type statusErr int

func (e statusErr) Error() string   { return fmt.Sprintf("provider: status %d", int(e)) }
func (e statusErr) HTTPStatus() int { return int(e) }

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

// scriptedProvider fails with errs in order, then answers "ok".
type scriptedProvider struct {
	errs  []error
	calls int
}

func (p *scriptedProvider) Generate(context.Context, string, domain.GenerateOptions) (string, error) {
	p.calls++
	if p.calls <= len(p.errs) {
		return "", p.errs[p.calls-1]
	}
	return "ok", nil
}

// recordWaits replaces wait for the duration of a test.
func recordWaits(t *testing.T) *[]time.Duration {
	t.Helper()
	var waits []time.Duration
	prev := wait
	wait = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	t.Cleanup(func() { wait = prev })
	return &waits
}

func fastConfig(retries int) Config {
	return Config{MaxRetries: retries, InitialBackoff: 100 * time.Millisecond, MaxBackoff: 250 * time.Millisecond, Multiplier: 2}
}

// =============================================================================
// Config
// =============================================================================

func TestFromDomain_ShouldConvertMillisecondsAndFillGaps(t *testing.T) {
	got := FromDomain(domain.RetryConfig{MaxRetries: 2, InitialBackoff: 200, MaxBackoff: 0, Multiplier: 0})
	want := Config{MaxRetries: 2, InitialBackoff: 200 * time.Millisecond, MaxBackoff: 30 * time.Second, Multiplier: 2}
	if got != want {
		t.Errorf("want %+v, got %+v", want, got)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("converted config should validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"defaults", DefaultConfig(), true},
		{"negative retries", Config{MaxRetries: -1, InitialBackoff: 1, MaxBackoff: 1, Multiplier: 1}, false},
		{"zero backoff", Config{InitialBackoff: 0, MaxBackoff: 1, Multiplier: 1}, false},
		{"cap below start", Config{InitialBackoff: 2, MaxBackoff: 1, Multiplier: 1}, false},
		{"shrinking", Config{InitialBackoff: 1, MaxBackoff: 1, Multiplier: 0.5}, false},
	}
	for _, tt := range tests {
		if err := tt.cfg.Validate(); (err == nil) != tt.ok {
			t.Errorf("%s: ok=%v, got %v", tt.name, tt.ok, err)
		}
	}
}

func TestConfig_Backoff_ShouldGrowAndCap(t *testing.T) {
	cfg := fastConfig(5)
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 250 * time.Millisecond, 250 * time.Millisecond}
	for n, w := range want {
		if got := cfg.backoff(n); got != w {
			t.Errorf("backoff(%d): want %v, got %v", n, w, got)
		}
	}
}

// =============================================================================
// IsRetryable
// =============================================================================

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), false},
		{"429 status", statusErr(429), true},
		{"529 overloaded", statusErr(529), true},
		{"503 status", fmt.Errorf("openai: %w", statusErr(503)), true},
		{"400 status", statusErr(400), false},
		{"401 status", statusErr(401), false},
		{"net timeout", &net.OpError{Op: "read", Err: timeoutErr{}}, true},
		{"refused", errors.New("dial tcp: connection refused"), true},
		{"eof", errors.New("unexpected EOF"), true},
		{"status text", errors.New("ollama: status 502"), true},
		{"bad request text", errors.New("invalid prompt"), false},
	}
	for _, tt := range tests {
		if got := IsRetryable(tt.err); got != tt.want {
			t.Errorf("%s: want %v, got %v", tt.name, tt.want, got)
		}
	}
}

// =============================================================================
// Do / Provider
// =============================================================================

func TestDo_WhenTransientThenSuccess_ShouldRetryWithBackoff(t *testing.T) {
	waits := recordWaits(t)
	calls := 0
	err := Do(context.Background(), fastConfig(3), nil, "test", func(context.Context) error {
		calls++
		if calls < 3 {
			return statusErr(503)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Errorf("want 3 calls, got %d", calls)
	}
	if len(*waits) != 2 || (*waits)[0] != 100*time.Millisecond || (*waits)[1] != 200*time.Millisecond {
		t.Errorf("unexpected waits %v", *waits)
	}
}

func TestDo_WhenPermanentError_ShouldNotRetry(t *testing.T) {
	waits := recordWaits(t)
	calls := 0
	err := Do(context.Background(), fastConfig(3), nil, "test", func(context.Context) error {
		calls++
		return statusErr(401)
	})
	if calls != 1 || len(*waits) != 0 {
		t.Errorf("want one call and no waits, got %d calls %v", calls, *waits)
	}
	var sc StatusCoder
	if !errors.As(err, &sc) || sc.HTTPStatus() != 401 {
		t.Errorf("want original error, got %v", err)
	}
}

func TestDo_WhenRetriesExhausted_ShouldWrapLastError(t *testing.T) {
	recordWaits(t)
	calls := 0
	err := Do(context.Background(), fastConfig(2), nil, "llm generate", func(context.Context) error {
		calls++
		return statusErr(429)
	})
	if calls != 3 {
		t.Errorf("want 3 attempts, got %d", calls)
	}
	if err == nil || !strings.Contains(err.Error(), "retries exhausted after 3 attempts") {
		t.Errorf("unexpected error %v", err)
	}
	var sc StatusCoder
	if !errors.As(err, &sc) {
		t.Error("last error should stay unwrappable")
	}
}

func TestDo_WhenContextCancelledDuringWait_ShouldReturnContextError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	recordWaits(t)
	err := Do(ctx, fastConfig(3), nil, "test", func(context.Context) error { return statusErr(503) })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("want context.Canceled, got %v", err)
	}
}

func TestWait_ShouldHonourContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := wait(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("want context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("wait should return as soon as the context is done")
	}
	if err := wait(context.Background(), time.Millisecond); err != nil {
		t.Errorf("short wait: %v", err)
	}
}

func TestProvider_ShouldRetryGenerate(t *testing.T) {
	recordWaits(t)
	inner := &scriptedProvider{errs: []error{statusErr(529), errors.New("unexpected EOF")}}
	p := NewProvider(inner, fastConfig(3), nil)
	out, err := p.Generate(context.Background(), "prompt", domain.GenerateOptions{})
	if err != nil || out != "ok" {
		t.Fatalf("want ok, got %q %v", out, err)
	}
	if inner.calls != 3 {
		t.Errorf("want 3 calls, got %d", inner.calls)
	}
}

func TestNewProvider_WhenInnerNil_ShouldPanic(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewProvider(nil) should panic")
		}
	}()
	NewProvider(nil, DefaultConfig(), nil)
}
