package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"vla/internal/domain"
)

// movableClock is a domain.Clock tests can advance.
type movableClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *movableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *movableClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestPool(t *testing.T, keys ...string) (*KeyPool, *movableClock) {
	t.Helper()
	pool, err := NewKeyPool(keys, time.Minute)
	if err != nil {
		t.Fatalf("NewKeyPool: %v", err)
	}
	clk := &movableClock{t: time.Date(2024, 7, 24, 9, 0, 0, 0, time.UTC)}
	pool.clock = clk
	return pool, clk
}

// =============================================================================
// KeyPool
// =============================================================================

func TestNewKeyPool_WhenNoKeys_ShouldError(t *testing.T) {
	if _, err := NewKeyPool(nil, time.Minute); err == nil {
		t.Fatal("expected error for empty key list")
	}
}

func TestKeyPool_Next_ShouldRotateRoundRobin(t *testing.T) {
	pool, _ := newTestPool(t, "a", "b", "c")
	var got []string
	for range 4 {
		key, _, err := pool.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		got = append(got, key)
	}
	if strings.Join(got, ",") != "a,b,c,a" {
		t.Errorf("rotation = %v", got)
	}
}

func TestKeyPool_Next_WhenKeyBenched_ShouldSkipIt(t *testing.T) {
	pool, _ := newTestPool(t, "a", "b")
	pool.MarkCooldown(0)
	for range 3 {
		key, idx, err := pool.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if key != "b" || idx != 1 {
			t.Errorf("got %s/%d, want b/1", key, idx)
		}
	}
}

func TestKeyPool_Next_WhenAllBenched_ShouldError(t *testing.T) {
	pool, _ := newTestPool(t, "a", "b")
	pool.MarkCooldown(0)
	pool.MarkCooldown(1)
	if _, idx, err := pool.Next(); err == nil || idx != -1 {
		t.Fatalf("expected cooldown error and idx -1, got %d %v", idx, err)
	}
}

func TestKeyPool_WhenCooldownExpires_ShouldReturnKey(t *testing.T) {
	pool, clk := newTestPool(t, "a")
	pool.MarkCooldown(0)
	if pool.Available() != 0 {
		t.Fatalf("Available = %d, want 0", pool.Available())
	}
	clk.advance(time.Minute)
	if pool.Available() != 1 {
		t.Fatalf("Available = %d after cooldown, want 1", pool.Available())
	}
	if key, _, err := pool.Next(); err != nil || key != "a" {
		t.Errorf("Next = %q, %v", key, err)
	}
}

func TestKeyPool_MarkCooldown_WhenIndexOutOfRange_ShouldIgnore(t *testing.T) {
	pool, _ := newTestPool(t, "a")
	pool.MarkCooldown(-1)
	pool.MarkCooldown(5)
	if pool.Available() != 1 || pool.Len() != 1 {
		t.Errorf("Available=%d Len=%d", pool.Available(), pool.Len())
	}
}

func TestKeyPool_ShouldBeSafeForConcurrentUse(t *testing.T) {
	pool, _ := newTestPool(t, "a", "b", "c")
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, idx, err := pool.Next(); err == nil && i%7 == 0 {
				pool.MarkCooldown(idx)
			}
			_ = pool.Available()
		}()
	}
	wg.Wait()
}

// =============================================================================
// isRateLimitError
// =============================================================================

func TestIsRateLimitError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"status 429", &StatusError{Provider: "openai", Code: 429}, true},
		{"wrapped status 429", fmt.Errorf("call: %w", &StatusError{Provider: "openai", Code: 429}), true},
		{"status 500 mentioning 429", &StatusError{Provider: "openai", Code: 500, Message: "upstream 429"}, false},
		{"plain 429 text", errors.New("HTTP 429 Too Many Requests"), true},
		{"rate limit text", errors.New("Rate limit reached for gpt-3.5-turbo"), true},
		{"unrelated", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRateLimitError(tt.err); got != tt.want {
				t.Errorf("isRateLimitError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

// =============================================================================
// KeyPoolProvider
// =============================================================================

// keyProvider answers as a fixed key, or fails with err.
type keyProvider struct {
	key   string
	err   error
	calls int
}

func (p *keyProvider) Generate(_ context.Context, prompt string, _ domain.GenerateOptions) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return p.key + ": " + prompt, nil
}

func TestNewKeyPoolProvider_Validation(t *testing.T) {
	pool, _ := newTestPool(t, "a", "b")
	one := []domain.LLMProvider{&keyProvider{key: "a"}}
	two := []domain.LLMProvider{&keyProvider{key: "a"}, &keyProvider{key: "b"}}

	if _, err := NewKeyPoolProvider(nil, two); err == nil {
		t.Error("nil pool should error")
	}
	if _, err := NewKeyPoolProvider(pool, nil); err == nil {
		t.Error("no providers should error")
	}
	if _, err := NewKeyPoolProvider(pool, one); err == nil {
		t.Error("size mismatch should error")
	}
	if _, err := NewKeyPoolProvider(pool, two); err != nil {
		t.Errorf("valid inputs: %v", err)
	}
}

func TestKeyPoolProvider_Generate_ShouldAlternateKeys(t *testing.T) {
	pool, _ := newTestPool(t, "a", "b")
	a, b := &keyProvider{key: "a"}, &keyProvider{key: "b"}
	kpp, _ := NewKeyPoolProvider(pool, []domain.LLMProvider{a, b})

	for _, want := range []string{"a: hi", "b: hi", "a: hi"} {
		got, err := kpp.Generate(context.Background(), "hi", domain.GenerateOptions{})
		if err != nil || got != want {
			t.Errorf("Generate = %q, %v; want %q", got, err, want)
		}
	}
}

func TestKeyPoolProvider_Generate_WhenRateLimited_ShouldBenchAndMoveOn(t *testing.T) {
	pool, _ := newTestPool(t, "a", "b", "c")
	limited := &StatusError{Provider: "openai", Code: 429}
	a := &keyProvider{key: "a", err: limited}
	b := &keyProvider{key: "b", err: limited}
	c := &keyProvider{key: "c"}
	kpp, _ := NewKeyPoolProvider(pool, []domain.LLMProvider{a, b, c})

	got, err := kpp.Generate(context.Background(), "tour", domain.GenerateOptions{})
	if err != nil || got != "c: tour" {
		t.Fatalf("Generate = %q, %v", got, err)
	}
	if pool.Available() != 1 {
		t.Errorf("Available = %d, want 1 (a and b benched)", pool.Available())
	}
}

func TestKeyPoolProvider_Generate_WhenEveryKeyLimited_ShouldWrapLastError(t *testing.T) {
	pool, _ := newTestPool(t, "a", "b")
	limited := &StatusError{Provider: "openai", Code: 429}
	kpp, _ := NewKeyPoolProvider(pool, []domain.LLMProvider{
		&keyProvider{key: "a", err: limited},
		&keyProvider{key: "b", err: limited},
	})

	_, err := kpp.Generate(context.Background(), "x", domain.GenerateOptions{})
	var se *StatusError
	if !errors.As(err, &se) || se.Code != 429 {
		t.Fatalf("want wrapped 429, got %v", err)
	}
	if !strings.Contains(err.Error(), "all keys in cooldown") {
		t.Errorf("error = %v", err)
	}
}

func TestKeyPoolProvider_Generate_WhenOtherError_ShouldNotBench(t *testing.T) {
	pool, _ := newTestPool(t, "a", "b")
	boom := errors.New("bad request")
	a := &keyProvider{key: "a", err: boom}
	b := &keyProvider{key: "b"}
	kpp, _ := NewKeyPoolProvider(pool, []domain.LLMProvider{a, b})

	if _, err := kpp.Generate(context.Background(), "x", domain.GenerateOptions{}); !errors.Is(err, boom) {
		t.Fatalf("want passthrough error, got %v", err)
	}
	if b.calls != 0 {
		t.Error("non rate-limit errors must not move to the next key")
	}
	if pool.Available() != 2 {
		t.Errorf("Available = %d, want 2", pool.Available())
	}
}

func TestKeyPoolProvider_Generate_WhenAlreadyBenched_ShouldReturnPoolError(t *testing.T) {
	pool, _ := newTestPool(t, "a")
	pool.MarkCooldown(0)
	a := &keyProvider{key: "a"}
	kpp, _ := NewKeyPoolProvider(pool, []domain.LLMProvider{a})

	if _, err := kpp.Generate(context.Background(), "x", domain.GenerateOptions{}); err == nil {
		t.Fatal("expected cooldown error")
	}
	if a.calls != 0 {
		t.Error("benched provider must not be called")
	}
}

func TestKeyPoolProvider_Generate_WhenContextDone_ShouldStop(t *testing.T) {
	pool, _ := newTestPool(t, "a")
	a := &keyProvider{key: "a"}
	kpp, _ := NewKeyPoolProvider(pool, []domain.LLMProvider{a})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := kpp.Generate(ctx, "x", domain.GenerateOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if a.calls != 0 {
		t.Error("provider called after cancel")
	}
}

// =============================================================================
// splitKeys
// =============================================================================

func TestSplitKeys(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{",,,", nil},
		{"sk-one", []string{"sk-one"}},
		{"sk-one,sk-two", []string{"sk-one", "sk-two"}},
		{"  sk-one , sk-two  ", []string{"sk-one", "sk-two"}},
		{"sk-one,,sk-two,", []string{"sk-one", "sk-two"}},
	}
	for _, tt := range tests {
		got := splitKeys(tt.in)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Errorf("splitKeys(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
