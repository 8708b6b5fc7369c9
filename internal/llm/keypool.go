package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"vla/internal/domain"
	"vla/internal/retry"
)

// KeyPool hands out API keys round-robin. A key that hits a rate limit is
// benched for the cooldown and skipped until it expires. Safe for concurrent use.
type KeyPool struct {
	mu       sync.Mutex
	keys     []string
	next     int
	benched  []time.Time // benched[i] is when key i may be used again
	cooldown time.Duration
	clock    domain.Clock
}

// NewKeyPool builds a pool over keys. At least one key is required.
func NewKeyPool(keys []string, cooldown time.Duration) (*KeyPool, error) {
	if len(keys) == 0 {
		return nil, errors.New("keypool: at least one key is required")
	}
	return &KeyPool{
		keys:     keys,
		benched:  make([]time.Time, len(keys)),
		cooldown: cooldown,
		clock:    domain.SystemClock{},
	}, nil
}

func (kp *KeyPool) usable(i int, now time.Time) bool {
	return !now.Before(kp.benched[i])
}

// Next returns the next usable key and its index, or an error when every
// key is benched.
func (kp *KeyPool) Next() (string, int, error) {
	kp.mu.Lock()
	defer kp.mu.Unlock()
	now := kp.clock.Now()
	for i := range kp.keys {
		idx := (kp.next + i) % len(kp.keys)
		if kp.usable(idx, now) {
			kp.next = (idx + 1) % len(kp.keys)
			return kp.keys[idx], idx, nil
		}
	}
	return "", -1, fmt.Errorf("keypool: all %d keys are in cooldown", len(kp.keys))
}

// MarkCooldown benches key idx. Out-of-range indices are ignored.
func (kp *KeyPool) MarkCooldown(idx int) {
	kp.mu.Lock()
	defer kp.mu.Unlock()
	if idx >= 0 && idx < len(kp.keys) {
		kp.benched[idx] = kp.clock.Now().Add(kp.cooldown)
	}
}

// Len returns the number of keys.
func (kp *KeyPool) Len() int { return len(kp.keys) }

// Available returns how many keys are usable now.
func (kp *KeyPool) Available() int {
	kp.mu.Lock()
	defer kp.mu.Unlock()
	now := kp.clock.Now()
	n := 0
	for i := range kp.keys {
		if kp.usable(i, now) {
			n++
		}
	}
	return n
}

// isRateLimitError reports a 429 from any provider.
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	var sc retry.StatusCoder
	if errors.As(err, &sc) {
		return sc.HTTPStatus() == 429
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "rate limit")
}

// KeyPoolProvider spreads calls over one provider per key. A rate-limited key
// is benched and the call moves on to the next usable key until none is left.
type KeyPoolProvider struct {
	pool      *KeyPool
	providers []domain.LLMProvider
}

// NewKeyPoolProvider pairs pool key i with providers[i].
func NewKeyPoolProvider(pool *KeyPool, providers []domain.LLMProvider) (*KeyPoolProvider, error) {
	switch {
	case pool == nil:
		return nil, errors.New("keypool provider: pool must not be nil")
	case len(providers) == 0:
		return nil, errors.New("keypool provider: at least one provider is required")
	case pool.Len() != len(providers):
		return nil, fmt.Errorf("keypool provider: pool size (%d) must match providers count (%d)", pool.Len(), len(providers))
	}
	return &KeyPoolProvider{pool: pool, providers: providers}, nil
}

// Generate implements domain.LLMProvider.
func (kpp *KeyPoolProvider) Generate(ctx context.Context, prompt string, opts domain.GenerateOptions) (string, error) {
	var lastErr error
	for range kpp.pool.Len() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		_, idx, err := kpp.pool.Next()
		if err != nil {
			if lastErr != nil {
				return "", fmt.Errorf("all keys in cooldown after rate limit: %w", lastErr)
			}
			return "", err
		}
		out, err := kpp.providers[idx].Generate(ctx, prompt, opts)
		if err == nil || !isRateLimitError(err) {
			return out, err
		}
		kpp.pool.MarkCooldown(idx)
		lastErr = err
	}
	return "", fmt.Errorf("all keys in cooldown after rate limit: %w", lastErr)
}

var _ domain.LLMProvider = (*KeyPoolProvider)(nil)
