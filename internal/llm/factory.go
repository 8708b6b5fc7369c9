package llm

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"

	"vla/internal/domain"
	"vla/internal/retry"
)

// keyCooldown is how long a key that hit a 429 sits out.
const keyCooldown = 60 * time.Second

// Secret names looked up through SecretGetter.
const (
	SecretOpenAI     = "openai_api_key"
	SecretAnthropic  = "anthropic_api_key"
	SecretOpenRouter = "openrouter_api_key"
)

// SecretGetter resolves a secret such as "openai_api_key".
type SecretGetter func(name string) (string, error)

// hosted describes a provider that needs an API key. build makes the client
// for one key.
type hosted struct {
	secret string
	build  func(key string, agents *domain.AgentsConfig) domain.LLMProvider
}

var hostedProviders = map[string]hosted{
	"openai": {SecretOpenAI, func(key string, a *domain.AgentsConfig) domain.LLMProvider {
		return NewOpenAIProvider(key, a.DefaultModel, WithBaseURL(a.BaseURL))
	}},
	"openrouter": {SecretOpenRouter, func(key string, a *domain.AgentsConfig) domain.LLMProvider {
		return NewOpenRouterProvider(key, a.DefaultModel)
	}},
	"anthropic": {SecretAnthropic, func(key string, a *domain.AgentsConfig) domain.LLMProvider {
		var opts []option.RequestOption
		if a.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(a.BaseURL))
		}
		return NewAnthropicProvider(key, a.DefaultModel, opts...)
	}},
}

// providerNames lists every accepted agents.provider value.
func providerNames() string {
	names := []string{"local", "ollama"}
	for name := range hostedProviders {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// NewProvider builds the model client named by agents.Provider ("local" when
// empty or agents is nil). A secret holding several comma-separated keys
// yields a KeyPoolProvider. A retry config with MaxRetries > 0 wraps the
// result in retry.Provider.
func NewProvider(agents *domain.AgentsConfig, getSecret SecretGetter, retryCfg ...*domain.RetryConfig) (domain.LLMProvider, error) {
	if agents == nil {
		agents = &domain.AgentsConfig{}
	}
	var (
		p   domain.LLMProvider
		err error
	)
	switch name := agents.Provider; name {
	case "", "local":
		p = NewLocalProvider()
	case "ollama":
		p, err = ollamaProvider(agents)
	default:
		h, ok := hostedProviders[name]
		if !ok {
			return nil, fmt.Errorf("unknown LLM provider %q (use: %s)", name, providerNames())
		}
		p, err = keyed(name, h, agents, getSecret)
	}
	if err != nil {
		return nil, err
	}
	if len(retryCfg) > 0 && retryCfg[0] != nil && retryCfg[0].MaxRetries > 0 {
		p = retry.NewProvider(p, retry.FromDomain(*retryCfg[0]), nil)
	}
	return p, nil
}

func ollamaProvider(agents *domain.AgentsConfig) (domain.LLMProvider, error) {
	p, err := NewOllamaProvider(agents.DefaultModel, agents.BaseURL)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// newKeyPoolFunc is replaced in tests.
var newKeyPoolFunc = NewKeyPool

// keyed resolves the provider's secret and builds one client per key.
func keyed(name string, h hosted, agents *domain.AgentsConfig, getSecret SecretGetter) (domain.LLMProvider, error) {
	if getSecret == nil {
		return nil, fmt.Errorf("%s provider: no secret source configured", name)
	}
	raw, err := getSecret(h.secret)
	if err != nil {
		return nil, err
	}
	keys := splitKeys(raw)
	switch len(keys) {
	case 0:
		return nil, fmt.Errorf("%s provider: API key not set (export %s or set agents.apiKey)", name, strings.ToUpper(h.secret))
	case 1:
		return h.build(keys[0], agents), nil
	}
	pool, err := newKeyPoolFunc(keys, keyCooldown)
	if err != nil {
		return nil, fmt.Errorf("%s key pool: %w", name, err)
	}
	clients := make([]domain.LLMProvider, len(keys))
	for i, k := range keys {
		clients[i] = h.build(k, agents)
	}
	return NewKeyPoolProvider(pool, clients)
}

// splitKeys reads "k1, k2,,k3" as three keys.
func splitKeys(raw string) []string {
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// NewFallbackProviders builds the backup models from agents.fallbacks. An
// entry that cannot be built is logged and skipped so a missing backup key
// never stops the agent from starting.
func NewFallbackProviders(fallbacks []domain.FallbackConfig, getSecret SecretGetter, retryCfg ...*domain.RetryConfig) []domain.LLMProvider {
	var out []domain.LLMProvider
	for _, fb := range fallbacks {
		p, err := NewProvider(&domain.AgentsConfig{Provider: fb.Provider, DefaultModel: fb.DefaultModel}, getSecret, retryCfg...)
		if err != nil {
			slog.Warn("skipping fallback model", "provider", fb.Provider, "model", fb.DefaultModel, "error", err)
			continue
		}
		out = append(out, p)
	}
	return out
}
