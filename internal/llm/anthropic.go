package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"vla/internal/domain"
)

// anthropicMaxTokens caps one agent step; a step is a thought plus one action.
const anthropicMaxTokens = 1024

// AnthropicProvider calls the Anthropic Messages API through the official SDK.
// The SDK's own retries are off; retry.Provider owns that policy.
type AnthropicProvider struct {
	model  string
	client anthropic.Client
}

// NewAnthropicProvider returns an Anthropic-backed LLMProvider. opts may
// point the client at another base URL or transport.
func NewAnthropicProvider(apiKey, model string, opts ...option.RequestOption) *AnthropicProvider {
	base := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	return &AnthropicProvider{
		model:  model,
		client: anthropic.NewClient(append(base, opts...)...),
	}
}

// Generate implements domain.LLMProvider.
func (p *AnthropicProvider) Generate(ctx context.Context, prompt string, opts domain.GenerateOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:         anthropic.Model(p.model),
		MaxTokens:     anthropicMaxTokens,
		Temperature:   anthropic.Float(opts.Temperature),
		StopSequences: opts.Stop,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", &StatusError{Provider: "anthropic", Code: apiErr.StatusCode, Message: strings.TrimSpace(apiErr.RawJSON())}
		}
		return "", fmt.Errorf("anthropic do: %w", err)
	}
	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}

var _ domain.LLMProvider = (*AnthropicProvider)(nil)
