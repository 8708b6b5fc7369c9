package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"vla/internal/domain"
)

// OpenRouterBaseURL is the OpenAI-compatible endpoint of OpenRouter.
const OpenRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenAIProvider calls an OpenAI-compatible Chat Completions API through
// go-openai. OpenRouter and self-hosted gateways use it with a base URL.
type OpenAIProvider struct {
	name   string
	model  string
	client *openai.Client
}

// OpenAIOption configures an OpenAIProvider.
type OpenAIOption func(*openai.ClientConfig)

// WithBaseURL points the client at another OpenAI-compatible API.
func WithBaseURL(url string) OpenAIOption {
	return func(c *openai.ClientConfig) {
		if url != "" {
			c.BaseURL = url
		}
	}
}

// WithHTTPClient replaces the transport client.
func WithHTTPClient(hc *http.Client) OpenAIOption {
	return func(c *openai.ClientConfig) {
		if hc != nil {
			c.HTTPClient = hc
		}
	}
}

// NewOpenAIProvider returns an OpenAI-backed LLMProvider.
func NewOpenAIProvider(apiKey, model string, opts ...OpenAIOption) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	for _, o := range opts {
		o(&cfg)
	}
	return &OpenAIProvider{name: "openai", model: model, client: openai.NewClientWithConfig(cfg)}
}

// NewOpenRouterProvider returns an OpenRouter-backed LLMProvider.
func NewOpenRouterProvider(apiKey, model string, opts ...OpenAIOption) *OpenAIProvider {
	p := NewOpenAIProvider(apiKey, model, append([]OpenAIOption{WithBaseURL(OpenRouterBaseURL)}, opts...)...)
	p.name = "openrouter"
	return p
}

// Generate implements domain.LLMProvider.
func (p *OpenAIProvider) Generate(ctx context.Context, prompt string, opts domain.GenerateOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	req := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature(opts.Temperature),
		Stop:        opts.Stop,
	}
	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", &StatusError{Provider: p.name, Code: apiErr.HTTPStatusCode, Message: apiErr.Message}
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			return "", &StatusError{Provider: p.name, Code: reqErr.HTTPStatusCode, Message: http.StatusText(reqErr.HTTPStatusCode)}
		}
		return "", fmt.Errorf("%s do: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: no choices in response", p.name)
	}
	return resp.Choices[0].Message.Content, nil
}

// temperature maps 0 to the smallest positive float32: go-openai omits a zero
// temperature from the request, which the API would read as 1.
func temperature(t float64) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

var _ domain.LLMProvider = (*OpenAIProvider)(nil)
