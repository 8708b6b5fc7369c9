package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	ollama "github.com/ollama/ollama/api"

	"vla/internal/domain"
)

// DefaultOllamaURL is a local Ollama daemon.
const DefaultOllamaURL = "http://localhost:11434"

// OllamaProvider calls a local or self-hosted Ollama through its Go client.
type OllamaProvider struct {
	model  string
	host   string
	client *ollama.Client
}

// NewOllamaProvider returns an Ollama-backed LLMProvider. An empty baseURL
// uses DefaultOllamaURL; a trailing /api is tolerated.
func NewOllamaProvider(model, baseURL string) (*OllamaProvider, error) {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	host := strings.TrimSuffix(strings.TrimSuffix(baseURL, "/"), "/api")
	u, err := url.Parse(host)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("ollama: invalid base URL %q", baseURL)
	}
	return &OllamaProvider{model: model, host: host, client: ollama.NewClient(u, http.DefaultClient)}, nil
}

// Generate implements domain.LLMProvider.
func (p *OllamaProvider) Generate(ctx context.Context, prompt string, opts domain.GenerateOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	stream := false
	req := &ollama.GenerateRequest{
		Model:  p.model,
		Prompt: prompt,
		Stream: &stream,
		Options: map[string]any{
			"temperature": opts.Temperature,
		},
	}
	if len(opts.Stop) > 0 {
		req.Options["stop"] = opts.Stop
	}

	var out strings.Builder
	err := p.client.Generate(ctx, req, func(r ollama.GenerateResponse) error {
		out.WriteString(r.Response)
		return nil
	})
	if err != nil {
		var se ollama.StatusError
		if errors.As(err, &se) {
			return "", &StatusError{Provider: "ollama", Code: se.StatusCode, Message: se.ErrorMessage}
		}
		return "", fmt.Errorf("ollama do: %w", err)
	}
	if out.Len() == 0 {
		return "", errors.New("ollama: empty response")
	}
	return out.String(), nil
}

var _ domain.LLMProvider = (*OllamaProvider)(nil)
