package tokenizer

import (
	"fmt"
	"log/slog"
	"unicode/utf8"

	tiktoken "github.com/pkoukk/tiktoken-go"

	"vla/internal/domain"
)

// DefaultEncoding matches the gpt-3.5/gpt-4 family the agents default to.
const DefaultEncoding = "cl100k_base"

// getEncodingFunc is package-level so tests can simulate an encoding that
// cannot be loaded (tiktoken-go fetches BPE ranks on first use).
var getEncodingFunc = tiktoken.GetEncoding

// TikToken wraps tiktoken-go to implement domain.Tokenizer.
type TikToken struct {
	encoding *tiktoken.Tiktoken
}

// NewTikToken creates a new TikToken tokenizer with the given encoding name.
// Common encodings: "cl100k_base" (GPT-4/3.5), "o200k_base" (GPT-4o).
// Returns an error if the encoding is not recognized.
func NewTikToken(encodingName string) (*TikToken, error) {
	enc, err := getEncodingFunc(encodingName)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: unknown encoding %q: %w", encodingName, err)
	}
	return &TikToken{encoding: enc}, nil
}

// CountTokens returns the number of tokens in the given text.
func (t *TikToken) CountTokens(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	tokens := t.encoding.Encode(text, nil, nil)
	return len(tokens), nil
}

// EncodingForModel returns the encoding name tiktoken uses for a model, or
// DefaultEncoding when the model is unknown (e.g. non-OpenAI providers).
func EncodingForModel(model string) string {
	if name, ok := tiktoken.MODEL_TO_ENCODING[model]; ok {
		return name
	}
	for prefix, name := range tiktoken.MODEL_PREFIX_TO_ENCODING {
		if len(model) >= len(prefix) && model[:len(prefix)] == prefix {
			return name
		}
	}
	return DefaultEncoding
}

// Approx estimates four bytes of English text per token. It is used when no
// BPE encoding is available and only needs to be in the right ballpark for
// window trimming.
type Approx struct{}

func (Approx) CountTokens(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	n := (len(text) + 3) / 4
	if runes := utf8.RuneCountInString(text); n < runes/4 {
		n = runes / 4
	}
	return n, nil
}

// New returns a TikToken for encodingName, falling back to Approx with a
// warning when the encoding cannot be loaded.
func New(encodingName string, logger *slog.Logger) domain.Tokenizer {
	if encodingName == "" {
		encodingName = DefaultEncoding
	}
	tok, err := NewTikToken(encodingName)
	if err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("falling back to approximate token counts", "encoding", encodingName, "error", err)
		return Approx{}
	}
	return tok
}

var (
	_ domain.Tokenizer = (*TikToken)(nil)
	_ domain.Tokenizer = Approx{}
)
