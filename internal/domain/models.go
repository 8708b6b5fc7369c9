package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// =============================================================================
// Core Configuration
// =============================================================================

type Config struct {
	Gateway    GatewayConfig    `json:"gateway"`
	Agents     AgentsConfig     `json:"agents"`
	Scheduling SchedulingConfig `json:"scheduling"`
	State      StateConfig      `json:"state"`
	Infra      InfraConfig      `json:"infra"`
	Retry      RetryConfig      `json:"retry"`
}

// RetryConfig controls retry behaviour for LLM calls.
type RetryConfig struct {
	MaxRetries     int `json:"maxRetries"`     // Maximum retry attempts (0 = no retries)
	InitialBackoff int `json:"initialBackoff"` // Initial backoff in milliseconds
	MaxBackoff     int `json:"maxBackoff"`     // Maximum backoff in milliseconds
	Multiplier     int `json:"multiplier"`     // Backoff multiplier (e.g. 2 for exponential doubling)
}

type GatewayConfig struct {
	Port           int        `json:"port"`
	Auth           AuthConfig `json:"auth"`
	AllowedOrigins []string   `json:"allowedOrigins"`
	ReadTimeout    int        `json:"readTimeout"`  // seconds
	WriteTimeout   int        `json:"writeTimeout"` // seconds
}

type AuthConfig struct {
	Mode      string `json:"mode"`                // "token" | "none"
	AuthToken string `json:"authToken,omitempty"` // When set, gateway requires Authorization: Bearer <authToken>
}

type AgentsConfig struct {
	Provider      string           `json:"provider"` // "openai" | "anthropic" | "ollama" | "local"
	DefaultModel  string           `json:"defaultModel"`
	BaseURL       string           `json:"baseUrl,omitempty"`
	APIKey        string           `json:"apiKey,omitempty"`
	Temperature   float64          `json:"temperature"`
	Prompt        string           `json:"prompt"` // prompt template name
	Style         string           `json:"style"`  // "chat_conversational" | "zero_shot"
	MaxIterations int              `json:"maxIterations"`
	CallTimeout   int              `json:"callTimeout"`   // seconds per LLM round-trip
	ContextTokens int              `json:"contextTokens"` // memory window
	Encoding      string           `json:"encoding"`      // tiktoken encoding name
	Fallbacks     []FallbackConfig `json:"fallbacks,omitempty"`
}

// FallbackConfig describes an alternative LLM provider for failover.
type FallbackConfig struct {
	Provider     string `json:"provider"`
	DefaultModel string `json:"defaultModel"`
}

// SchedulingConfig holds the connection settings for the tour scheduling API.
type SchedulingConfig struct {
	BaseURL         string  `json:"baseUrl"`
	APIKey          string  `json:"apiKey,omitempty"`
	Timeout         int     `json:"timeout"` // seconds per request
	MaxRetries      int     `json:"maxRetries"`
	RateLimit       float64 `json:"rateLimit"` // requests per second, 0 = unlimited
	Burst           int     `json:"burst"`
	Timezone        string  `json:"timezone"`
	MaxTimesToShow  int     `json:"maxTimesToShow"`
	AMToPMThreshold int     `json:"amToPmThreshold"`
	TourType        string  `json:"tourType"`
}

// StateConfig selects where per-conversation state lives.
type StateConfig struct {
	Backend       string `json:"backend"` // "memory" | "redis" | "sqlite"
	RedisAddr     string `json:"redisAddr,omitempty"`
	RedisPassword string `json:"redisPassword,omitempty"`
	RedisDB       int    `json:"redisDb"`
	DatabaseURL   string `json:"databaseUrl,omitempty"`
	TTLHours      int    `json:"ttlHours"`
}

type InfraConfig struct {
	LogFormat string `json:"logFormat"` // "json" | "text"
	LogLevel  string `json:"logLevel"`
}

// =============================================================================
// Conversation Domain
// =============================================================================

// ConversationKey identifies one prospect conversation at one community.
type ConversationKey struct {
	CommunityID string `json:"communityId"`
	ClientID    string `json:"clientId"`
}

func (k ConversationKey) String() string {
	return fmt.Sprintf("%s:%s", k.CommunityID, k.ClientID)
}

// CommunityInfo is the attribute mapping returned for a community. Values are
// strings, numbers, booleans, nested maps or sequences.
type CommunityInfo map[string]any

// Clock supplies the reference time. Tools never read time.Now directly.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns T.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }

// =============================================================================
// Messaging Protocol
// =============================================================================

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
	RoleTool      MessageRole = "tool"
)

// Message is a single conversation entry. Content is plain text.
type Message struct {
	ID        string      `json:"id"`
	Role      MessageRole `json:"role"`
	Timestamp time.Time   `json:"timestamp"`
	Content   string      `json:"content"`
}

// =============================================================================
// Tooling
// =============================================================================

// ToolArg is one argument of a tool, in declaration order.
type ToolArg struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
}

type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
	Args        []ToolArg       `json:"args,omitempty"`
}

// ToolStatus classifies a tool outcome before it is flattened to text.
type ToolStatus string

const (
	ToolOK       ToolStatus = "ok"
	ToolClarify  ToolStatus = "clarify"  // input could not be resolved
	ToolRejected ToolStatus = "rejected" // the external API refused the request
	ToolFailed   ToolStatus = "failed"   // network or unexpected error
)

type ToolResult struct {
	Status   ToolStatus        `json:"status"`
	Data     string            `json:"data"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Text is the only representation handed back to the reasoning loop.
func (r *ToolResult) Text() string {
	if r == nil {
		return "The tool returned no result."
	}
	if r.Data != "" {
		return r.Data
	}
	switch r.Status {
	case ToolClarify:
		return "Could you clarify that for me?"
	case ToolRejected, ToolFailed:
		return "Sorry, something went wrong while handling that request."
	}
	return "Done."
}

// OK reports whether the tool completed its action.
func (r *ToolResult) OK() bool {
	return r != nil && (r.Status == ToolOK || r.Status == "")
}

// =============================================================================
// LLM
// =============================================================================

// GenerateOptions carries per-call sampling parameters.
type GenerateOptions struct {
	Temperature float64
	Stop        []string
}
