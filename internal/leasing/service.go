// Package leasing assembles the virtual leasing agent for one prospect turn:
// it fetches the community's information, renders the persona prompt, binds
// the appointment tools to the prospect's scheduling credentials and hands
// back a ready agent.
package leasing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"vla/internal/agent"
	"vla/internal/brain"
	"vla/internal/community"
	vlactx "vla/internal/context"
	"vla/internal/domain"
	"vla/internal/memory"
	"vla/internal/prompts"
	"vla/internal/router"
	"vla/internal/tokenizer"
	"vla/internal/tooling"
)

// Agent styles.
const (
	StyleChat     = "chat_conversational"
	StyleZeroShot = "zero_shot"
)

// ErrUnknownStyle is returned for an agent style other than StyleChat or
// StyleZeroShot.
var ErrUnknownStyle = errors.New("leasing: unknown agent style")

// CommunitySource looks up a community's attribute mapping.
// *schedapi.Client and community.Static satisfy it.
type CommunitySource interface {
	CommunityInfo(ctx context.Context, communityID string) (domain.CommunityInfo, error)
}

// Settings holds the per-deployment agent settings.
type Settings struct {
	Prompt      string
	Style       string
	Temperature float64
	// MaxIterations and CallTimeout bound the reasoning loop.
	MaxIterations int
	CallTimeout   time.Duration
	// ContextTokens bounds the chat transcript the agent sees. Zero keeps the
	// whole transcript.
	ContextTokens int

	Timezone        string
	MaxTimesToShow  int
	AMToPMThreshold int
	// APITimeout bounds each scheduling API call made by a tool.
	APITimeout time.Duration
}

// SettingsFrom converts the file configuration.
func SettingsFrom(cfg *domain.Config) Settings {
	return Settings{
		Prompt:          cfg.Agents.Prompt,
		Style:           cfg.Agents.Style,
		Temperature:     cfg.Agents.Temperature,
		MaxIterations:   cfg.Agents.MaxIterations,
		CallTimeout:     time.Duration(cfg.Agents.CallTimeout) * time.Second,
		ContextTokens:   cfg.Agents.ContextTokens,
		Timezone:        cfg.Scheduling.Timezone,
		MaxTimesToShow:  cfg.Scheduling.MaxTimesToShow,
		AMToPMThreshold: cfg.Scheduling.AMToPMThreshold,
		APITimeout:      time.Duration(cfg.Scheduling.Timeout) * time.Second,
	}
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Nil is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the clock the tools read. Defaults to the system clock.
func WithClock(c domain.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithTokenizer sets the tokenizer for the chat memory window. Defaults to
// approximate counts.
func WithTokenizer(t domain.Tokenizer) Option {
	return func(s *Service) {
		if t != nil {
			s.tokenizer = t
		}
	}
}

// Service builds agents. It is safe for concurrent use; every agent it
// returns is private to one turn.
type Service struct {
	llm         domain.LLMProvider
	communities CommunitySource
	api         tooling.SchedulingAPI
	settings    Settings
	clock       domain.Clock
	tokenizer   domain.Tokenizer
	logger      *slog.Logger
}

// NewService validates settings and returns a Service.
func NewService(llm domain.LLMProvider, communities CommunitySource, api tooling.SchedulingAPI, settings Settings, opts ...Option) (*Service, error) {
	if llm == nil {
		return nil, errors.New("leasing: llm must not be nil")
	}
	if communities == nil {
		return nil, errors.New("leasing: community source must not be nil")
	}
	if settings.Prompt == "" {
		settings.Prompt = prompts.Default
	}
	if !prompts.Has(settings.Prompt) || settings.Prompt == prompts.DisableVLA {
		return nil, fmt.Errorf("leasing: %q is not an agent prompt", settings.Prompt)
	}
	if settings.Style == "" {
		settings.Style = StyleChat
	}
	if settings.Style != StyleChat && settings.Style != StyleZeroShot {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStyle, settings.Style)
	}
	if err := (agent.Config{Temperature: settings.Temperature, MaxIterations: settings.MaxIterations}).Validate(); err != nil {
		return nil, err
	}
	s := &Service{
		llm:         llm,
		communities: communities,
		api:         api,
		settings:    settings,
		clock:       domain.SystemClock{},
		tokenizer:   tokenizer.Approx{},
		logger:      slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Settings returns the validated settings.
func (s *Service) Settings() Settings { return s.settings }

// Prefix renders the persona prompt for a community.
func (s *Service) Prefix(ctx context.Context, communityID string) (string, error) {
	info, err := s.communities.CommunityInfo(ctx, communityID)
	if err != nil {
		return "", fmt.Errorf("leasing: community %s: %w", communityID, err)
	}
	return prompts.Render(s.settings.Prompt, prompts.Data{CommunityInfo: community.Format(info)})
}

// Tools builds the tool set the configured prompt instructs the model to use,
// bound to the prospect in req.
func (s *Service) Tools(req router.Request, rec domain.ActionRecorder) (*tooling.ToolRegistry, error) {
	cfg := tooling.SchedulerConfig{
		ClientID:        req.Key.ClientID,
		GroupID:         req.GroupID,
		CommunityID:     req.Key.CommunityID,
		APIKey:          req.APIKey,
		Timezone:        s.settings.Timezone,
		MaxTimesToShow:  s.settings.MaxTimesToShow,
		AMToPMThreshold: s.settings.AMToPMThreshold,
		CallTimeout:     s.settings.APITimeout,
	}
	opts := []tooling.SchedulerOption{
		tooling.WithClock(s.clock),
		tooling.WithLogger(s.logger),
		tooling.WithRecorder(rec),
	}
	tools := []tooling.SchemaTool{tooling.NewCurrentTimeTool(s.clock, s.settings.Timezone)}
	if s.api == nil {
		return tooling.NewToolRegistryWith(tools...)
	}
	switch s.settings.Prompt {
	case prompts.ThreeToolConcise, prompts.ThreeToolExplicit:
		tools = append(tools,
			tooling.NewAppointmentSchedulerTool(cfg, s.api, opts...),
			tooling.NewAppointmentAvailabilityTool(cfg, s.api, opts...),
		)
	case prompts.TwoToolConcise:
		tools = append(tools, tooling.NewAppointmentSchedulerAndAvailabilityTool(cfg, s.api, opts...))
	default:
		tools = append(tools,
			tooling.NewAppointmentSchedulerAndAvailabilityTool(cfg, s.api, opts...),
			tooling.NewAppointmentCancelerTool(cfg, s.api, opts...),
		)
	}
	return tooling.NewToolRegistryWith(tools...)
}

// NewAgent builds the agent for one turn. It has the router.AgentFactory
// signature.
func (s *Service) NewAgent(ctx context.Context, req router.Request, history []domain.Message, rec domain.ActionRecorder) (router.Runner, error) {
	prefix, err := s.Prefix(ctx, req.Key.CommunityID)
	if err != nil {
		return nil, err
	}
	registry, err := s.Tools(req, rec)
	if err != nil {
		return nil, err
	}
	logger := s.logger.With("community_id", req.Key.CommunityID, "client_id", req.Key.ClientID)
	tools := brain.NewToolDispatcher(registry, brain.WithDispatcherLogger(logger))
	cfg := agent.Config{
		Temperature:   s.settings.Temperature,
		Prefix:        prefix,
		MaxIterations: s.settings.MaxIterations,
		CallTimeout:   s.settings.CallTimeout,
	}

	if s.settings.Style == StyleZeroShot {
		a, err := agent.NewZeroShot(s.llm, tools, cfg, agent.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return a, nil
	}
	a, err := agent.NewChatConversational(s.llm, tools, cfg, s.memory(history), agent.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) memory(history []domain.Message) *memory.Buffer {
	if s.settings.ContextTokens <= 0 {
		return memory.NewBuffer(nil, history...)
	}
	return memory.NewBuffer(vlactx.NewWindow(s.tokenizer, s.settings.ContextTokens), history...)
}

var _ router.AgentFactory = (*Service)(nil).NewAgent
