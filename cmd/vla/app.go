package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"vla/internal/brain"
	"vla/internal/community"
	"vla/internal/config"
	"vla/internal/domain"
	"vla/internal/leasing"
	"vla/internal/llm"
	"vla/internal/router"
	"vla/internal/schedapi"
	"vla/internal/session"
	"vla/internal/tokenizer"
	"vla/internal/triage"
)

// app is the wired agent stack shared by serve and chat.
type app struct {
	cfg     *domain.Config
	logger  *slog.Logger
	service *leasing.Service
	router  *router.Router
	triage  triage.Gate
	closer  io.Closer
}

// appOptions overrides parts of the stack; zero values use the config.
type appOptions struct {
	// communityFile replaces the community API with a fixed YAML/JSON fixture.
	communityFile string
	// provider replaces the configured LLM (tests).
	provider domain.LLMProvider
}

// newLLM builds the configured provider behind a Brain with fallbacks.
func newLLM(cfg *domain.Config, logger *slog.Logger) (domain.LLMProvider, error) {
	secrets := config.Secrets(cfg)
	provider, err := llm.NewProvider(&cfg.Agents, secrets, &cfg.Retry)
	if err != nil {
		return nil, err
	}
	opts := []brain.Option{
		brain.WithLogger(logger),
		brain.WithCallTimeout(time.Duration(cfg.Agents.CallTimeout) * time.Second),
	}
	if len(cfg.Agents.Fallbacks) > 0 {
		if fallbacks := llm.NewFallbackProviders(cfg.Agents.Fallbacks, secrets, &cfg.Retry); len(fallbacks) > 0 {
			opts = append(opts, brain.WithFallbacks(fallbacks...))
		}
	}
	return brain.NewBrain(provider, opts...), nil
}

// buildApp wires config into a ready router. Callers must Close the result.
func buildApp(ctx context.Context, cfg *domain.Config, logger *slog.Logger, o appOptions) (*app, error) {
	model := o.provider
	if model == nil {
		var err error
		if model, err = newLLM(cfg, logger); err != nil {
			return nil, fmt.Errorf("llm: %w", err)
		}
	}

	client := schedapi.New(schedapi.ConfigFrom(cfg.Scheduling), schedapi.WithLogger(logger))
	var source leasing.CommunitySource = client
	if o.communityFile != "" {
		info, err := community.LoadFile(o.communityFile)
		if err != nil {
			return nil, err
		}
		source = community.Static{Info: info}
	}

	encoding := cfg.Agents.Encoding
	if encoding == "" {
		encoding = tokenizer.EncodingForModel(cfg.Agents.DefaultModel)
	}
	svc, err := leasing.NewService(model, source, client, leasing.SettingsFrom(cfg),
		leasing.WithLogger(logger),
		leasing.WithTokenizer(tokenizer.New(encoding, logger)),
	)
	if err != nil {
		return nil, err
	}

	store, closer, err := session.Open(ctx, cfg.State)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:     cfg,
		logger:  logger,
		service: svc,
		router:  router.NewRouter(store, svc.NewAgent, router.WithLogger(logger)),
		triage: triage.Gate{
			Classifier:  triage.NewClassifier(model, triage.WithLogger(logger)),
			Communities: source,
		},
		closer: closer,
	}, nil
}

func (a *app) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}
