// Package triage decides whether the leasing agent should answer a prospect
// message at all, or hand it to the leasing team.
package triage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"vla/internal/community"
	"vla/internal/domain"
	"vla/internal/prompts"
)

// Verdicts the model is told to answer with.
const (
	Answerable   = "Answerable"
	Unanswerable = "Unanswerable"
)

// Classifier asks the model whether a message can be answered from the
// community information.
type Classifier struct {
	llm    domain.LLMProvider
	logger *slog.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLogger sets the logger. Nil is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(c *Classifier) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClassifier panics on a nil provider.
func NewClassifier(llm domain.LLMProvider, opts ...Option) *Classifier {
	if llm == nil {
		panic("triage: llm must not be nil")
	}
	c := &Classifier{llm: llm, logger: slog.Default()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Answerable reports whether message can be answered from info. Replies the
// model phrases ambiguously count as unanswerable.
func (c *Classifier) Answerable(ctx context.Context, info domain.CommunityInfo, message string) (bool, error) {
	prompt, err := prompts.Render(prompts.DisableVLA, prompts.Data{
		CommunityInfo:   community.Format(info),
		ProspectMessage: message,
	})
	if err != nil {
		return false, err
	}
	reply, err := c.llm.Generate(ctx, prompt, domain.GenerateOptions{Temperature: 0, Stop: []string{"\nProspect:"}})
	if err != nil {
		return false, fmt.Errorf("triage: %w", err)
	}
	ok, known := Parse(reply)
	if !known {
		c.logger.Warn("unrecognized triage verdict", "reply", reply)
	}
	return ok, nil
}

// Parse reads a verdict. known is false when the reply names neither verdict.
func Parse(reply string) (answerable, known bool) {
	r := strings.ToLower(strings.TrimSpace(reply))
	r = strings.TrimPrefix(r, "ai:")
	r = strings.TrimSpace(r)
	switch {
	case strings.HasPrefix(r, "unanswerable"):
		return false, true
	case strings.HasPrefix(r, "answerable"):
		return true, true
	case strings.Contains(r, "unanswerable"):
		return false, true
	case strings.Contains(r, "answerable"):
		return true, true
	}
	return false, false
}

// CommunitySource looks up a community's attribute mapping.
type CommunitySource interface {
	CommunityInfo(ctx context.Context, communityID string) (domain.CommunityInfo, error)
}

// Gate classifies messages addressed to a community by ID.
type Gate struct {
	Classifier  *Classifier
	Communities CommunitySource
}

// AnswerableFor fetches the community and classifies message against it.
func (g Gate) AnswerableFor(ctx context.Context, communityID, message string) (bool, error) {
	info, err := g.Communities.CommunityInfo(ctx, communityID)
	if err != nil {
		return false, fmt.Errorf("triage: community %s: %w", communityID, err)
	}
	return g.Classifier.Answerable(ctx, info, message)
}
