// Package router runs prospect messages through the leasing agent, one turn
// at a time per conversation. Turns for the same community and client are
// serialized in arrival order; different conversations run concurrently.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"vla/internal/domain"
	"vla/internal/injection"
	"vla/internal/metrics"
	"vla/internal/queue"
	"vla/internal/session"
)

// Errors returned by Route for malformed requests.
var (
	ErrEmptyKey     = errors.New("router: community and client IDs must not be empty")
	ErrEmptyMessage = errors.New("router: message must not be empty")
)

// Request is one prospect message addressed to a community's agent.
type Request struct {
	Key     domain.ConversationKey
	GroupID string
	// APIKey is the company key for the scheduling API v2 endpoints.
	APIKey  string
	Message string
}

// Runner answers one prospect message.
type Runner interface {
	Run(ctx context.Context, message string) (string, error)
}

// AgentFactory builds the agent for one turn. history holds the prior
// exchanges of the conversation; rec files the actions the agent's tools take
// under the current message.
type AgentFactory func(ctx context.Context, req Request, history []domain.Message, rec domain.ActionRecorder) (Runner, error)

// Reply is the outcome of a routed turn.
type Reply struct {
	Text string
	// Index is the 1-based number of this prospect message in the conversation.
	Index   int
	Actions []string
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger. Nil is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithSaveTimeout bounds the state save after a turn. The save runs even when
// the request context was cancelled mid-turn.
func WithSaveTimeout(d time.Duration) Option {
	return func(r *Router) {
		if d > 0 {
			r.saveTimeout = d
		}
	}
}

// Router owns the per-conversation lanes and the state store.
type Router struct {
	store       session.Store
	factory     AgentFactory
	laneQueue   *queue.LaneQueue
	saveTimeout time.Duration
	logger      *slog.Logger
}

// NewRouter creates a Router. store and factory must not be nil.
func NewRouter(store session.Store, factory AgentFactory, opts ...Option) *Router {
	if store == nil {
		panic("router: store must not be nil")
	}
	if factory == nil {
		panic("router: agent factory must not be nil")
	}
	r := &Router{
		store:       store,
		factory:     factory,
		laneQueue:   queue.NewLaneQueue(),
		saveTimeout: 5 * time.Second,
		logger:      slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Route answers req.Message in the context of its conversation and returns
// the agent's reply.
func (r *Router) Route(ctx context.Context, req Request) (string, error) {
	reply, err := r.RouteDetailed(ctx, req)
	if err != nil {
		return "", err
	}
	return reply.Text, nil
}

// RouteDetailed is Route plus the message index and recorded actions.
func (r *Router) RouteDetailed(ctx context.Context, req Request) (Reply, error) {
	if strings.TrimSpace(req.Key.CommunityID) == "" || strings.TrimSpace(req.Key.ClientID) == "" {
		return Reply{}, ErrEmptyKey
	}
	if strings.TrimSpace(req.Message) == "" {
		return Reply{}, ErrEmptyMessage
	}

	var reply Reply
	err := r.laneQueue.Do(ctx, req.Key.String(), func() error {
		var err error
		reply, err = r.turn(ctx, req)
		return err
	})
	return reply, err
}

// ActiveConversations reports how many conversations have a turn running or
// queued.
func (r *Router) ActiveConversations() int {
	return r.laneQueue.LaneCount()
}

func (r *Router) turn(ctx context.Context, req Request) (Reply, error) {
	logger := r.logger.With("community_id", req.Key.CommunityID, "client_id", req.Key.ClientID)
	if scan := injection.Scan(req.Message); scan.Detected {
		metrics.InjectionFlags.Inc()
		logger.Warn("possible prompt injection", "patterns", scan.Patterns)
	}

	st, err := session.LoadOrNew(ctx, r.store, req.Key)
	if err != nil {
		return Reply{}, fmt.Errorf("router: load state: %w", err)
	}
	history := st.Messages()
	idx := st.BeginMessage()

	runner, err := r.factory(ctx, req, history, st.Recorder(idx))
	if err != nil {
		return Reply{}, fmt.Errorf("router: build agent: %w", err)
	}
	answer, err := runner.Run(ctx, req.Message)
	if err != nil {
		return Reply{}, err
	}
	st.AddExchange(req.Message, answer)

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.saveTimeout)
	defer cancel()
	if err := r.store.Save(saveCtx, st); err != nil {
		logger.Error("failed to save conversation state", "error", err)
		return Reply{}, fmt.Errorf("router: save state: %w", err)
	}
	logger.Debug("turn complete", "message_index", idx, "prior_exchanges", len(history)/2)
	return Reply{Text: answer, Index: idx, Actions: st.ActionsFor(idx)}, nil
}
