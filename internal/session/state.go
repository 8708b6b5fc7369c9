// Package session keeps the per-conversation state of the leasing agent: how
// many messages the prospect has sent, the exchange history and the actions
// the agent took for each message.
package session

import (
	"context"
	"sync"
	"time"

	"vla/internal/domain"
)

// Exchange is one prospect message and the agent's reply.
type Exchange struct {
	Human string `json:"human_message"`
	AI    string `json:"ai_message"`
}

// State is the stored state of one conversation.
type State struct {
	mu sync.Mutex

	Key                 domain.ConversationKey `json:"key"`
	NumProspectMessages int                    `json:"num_prospect_messages"`
	History             []Exchange             `json:"conversation_history"`
	// Actions maps a prospect message index to the actions taken for it.
	Actions   map[int][]string `json:"actions"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// NewState returns an empty state for key.
func NewState(key domain.ConversationKey) *State {
	return &State{Key: key, Actions: map[int][]string{}}
}

// BeginMessage counts a new prospect message and returns its index.
func (s *State) BeginMessage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NumProspectMessages++
	return s.NumProspectMessages
}

// AddExchange appends a prospect message and the agent's reply.
func (s *State) AddExchange(human, ai string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.History = append(s.History, Exchange{Human: human, AI: ai})
}

// AddAction records an action for a message index. Repeats are ignored.
func (s *State) AddAction(index int, action string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Actions == nil {
		s.Actions = map[int][]string{}
	}
	for _, a := range s.Actions[index] {
		if a == action {
			return
		}
	}
	s.Actions[index] = append(s.Actions[index], action)
}

// ActionsFor returns the actions recorded for a message index.
func (s *State) ActionsFor(index int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.Actions[index]...)
}

// Recorder returns an ActionRecorder that files actions under index.
func (s *State) Recorder(index int) domain.ActionRecorder {
	return domain.ActionRecorderFunc(func(_ context.Context, action string) error {
		s.AddAction(index, action)
		return nil
	})
}

// Messages flattens the history into alternating user and assistant messages
// for seeding an agent's memory.
func (s *State) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Message, 0, 2*len(s.History))
	for _, ex := range s.History {
		out = append(out,
			domain.Message{Role: domain.RoleUser, Content: ex.Human},
			domain.Message{Role: domain.RoleAssistant, Content: ex.AI},
		)
	}
	return out
}
