package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"vla/internal/domain"
)

// ErrNotFound is returned by Store.Load when no state exists for a key.
var ErrNotFound = errors.New("session: state not found")

// Store persists conversation state.
type Store interface {
	Load(ctx context.Context, key domain.ConversationKey) (*State, error)
	Save(ctx context.Context, st *State) error
}

// nowFunc stamps saved states; tests replace it.
var nowFunc = time.Now

// LoadOrNew loads the state for key, or returns a fresh one when none exists.
func LoadOrNew(ctx context.Context, s Store, key domain.ConversationKey) (*State, error) {
	st, err := s.Load(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return NewState(key), nil
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}

func encode(st *State) ([]byte, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.UpdatedAt = nowFunc().UTC()
	data, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("session: encode %s: %w", st.Key, err)
	}
	return data, nil
}

func decode(key domain.ConversationKey, data []byte) (*State, error) {
	st := NewState(key)
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("session: decode %s: %w", key, err)
	}
	if st.Actions == nil {
		st.Actions = map[int][]string{}
	}
	st.Key = key
	return st, nil
}

// MemoryStore keeps states in process memory. States are stored encoded so
// callers never share a live *State.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string][]byte{}}
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context, key domain.ConversationKey) (*State, error) {
	m.mu.RLock()
	data, ok := m.data[key.String()]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decode(key, data)
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, st *State) error {
	data, err := encode(st)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[st.Key.String()] = data
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored conversations.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
