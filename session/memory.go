package session

import (
	"context"
	"sync"
	"time"
)

type userState struct {
	prefs   Preferences
	history []Message
	pending *PendingAction
}

// MemoryStore is an in-process Store. State is lost on restart; the Store
// interface is the seam for a durable backend.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[string]*userState
	maxHistory int
	now        func() time.Time
}

// NewMemoryStore returns a MemoryStore that keeps at most maxHistory messages
// per user. maxHistory values below 1 fall back to a sane default.
func NewMemoryStore(maxHistory int) *MemoryStore {
	if maxHistory < 1 {
		maxHistory = 20
	}
	return &MemoryStore{
		users:      make(map[string]*userState),
		maxHistory: maxHistory,
		now:        time.Now,
	}
}

// NewMemoryStoreWithClock is NewMemoryStore with an injectable clock, the
// seam tests outside this package use to control pending-action expiry.
func NewMemoryStoreWithClock(maxHistory int, now func() time.Time) *MemoryStore {
	s := NewMemoryStore(maxHistory)
	if now != nil {
		s.now = now
	}
	return s
}

func (s *MemoryStore) state(userID string) *userState {
	st, ok := s.users[userID]
	if !ok {
		st = &userState{}
		s.users[userID] = st
	}
	return st
}

func (s *MemoryStore) Preferences(_ context.Context, userID string) (Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.users[userID]; ok {
		return st.prefs, nil
	}
	return Preferences{}, nil
}

func (s *MemoryStore) SetPreferences(_ context.Context, userID string, prefs Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state(userID).prefs = prefs
	return nil
}

func (s *MemoryStore) History(_ context.Context, userID string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	out := make([]Message, len(st.history))
	copy(out, st.history)
	return out, nil
}

func (s *MemoryStore) AppendHistory(_ context.Context, userID string, msgs ...Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(userID)
	st.history = append(st.history, msgs...)
	if excess := len(st.history) - s.maxHistory; excess > 0 {
		st.history = append(st.history[:0:0], st.history[excess:]...)
	}
	return nil
}

func (s *MemoryStore) ClearHistory(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.users[userID]; ok {
		st.history = nil
	}
	return nil
}

func (s *MemoryStore) PendingAction(_ context.Context, userID string) (*PendingAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.users[userID]
	if !ok || st.pending == nil {
		return nil, nil
	}
	if st.pending.Expired(s.now()) {
		st.pending = nil
		return nil, nil
	}
	cp := *st.pending
	return &cp, nil
}

func (s *MemoryStore) SetPendingAction(_ context.Context, userID string, action *PendingAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if action == nil {
		s.state(userID).pending = nil
		return nil
	}
	cp := *action
	s.state(userID).pending = &cp
	return nil
}

func (s *MemoryStore) ClearPendingAction(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state(userID).pending = nil
	return nil
}
