package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Store keeps the live sessions of the kiosk.
type Store struct {
	deps     Deps
	mu       sync.RWMutex
	sessions map[string]*Session
	newID    func() string
}

func NewStore(deps Deps) *Store {
	return &Store{
		deps:     deps,
		sessions: make(map[string]*Session),
		newID:    func() string { return uuid.NewString() },
	}
}

// Create registers a new session and starts it. The session is kept even
// when Start fails, so the visitor can see the notice and retry. Back
// removes it from the store.
func (st *Store) Create(ctx context.Context, photos []string, frameType string) (*Session, error) {
	id := st.newID()
	s := New(st.deps, Params{
		ID:        id,
		Photos:    photos,
		FrameType: frameType,
		OnBack:    func() { st.remove(id) },
	})

	st.mu.Lock()
	st.sessions[id] = s
	st.mu.Unlock()

	return s, s.Start(ctx)
}

// Get returns a live session.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

func (st *Store) remove(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

// CloseAll cancels every session's background work.
func (st *Store) CloseAll() {
	st.mu.Lock()
	all := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		all = append(all, s)
	}
	st.sessions = make(map[string]*Session)
	st.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
}
