package game

import (
	"sync"

	"github.com/google/uuid"
)

// Store is the in-memory session registry. The map is guarded by an RWMutex;
// mutation of a session's fields happens under that session's own lock, so
// unrelated sessions never serialize behind each other.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Create allocates a new active session in static mode and returns it.
func (st *Store) Create() *Session {
	s := &Session{
		ID:               uuid.NewString(),
		Mode:             ModeStatic,
		Status:           StatusActive,
		GenerationStatus: GenerationIdle,
	}

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()

	return s
}

// Get returns the session for id. Absence is a normal outcome, not an error.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	return s, ok
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
