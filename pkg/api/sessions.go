package api

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/arxengine/pkg/engine"
)

// ErrSessionNotFound is returned for unknown session IDs
var ErrSessionNotFound = errors.New("session not found")

// Session is one game followed over a WebSocket connection
type Session struct {
	ID        string
	Board     engine.Board
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SessionStore keeps games by ID
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionStore creates an empty store
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*Session)}
}

// New starts a game from the initial position
func (s *SessionStore) New() Session {
	now := time.Now()
	sess := &Session{
		ID:        uuid.NewString(),
		Board:     engine.StartingPosition(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return *sess
}

// Get returns a copy of the session
func (s *SessionStore) Get(id string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return *sess, nil
}

// Update replaces the session's position
func (s *SessionStore) Update(id string, board engine.Board) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	sess.Board = board
	sess.UpdatedAt = time.Now()
	return nil
}

// Delete drops a session
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Len returns the number of live sessions
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
