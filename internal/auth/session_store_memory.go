package auth

import (
	"context"
	"sync"
)

// NewInMemorySessionStore returns a SessionStore backed by an in-memory map.
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{tokens: make(map[string]string)}
}

// InMemorySessionStore implements SessionStore for tests and local development.
type InMemorySessionStore struct {
	mu     sync.Mutex
	tokens map[string]string
}

// SaveRefreshToken replaces the user's active token.
func (s *InMemorySessionStore) SaveRefreshToken(_ context.Context, userID, token string) error {
	s.mu.Lock()
	s.tokens[userID] = token
	s.mu.Unlock()
	return nil
}

// RotateRefreshToken swaps current for next when current is active.
func (s *InMemorySessionStore) RotateRefreshToken(_ context.Context, userID, current, next string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if active, ok := s.tokens[userID]; !ok || active != current {
		return ErrSessionNotFound
	}
	s.tokens[userID] = next
	return nil
}

// ClearRefreshToken ends the user's session.
func (s *InMemorySessionStore) ClearRefreshToken(_ context.Context, userID string) error {
	s.mu.Lock()
	delete(s.tokens, userID)
	s.mu.Unlock()
	return nil
}

// Active returns the user's active token. Useful for tests.
func (s *InMemorySessionStore) Active(userID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[userID]
	return token, ok
}
