package store

import (
	"context"
	"fmt"
	"sync"

	"clockgate/internal/clock/models"
	id "clockgate/pkg/domain"
	"clockgate/pkg/platform/sentinel"
)

type InMemory struct {
	mu       sync.RWMutex
	sessions map[id.IdentityID]models.Session
}

func NewInMemory() *InMemory {
	return &InMemory{sessions: make(map[id.IdentityID]models.Session)}
}

func (s *InMemory) Get(_ context.Context, identityID id.IdentityID) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[identityID]
	if !ok {
		return nil, fmt.Errorf("no session: %w", sentinel.ErrNotFound)
	}
	return &session, nil
}

func (s *InMemory) Save(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.IdentityID] = *session
	return nil
}
