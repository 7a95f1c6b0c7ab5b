package store

import (
	"context"
	"sort"
	"sync"

	"clockgate/internal/biometric/models"
	id "clockgate/pkg/domain"
)

type CredentialMemory struct {
	mu          sync.RWMutex
	credentials map[id.IdentityID][]models.Credential
}

func NewCredentialMemory() *CredentialMemory {
	return &CredentialMemory{credentials: make(map[id.IdentityID][]models.Credential)}
}

// Save stores cred. With replace set, the identity's earlier credentials are dropped.
func (s *CredentialMemory) Save(_ context.Context, cred *models.Credential, replace bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if replace {
		s.credentials[cred.IdentityID] = nil
	}
	s.credentials[cred.IdentityID] = append(s.credentials[cred.IdentityID], *cred)
	return nil
}

func (s *CredentialMemory) ListByIdentity(_ context.Context, identityID id.IdentityID) ([]*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Credential, 0, len(s.credentials[identityID]))
	for _, c := range s.credentials[identityID] {
		cp := c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
