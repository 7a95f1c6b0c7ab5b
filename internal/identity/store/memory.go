package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"clockgate/internal/identity/models"
	id "clockgate/pkg/domain"
	"clockgate/pkg/platform/sentinel"
)

// InMemory stores identities in memory for tests/dev.
type InMemory struct {
	mu         sync.RWMutex
	identities map[id.IdentityID]*models.Identity
}

func NewInMemory() *InMemory {
	return &InMemory{identities: make(map[id.IdentityID]*models.Identity)}
}

func (s *InMemory) Create(_ context.Context, identity *models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.identities[identity.ID]; exists {
		return fmt.Errorf("identity %s: %w", identity.ID, sentinel.ErrConflict)
	}
	cp := *identity
	s.identities[identity.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, identityID id.IdentityID) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.identities[identityID]
	if !ok {
		return nil, fmt.Errorf("identity not found: %w", sentinel.ErrNotFound)
	}
	cp := *identity
	return &cp, nil
}

// Execute runs validate then mutate under the write lock. Nothing is
// mutated when validate fails.
func (s *InMemory) Execute(_ context.Context, identityID id.IdentityID,
	validate func(*models.Identity) error, mutate func(*models.Identity)) (*models.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.identities[identityID]
	if !ok {
		return nil, fmt.Errorf("identity not found: %w", sentinel.ErrNotFound)
	}
	if err := validate(identity); err != nil {
		return nil, err
	}
	mutate(identity)
	cp := *identity
	return &cp, nil
}

func (s *InMemory) ListByDepartment(_ context.Context, department string) ([]*models.Identity, error) {
	return s.list(func(i *models.Identity) bool { return i.Department == department }), nil
}

func (s *InMemory) ListActive(_ context.Context, now time.Time) ([]*models.Identity, error) {
	return s.list(func(i *models.Identity) bool { return i.IsEmployed(now) }), nil
}

func (s *InMemory) list(keep func(*models.Identity) bool) []*models.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Identity
	for _, identity := range s.identities {
		if keep(identity) {
			cp := *identity
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}
