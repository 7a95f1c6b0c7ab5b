package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"clockgate/internal/lostdevice/models"
	id "clockgate/pkg/domain"
	"clockgate/pkg/platform/sentinel"
)

// InMemory stores lost-device requests. Execute holds the write lock across
// validate and mutate, which makes responses a compare-and-swap on status.
type InMemory struct {
	mu       sync.RWMutex
	requests map[id.LostRequestID]*models.Request
}

func NewInMemory() *InMemory {
	return &InMemory{requests: make(map[id.LostRequestID]*models.Request)}
}

// Create fails with ErrConflict while the identity has a pending request
// for the same fingerprint.
func (s *InMemory) Create(_ context.Context, req *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.requests {
		if existing.IdentityID == req.IdentityID &&
			existing.Fingerprint == req.Fingerprint &&
			existing.Status == models.StatusPending {
			return fmt.Errorf("pending request exists: %w", sentinel.ErrConflict)
		}
	}
	cp := *req
	s.requests[req.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, requestID id.LostRequestID) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[requestID]
	if !ok {
		return nil, fmt.Errorf("lost device request not found: %w", sentinel.ErrNotFound)
	}
	cp := *req
	return &cp, nil
}

func (s *InMemory) ListByIdentity(_ context.Context, identityID id.IdentityID) ([]*models.Request, error) {
	return s.list(func(r *models.Request) bool { return r.IdentityID == identityID }), nil
}

func (s *InMemory) ListPending(_ context.Context) ([]*models.Request, error) {
	return s.list(func(r *models.Request) bool { return r.Status == models.StatusPending }), nil
}

// HasActiveGrant reports whether any granted request of identityID covers day.
func (s *InMemory) HasActiveGrant(_ context.Context, identityID id.IdentityID, day time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.requests {
		if r.IdentityID == identityID && r.Covers(day) {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemory) Execute(_ context.Context, requestID id.LostRequestID, validate func(*models.Request) error, mutate func(*models.Request)) (*models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[requestID]
	if !ok {
		return nil, fmt.Errorf("lost device request not found: %w", sentinel.ErrNotFound)
	}
	if err := validate(req); err != nil {
		return nil, err
	}
	mutate(req)
	cp := *req
	return &cp, nil
}

func (s *InMemory) list(keep func(*models.Request) bool) []*models.Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Request
	for _, r := range s.requests {
		if keep(r) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}
