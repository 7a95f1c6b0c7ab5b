package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"clockgate/internal/attendance/models"
	id "clockgate/pkg/domain"
	"clockgate/pkg/platform/sentinel"
)

type InMemory struct {
	mu      sync.RWMutex
	records map[id.RecordID]*models.Record
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[id.RecordID]*models.Record)}
}

// Open stores a new open record. ErrConflict if the identity already has one.
func (s *InMemory) Open(_ context.Context, rec *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.IdentityID == rec.IdentityID && !r.Sealed() {
			return fmt.Errorf("open record exists: %w", sentinel.ErrConflict)
		}
	}
	cp := *rec
	s.records[rec.ID] = &cp
	return nil
}

func (s *InMemory) FindOpen(_ context.Context, identityID id.IdentityID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.IdentityID == identityID && !r.Sealed() {
			cp := *r
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("no open record: %w", sentinel.ErrNotFound)
}

func (s *InMemory) Execute(_ context.Context, recordID id.RecordID, validate func(*models.Record) error, mutate func(*models.Record)) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[recordID]
	if !ok {
		return nil, fmt.Errorf("record not found: %w", sentinel.ErrNotFound)
	}
	if err := validate(r); err != nil {
		return nil, err
	}
	mutate(r)
	cp := *r
	return &cp, nil
}

// ListByIdentities returns records whose clock-in falls in [from, to),
// ordered by clock-in. An empty identity list means every identity.
func (s *InMemory) ListByIdentities(_ context.Context, identityIDs []id.IdentityID, from, to time.Time) ([]*models.Record, error) {
	want := make(map[id.IdentityID]struct{}, len(identityIDs))
	for _, identityID := range identityIDs {
		want[identityID] = struct{}{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Record
	for _, r := range s.records {
		if len(want) > 0 {
			if _, ok := want[r.IdentityID]; !ok {
				continue
			}
		}
		if r.ClockIn.Before(from) || !r.ClockIn.Before(to) {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ClockIn.Equal(out[j].ClockIn) {
			return out[i].ClockIn.Before(out[j].ClockIn)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}
