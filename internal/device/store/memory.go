package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"clockgate/internal/device/models"
	id "clockgate/pkg/domain"
	"clockgate/pkg/platform/sentinel"
)

// InMemory keeps devices keyed by fingerprint. One mutex covers capacity
// and uniqueness checks so concurrent enrollments cannot both pass.
type InMemory struct {
	mu            sync.RWMutex
	byFingerprint map[string]*models.Device
}

func NewInMemory() *InMemory {
	return &InMemory{byFingerprint: make(map[string]*models.Device)}
}

// Enroll inserts d if its fingerprint is unused and the owner holds fewer
// than maxDevices non-lost devices. d.Primary is set when the owner has no
// primary device.
func (s *InMemory) Enroll(_ context.Context, d *models.Device, maxDevices int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byFingerprint[d.Fingerprint]; taken {
		return fmt.Errorf("fingerprint already enrolled: %w", sentinel.ErrConflict)
	}
	active, hasPrimary := 0, false
	for _, existing := range s.byFingerprint {
		if existing.IdentityID != d.IdentityID {
			continue
		}
		if !existing.Lost {
			active++
		}
		if existing.Primary {
			hasPrimary = true
		}
	}
	if active >= maxDevices {
		return fmt.Errorf("identity holds %d devices: %w", active, sentinel.ErrCapacity)
	}
	d.Primary = !hasPrimary
	cp := *d
	s.byFingerprint[d.Fingerprint] = &cp
	return nil
}

func (s *InMemory) FindByFingerprint(_ context.Context, fingerprint string) (*models.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.byFingerprint[fingerprint]
	if !ok {
		return nil, fmt.Errorf("device not found: %w", sentinel.ErrNotFound)
	}
	cp := *d
	return &cp, nil
}

func (s *InMemory) ListByIdentity(_ context.Context, identityID id.IdentityID) ([]*models.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Device
	for _, d := range s.byFingerprint {
		if d.IdentityID == identityID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sortDevices(out)
	return out, nil
}

// MarkLost flags the identity's device lost. Already-lost devices are returned unchanged.
func (s *InMemory) MarkLost(_ context.Context, identityID id.IdentityID, fingerprint string, now time.Time) (*models.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.byFingerprint[fingerprint]
	if !ok || d.IdentityID != identityID {
		return nil, fmt.Errorf("device not found: %w", sentinel.ErrNotFound)
	}
	d.ApplyLost(now)
	cp := *d
	return &cp, nil
}

func (s *InMemory) Remove(_ context.Context, identityID id.IdentityID, fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.byFingerprint[fingerprint]
	if !ok || d.IdentityID != identityID {
		return fmt.Errorf("device not found: %w", sentinel.ErrNotFound)
	}
	if d.Primary {
		return fmt.Errorf("primary device: %w", sentinel.ErrInvalidState)
	}
	delete(s.byFingerprint, fingerprint)
	return nil
}

func sortDevices(devices []*models.Device) {
	sort.Slice(devices, func(i, j int) bool {
		if !devices[i].EnrolledAt.Equal(devices[j].EnrolledAt) {
			return devices[i].EnrolledAt.Before(devices[j].EnrolledAt)
		}
		return devices[i].Fingerprint < devices[j].Fingerprint
	})
}
