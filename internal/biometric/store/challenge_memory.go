package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"clockgate/internal/biometric/models"
	id "clockgate/pkg/domain"
	"clockgate/pkg/platform/sentinel"
)

// ChallengeMemory keeps outstanding challenges per identity. Consume removes
// the entry under the same lock that reads it, so a challenge is handed out
// at most once. Save drops the identity's lapsed challenges, which bounds the
// map the way the Redis TTL bounds its keys.
type ChallengeMemory struct {
	mu         sync.Mutex
	challenges map[id.IdentityID]map[string]models.Challenge
}

func NewChallengeMemory() *ChallengeMemory {
	return &ChallengeMemory{challenges: make(map[id.IdentityID]map[string]models.Challenge)}
}

func (s *ChallengeMemory) Save(_ context.Context, challenge models.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	outstanding, ok := s.challenges[challenge.IdentityID]
	if !ok {
		outstanding = make(map[string]models.Challenge)
		s.challenges[challenge.IdentityID] = outstanding
	}
	for value, c := range outstanding {
		if c.ExpiredAt(challenge.IssuedAt) {
			delete(outstanding, value)
		}
	}
	outstanding[challenge.Value] = challenge
	return nil
}

// Consume returns and deletes the challenge. Unknown or already-used values
// fail with ErrNotFound; lapsed ones with ErrExpired.
func (s *ChallengeMemory) Consume(_ context.Context, identityID id.IdentityID, value string, now time.Time) (*models.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	outstanding := s.challenges[identityID]
	challenge, ok := outstanding[value]
	if !ok {
		return nil, fmt.Errorf("challenge not outstanding: %w", sentinel.ErrNotFound)
	}
	delete(outstanding, value)
	if len(outstanding) == 0 {
		delete(s.challenges, identityID)
	}
	if challenge.ExpiredAt(now) {
		return nil, fmt.Errorf("challenge lapsed at %s: %w", challenge.ExpiresAt.Format(time.RFC3339), sentinel.ErrExpired)
	}
	return &challenge, nil
}

// outstanding counts the challenges held for identityID.
func (s *ChallengeMemory) outstanding(identityID id.IdentityID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.challenges[identityID])
}
