//go:build integration

package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"clockgate/internal/biometric/models"
	id "clockgate/pkg/domain"
	"clockgate/pkg/platform/sentinel"
	"clockgate/pkg/testutil/containers"
)

type ChallengeRedisSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *ChallengeRedis
	ctx   context.Context
	now   time.Time
}

func TestChallengeRedisSuite(t *testing.T) {
	suite.Run(t, new(ChallengeRedisSuite))
}

func (s *ChallengeRedisSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = NewChallengeRedis(s.redis.Client)
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
}

func (s *ChallengeRedisSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *ChallengeRedisSuite) save(owner id.IdentityID, value string) {
	s.Require().NoError(s.store.Save(s.ctx, models.Challenge{
		Value: value, IdentityID: owner, Purpose: models.PurposeRegistration,
		IssuedAt: s.now, ExpiresAt: s.now.Add(2 * time.Minute),
	}))
}

func (s *ChallengeRedisSuite) TestConsumeOnce() {
	owner := id.IdentityID(uuid.New())
	s.save(owner, "nonce")

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.store.Consume(s.ctx, owner, "nonce", s.now); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	s.Equal(1, wins)
}

func (s *ChallengeRedisSuite) TestExpiredAndForeign() {
	owner := id.IdentityID(uuid.New())
	s.save(owner, "late")
	_, err := s.store.Consume(s.ctx, owner, "late", s.now.Add(3*time.Minute))
	s.ErrorIs(err, sentinel.ErrExpired)

	s.save(owner, "mine")
	_, err = s.store.Consume(s.ctx, id.IdentityID(uuid.New()), "mine", s.now)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
