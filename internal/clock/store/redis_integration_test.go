//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"clockgate/internal/clock/models"
	"clockgate/internal/geo"
	id "clockgate/pkg/domain"
	"clockgate/pkg/platform/sentinel"
	"clockgate/pkg/testutil/containers"
)

type SessionRedisSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *RedisStore
	ctx   context.Context
	now   time.Time
}

func TestSessionRedisSuite(t *testing.T) {
	suite.Run(t, new(SessionRedisSuite))
}

func (s *SessionRedisSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = NewRedis(s.redis.Client, time.Hour)
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
}

func (s *SessionRedisSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *SessionRedisSuite) TestRoundTrip() {
	owner := id.IdentityID(uuid.New())

	_, err := s.store.Get(s.ctx, owner)
	s.ErrorIs(err, sentinel.ErrNotFound)

	session := models.NewSession(owner, s.now)
	session.ApplyLocationVerified("hq", geo.Position{Lat: -1.29, Lng: 36.82}, 12, s.now)
	session.Advance(false, true, s.now)
	s.Require().NoError(s.store.Save(s.ctx, session))

	got, err := s.store.Get(s.ctx, owner)
	s.Require().NoError(err)
	s.Equal(models.PhaseReadyToClockIn, got.Phase)
	s.Equal(id.StationCode("hq"), got.Station)
	s.Require().NotNil(got.VerifiedAt)
	s.True(got.VerifiedAt.Equal(s.now))

	ttl, err := s.redis.Client.TTL(s.ctx, sessionKey(owner)).Result()
	s.Require().NoError(err)
	s.Greater(ttl, 59*time.Minute)
}
