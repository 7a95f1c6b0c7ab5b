//go:build integration

package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"clockgate/internal/lostdevice/models"
	id "clockgate/pkg/domain"
	"clockgate/pkg/platform/sentinel"
	"clockgate/pkg/testutil/containers"
)

type PostgresLostDeviceStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *PostgresStore
	ctx      context.Context
	today    time.Time
}

func TestPostgresLostDeviceStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresLostDeviceStoreSuite))
}

func (s *PostgresLostDeviceStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = NewPostgres(s.postgres.DB)
	s.ctx = context.Background()
	s.today = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
}

func (s *PostgresLostDeviceStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(s.ctx, "lost_device_requests"))
}

func (s *PostgresLostDeviceStoreSuite) newRequest(identityID id.IdentityID) *models.Request {
	req, err := models.NewRequest(id.LostRequestID(uuid.New()), identityID, "fp-1", "stolen",
		s.today, s.today.AddDate(0, 0, 3), s.today, 30)
	s.Require().NoError(err)
	return req
}

func (s *PostgresLostDeviceStoreSuite) TestLifecycle() {
	owner := id.IdentityID(uuid.New())
	req := s.newRequest(owner)
	s.Require().NoError(s.store.Create(s.ctx, req))
	s.ErrorIs(s.store.Create(s.ctx, s.newRequest(owner)), sentinel.ErrConflict)

	found, err := s.store.FindByID(s.ctx, req.ID)
	s.Require().NoError(err)
	s.True(found.StartDate.Equal(s.today))
	s.Equal(models.StatusPending, found.Status)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Execute(s.ctx, req.ID,
				func(r *models.Request) error { return r.CanRespond() },
				func(r *models.Request) { r.ApplyDecision(models.DecisionGranted, id.IdentityID(uuid.New()), s.today) },
			)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	s.Equal(1, succeeded)

	active, err := s.store.HasActiveGrant(s.ctx, owner, s.today.AddDate(0, 0, 3))
	s.Require().NoError(err)
	s.True(active)
	active, err = s.store.HasActiveGrant(s.ctx, owner, s.today.AddDate(0, 0, 4))
	s.Require().NoError(err)
	s.False(active)

	s.NoError(s.store.Create(s.ctx, s.newRequest(owner)), "resolved requests no longer block new ones")
}
