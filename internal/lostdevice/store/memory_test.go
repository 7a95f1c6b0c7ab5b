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
)

type InMemoryLostDeviceStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	today time.Time
}

func TestInMemoryLostDeviceStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryLostDeviceStoreSuite))
}

func (s *InMemoryLostDeviceStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.today = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
}

func (s *InMemoryLostDeviceStoreSuite) newRequest(identityID id.IdentityID, fingerprint string) *models.Request {
	req, err := models.NewRequest(id.LostRequestID(uuid.New()), identityID, fingerprint, "left on a matatu",
		s.today, s.today.AddDate(0, 0, 5), s.today, 30)
	s.Require().NoError(err)
	return req
}

func (s *InMemoryLostDeviceStoreSuite) TestCreate() {
	owner := id.IdentityID(uuid.New())
	s.Require().NoError(s.store.Create(s.ctx, s.newRequest(owner, "fp-1")))

	s.Run("second pending request for the same device conflicts", func() {
		s.ErrorIs(s.store.Create(s.ctx, s.newRequest(owner, "fp-1")), sentinel.ErrConflict)
	})
	s.Run("different device is allowed", func() {
		s.NoError(s.store.Create(s.ctx, s.newRequest(owner, "fp-2")))
	})

	pending, err := s.store.ListPending(s.ctx)
	s.Require().NoError(err)
	s.Len(pending, 2)
}

func (s *InMemoryLostDeviceStoreSuite) TestExecuteIsCompareAndSwap() {
	owner := id.IdentityID(uuid.New())
	req := s.newRequest(owner, "fp-1")
	s.Require().NoError(s.store.Create(s.ctx, req))

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, decision := range []models.Decision{models.DecisionGranted, models.DecisionRejected} {
		wg.Add(1)
		go func(d models.Decision) {
			defer wg.Done()
			_, err := s.store.Execute(s.ctx, req.ID,
				func(r *models.Request) error { return r.CanRespond() },
				func(r *models.Request) { r.ApplyDecision(d, id.IdentityID(uuid.New()), s.today) },
			)
			results <- err
		}(decision)
	}
	wg.Wait()
	close(results)

	failures := 0
	for err := range results {
		if err != nil {
			failures++
		}
	}
	s.Equal(1, failures)

	_, err := s.store.Execute(s.ctx, id.LostRequestID(uuid.New()),
		func(*models.Request) error { return nil }, func(*models.Request) {})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryLostDeviceStoreSuite) TestHasActiveGrant() {
	owner := id.IdentityID(uuid.New())
	req := s.newRequest(owner, "fp-1")
	s.Require().NoError(s.store.Create(s.ctx, req))

	active, err := s.store.HasActiveGrant(s.ctx, owner, s.today)
	s.Require().NoError(err)
	s.False(active)

	_, err = s.store.Execute(s.ctx, req.ID,
		func(r *models.Request) error { return r.CanRespond() },
		func(r *models.Request) { r.ApplyDecision(models.DecisionGranted, id.IdentityID(uuid.New()), s.today) },
	)
	s.Require().NoError(err)

	active, err = s.store.HasActiveGrant(s.ctx, owner, s.today.AddDate(0, 0, 5))
	s.Require().NoError(err)
	s.True(active)

	active, err = s.store.HasActiveGrant(s.ctx, owner, s.today.AddDate(0, 0, 6))
	s.Require().NoError(err)
	s.False(active)
}
