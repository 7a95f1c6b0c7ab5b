package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"clockgate/internal/identity/models"
	id "clockgate/pkg/domain"
	"clockgate/pkg/platform/sentinel"
)

type IdentityStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	now   time.Time
}

func (s *IdentityStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
}

func TestIdentityStoreSuite(t *testing.T) {
	suite.Run(t, new(IdentityStoreSuite))
}

func (s *IdentityStoreSuite) newIdentity(name, dept string) *models.Identity {
	identity, err := models.NewIdentity(id.IdentityID(uuid.New()), name, id.RoleEmployee, dept, nil, s.now, nil, s.now)
	s.Require().NoError(err)
	return identity
}

func (s *IdentityStoreSuite) TestCreateAndFind() {
	identity := s.newIdentity("Wanjiru", "ops")
	s.Require().NoError(s.store.Create(s.ctx, identity))
	s.ErrorIs(s.store.Create(s.ctx, identity), sentinel.ErrConflict)

	found, err := s.store.FindByID(s.ctx, identity.ID)
	s.Require().NoError(err)
	s.Equal("Wanjiru", found.Name)

	found.Name = "mutated"
	again, err := s.store.FindByID(s.ctx, identity.ID)
	s.Require().NoError(err)
	s.Equal("Wanjiru", again.Name, "callers get copies")

	_, err = s.store.FindByID(s.ctx, id.IdentityID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *IdentityStoreSuite) TestExecute() {
	identity := s.newIdentity("Wanjiru", "ops")
	s.Require().NoError(s.store.Create(s.ctx, identity))

	s.Run("validation failure leaves record untouched", func() {
		_, err := s.store.Execute(s.ctx, identity.ID,
			func(*models.Identity) error { return errors.New("nope") },
			func(i *models.Identity) { i.Status = models.StatusInactive },
		)
		s.Require().Error(err)
		found, _ := s.store.FindByID(s.ctx, identity.ID)
		s.Equal(models.StatusPending, found.Status)
	})

	s.Run("mutation is persisted", func() {
		updated, err := s.store.Execute(s.ctx, identity.ID,
			func(i *models.Identity) error { return i.CanApprove() },
			func(i *models.Identity) { i.ApplyApproval(id.IdentityID(uuid.New()), s.now) },
		)
		s.Require().NoError(err)
		s.Equal(models.StatusActive, updated.Status)
	})
}

func (s *IdentityStoreSuite) TestListings() {
	a := s.newIdentity("Baraka", "ops")
	b := s.newIdentity("Achieng", "ops")
	c := s.newIdentity("Chebet", "finance")
	for _, i := range []*models.Identity{a, b, c} {
		s.Require().NoError(s.store.Create(s.ctx, i))
	}
	_, err := s.store.Execute(s.ctx, c.ID, func(*models.Identity) error { return nil },
		func(i *models.Identity) { i.ApplyApproval(id.IdentityID(uuid.New()), s.now) })
	s.Require().NoError(err)

	ops, err := s.store.ListByDepartment(s.ctx, "ops")
	s.Require().NoError(err)
	s.Require().Len(ops, 2)
	s.Equal("Achieng", ops[0].Name)

	active, err := s.store.ListActive(s.ctx, s.now)
	s.Require().NoError(err)
	s.Require().Len(active, 1)
	s.Equal(c.ID, active[0].ID)
}
