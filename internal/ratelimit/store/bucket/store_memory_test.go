package bucket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"clockgate/internal/ratelimit/models"
)

type InMemoryBucketSuite struct {
	suite.Suite
	now   time.Time
	store *InMemory
	limit models.Limit
}

func TestInMemoryBucketSuite(t *testing.T) {
	suite.Run(t, new(InMemoryBucketSuite))
}

func (s *InMemoryBucketSuite) SetupTest() {
	s.now = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	s.store = NewWithClock(func() time.Time { return s.now })
	s.limit = models.Limit{Requests: 3, Window: time.Minute}
}

func (s *InMemoryBucketSuite) TestSlidingWindow() {
	ctx := context.Background()

	s.Run("admits up to the limit", func() {
		for i := range 3 {
			res, err := s.store.Allow(ctx, "k", s.limit)
			s.Require().NoError(err)
			s.True(res.Allowed)
			s.Equal(2-i, res.Remaining)
			s.now = s.now.Add(10 * time.Second)
		}
	})

	s.Run("rejects the next request until the oldest ages out", func() {
		res, err := s.store.Allow(ctx, "k", s.limit)
		s.Require().NoError(err)
		s.False(res.Allowed)
		s.Equal(30, res.RetryAfter)

		s.now = s.now.Add(31 * time.Second)
		res, err = s.store.Allow(ctx, "k", s.limit)
		s.Require().NoError(err)
		s.True(res.Allowed)
	})

	s.Run("keys are independent", func() {
		res, err := s.store.Allow(ctx, "other", s.limit)
		s.Require().NoError(err)
		s.True(res.Allowed)
		s.Equal(2, res.Remaining)
	})

	s.Run("reset clears the window", func() {
		s.Require().NoError(s.store.Reset(ctx, "k"))
		res, err := s.store.Allow(ctx, "k", s.limit)
		s.Require().NoError(err)
		s.Equal(2, res.Remaining)
	})
}
