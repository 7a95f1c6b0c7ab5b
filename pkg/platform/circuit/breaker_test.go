package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type BreakerSuite struct {
	suite.Suite
	now time.Time
}

func TestBreakerSuite(t *testing.T) {
	suite.Run(t, new(BreakerSuite))
}

func (s *BreakerSuite) SetupTest() {
	s.now = time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
}

func (s *BreakerSuite) newBreaker(opts ...Option) *Breaker {
	return New("redis", append([]Option{WithClock(func() time.Time { return s.now })}, opts...)...)
}

func (s *BreakerSuite) fail(b *Breaker, n int) {
	for range n {
		b.RecordFailure()
	}
}

func (s *BreakerSuite) TestOpening() {
	s.Run("starts closed", func() {
		b := s.newBreaker()
		s.Equal("redis", b.Name())
		s.Equal(StateClosed, b.State())
		s.True(b.Allow())
	})

	s.Run("opens on the threshold failure only", func() {
		b := s.newBreaker(WithFailureThreshold(3))
		s.fail(b, 2)
		s.False(b.IsOpen())

		useFallback, change := b.RecordFailure()
		s.True(useFallback)
		s.True(change.Opened)
		s.True(b.IsOpen())

		useFallback, change = b.RecordFailure()
		s.True(useFallback)
		s.False(change.Opened, "already open")
	})

	s.Run("a success clears accumulated failures", func() {
		b := s.newBreaker(WithFailureThreshold(3))
		s.fail(b, 2)
		b.RecordSuccess()
		s.fail(b, 2)
		s.False(b.IsOpen())
		s.fail(b, 1)
		s.True(b.IsOpen())
	})
}

func (s *BreakerSuite) TestClosing() {
	s.Run("needs consecutive successes", func() {
		b := s.newBreaker(WithFailureThreshold(1), WithSuccessThreshold(3))
		s.fail(b, 1)

		b.RecordSuccess()
		b.RecordSuccess()
		b.RecordFailure()
		b.RecordSuccess()
		b.RecordSuccess()
		s.True(b.IsOpen())

		usePrimary, change := b.RecordSuccess()
		s.True(usePrimary)
		s.True(change.Closed)
		s.Equal(StateClosed, b.State())
	})

	s.Run("reset closes immediately", func() {
		b := s.newBreaker(WithFailureThreshold(1))
		s.fail(b, 1)
		b.Reset()
		s.False(b.IsOpen())
	})
}

func (s *BreakerSuite) TestCooldown() {
	s.Run("zero cooldown keeps probing", func() {
		b := s.newBreaker(WithFailureThreshold(1))
		s.fail(b, 1)
		s.True(b.Allow())
	})

	s.Run("probes wait out the cooldown", func() {
		b := s.newBreaker(WithFailureThreshold(1), WithCooldown(30*time.Second))
		s.fail(b, 1)
		s.False(b.Allow())

		s.now = s.now.Add(31 * time.Second)
		s.True(b.Allow())
	})

	s.Run("a failed probe restarts the cooldown", func() {
		b := s.newBreaker(WithFailureThreshold(1), WithCooldown(30*time.Second))
		s.fail(b, 1)
		s.now = s.now.Add(31 * time.Second)
		s.fail(b, 1)
		s.False(b.Allow())
	})
}
