package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type BreakerSuite struct {
	suite.Suite
	now     time.Time
	breaker *Breaker
}

func TestBreakerSuite(t *testing.T) {
	suite.Run(t, new(BreakerSuite))
}

func (s *BreakerSuite) SetupTest() {
	s.now = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.breaker = New("socure",
		WithFailureThreshold(2),
		WithCooldown(10*time.Second),
		WithClock(func() time.Time { return s.now }),
	)
}

func (s *BreakerSuite) TestOpensAfterConsecutiveFailures() {
	s.True(s.breaker.Allow())
	s.Equal(StateChange{}, s.breaker.RecordFailure())
	s.Equal(StateChange{Opened: true}, s.breaker.RecordFailure())
	s.Equal(StateOpen, s.breaker.State())
	s.False(s.breaker.Allow())
}

func (s *BreakerSuite) TestSuccessResetsFailureCount() {
	s.breaker.RecordFailure()
	s.breaker.RecordSuccess()
	s.breaker.RecordFailure()
	s.Equal(StateClosed, s.breaker.State())
}

func (s *BreakerSuite) TestHalfOpenProbeClosesOnSuccess() {
	s.breaker.RecordFailure()
	s.breaker.RecordFailure()

	s.now = s.now.Add(9 * time.Second)
	s.False(s.breaker.Allow(), "still cooling down")

	s.now = s.now.Add(time.Second)
	s.True(s.breaker.Allow(), "probe allowed")
	s.Equal(StateHalfOpen, s.breaker.State())
	s.False(s.breaker.Allow(), "only one probe at a time")

	s.Equal(StateChange{Closed: true}, s.breaker.RecordSuccess())
	s.Equal(StateClosed, s.breaker.State())
	s.True(s.breaker.Allow())
}

func (s *BreakerSuite) TestHalfOpenProbeFailureReopens() {
	s.breaker.RecordFailure()
	s.breaker.RecordFailure()
	s.now = s.now.Add(10 * time.Second)
	s.Require().True(s.breaker.Allow())

	s.breaker.RecordFailure()
	s.Equal(StateOpen, s.breaker.State())
	s.False(s.breaker.Allow(), "fresh cooldown")

	s.now = s.now.Add(10 * time.Second)
	s.True(s.breaker.Allow())
}

func (s *BreakerSuite) TestReset() {
	s.breaker.RecordFailure()
	s.breaker.RecordFailure()
	s.breaker.Reset()
	s.Equal(StateClosed, s.breaker.State())
	s.Equal("closed", s.breaker.State().String())
	s.Equal("socure", s.breaker.Name())
}
