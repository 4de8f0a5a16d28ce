package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/footyverse/prediction-league/internal/domain/fixture"
)

// Poll intervals recommended to clients watching a fixture. The live
// window runs from shortly before kickoff to two hours after it, which
// covers stoppage time, extra time, and delayed starts.
const (
	pollIntervalInPlay   = 15 * time.Second
	pollIntervalPaused   = 30 * time.Second
	pollIntervalImminent = time.Minute
	pollIntervalIdle     = 5 * time.Minute

	liveWindowLead = 15 * time.Minute
	liveWindowTail = 120 * time.Minute
)

// PollHint tells a client how often to re-poll a fixture. A zero
// interval means the fixture is settled and polling can stop.
type PollHint struct {
	FixtureID string        `json:"fixtureId"`
	Status    string        `json:"status"`
	Live      bool          `json:"live"`
	Interval  time.Duration `json:"-"`
	Seconds   int           `json:"pollSeconds"`
}

// AdvisePoll derives a polling recommendation from the fixture's
// status and kickoff time.
func AdvisePoll(fx fixture.Fixture, now time.Time) PollHint {
	hint := PollHint{
		FixtureID: fx.ID,
		Status:    string(fx.Status),
	}

	switch {
	case fixture.IsTerminal(fx.Status), fixture.IsAbandonedLike(fx.Status):
		// settled; nothing to poll for
	case fx.Status == fixture.StatusInPlay:
		hint.Live = true
		hint.Interval = pollIntervalInPlay
	case fx.Status == fixture.StatusPaused:
		hint.Live = true
		hint.Interval = pollIntervalPaused
	case inLiveWindow(fx.KickoffAt, now):
		// pre-match status inside the live window: the provider may
		// flip it any moment
		hint.Interval = pollIntervalImminent
	default:
		hint.Interval = pollIntervalIdle
	}

	hint.Seconds = int(hint.Interval / time.Second)
	return hint
}

func inLiveWindow(kickoff, now time.Time) bool {
	if kickoff.IsZero() {
		return false
	}
	return !now.Before(kickoff.Add(-liveWindowLead)) && !now.After(kickoff.Add(liveWindowTail))
}

// AdvisorService serves poll hints for stored fixtures.
type AdvisorService struct {
	fixtures fixture.Repository
	now      func() time.Time
}

func NewAdvisorService(fixtures fixture.Repository) *AdvisorService {
	return &AdvisorService{
		fixtures: fixtures,
		now:      time.Now,
	}
}

func (s *AdvisorService) PollHint(ctx context.Context, fixtureID string) (PollHint, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.Advisor.PollHint")
	defer span.End()

	fixtureID = strings.TrimSpace(fixtureID)
	if fixtureID == "" {
		return PollHint{}, fmt.Errorf("%w: fixture id is required", ErrInvalidInput)
	}

	fx, exists, err := s.fixtures.GetByID(ctx, fixtureID)
	if err != nil {
		return PollHint{}, fmt.Errorf("get fixture: %w", err)
	}
	if !exists {
		return PollHint{}, fmt.Errorf("%w: fixture=%s", ErrNotFound, fixtureID)
	}

	return AdvisePoll(fx, s.now()), nil
}
