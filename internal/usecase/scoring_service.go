package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/footyverse/prediction-league/internal/domain/fixture"
	"github.com/footyverse/prediction-league/internal/domain/prediction"
	"github.com/footyverse/prediction-league/internal/platform/logging"
)

// ScoreDelta is the per-user effect of scoring one fixture, consumed
// by the leaderboard aggregator. A zero delta with no class change is
// skipped before it ever reaches the aggregator.
type ScoreDelta struct {
	OrgID  string
	Season string
	UserID string

	PointsDelta  int
	FirstScoring bool
	WasExact     bool
	NowExact     bool
	WasOutcome   bool
	NowOutcome   bool

	// NeedsRecompute marks deltas whose previous classification could
	// not be derived unambiguously from the stored points. The
	// aggregator falls back to a full recompute for the org-season.
	NeedsRecompute bool
}

// ScoreResult summarises one fixture-scoring pass.
type ScoreResult struct {
	FixtureID       string `json:"fixtureId"`
	Processed       int    `json:"processed"`
	Updated         int    `json:"updated"`
	PointsAllocated int    `json:"pointsAllocated"`
	Skipped         bool   `json:"skipped"`
}

// LeaderboardApplier receives scoring deltas. Implemented by
// LeaderboardService; split out so tests can observe applied deltas.
type LeaderboardApplier interface {
	ApplyFixtureDeltas(ctx context.Context, deltas []ScoreDelta) error
}

// ScoringService awards points for predictions once a fixture
// finishes. Scoring sets each prediction's points to the computed
// value instead of adding to it, so replays and rescores are safe.
type ScoringService struct {
	fixtures    fixture.Repository
	predictions prediction.Repository
	leaderboard LeaderboardApplier
	logger      *logging.Logger
	now         func() time.Time
}

func NewScoringService(
	fixtures fixture.Repository,
	predictions prediction.Repository,
	leaderboard LeaderboardApplier,
	logger *logging.Logger,
) *ScoringService {
	if logger == nil {
		logger = logging.Default()
	}
	return &ScoringService{
		fixtures:    fixtures,
		predictions: predictions,
		leaderboard: leaderboard,
		logger:      logger,
		now:         time.Now,
	}
}

// ScoreFixture scores every prediction for one fixture. Fixtures that
// have not finished are a no-op rather than an error so reconciliation
// can call this unconditionally; a finished fixture without published
// scores is a caller bug and is rejected.
func (s *ScoringService) ScoreFixture(ctx context.Context, fixtureID string) (ScoreResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.Scoring.ScoreFixture")
	defer span.End()

	fixtureID = strings.TrimSpace(fixtureID)
	if fixtureID == "" {
		return ScoreResult{}, fmt.Errorf("%w: fixture id is required", ErrInvalidInput)
	}

	fx, exists, err := s.fixtures.GetByID(ctx, fixtureID)
	if err != nil {
		return ScoreResult{}, fmt.Errorf("get fixture: %w", err)
	}
	if !exists {
		return ScoreResult{}, fmt.Errorf("%w: fixture=%s", ErrNotFound, fixtureID)
	}

	if !fixture.IsFinished(fx.Status) {
		s.logger.DebugContext(ctx, "fixture not scoreable yet",
			"fixture_id", fixtureID,
			"status", string(fx.Status),
		)
		return ScoreResult{FixtureID: fixtureID, Skipped: true}, nil
	}
	if !fx.HasScores() {
		return ScoreResult{}, fmt.Errorf("%w: fixture=%s", ErrFixtureNotFinished, fixtureID)
	}
	if *fx.HomeScore < 0 || *fx.AwayScore < 0 {
		return ScoreResult{}, fmt.Errorf("%w: fixture=%s has negative scores", ErrInvalidInput, fixtureID)
	}

	preds, err := s.predictions.ListByFixture(ctx, fixtureID)
	if err != nil {
		return ScoreResult{}, fmt.Errorf("list predictions: %w", err)
	}

	result := ScoreResult{FixtureID: fixtureID}
	deltas := make([]ScoreDelta, 0, len(preds))
	scoredAt := s.now()

	for _, p := range preds {
		result.Processed++

		class := ClassifyPrediction(p.HomeGoals, p.AwayGoals, *fx.HomeScore, *fx.AwayScore)
		points := PointsFor(class, fx.Multiplier)
		result.PointsAllocated += points

		delta, changed := buildDelta(p, class, points, fx.Multiplier)
		if !changed {
			continue
		}

		if err := s.predictions.SetPoints(ctx, p.ID, points, scoredAt); err != nil {
			return ScoreResult{}, fmt.Errorf("set prediction points: %w", err)
		}
		result.Updated++
		deltas = append(deltas, delta)
	}

	if len(deltas) > 0 && s.leaderboard != nil {
		if err := s.leaderboard.ApplyFixtureDeltas(ctx, deltas); err != nil {
			return ScoreResult{}, fmt.Errorf("apply leaderboard deltas: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "fixture scored",
		"fixture_id", fixtureID,
		"processed", result.Processed,
		"updated", result.Updated,
		"points_allocated", result.PointsAllocated,
	)

	return result, nil
}

// buildDelta compares the freshly computed award against what the
// prediction already carries. changed=false means the stored points
// and classification are both current.
func buildDelta(p prediction.Prediction, class ScoreClass, points, multiplier int) (ScoreDelta, bool) {
	delta := ScoreDelta{
		OrgID:      p.OrgID,
		Season:     p.Season,
		UserID:     p.UserID,
		NowExact:   class == ScoreExact,
		NowOutcome: class == ScoreOutcome,
	}

	if p.Points == nil {
		delta.FirstScoring = true
		delta.PointsDelta = points
		return delta, true
	}

	prevClass, derivable := previousClass(*p.Points, class, multiplier)
	if *p.Points == points && derivable && prevClass == class {
		return ScoreDelta{}, false
	}

	delta.PointsDelta = points - *p.Points
	delta.WasExact = derivable && prevClass == ScoreExact
	delta.WasOutcome = derivable && prevClass == ScoreOutcome
	delta.NeedsRecompute = !derivable
	return delta, true
}
