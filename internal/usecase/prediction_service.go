package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/footyverse/prediction-league/internal/domain/fixture"
	"github.com/footyverse/prediction-league/internal/domain/prediction"
	"github.com/footyverse/prediction-league/internal/platform/id"
	"github.com/footyverse/prediction-league/internal/platform/logging"
)

// submissionLockLead is how long before kickoff predictions freeze.
const submissionLockLead = 30 * time.Minute

// PredictionService accepts and lists member predictions. Submissions
// lock thirty minutes before kickoff; a member may revise their
// scoreline any number of times before that.
type PredictionService struct {
	fixtures    fixture.Repository
	predictions prediction.Repository
	leaderboard *LeaderboardService
	ids         id.Generator
	logger      *logging.Logger
	now         func() time.Time
}

func NewPredictionService(
	fixtures fixture.Repository,
	predictions prediction.Repository,
	leaderboard *LeaderboardService,
	ids id.Generator,
	logger *logging.Logger,
) *PredictionService {
	if logger == nil {
		logger = logging.Default()
	}
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	return &PredictionService{
		fixtures:    fixtures,
		predictions: predictions,
		leaderboard: leaderboard,
		ids:         ids,
		logger:      logger,
		now:         time.Now,
	}
}

type SubmitPredictionInput struct {
	OrgID     string `json:"orgId" validate:"required"`
	UserID    string `json:"userId" validate:"required"`
	FixtureID string `json:"fixtureId" validate:"required"`
	HomeGoals int    `json:"homeGoals" validate:"min=0,max=99"`
	AwayGoals int    `json:"awayGoals" validate:"min=0,max=99"`
}

// Submit stores a prediction for an upcoming fixture. Revisions inside
// the open window overwrite the previous scoreline; from thirty
// minutes before kickoff the fixture is locked.
func (s *PredictionService) Submit(ctx context.Context, input SubmitPredictionInput) (prediction.Prediction, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.Prediction.Submit")
	defer span.End()

	input.OrgID = strings.TrimSpace(input.OrgID)
	input.UserID = strings.TrimSpace(input.UserID)
	input.FixtureID = strings.TrimSpace(input.FixtureID)
	if input.OrgID == "" || input.UserID == "" || input.FixtureID == "" {
		return prediction.Prediction{}, fmt.Errorf("%w: org, user, and fixture are required", ErrInvalidInput)
	}
	if input.HomeGoals < 0 || input.AwayGoals < 0 || input.HomeGoals > 99 || input.AwayGoals > 99 {
		return prediction.Prediction{}, fmt.Errorf("%w: goals must be between 0 and 99", ErrInvalidInput)
	}

	fx, exists, err := s.fixtures.GetByID(ctx, input.FixtureID)
	if err != nil {
		return prediction.Prediction{}, fmt.Errorf("get fixture: %w", err)
	}
	if !exists {
		return prediction.Prediction{}, fmt.Errorf("%w: fixture=%s", ErrNotFound, input.FixtureID)
	}

	now := s.now()
	if !fixture.IsPreMatch(fx.Status) || !now.Before(fx.KickoffAt.Add(-submissionLockLead)) {
		return prediction.Prediction{}, fmt.Errorf("%w: fixture=%s", ErrPredictionLocked, input.FixtureID)
	}

	existing, err := s.predictions.ListByFixture(ctx, input.FixtureID)
	if err != nil {
		return prediction.Prediction{}, fmt.Errorf("list predictions: %w", err)
	}

	var current *prediction.Prediction
	for i := range existing {
		if existing[i].OrgID == input.OrgID && existing[i].UserID == input.UserID {
			current = &existing[i]
			break
		}
	}

	p := prediction.Prediction{
		OrgID:     input.OrgID,
		Season:    fx.Season,
		UserID:    input.UserID,
		FixtureID: input.FixtureID,
		Gameweek:  fx.Gameweek,
		HomeGoals: input.HomeGoals,
		AwayGoals: input.AwayGoals,
		UpdatedAt: now,
	}

	isNew := current == nil
	if isNew {
		newID, err := s.ids.NewID()
		if err != nil {
			return prediction.Prediction{}, fmt.Errorf("generate prediction id: %w", err)
		}
		p.ID = newID
		p.CreatedAt = now
	} else {
		p.ID = current.ID
		p.CreatedAt = current.CreatedAt
	}

	if err := s.predictions.Upsert(ctx, p); err != nil {
		return prediction.Prediction{}, fmt.Errorf("upsert prediction: %w", err)
	}

	if isNew && s.leaderboard != nil {
		if err := s.leaderboard.RecordPredictionCreated(ctx, p.OrgID, p.Season, p.UserID); err != nil {
			return prediction.Prediction{}, err
		}
	}

	return p, nil
}

// ListForFixture returns every prediction on a fixture. Meant for the
// post-kickoff reveal; callers gate on kickoff themselves.
func (s *PredictionService) ListForFixture(ctx context.Context, fixtureID string) ([]prediction.Prediction, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.Prediction.ListForFixture")
	defer span.End()

	fixtureID = strings.TrimSpace(fixtureID)
	if fixtureID == "" {
		return nil, fmt.Errorf("%w: fixture id is required", ErrInvalidInput)
	}
	preds, err := s.predictions.ListByFixture(ctx, fixtureID)
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	return preds, nil
}
