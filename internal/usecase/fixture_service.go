package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/footyverse/prediction-league/internal/domain/fixture"
)

// FixtureService is the read surface for fixtures.
type FixtureService struct {
	fixtures fixture.Repository
}

func NewFixtureService(fixtures fixture.Repository) *FixtureService {
	return &FixtureService{
		fixtures: fixtures,
	}
}

// List returns a season's fixtures, optionally narrowed to one
// gameweek (zero means all).
func (s *FixtureService) List(ctx context.Context, season string, gameweek int) ([]fixture.Fixture, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.Fixture.List")
	defer span.End()

	season = strings.TrimSpace(season)
	if season == "" {
		return nil, fmt.Errorf("%w: season is required", ErrInvalidInput)
	}
	if gameweek < 0 {
		return nil, fmt.Errorf("%w: gameweek=%s", ErrInvalidInput, strconv.Itoa(gameweek))
	}

	if gameweek > 0 {
		fixtures, err := s.fixtures.ListByGameweek(ctx, season, gameweek)
		if err != nil {
			return nil, fmt.Errorf("list fixtures by gameweek: %w", err)
		}
		return fixtures, nil
	}

	fixtures, err := s.fixtures.ListBySeason(ctx, season)
	if err != nil {
		return nil, fmt.Errorf("list fixtures by season: %w", err)
	}
	return fixtures, nil
}

func (s *FixtureService) Get(ctx context.Context, fixtureID string) (fixture.Fixture, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.Fixture.Get")
	defer span.End()

	fixtureID = strings.TrimSpace(fixtureID)
	if fixtureID == "" {
		return fixture.Fixture{}, fmt.Errorf("%w: fixture id is required", ErrInvalidInput)
	}

	fx, exists, err := s.fixtures.GetByID(ctx, fixtureID)
	if err != nil {
		return fixture.Fixture{}, fmt.Errorf("get fixture: %w", err)
	}
	if !exists {
		return fixture.Fixture{}, fmt.Errorf("%w: fixture=%s", ErrNotFound, fixtureID)
	}
	return fx, nil
}
