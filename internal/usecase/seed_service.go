package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/footyverse/prediction-league/internal/domain/fixture"
	"github.com/footyverse/prediction-league/internal/domain/prediction"
	"github.com/footyverse/prediction-league/internal/domain/team"
	"github.com/footyverse/prediction-league/internal/platform/id"
	"github.com/footyverse/prediction-league/internal/platform/logging"
)

// SeedService imports seasons from the provider and manages gameweek
// metadata that cannot come from the provider, such as multipliers.
type SeedService struct {
	fixtures    fixture.Repository
	teams       team.Repository
	predictions prediction.Repository
	provider    MatchProvider
	leaderboard *LeaderboardService
	scorer      FixtureScorer
	ids         id.Generator
	logger      *logging.Logger
	now         func() time.Time
}

func NewSeedService(
	fixtures fixture.Repository,
	teams team.Repository,
	predictions prediction.Repository,
	provider MatchProvider,
	leaderboard *LeaderboardService,
	scorer FixtureScorer,
	ids id.Generator,
	logger *logging.Logger,
) *SeedService {
	if logger == nil {
		logger = logging.Default()
	}
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	return &SeedService{
		fixtures:    fixtures,
		teams:       teams,
		predictions: predictions,
		provider:    provider,
		leaderboard: leaderboard,
		scorer:      scorer,
		ids:         ids,
		logger:      logger,
		now:         time.Now,
	}
}

type ImportResult struct {
	Teams    int `json:"teams"`
	Fixtures int `json:"fixtures"`
}

// ImportSeason pulls the competition's clubs and full match list for
// one season and upserts them. Re-imports keep locally-owned fields:
// multipliers survive, and provider scores never regress to nil.
func (s *SeedService) ImportSeason(ctx context.Context, season string) (ImportResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.Seed.ImportSeason")
	defer span.End()

	season = strings.TrimSpace(season)
	if season == "" {
		return ImportResult{}, fmt.Errorf("%w: season is required", ErrInvalidInput)
	}

	externalTeams, err := s.provider.CompetitionTeams(ctx, season)
	if err != nil {
		return ImportResult{}, fmt.Errorf("fetch competition teams: %w", err)
	}

	teams := make([]team.Team, 0, len(externalTeams))
	for _, et := range externalTeams {
		teams = append(teams, team.Team{
			ID:          teamID(et.ID),
			ExternalRef: et.ID,
			Name:        et.Name,
			ShortName:   et.ShortName,
			Tla:         et.Tla,
			CrestURL:    et.CrestURL,
		})
	}
	if err := s.teams.UpsertMany(ctx, teams); err != nil {
		return ImportResult{}, fmt.Errorf("upsert teams: %w", err)
	}

	matches, err := s.provider.SeasonMatches(ctx, season)
	if err != nil {
		return ImportResult{}, fmt.Errorf("fetch season matches: %w", err)
	}

	existing, err := s.fixtures.ListBySeason(ctx, season)
	if err != nil {
		return ImportResult{}, fmt.Errorf("list existing fixtures: %w", err)
	}
	existingByRef := make(map[int64]fixture.Fixture, len(existing))
	for _, fx := range existing {
		if fx.ExternalRef > 0 {
			existingByRef[fx.ExternalRef] = fx
		}
	}

	now := s.now()
	fixtures := make([]fixture.Fixture, 0, len(matches))
	for _, m := range matches {
		fx := fixture.Fixture{
			ExternalRef:  m.ID,
			Season:       season,
			Gameweek:     m.Matchday,
			HomeTeamID:   teamID(m.HomeTeamID),
			AwayTeamID:   teamID(m.AwayTeamID),
			HomeTeamName: m.HomeTeam,
			AwayTeamName: m.AwayTeam,
			KickoffAt:    m.UTCDate,
			HomeScore:    m.HomeScore,
			AwayScore:    m.AwayScore,
			Status:       fixture.NormalizeStatus(m.Status),
			Multiplier:   1,
			UpdatedAt:    now,
		}

		if prev, ok := existingByRef[m.ID]; ok {
			fx.ID = prev.ID
			fx.Multiplier = prev.Multiplier
			fx.CheckedAt = prev.CheckedAt
			if fx.HomeScore == nil {
				fx.HomeScore = prev.HomeScore
			}
			if fx.AwayScore == nil {
				fx.AwayScore = prev.AwayScore
			}
		} else {
			newID, err := s.ids.NewID()
			if err != nil {
				return ImportResult{}, fmt.Errorf("generate fixture id: %w", err)
			}
			fx.ID = newID
		}
		fixtures = append(fixtures, fx)
	}

	if err := s.fixtures.UpsertMany(ctx, fixtures); err != nil {
		return ImportResult{}, fmt.Errorf("upsert fixtures: %w", err)
	}

	s.logger.InfoContext(ctx, "season imported",
		"season", season,
		"teams", len(teams),
		"fixtures", len(fixtures),
	)
	return ImportResult{Teams: len(teams), Fixtures: len(fixtures)}, nil
}

type MultiplierInput struct {
	Season     string `json:"season"`
	Gameweek   int    `json:"gameweek"`
	Multiplier int    `json:"multiplier"`
	// Rescore allows changing a multiplier after predictions in the
	// gameweek were already scored; every affected fixture is then
	// rescored and the tables rebuilt.
	Rescore bool `json:"rescore"`
}

type MultiplierResult struct {
	FixturesUpdated int `json:"fixturesUpdated"`
	FixturesScored  int `json:"fixturesScored"`
}

// SetGameweekMultiplier applies a points multiplier to a whole
// gameweek. Without Rescore the change is rejected when any
// prediction in the gameweek already has points, because silently
// leaving stale awards in place corrupts the tables.
func (s *SeedService) SetGameweekMultiplier(ctx context.Context, input MultiplierInput) (MultiplierResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.Seed.SetGameweekMultiplier")
	defer span.End()

	input.Season = strings.TrimSpace(input.Season)
	if input.Season == "" || input.Gameweek < 1 {
		return MultiplierResult{}, fmt.Errorf("%w: season and gameweek are required", ErrInvalidInput)
	}
	if input.Multiplier < 1 || input.Multiplier > 10 {
		return MultiplierResult{}, fmt.Errorf("%w: multiplier must be between 1 and 10", ErrInvalidInput)
	}

	gwFixtures, err := s.fixtures.ListByGameweek(ctx, input.Season, input.Gameweek)
	if err != nil {
		return MultiplierResult{}, fmt.Errorf("list gameweek fixtures: %w", err)
	}
	if len(gwFixtures) == 0 {
		return MultiplierResult{}, fmt.Errorf("%w: gameweek=%d season=%s", ErrNotFound, input.Gameweek, input.Season)
	}

	scored, err := s.gameweekHasScoredPredictions(ctx, gwFixtures)
	if err != nil {
		return MultiplierResult{}, err
	}
	if scored && !input.Rescore {
		return MultiplierResult{}, fmt.Errorf("%w: gameweek already has scored predictions", ErrConflict)
	}

	updated, err := s.fixtures.SetGameweekMultiplier(ctx, input.Season, input.Gameweek, input.Multiplier)
	if err != nil {
		return MultiplierResult{}, fmt.Errorf("set gameweek multiplier: %w", err)
	}
	result := MultiplierResult{FixturesUpdated: updated}

	if scored && input.Rescore {
		for _, fx := range gwFixtures {
			scoreResult, err := s.scorer.ScoreFixture(ctx, fx.ID)
			if err != nil {
				return result, fmt.Errorf("rescore fixture %s: %w", fx.ID, err)
			}
			if !scoreResult.Skipped {
				result.FixturesScored++
			}
		}
	}

	return result, nil
}

func (s *SeedService) gameweekHasScoredPredictions(ctx context.Context, fixtures []fixture.Fixture) (bool, error) {
	for _, fx := range fixtures {
		preds, err := s.predictions.ListByFixture(ctx, fx.ID)
		if err != nil {
			return false, fmt.Errorf("list predictions: %w", err)
		}
		for _, p := range preds {
			if p.Points != nil {
				return true, nil
			}
		}
	}
	return false, nil
}

type WipeResult struct {
	Fixtures    int `json:"fixtures"`
	Predictions int `json:"predictions"`
}

// WipeGameweek removes a gameweek's fixtures and their predictions,
// then rebuilds every affected organisation's table. Meant for undoing
// a bad import, not routine operation.
func (s *SeedService) WipeGameweek(ctx context.Context, season string, gameweek int) (WipeResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.Seed.WipeGameweek")
	defer span.End()

	season = strings.TrimSpace(season)
	if season == "" || gameweek < 1 {
		return WipeResult{}, fmt.Errorf("%w: season and gameweek are required", ErrInvalidInput)
	}

	gwFixtures, err := s.fixtures.ListByGameweek(ctx, season, gameweek)
	if err != nil {
		return WipeResult{}, fmt.Errorf("list gameweek fixtures: %w", err)
	}
	if len(gwFixtures) == 0 {
		return WipeResult{}, nil
	}

	fixtureIDs := make([]string, 0, len(gwFixtures))
	for _, fx := range gwFixtures {
		fixtureIDs = append(fixtureIDs, fx.ID)
	}

	affectedOrgs := make(map[string]struct{})
	for _, fixtureID := range fixtureIDs {
		preds, err := s.predictions.ListByFixture(ctx, fixtureID)
		if err != nil {
			return WipeResult{}, fmt.Errorf("list predictions: %w", err)
		}
		for _, p := range preds {
			affectedOrgs[p.OrgID] = struct{}{}
		}
	}

	deletedPreds, err := s.predictions.DeleteByFixtureIDs(ctx, fixtureIDs)
	if err != nil {
		return WipeResult{}, fmt.Errorf("delete predictions: %w", err)
	}
	deletedFixtures, err := s.fixtures.DeleteByGameweek(ctx, season, gameweek)
	if err != nil {
		return WipeResult{}, fmt.Errorf("delete fixtures: %w", err)
	}

	if s.leaderboard != nil {
		for orgID := range affectedOrgs {
			if err := s.leaderboard.Recalculate(ctx, orgID, season); err != nil {
				return WipeResult{}, err
			}
		}
	}

	s.logger.WarnContext(ctx, "gameweek wiped",
		"season", season,
		"gameweek", gameweek,
		"fixtures", deletedFixtures,
		"predictions", deletedPreds,
	)
	return WipeResult{Fixtures: deletedFixtures, Predictions: deletedPreds}, nil
}

func teamID(externalRef int64) string {
	return "team-" + strconv.FormatInt(externalRef, 10)
}
