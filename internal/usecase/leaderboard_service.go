package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/footyverse/prediction-league/internal/domain/fixture"
	"github.com/footyverse/prediction-league/internal/domain/prediction"
	"github.com/footyverse/prediction-league/internal/domain/standings"
	"github.com/footyverse/prediction-league/internal/platform/logging"
	"github.com/footyverse/prediction-league/internal/platform/resilience"
)

// LeaderboardService maintains per-organisation league tables. Tables
// are updated incrementally from scoring deltas; a full recompute from
// predictions must always produce the same table, and is the fallback
// whenever a delta cannot be applied safely.
type LeaderboardService struct {
	entries     standings.Repository
	predictions prediction.Repository
	fixtures    fixture.Repository
	logger      *logging.Logger
	now         func() time.Time

	recalcFlight resilience.SingleFlight

	mu       sync.Mutex
	orgLocks map[string]*sync.Mutex
}

func NewLeaderboardService(
	entries standings.Repository,
	predictions prediction.Repository,
	fixtures fixture.Repository,
	logger *logging.Logger,
) *LeaderboardService {
	if logger == nil {
		logger = logging.Default()
	}
	return &LeaderboardService{
		entries:     entries,
		predictions: predictions,
		fixtures:    fixtures,
		logger:      logger,
		now:         time.Now,
		orgLocks:    make(map[string]*sync.Mutex),
	}
}

// lockOrgSeason serialises table writes for one org-season so
// concurrent fixture scorings cannot interleave rank updates.
func (s *LeaderboardService) lockOrgSeason(orgID, season string) func() {
	key := orgID + "|" + season
	s.mu.Lock()
	lock, ok := s.orgLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.orgLocks[key] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// ApplyFixtureDeltas folds scoring deltas into the affected tables.
func (s *LeaderboardService) ApplyFixtureDeltas(ctx context.Context, deltas []ScoreDelta) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.Leaderboard.ApplyFixtureDeltas")
	defer span.End()

	if len(deltas) == 0 {
		return nil
	}

	type orgSeason struct{ orgID, season string }
	grouped := make(map[orgSeason][]ScoreDelta)
	for _, d := range deltas {
		if d.OrgID == "" || d.Season == "" || d.UserID == "" {
			return fmt.Errorf("%w: delta missing org, season, or user", ErrInvalidInput)
		}
		key := orgSeason{d.OrgID, d.Season}
		grouped[key] = append(grouped[key], d)
	}

	for key, group := range grouped {
		needsRecompute := false
		for _, d := range group {
			if d.NeedsRecompute {
				needsRecompute = true
				break
			}
		}

		if needsRecompute {
			if err := s.Recalculate(ctx, key.orgID, key.season); err != nil {
				return err
			}
			continue
		}

		if err := s.applyGroup(ctx, key.orgID, key.season, group); err != nil {
			return err
		}
	}

	return nil
}

func (s *LeaderboardService) applyGroup(ctx context.Context, orgID, season string, deltas []ScoreDelta) error {
	unlock := s.lockOrgSeason(orgID, season)
	defer unlock()

	now := s.now()
	for _, d := range deltas {
		entry, exists, err := s.entries.Get(ctx, orgID, season, d.UserID)
		if err != nil {
			return fmt.Errorf("get table entry: %w", err)
		}
		if !exists {
			entry = standings.Entry{OrgID: orgID, Season: season, UserID: d.UserID}
		}

		entry.Points += d.PointsDelta
		if d.FirstScoring {
			entry.CompletedFixtures++
		}
		entry.CorrectScorelines += boolDelta(d.NowExact, d.WasExact)
		entry.CorrectOutcomes += boolDelta(d.NowOutcome, d.WasOutcome)
		entry.UpdatedAt = now

		if err := s.entries.Upsert(ctx, entry); err != nil {
			return fmt.Errorf("upsert table entry: %w", err)
		}
	}

	return s.rerank(ctx, orgID, season)
}

// RecordPredictionCreated bumps the member's predicted-fixtures
// counter when a prediction is first submitted.
func (s *LeaderboardService) RecordPredictionCreated(ctx context.Context, orgID, season, userID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.Leaderboard.RecordPredictionCreated")
	defer span.End()

	if orgID == "" || season == "" || userID == "" {
		return fmt.Errorf("%w: org, season, and user are required", ErrInvalidInput)
	}

	unlock := s.lockOrgSeason(orgID, season)
	defer unlock()

	entry, exists, err := s.entries.Get(ctx, orgID, season, userID)
	if err != nil {
		return fmt.Errorf("get table entry: %w", err)
	}
	if !exists {
		entry = standings.Entry{OrgID: orgID, Season: season, UserID: userID}
	}
	entry.PredictedFixtures++
	entry.UpdatedAt = s.now()

	if err := s.entries.Upsert(ctx, entry); err != nil {
		return fmt.Errorf("upsert table entry: %w", err)
	}
	return nil
}

// Recalculate rebuilds one org-season table from predictions and
// fixtures, replacing whatever the incremental path accumulated.
// Concurrent calls for the same org-season collapse into one rebuild.
func (s *LeaderboardService) Recalculate(ctx context.Context, orgID, season string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.Leaderboard.Recalculate")
	defer span.End()

	orgID = strings.TrimSpace(orgID)
	season = strings.TrimSpace(season)
	if orgID == "" || season == "" {
		return fmt.Errorf("%w: org and season are required", ErrInvalidInput)
	}

	_, err, _ := s.recalcFlight.Do(orgID+"|"+season, func() (any, error) {
		return nil, s.recalculate(ctx, orgID, season)
	})
	return err
}

func (s *LeaderboardService) recalculate(ctx context.Context, orgID, season string) error {
	unlock := s.lockOrgSeason(orgID, season)
	defer unlock()

	preds, err := s.predictions.ListByOrgSeason(ctx, orgID, season)
	if err != nil {
		return fmt.Errorf("list predictions: %w", err)
	}

	fixtureIDs := make([]string, 0, len(preds))
	seen := make(map[string]struct{}, len(preds))
	for _, p := range preds {
		if _, ok := seen[p.FixtureID]; ok {
			continue
		}
		seen[p.FixtureID] = struct{}{}
		fixtureIDs = append(fixtureIDs, p.FixtureID)
	}

	fixturesByID := make(map[string]fixture.Fixture, len(fixtureIDs))
	if len(fixtureIDs) > 0 {
		fixtures, err := s.fixtures.ListByIDs(ctx, fixtureIDs)
		if err != nil {
			return fmt.Errorf("list fixtures: %w", err)
		}
		for _, fx := range fixtures {
			fixturesByID[fx.ID] = fx
		}
	}

	now := s.now()
	byUser := make(map[string]*standings.Entry)
	for _, p := range preds {
		entry, ok := byUser[p.UserID]
		if !ok {
			entry = &standings.Entry{OrgID: orgID, Season: season, UserID: p.UserID, UpdatedAt: now}
			byUser[p.UserID] = entry
		}
		entry.PredictedFixtures++

		if p.Points == nil {
			continue
		}
		fx, ok := fixturesByID[p.FixtureID]
		if !ok || !fixture.IsFinished(fx.Status) || !fx.HasScores() {
			continue
		}

		entry.CompletedFixtures++
		entry.Points += *p.Points
		switch ClassifyPrediction(p.HomeGoals, p.AwayGoals, *fx.HomeScore, *fx.AwayScore) {
		case ScoreExact:
			entry.CorrectScorelines++
		case ScoreOutcome:
			entry.CorrectOutcomes++
		}
	}

	entries := make([]standings.Entry, 0, len(byUser))
	for _, entry := range byUser {
		entries = append(entries, *entry)
	}
	rankEntries(entries)

	if err := s.entries.ReplaceByOrgSeason(ctx, orgID, season, entries); err != nil {
		return fmt.Errorf("replace table: %w", err)
	}

	s.logger.InfoContext(ctx, "leaderboard recalculated",
		"org_id", orgID,
		"season", season,
		"members", len(entries),
	)
	return nil
}

// Table returns the ranked table for one org-season.
func (s *LeaderboardService) Table(ctx context.Context, orgID, season string) ([]standings.Entry, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.Leaderboard.Table")
	defer span.End()

	orgID = strings.TrimSpace(orgID)
	season = strings.TrimSpace(season)
	if orgID == "" || season == "" {
		return nil, fmt.Errorf("%w: org and season are required", ErrInvalidInput)
	}

	entries, err := s.entries.ListByOrgSeason(ctx, orgID, season)
	if err != nil {
		return nil, fmt.Errorf("list table: %w", err)
	}
	rankEntries(entries)
	return entries, nil
}

// RankingHistory returns per-gameweek rank snapshots for the charts.
func (s *LeaderboardService) RankingHistory(ctx context.Context, orgID, season string) ([]standings.RankingSnapshot, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.Leaderboard.RankingHistory")
	defer span.End()

	orgID = strings.TrimSpace(orgID)
	season = strings.TrimSpace(season)
	if orgID == "" || season == "" {
		return nil, fmt.Errorf("%w: org and season are required", ErrInvalidInput)
	}

	history, err := s.entries.ListRankingHistory(ctx, orgID, season)
	if err != nil {
		return nil, fmt.Errorf("list ranking history: %w", err)
	}
	return history, nil
}

// SnapshotGameweek records the current rank of every member in every
// organisation's table, keyed by the finished gameweek.
func (s *LeaderboardService) SnapshotGameweek(ctx context.Context, season string, gameweek int) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.Leaderboard.SnapshotGameweek")
	defer span.End()

	season = strings.TrimSpace(season)
	if season == "" || gameweek < 1 {
		return 0, fmt.Errorf("%w: season and gameweek are required", ErrInvalidInput)
	}

	orgs, err := s.entries.ListOrgs(ctx, season)
	if err != nil {
		return 0, fmt.Errorf("list orgs: %w", err)
	}

	now := s.now()
	total := 0
	for _, orgID := range orgs {
		entries, err := s.entries.ListByOrgSeason(ctx, orgID, season)
		if err != nil {
			return total, fmt.Errorf("list table: %w", err)
		}
		rankEntries(entries)

		snapshots := make([]standings.RankingSnapshot, 0, len(entries))
		for _, entry := range entries {
			snapshots = append(snapshots, standings.RankingSnapshot{
				OrgID:      orgID,
				Season:     season,
				UserID:     entry.UserID,
				Gameweek:   gameweek,
				Rank:       entry.Rank,
				Points:     entry.Points,
				RecordedAt: now,
			})
		}
		if err := s.entries.UpsertRankingSnapshots(ctx, snapshots); err != nil {
			return total, fmt.Errorf("upsert ranking snapshots: %w", err)
		}
		total += len(snapshots)
	}

	return total, nil
}

func (s *LeaderboardService) rerank(ctx context.Context, orgID, season string) error {
	entries, err := s.entries.ListByOrgSeason(ctx, orgID, season)
	if err != nil {
		return fmt.Errorf("list table: %w", err)
	}

	rankEntries(entries)
	if err := s.entries.ReplaceByOrgSeason(ctx, orgID, season, entries); err != nil {
		return fmt.Errorf("replace table: %w", err)
	}
	return nil
}

// rankEntries sorts by points, then correct scorelines, then user id,
// and assigns dense ranks: members on equal points share a rank.
func rankEntries(entries []standings.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		if entries[i].CorrectScorelines != entries[j].CorrectScorelines {
			return entries[i].CorrectScorelines > entries[j].CorrectScorelines
		}
		return entries[i].UserID < entries[j].UserID
	})

	rank := 0
	lastPoints := 0
	for idx := range entries {
		if idx == 0 || entries[idx].Points != lastPoints {
			rank++
			lastPoints = entries[idx].Points
		}
		entries[idx].Rank = rank
	}
}

func boolDelta(now, was bool) int {
	switch {
	case now && !was:
		return 1
	case !now && was:
		return -1
	default:
		return 0
	}
}
