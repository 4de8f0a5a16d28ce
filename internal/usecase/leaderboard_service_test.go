package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/footyverse/prediction-league/internal/domain/fixture"
	"github.com/footyverse/prediction-league/internal/domain/prediction"
	"github.com/footyverse/prediction-league/internal/platform/logging"
)

// seedScoredSeason builds two finished fixtures with scored
// predictions for three members of one organisation.
func seedScoredSeason(t *testing.T) (*stubFixtureRepo, *stubPredictionRepo) {
	t.Helper()

	fx1 := finishedFixture("fx-1", 2, 1, 1)
	fx2 := finishedFixture("fx-2", 0, 0, 2)
	fx2.Gameweek = 2
	fixtures := newStubFixtureRepo(fx1, fx2)

	preds := newStubPredictionRepo(
		// user-1: exact on fx-1 (3), outcome on fx-2 (2)
		prediction.Prediction{ID: "p-1", OrgID: "org-a", Season: "2025-26", UserID: "user-1", FixtureID: "fx-1", HomeGoals: 2, AwayGoals: 1, Points: intPtr(3)},
		prediction.Prediction{ID: "p-2", OrgID: "org-a", Season: "2025-26", UserID: "user-1", FixtureID: "fx-2", HomeGoals: 1, AwayGoals: 1, Points: intPtr(2)},
		// user-2: outcome on fx-1 (1), exact on fx-2 (6)
		prediction.Prediction{ID: "p-3", OrgID: "org-a", Season: "2025-26", UserID: "user-2", FixtureID: "fx-1", HomeGoals: 1, AwayGoals: 0, Points: intPtr(1)},
		prediction.Prediction{ID: "p-4", OrgID: "org-a", Season: "2025-26", UserID: "user-2", FixtureID: "fx-2", HomeGoals: 0, AwayGoals: 0, Points: intPtr(6)},
		// user-3: misses both
		prediction.Prediction{ID: "p-5", OrgID: "org-a", Season: "2025-26", UserID: "user-3", FixtureID: "fx-1", HomeGoals: 0, AwayGoals: 2, Points: intPtr(0)},
		prediction.Prediction{ID: "p-6", OrgID: "org-a", Season: "2025-26", UserID: "user-3", FixtureID: "fx-2", HomeGoals: 2, AwayGoals: 0, Points: intPtr(0)},
	)
	return fixtures, preds
}

func TestLeaderboardService_Recalculate(t *testing.T) {
	t.Parallel()

	fixtures, preds := seedScoredSeason(t)
	entries := newStubStandingsRepo()
	svc := NewLeaderboardService(entries, preds, fixtures, logging.NewNop())

	if err := svc.Recalculate(context.Background(), "org-a", "2025-26"); err != nil {
		t.Fatalf("Recalculate: %v", err)
	}

	table, err := svc.Table(context.Background(), "org-a", "2025-26")
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	if len(table) != 3 {
		t.Fatalf("table rows = %d, want 3", len(table))
	}

	if table[0].UserID != "user-2" || table[0].Points != 7 || table[0].Rank != 1 {
		t.Fatalf("unexpected leader: %+v", table[0])
	}
	if table[1].UserID != "user-1" || table[1].Points != 5 || table[1].Rank != 2 {
		t.Fatalf("unexpected runner-up: %+v", table[1])
	}
	if table[2].UserID != "user-3" || table[2].Points != 0 || table[2].Rank != 3 {
		t.Fatalf("unexpected last place: %+v", table[2])
	}

	if table[0].CorrectScorelines != 1 || table[0].CorrectOutcomes != 1 {
		t.Fatalf("leader counters wrong: %+v", table[0])
	}
	if table[0].CompletedFixtures != 2 || table[0].PredictedFixtures != 2 {
		t.Fatalf("leader fixture counters wrong: %+v", table[0])
	}
}

func TestLeaderboardService_IncrementalMatchesRecompute(t *testing.T) {
	t.Parallel()

	fixtures, preds := seedScoredSeason(t)

	// incremental path: replay the same scoring as deltas onto an
	// empty table
	incrementalRepo := newStubStandingsRepo()
	incremental := NewLeaderboardService(incrementalRepo, preds, fixtures, logging.NewNop())
	deltas := []ScoreDelta{
		{OrgID: "org-a", Season: "2025-26", UserID: "user-1", PointsDelta: 3, FirstScoring: true, NowExact: true},
		{OrgID: "org-a", Season: "2025-26", UserID: "user-2", PointsDelta: 1, FirstScoring: true, NowOutcome: true},
		{OrgID: "org-a", Season: "2025-26", UserID: "user-3", PointsDelta: 0, FirstScoring: true},
		{OrgID: "org-a", Season: "2025-26", UserID: "user-1", PointsDelta: 2, FirstScoring: true, NowOutcome: true},
		{OrgID: "org-a", Season: "2025-26", UserID: "user-2", PointsDelta: 6, FirstScoring: true, NowExact: true},
		{OrgID: "org-a", Season: "2025-26", UserID: "user-3", PointsDelta: 0, FirstScoring: true},
	}
	if err := incremental.ApplyFixtureDeltas(context.Background(), deltas); err != nil {
		t.Fatalf("ApplyFixtureDeltas: %v", err)
	}
	for _, userID := range []string{"user-1", "user-2", "user-3"} {
		if err := incremental.RecordPredictionCreated(context.Background(), "org-a", "2025-26", userID); err != nil {
			t.Fatalf("RecordPredictionCreated: %v", err)
		}
		if err := incremental.RecordPredictionCreated(context.Background(), "org-a", "2025-26", userID); err != nil {
			t.Fatalf("RecordPredictionCreated: %v", err)
		}
	}

	// recompute path: rebuild from predictions
	recomputeRepo := newStubStandingsRepo()
	recompute := NewLeaderboardService(recomputeRepo, preds, fixtures, logging.NewNop())
	if err := recompute.Recalculate(context.Background(), "org-a", "2025-26"); err != nil {
		t.Fatalf("Recalculate: %v", err)
	}

	left, _ := incremental.Table(context.Background(), "org-a", "2025-26")
	right, _ := recompute.Table(context.Background(), "org-a", "2025-26")
	if len(left) != len(right) {
		t.Fatalf("table sizes differ: %d vs %d", len(left), len(right))
	}
	for i := range left {
		l, r := left[i], right[i]
		if l.UserID != r.UserID || l.Points != r.Points || l.Rank != r.Rank ||
			l.CorrectScorelines != r.CorrectScorelines || l.CorrectOutcomes != r.CorrectOutcomes ||
			l.CompletedFixtures != r.CompletedFixtures || l.PredictedFixtures != r.PredictedFixtures {
			t.Fatalf("row %d diverged:\nincremental: %+v\nrecompute:   %+v", i, l, r)
		}
	}
}

func TestLeaderboardService_NeedsRecomputeFallsBack(t *testing.T) {
	t.Parallel()

	fixtures, preds := seedScoredSeason(t)
	entries := newStubStandingsRepo()
	svc := NewLeaderboardService(entries, preds, fixtures, logging.NewNop())

	deltas := []ScoreDelta{
		{OrgID: "org-a", Season: "2025-26", UserID: "user-1", PointsDelta: 99, NeedsRecompute: true},
	}
	if err := svc.ApplyFixtureDeltas(context.Background(), deltas); err != nil {
		t.Fatalf("ApplyFixtureDeltas: %v", err)
	}

	// the bogus +99 must have been discarded by the recompute
	table, _ := svc.Table(context.Background(), "org-a", "2025-26")
	if table[0].Points != 7 {
		t.Fatalf("recompute fallback not applied, leader points = %d", table[0].Points)
	}
}

func TestRankEntries_DenseRanksOnTies(t *testing.T) {
	t.Parallel()

	fixtures := newStubFixtureRepo()
	preds := newStubPredictionRepo()
	entriesRepo := newStubStandingsRepo()
	svc := NewLeaderboardService(entriesRepo, preds, fixtures, logging.NewNop())

	deltas := []ScoreDelta{
		{OrgID: "org-a", Season: "2025-26", UserID: "user-b", PointsDelta: 5, FirstScoring: true},
		{OrgID: "org-a", Season: "2025-26", UserID: "user-a", PointsDelta: 5, FirstScoring: true},
		{OrgID: "org-a", Season: "2025-26", UserID: "user-c", PointsDelta: 2, FirstScoring: true},
	}
	if err := svc.ApplyFixtureDeltas(context.Background(), deltas); err != nil {
		t.Fatalf("ApplyFixtureDeltas: %v", err)
	}

	table, _ := svc.Table(context.Background(), "org-a", "2025-26")
	if table[0].UserID != "user-a" || table[0].Rank != 1 {
		t.Fatalf("tie not broken by user id: %+v", table[0])
	}
	if table[1].UserID != "user-b" || table[1].Rank != 1 {
		t.Fatalf("tied member should share rank 1: %+v", table[1])
	}
	if table[2].Rank != 2 {
		t.Fatalf("dense rank after tie = %d, want 2", table[2].Rank)
	}
}

func TestLeaderboardService_SnapshotGameweek(t *testing.T) {
	t.Parallel()

	fixtures, preds := seedScoredSeason(t)
	entries := newStubStandingsRepo()
	svc := NewLeaderboardService(entries, preds, fixtures, logging.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC) }

	if err := svc.Recalculate(context.Background(), "org-a", "2025-26"); err != nil {
		t.Fatalf("Recalculate: %v", err)
	}

	count, err := svc.SnapshotGameweek(context.Background(), "2025-26", 1)
	if err != nil {
		t.Fatalf("SnapshotGameweek: %v", err)
	}
	if count != 3 {
		t.Fatalf("snapshots written = %d, want 3", count)
	}

	history, err := svc.RankingHistory(context.Background(), "org-a", "2025-26")
	if err != nil {
		t.Fatalf("RankingHistory: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("history rows = %d, want 3", len(history))
	}
	for _, snap := range history {
		if snap.Gameweek != 1 {
			t.Fatalf("snapshot gameweek = %d, want 1", snap.Gameweek)
		}
	}
}

var _ fixture.Repository = (*stubFixtureRepo)(nil)
var _ prediction.Repository = (*stubPredictionRepo)(nil)
