package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/footyverse/prediction-league/internal/domain/fixture"
	"github.com/footyverse/prediction-league/internal/domain/standings"
	"github.com/footyverse/prediction-league/internal/platform/logging"
)

func TestDedupKey_BucketsTime(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 8, 15, 15, 2, 30, 0, time.UTC)
	bucket := 5 * time.Minute

	a := dedupKey("reconcile", "2025-26", base, bucket)
	b := dedupKey("reconcile", "2025-26", base.Add(time.Minute), bucket)
	if a != b {
		t.Fatalf("keys in same bucket differ: %s vs %s", a, b)
	}

	c := dedupKey("reconcile", "2025-26", base.Add(10*time.Minute), bucket)
	if a == c {
		t.Fatalf("keys in different buckets collide: %s", a)
	}

	if strings.ContainsAny(a, " /:") {
		t.Fatalf("key contains unsafe characters: %s", a)
	}
}

func TestDedupKey_SanitizesSegments(t *testing.T) {
	t.Parallel()

	key := dedupKey("reconcile live", "season/25 26", time.Now(), time.Minute)
	if strings.ContainsAny(key, " /") {
		t.Fatalf("unsanitized key: %s", key)
	}

	empty := dedupKey("", "", time.Now(), time.Minute)
	if !strings.HasPrefix(empty, "unknown-unknown-") {
		t.Fatalf("empty segments not defaulted: %s", empty)
	}
}

func orchestratorForTest(fixtures *stubFixtureRepo, queue *stubJobQueue, now time.Time) *JobOrchestratorService {
	reconciler := &captureReconciler{}
	svc := NewJobOrchestratorService(
		fixtures,
		reconciler,
		nil,
		nil,
		queue,
		nil,
		JobOrchestratorConfig{
			ReconcileInterval: 15 * time.Minute,
			LiveInterval:      time.Minute,
			PreKickoffLead:    15 * time.Minute,
			Season:            "2025-26",
		},
		logging.NewNop(),
	)
	svc.now = func() time.Time { return now }
	return svc
}

func TestJobOrchestrator_LiveFixturesChainLivePass(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 15, 15, 30, 0, 0, time.UTC)
	fixtures := newStubFixtureRepo(fixture.Fixture{
		ID: "fx-1", ExternalRef: 1, Season: "2025-26",
		Status: fixture.StatusInPlay, KickoffAt: now.Add(-30 * time.Minute),
	})
	queue := &stubJobQueue{}
	svc := orchestratorForTest(fixtures, queue, now)

	result, err := svc.RunReconcile(context.Background(), false)
	if err != nil {
		t.Fatalf("RunReconcile: %v", err)
	}
	if !result.HasLiveFixtures {
		t.Fatalf("expected live fixtures detected")
	}
	if result.QueuedCount != 2 {
		t.Fatalf("queued = %d, want live + full", result.QueuedCount)
	}

	if queue.jobs[0].Path != jobPathLive || queue.jobs[0].Delay != time.Minute {
		t.Fatalf("unexpected live job: %+v", queue.jobs[0])
	}
	if queue.jobs[1].Path != jobPathReconcile {
		t.Fatalf("unexpected follow-up job: %+v", queue.jobs[1])
	}
}

func TestJobOrchestrator_UpcomingKickoffSchedulesLead(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	kickoff := now.Add(2 * time.Hour)
	fixtures := newStubFixtureRepo(fixture.Fixture{
		ID: "fx-1", ExternalRef: 1, Season: "2025-26",
		Status: fixture.StatusTimed, KickoffAt: kickoff,
	})
	queue := &stubJobQueue{}
	svc := orchestratorForTest(fixtures, queue, now)

	result, err := svc.RunReconcile(context.Background(), false)
	if err != nil {
		t.Fatalf("RunReconcile: %v", err)
	}
	if result.HasLiveFixtures {
		t.Fatalf("no fixture is live")
	}

	// live pass lands at kickoff minus the lead
	wantDelay := kickoff.Add(-15 * time.Minute).Sub(now)
	if queue.jobs[0].Path != jobPathLive || queue.jobs[0].Delay != wantDelay {
		t.Fatalf("unexpected live job: %+v", queue.jobs[0])
	}
}

func TestJobOrchestrator_QuietCalendarBacksOff(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	fixtures := newStubFixtureRepo() // off-season
	queue := &stubJobQueue{}
	svc := orchestratorForTest(fixtures, queue, now)

	_, err := svc.RunReconcile(context.Background(), false)
	if err != nil {
		t.Fatalf("RunReconcile: %v", err)
	}
	if len(queue.jobs) != 1 {
		t.Fatalf("queued jobs = %d, want only the full pass", len(queue.jobs))
	}
	if queue.jobs[0].Delay < 6*time.Hour {
		t.Fatalf("off-season delay = %s, want at least 6h", queue.jobs[0].Delay)
	}
}

func TestJobOrchestrator_SnapshotCompletedGameweeks(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	gw1a := finishedFixture("fx-1", 2, 1, 1)
	gw1b := finishedFixture("fx-2", 0, 0, 1)
	gw2 := fixture.Fixture{
		ID: "fx-3", ExternalRef: 3, Season: "2025-26", Gameweek: 2,
		Status: fixture.StatusTimed, KickoffAt: now.Add(24 * time.Hour),
	}
	fixtures := newStubFixtureRepo(gw1a, gw1b, gw2)

	entries := newStubStandingsRepo()
	leaderboard := NewLeaderboardService(entries, newStubPredictionRepo(), fixtures, logging.NewNop())
	if err := entries.Upsert(context.Background(), testEntry("org-a", "user-1", 5)); err != nil {
		t.Fatalf("seed entry: %v", err)
	}

	svc := NewJobOrchestratorService(
		fixtures, &captureReconciler{}, nil, leaderboard,
		&stubJobQueue{}, nil, JobOrchestratorConfig{Season: "2025-26"}, logging.NewNop(),
	)
	svc.now = func() time.Time { return now }

	count, err := svc.SnapshotCompletedGameweeks(context.Background(), "2025-26")
	if err != nil {
		t.Fatalf("SnapshotCompletedGameweeks: %v", err)
	}
	// only gameweek 1 is fully terminal
	if count != 1 {
		t.Fatalf("snapshots = %d, want 1", count)
	}
}

func TestJobOrchestrator_FullPassRecordsRankingSnapshots(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	fixtures := newStubFixtureRepo(finishedFixture("fx-1", 2, 1, 1))

	entries := newStubStandingsRepo()
	leaderboard := NewLeaderboardService(entries, newStubPredictionRepo(), fixtures, logging.NewNop())
	if err := entries.Upsert(context.Background(), testEntry("org-a", "user-1", 5)); err != nil {
		t.Fatalf("seed entry: %v", err)
	}

	svc := NewJobOrchestratorService(
		fixtures, &captureReconciler{}, nil, leaderboard,
		&stubJobQueue{}, nil,
		JobOrchestratorConfig{
			ReconcileInterval: 15 * time.Minute,
			LiveInterval:      time.Minute,
			PreKickoffLead:    15 * time.Minute,
			Season:            "2025-26",
		},
		logging.NewNop(),
	)
	svc.now = func() time.Time { return now }

	result, err := svc.RunReconcile(context.Background(), false)
	if err != nil {
		t.Fatalf("RunReconcile: %v", err)
	}
	if result.SnapshotsRecorded != 1 {
		t.Fatalf("snapshots recorded = %d, want 1", result.SnapshotsRecorded)
	}

	history, err := leaderboard.RankingHistory(context.Background(), "org-a", "2025-26")
	if err != nil {
		t.Fatalf("RankingHistory: %v", err)
	}
	if len(history) != 1 || history[0].Gameweek != 1 || history[0].UserID != "user-1" {
		t.Fatalf("unexpected ranking history: %+v", history)
	}
}

func TestJobOrchestrator_LivePassSkipsRankingSnapshots(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	fixtures := newStubFixtureRepo(finishedFixture("fx-1", 2, 1, 1))

	entries := newStubStandingsRepo()
	leaderboard := NewLeaderboardService(entries, newStubPredictionRepo(), fixtures, logging.NewNop())
	if err := entries.Upsert(context.Background(), testEntry("org-a", "user-1", 5)); err != nil {
		t.Fatalf("seed entry: %v", err)
	}

	svc := NewJobOrchestratorService(
		fixtures, &captureReconciler{}, nil, leaderboard,
		&stubJobQueue{}, nil,
		JobOrchestratorConfig{Season: "2025-26"},
		logging.NewNop(),
	)
	svc.now = func() time.Time { return now }

	result, err := svc.RunLiveReconcile(context.Background(), false)
	if err != nil {
		t.Fatalf("RunLiveReconcile: %v", err)
	}
	if result.SnapshotsRecorded != 0 {
		t.Fatalf("live pass recorded %d snapshots, want 0", result.SnapshotsRecorded)
	}
}

func testEntry(orgID, userID string, points int) standings.Entry {
	return standings.Entry{
		OrgID:  orgID,
		Season: "2025-26",
		UserID: userID,
		Points: points,
	}
}
