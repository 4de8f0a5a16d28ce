package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/footyverse/prediction-league/internal/domain/fixture"
	"github.com/footyverse/prediction-league/internal/platform/logging"
)

type captureScorer struct {
	mu     sync.Mutex
	scored []string
}

func (c *captureScorer) ScoreFixture(_ context.Context, fixtureID string) (ScoreResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scored = append(c.scored, fixtureID)
	return ScoreResult{FixtureID: fixtureID, Processed: 1, Updated: 1}, nil
}

func TestReconcilerService_AppliesProviderStateAndScores(t *testing.T) {
	t.Parallel()

	kickoff := time.Date(2026, 8, 15, 15, 0, 0, 0, time.UTC)
	fixtures := newStubFixtureRepo(fixture.Fixture{
		ID:          "fx-1",
		ExternalRef: 101,
		Season:      "2025-26",
		Status:      fixture.StatusInPlay,
		KickoffAt:   kickoff,
	})
	provider := &stubMatchProvider{matches: map[int64]ExternalMatch{
		101: {ID: 101, Status: "FINISHED", HomeScore: intPtr(2), AwayScore: intPtr(0)},
	}}
	scorer := &captureScorer{}
	svc := NewReconcilerService(fixtures, provider, scorer, logging.NewNop())
	svc.now = func() time.Time { return kickoff.Add(2 * time.Hour) }

	result, err := svc.Reconcile(context.Background(), ReconcileInput{})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if result.Checked != 1 || result.Updated != 1 || result.Scored != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	fx, _, _ := fixtures.GetByID(context.Background(), "fx-1")
	if fx.Status != fixture.StatusFinished {
		t.Fatalf("status = %s, want FINISHED", fx.Status)
	}
	if fx.HomeScore == nil || *fx.HomeScore != 2 || fx.AwayScore == nil || *fx.AwayScore != 0 {
		t.Fatalf("scores not applied: %+v", fx)
	}
	if fx.CheckedAt == nil {
		t.Fatalf("checked timestamp not advanced")
	}
	if len(scorer.scored) != 1 || scorer.scored[0] != "fx-1" {
		t.Fatalf("scoring not triggered: %v", scorer.scored)
	}
}

func TestReconcilerService_NoCandidatesSkipsProvider(t *testing.T) {
	t.Parallel()

	fixtures := newStubFixtureRepo(fixture.Fixture{
		ID:          "fx-done",
		ExternalRef: 55,
		Status:      fixture.StatusFinished,
		HomeScore:   intPtr(1),
		AwayScore:   intPtr(1),
		KickoffAt:   time.Date(2026, 1, 10, 15, 0, 0, 0, time.UTC),
		CheckedAt:   timePtr(time.Date(2026, 1, 10, 17, 0, 0, 0, time.UTC)),
	})
	provider := &stubMatchProvider{}
	svc := NewReconcilerService(fixtures, provider, &captureScorer{}, logging.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC) }

	result, err := svc.Reconcile(context.Background(), ReconcileInput{})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if result.Candidates != 0 {
		t.Fatalf("candidates = %d, want 0", result.Candidates)
	}
	if provider.calls != 0 {
		t.Fatalf("provider called %d times for an empty pass", provider.calls)
	}
}

func TestReconcilerService_CooldownSkipsBackToBackPasses(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 15, 15, 30, 0, 0, time.UTC)
	fixtures := newStubFixtureRepo(fixture.Fixture{
		ID:          "fx-1",
		ExternalRef: 101,
		Status:      fixture.StatusInPlay,
		KickoffAt:   now.Add(-30 * time.Minute),
	})
	provider := &stubMatchProvider{matches: map[int64]ExternalMatch{
		101: {ID: 101, Status: "IN_PLAY", HomeScore: intPtr(1), AwayScore: intPtr(0)},
	}}
	svc := NewReconcilerService(fixtures, provider, &captureScorer{}, logging.NewNop())
	svc.now = func() time.Time { return now }

	if _, err := svc.Reconcile(context.Background(), ReconcileInput{}); err != nil {
		t.Fatalf("first pass: %v", err)
	}

	result, err := svc.Reconcile(context.Background(), ReconcileInput{})
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if !result.SkippedCooldown {
		t.Fatalf("expected cooldown skip, got %+v", result)
	}

	// force bypasses the cooldown
	forced, err := svc.Reconcile(context.Background(), ReconcileInput{Force: true})
	if err != nil {
		t.Fatalf("forced pass: %v", err)
	}
	if forced.SkippedCooldown || forced.Checked != 1 {
		t.Fatalf("forced pass skipped: %+v", forced)
	}
}

func TestReconcilerService_LiveCooldownIsShorterThanFull(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 15, 15, 30, 0, 0, time.UTC)
	fixtures := newStubFixtureRepo(fixture.Fixture{
		ID:          "fx-1",
		ExternalRef: 101,
		Status:      fixture.StatusInPlay,
		KickoffAt:   now.Add(-30 * time.Minute),
	})
	provider := &stubMatchProvider{matches: map[int64]ExternalMatch{
		101: {ID: 101, Status: "IN_PLAY"},
	}}
	svc := NewReconcilerService(fixtures, provider, &captureScorer{}, logging.NewNop())
	current := now
	svc.now = func() time.Time { return current }

	if _, err := svc.Reconcile(context.Background(), ReconcileInput{LiveOnly: true}); err != nil {
		t.Fatalf("first live pass: %v", err)
	}

	current = now.Add(45 * time.Second)
	result, err := svc.Reconcile(context.Background(), ReconcileInput{LiveOnly: true})
	if err != nil {
		t.Fatalf("second live pass: %v", err)
	}
	if result.SkippedCooldown {
		t.Fatalf("live cooldown should have elapsed after 45s")
	}

	full, err := svc.Reconcile(context.Background(), ReconcileInput{})
	if err != nil {
		t.Fatalf("full pass: %v", err)
	}
	if full.SkippedCooldown {
		t.Fatalf("full pass should not share the live cooldown")
	}
}

func TestReconcilerService_UnmatchedFixturesAreCounted(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 15, 15, 30, 0, 0, time.UTC)
	fixtures := newStubFixtureRepo(
		fixture.Fixture{ID: "fx-local", ExternalRef: 0, Status: fixture.StatusInPlay, KickoffAt: now.Add(-time.Hour)},
		fixture.Fixture{ID: "fx-real", ExternalRef: 7, Status: fixture.StatusInPlay, KickoffAt: now.Add(-time.Hour)},
	)
	provider := &stubMatchProvider{matches: map[int64]ExternalMatch{
		7: {ID: 7, Status: "PAUSED"},
	}}
	svc := NewReconcilerService(fixtures, provider, &captureScorer{}, logging.NewNop())
	svc.now = func() time.Time { return now }

	result, err := svc.Reconcile(context.Background(), ReconcileInput{Force: true})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if result.Unmatched != 1 {
		t.Fatalf("unmatched = %d, want 1", result.Unmatched)
	}
	if result.Checked != 1 {
		t.Fatalf("checked = %d, want 1", result.Checked)
	}
}

func TestReconcilerService_ProviderFailureDoesNotAbortPass(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 15, 15, 30, 0, 0, time.UTC)
	fixtures := newStubFixtureRepo(fixture.Fixture{
		ID:          "fx-1",
		ExternalRef: 101,
		Status:      fixture.StatusInPlay,
		KickoffAt:   now.Add(-time.Hour),
	})
	provider := &stubMatchProvider{err: errors.New("upstream 503")}
	svc := NewReconcilerService(fixtures, provider, &captureScorer{}, logging.NewNop())
	svc.now = func() time.Time { return now }

	result, err := svc.Reconcile(context.Background(), ReconcileInput{Force: true})
	if err != nil {
		t.Fatalf("Reconcile should tolerate provider failure: %v", err)
	}
	if result.FailedBatches != 1 {
		t.Fatalf("failed batches = %d, want 1", result.FailedBatches)
	}
	if result.Checked != 0 {
		t.Fatalf("checked = %d, want 0", result.Checked)
	}
}

func timePtr(v time.Time) *time.Time {
	return &v
}
