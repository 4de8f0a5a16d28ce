package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/footyverse/prediction-league/internal/domain/fixture"
	"github.com/footyverse/prediction-league/internal/platform/logging"
	"github.com/footyverse/prediction-league/internal/platform/resilience"
)

// Candidate caps keep one reconcile pass inside the provider's call
// budget. Live fixtures always win the remaining slots.
const (
	capLive              = 20
	capUpcoming          = 20
	capFinishedUnchecked = 15
	capStalePreMatch     = 15

	upcomingWindow        = time.Hour
	finishedLookback      = 6 * time.Hour
	stalePreMatchMinAge   = 6 * time.Hour
	stalePreMatchLookback = 48 * time.Hour

	fullCooldown = 5 * time.Minute
	liveCooldown = 30 * time.Second

	providerChunkSize    = 10
	providerChunkWorkers = 3
)

// ReconcileInput selects what one pass covers. Explicit FixtureIDs
// bypass candidate selection and cooldowns entirely.
type ReconcileInput struct {
	FixtureIDs []string `json:"fixtureIds"`
	LiveOnly   bool     `json:"liveOnly"`
	Force      bool     `json:"force"`
}

type ReconcileResult struct {
	Candidates      int  `json:"candidates"`
	Checked         int  `json:"checked"`
	Updated         int  `json:"updated"`
	Scored          int  `json:"scored"`
	Unmatched       int  `json:"unmatched"`
	FailedBatches   int  `json:"failedBatches"`
	SkippedCooldown bool `json:"skippedCooldown"`
}

// FixtureScorer triggers prediction scoring after a fixture turns
// FINISHED. Implemented by ScoringService.
type FixtureScorer interface {
	ScoreFixture(ctx context.Context, fixtureID string) (ScoreResult, error)
}

// ReconcilerService pulls provider state for fixtures that plausibly
// changed and applies the differences. It is the only writer of
// provider-observed fixture state.
type ReconcilerService struct {
	fixtures fixture.Repository
	provider MatchProvider
	scorer   FixtureScorer
	logger   *logging.Logger
	now      func() time.Time

	flight resilience.SingleFlight

	mu         sync.Mutex
	lastFullAt time.Time
	lastLiveAt time.Time
}

func NewReconcilerService(
	fixtures fixture.Repository,
	provider MatchProvider,
	scorer FixtureScorer,
	logger *logging.Logger,
) *ReconcilerService {
	if logger == nil {
		logger = logging.Default()
	}
	return &ReconcilerService{
		fixtures: fixtures,
		provider: provider,
		scorer:   scorer,
		logger:   logger,
		now:      time.Now,
	}
}

// Reconcile runs one pass. Passes without explicit fixture ids honour
// a cooldown (five minutes full, thirty seconds live-only) so
// overlapping schedules and user-triggered refreshes cannot stampede
// the provider; concurrent identical passes collapse into one.
func (s *ReconcilerService) Reconcile(ctx context.Context, input ReconcileInput) (ReconcileResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.Reconciler.Reconcile")
	defer span.End()

	if len(input.FixtureIDs) > 0 {
		return s.reconcileExplicit(ctx, input)
	}

	if !input.Force && s.onCooldown(input.LiveOnly) {
		return ReconcileResult{SkippedCooldown: true}, nil
	}

	flightKey := "full"
	if input.LiveOnly {
		flightKey = "live"
	}
	value, err, _ := s.flight.Do(flightKey, func() (any, error) {
		result, err := s.reconcileSelected(ctx, input.LiveOnly)
		if err == nil {
			s.markRun(input.LiveOnly)
		}
		return result, err
	})
	if err != nil {
		return ReconcileResult{}, err
	}
	result, _ := value.(ReconcileResult)
	return result, nil
}

func (s *ReconcilerService) onCooldown(liveOnly bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if liveOnly {
		return now.Sub(s.lastLiveAt) < liveCooldown
	}
	return now.Sub(s.lastFullAt) < fullCooldown
}

func (s *ReconcilerService) markRun(liveOnly bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if liveOnly {
		s.lastLiveAt = now
		return
	}
	s.lastFullAt = now
	// a full pass covers everything a live pass would
	s.lastLiveAt = now
}

func (s *ReconcilerService) reconcileExplicit(ctx context.Context, input ReconcileInput) (ReconcileResult, error) {
	fixtures, err := s.fixtures.ListByIDs(ctx, input.FixtureIDs)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("list fixtures: %w", err)
	}
	if len(fixtures) == 0 {
		return ReconcileResult{}, fmt.Errorf("%w: no fixtures matched", ErrNotFound)
	}
	return s.reconcileFixtures(ctx, fixtures)
}

func (s *ReconcilerService) reconcileSelected(ctx context.Context, liveOnly bool) (ReconcileResult, error) {
	candidates, err := s.selectCandidates(ctx, liveOnly)
	if err != nil {
		return ReconcileResult{}, err
	}
	if len(candidates) == 0 {
		// nothing plausibly changed, skip the provider entirely
		return ReconcileResult{}, nil
	}
	return s.reconcileFixtures(ctx, candidates)
}

// selectCandidates picks the fixtures worth a provider call, in
// priority order, deduplicated, each bucket capped.
func (s *ReconcilerService) selectCandidates(ctx context.Context, liveOnly bool) ([]fixture.Fixture, error) {
	now := s.now()

	live, err := s.fixtures.ListByStatuses(ctx, []fixture.Status{fixture.StatusInPlay, fixture.StatusPaused})
	if err != nil {
		return nil, fmt.Errorf("list live fixtures: %w", err)
	}
	candidates := make([]fixture.Fixture, 0, capLive+capUpcoming+capFinishedUnchecked+capStalePreMatch)
	seen := make(map[string]struct{})
	appendCapped(&candidates, seen, live, capLive)

	if liveOnly {
		return candidates, nil
	}

	upcoming, err := s.fixtures.ListKickingOffBetween(ctx, now, now.Add(upcomingWindow))
	if err != nil {
		return nil, fmt.Errorf("list upcoming fixtures: %w", err)
	}
	appendCapped(&candidates, seen, upcoming, capUpcoming)

	finished, err := s.fixtures.ListFinishedUnchecked(ctx, now.Add(-finishedLookback), capFinishedUnchecked)
	if err != nil {
		return nil, fmt.Errorf("list finished unchecked fixtures: %w", err)
	}
	appendCapped(&candidates, seen, finished, capFinishedUnchecked)

	stale, err := s.fixtures.ListStalePreMatch(ctx, now.Add(-stalePreMatchLookback), now.Add(-stalePreMatchMinAge), capStalePreMatch)
	if err != nil {
		return nil, fmt.Errorf("list stale pre-match fixtures: %w", err)
	}
	appendCapped(&candidates, seen, stale, capStalePreMatch)

	return candidates, nil
}

func appendCapped(dst *[]fixture.Fixture, seen map[string]struct{}, src []fixture.Fixture, limit int) {
	added := 0
	for _, fx := range src {
		if added >= limit {
			return
		}
		if _, ok := seen[fx.ID]; ok {
			continue
		}
		seen[fx.ID] = struct{}{}
		*dst = append(*dst, fx)
		added++
	}
}

func (s *ReconcilerService) reconcileFixtures(ctx context.Context, fixtures []fixture.Fixture) (ReconcileResult, error) {
	result := ReconcileResult{Candidates: len(fixtures)}

	refs := make([]int64, 0, len(fixtures))
	matchable := make([]fixture.Fixture, 0, len(fixtures))
	for _, fx := range fixtures {
		if fx.ExternalRef <= 0 {
			result.Unmatched++
			continue
		}
		refs = append(refs, fx.ExternalRef)
		matchable = append(matchable, fx)
	}
	if len(refs) == 0 {
		return result, nil
	}

	matches, failedBatches := s.fetchMatches(ctx, refs)
	result.FailedBatches = failedBatches

	scoreQueue := make([]string, 0, 4)
	for _, fx := range matchable {
		match, ok := matches[fx.ExternalRef]
		if !ok {
			continue
		}
		result.Checked++

		updated, finishedNow, err := s.applyMatch(ctx, fx, match)
		if err != nil {
			return result, err
		}
		if updated {
			result.Updated++
		}
		if finishedNow {
			scoreQueue = append(scoreQueue, fx.ID)
		}
	}

	// scoring runs strictly after the fixture rows are written
	for _, fixtureID := range scoreQueue {
		if s.scorer == nil {
			break
		}
		scoreResult, err := s.scorer.ScoreFixture(ctx, fixtureID)
		if err != nil {
			s.logger.ErrorContext(ctx, "post-reconcile scoring failed",
				"fixture_id", fixtureID,
				"error", err,
			)
			continue
		}
		if !scoreResult.Skipped {
			result.Scored++
		}
	}

	s.logger.InfoContext(ctx, "reconcile pass complete",
		"candidates", result.Candidates,
		"checked", result.Checked,
		"updated", result.Updated,
		"scored", result.Scored,
		"failed_batches", result.FailedBatches,
	)
	return result, nil
}

// fetchMatches pulls provider matches in id chunks with a small worker
// pool. A failed chunk is logged and skipped; the rest of the pass
// continues with what was fetched.
func (s *ReconcilerService) fetchMatches(ctx context.Context, refs []int64) (map[int64]ExternalMatch, int) {
	sort.Slice(refs, func(i, j int) bool { return refs[i] < refs[j] })

	var mu sync.Mutex
	matches := make(map[int64]ExternalMatch, len(refs))
	failed := 0

	workers := pool.New().WithMaxGoroutines(providerChunkWorkers)
	for start := 0; start < len(refs); start += providerChunkSize {
		end := start + providerChunkSize
		if end > len(refs) {
			end = len(refs)
		}
		chunk := refs[start:end]

		workers.Go(func() {
			fetched, err := s.provider.MatchesByIDs(ctx, chunk)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				s.logger.WarnContext(ctx, "provider batch failed",
					"chunk_size", len(chunk),
					"error", err,
				)
				return
			}
			for _, m := range fetched {
				matches[m.ID] = m
			}
		})
	}
	workers.Wait()

	return matches, failed
}

// applyMatch writes provider state onto one fixture. The checked
// timestamp always advances; updated reports whether status or scores
// actually moved, and finishedNow whether the fixture just became
// scoreable.
func (s *ReconcilerService) applyMatch(ctx context.Context, fx fixture.Fixture, match ExternalMatch) (updated, finishedNow bool, err error) {
	status := fixture.NormalizeStatus(match.Status)

	newHome := coalesceScore(match.HomeScore, fx.HomeScore)
	newAway := coalesceScore(match.AwayScore, fx.AwayScore)

	changed := status != fx.Status ||
		!scoresEqual(newHome, fx.HomeScore) ||
		!scoresEqual(newAway, fx.AwayScore)

	result := fixture.Result{
		FixtureID: fx.ID,
		Status:    status,
		HomeScore: newHome,
		AwayScore: newAway,
		CheckedAt: s.now(),
	}
	if err := s.fixtures.ApplyResult(ctx, result); err != nil {
		return false, false, fmt.Errorf("apply fixture result: %w", err)
	}

	wasScoreable := fixture.IsFinished(fx.Status) && fx.HasScores()
	nowScoreable := fixture.IsFinished(status) && newHome != nil && newAway != nil

	return changed, nowScoreable && !wasScoreable, nil
}

// coalesceScore keeps an already-known score when the provider omits
// one, which happens on some status-only payloads.
func coalesceScore(provider, current *int) *int {
	if provider != nil {
		return provider
	}
	return current
}

func scoresEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
