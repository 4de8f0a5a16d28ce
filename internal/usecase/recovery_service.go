package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/footyverse/prediction-league/internal/domain/fixture"
	"github.com/footyverse/prediction-league/internal/domain/prediction"
	"github.com/footyverse/prediction-league/internal/platform/logging"
)

const (
	defaultRecoveryLookback = 7 * 24 * time.Hour
	stuckLiveAge            = 3 * time.Hour
	unscoredScanLimit       = 500
	recoveryWorkers         = 4
)

type RecoveryInput struct {
	// LookbackDays bounds the scan window; zero means seven days.
	LookbackDays int `json:"lookbackDays"`
}

type RecoveryResult struct {
	FixturesScanned     int `json:"fixturesScanned"`
	PredictionsScanned  int `json:"predictionsScanned"`
	FixturesReattempted int `json:"fixturesReattempted"`
	FixturesScored      int `json:"fixturesScored"`
	PredictionsRescored int `json:"predictionsRescored"`
	Unfixable           int `json:"unfixable"`
}

// Reconciler is the forced-refresh entry point the recovery scanner
// drives. Implemented by ReconcilerService.
type Reconciler interface {
	Reconcile(ctx context.Context, input ReconcileInput) (ReconcileResult, error)
}

// RecoveryService sweeps for fixtures and predictions the normal
// reconcile path missed: matches stuck on a dead status, finished
// matches with no scores, and predictions never scored. It exists
// because provider outages and crashed passes leave exactly this kind
// of debris behind.
type RecoveryService struct {
	fixtures    fixture.Repository
	predictions prediction.Repository
	reconciler  Reconciler
	scorer      FixtureScorer
	logger      *logging.Logger
	now         func() time.Time
}

func NewRecoveryService(
	fixtures fixture.Repository,
	predictions prediction.Repository,
	reconciler Reconciler,
	scorer FixtureScorer,
	logger *logging.Logger,
) *RecoveryService {
	if logger == nil {
		logger = logging.Default()
	}
	return &RecoveryService{
		fixtures:    fixtures,
		predictions: predictions,
		reconciler:  reconciler,
		scorer:      scorer,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *RecoveryService) Recover(ctx context.Context, input RecoveryInput) (RecoveryResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.Recovery.Recover")
	defer span.End()

	lookback := defaultRecoveryLookback
	if input.LookbackDays > 0 {
		lookback = time.Duration(input.LookbackDays) * 24 * time.Hour
	}
	since := s.now().Add(-lookback)

	var result RecoveryResult

	stuckIDs, scanned, unfixable, err := s.collectStuckFixtures(ctx, since)
	if err != nil {
		return result, err
	}
	result.FixturesScanned = scanned
	result.Unfixable = unfixable

	if len(stuckIDs) > 0 {
		reconcileResult, err := s.reconciler.Reconcile(ctx, ReconcileInput{FixtureIDs: stuckIDs, Force: true})
		if err != nil {
			return result, fmt.Errorf("forced reconcile: %w", err)
		}
		result.FixturesReattempted = reconcileResult.Checked
		result.FixturesScored = reconcileResult.Scored
	}

	rescored, examined, err := s.rescoreOrphanedPredictions(ctx)
	if err != nil {
		return result, err
	}
	result.PredictionsScanned = examined
	result.PredictionsRescored = rescored

	s.logger.InfoContext(ctx, "recovery sweep complete",
		"fixtures_scanned", result.FixturesScanned,
		"predictions_scanned", result.PredictionsScanned,
		"reattempted", result.FixturesReattempted,
		"scored", result.FixturesScored,
		"rescored_predictions", result.PredictionsRescored,
		"unfixable", result.Unfixable,
	)
	return result, nil
}

// collectStuckFixtures gathers fixtures that should have moved on but
// did not, reporting how many distinct fixtures the sweep examined.
// Fixtures without an external ref can never be refreshed and are only
// counted.
func (s *RecoveryService) collectStuckFixtures(ctx context.Context, since time.Time) ([]string, int, int, error) {
	now := s.now()

	missing, err := s.fixtures.ListFinishedMissingScores(ctx, since, unscoredScanLimit)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("list finished fixtures missing scores: %w", err)
	}

	stalePre, err := s.fixtures.ListStalePreMatch(ctx, since, now.Add(-stalePreMatchMinAge), unscoredScanLimit)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("list stale pre-match fixtures: %w", err)
	}

	live, err := s.fixtures.ListByStatuses(ctx, []fixture.Status{fixture.StatusInPlay, fixture.StatusPaused})
	if err != nil {
		return nil, 0, 0, fmt.Errorf("list live fixtures: %w", err)
	}
	stuckLive := make([]fixture.Fixture, 0, len(live))
	for _, fx := range live {
		if !fx.KickoffAt.IsZero() && now.Sub(fx.KickoffAt) > stuckLiveAge {
			stuckLive = append(stuckLive, fx)
		}
	}

	ids := make([]string, 0, len(missing)+len(stalePre)+len(stuckLive))
	seen := make(map[string]struct{})
	unfixable := 0
	for _, group := range [][]fixture.Fixture{missing, stalePre, stuckLive} {
		for _, fx := range group {
			if _, ok := seen[fx.ID]; ok {
				continue
			}
			seen[fx.ID] = struct{}{}
			if fx.ExternalRef <= 0 {
				unfixable++
				continue
			}
			ids = append(ids, fx.ID)
		}
	}

	return ids, len(seen), unfixable, nil
}

// rescoreOrphanedPredictions finds unscored predictions whose fixture
// already finished with scores and replays scoring per fixture on a
// small worker pool. The second return is how many unscored
// predictions the sweep examined.
func (s *RecoveryService) rescoreOrphanedPredictions(ctx context.Context) (int, int, error) {
	unscored, err := s.predictions.ListUnscored(ctx, unscoredScanLimit)
	if err != nil {
		return 0, 0, fmt.Errorf("list unscored predictions: %w", err)
	}
	if len(unscored) == 0 {
		return 0, 0, nil
	}

	fixtureIDs := make([]string, 0, len(unscored))
	seen := make(map[string]struct{})
	for _, p := range unscored {
		if _, ok := seen[p.FixtureID]; ok {
			continue
		}
		seen[p.FixtureID] = struct{}{}
		fixtureIDs = append(fixtureIDs, p.FixtureID)
	}

	fixtures, err := s.fixtures.ListByIDs(ctx, fixtureIDs)
	if err != nil {
		return 0, len(unscored), fmt.Errorf("list fixtures: %w", err)
	}

	scoreable := make([]string, 0, len(fixtures))
	for _, fx := range fixtures {
		if fixture.IsFinished(fx.Status) && fx.HasScores() {
			scoreable = append(scoreable, fx.ID)
		}
	}
	if len(scoreable) == 0 {
		return 0, len(unscored), nil
	}

	workerPool, err := ants.NewPool(recoveryWorkers)
	if err != nil {
		return 0, len(unscored), fmt.Errorf("create worker pool: %w", err)
	}
	defer workerPool.Release()

	var wg sync.WaitGroup
	var rescored atomic.Int64

	for _, fixtureID := range scoreable {
		wg.Add(1)
		submitErr := workerPool.Submit(func() {
			defer wg.Done()
			scoreResult, err := s.scorer.ScoreFixture(ctx, fixtureID)
			if err != nil {
				s.logger.ErrorContext(ctx, "recovery rescore failed",
					"fixture_id", fixtureID,
					"error", err,
				)
				return
			}
			rescored.Add(int64(scoreResult.Updated))
		})
		if submitErr != nil {
			wg.Done()
			s.logger.ErrorContext(ctx, "recovery rescore submit failed",
				"fixture_id", fixtureID,
				"error", submitErr,
			)
		}
	}
	wg.Wait()

	return int(rescored.Load()), len(unscored), nil
}
