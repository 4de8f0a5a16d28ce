package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/footyverse/prediction-league/internal/domain/fixture"
	"github.com/footyverse/prediction-league/internal/domain/jobscheduler"
	"github.com/footyverse/prediction-league/internal/platform/logging"
)

const (
	jobPathReconcile = "/v1/internal/jobs/reconcile"
	jobPathLive      = "/v1/internal/jobs/reconcile-live"
	jobPathRecovery  = "/v1/internal/jobs/recover"
)

type noopJobQueue struct{}

func (noopJobQueue) Enqueue(_ context.Context, _ string, _ map[string]any, _ time.Duration, _ string) error {
	return nil
}

func NewNoopJobQueue() JobQueue {
	return noopJobQueue{}
}

type JobOrchestratorConfig struct {
	// ReconcileInterval paces full passes when nothing is happening.
	ReconcileInterval time.Duration
	// LiveInterval paces live-only passes while matches are in play.
	LiveInterval time.Duration
	// PreKickoffLead is how long before kickoff live polling starts.
	PreKickoffLead time.Duration
	// Season scopes fixture analysis; empty means all stored fixtures.
	Season string
}

type JobRunResult struct {
	Mode              string          `json:"mode"`
	Reconcile         ReconcileResult `json:"reconcile"`
	HasLiveFixtures   bool            `json:"hasLiveFixtures"`
	SnapshotsRecorded int             `json:"snapshotsRecorded"`
	QueuedCount       int             `json:"queuedCount"`
	QueuedOperations  []string        `json:"queuedOperations"`
}

// JobOrchestratorService runs reconcile passes and schedules its own
// follow-ups through the job queue. The cadence adapts to the fixture
// calendar: tight while matches are live, near-dormant between
// matchdays.
type JobOrchestratorService struct {
	fixtures     fixture.Repository
	reconciler   Reconciler
	recovery     *RecoveryService
	leaderboard  *LeaderboardService
	queue        JobQueue
	dispatchRepo jobscheduler.Repository
	cfg          JobOrchestratorConfig
	logger       *logging.Logger
	now          func() time.Time
}

var dedupUnsafeCharRegex = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

func NewJobOrchestratorService(
	fixtures fixture.Repository,
	reconciler Reconciler,
	recovery *RecoveryService,
	leaderboard *LeaderboardService,
	queue JobQueue,
	dispatchRepo jobscheduler.Repository,
	cfg JobOrchestratorConfig,
	logger *logging.Logger,
) *JobOrchestratorService {
	if queue == nil {
		queue = NewNoopJobQueue()
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = 15 * time.Minute
	}
	if cfg.LiveInterval <= 0 {
		cfg.LiveInterval = time.Minute
	}
	if cfg.PreKickoffLead <= 0 {
		cfg.PreKickoffLead = 15 * time.Minute
	}

	return &JobOrchestratorService{
		fixtures:     fixtures,
		reconciler:   reconciler,
		recovery:     recovery,
		leaderboard:  leaderboard,
		queue:        queue,
		dispatchRepo: dispatchRepo,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
}

// RunReconcile executes a full pass and chains the next callbacks.
func (s *JobOrchestratorService) RunReconcile(ctx context.Context, force bool) (JobRunResult, error) {
	return s.run(ctx, "reconcile", ReconcileInput{Force: force}, true)
}

// RunLiveReconcile executes a live-only pass and chains the next
// callbacks.
func (s *JobOrchestratorService) RunLiveReconcile(ctx context.Context, force bool) (JobRunResult, error) {
	return s.run(ctx, "reconcile-live", ReconcileInput{LiveOnly: true, Force: force}, true)
}

// RunRecovery executes one recovery sweep. Recovery never chains
// itself; a cron entry drives it.
func (s *JobOrchestratorService) RunRecovery(ctx context.Context, input RecoveryInput) (RecoveryResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.JobOrchestrator.RunRecovery")
	defer span.End()

	result, err := s.recovery.Recover(ctx, input)
	if err != nil {
		return result, err
	}
	return result, nil
}

// Bootstrap seeds the self-scheduling chain after deploy or queue
// loss.
func (s *JobOrchestratorService) Bootstrap(ctx context.Context) (JobRunResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.JobOrchestrator.Bootstrap")
	defer span.End()

	now := s.now().UTC()
	result := JobRunResult{Mode: "bootstrap"}
	if err := s.enqueueJob(ctx, "reconcile", jobPathReconcile, 0, now, &result); err != nil {
		return JobRunResult{}, err
	}
	return result, nil
}

func (s *JobOrchestratorService) run(ctx context.Context, mode string, input ReconcileInput, chain bool) (JobRunResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.JobOrchestrator.Run")
	defer span.End()

	reconcileResult, err := s.reconciler.Reconcile(ctx, input)
	if err != nil {
		return JobRunResult{}, err
	}

	result := JobRunResult{
		Mode:      mode,
		Reconcile: reconcileResult,
	}

	// full passes also keep the ranking history current; live passes
	// stay cheap and skip it
	if mode == "reconcile" {
		result.SnapshotsRecorded = s.snapshotRankingHistory(ctx)
	}

	if !chain {
		return result, nil
	}

	now := s.now().UTC()
	hasLive, nearestUpcoming, err := s.analyzeCalendar(ctx, now)
	if err != nil {
		return JobRunResult{}, err
	}
	result.HasLiveFixtures = hasLive

	if hasLive {
		if err := s.enqueueJob(ctx, "reconcile-live", jobPathLive, s.cfg.LiveInterval, now, &result); err != nil {
			return JobRunResult{}, err
		}
	} else if nearestUpcoming != nil {
		delay := nearestUpcoming.Add(-s.cfg.PreKickoffLead).Sub(now)
		if delay <= 0 {
			delay = s.cfg.LiveInterval
		}
		if err := s.enqueueJob(ctx, "reconcile-live", jobPathLive, delay, now, &result); err != nil {
			return JobRunResult{}, err
		}
	}

	fullDelay := s.nextReconcileDelay(now, hasLive, nearestUpcoming)
	if err := s.enqueueJob(ctx, "reconcile", jobPathReconcile, fullDelay, now, &result); err != nil {
		return JobRunResult{}, err
	}

	return result, nil
}

// snapshotRankingHistory records ranking snapshots for every season
// with terminal gameweeks. Failures are logged and never fail the
// reconcile pass; the next full pass retries.
func (s *JobOrchestratorService) snapshotRankingHistory(ctx context.Context) int {
	if s.leaderboard == nil {
		return 0
	}
	seasons := []string{s.cfg.Season}
	if s.cfg.Season == "" {
		finished, err := s.fixtures.ListByStatuses(ctx, []fixture.Status{fixture.StatusFinished})
		if err != nil {
			s.logger.WarnContext(ctx, "list finished fixtures for ranking snapshots failed", "error", err)
			return 0
		}
		seasons = seasons[:0]
		seen := make(map[string]struct{})
		for _, fx := range finished {
			if fx.Season == "" {
				continue
			}
			if _, ok := seen[fx.Season]; ok {
				continue
			}
			seen[fx.Season] = struct{}{}
			seasons = append(seasons, fx.Season)
		}
	}

	total := 0
	for _, season := range seasons {
		count, err := s.SnapshotCompletedGameweeks(ctx, season)
		if err != nil {
			s.logger.WarnContext(ctx, "ranking snapshots failed", "season", season, "error", err)
			continue
		}
		total += count
	}
	return total
}

// SnapshotCompletedGameweeks records ranking snapshots for every
// gameweek whose fixtures are all terminal. Safe to re-run; snapshots
// upsert by key.
func (s *JobOrchestratorService) SnapshotCompletedGameweeks(ctx context.Context, season string) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.JobOrchestrator.SnapshotCompletedGameweeks")
	defer span.End()

	season = strings.TrimSpace(season)
	if season == "" {
		return 0, fmt.Errorf("%w: season is required", ErrInvalidInput)
	}

	fixtures, err := s.fixtures.ListBySeason(ctx, season)
	if err != nil {
		return 0, fmt.Errorf("list season fixtures: %w", err)
	}

	complete := make(map[int]bool)
	for _, fx := range fixtures {
		if fx.Gameweek < 1 {
			continue
		}
		done, seen := complete[fx.Gameweek]
		if !seen {
			done = true
		}
		complete[fx.Gameweek] = done && fixture.IsTerminal(fx.Status)
	}

	total := 0
	for gameweek, done := range complete {
		if !done {
			continue
		}
		count, err := s.leaderboard.SnapshotGameweek(ctx, season, gameweek)
		if err != nil {
			return total, err
		}
		total += count
	}
	return total, nil
}

func (s *JobOrchestratorService) analyzeCalendar(ctx context.Context, now time.Time) (bool, *time.Time, error) {
	var fixtures []fixture.Fixture
	var err error
	if s.cfg.Season != "" {
		fixtures, err = s.fixtures.ListBySeason(ctx, s.cfg.Season)
	} else {
		fixtures, err = s.fixtures.ListKickingOffBetween(ctx, now.Add(-liveWindowTail), now.Add(14*24*time.Hour))
	}
	if err != nil {
		return false, nil, fmt.Errorf("list fixtures for calendar analysis: %w", err)
	}

	hasLive := false
	var nearestUpcoming *time.Time
	for _, fx := range fixtures {
		if fixture.IsLive(fx.Status) {
			hasLive = true
		}
		if fx.KickoffAt.IsZero() || fx.KickoffAt.Before(now) {
			continue
		}
		if fixture.IsTerminal(fx.Status) || fixture.IsAbandonedLike(fx.Status) {
			continue
		}
		if nearestUpcoming == nil || fx.KickoffAt.Before(*nearestUpcoming) {
			next := fx.KickoffAt
			nearestUpcoming = &next
		}
	}

	return hasLive, nearestUpcoming, nil
}

func (s *JobOrchestratorService) nextReconcileDelay(now time.Time, hasLive bool, nearestUpcoming *time.Time) time.Duration {
	minDelay := time.Minute
	if hasLive {
		return maxDuration(s.cfg.LiveInterval, minDelay)
	}

	if nearestUpcoming != nil {
		delay := nearestUpcoming.Add(-s.cfg.PreKickoffLead).Sub(now)
		if delay <= 0 {
			return maxDuration(s.cfg.LiveInterval, minDelay)
		}
		if delay > s.cfg.ReconcileInterval {
			return s.cfg.ReconcileInterval
		}
		return maxDuration(delay, minDelay)
	}

	// no fixtures on the horizon, back off hard
	return maxDuration(s.cfg.ReconcileInterval, 6*time.Hour)
}

func (s *JobOrchestratorService) enqueueJob(ctx context.Context, jobName, jobPath string, delay time.Duration, now time.Time, result *JobRunResult) error {
	bucket := s.cfg.ReconcileInterval
	if jobName == "reconcile-live" {
		bucket = s.cfg.LiveInterval
	}
	target := s.cfg.Season
	if target == "" {
		target = "all"
	}

	dedupID := dedupKey(jobName, target, now.Add(delay), bucket)
	payload := map[string]any{
		"season":      s.cfg.Season,
		"dispatch_id": dedupID,
	}

	if err := s.queue.Enqueue(ctx, jobPath, payload, delay, dedupID); err != nil {
		s.recordDispatchEvent(ctx, jobscheduler.DispatchEvent{
			DispatchID:   dedupID,
			JobName:      jobName,
			JobPath:      jobPath,
			Target:       target,
			Status:       jobscheduler.StatusFailed,
			Payload:      payload,
			ErrorMessage: err.Error(),
			OccurredAt:   now,
		})
		return fmt.Errorf("enqueue %s: %w", jobName, err)
	}

	s.recordDispatchEvent(ctx, jobscheduler.DispatchEvent{
		DispatchID: dedupID,
		JobName:    jobName,
		JobPath:    jobPath,
		Target:     target,
		Status:     jobscheduler.StatusSent,
		Payload:    payload,
		OccurredAt: now,
	})

	result.QueuedCount++
	result.QueuedOperations = append(result.QueuedOperations, jobName+":"+target)
	return nil
}

// dedupKey buckets dispatch times so retried schedulers and
// double-fired crons collapse into one queued job.
func dedupKey(prefix, target string, at time.Time, bucket time.Duration) string {
	if bucket <= 0 {
		bucket = time.Minute
	}
	slot := at.UTC().Truncate(bucket).Format("20060102T150405Z")
	prefix = sanitizeDedupSegment(prefix)
	target = sanitizeDedupSegment(target)
	return prefix + "-" + target + "-" + slot
}

func sanitizeDedupSegment(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return dedupUnsafeCharRegex.ReplaceAllString(value, "-")
}

func (s *JobOrchestratorService) recordDispatchEvent(ctx context.Context, event jobscheduler.DispatchEvent) {
	if s.dispatchRepo == nil || strings.TrimSpace(event.DispatchID) == "" {
		return
	}
	traceID, spanID := traceMetaFromContext(ctx)
	event.TraceID = traceID
	event.SpanID = spanID
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now().UTC()
	}
	if err := s.dispatchRepo.UpsertEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "record job dispatch event failed",
			"dispatch_id", event.DispatchID,
			"status", event.Status,
			"error", err,
		)
	}
}

func traceMetaFromContext(ctx context.Context) (string, string) {
	spanContext := trace.SpanFromContext(ctx).SpanContext()
	if !spanContext.IsValid() {
		return "", ""
	}
	return spanContext.TraceID().String(), spanContext.SpanID().String()
}

func maxDuration(left, right time.Duration) time.Duration {
	if left > right {
		return left
	}
	return right
}
