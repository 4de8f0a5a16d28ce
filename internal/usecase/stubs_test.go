package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/footyverse/prediction-league/internal/domain/fixture"
	"github.com/footyverse/prediction-league/internal/domain/prediction"
	"github.com/footyverse/prediction-league/internal/domain/standings"
	"github.com/footyverse/prediction-league/internal/domain/team"
)

type stubFixtureRepo struct {
	mu       sync.Mutex
	fixtures map[string]fixture.Fixture

	applied []fixture.Result
}

func newStubFixtureRepo(fixtures ...fixture.Fixture) *stubFixtureRepo {
	repo := &stubFixtureRepo{fixtures: make(map[string]fixture.Fixture)}
	for _, fx := range fixtures {
		repo.fixtures[fx.ID] = fx
	}
	return repo
}

func (r *stubFixtureRepo) GetByID(_ context.Context, id string) (fixture.Fixture, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fx, ok := r.fixtures[id]
	return fx, ok, nil
}

func (r *stubFixtureRepo) ListByIDs(_ context.Context, ids []string) ([]fixture.Fixture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]fixture.Fixture, 0, len(ids))
	for _, id := range ids {
		if fx, ok := r.fixtures[id]; ok {
			out = append(out, fx)
		}
	}
	return out, nil
}

func (r *stubFixtureRepo) ListBySeason(_ context.Context, season string) ([]fixture.Fixture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(fx fixture.Fixture) bool { return fx.Season == season }), nil
}

func (r *stubFixtureRepo) ListByGameweek(_ context.Context, season string, gameweek int) ([]fixture.Fixture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(fx fixture.Fixture) bool {
		return fx.Season == season && fx.Gameweek == gameweek
	}), nil
}

func (r *stubFixtureRepo) ListByStatuses(_ context.Context, statuses []fixture.Status) ([]fixture.Fixture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := make(map[fixture.Status]struct{}, len(statuses))
	for _, st := range statuses {
		wanted[st] = struct{}{}
	}
	return r.filter(func(fx fixture.Fixture) bool {
		_, ok := wanted[fx.Status]
		return ok
	}), nil
}

func (r *stubFixtureRepo) ListKickingOffBetween(_ context.Context, from, to time.Time) ([]fixture.Fixture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(fx fixture.Fixture) bool {
		return !fx.KickoffAt.Before(from) && fx.KickoffAt.Before(to)
	}), nil
}

func (r *stubFixtureRepo) ListFinishedUnchecked(_ context.Context, since time.Time, limit int) ([]fixture.Fixture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.filter(func(fx fixture.Fixture) bool {
		return fixture.IsFinished(fx.Status) && fx.KickoffAt.After(since) && fx.CheckedAt == nil
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *stubFixtureRepo) ListStalePreMatch(_ context.Context, from, to time.Time, limit int) ([]fixture.Fixture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.filter(func(fx fixture.Fixture) bool {
		return fixture.IsPreMatch(fx.Status) && !fx.KickoffAt.Before(from) && fx.KickoffAt.Before(to)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *stubFixtureRepo) ListFinishedMissingScores(_ context.Context, since time.Time, limit int) ([]fixture.Fixture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.filter(func(fx fixture.Fixture) bool {
		return fixture.IsFinished(fx.Status) && !fx.HasScores() && fx.KickoffAt.After(since)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *stubFixtureRepo) UpsertMany(_ context.Context, fixtures []fixture.Fixture) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, fx := range fixtures {
		r.fixtures[fx.ID] = fx
	}
	return nil
}

func (r *stubFixtureRepo) ApplyResult(_ context.Context, result fixture.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fx, ok := r.fixtures[result.FixtureID]
	if !ok {
		return nil
	}
	fx.Status = result.Status
	fx.HomeScore = result.HomeScore
	fx.AwayScore = result.AwayScore
	checkedAt := result.CheckedAt
	fx.CheckedAt = &checkedAt
	r.fixtures[result.FixtureID] = fx
	r.applied = append(r.applied, result)
	return nil
}

func (r *stubFixtureRepo) SetGameweekMultiplier(_ context.Context, season string, gameweek, multiplier int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	updated := 0
	for id, fx := range r.fixtures {
		if fx.Season == season && fx.Gameweek == gameweek {
			fx.Multiplier = multiplier
			r.fixtures[id] = fx
			updated++
		}
	}
	return updated, nil
}

func (r *stubFixtureRepo) DeleteByGameweek(_ context.Context, season string, gameweek int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	deleted := 0
	for id, fx := range r.fixtures {
		if fx.Season == season && fx.Gameweek == gameweek {
			delete(r.fixtures, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *stubFixtureRepo) filter(keep func(fixture.Fixture) bool) []fixture.Fixture {
	out := make([]fixture.Fixture, 0, len(r.fixtures))
	for _, fx := range r.fixtures {
		if keep(fx) {
			out = append(out, fx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type stubPredictionRepo struct {
	mu          sync.Mutex
	predictions map[string]prediction.Prediction
}

func newStubPredictionRepo(preds ...prediction.Prediction) *stubPredictionRepo {
	repo := &stubPredictionRepo{predictions: make(map[string]prediction.Prediction)}
	for _, p := range preds {
		repo.predictions[p.ID] = p
	}
	return repo
}

func (r *stubPredictionRepo) GetByID(_ context.Context, id string) (prediction.Prediction, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.predictions[id]
	return p, ok, nil
}

func (r *stubPredictionRepo) ListByFixture(_ context.Context, fixtureID string) ([]prediction.Prediction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(p prediction.Prediction) bool { return p.FixtureID == fixtureID }), nil
}

func (r *stubPredictionRepo) ListByOrgSeason(_ context.Context, orgID, season string) ([]prediction.Prediction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(p prediction.Prediction) bool {
		return p.OrgID == orgID && p.Season == season
	}), nil
}

func (r *stubPredictionRepo) ListUnscored(_ context.Context, limit int) ([]prediction.Prediction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.filter(func(p prediction.Prediction) bool { return p.Points == nil })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *stubPredictionRepo) Upsert(_ context.Context, p prediction.Prediction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.predictions[p.ID] = p
	return nil
}

func (r *stubPredictionRepo) SetPoints(_ context.Context, id string, points int, scoredAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.predictions[id]
	if !ok {
		return nil
	}
	pts := points
	p.Points = &pts
	at := scoredAt
	p.ScoredAt = &at
	r.predictions[id] = p
	return nil
}

func (r *stubPredictionRepo) DeleteByFixtureIDs(_ context.Context, fixtureIDs []string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := make(map[string]struct{}, len(fixtureIDs))
	for _, id := range fixtureIDs {
		wanted[id] = struct{}{}
	}
	deleted := 0
	for id, p := range r.predictions {
		if _, ok := wanted[p.FixtureID]; ok {
			delete(r.predictions, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *stubPredictionRepo) filter(keep func(prediction.Prediction) bool) []prediction.Prediction {
	out := make([]prediction.Prediction, 0, len(r.predictions))
	for _, p := range r.predictions {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type stubStandingsRepo struct {
	mu        sync.Mutex
	entries   map[string]standings.Entry
	snapshots []standings.RankingSnapshot
}

func newStubStandingsRepo() *stubStandingsRepo {
	return &stubStandingsRepo{entries: make(map[string]standings.Entry)}
}

func entryKey(orgID, season, userID string) string {
	return orgID + "|" + season + "|" + userID
}

func (r *stubStandingsRepo) Get(_ context.Context, orgID, season, userID string) (standings.Entry, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[entryKey(orgID, season, userID)]
	return entry, ok, nil
}

func (r *stubStandingsRepo) ListOrgs(_ context.Context, season string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, entry := range r.entries {
		if entry.Season != season {
			continue
		}
		if _, ok := seen[entry.OrgID]; ok {
			continue
		}
		seen[entry.OrgID] = struct{}{}
		out = append(out, entry.OrgID)
	}
	sort.Strings(out)
	return out, nil
}

func (r *stubStandingsRepo) ListByOrgSeason(_ context.Context, orgID, season string) ([]standings.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]standings.Entry, 0)
	for _, entry := range r.entries {
		if entry.OrgID == orgID && entry.Season == season {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (r *stubStandingsRepo) Upsert(_ context.Context, entry standings.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entryKey(entry.OrgID, entry.Season, entry.UserID)] = entry
	return nil
}

func (r *stubStandingsRepo) ReplaceByOrgSeason(_ context.Context, orgID, season string, entries []standings.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, entry := range r.entries {
		if entry.OrgID == orgID && entry.Season == season {
			delete(r.entries, key)
		}
	}
	for _, entry := range entries {
		r.entries[entryKey(entry.OrgID, entry.Season, entry.UserID)] = entry
	}
	return nil
}

func (r *stubStandingsRepo) UpsertRankingSnapshots(_ context.Context, snapshots []standings.RankingSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, snapshots...)
	return nil
}

func (r *stubStandingsRepo) ListRankingHistory(_ context.Context, orgID, season string) ([]standings.RankingSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]standings.RankingSnapshot, 0)
	for _, snap := range r.snapshots {
		if snap.OrgID == orgID && snap.Season == season {
			out = append(out, snap)
		}
	}
	return out, nil
}

type stubMatchProvider struct {
	mu      sync.Mutex
	matches map[int64]ExternalMatch
	teams   []ExternalTeam
	err     error
	calls   int
}

func (p *stubMatchProvider) MatchesByIDs(_ context.Context, ids []int64) ([]ExternalMatch, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	out := make([]ExternalMatch, 0, len(ids))
	for _, id := range ids {
		if m, ok := p.matches[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (p *stubMatchProvider) SeasonMatches(_ context.Context, season string) ([]ExternalMatch, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	out := make([]ExternalMatch, 0, len(p.matches))
	for _, m := range p.matches {
		if m.Season == season {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (p *stubMatchProvider) CompetitionTeams(_ context.Context, _ string) ([]ExternalTeam, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.teams, nil
}

type stubTeamRepo struct {
	mu    sync.Mutex
	teams map[int64]team.Team
}

func newStubTeamRepo() *stubTeamRepo {
	return &stubTeamRepo{teams: make(map[int64]team.Team)}
}

func (r *stubTeamRepo) ListAll(_ context.Context) ([]team.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]team.Team, 0, len(r.teams))
	for _, t := range r.teams {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalRef < out[j].ExternalRef })
	return out, nil
}

func (r *stubTeamRepo) GetByExternalRef(_ context.Context, externalRef int64) (team.Team, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teams[externalRef]
	return t, ok, nil
}

func (r *stubTeamRepo) UpsertMany(_ context.Context, teams []team.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range teams {
		r.teams[t.ExternalRef] = t
	}
	return nil
}

type capturedJob struct {
	Path    string
	Payload map[string]any
	Delay   time.Duration
	DedupID string
}

type stubJobQueue struct {
	mu   sync.Mutex
	jobs []capturedJob
	err  error
}

func (q *stubJobQueue) Enqueue(_ context.Context, path string, payload map[string]any, delay time.Duration, dedupID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, capturedJob{Path: path, Payload: payload, Delay: delay, DedupID: dedupID})
	return nil
}

func intPtr(v int) *int {
	return &v
}
