package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/footyverse/prediction-league/internal/domain/fixture"
)

// FixtureRepository is the in-memory fixture store used when the
// engine runs without Postgres.
type FixtureRepository struct {
	mu       sync.RWMutex
	fixtures map[string]fixture.Fixture
}

func NewFixtureRepository(fixtures []fixture.Fixture) *FixtureRepository {
	byID := make(map[string]fixture.Fixture, len(fixtures))
	for _, item := range fixtures {
		byID[item.ID] = item
	}
	return &FixtureRepository{fixtures: byID}
}

func (r *FixtureRepository) GetByID(_ context.Context, id string) (fixture.Fixture, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.fixtures[id]
	return f, ok, nil
}

func (r *FixtureRepository) ListByIDs(_ context.Context, ids []string) ([]fixture.Fixture, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]fixture.Fixture, 0, len(ids))
	for _, id := range ids {
		if f, ok := r.fixtures[id]; ok {
			out = append(out, f)
		}
	}
	sortFixtures(out)
	return out, nil
}

func (r *FixtureRepository) ListBySeason(_ context.Context, season string) ([]fixture.Fixture, error) {
	return r.list(func(f fixture.Fixture) bool {
		return f.Season == season
	}, 0), nil
}

func (r *FixtureRepository) ListByGameweek(_ context.Context, season string, gameweek int) ([]fixture.Fixture, error) {
	return r.list(func(f fixture.Fixture) bool {
		return f.Season == season && f.Gameweek == gameweek
	}, 0), nil
}

func (r *FixtureRepository) ListByStatuses(_ context.Context, statuses []fixture.Status) ([]fixture.Fixture, error) {
	wanted := make(map[fixture.Status]struct{}, len(statuses))
	for _, status := range statuses {
		wanted[status] = struct{}{}
	}
	return r.list(func(f fixture.Fixture) bool {
		_, ok := wanted[f.Status]
		return ok
	}, 0), nil
}

func (r *FixtureRepository) ListKickingOffBetween(_ context.Context, from, to time.Time) ([]fixture.Fixture, error) {
	return r.list(func(f fixture.Fixture) bool {
		return !f.KickoffAt.Before(from) && f.KickoffAt.Before(to)
	}, 0), nil
}

func (r *FixtureRepository) ListFinishedUnchecked(_ context.Context, since time.Time, limit int) ([]fixture.Fixture, error) {
	return r.list(func(f fixture.Fixture) bool {
		return fixture.IsFinished(f.Status) && f.KickoffAt.After(since) && f.CheckedAt == nil
	}, limit), nil
}

func (r *FixtureRepository) ListStalePreMatch(_ context.Context, from, to time.Time, limit int) ([]fixture.Fixture, error) {
	return r.list(func(f fixture.Fixture) bool {
		return fixture.IsPreMatch(f.Status) && !f.KickoffAt.Before(from) && f.KickoffAt.Before(to)
	}, limit), nil
}

func (r *FixtureRepository) ListFinishedMissingScores(_ context.Context, since time.Time, limit int) ([]fixture.Fixture, error) {
	return r.list(func(f fixture.Fixture) bool {
		return fixture.IsFinished(f.Status) && !f.HasScores() && f.KickoffAt.After(since)
	}, limit), nil
}

func (r *FixtureRepository) UpsertMany(_ context.Context, fixtures []fixture.Fixture) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range fixtures {
		r.fixtures[f.ID] = f
	}
	return nil
}

func (r *FixtureRepository) ApplyResult(_ context.Context, result fixture.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.fixtures[result.FixtureID]
	if !ok {
		return nil
	}
	f.Status = result.Status
	f.HomeScore = result.HomeScore
	f.AwayScore = result.AwayScore
	checkedAt := result.CheckedAt
	f.CheckedAt = &checkedAt
	f.UpdatedAt = result.CheckedAt
	r.fixtures[result.FixtureID] = f
	return nil
}

func (r *FixtureRepository) SetGameweekMultiplier(_ context.Context, season string, gameweek, multiplier int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	affected := 0
	for id, f := range r.fixtures {
		if f.Season == season && f.Gameweek == gameweek {
			f.Multiplier = multiplier
			r.fixtures[id] = f
			affected++
		}
	}
	return affected, nil
}

func (r *FixtureRepository) DeleteByGameweek(_ context.Context, season string, gameweek int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := 0
	for id, f := range r.fixtures {
		if f.Season == season && f.Gameweek == gameweek {
			delete(r.fixtures, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *FixtureRepository) list(match func(fixture.Fixture) bool, limit int) []fixture.Fixture {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]fixture.Fixture, 0, 16)
	for _, f := range r.fixtures {
		if match(f) {
			out = append(out, f)
		}
	}
	sortFixtures(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func sortFixtures(fixtures []fixture.Fixture) {
	sort.Slice(fixtures, func(i, j int) bool {
		if !fixtures[i].KickoffAt.Equal(fixtures[j].KickoffAt) {
			return fixtures[i].KickoffAt.Before(fixtures[j].KickoffAt)
		}
		return fixtures[i].ID < fixtures[j].ID
	})
}
