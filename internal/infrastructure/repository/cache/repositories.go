// Package cache wraps repositories with a read-through in-process
// cache. Writes invalidate the affected keys so readers never see
// tables older than the store TTL.
package cache

import (
	"context"
	"strconv"

	"github.com/footyverse/prediction-league/internal/domain/standings"
	"github.com/footyverse/prediction-league/internal/domain/team"
	basecache "github.com/footyverse/prediction-league/internal/platform/cache"
)

type TeamRepository struct {
	next  team.Repository
	cache *basecache.Store
}

func NewTeamRepository(next team.Repository, cache *basecache.Store) *TeamRepository {
	return &TeamRepository{next: next, cache: cache}
}

func (r *TeamRepository) ListAll(ctx context.Context) ([]team.Team, error) {
	v, err := r.cache.GetOrLoad(ctx, "team:list", func(ctx context.Context) (any, error) {
		items, err := r.next.ListAll(ctx)
		if err != nil {
			return nil, err
		}
		return append([]team.Team(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]team.Team)
	return append([]team.Team(nil), items...), nil
}

func (r *TeamRepository) GetByExternalRef(ctx context.Context, externalRef int64) (team.Team, bool, error) {
	key := teamByRefKey(externalRef)
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByExternalRef(ctx, externalRef)
		if err != nil {
			return nil, err
		}
		return cachedTeamByRef{value: item, exists: exists}, nil
	})
	if err != nil {
		return team.Team{}, false, err
	}

	cached, _ := v.(cachedTeamByRef)
	return cached.value, cached.exists, nil
}

func (r *TeamRepository) UpsertMany(ctx context.Context, teams []team.Team) error {
	if err := r.next.UpsertMany(ctx, teams); err != nil {
		return err
	}
	r.cache.Delete(ctx, "team:list")
	for _, item := range teams {
		r.cache.Delete(ctx, teamByRefKey(item.ExternalRef))
	}
	return nil
}

type cachedTeamByRef struct {
	value  team.Team
	exists bool
}

func teamByRefKey(externalRef int64) string {
	return "team:ref:" + int64Key(externalRef)
}

// StandingsRepository caches the hot read paths, the org table and
// the ranking history. Point reads and writes pass through and
// invalidate.
type StandingsRepository struct {
	next  standings.Repository
	cache *basecache.Store
}

func NewStandingsRepository(next standings.Repository, cache *basecache.Store) *StandingsRepository {
	return &StandingsRepository{next: next, cache: cache}
}

func (r *StandingsRepository) Get(ctx context.Context, orgID, season, userID string) (standings.Entry, bool, error) {
	return r.next.Get(ctx, orgID, season, userID)
}

func (r *StandingsRepository) ListOrgs(ctx context.Context, season string) ([]string, error) {
	return r.next.ListOrgs(ctx, season)
}

func (r *StandingsRepository) ListByOrgSeason(ctx context.Context, orgID, season string) ([]standings.Entry, error) {
	key := tableKey(orgID, season)
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := r.next.ListByOrgSeason(ctx, orgID, season)
		if err != nil {
			return nil, err
		}
		return append([]standings.Entry(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]standings.Entry)
	return append([]standings.Entry(nil), items...), nil
}

func (r *StandingsRepository) Upsert(ctx context.Context, entry standings.Entry) error {
	if err := r.next.Upsert(ctx, entry); err != nil {
		return err
	}
	r.cache.Delete(ctx, tableKey(entry.OrgID, entry.Season))
	return nil
}

func (r *StandingsRepository) ReplaceByOrgSeason(ctx context.Context, orgID, season string, entries []standings.Entry) error {
	if err := r.next.ReplaceByOrgSeason(ctx, orgID, season, entries); err != nil {
		return err
	}
	r.cache.Delete(ctx, tableKey(orgID, season))
	return nil
}

func (r *StandingsRepository) UpsertRankingSnapshots(ctx context.Context, snapshots []standings.RankingSnapshot) error {
	if err := r.next.UpsertRankingSnapshots(ctx, snapshots); err != nil {
		return err
	}
	for _, snapshot := range snapshots {
		r.cache.Delete(ctx, historyKey(snapshot.OrgID, snapshot.Season))
	}
	return nil
}

func (r *StandingsRepository) ListRankingHistory(ctx context.Context, orgID, season string) ([]standings.RankingSnapshot, error) {
	key := historyKey(orgID, season)
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := r.next.ListRankingHistory(ctx, orgID, season)
		if err != nil {
			return nil, err
		}
		return append([]standings.RankingSnapshot(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]standings.RankingSnapshot)
	return append([]standings.RankingSnapshot(nil), items...), nil
}

func tableKey(orgID, season string) string {
	return "standings:table:" + orgID + ":" + season
}

func historyKey(orgID, season string) string {
	return "standings:history:" + orgID + ":" + season
}

func int64Key(value int64) string {
	return strconv.FormatInt(value, 10)
}
