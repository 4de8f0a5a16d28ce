package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/footyverse/prediction-league/internal/domain/standings"
)

type StandingsRepository struct {
	mu        sync.RWMutex
	entries   map[string]standings.Entry
	snapshots map[string]standings.RankingSnapshot
}

func NewStandingsRepository() *StandingsRepository {
	return &StandingsRepository{
		entries:   make(map[string]standings.Entry),
		snapshots: make(map[string]standings.RankingSnapshot),
	}
}

func entryKey(orgID, season, userID string) string {
	return orgID + "|" + season + "|" + userID
}

func snapshotKey(s standings.RankingSnapshot) string {
	return s.OrgID + "|" + s.Season + "|" + s.UserID + "|" + strconv.Itoa(s.Gameweek)
}

func (r *StandingsRepository) Get(_ context.Context, orgID, season, userID string) (standings.Entry, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[entryKey(orgID, season, userID)]
	return entry, ok, nil
}

func (r *StandingsRepository) ListOrgs(_ context.Context, season string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, entry := range r.entries {
		if entry.Season == season {
			seen[entry.OrgID] = struct{}{}
		}
	}
	orgs := make([]string, 0, len(seen))
	for org := range seen {
		orgs = append(orgs, org)
	}
	sort.Strings(orgs)
	return orgs, nil
}

func (r *StandingsRepository) ListByOrgSeason(_ context.Context, orgID, season string) ([]standings.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]standings.Entry, 0, 16)
	for _, entry := range r.entries {
		if entry.OrgID == orgID && entry.Season == season {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank < out[j].Rank
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func (r *StandingsRepository) Upsert(_ context.Context, entry standings.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entryKey(entry.OrgID, entry.Season, entry.UserID)] = entry
	return nil
}

func (r *StandingsRepository) ReplaceByOrgSeason(_ context.Context, orgID, season string, entries []standings.Entry) error {
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

func (r *StandingsRepository) UpsertRankingSnapshots(_ context.Context, snapshots []standings.RankingSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, snapshot := range snapshots {
		r.snapshots[snapshotKey(snapshot)] = snapshot
	}
	return nil
}

func (r *StandingsRepository) ListRankingHistory(_ context.Context, orgID, season string) ([]standings.RankingSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]standings.RankingSnapshot, 0, 16)
	for _, snapshot := range r.snapshots {
		if snapshot.OrgID == orgID && snapshot.Season == season {
			out = append(out, snapshot)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Gameweek != out[j].Gameweek {
			return out[i].Gameweek < out[j].Gameweek
		}
		if out[i].Rank != out[j].Rank {
			return out[i].Rank < out[j].Rank
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}
