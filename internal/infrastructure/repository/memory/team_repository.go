package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/footyverse/prediction-league/internal/domain/team"
)

type TeamRepository struct {
	mu    sync.RWMutex
	teams map[int64]team.Team
}

func NewTeamRepository(teams []team.Team) *TeamRepository {
	byRef := make(map[int64]team.Team, len(teams))
	for _, item := range teams {
		if item.ExternalRef > 0 {
			byRef[item.ExternalRef] = item
		}
	}
	return &TeamRepository{teams: byRef}
}

func (r *TeamRepository) ListAll(_ context.Context) ([]team.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]team.Team, 0, len(r.teams))
	for _, item := range r.teams {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *TeamRepository) GetByExternalRef(_ context.Context, externalRef int64) (team.Team, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.teams[externalRef]
	return item, ok, nil
}

func (r *TeamRepository) UpsertMany(_ context.Context, teams []team.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range teams {
		if item.ExternalRef <= 0 {
			continue
		}
		r.teams[item.ExternalRef] = item
	}
	return nil
}
