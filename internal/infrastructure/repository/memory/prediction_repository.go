package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/footyverse/prediction-league/internal/domain/prediction"
)

type PredictionRepository struct {
	mu          sync.RWMutex
	predictions map[string]prediction.Prediction
}

func NewPredictionRepository() *PredictionRepository {
	return &PredictionRepository{predictions: make(map[string]prediction.Prediction)}
}

func (r *PredictionRepository) GetByID(_ context.Context, id string) (prediction.Prediction, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.predictions[id]
	return p, ok, nil
}

func (r *PredictionRepository) ListByFixture(_ context.Context, fixtureID string) ([]prediction.Prediction, error) {
	return r.list(func(p prediction.Prediction) bool {
		return p.FixtureID == fixtureID
	}, 0), nil
}

func (r *PredictionRepository) ListByOrgSeason(_ context.Context, orgID, season string) ([]prediction.Prediction, error) {
	return r.list(func(p prediction.Prediction) bool {
		return p.OrgID == orgID && p.Season == season
	}, 0), nil
}

func (r *PredictionRepository) ListUnscored(_ context.Context, limit int) ([]prediction.Prediction, error) {
	return r.list(func(p prediction.Prediction) bool {
		return p.Points == nil
	}, limit), nil
}

func (r *PredictionRepository) Upsert(_ context.Context, p prediction.Prediction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.predictions[p.ID] = p
	return nil
}

func (r *PredictionRepository) SetPoints(_ context.Context, id string, points int, scoredAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.predictions[id]
	if !ok {
		return nil
	}
	p.Points = &points
	p.ScoredAt = &scoredAt
	p.UpdatedAt = scoredAt
	r.predictions[id] = p
	return nil
}

func (r *PredictionRepository) DeleteByFixtureIDs(_ context.Context, fixtureIDs []string) (int, error) {
	targets := make(map[string]struct{}, len(fixtureIDs))
	for _, id := range fixtureIDs {
		targets[id] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := 0
	for id, p := range r.predictions {
		if _, ok := targets[p.FixtureID]; ok {
			delete(r.predictions, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *PredictionRepository) list(match func(prediction.Prediction) bool, limit int) []prediction.Prediction {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]prediction.Prediction, 0, 16)
	for _, p := range r.predictions {
		if match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
