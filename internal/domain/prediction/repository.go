package prediction

import (
	"context"
	"time"
)

// Repository exposes prediction persistence to the scoring and
// recovery use cases.
type Repository interface {
	GetByID(ctx context.Context, id string) (Prediction, bool, error)
	ListByFixture(ctx context.Context, fixtureID string) ([]Prediction, error)
	ListByOrgSeason(ctx context.Context, orgID, season string) ([]Prediction, error)
	// ListUnscored returns predictions with no points yet, oldest
	// first, capped at limit.
	ListUnscored(ctx context.Context, limit int) ([]Prediction, error)
	Upsert(ctx context.Context, p Prediction) error
	// SetPoints records the awarded points for a prediction. The value
	// replaces any previous award.
	SetPoints(ctx context.Context, id string, points int, scoredAt time.Time) error
	DeleteByFixtureIDs(ctx context.Context, fixtureIDs []string) (int, error)
}
