package fixture

import (
	"context"
	"time"
)

// Repository is the persistence surface needed by the reconciliation
// and scoring use cases.
type Repository interface {
	GetByID(ctx context.Context, id string) (Fixture, bool, error)
	ListByIDs(ctx context.Context, ids []string) ([]Fixture, error)
	ListBySeason(ctx context.Context, season string) ([]Fixture, error)
	ListByGameweek(ctx context.Context, season string, gameweek int) ([]Fixture, error)
	ListByStatuses(ctx context.Context, statuses []Status) ([]Fixture, error)
	ListKickingOffBetween(ctx context.Context, from, to time.Time) ([]Fixture, error)
	// ListFinishedUnchecked returns finished fixtures whose last
	// provider check predates the kickoff-relative window, oldest first.
	ListFinishedUnchecked(ctx context.Context, since time.Time, limit int) ([]Fixture, error)
	// ListStalePreMatch returns pre-match fixtures whose kickoff fell
	// inside [from, to) and that were never moved off their original
	// status.
	ListStalePreMatch(ctx context.Context, from, to time.Time, limit int) ([]Fixture, error)
	ListFinishedMissingScores(ctx context.Context, since time.Time, limit int) ([]Fixture, error)
	UpsertMany(ctx context.Context, fixtures []Fixture) error
	ApplyResult(ctx context.Context, result Result) error
	SetGameweekMultiplier(ctx context.Context, season string, gameweek, multiplier int) (int, error)
	DeleteByGameweek(ctx context.Context, season string, gameweek int) (int, error)
}
