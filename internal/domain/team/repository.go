package team

import "context"

type Repository interface {
	ListAll(ctx context.Context) ([]Team, error)
	GetByExternalRef(ctx context.Context, externalRef int64) (Team, bool, error)
	UpsertMany(ctx context.Context, teams []Team) error
}
