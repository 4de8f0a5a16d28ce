package standings

import "context"

type Repository interface {
	Get(ctx context.Context, orgID, season, userID string) (Entry, bool, error)
	// ListOrgs returns the distinct organisation ids holding a table
	// for the season.
	ListOrgs(ctx context.Context, season string) ([]string, error)
	ListByOrgSeason(ctx context.Context, orgID, season string) ([]Entry, error)
	Upsert(ctx context.Context, entry Entry) error
	// ReplaceByOrgSeason swaps the whole table for an organisation's
	// season in one transaction.
	ReplaceByOrgSeason(ctx context.Context, orgID, season string, entries []Entry) error
	UpsertRankingSnapshots(ctx context.Context, snapshots []RankingSnapshot) error
	ListRankingHistory(ctx context.Context, orgID, season string) ([]RankingSnapshot, error)
}
