package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/footyverse/prediction-league/internal/domain/standings"
	qb "github.com/footyverse/prediction-league/internal/platform/querybuilder"
)

const standingsUpsertSuffix = `ON CONFLICT (org_id, season, user_id)
DO UPDATE SET
    points = EXCLUDED.points,
    correct_scorelines = EXCLUDED.correct_scorelines,
    correct_outcomes = EXCLUDED.correct_outcomes,
    predicted_fixtures = EXCLUDED.predicted_fixtures,
    completed_fixtures = EXCLUDED.completed_fixtures,
    rank = EXCLUDED.rank,
    updated_at = EXCLUDED.updated_at`

type StandingsRepository struct {
	db *sqlx.DB
}

func NewStandingsRepository(db *sqlx.DB) *StandingsRepository {
	return &StandingsRepository{db: db}
}

func (r *StandingsRepository) Get(ctx context.Context, orgID, season, userID string) (standings.Entry, bool, error) {
	query, args, err := qb.Select("*").From("standings").
		Where(
			qb.Eq("org_id", orgID),
			qb.Eq("season", season),
			qb.Eq("user_id", userID),
		).
		ToSQL()
	if err != nil {
		return standings.Entry{}, false, fmt.Errorf("build get standings entry query: %w", err)
	}

	var row standingsTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return standings.Entry{}, false, nil
		}
		return standings.Entry{}, false, fmt.Errorf("get standings entry org=%s user=%s: %w", orgID, userID, err)
	}
	return row.toDomain(), true, nil
}

func (r *StandingsRepository) ListOrgs(ctx context.Context, season string) ([]string, error) {
	query, args, err := qb.Select("DISTINCT org_id").From("standings").
		Where(qb.Eq("season", season)).
		OrderBy("org_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list standings orgs query: %w", err)
	}

	var orgs []string
	if err := r.db.SelectContext(ctx, &orgs, query, args...); err != nil {
		return nil, fmt.Errorf("list standings orgs: %w", err)
	}
	return orgs, nil
}

func (r *StandingsRepository) ListByOrgSeason(ctx context.Context, orgID, season string) ([]standings.Entry, error) {
	query, args, err := qb.Select("*").From("standings").
		Where(
			qb.Eq("org_id", orgID),
			qb.Eq("season", season),
		).
		OrderBy("rank", "user_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list standings query: %w", err)
	}

	var rows []standingsTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list standings org=%s season=%s: %w", orgID, season, err)
	}

	out := make([]standings.Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *StandingsRepository) Upsert(ctx context.Context, entry standings.Entry) error {
	query, args, err := qb.InsertModel("standings", standingsEntryToModel(entry), standingsUpsertSuffix)
	if err != nil {
		return fmt.Errorf("build upsert standings entry query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert standings entry org=%s user=%s: %w", entry.OrgID, entry.UserID, err)
	}
	return nil
}

func (r *StandingsRepository) ReplaceByOrgSeason(ctx context.Context, orgID, season string, entries []standings.Entry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace standings tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM standings WHERE org_id = $1 AND season = $2",
		orgID, season); err != nil {
		return fmt.Errorf("clear standings org=%s season=%s: %w", orgID, season, err)
	}

	for _, entry := range entries {
		query, args, err := qb.InsertModel("standings", standingsEntryToModel(entry), standingsUpsertSuffix)
		if err != nil {
			return fmt.Errorf("build insert standings entry query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert standings entry org=%s user=%s: %w", entry.OrgID, entry.UserID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace standings: %w", err)
	}
	return nil
}

func (r *StandingsRepository) UpsertRankingSnapshots(ctx context.Context, snapshots []standings.RankingSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert ranking snapshots tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, snapshot := range snapshots {
		query, args, err := qb.InsertModel("ranking_snapshots", rankingSnapshotToModel(snapshot), `ON CONFLICT (org_id, season, user_id, gameweek)
DO UPDATE SET
    rank = EXCLUDED.rank,
    points = EXCLUDED.points,
    recorded_at = EXCLUDED.recorded_at`)
		if err != nil {
			return fmt.Errorf("build upsert ranking snapshot query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert ranking snapshot org=%s user=%s gameweek=%d: %w",
				snapshot.OrgID, snapshot.UserID, snapshot.Gameweek, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert ranking snapshots: %w", err)
	}
	return nil
}

func (r *StandingsRepository) ListRankingHistory(ctx context.Context, orgID, season string) ([]standings.RankingSnapshot, error) {
	query, args, err := qb.Select("*").From("ranking_snapshots").
		Where(
			qb.Eq("org_id", orgID),
			qb.Eq("season", season),
		).
		OrderBy("gameweek", "rank", "user_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list ranking history query: %w", err)
	}

	var rows []rankingSnapshotTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list ranking history org=%s season=%s: %w", orgID, season, err)
	}

	out := make([]standings.RankingSnapshot, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
