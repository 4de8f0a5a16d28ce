package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/footyverse/prediction-league/internal/domain/fixture"
	qb "github.com/footyverse/prediction-league/internal/platform/querybuilder"
)

type FixtureRepository struct {
	db *sqlx.DB
}

func NewFixtureRepository(db *sqlx.DB) *FixtureRepository {
	return &FixtureRepository{db: db}
}

func (r *FixtureRepository) GetByID(ctx context.Context, id string) (fixture.Fixture, bool, error) {
	query, args, err := qb.Select("*").From("fixtures").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return fixture.Fixture{}, false, fmt.Errorf("build get fixture query: %w", err)
	}

	var row fixtureTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return fixture.Fixture{}, false, nil
		}
		return fixture.Fixture{}, false, fmt.Errorf("get fixture id=%s: %w", id, err)
	}
	return row.toDomain(), true, nil
}

func (r *FixtureRepository) ListByIDs(ctx context.Context, ids []string) ([]fixture.Fixture, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	values := make([]any, 0, len(ids))
	for _, id := range ids {
		values = append(values, id)
	}

	query, args, err := qb.Select("*").From("fixtures").
		Where(qb.In("id", values)).
		OrderBy("kickoff_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list fixtures by ids query: %w", err)
	}

	var rows []fixtureTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list fixtures by ids: %w", err)
	}
	return fixturesToDomain(rows), nil
}

func (r *FixtureRepository) ListBySeason(ctx context.Context, season string) ([]fixture.Fixture, error) {
	query, args, err := qb.Select("*").From("fixtures").
		Where(qb.Eq("season", season)).
		OrderBy("gameweek", "kickoff_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list fixtures by season query: %w", err)
	}

	var rows []fixtureTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list fixtures by season: %w", err)
	}
	return fixturesToDomain(rows), nil
}

func (r *FixtureRepository) ListByGameweek(ctx context.Context, season string, gameweek int) ([]fixture.Fixture, error) {
	query, args, err := qb.Select("*").From("fixtures").
		Where(
			qb.Eq("season", season),
			qb.Eq("gameweek", gameweek),
		).
		OrderBy("kickoff_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list fixtures by gameweek query: %w", err)
	}

	var rows []fixtureTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list fixtures by gameweek: %w", err)
	}
	return fixturesToDomain(rows), nil
}

func (r *FixtureRepository) ListByStatuses(ctx context.Context, statuses []fixture.Status) ([]fixture.Fixture, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	values := make([]any, 0, len(statuses))
	for _, status := range statuses {
		values = append(values, string(status))
	}

	query, args, err := qb.Select("*").From("fixtures").
		Where(qb.In("status", values)).
		OrderBy("kickoff_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list fixtures by statuses query: %w", err)
	}

	var rows []fixtureTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list fixtures by statuses: %w", err)
	}
	return fixturesToDomain(rows), nil
}

func (r *FixtureRepository) ListKickingOffBetween(ctx context.Context, from, to time.Time) ([]fixture.Fixture, error) {
	query, args, err := qb.Select("*").From("fixtures").
		Where(
			qb.Expr("kickoff_at >= ?", from.UTC()),
			qb.Expr("kickoff_at < ?", to.UTC()),
		).
		OrderBy("kickoff_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list fixtures kicking off query: %w", err)
	}

	var rows []fixtureTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list fixtures kicking off between: %w", err)
	}
	return fixturesToDomain(rows), nil
}

func (r *FixtureRepository) ListFinishedUnchecked(ctx context.Context, since time.Time, limit int) ([]fixture.Fixture, error) {
	query, args, err := qb.Select("*").From("fixtures").
		Where(
			qb.In("status", []any{string(fixture.StatusFinished)}),
			qb.Expr("kickoff_at > ?", since.UTC()),
			qb.IsNull("checked_at"),
		).
		OrderBy("kickoff_at", "id").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list finished unchecked query: %w", err)
	}

	var rows []fixtureTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list finished unchecked fixtures: %w", err)
	}
	return fixturesToDomain(rows), nil
}

func (r *FixtureRepository) ListStalePreMatch(ctx context.Context, from, to time.Time, limit int) ([]fixture.Fixture, error) {
	statuses := []any{
		string(fixture.StatusScheduled),
		string(fixture.StatusTimed),
	}
	query, args, err := qb.Select("*").From("fixtures").
		Where(
			qb.In("status", statuses),
			qb.Expr("kickoff_at >= ?", from.UTC()),
			qb.Expr("kickoff_at < ?", to.UTC()),
		).
		OrderBy("kickoff_at", "id").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list stale pre-match query: %w", err)
	}

	var rows []fixtureTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list stale pre-match fixtures: %w", err)
	}
	return fixturesToDomain(rows), nil
}

func (r *FixtureRepository) ListFinishedMissingScores(ctx context.Context, since time.Time, limit int) ([]fixture.Fixture, error) {
	query, args, err := qb.Select("*").From("fixtures").
		Where(
			qb.In("status", []any{string(fixture.StatusFinished)}),
			qb.Expr("kickoff_at > ?", since.UTC()),
			qb.Expr("(home_score IS NULL OR away_score IS NULL)"),
		).
		OrderBy("kickoff_at", "id").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list finished missing scores query: %w", err)
	}

	var rows []fixtureTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list finished fixtures missing scores: %w", err)
	}
	return fixturesToDomain(rows), nil
}

func (r *FixtureRepository) UpsertMany(ctx context.Context, fixtures []fixture.Fixture) error {
	if len(fixtures) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert fixtures tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, f := range fixtures {
		query, args, err := qb.InsertModel("fixtures", fixtureToModel(f), `ON CONFLICT (id)
DO UPDATE SET
    external_ref = EXCLUDED.external_ref,
    season = EXCLUDED.season,
    gameweek = EXCLUDED.gameweek,
    home_team_id = EXCLUDED.home_team_id,
    away_team_id = EXCLUDED.away_team_id,
    home_team_name = EXCLUDED.home_team_name,
    away_team_name = EXCLUDED.away_team_name,
    kickoff_at = EXCLUDED.kickoff_at,
    home_score = EXCLUDED.home_score,
    away_score = EXCLUDED.away_score,
    status = EXCLUDED.status,
    multiplier = EXCLUDED.multiplier,
    checked_at = EXCLUDED.checked_at,
    updated_at = EXCLUDED.updated_at`)
		if err != nil {
			return fmt.Errorf("build upsert fixture query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert fixture id=%s: %w", f.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert fixtures: %w", err)
	}
	return nil
}

func (r *FixtureRepository) ApplyResult(ctx context.Context, result fixture.Result) error {
	query, args, err := qb.Update("fixtures").
		Set("status", string(result.Status)).
		Set("home_score", result.HomeScore).
		Set("away_score", result.AwayScore).
		Set("checked_at", result.CheckedAt.UTC()).
		Set("updated_at", result.CheckedAt.UTC()).
		Where(qb.Eq("id", result.FixtureID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build apply fixture result query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("apply fixture result id=%s: %w", result.FixtureID, err)
	}
	return nil
}

func (r *FixtureRepository) SetGameweekMultiplier(ctx context.Context, season string, gameweek, multiplier int) (int, error) {
	query, args, err := qb.Update("fixtures").
		Set("multiplier", multiplier).
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("season", season),
			qb.Eq("gameweek", gameweek),
		).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build set gameweek multiplier query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("set gameweek multiplier season=%s gameweek=%d: %w", season, gameweek, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("set gameweek multiplier rows affected: %w", err)
	}
	return int(affected), nil
}

func (r *FixtureRepository) DeleteByGameweek(ctx context.Context, season string, gameweek int) (int, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM fixtures WHERE season = $1 AND gameweek = $2",
		season, gameweek)
	if err != nil {
		return 0, fmt.Errorf("delete fixtures season=%s gameweek=%d: %w", season, gameweek, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete fixtures rows affected: %w", err)
	}
	return int(affected), nil
}
