package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/footyverse/prediction-league/internal/domain/prediction"
	qb "github.com/footyverse/prediction-league/internal/platform/querybuilder"
)

type PredictionRepository struct {
	db *sqlx.DB
}

func NewPredictionRepository(db *sqlx.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

func (r *PredictionRepository) GetByID(ctx context.Context, id string) (prediction.Prediction, bool, error) {
	query, args, err := qb.Select("*").From("predictions").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return prediction.Prediction{}, false, fmt.Errorf("build get prediction query: %w", err)
	}

	var row predictionTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return prediction.Prediction{}, false, nil
		}
		return prediction.Prediction{}, false, fmt.Errorf("get prediction id=%s: %w", id, err)
	}
	return row.toDomain(), true, nil
}

func (r *PredictionRepository) ListByFixture(ctx context.Context, fixtureID string) ([]prediction.Prediction, error) {
	query, args, err := qb.Select("*").From("predictions").
		Where(qb.Eq("fixture_id", fixtureID)).
		OrderBy("org_id", "user_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list predictions by fixture query: %w", err)
	}

	var rows []predictionTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list predictions by fixture: %w", err)
	}
	return predictionsToDomain(rows), nil
}

func (r *PredictionRepository) ListByOrgSeason(ctx context.Context, orgID, season string) ([]prediction.Prediction, error) {
	query, args, err := qb.Select("*").From("predictions").
		Where(
			qb.Eq("org_id", orgID),
			qb.Eq("season", season),
		).
		OrderBy("gameweek", "fixture_id", "user_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list predictions by org season query: %w", err)
	}

	var rows []predictionTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list predictions by org season: %w", err)
	}
	return predictionsToDomain(rows), nil
}

func (r *PredictionRepository) ListUnscored(ctx context.Context, limit int) ([]prediction.Prediction, error) {
	query, args, err := qb.Select("*").From("predictions").
		Where(qb.IsNull("points")).
		OrderBy("created_at", "id").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list unscored predictions query: %w", err)
	}

	var rows []predictionTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list unscored predictions: %w", err)
	}
	return predictionsToDomain(rows), nil
}

func (r *PredictionRepository) Upsert(ctx context.Context, p prediction.Prediction) error {
	query, args, err := qb.InsertModel("predictions", predictionToModel(p), `ON CONFLICT (org_id, fixture_id, user_id)
DO UPDATE SET
    home_goals = EXCLUDED.home_goals,
    away_goals = EXCLUDED.away_goals,
    points = EXCLUDED.points,
    scored_at = EXCLUDED.scored_at,
    updated_at = EXCLUDED.updated_at`)
	if err != nil {
		return fmt.Errorf("build upsert prediction query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert prediction id=%s: %w", p.ID, err)
	}
	return nil
}

func (r *PredictionRepository) SetPoints(ctx context.Context, id string, points int, scoredAt time.Time) error {
	query, args, err := qb.Update("predictions").
		Set("points", points).
		Set("scored_at", scoredAt.UTC()).
		Set("updated_at", scoredAt.UTC()).
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build set prediction points query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set prediction points id=%s: %w", id, err)
	}
	return nil
}

func (r *PredictionRepository) DeleteByFixtureIDs(ctx context.Context, fixtureIDs []string) (int, error) {
	if len(fixtureIDs) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In("DELETE FROM predictions WHERE fixture_id IN (?)", fixtureIDs)
	if err != nil {
		return 0, fmt.Errorf("build delete predictions query: %w", err)
	}
	query = r.db.Rebind(query)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete predictions by fixtures: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete predictions rows affected: %w", err)
	}
	return int(affected), nil
}
