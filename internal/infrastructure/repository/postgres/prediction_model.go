package postgres

import (
	"time"

	"github.com/footyverse/prediction-league/internal/domain/prediction"
)

type predictionTableModel struct {
	ID        string     `db:"id"`
	OrgID     string     `db:"org_id"`
	Season    string     `db:"season"`
	UserID    string     `db:"user_id"`
	FixtureID string     `db:"fixture_id"`
	Gameweek  int        `db:"gameweek"`
	HomeGoals int        `db:"home_goals"`
	AwayGoals int        `db:"away_goals"`
	Points    *int       `db:"points"`
	ScoredAt  *time.Time `db:"scored_at"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
}

func (m predictionTableModel) toDomain() prediction.Prediction {
	return prediction.Prediction{
		ID:        m.ID,
		OrgID:     m.OrgID,
		Season:    m.Season,
		UserID:    m.UserID,
		FixtureID: m.FixtureID,
		Gameweek:  m.Gameweek,
		HomeGoals: m.HomeGoals,
		AwayGoals: m.AwayGoals,
		Points:    m.Points,
		ScoredAt:  m.ScoredAt,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func predictionToModel(p prediction.Prediction) predictionTableModel {
	return predictionTableModel{
		ID:        p.ID,
		OrgID:     p.OrgID,
		Season:    p.Season,
		UserID:    p.UserID,
		FixtureID: p.FixtureID,
		Gameweek:  p.Gameweek,
		HomeGoals: p.HomeGoals,
		AwayGoals: p.AwayGoals,
		Points:    p.Points,
		ScoredAt:  p.ScoredAt,
		CreatedAt: p.CreatedAt.UTC(),
		UpdatedAt: p.UpdatedAt.UTC(),
	}
}

func predictionsToDomain(rows []predictionTableModel) []prediction.Prediction {
	out := make([]prediction.Prediction, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out
}
