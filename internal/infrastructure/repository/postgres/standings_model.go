package postgres

import (
	"time"

	"github.com/footyverse/prediction-league/internal/domain/standings"
)

type standingsTableModel struct {
	OrgID             string    `db:"org_id"`
	Season            string    `db:"season"`
	UserID            string    `db:"user_id"`
	Points            int       `db:"points"`
	CorrectScorelines int       `db:"correct_scorelines"`
	CorrectOutcomes   int       `db:"correct_outcomes"`
	PredictedFixtures int       `db:"predicted_fixtures"`
	CompletedFixtures int       `db:"completed_fixtures"`
	Rank              int       `db:"rank"`
	UpdatedAt         time.Time `db:"updated_at"`
}

func (m standingsTableModel) toDomain() standings.Entry {
	return standings.Entry{
		OrgID:             m.OrgID,
		Season:            m.Season,
		UserID:            m.UserID,
		Points:            m.Points,
		CorrectScorelines: m.CorrectScorelines,
		CorrectOutcomes:   m.CorrectOutcomes,
		PredictedFixtures: m.PredictedFixtures,
		CompletedFixtures: m.CompletedFixtures,
		Rank:              m.Rank,
		UpdatedAt:         m.UpdatedAt,
	}
}

func standingsEntryToModel(e standings.Entry) standingsTableModel {
	return standingsTableModel{
		OrgID:             e.OrgID,
		Season:            e.Season,
		UserID:            e.UserID,
		Points:            e.Points,
		CorrectScorelines: e.CorrectScorelines,
		CorrectOutcomes:   e.CorrectOutcomes,
		PredictedFixtures: e.PredictedFixtures,
		CompletedFixtures: e.CompletedFixtures,
		Rank:              e.Rank,
		UpdatedAt:         e.UpdatedAt.UTC(),
	}
}

type rankingSnapshotTableModel struct {
	OrgID      string    `db:"org_id"`
	Season     string    `db:"season"`
	UserID     string    `db:"user_id"`
	Gameweek   int       `db:"gameweek"`
	Rank       int       `db:"rank"`
	Points     int       `db:"points"`
	RecordedAt time.Time `db:"recorded_at"`
}

func (m rankingSnapshotTableModel) toDomain() standings.RankingSnapshot {
	return standings.RankingSnapshot{
		OrgID:      m.OrgID,
		Season:     m.Season,
		UserID:     m.UserID,
		Gameweek:   m.Gameweek,
		Rank:       m.Rank,
		Points:     m.Points,
		RecordedAt: m.RecordedAt,
	}
}

func rankingSnapshotToModel(s standings.RankingSnapshot) rankingSnapshotTableModel {
	return rankingSnapshotTableModel{
		OrgID:      s.OrgID,
		Season:     s.Season,
		UserID:     s.UserID,
		Gameweek:   s.Gameweek,
		Rank:       s.Rank,
		Points:     s.Points,
		RecordedAt: s.RecordedAt.UTC(),
	}
}
