package postgres

import (
	"time"

	"github.com/footyverse/prediction-league/internal/domain/fixture"
)

type fixtureTableModel struct {
	ID           string     `db:"id"`
	ExternalRef  int64      `db:"external_ref"`
	Season       string     `db:"season"`
	Gameweek     int        `db:"gameweek"`
	HomeTeamID   string     `db:"home_team_id"`
	AwayTeamID   string     `db:"away_team_id"`
	HomeTeamName string     `db:"home_team_name"`
	AwayTeamName string     `db:"away_team_name"`
	KickoffAt    time.Time  `db:"kickoff_at"`
	HomeScore    *int       `db:"home_score"`
	AwayScore    *int       `db:"away_score"`
	Status       string     `db:"status"`
	Multiplier   int        `db:"multiplier"`
	CheckedAt    *time.Time `db:"checked_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

func (m fixtureTableModel) toDomain() fixture.Fixture {
	return fixture.Fixture{
		ID:           m.ID,
		ExternalRef:  m.ExternalRef,
		Season:       m.Season,
		Gameweek:     m.Gameweek,
		HomeTeamID:   m.HomeTeamID,
		AwayTeamID:   m.AwayTeamID,
		HomeTeamName: m.HomeTeamName,
		AwayTeamName: m.AwayTeamName,
		KickoffAt:    m.KickoffAt,
		HomeScore:    m.HomeScore,
		AwayScore:    m.AwayScore,
		Status:       fixture.Status(m.Status),
		Multiplier:   m.Multiplier,
		CheckedAt:    m.CheckedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func fixtureToModel(f fixture.Fixture) fixtureTableModel {
	return fixtureTableModel{
		ID:           f.ID,
		ExternalRef:  f.ExternalRef,
		Season:       f.Season,
		Gameweek:     f.Gameweek,
		HomeTeamID:   f.HomeTeamID,
		AwayTeamID:   f.AwayTeamID,
		HomeTeamName: f.HomeTeamName,
		AwayTeamName: f.AwayTeamName,
		KickoffAt:    f.KickoffAt.UTC(),
		HomeScore:    f.HomeScore,
		AwayScore:    f.AwayScore,
		Status:       string(f.Status),
		Multiplier:   f.Multiplier,
		CheckedAt:    f.CheckedAt,
		UpdatedAt:    f.UpdatedAt.UTC(),
	}
}

func fixturesToDomain(rows []fixtureTableModel) []fixture.Fixture {
	out := make([]fixture.Fixture, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out
}
