package postgres

import "github.com/footyverse/prediction-league/internal/domain/team"

type teamTableModel struct {
	ID          string `db:"id"`
	ExternalRef int64  `db:"external_ref"`
	Name        string `db:"name"`
	ShortName   string `db:"short_name"`
	Tla         string `db:"tla"`
	CrestURL    string `db:"crest_url"`
}

func (m teamTableModel) toDomain() team.Team {
	return team.Team{
		ID:          m.ID,
		ExternalRef: m.ExternalRef,
		Name:        m.Name,
		ShortName:   m.ShortName,
		Tla:         m.Tla,
		CrestURL:    m.CrestURL,
	}
}

func teamToModel(t team.Team) teamTableModel {
	return teamTableModel{
		ID:          t.ID,
		ExternalRef: t.ExternalRef,
		Name:        t.Name,
		ShortName:   t.ShortName,
		Tla:         t.Tla,
		CrestURL:    t.CrestURL,
	}
}
