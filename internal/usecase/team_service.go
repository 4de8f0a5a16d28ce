package usecase

import (
	"context"
	"fmt"

	"github.com/footyverse/prediction-league/internal/domain/team"
)

// TeamService is the read surface for the club catalog.
type TeamService struct {
	teams team.Repository
}

func NewTeamService(teams team.Repository) *TeamService {
	return &TeamService{
		teams: teams,
	}
}

func (s *TeamService) ListTeams(ctx context.Context) ([]team.Team, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.Team.ListTeams")
	defer span.End()

	teams, err := s.teams.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	return teams, nil
}
