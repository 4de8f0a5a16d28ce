package usecase

import (
	"context"
	"time"
)

// ExternalMatch is one match as reported by the upstream data
// provider. Scores are nil until the provider publishes them.
type ExternalMatch struct {
	ID         int64
	Season     string
	Matchday   int
	UTCDate    time.Time
	Status     string
	HomeTeamID int64
	HomeTeam   string
	AwayTeamID int64
	AwayTeam   string
	HomeScore  *int
	AwayScore  *int
}

// ExternalTeam is one club as reported by the upstream data provider.
type ExternalTeam struct {
	ID        int64
	Name      string
	ShortName string
	Tla       string
	CrestURL  string
}

// MatchProvider is the slice of the upstream football-data API that
// the engine consumes.
type MatchProvider interface {
	// MatchesByIDs resolves provider matches by their ids; missing ids
	// are silently absent from the result.
	MatchesByIDs(ctx context.Context, ids []int64) ([]ExternalMatch, error)
	// SeasonMatches lists every match of the tracked competition for
	// one season.
	SeasonMatches(ctx context.Context, season string) ([]ExternalMatch, error)
	// CompetitionTeams lists the clubs of the tracked competition.
	CompetitionTeams(ctx context.Context, season string) ([]ExternalTeam, error)
}

// JobQueue enqueues delayed self-callbacks for background work.
type JobQueue interface {
	Enqueue(ctx context.Context, path string, payload map[string]any, delay time.Duration, deduplicationID string) error
}
