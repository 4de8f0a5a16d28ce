package standings

import "time"

// Entry is one member's row in an organisation's league table for a
// season. Counters are maintained incrementally as fixtures are
// scored and must always match a full recompute from predictions.
type Entry struct {
	OrgID             string
	Season            string
	UserID            string
	Points            int
	CorrectScorelines int
	CorrectOutcomes   int
	PredictedFixtures int
	CompletedFixtures int
	Rank              int
	UpdatedAt         time.Time
}

// RankingSnapshot captures a member's rank and points at the end of a
// completed gameweek, for the ranking-history chart.
type RankingSnapshot struct {
	OrgID      string
	Season     string
	UserID     string
	Gameweek   int
	Rank       int
	Points     int
	RecordedAt time.Time
}
