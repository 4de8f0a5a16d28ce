package prediction

import "time"

// Outcome is the coarse result of a match: home win, draw, or away win.
type Outcome string

const (
	OutcomeHome Outcome = "HOME"
	OutcomeDraw Outcome = "DRAW"
	OutcomeAway Outcome = "AWAY"
)

// OutcomeOf derives the outcome from a scoreline.
func OutcomeOf(homeGoals, awayGoals int) Outcome {
	switch {
	case homeGoals > awayGoals:
		return OutcomeHome
	case homeGoals < awayGoals:
		return OutcomeAway
	default:
		return OutcomeDraw
	}
}

// Prediction is one member's scoreline guess for a fixture. Points is
// nil until the fixture finishes and the prediction is scored; scoring
// overwrites Points rather than adding to it, so a fixture may be
// rescored safely.
type Prediction struct {
	ID        string
	OrgID     string
	Season    string
	UserID    string
	FixtureID string
	Gameweek  int
	HomeGoals int
	AwayGoals int
	Points    *int
	ScoredAt  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PredictedOutcome is the outcome implied by the predicted scoreline.
func (p Prediction) PredictedOutcome() Outcome {
	return OutcomeOf(p.HomeGoals, p.AwayGoals)
}
