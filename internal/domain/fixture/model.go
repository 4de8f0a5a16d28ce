package fixture

import (
	"strings"
	"time"
)

// Status is the canonical lifecycle state of a fixture. Values mirror
// the upstream provider's vocabulary so reconciliation never needs a
// second mapping layer.
type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusTimed     Status = "TIMED"
	StatusInPlay    Status = "IN_PLAY"
	StatusPaused    Status = "PAUSED"
	StatusFinished  Status = "FINISHED"
	StatusPostponed Status = "POSTPONED"
	StatusSuspended Status = "SUSPENDED"
	StatusCancelled Status = "CANCELLED"
)

// Fixture is one match tracked by the engine. ExternalRef is the
// upstream provider's match id; zero means the fixture was created
// locally and can never be reconciled against the provider.
type Fixture struct {
	ID           string
	ExternalRef  int64
	Season       string
	Gameweek     int
	HomeTeamID   string
	AwayTeamID   string
	HomeTeamName string
	AwayTeamName string
	KickoffAt    time.Time
	HomeScore    *int
	AwayScore    *int
	Status       Status
	Multiplier   int
	CheckedAt    *time.Time
	UpdatedAt    time.Time
}

// Result is the provider-observed state applied to a fixture during
// reconciliation.
type Result struct {
	FixtureID string
	Status    Status
	HomeScore *int
	AwayScore *int
	CheckedAt time.Time
}

// HasScores reports whether both goal counts are present.
func (f Fixture) HasScores() bool {
	return f.HomeScore != nil && f.AwayScore != nil
}

func NormalizeStatus(value string) Status {
	status := strings.ToUpper(strings.TrimSpace(value))
	switch status {
	case "":
		return StatusScheduled
	case "LIVE", "HT", "1H", "2H", "ET", "PEN_LIVE":
		return StatusInPlay
	case "FT", "AET", "PEN":
		return StatusFinished
	case "ABANDONED":
		return StatusSuspended
	default:
		return Status(status)
	}
}

// IsPreMatch reports whether the fixture has not kicked off yet.
func IsPreMatch(status Status) bool {
	switch status {
	case StatusScheduled, StatusTimed:
		return true
	default:
		return false
	}
}

func IsLive(status Status) bool {
	switch status {
	case StatusInPlay, StatusPaused:
		return true
	default:
		return false
	}
}

func IsFinished(status Status) bool {
	return status == StatusFinished
}

// IsAbandonedLike covers states where the match will not produce a
// result on its original schedule.
func IsAbandonedLike(status Status) bool {
	switch status {
	case StatusPostponed, StatusSuspended, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further status change is expected.
func IsTerminal(status Status) bool {
	return IsFinished(status) || status == StatusCancelled
}
