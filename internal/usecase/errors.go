package usecase

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	// ErrConflict covers operations rejected because of existing state,
	// such as changing multipliers after predictions were scored.
	ErrConflict = errors.New("conflict with existing state")
)

// Engine-specific refinements. Each wraps one of the broad sentinels
// above so errors.Is checks and the HTTP status mapping keep matching.
var (
	// ErrPredictionLocked rejects submissions once the fixture's
	// prediction window has closed.
	ErrPredictionLocked = fmt.Errorf("%w: prediction window closed", ErrConflict)
	// ErrFixtureNotFinished rejects scoring a fixture that is marked
	// finished but carries no scores, which is a caller bug.
	ErrFixtureNotFinished = fmt.Errorf("%w: fixture is not finished with scores", ErrConflict)
	// ErrMissingExternalRef flags records that cannot be matched to the
	// provider because no external reference exists.
	ErrMissingExternalRef = fmt.Errorf("%w: missing external match reference", ErrInvalidInput)
)
