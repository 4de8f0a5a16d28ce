package usecase

// ScoreClass is how a prediction compares against the final scoreline.
type ScoreClass string

const (
	ScoreExact   ScoreClass = "exact"
	ScoreOutcome ScoreClass = "outcome"
	ScoreMiss    ScoreClass = "miss"
)

const (
	exactBasePoints   = 3
	outcomeBasePoints = 1
)

// ClassifyPrediction compares a predicted scoreline with the final
// one. An exact scoreline is also a correct outcome but is classified
// only as exact.
func ClassifyPrediction(predHome, predAway, finalHome, finalAway int) ScoreClass {
	if predHome == finalHome && predAway == finalAway {
		return ScoreExact
	}
	if sameOutcome(predHome, predAway, finalHome, finalAway) {
		return ScoreOutcome
	}
	return ScoreMiss
}

// PointsFor converts a classification into points under a gameweek
// multiplier. Multipliers below one count as one.
func PointsFor(class ScoreClass, multiplier int) int {
	if multiplier < 1 {
		multiplier = 1
	}
	switch class {
	case ScoreExact:
		return exactBasePoints * multiplier
	case ScoreOutcome:
		return outcomeBasePoints * multiplier
	default:
		return 0
	}
}

// classFromPoints inverts PointsFor for a known multiplier. The second
// return is false when the points value cannot have been produced
// under that multiplier, which happens after a multiplier change.
func classFromPoints(points, multiplier int) (ScoreClass, bool) {
	if multiplier < 1 {
		multiplier = 1
	}
	switch points {
	case exactBasePoints * multiplier:
		return ScoreExact, true
	case outcomeBasePoints * multiplier:
		return ScoreOutcome, true
	case 0:
		return ScoreMiss, true
	default:
		return ScoreMiss, false
	}
}

// previousClass derives the classification behind an already-stored
// award. Two readings are possible: the gameweek multiplier is
// unchanged and the points invert under it, or the scoreline is
// unchanged and the earlier pass saw the class the current one does.
// When exactly one reading fits, that is the answer; when they
// disagree the history is ambiguous and the caller has to recompute.
func previousClass(storedPoints int, current ScoreClass, multiplier int) (ScoreClass, bool) {
	underMultiplier, multiplierFits := classFromPoints(storedPoints, multiplier)
	classFits := pointsFitClass(storedPoints, current)

	switch {
	case multiplierFits && (!classFits || underMultiplier == current):
		return underMultiplier, true
	case classFits && !multiplierFits:
		return current, true
	default:
		return ScoreMiss, false
	}
}

// pointsFitClass reports whether storedPoints could have been awarded
// for class under some positive multiplier.
func pointsFitClass(storedPoints int, class ScoreClass) bool {
	switch class {
	case ScoreExact:
		return storedPoints > 0 && storedPoints%exactBasePoints == 0
	case ScoreOutcome:
		return storedPoints > 0
	default:
		return storedPoints == 0
	}
}

func sameOutcome(aHome, aAway, bHome, bAway int) bool {
	switch {
	case aHome > aAway:
		return bHome > bAway
	case aHome < aAway:
		return bHome < bAway
	default:
		return bHome == bAway
	}
}
