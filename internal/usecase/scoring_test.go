package usecase

import "testing"

func TestClassifyPrediction(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name                 string
		predHome, predAway   int
		finalHome, finalAway int
		want                 ScoreClass
	}{
		{"exact scoreline", 2, 1, 2, 1, ScoreExact},
		{"exact nil-nil", 0, 0, 0, 0, ScoreExact},
		{"home win right score wrong", 3, 1, 2, 0, ScoreOutcome},
		{"draw right score wrong", 1, 1, 2, 2, ScoreOutcome},
		{"away win right score wrong", 0, 2, 1, 3, ScoreOutcome},
		{"predicted home got away", 2, 0, 0, 1, ScoreMiss},
		{"predicted draw got home", 1, 1, 2, 1, ScoreMiss},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := ClassifyPrediction(tc.predHome, tc.predAway, tc.finalHome, tc.finalAway)
			if got != tc.want {
				t.Fatalf("ClassifyPrediction(%d-%d vs %d-%d) = %s, want %s",
					tc.predHome, tc.predAway, tc.finalHome, tc.finalAway, got, tc.want)
			}
		})
	}
}

func TestPointsFor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		class      ScoreClass
		multiplier int
		want       int
	}{
		{"exact single", ScoreExact, 1, 3},
		{"exact double", ScoreExact, 2, 6},
		{"outcome single", ScoreOutcome, 1, 1},
		{"outcome triple", ScoreOutcome, 3, 3},
		{"miss ignores multiplier", ScoreMiss, 5, 0},
		{"zero multiplier treated as one", ScoreExact, 0, 3},
		{"negative multiplier treated as one", ScoreOutcome, -2, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := PointsFor(tc.class, tc.multiplier); got != tc.want {
				t.Fatalf("PointsFor(%s, %d) = %d, want %d", tc.class, tc.multiplier, got, tc.want)
			}
		})
	}
}

func TestPreviousClass(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		points     int
		current    ScoreClass
		multiplier int
		wantClass  ScoreClass
		wantOK     bool
	}{
		{"rerun same multiplier", 3, ScoreExact, 1, ScoreExact, true},
		{"exact under raised multiplier", 3, ScoreExact, 2, ScoreExact, true},
		{"outcome under raised multiplier", 1, ScoreOutcome, 3, ScoreOutcome, true},
		{"score corrected away from exact", 3, ScoreMiss, 1, ScoreExact, true},
		{"miss corrected to outcome", 0, ScoreOutcome, 2, ScoreMiss, true},
		{"exact points collide with outcome under new multiplier", 3, ScoreExact, 3, ScoreMiss, false},
		{"stored exact reads as outcome after correction", 6, ScoreOutcome, 2, ScoreMiss, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			class, ok := previousClass(tc.points, tc.current, tc.multiplier)
			if ok != tc.wantOK {
				t.Fatalf("previousClass(%d, %s, %d) ok = %v, want %v", tc.points, tc.current, tc.multiplier, ok, tc.wantOK)
			}
			if ok && class != tc.wantClass {
				t.Fatalf("previousClass(%d, %s, %d) = %s, want %s", tc.points, tc.current, tc.multiplier, class, tc.wantClass)
			}
		})
	}
}

func TestClassFromPoints(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		points     int
		multiplier int
		wantClass  ScoreClass
		wantOK     bool
	}{
		{"exact under single", 3, 1, ScoreExact, true},
		{"outcome under single", 1, 1, ScoreOutcome, true},
		{"miss", 0, 4, ScoreMiss, true},
		{"exact under double", 6, 2, ScoreExact, true},
		{"stale points after multiplier change", 3, 2, ScoreMiss, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			class, ok := classFromPoints(tc.points, tc.multiplier)
			if ok != tc.wantOK {
				t.Fatalf("classFromPoints(%d, %d) ok = %v, want %v", tc.points, tc.multiplier, ok, tc.wantOK)
			}
			if ok && class != tc.wantClass {
				t.Fatalf("classFromPoints(%d, %d) = %s, want %s", tc.points, tc.multiplier, class, tc.wantClass)
			}
		})
	}
}
