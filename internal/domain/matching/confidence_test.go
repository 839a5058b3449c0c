package matching

import "testing"

func TestNewScoringTable_RejectsBadThreshold(t *testing.T) {
	if _, err := NewScoringTable(-0.1); err == nil {
		t.Error("expected error for negative threshold")
	}
	if _, err := NewScoringTable(1.5); err == nil {
		t.Error("expected error for threshold above 1")
	}
}

func TestScoringTable_BaseConfidences(t *testing.T) {
	table, err := NewScoringTable(DefaultReviewThreshold)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := []struct {
		mt   MatchType
		want float64
	}{
		{MatchGoldStandard, 1.00},
		{MatchExactGenderLoose, 0.98},
		{MatchFlippedExact, 0.97},
		{MatchFlippedGenderLoose, 0.90},
		{MatchPartialExact, 0.85},
		{MatchPartialGenderLoose, 0.75},
		{MatchExactFuzzyDOB, 0.72},
		{MatchFlippedFuzzyDOB, 0.65},
		{MatchPartialFuzzyDOB, 0.55},
		{MatchNone, 0.00},
	}
	for _, tc := range cases {
		if got := table.Base(tc.mt); got != tc.want {
			t.Errorf("Base(%s) = %v, want %v", tc.mt, got, tc.want)
		}
	}
}

func TestScoringTable_AdjustedAppliesDeltas(t *testing.T) {
	table, err := NewScoringTable(DefaultReviewThreshold)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := table.Adjusted(0.90, Corrections{GenderMismatch: true})
	if !almostEqual(got, 0.85) {
		t.Errorf("gender mismatch delta: got %v, want 0.85", got)
	}

	got = table.Adjusted(0.90, Corrections{DateCorrection: true, NameFlip: true})
	if !almostEqual(got, 0.85) {
		t.Errorf("stacked deltas: got %v, want 0.85", got)
	}

	got = table.Adjusted(0.90, Corrections{})
	if got != 0.90 {
		t.Errorf("no corrections should leave the base untouched, got %v", got)
	}
}

func TestScoringTable_AdjustedClamps(t *testing.T) {
	table, err := NewScoringTable(DefaultReviewThreshold)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := table.Adjusted(1.00, Corrections{TaxIDValidated: true}); got != 1.0 {
		t.Errorf("positive delta above 1.0 should clamp, got %v", got)
	}
	if got := table.Adjusted(0.05, Corrections{PartialMatch: true}); got != 0.0 {
		t.Errorf("negative delta below 0 should clamp, got %v", got)
	}
}

func TestScoringTable_ReviewThresholdBoundary(t *testing.T) {
	table, err := NewScoringTable(0.70)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if table.RequiresManualReview(0.70) {
		t.Error("a score exactly at the threshold should auto-apply")
	}
	if !table.RequiresManualReview(0.69) {
		t.Error("a score below the threshold should require review")
	}
	if table.ReviewThreshold() != 0.70 {
		t.Errorf("ReviewThreshold() = %v, want 0.70", table.ReviewThreshold())
	}
}

func TestConfidenceLevelFor(t *testing.T) {
	cases := []struct {
		score float64
		want  ConfidenceLevel
	}{
		{1.00, LevelGoldStandard},
		{0.98, LevelHigh},
		{0.95, LevelHigh},
		{0.85, LevelModerate},
		{0.80, LevelModerate},
		{0.72, LevelAcceptable},
		{0.70, LevelAcceptable},
		{0.55, LevelManualReview},
		{0.40, LevelNoMatch},
	}
	for _, tc := range cases {
		if got := ConfidenceLevelFor(tc.score); got != tc.want {
			t.Errorf("ConfidenceLevelFor(%v) = %s, want %s", tc.score, got, tc.want)
		}
	}
}
