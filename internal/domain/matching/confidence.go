package matching

import "fmt"

// DefaultReviewThreshold is the confidence below which a match is queued for
// manual review instead of auto-applied.
const DefaultReviewThreshold = 0.70

// CorrectionDeltas are the additive confidence adjustments for corrections
// detected on top of a match tier. Order-independent; the adjusted score is
// clamped to [0,1].
type CorrectionDeltas struct {
	GenderMismatch       float64
	DateCorrection       float64
	NameFlip             float64
	PartialMatch         float64
	ReferenceGenderError float64
	TaxIDValidated       float64
}

// ScoringTable is the validated confidence configuration: one base confidence
// per match tier, the correction deltas, and the manual-review threshold.
type ScoringTable struct {
	base            map[MatchType]float64
	deltas          CorrectionDeltas
	reviewThreshold float64
}

func defaultBaseConfidences() map[MatchType]float64 {
	return map[MatchType]float64{
		MatchGoldStandard:       1.00,
		MatchExactGenderLoose:   0.98,
		MatchFlippedExact:       0.97,
		MatchFlippedGenderLoose: 0.90,
		MatchPartialExact:       0.85,
		MatchPartialGenderLoose: 0.75,
		MatchExactFuzzyDOB:      0.72,
		MatchFlippedFuzzyDOB:    0.65,
		MatchPartialFuzzyDOB:    0.55,
		MatchNone:               0.00,
	}
}

// DefaultCorrectionDeltas returns the standard adjustment factors.
func DefaultCorrectionDeltas() CorrectionDeltas {
	return CorrectionDeltas{
		GenderMismatch:       -0.05,
		DateCorrection:       -0.03,
		NameFlip:             -0.02,
		PartialMatch:         -0.10,
		ReferenceGenderError: 0.02,
		TaxIDValidated:       0.05,
	}
}

// NewScoringTable builds the default table with the given review threshold.
// It fails when the threshold is out of range or the base table violates its
// invariants, so a misconfigured matcher cannot be constructed.
func NewScoringTable(reviewThreshold float64) (ScoringTable, error) {
	if reviewThreshold < 0 || reviewThreshold > 1 {
		return ScoringTable{}, fmt.Errorf("review threshold %v out of range [0,1]", reviewThreshold)
	}

	table := ScoringTable{
		base:            defaultBaseConfidences(),
		deltas:          DefaultCorrectionDeltas(),
		reviewThreshold: reviewThreshold,
	}
	if err := table.validate(); err != nil {
		return ScoringTable{}, err
	}
	return table, nil
}

func (t ScoringTable) validate() error {
	order := []MatchType{
		MatchGoldStandard,
		MatchExactGenderLoose,
		MatchFlippedExact,
		MatchFlippedGenderLoose,
		MatchPartialExact,
		MatchPartialGenderLoose,
		MatchExactFuzzyDOB,
		MatchFlippedFuzzyDOB,
		MatchPartialFuzzyDOB,
		MatchNone,
	}

	prev := 1.0
	for i, mt := range order {
		conf, ok := t.base[mt]
		if !ok {
			return fmt.Errorf("missing base confidence for %s", mt)
		}
		if conf < 0 || conf > 1 {
			return fmt.Errorf("base confidence for %s out of range: %v", mt, conf)
		}
		if i > 0 && conf >= prev {
			return fmt.Errorf("base confidence for %s (%v) must be below the previous tier (%v)", mt, conf, prev)
		}
		prev = conf
	}
	return nil
}

// Base returns the base confidence for a match tier.
func (t ScoringTable) Base(mt MatchType) float64 {
	return t.base[mt]
}

// Adjusted applies the deltas for every set correction flag to a base
// confidence and clamps the result to [0,1].
func (t ScoringTable) Adjusted(base float64, c Corrections) float64 {
	score := base
	if c.GenderMismatch {
		score += t.deltas.GenderMismatch
	}
	if c.DateCorrection {
		score += t.deltas.DateCorrection
	}
	if c.NameFlip {
		score += t.deltas.NameFlip
	}
	if c.PartialMatch {
		score += t.deltas.PartialMatch
	}
	if c.ReferenceGenderError {
		score += t.deltas.ReferenceGenderError
	}
	if c.TaxIDValidated {
		score += t.deltas.TaxIDValidated
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// RequiresManualReview reports whether a score falls below the acceptance
// threshold.
func (t ScoringTable) RequiresManualReview(score float64) bool {
	return score < t.reviewThreshold
}

// ReviewThreshold returns the configured acceptance threshold.
func (t ScoringTable) ReviewThreshold() float64 {
	return t.reviewThreshold
}
