package matching

// MatchType identifies the matching tier that produced a result. Tiers are
// ordered by descending base confidence; the matcher tries them in that order.
type MatchType string

const (
	MatchGoldStandard       MatchType = "GOLD_STANDARD"
	MatchExactGenderLoose   MatchType = "EXACT_GENDER_LOOSE"
	MatchFlippedExact       MatchType = "FLIPPED_EXACT"
	MatchFlippedGenderLoose MatchType = "FLIPPED_GENDER_LOOSE"
	MatchPartialExact       MatchType = "PARTIAL_EXACT"
	MatchPartialGenderLoose MatchType = "PARTIAL_GENDER_LOOSE"
	MatchExactFuzzyDOB      MatchType = "EXACT_FUZZY_DOB"
	MatchFlippedFuzzyDOB    MatchType = "FLIPPED_FUZZY_DOB"
	MatchPartialFuzzyDOB    MatchType = "PARTIAL_FUZZY_DOB"
	MatchNone               MatchType = "NO_MATCH"
)

// ConfidenceLevel buckets a numeric confidence score for reporting.
type ConfidenceLevel string

const (
	LevelGoldStandard ConfidenceLevel = "GOLD_STANDARD"
	LevelHigh         ConfidenceLevel = "HIGH_CONFIDENCE"
	LevelModerate     ConfidenceLevel = "MODERATE_CONFIDENCE"
	LevelAcceptable   ConfidenceLevel = "ACCEPTABLE_CONFIDENCE"
	LevelManualReview ConfidenceLevel = "MANUAL_REVIEW"
	LevelNoMatch      ConfidenceLevel = "NO_MATCH"
)

// ConfidenceLevelFor maps a confidence score to its reporting bucket.
func ConfidenceLevelFor(score float64) ConfidenceLevel {
	switch {
	case score >= 1.0:
		return LevelGoldStandard
	case score >= 0.95:
		return LevelHigh
	case score >= 0.80:
		return LevelModerate
	case score >= 0.70:
		return LevelAcceptable
	case score >= 0.50:
		return LevelManualReview
	default:
		return LevelNoMatch
	}
}

// PatientRecord is one patient identity as supplied by a record source.
// Fields are raw strings; normalization happens at key-building and
// comparison time, never in place. Records are treated as immutable.
type PatientRecord struct {
	FamilyName       string `json:"family_name"`
	GivenName        string `json:"given_name"`
	Sex              string `json:"sex"`
	DOB              string `json:"dob"`
	CustomIdentifier string `json:"custom_identifier,omitempty"`
	MiddleName       string `json:"middle_name,omitempty"`
	TaxID            string `json:"tax_id,omitempty"`

	// GenderCorrected is set by the reference loader when the declared sex
	// contradicted the tax identifier and was replaced (see reference pkg).
	GenderCorrected bool `json:"gender_corrected,omitempty"`
}

// Corrections records the data-quality defects detected while matching.
type Corrections struct {
	GenderMismatch       bool `json:"gender_mismatch"`
	DateCorrection       bool `json:"date_correction"`
	NameFlip             bool `json:"name_flip"`
	PartialMatch         bool `json:"partial_match"`
	ReferenceGenderError bool `json:"reference_gender_error"`
	TaxIDValidated       bool `json:"tax_id_validated"`
}

// MatchResult is the outcome of matching one incoming record. Exactly one is
// produced per Match call, including the no-match case.
type MatchResult struct {
	MatchFound           bool           `json:"match_found"`
	Matched              *PatientRecord `json:"matched,omitempty"`
	Confidence           float64        `json:"confidence"`
	MatchType            MatchType      `json:"match_type"`
	RequiresManualReview bool           `json:"requires_manual_review"`
	Corrections          Corrections    `json:"corrections"`

	// MatchKey is the blocking key that produced the hit. Empty for the
	// linear-scan tiers and for NO_MATCH.
	MatchKey string `json:"match_key,omitempty"`
}

// Level returns the reporting bucket for this result's confidence.
func (r MatchResult) Level() ConfidenceLevel {
	if !r.MatchFound {
		return LevelNoMatch
	}
	return ConfidenceLevelFor(r.Confidence)
}
