package matching

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Config carries the tunable matcher parameters.
type Config struct {
	// ReviewThreshold is the confidence below which matches queue for manual
	// review. Defaults to DefaultReviewThreshold when zero.
	ReviewThreshold float64
	// FuzzyDateThreshold is the date-similarity cutoff for the fuzzy-DOB
	// tiers. Defaults to DefaultFuzzyDateThreshold when zero.
	FuzzyDateThreshold float64
	// DisablePartialMatching turns off the partial-name tiers (5, 6 and 9).
	// They are on by default; suffixed duplicate registrations are the main
	// reason this system exists.
	DisablePartialMatching bool
}

// strategy is one tier of the matching chain: a fixed priority, the tier it
// reports, and a predicate that either finds a candidate or passes. The set
// is closed; tiers are evaluated strictly in priority order and the first
// success wins.
type strategy struct {
	priority    int
	matchType   MatchType
	partial     bool
	forceReview bool
	eval        func(m *Matcher, rec PatientRecord, keys MatchKeys) (PatientRecord, string, bool)
}

// Matcher resolves incoming records against a candidate index built from the
// reference set. Match is read-only apart from statistics updates, so
// callers may invoke it from multiple goroutines only if they accept the
// statistics lock as the serialization point.
type Matcher struct {
	index      *CandidateIndex
	scoring    ScoringTable
	stats      *SessionStatistics
	strategies []strategy

	fuzzyThreshold  float64
	partialMatching bool
	log             zerolog.Logger
}

// NewMatcher builds a matcher over a prebuilt candidate index.
func NewMatcher(index *CandidateIndex, cfg Config, logger zerolog.Logger) (*Matcher, error) {
	if cfg.ReviewThreshold == 0 {
		cfg.ReviewThreshold = DefaultReviewThreshold
	}
	if cfg.FuzzyDateThreshold == 0 {
		cfg.FuzzyDateThreshold = DefaultFuzzyDateThreshold
	}
	if cfg.FuzzyDateThreshold < 0 || cfg.FuzzyDateThreshold > 1 {
		return nil, fmt.Errorf("fuzzy date threshold %v out of range [0,1]", cfg.FuzzyDateThreshold)
	}

	scoring, err := NewScoringTable(cfg.ReviewThreshold)
	if err != nil {
		return nil, err
	}

	m := &Matcher{
		index:           index,
		scoring:         scoring,
		stats:           NewSessionStatistics(),
		fuzzyThreshold:  cfg.FuzzyDateThreshold,
		partialMatching: !cfg.DisablePartialMatching,
		log:             logger,
	}
	m.strategies = matchStrategies()
	if err := validateStrategies(m.strategies, scoring); err != nil {
		return nil, err
	}
	return m, nil
}

func matchStrategies() []strategy {
	return []strategy{
		{priority: 1, matchType: MatchGoldStandard, eval: evalGoldStandard},
		{priority: 2, matchType: MatchExactGenderLoose, eval: evalExactGenderLoose},
		{priority: 3, matchType: MatchFlippedExact, eval: evalFlippedExact},
		{priority: 4, matchType: MatchFlippedGenderLoose, eval: evalFlippedGenderLoose},
		{priority: 5, matchType: MatchPartialExact, partial: true, eval: evalPartialExact},
		{priority: 6, matchType: MatchPartialGenderLoose, partial: true, eval: evalPartialGenderLoose},
		{priority: 7, matchType: MatchExactFuzzyDOB, eval: evalExactFuzzyDOB},
		{priority: 8, matchType: MatchFlippedFuzzyDOB, forceReview: true, eval: evalFlippedFuzzyDOB},
		{priority: 9, matchType: MatchPartialFuzzyDOB, partial: true, forceReview: true, eval: evalPartialFuzzyDOB},
	}
}

func validateStrategies(strategies []strategy, scoring ScoringTable) error {
	seen := make(map[int]bool, len(strategies))
	prevPriority := 0
	prevConfidence := 2.0
	for _, st := range strategies {
		if seen[st.priority] {
			return fmt.Errorf("duplicate strategy priority %d", st.priority)
		}
		seen[st.priority] = true
		if st.priority <= prevPriority {
			return fmt.Errorf("strategy priorities must ascend, got %d after %d", st.priority, prevPriority)
		}
		prevPriority = st.priority

		conf := scoring.Base(st.matchType)
		if conf >= prevConfidence {
			return fmt.Errorf("strategy %s confidence %v must decrease with priority", st.matchType, conf)
		}
		prevConfidence = conf
	}
	return nil
}

// Match resolves one incoming record. It always returns a MatchResult and
// never fails for well-typed input; a record that matches nothing yields the
// NO_MATCH result with confidence zero and no review flag.
func (m *Matcher) Match(rec PatientRecord) MatchResult {
	keys := KeysFor(rec)

	for _, st := range m.strategies {
		if st.partial && !m.partialMatching {
			continue
		}
		candidate, matchKey, ok := st.eval(m, rec, keys)
		if !ok {
			continue
		}

		corrections := m.identifyCorrections(rec, candidate, st.matchType)
		base := m.scoring.Base(st.matchType)
		score := m.scoring.Adjusted(base, orthogonalCorrections(corrections, st.matchType))
		review := st.forceReview || m.scoring.RequiresManualReview(score)

		result := MatchResult{
			MatchFound:           true,
			Matched:              &candidate,
			Confidence:           score,
			MatchType:            st.matchType,
			RequiresManualReview: review,
			Corrections:          corrections,
			MatchKey:             matchKey,
		}

		m.log.Debug().
			Str("match_type", string(st.matchType)).
			Str("match_key", matchKey).
			Float64("confidence", score).
			Bool("manual_review", review).
			Str("given_name", rec.GivenName).
			Str("family_name", rec.FamilyName).
			Msg("match found")

		m.stats.Record(result)
		return result
	}

	result := MatchResult{MatchType: MatchNone}
	m.stats.Record(result)
	return result
}

// Statistics returns the live session statistics aggregator.
func (m *Matcher) Statistics() *SessionStatistics {
	return m.stats
}

// Index returns the candidate index the matcher queries.
func (m *Matcher) Index() *CandidateIndex {
	return m.index
}

// -- Strategy predicates --

func evalGoldStandard(m *Matcher, _ PatientRecord, keys MatchKeys) (PatientRecord, string, bool) {
	return firstCandidate(m.index, ClassExact, keys.Exact)
}

// The loose tier stands down whenever the exact-form key string exists
// anywhere in the index, even when that entry belongs to an unrelated
// colliding record. This can suppress a legitimate loose match; see the
// collision regression test.
func evalExactGenderLoose(m *Matcher, _ PatientRecord, keys MatchKeys) (PatientRecord, string, bool) {
	if m.index.HasKey(keys.Exact) {
		return PatientRecord{}, "", false
	}
	return firstCandidate(m.index, ClassLoose, keys.Loose)
}

// A flipped incoming record carries the reference's names in swapped order,
// so its straight exact key lines up with the reference's flipped-exact
// entry.
func evalFlippedExact(m *Matcher, _ PatientRecord, keys MatchKeys) (PatientRecord, string, bool) {
	return firstCandidate(m.index, ClassFlippedExact, keys.Exact)
}

func evalFlippedGenderLoose(m *Matcher, _ PatientRecord, keys MatchKeys) (PatientRecord, string, bool) {
	if m.index.HasKey(keys.FlippedExact) {
		return PatientRecord{}, "", false
	}
	return firstCandidate(m.index, ClassFlippedLoose, keys.Loose)
}

func evalPartialExact(m *Matcher, rec PatientRecord, keys MatchKeys) (PatientRecord, string, bool) {
	// Suffixed names collapse onto the reference no-suffix key once secondary
	// tokens are dropped, so try the cheap indexed form before scanning.
	if cand, key, ok := firstCandidate(m.index, ClassNoSuffix, keys.NoSuffix); ok {
		return cand, key, true
	}

	incomingSex := NormalizeGender(rec.Sex)
	incomingDOB := NormalizeDate(rec.DOB)
	for _, cand := range m.index.Records() {
		if isNamePrefix(cand.FamilyName, rec.FamilyName) &&
			isNamePrefix(cand.GivenName, rec.GivenName) &&
			NormalizeGender(cand.Sex) == incomingSex &&
			NormalizeDate(cand.DOB) == incomingDOB {
			return cand, "", true
		}
	}
	return PatientRecord{}, "", false
}

func evalPartialGenderLoose(m *Matcher, rec PatientRecord, _ MatchKeys) (PatientRecord, string, bool) {
	incomingDOB := NormalizeDate(rec.DOB)
	for _, cand := range m.index.Records() {
		if isNamePrefix(cand.FamilyName, rec.FamilyName) &&
			isNamePrefix(cand.GivenName, rec.GivenName) &&
			NormalizeDate(cand.DOB) == incomingDOB {
			return cand, "", true
		}
	}
	return PatientRecord{}, "", false
}

func evalExactFuzzyDOB(m *Matcher, rec PatientRecord, keys MatchKeys) (PatientRecord, string, bool) {
	incomingSex := NormalizeGender(rec.Sex)
	for _, cand := range m.index.Lookup(ClassNameOnly, keys.NameOnly) {
		if NormalizeGender(cand.Sex) == incomingSex &&
			IsFuzzyDateMatch(rec.DOB, cand.DOB, m.fuzzyThreshold) {
			return cand, keys.NameOnly, true
		}
	}
	return PatientRecord{}, "", false
}

// The name-only key is tried in both orientations: straight against the
// name-only entries, then against the flipped entries. Gender-agnostic.
func evalFlippedFuzzyDOB(m *Matcher, rec PatientRecord, keys MatchKeys) (PatientRecord, string, bool) {
	for _, class := range []KeyClass{ClassNameOnly, ClassFlippedNameOnly} {
		for _, cand := range m.index.Lookup(class, keys.NameOnly) {
			if IsFuzzyDateMatch(rec.DOB, cand.DOB, m.fuzzyThreshold) {
				return cand, keys.NameOnly, true
			}
		}
	}
	return PatientRecord{}, "", false
}

func evalPartialFuzzyDOB(m *Matcher, rec PatientRecord, _ MatchKeys) (PatientRecord, string, bool) {
	for _, cand := range m.index.Records() {
		if isNamePrefix(cand.FamilyName, rec.FamilyName) &&
			isNamePrefix(cand.GivenName, rec.GivenName) &&
			IsFuzzyDateMatch(rec.DOB, cand.DOB, m.fuzzyThreshold) {
			return cand, "", true
		}
	}
	return PatientRecord{}, "", false
}

func firstCandidate(index *CandidateIndex, class KeyClass, key string) (PatientRecord, string, bool) {
	candidates := index.Lookup(class, key)
	if len(candidates) == 0 {
		return PatientRecord{}, "", false
	}
	return candidates[0], key, true
}

// isNamePrefix reports whether the reference name is a normalized prefix of
// the incoming name, which is how suffixed forms like "Rossi BIS" resolve to
// "Rossi".
func isNamePrefix(referenceName, incomingName string) bool {
	ref := NormalizeString(referenceName)
	if ref == "" {
		return false
	}
	return strings.HasPrefix(NormalizeString(incomingName), ref)
}

// -- Corrections --

func (m *Matcher) identifyCorrections(rec, candidate PatientRecord, mt MatchType) Corrections {
	var c Corrections

	incomingSex := NormalizeGender(rec.Sex)
	candidateSex := NormalizeGender(candidate.Sex)
	if incomingSex != "" && candidateSex != "" && incomingSex != candidateSex {
		c.GenderMismatch = true
	}

	c.ReferenceGenderError = candidate.GenderCorrected
	taxID := CleanTaxID(candidate.TaxID)
	if c.GenderMismatch && taxID != "" && !IsGenderConsistent(taxID, candidateSex) {
		c.ReferenceGenderError = true
	}

	incomingDOB := NormalizeDate(rec.DOB)
	candidateDOB := NormalizeDate(candidate.DOB)
	if incomingDOB != "" && candidateDOB != "" && incomingDOB != candidateDOB &&
		IsFuzzyDateMatch(incomingDOB, candidateDOB, m.fuzzyThreshold) {
		c.DateCorrection = true
	}

	c.NameFlip = isFlippedType(mt)
	c.PartialMatch = isPartialType(mt)

	if taxID != "" && incomingSex != "" && ExtractGender(taxID) == incomingSex {
		c.TaxIDValidated = true
	}

	return c
}

// orthogonalCorrections drops the flags already priced into the tier's base
// confidence, leaving only corrections orthogonal to the match type to move
// the score. A flipped match is not penalized again for being flipped.
func orthogonalCorrections(c Corrections, mt MatchType) Corrections {
	if isFlippedType(mt) {
		c.NameFlip = false
	}
	if isPartialType(mt) {
		c.PartialMatch = false
	}
	if isGenderLooseType(mt) {
		c.GenderMismatch = false
	}
	if isFuzzyDOBType(mt) {
		c.DateCorrection = false
	}
	return c
}

func isFlippedType(mt MatchType) bool {
	return mt == MatchFlippedExact || mt == MatchFlippedGenderLoose || mt == MatchFlippedFuzzyDOB
}

func isPartialType(mt MatchType) bool {
	return mt == MatchPartialExact || mt == MatchPartialGenderLoose || mt == MatchPartialFuzzyDOB
}

func isGenderLooseType(mt MatchType) bool {
	switch mt {
	case MatchExactGenderLoose, MatchFlippedGenderLoose, MatchPartialGenderLoose,
		MatchFlippedFuzzyDOB, MatchPartialFuzzyDOB:
		return true
	}
	return false
}

func isFuzzyDOBType(mt MatchType) bool {
	return mt == MatchExactFuzzyDOB || mt == MatchFlippedFuzzyDOB || mt == MatchPartialFuzzyDOB
}
