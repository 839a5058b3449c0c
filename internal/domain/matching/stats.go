package matching

import (
	"sync"

	"github.com/google/uuid"
)

// StatisticsSnapshot is a read-only copy of the session counters. Valid at
// any point, including mid-batch, so an interrupted run still reports.
type StatisticsSnapshot struct {
	SessionID uuid.UUID `json:"session_id"`

	TotalProcessed       int `json:"total_processed"`
	AutoMatched          int `json:"auto_matched"`
	ManualReviewRequired int `json:"manual_review_required"`
	NoMatches            int `json:"no_matches"`

	// Confidence-bucket distribution of matched records.
	GoldStandardMatches         int `json:"gold_standard_matches"`
	HighConfidenceMatches       int `json:"high_confidence_matches"`
	ModerateConfidenceMatches   int `json:"moderate_confidence_matches"`
	AcceptableConfidenceMatches int `json:"acceptable_confidence_matches"`

	// Correction-type distribution.
	GenderCorrections     int `json:"gender_corrections"`
	DateCorrections       int `json:"date_corrections"`
	NameFlips             int `json:"name_flips"`
	PartialNameMatches    int `json:"partial_name_matches"`
	ReferenceGenderErrors int `json:"reference_gender_errors"`
}

// MatchRate is the fraction of processed records that matched at all.
func (s StatisticsSnapshot) MatchRate() float64 {
	if s.TotalProcessed == 0 {
		return 0
	}
	return float64(s.AutoMatched+s.ManualReviewRequired) / float64(s.TotalProcessed)
}

// AutoMatchRate is the fraction of processed records matched confidently
// enough to auto-apply.
func (s StatisticsSnapshot) AutoMatchRate() float64 {
	if s.TotalProcessed == 0 {
		return 0
	}
	return float64(s.AutoMatched) / float64(s.TotalProcessed)
}

// SessionStatistics accumulates per-batch counters, one increment per
// MatchResult. The mutex is the single serialization point the matcher needs
// when callers parallelize per-record matching.
type SessionStatistics struct {
	mu   sync.Mutex
	snap StatisticsSnapshot
}

// NewSessionStatistics starts an empty session with a fresh session id.
func NewSessionStatistics() *SessionStatistics {
	return &SessionStatistics{snap: StatisticsSnapshot{SessionID: uuid.New()}}
}

// Record folds one match result into the counters.
func (s *SessionStatistics) Record(result MatchResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.TotalProcessed++

	if !result.MatchFound {
		s.snap.NoMatches++
		return
	}

	if result.RequiresManualReview {
		s.snap.ManualReviewRequired++
	} else {
		s.snap.AutoMatched++
	}

	switch result.Level() {
	case LevelGoldStandard:
		s.snap.GoldStandardMatches++
	case LevelHigh:
		s.snap.HighConfidenceMatches++
	case LevelModerate:
		s.snap.ModerateConfidenceMatches++
	case LevelAcceptable:
		s.snap.AcceptableConfidenceMatches++
	}

	c := result.Corrections
	if c.GenderMismatch {
		s.snap.GenderCorrections++
	}
	if c.DateCorrection {
		s.snap.DateCorrections++
	}
	if c.NameFlip {
		s.snap.NameFlips++
	}
	if c.PartialMatch {
		s.snap.PartialNameMatches++
	}
	if c.ReferenceGenderError {
		s.snap.ReferenceGenderErrors++
	}
}

// Snapshot returns a copy of the current counters.
func (s *SessionStatistics) Snapshot() StatisticsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Reset clears the counters for a new batch under a new session id.
func (s *SessionStatistics) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = StatisticsSnapshot{SessionID: uuid.New()}
}
