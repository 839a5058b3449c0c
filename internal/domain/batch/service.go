// Package batch runs one end-to-end matching session: load the reference
// set, build the candidate index, resolve every incoming record, apply
// confident updates and queue the rest for manual review.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medoco-health/dtxlink/internal/domain/matching"
	"github.com/medoco-health/dtxlink/internal/domain/reference"
)

// ReviewItem is one incoming record held back for human adjudication.
type ReviewItem struct {
	ID     uuid.UUID            `json:"id"`
	Row    Row                  `json:"row"`
	Result matching.MatchResult `json:"result"`
	Reason string               `json:"reason"`
}

// Result is the outcome of one batch run.
type Result struct {
	Statistics  matching.StatisticsSnapshot
	ReviewQueue []ReviewItem
}

// Service orchestrates a matching session over CSV collaborators.
type Service struct {
	repo reference.Repository
	cfg  matching.Config
	log  zerolog.Logger
}

func NewService(repo reference.Repository, cfg matching.Config, logger zerolog.Logger) *Service {
	return &Service{repo: repo, cfg: cfg, log: logger}
}

// Run processes every incoming record against the reference set. When output
// is nil the run is audit-only: records are matched and counted but nothing
// is written. Individual no-matches and low-confidence matches never abort
// the run; only structural failures (unreadable input, a failing reference
// source) do.
func (s *Service) Run(ctx context.Context, incoming io.Reader, output io.Writer) (*Result, error) {
	matcher, err := s.BuildMatcher(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := NewRowReader(incoming)
	if err != nil {
		return nil, err
	}

	var writer *RowWriter
	if output != nil {
		writer, err = NewRowWriter(output, rows.Header())
		if err != nil {
			return nil, err
		}
	} else {
		s.log.Info().Msg("audit-only mode, no output will be written")
	}

	result := &Result{}
	for {
		if err := ctx.Err(); err != nil {
			// Interrupted runs still report the partial session.
			result.Statistics = matcher.Statistics().Snapshot()
			return result, err
		}

		row, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read incoming row: %w", err)
		}

		s.processRow(row, matcher, result)

		if writer != nil {
			if err := writer.Write(row); err != nil {
				return nil, fmt.Errorf("write output row: %w", err)
			}
		}
	}

	if writer != nil {
		if err := writer.Flush(); err != nil {
			return nil, fmt.Errorf("flush output: %w", err)
		}
	}

	result.Statistics = matcher.Statistics().Snapshot()
	s.log.Info().
		Int("total", result.Statistics.TotalProcessed).
		Int("auto_matched", result.Statistics.AutoMatched).
		Int("manual_review", result.Statistics.ManualReviewRequired).
		Int("no_match", result.Statistics.NoMatches).
		Msg("batch complete")
	return result, nil
}

// BuildMatcher loads the reference set and indexes it once.
func (s *Service) BuildMatcher(ctx context.Context) (*matching.Matcher, error) {
	records, err := s.repo.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load reference set: %w", err)
	}

	index := matching.NewCandidateIndex(records)
	matcher, err := matching.NewMatcher(index, s.cfg, s.log)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int("reference_records", index.Size()).
		Msg("candidate index built")
	return matcher, nil
}

func (s *Service) processRow(row Row, matcher *matching.Matcher, result *Result) {
	rec := matching.PatientRecord{
		FamilyName: row["family_name"],
		GivenName:  row["given_name"],
		Sex:        row["sex"],
		DOB:        row["dob"],
	}

	res := matcher.Match(rec)
	if !res.MatchFound {
		return
	}

	if res.RequiresManualReview {
		item := ReviewItem{
			ID:     uuid.New(),
			Row:    row,
			Result: res,
			Reason: fmt.Sprintf("confidence %.1f%% below threshold", res.Confidence*100),
		}
		result.ReviewQueue = append(result.ReviewQueue, item)

		s.log.Warn().
			Str("given_name", rec.GivenName).
			Str("family_name", rec.FamilyName).
			Str("match_type", string(res.MatchType)).
			Float64("confidence", res.Confidence).
			Msg("manual review required")
		return
	}

	s.applyUpdate(row, res)
}

// applyUpdate overwrites the incoming row's identity fields with the matched
// reference values, the whole point of the batch: the PMS is authoritative.
func (s *Service) applyUpdate(row Row, res matching.MatchResult) {
	matched := res.Matched
	row["family_name"] = matched.FamilyName
	row["given_name"] = matched.GivenName
	row["sex"] = matched.Sex
	if matched.CustomIdentifier != "" {
		row["pms_id"] = matched.CustomIdentifier
	}

	s.log.Info().
		Str("given_name", matched.GivenName).
		Str("family_name", matched.FamilyName).
		Str("match_type", string(res.MatchType)).
		Float64("confidence", res.Confidence).
		Bool("gender_mismatch", res.Corrections.GenderMismatch).
		Bool("date_correction", res.Corrections.DateCorrection).
		Bool("name_flip", res.Corrections.NameFlip).
		Bool("partial_match", res.Corrections.PartialMatch).
		Msg("record updated")
}
