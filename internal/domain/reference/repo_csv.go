package reference

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/medoco-health/dtxlink/internal/domain/matching"
)

// CSVRepository reads the reference set from a PMS CSV export with a header
// row. Expected columns: custom_identifier, first_name, last_name,
// middle_initial, gender, dob, ssn. Missing columns read as empty strings.
type CSVRepository struct {
	r   io.Reader
	log zerolog.Logger
}

func NewCSVRepository(r io.Reader, logger zerolog.Logger) *CSVRepository {
	return &CSVRepository{r: r, log: logger}
}

func (repo *CSVRepository) LoadAll(ctx context.Context) ([]matching.PatientRecord, error) {
	reader := csv.NewReader(repo.r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read reference header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}

	var records []matching.PatientRecord
	skipped := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read reference row: %w", err)
		}

		field := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(row) {
				return ""
			}
			return row[i]
		}

		rec := matching.PatientRecord{
			FamilyName:       field("last_name"),
			GivenName:        field("first_name"),
			Sex:              field("gender"),
			DOB:              field("dob"),
			CustomIdentifier: field("custom_identifier"),
			MiddleName:       field("middle_initial"),
			TaxID:            field("ssn"),
		}

		// A record with no name or birth date cannot produce a usable key.
		if rec.FamilyName == "" || rec.GivenName == "" || rec.DOB == "" {
			skipped++
			repo.log.Warn().
				Str("custom_identifier", rec.CustomIdentifier).
				Msg("skipping incomplete reference record")
			continue
		}

		records = append(records, applyGenderCorrection(rec, repo.log))
	}

	repo.log.Info().
		Int("records", len(records)).
		Int("skipped", skipped).
		Msg("reference set loaded")
	return records, nil
}

func applyGenderCorrection(rec matching.PatientRecord, log zerolog.Logger) matching.PatientRecord {
	corrected, wasCorrected := correctGender(rec.Sex, rec.TaxID)
	if !wasCorrected {
		return rec
	}
	log.Warn().
		Str("given_name", rec.GivenName).
		Str("family_name", rec.FamilyName).
		Str("declared", rec.Sex).
		Str("corrected", corrected).
		Msg("tax identifier contradicts declared gender, correcting")
	rec.Sex = corrected
	rec.GenderCorrected = true
	return rec
}
