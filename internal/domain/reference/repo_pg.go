package reference

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/medoco-health/dtxlink/internal/domain/matching"
)

// PGRepository reads the reference set straight from a PMS Postgres
// database. The dob column is read as text so the normalizer sees the same
// raw value a CSV export would carry.
type PGRepository struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

func NewPGRepository(pool *pgxpool.Pool, logger zerolog.Logger) *PGRepository {
	return &PGRepository{pool: pool, log: logger}
}

func (repo *PGRepository) LoadAll(ctx context.Context) ([]matching.PatientRecord, error) {
	rows, err := repo.pool.Query(ctx, `
		SELECT COALESCE(custom_identifier, ''),
		       COALESCE(first_name, ''),
		       COALESCE(last_name, ''),
		       COALESCE(middle_initial, ''),
		       COALESCE(gender, ''),
		       COALESCE(dob::text, ''),
		       COALESCE(ssn, '')
		FROM patient
		ORDER BY custom_identifier`)
	if err != nil {
		return nil, fmt.Errorf("query reference set: %w", err)
	}
	defer rows.Close()

	var records []matching.PatientRecord
	skipped := 0
	for rows.Next() {
		var rec matching.PatientRecord
		if err := rows.Scan(
			&rec.CustomIdentifier,
			&rec.GivenName,
			&rec.FamilyName,
			&rec.MiddleName,
			&rec.Sex,
			&rec.DOB,
			&rec.TaxID,
		); err != nil {
			return nil, fmt.Errorf("scan reference row: %w", err)
		}

		if rec.FamilyName == "" || rec.GivenName == "" || rec.DOB == "" {
			skipped++
			repo.log.Warn().
				Str("custom_identifier", rec.CustomIdentifier).
				Msg("skipping incomplete reference record")
			continue
		}

		records = append(records, applyGenderCorrection(rec, repo.log))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reference set: %w", err)
	}

	repo.log.Info().
		Int("records", len(records)).
		Int("skipped", skipped).
		Msg("reference set loaded from database")
	return records, nil
}
