// Package reference loads the PMS reference set the matcher resolves
// incoming records against. Loading is non-streaming: the full candidate set
// is materialized up front so the candidate index can be built once per
// batch.
package reference

import (
	"context"

	"github.com/medoco-health/dtxlink/internal/domain/matching"
)

// Repository supplies the full reference set for one batch.
type Repository interface {
	LoadAll(ctx context.Context) ([]matching.PatientRecord, error)
}

// correctGender reconciles a declared sex value with the one encoded in the
// tax identifier. When they disagree the identifier wins, since the encoded
// day-of-birth field is structural while the declared field is free text.
// Returns the sex to index under and whether a correction was applied.
func correctGender(declared, taxID string) (string, bool) {
	cleaned := matching.CleanTaxID(taxID)
	if cleaned == "" {
		return declared, false
	}
	encoded := matching.ExtractGender(cleaned)
	if encoded == "" || matching.IsGenderConsistent(cleaned, declared) {
		return declared, false
	}
	return encoded, true
}
