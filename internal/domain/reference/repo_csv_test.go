package reference

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

const referenceCSV = `custom_identifier,first_name,last_name,middle_initial,gender,dob,ssn
P-1,Mario,Rossi,A,MALE,1985-03-15,RSSMRA85C15H501X
P-2,Giulia,Bianchi,,FEMALE,1990-07-22,
P-3,,Verdi,,FEMALE,1992-11-03,
`

func TestCSVRepository_LoadAll(t *testing.T) {
	repo := NewCSVRepository(strings.NewReader(referenceCSV), zerolog.Nop())

	records, err := repo.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// P-3 has no first name and is skipped.
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].CustomIdentifier != "P-1" || records[0].FamilyName != "Rossi" {
		t.Errorf("unexpected first record: %+v", records[0])
	}
	if records[0].TaxID != "RSSMRA85C15H501X" {
		t.Errorf("tax id not loaded: %+v", records[0])
	}
	if records[0].GenderCorrected {
		t.Error("consistent record should not be corrected")
	}
}

func TestCSVRepository_GenderCorrection(t *testing.T) {
	// Declared FEMALE, but the tax identifier encodes a male day of birth.
	csv := `custom_identifier,first_name,last_name,middle_initial,gender,dob,ssn
P-4,Luca,Esposito,,FEMALE,1985-03-15,SPSLCU85C15H501X
`
	repo := NewCSVRepository(strings.NewReader(csv), zerolog.Nop())

	records, err := repo.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	rec := records[0]
	if rec.Sex != "MALE" {
		t.Errorf("expected corrected sex MALE, got %s", rec.Sex)
	}
	if !rec.GenderCorrected {
		t.Error("expected the correction flag to be set")
	}
}

func TestCSVRepository_UndeterminableTaxIDLeavesGender(t *testing.T) {
	// Day 40 sits between the male and female ranges.
	csv := `custom_identifier,first_name,last_name,middle_initial,gender,dob,ssn
P-5,Anna,Verdi,,FEMALE,1992-11-03,VRDNNA92S40F205X
`
	repo := NewCSVRepository(strings.NewReader(csv), zerolog.Nop())

	records, err := repo.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records[0].Sex != "FEMALE" || records[0].GenderCorrected {
		t.Errorf("undeterminable tax id should leave the declared sex: %+v", records[0])
	}
}

func TestCSVRepository_MissingColumns(t *testing.T) {
	csv := `first_name,last_name,dob
Mario,Rossi,1985-03-15
`
	repo := NewCSVRepository(strings.NewReader(csv), zerolog.Nop())

	records, err := repo.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Sex != "" || records[0].TaxID != "" {
		t.Errorf("absent columns should read empty: %+v", records[0])
	}
}

func TestCSVRepository_BadHeader(t *testing.T) {
	repo := NewCSVRepository(strings.NewReader(""), zerolog.Nop())
	if _, err := repo.LoadAll(context.Background()); err == nil {
		t.Error("expected error for empty input")
	}
}
