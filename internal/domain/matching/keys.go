package matching

import "strings"

// MatchKeys holds every blocking key derived from one record. Keys are
// pipe-joined normalized attributes; two records that should match under a
// given tier produce identical key strings for that tier.
type MatchKeys struct {
	// Exact carries all four attributes: family|given|sex|dob.
	Exact string
	// Loose drops the sex field: family|given|dob.
	Loose string
	// FlippedExact swaps the name fields: given|family|sex|dob.
	FlippedExact string
	// FlippedLoose swaps names and drops sex: given|family|dob.
	FlippedLoose string
	// NameOnly is family|given, used to collect fuzzy-date candidates.
	NameOnly string
	// FlippedNameOnly is given|family.
	FlippedNameOnly string
	// NoSuffix keeps only the first whitespace-delimited token of each name,
	// shedding middle names and suffixes like BIS/TRIS/JR:
	// first-token(family)|first-token(given)|sex|dob.
	NoSuffix string
}

// BuildKeys derives the full key set for a record's identifying attributes.
func BuildKeys(familyName, givenName, sex, dob string) MatchKeys {
	family := NormalizeString(familyName)
	given := NormalizeString(givenName)
	gender := NormalizeGender(sex)
	date := NormalizeDate(dob)

	return MatchKeys{
		Exact:           family + "|" + given + "|" + gender + "|" + date,
		Loose:           family + "|" + given + "|" + date,
		FlippedExact:    given + "|" + family + "|" + gender + "|" + date,
		FlippedLoose:    given + "|" + family + "|" + date,
		NameOnly:        family + "|" + given,
		FlippedNameOnly: given + "|" + family,
		NoSuffix:        NormalizeString(firstToken(familyName)) + "|" + NormalizeString(firstToken(givenName)) + "|" + gender + "|" + date,
	}
}

// KeysFor builds the key set for a whole record.
func KeysFor(rec PatientRecord) MatchKeys {
	return BuildKeys(rec.FamilyName, rec.GivenName, rec.Sex, rec.DOB)
}

func firstToken(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
