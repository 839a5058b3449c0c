package matching

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Italian codice fiscale layout: 6 surname/name letters, 2 year digits,
// 1 month letter, 2 day digits (day+40 for women), 4 place chars, 1 check
// letter. Only the day field is needed for gender cross-validation.
var taxIDPattern = regexp.MustCompile(`^[A-Z]{6}[0-9]{2}[A-Z][0-9]{2}[A-Z][0-9A-Z]{3}[A-Z]$`)

var taxIDMonths = map[byte]string{
	'A': "01", 'B': "02", 'C': "03", 'D': "04", 'E': "05", 'H': "06",
	'L': "07", 'M': "08", 'P': "09", 'R': "10", 'S': "11", 'T': "12",
}

// ExtractGender reads the sex encoded in a codice fiscale day-of-birth field
// (positions 10-11, 1-indexed): 01-31 male, 41-71 female. Returns "" when the
// identifier is too short, non-numeric in that field, or the day is out of
// range. Never fails on arbitrary input.
func ExtractGender(taxID string) string {
	if len(taxID) < 11 {
		return ""
	}
	day, err := strconv.Atoi(taxID[9:11])
	if err != nil {
		return ""
	}
	switch {
	case day >= 1 && day <= 31:
		return "MALE"
	case day >= 41 && day <= 71:
		return "FEMALE"
	default:
		return ""
	}
}

// IsGenderConsistent reports whether a declared gender agrees with the one
// encoded in the tax identifier. Undeterminable identifiers are treated as
// consistent so a missing or malformed code never blocks a match.
func IsGenderConsistent(taxID, declaredGender string) bool {
	encoded := ExtractGender(taxID)
	if encoded == "" {
		return true
	}
	return encoded == NormalizeGender(declaredGender)
}

// ValidTaxIDFormat checks the 16-character codice fiscale shape.
func ValidTaxIDFormat(taxID string) bool {
	if len(taxID) != 16 {
		return false
	}
	return taxIDPattern.MatchString(CleanTaxID(taxID))
}

// ExtractBirthDate decodes the birth date embedded in a codice fiscale,
// returning YYYY-MM-DD or "" when the code is malformed. Two-digit years at
// or before the current year resolve to 2000s, later ones to 1900s.
func ExtractBirthDate(taxID string) string {
	cf := CleanTaxID(taxID)
	if !ValidTaxIDFormat(cf) {
		return ""
	}

	month, ok := taxIDMonths[cf[8]]
	if !ok {
		return ""
	}

	day, err := strconv.Atoi(cf[9:11])
	if err != nil {
		return ""
	}
	if day > 40 {
		day -= 40
	}
	if day < 1 || day > 31 {
		return ""
	}

	yy, err := strconv.Atoi(cf[6:8])
	if err != nil {
		return ""
	}
	year := 1900 + yy
	if yy <= time.Now().Year()%100 {
		year = 2000 + yy
	}

	return fmt.Sprintf("%04d-%s-%02d", year, month, day)
}
