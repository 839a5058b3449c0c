package matching

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// dateFormats are tried in order; the first successful parse wins. US before
// EU means an ambiguous slash date like 03/04/1990 reads as March 4th.
var dateFormats = []string{
	"2006-01-02", // ISO
	"01/02/2006", // US
	"02/01/2006", // EU
	"2006/01/02", // slash-ISO
}

var diacriticFolder = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// NormalizeString lowercases, strips whitespace and apostrophes, and folds
// diacritics to base Latin letters. Idempotent.
func NormalizeString(s string) string {
	if s == "" {
		return ""
	}
	if folded, _, err := transform.String(diacriticFolder, s); err == nil {
		s = folded
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsSpace(r) || r == '\'' || r == '’' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NormalizeDate converts a date string to YYYY-MM-DD, trying the formats
// commonly found in healthcare exports. Unparseable input is returned
// unchanged so malformed dates still yield a deterministic key.
func NormalizeDate(date string) string {
	if date == "" {
		return ""
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, date); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return date
}

var genderSynonyms = map[string]string{
	"M":       "MALE",
	"MALE":    "MALE",
	"MASCHIO": "MALE",
	"UOMO":    "MALE",
	"MAN":     "MALE",
	"F":       "FEMALE",
	"FEMALE":  "FEMALE",
	"FEMMINA": "FEMALE",
	"DONNA":   "FEMALE",
	"WOMAN":   "FEMALE",
}

// NormalizeGender maps recognized synonyms to MALE/FEMALE. Unrecognized
// values pass through uppercased.
func NormalizeGender(gender string) string {
	if gender == "" {
		return ""
	}
	up := strings.ToUpper(strings.TrimSpace(gender))
	if canonical, ok := genderSynonyms[up]; ok {
		return canonical
	}
	return up
}

// CleanTaxID uppercases a codice fiscale and strips spaces and separators.
func CleanTaxID(taxID string) string {
	if taxID == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(taxID))
	for _, r := range strings.ToUpper(taxID) {
		if unicode.IsSpace(r) || r == '-' || r == '_' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
