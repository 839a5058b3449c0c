package matching

// DefaultFuzzyDateThreshold is the canonical similarity cutoff for treating
// two dates of birth as the same date with a transcription error.
const DefaultFuzzyDateThreshold = 0.80

// positionWeights scores year digits above month digits above day digits.
// The weights sum to 1.0 over the 8 digits of YYYYMMDD.
var positionWeights = [8]float64{0.20, 0.20, 0.15, 0.15, 0.10, 0.10, 0.05, 0.05}

// confusables lists characters commonly transcribed for each digit, from OCR
// shape confusion and keyboard adjacency.
var confusables = map[byte]string{
	'0': "8oO",
	'1': "lI|",
	'2': "zZ",
	'3': "8",
	'4': "A",
	'5': "Ss",
	'6': "G",
	'7': "T",
	'8': "03B",
	'9': "gq",
}

// DateSimilarity compares two dates of birth digit by digit after
// normalization. Identical dates score 1.0; anything that does not normalize
// to eight digits scores 0.0. Symmetric in its arguments.
func DateSimilarity(date1, date2 string) float64 {
	if date1 == "" || date2 == "" {
		return 0.0
	}
	n1 := NormalizeDate(date1)
	n2 := NormalizeDate(date2)
	if n1 == n2 {
		return 1.0
	}
	return digitSimilarity(stripHyphens(n1), stripHyphens(n2))
}

// IsFuzzyDateMatch reports whether two dates are similar enough to be the
// same date with a transcription error.
func IsFuzzyDateMatch(date1, date2 string, threshold float64) bool {
	return DateSimilarity(date1, date2) >= threshold
}

func digitSimilarity(digits1, digits2 string) float64 {
	if len(digits1) != 8 || len(digits2) != 8 {
		return 0.0
	}

	var score, total float64
	for i := 0; i < 8; i++ {
		d1, d2 := digits1[i], digits2[i]
		weight := positionWeights[i]
		total += weight

		switch {
		case d1 == d2:
			score += weight
		case isConfusable(d1, d2) || isConfusable(d2, d1):
			score += weight * 0.5
		}
	}
	return score / total
}

func isConfusable(a, b byte) bool {
	set, ok := confusables[a]
	if !ok {
		return false
	}
	for i := 0; i < len(set); i++ {
		if set[i] == b {
			return true
		}
	}
	return false
}

func stripHyphens(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '-' {
			out = append(out, s[i])
		}
	}
	return string(out)
}
