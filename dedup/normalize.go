package dedup

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// abbreviations expands common abbreviations so that "Prof." and
// "Professor" or "Dept." and "Department" compare equal.
var abbreviations = map[string]string{
	"prof":   "professor",
	"assoc":  "associate",
	"asst":   "assistant",
	"univ":   "university",
	"dept":   "department",
	"inst":   "institute",
	"sch":    "school",
	"ctr":    "center",
	"centre": "center",
	"co":     "company",
	"corp":   "corporation",
	"intl":   "international",
}

// honorifics are dropped from name fields.
var honorifics = map[string]bool{
	"dr":        true,
	"mr":        true,
	"mrs":       true,
	"ms":        true,
	"mx":        true,
	"prof":      true,
	"professor": true,
	"phd":       true,
	"jr":        true,
	"sr":        true,
}

// Normalize folds a value for comparison: compatibility decomposition with
// combining marks removed, lowercase, punctuation replaced by spaces,
// abbreviations expanded, and whitespace collapsed.
func Normalize(s string) string {
	return strings.Join(tokens(s, false), " ")
}

// NormalizeName is Normalize with honorifics and degree suffixes removed.
func NormalizeName(s string) string {
	return strings.Join(tokens(s, true), " ")
}

func tokens(s string, name bool) []string {
	folded := fold(s)
	var out []string
	for _, tok := range strings.Fields(folded) {
		if name && honorifics[tok] {
			continue
		}
		if full, ok := abbreviations[tok]; ok {
			tok = full
		}
		out = append(out, tok)
	}
	return out
}

// fold strips diacritics, lowercases, and maps every rune that is not a
// letter or digit to a space. "&" becomes "and".
func fold(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}

	var sb strings.Builder
	sb.Grow(len(stripped))
	for _, r := range stripped {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(unicode.ToLower(r))
		case r == '&':
			sb.WriteString(" and ")
		case r == '\'' || r == '’':
			// O'Brien and O’Brien both fold to obrien.
		default:
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}
