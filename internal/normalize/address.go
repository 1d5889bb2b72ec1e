package normalize

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"

	"github.com/sepa-leadgen/internal/debug"
)

// streetSuffixes are dropped from match keys so "123 Main St" and
// "123 Main Street" compare equal.
var streetSuffixes = map[string]bool{
	"ST": true, "STREET": true,
	"AVE": true, "AVENUE": true,
	"RD": true, "ROAD": true,
	"BLVD": true, "BOULEVARD": true,
	"DR": true, "DRIVE": true,
	"LN": true, "LANE": true,
	"CT": true, "COURT": true,
	"PL": true, "PLACE": true,
}

// legalForms are company registration tokens that say nothing about which
// facility a record describes.
var legalForms = map[string]bool{
	"LLC": true, "INC": true, "INCORPORATED": true,
	"CORP": true, "CORPORATION": true,
	"CO": true, "COMPANY": true,
	"LTD": true, "LIMITED": true,
	"LP": true, "LLP": true, "PC": true,
}

// stripPunctuation uppercases s, removes every rune that is not a letter,
// digit or space, and collapses whitespace.
func stripPunctuation(s string) string {
	b := strings.Builder{}
	b.Grow(len(s))
	for _, r := range strings.ToUpper(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func dropTokens(s string, stop ...map[string]bool) string {
	words := strings.Fields(s)
	kept := words[:0]
	for _, w := range words {
		drop := false
		for _, m := range stop {
			if m[w] {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// MatchKey canonicalises a free-text name or address for comparison:
// uppercase, punctuation removed, whitespace collapsed, street suffixes
// dropped. Empty input gives an empty key.
func MatchKey(text string) string {
	return MatchKeyDebug(false, text)
}

// MatchKeyDebug is MatchKey with optional debug output
func MatchKeyDebug(localDebug bool, text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	s := stripPunctuation(text)
	debug.DebugOutput(localDebug, "After punctuation removal: %s", s)

	s = dropTokens(s, streetSuffixes)
	debug.DebugOutput(localDebug, "Match key: %s", s)
	return s
}

// CompanyKey is MatchKey with legal-form tokens (LLC, INC, ...) removed as
// well. Used when comparing facility names within a spatial bucket.
func CompanyKey(name string) string {
	if strings.TrimSpace(name) == "" {
		return ""
	}
	return dropTokens(stripPunctuation(name), streetSuffixes, legalForms)
}

// Similarity is a normalised edit-distance ratio on a 0-100 scale. It is
// symmetric and case-insensitive; two empty strings are identical.
func Similarity(a, b string) float64 {
	ra := []rune(strings.ToUpper(a))
	rb := []rune(strings.ToUpper(b))
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 100
	}
	d := levenshtein.ComputeDistance(string(ra), string(rb))
	return 100 * (1 - float64(d)/float64(longest))
}

// FullAddress joins the non-empty address parts with ", ".
func FullAddress(line1, line2, city, state, zip, country string) string {
	parts := make([]string, 0, 6)
	for _, p := range []string{line1, line2, city, state, zip, country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// IsBlank checks if a name or address is effectively blank after normalisation
func IsBlank(s string) bool {
	return stripPunctuation(s) == ""
}
