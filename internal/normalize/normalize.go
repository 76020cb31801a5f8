// Package normalize turns free-text city names, state codes and price text
// into the canonical forms the rest of the pipeline compares and joins on.
// Every function here is pure; the registry and the resolver must compute
// keys with the same code path so that both sides of a lookup agree.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes to NFD and removes combining marks, so that
// "São Paulo" and "Sao Paulo" produce the same key.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Key produces a normalized key suitable for equality comparison across
// sources with inconsistent casing, accenting and whitespace. Total over any
// input, and idempotent.
func Key(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}
	return strings.Join(strings.Fields(s), " ")
}

// StateCode normalizes a raw UF value to an upper-case two-letter
// abbreviation. Anything that is not two letters comes back empty.
func StateCode(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != 2 {
		return ""
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return ""
		}
	}
	return s
}

var priceToken = regexp.MustCompile(`[0-9][0-9.,]*`)

// ParsePrice extracts a Brazilian-format currency amount from free text.
// "R$ 1.234,56" parses to 1234.56; text with no numeric content, such as
// "a combinar", returns ok=false. A failed parse is an absent value, never
// zero.
func ParsePrice(raw string) (float64, bool) {
	token := priceToken.FindString(raw)
	if token == "" {
		return 0, false
	}
	token = strings.Trim(token, ".,")

	hasComma := strings.Contains(token, ",")
	hasDot := strings.Contains(token, ".")

	switch {
	case hasComma:
		// Comma is the decimal separator; any dots are thousands separators.
		token = strings.ReplaceAll(token, ".", "")
		token = strings.ReplaceAll(token, ",", ".")
	case hasDot && dotsAreThousands(token):
		token = strings.ReplaceAll(token, ".", "")
	}

	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// dotsAreThousands reports whether every dot in the token is followed by a
// group of exactly three digits, as in "1.234" or "1.234.567". A trailing
// group of any other width means the dot is a decimal point ("180.5").
func dotsAreThousands(token string) bool {
	parts := strings.Split(token, ".")
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return false
		}
	}
	return true
}
