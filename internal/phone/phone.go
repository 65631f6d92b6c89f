// Package phone normalizes raw phone numbers into CRM lookup variants.
package phone

import "strings"

// Normalized is the result of normalizing one raw phone number. Variants is
// ordered most-likely-to-match first and contains no duplicates. When Valid
// is false, Variants holds exactly the stripped digit string.
type Normalized struct {
	Variants []string
	Valid    bool
}

// Normalize strips a raw phone number down to digits and derives the ordered
// set of representations the CRM may have indexed it under:
//
//  1. country-coded digits (a bare 10-digit number is assumed US and
//     prefixed with "1")
//  2. national digits, when the number is an 11-digit US number
//  3. the "+"-prefixed country-coded form
//
// Ordering only affects lookup latency; the first variant to hit wins.
func Normalize(raw string) Normalized {
	digits := stripNonDigits(raw)

	if len(digits) < 10 {
		return Normalized{Variants: []string{digits}, Valid: false}
	}

	var countryCoded string
	switch {
	case len(digits) == 10:
		countryCoded = "1" + digits
	default:
		// 11+ digits either already carry the US country code or belong
		// to a non-US number with its own; use as-is either way.
		countryCoded = digits
	}

	candidates := []string{countryCoded}
	if len(countryCoded) == 11 && strings.HasPrefix(countryCoded, "1") {
		candidates = append(candidates, countryCoded[1:])
	}
	candidates = append(candidates, "+"+countryCoded)

	return Normalized{Variants: dedupe(candidates), Valid: true}
}

func stripNonDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
