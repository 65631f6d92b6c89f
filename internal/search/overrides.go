package search

import (
	"encoding/json"
	"os"
	"strings"
)

// Override is one hardcoded high-priority answer. Any pattern matching the
// query (case-insensitive substring) short-circuits the remote search.
// Entries are checked in order, so more specific patterns must come before
// more general ones: "notarize at a bank" has to win over a generic
// "notarize" match.
type Override struct {
	Patterns []string `json:"patterns"`
	Answer   string   `json:"answer"`
}

// DefaultOverrides is the built-in product table covering topics the remote
// search is known to mis-answer or answer too slowly.
func DefaultOverrides() []Override {
	return []Override{
		{
			Patterns: []string{
				"notarize at a bank",
				"bank notary",
				"different notary",
				"my own notary",
				"local notary",
				"notarize somewhere else",
			},
			Answer: "Unfortunately, we can't accept notarization done at a bank or by an outside notary. Your Form 1583 has to be notarized through our free online notary session, which takes about five minutes to schedule from your account dashboard.",
		},
		{
			Patterns: []string{
				"how do i notarize",
				"notarization process",
				"schedule a notary",
			},
			Answer: "To notarize your Form 1583, log in to your account dashboard, pick Schedule Notary Session, and choose a time. The online session is free and usually takes under ten minutes.",
		},
		{
			Patterns: []string{
				"international customer",
				"outside the united states",
				"outside the us",
				"from another country",
				"not a us citizen",
			},
			Answer: "International customers are welcome. You'll need two forms of ID, and a passport counts as the primary one. The notary session works the same way from any country, and we ship worldwide.",
		},
		{
			Patterns: []string{
				"secondary recipient",
				"second recipient",
				"add another recipient",
				"additional recipient",
				"add my spouse",
			},
			Answer: "You can add a secondary recipient from your account dashboard under Manage Recipients. Each added adult needs their own Form 1583 and two forms of ID, and there's a small monthly fee per extra recipient.",
		},
	}
}

// LoadOverrides reads an override table from a JSON file, letting product
// supply the answer content without a rebuild.
func LoadOverrides(path string) ([]Override, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var overrides []Override
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, err
	}
	return overrides, nil
}

// matchOverride returns the first override whose pattern appears in query.
func matchOverride(overrides []Override, query string) (Override, bool) {
	q := strings.ToLower(query)
	for _, o := range overrides {
		for _, p := range o.Patterns {
			if strings.Contains(q, strings.ToLower(p)) {
				return o, true
			}
		}
	}
	return Override{}, false
}
