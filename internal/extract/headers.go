package extract

import (
	"regexp"
	"strings"

	"rosterflow/internal/domain/roster"
)

var headerCleanRe = regexp.MustCompile(`[:#*]`)

// headerSynonyms maps cleaned source headers to canonical columns. Order
// matters: more specific phrases are checked before their substrings, e.g.
// "group npi" before "npi".
var headerSynonyms = []struct {
	Phrase string
	Column string
}{
	{"transaction type", "Transaction Type"},
	{"transaction attribute", "Transaction Attribute"},
	{"provider type", "Transaction Attribute"},
	{"effective date", "Effective Date"},
	{"start date", "Effective Date"},
	{"term date", "Term Date"},
	{"termination date", "Term Date"},
	{"end date", "Term Date"},
	{"term reason", "Term Reason"},
	{"reason", "Term Reason"},
	{"provider name", "Provider Name"},
	{"practitioner name", "Provider Name"},
	{"physician name", "Provider Name"},
	{"group npi", "Group NPI"},
	{"organization npi", "Group NPI"},
	{"provider npi", "Provider NPI"},
	{"npi", "Provider NPI"},
	{"specialty", "Provider Specialty"},
	{"state license", "State License"},
	{"license", "State License"},
	{"organization name", "Organization Name"},
	{"group name", "Organization Name"},
	{"practice name", "Organization Name"},
	{"tin", "TIN"},
	{"tax id", "TIN"},
	{"complete address", "Complete Address"},
	{"address", "Complete Address"},
	{"phone", "Phone Number"},
	{"telephone", "Phone Number"},
	{"fax", "Fax Number"},
	{"ppg", "PPG ID"},
	{"line of business", "Line Of Business"},
	{"lob", "Line Of Business"},
}

// canonicalHeader maps a raw source header to a roster column, or "" when
// nothing matches.
func canonicalHeader(raw string) string {
	cleaned := strings.ToLower(strings.TrimSpace(headerCleanRe.ReplaceAllString(raw, "")))
	if cleaned == "" {
		return ""
	}
	if roster.IsColumn(strings.TrimSpace(raw)) {
		return strings.TrimSpace(raw)
	}
	for _, syn := range headerSynonyms {
		if strings.Contains(cleaned, syn.Phrase) {
			return syn.Column
		}
	}
	return ""
}

// mapHeaders resolves a whole header row. The bool reports whether enough
// headers mapped for the table to be treated as column-addressed.
func mapHeaders(raw []string) ([]string, bool) {
	mapped := make([]string, len(raw))
	matches := 0
	for i, h := range raw {
		mapped[i] = canonicalHeader(h)
		if mapped[i] != "" {
			matches++
		}
	}
	return mapped, matches >= 2
}

// rosterTerms are used when scoring candidate tables in a document that
// contains several.
var rosterTerms = []string{
	"npi", "provider", "specialty", "name", "phone", "address", "terminate", "effective",
}

func rosterTermMatches(text string) int {
	lower := strings.ToLower(text)
	n := 0
	for _, term := range rosterTerms {
		if strings.Contains(lower, term) {
			n++
		}
	}
	return n
}
