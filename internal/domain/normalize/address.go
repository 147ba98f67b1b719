package normalize

import (
	"regexp"
	"strings"
)

var (
	zipRe   = regexp.MustCompile(`\b(\d{5})(?:-\d{4})?\b`)
	stateRe = regexp.MustCompile(`\b(A[KLRZ]|C[AOT]|D[CE]|FL|GA|HI|I[ADLN]|K[SY]|LA|M[ADEINOST]|N[CDEHJMVY]|O[HKR]|PA|RI|S[CD]|T[NX]|UT|V[AT]|W[AIVY])\b`)
	unitRe  = regexp.MustCompile(`(?i)\b(suite|ste|unit|apt|bldg|floor|fl|#)\.?\s*([\w-]+)`)
)

var streetSuffixes = map[string]string{
	"street": "St", "st": "St",
	"avenue": "Ave", "ave": "Ave",
	"boulevard": "Blvd", "blvd": "Blvd",
	"drive": "Dr", "dr": "Dr",
	"road": "Rd", "rd": "Rd",
	"lane": "Ln", "ln": "Ln",
	"court": "Ct", "ct": "Ct",
	"place": "Pl", "pl": "Pl",
	"parkway": "Pkwy", "pkwy": "Pkwy",
	"way":    "Way",
	"circle": "Cir", "cir": "Cir",
	"highway": "Hwy", "hwy": "Hwy",
}

// Address splits a free-form US address into components and rejoins them in a
// canonical comma-separated order. Parses that miss core components keep the
// raw string (collapsed whitespace only) and report reduced confidence; the
// value is retained as best effort, never rejected.
func Address(raw string) (string, float64) {
	s := collapseSpaces(raw)
	if s == "" {
		return "", 0
	}

	hasNumber := false
	for _, r := range s {
		if r >= '0' && r <= '9' {
			hasNumber = true
			break
		}
	}

	zip := zipRe.FindString(s)
	state := stateRe.FindString(strings.ToUpper(s))

	confidence := 0.4
	if hasNumber {
		confidence += 0.2
	}
	if zip != "" {
		confidence += 0.2
	}
	if state != "" {
		confidence += 0.2
	}

	parts := splitAddressParts(s)
	if len(parts) < 2 || !hasNumber {
		// Unstructured parse: keep what we have, at reduced confidence.
		if confidence > 0.5 {
			confidence = 0.5
		}
		return s, confidence
	}

	for i, p := range parts {
		parts[i] = canonicalStreetPart(p)
	}
	return strings.Join(parts, ", "), confidence
}

func splitAddressParts(s string) []string {
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = collapseSpaces(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func canonicalStreetPart(part string) string {
	words := strings.Fields(part)
	for i, w := range words {
		key := strings.ToLower(strings.TrimSuffix(w, "."))
		if suffix, ok := streetSuffixes[key]; ok {
			words[i] = suffix
		}
	}
	return strings.Join(words, " ")
}

// AddressComponents exposes the parsed pieces for callers that need them.
type AddressComponents struct {
	Street string
	Unit   string
	City   string
	State  string
	Zip    string
}

// SplitAddress extracts named components on a best-effort basis.
func SplitAddress(raw string) AddressComponents {
	s := collapseSpaces(raw)
	c := AddressComponents{
		Zip:   zipRe.FindString(s),
		State: stateRe.FindString(strings.ToUpper(s)),
	}
	if m := unitRe.FindString(s); m != "" {
		c.Unit = collapseSpaces(m)
	}
	parts := splitAddressParts(s)
	if len(parts) > 0 {
		c.Street = canonicalStreetPart(parts[0])
	}
	if len(parts) > 1 {
		c.City = parts[1]
	}
	return c
}
