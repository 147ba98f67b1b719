package normalize

import "strings"

// Phone canonicalizes a US phone number to +1 followed by ten digits.
// Returns ok=false when the input cannot be reduced to a valid number;
// callers keep the original value and flag it instead.
func Phone(raw string) (string, bool) {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()

	switch {
	case len(d) == 11 && d[0] == '1':
		d = d[1:]
	case len(d) == 10:
		// already national
	default:
		return "", false
	}

	// NANP: area code and exchange cannot start with 0 or 1.
	if d[0] == '0' || d[0] == '1' || d[3] == '0' || d[3] == '1' {
		return "", false
	}

	return "+1" + d, true
}

// PhoneDisplay renders a canonical number as (XXX) XXX-XXXX for humans.
// Non-canonical input is returned unchanged.
func PhoneDisplay(canonical string) string {
	if !strings.HasPrefix(canonical, "+1") || len(canonical) != 12 {
		return canonical
	}
	d := canonical[2:]
	return "(" + d[:3] + ") " + d[3:6] + "-" + d[6:]
}
