package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// CanonicalDateLayout is the single calendar representation used everywhere
// downstream of normalization.
const CanonicalDateLayout = "01/02/2006"

var canonicalDateRe = regexp.MustCompile(`^(0[1-9]|1[0-2])/(0[1-9]|[12][0-9]|3[01])/\d{4}$`)

var numericDateRe = regexp.MustCompile(`^(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{4})$`)

// Date canonicalizes a date string to MM/DD/YYYY. Ambiguous NN/NN/YYYY input
// is resolved per the injected order; a component above 12 forces the only
// possible reading. Input already in canonical form is accepted as-is, which
// keeps normalization idempotent across re-runs.
func Date(raw string, order DateOrder) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	if canonicalDateRe.MatchString(s) {
		if _, err := time.Parse(CanonicalDateLayout, s); err == nil {
			return s, true
		}
	}

	if m := numericDateRe.FindStringSubmatch(s); m != nil {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])

		month, day := a, b
		switch {
		case a > 12 && b <= 12:
			month, day = b, a
		case b > 12 && a <= 12:
			month, day = a, b
		case order == DayFirst:
			month, day = b, a
		}
		return buildDate(year, month, day)
	}

	// Common textual layouts seen in roster attachments.
	for _, layout := range []string{
		"2006-01-02",
		"January 2, 2006",
		"Jan 2, 2006",
		"2 January 2006",
		"2 Jan 2006",
		"01/02/06",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(CanonicalDateLayout), true
		}
	}

	return "", false
}

func buildDate(year, month, day int) (string, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// reject overflow like 02/31
	if int(t.Month()) != month || t.Day() != day || t.Year() != year {
		return "", false
	}
	return fmt.Sprintf("%02d/%02d/%04d", month, day, year), true
}

// ParseCanonical parses a canonical MM/DD/YYYY value.
func ParseCanonical(s string) (time.Time, error) {
	return time.Parse(CanonicalDateLayout, s)
}
