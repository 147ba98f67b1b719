package ports

import "time"

// TimeLayout is the canonical persisted timestamp format. Fixed-width
// fractional seconds, unlike RFC3339Nano, so lexical ordering of stored
// strings matches time ordering.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Now returns the current UTC time in the persisted format.
func Now() string {
	return time.Now().UTC().Format(TimeLayout)
}

// ParseTime reads a persisted timestamp back.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(TimeLayout, s)
}
