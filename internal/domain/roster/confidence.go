package roster

// RequiredFillRate is the fraction of required columns with non-empty values.
func RequiredFillRate(fields FieldMap) float64 {
	if len(RequiredColumns) == 0 {
		return 1
	}
	filled := 0
	for _, c := range RequiredColumns {
		if fields[c] != "" {
			filled++
		}
	}
	return float64(filled) / float64(len(RequiredColumns))
}

// AggregateConfidence averages per-row confidence over a row set.
func AggregateConfidence(rows []Record) float64 {
	if len(rows) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range rows {
		sum += r.Confidence
	}
	return sum / float64(len(rows))
}

// ShouldEscalate is the single escalation decision: a document whose
// aggregate structural confidence falls below the configured threshold is
// handed to the assist strategy as a whole.
func ShouldEscalate(confidence, threshold float64) bool {
	return confidence < threshold
}
