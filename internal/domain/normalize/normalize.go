// Package normalize holds the pure field-level canonicalizers applied to every
// record before validation. Normalizers never drop a value: on parse failure
// the original string is kept and the delta carries a failed marker that the
// validation rules consume.
package normalize

import (
	"strings"

	"rosterflow/internal/domain/roster"
)

// DateOrder resolves ambiguous NN/NN/YYYY input.
type DateOrder string

const (
	MonthFirst DateOrder = "MDY"
	DayFirst   DateOrder = "DMY"
)

// Policy is injected per sender; the engine itself decides nothing.
type Policy struct {
	DateOrder DateOrder
}

func (p Policy) dateOrder() DateOrder {
	if p.DateOrder == DayFirst {
		return DayFirst
	}
	return MonthFirst
}

// Delta records one field transformation, including failures.
type Delta struct {
	RowIndex   int
	Field      string
	Original   string
	Normalized string
	Failed     bool
	Confidence float64
	Message    string
}

// Row canonicalizes one record's fields. Idempotent: running it on its own
// output yields the same field map and no failure deltas beyond the first run.
func Row(fields roster.FieldMap, rowIdx int, policy Policy) (roster.FieldMap, []Delta) {
	out := roster.NewFieldMap()
	var deltas []Delta

	note := func(field, original, normalized string, failed bool, confidence float64, msg string) {
		deltas = append(deltas, Delta{
			RowIndex:   rowIdx,
			Field:      field,
			Original:   original,
			Normalized: normalized,
			Failed:     failed,
			Confidence: confidence,
			Message:    msg,
		})
	}

	for _, col := range roster.Columns {
		raw := strings.TrimSpace(fields[col])
		if raw == "" {
			continue
		}

		switch col {
		case "Provider NPI", "Group NPI":
			digits, valid := NPI(raw)
			out[col] = digits
			if digits != raw {
				note(col, raw, digits, false, 1, "identifier reduced to digits")
			}
			if !valid {
				note(col, raw, digits, true, 0, "identifier checksum mismatch")
			}
		case "Phone Number", "Fax Number":
			canonical, ok := Phone(raw)
			if ok {
				out[col] = canonical
				if canonical != raw {
					note(col, raw, canonical, false, 1, "phone canonicalized")
				}
			} else {
				out[col] = raw
				note(col, raw, raw, true, 0, "phone not parseable")
			}
		case "Effective Date", "Term Date":
			canonical, ok := Date(raw, policy.dateOrder())
			if ok {
				out[col] = canonical
				if canonical != raw {
					note(col, raw, canonical, false, 1, "date canonicalized")
				}
			} else {
				out[col] = raw
				note(col, raw, raw, true, 0, "date not parseable")
			}
		case "Complete Address":
			canonical, confidence := Address(raw)
			out[col] = canonical
			if canonical != raw || confidence < 1 {
				note(col, raw, canonical, false, confidence, "address parsed")
			}
		default:
			out[col] = collapseSpaces(raw)
		}
	}

	return out, deltas
}

// FailedFields indexes failure deltas by row and field for the validator.
func FailedFields(deltas []Delta) map[int]map[string]Delta {
	out := make(map[int]map[string]Delta)
	for _, d := range deltas {
		if !d.Failed {
			continue
		}
		byField, ok := out[d.RowIndex]
		if !ok {
			byField = make(map[string]Delta)
			out[d.RowIndex] = byField
		}
		byField[d.Field] = d
	}
	return out
}

// LowConfidence returns address (and similar) deltas below the threshold.
func LowConfidence(deltas []Delta, threshold float64) []Delta {
	var out []Delta
	for _, d := range deltas {
		if !d.Failed && d.Confidence > 0 && d.Confidence < threshold {
			out = append(out, d)
		}
	}
	return out
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
