// Package validate evaluates rule classes over a full normalized record set.
// Findings are Issues, never errors: only the pipeline decides what a finding
// means for the job lifecycle.
package validate

import (
	"fmt"
	"time"

	"rosterflow/internal/domain/normalize"
	"rosterflow/internal/domain/roster"
)

// DuplicateWinner selects which row is kept authoritative when the same
// identifier appears twice. Explicit configuration, not a guess.
type DuplicateWinner string

const (
	WinnerFirst DuplicateWinner = "first"
	WinnerLast  DuplicateWinner = "last"
)

// Config carries the rule parameters. Now anchors "future" checks so the
// engine stays deterministic for a given input.
type Config struct {
	Now                  time.Time
	DuplicateWinner      DuplicateWinner
	AddressLowConfidence float64
}

func (c Config) now() time.Time {
	if c.Now.IsZero() {
		return time.Now().UTC()
	}
	return c.Now
}

func (c Config) addressThreshold() float64 {
	if c.AddressLowConfidence <= 0 {
		return 0.6
	}
	return c.AddressLowConfidence
}

func (c Config) winner() DuplicateWinner {
	if c.DuplicateWinner == WinnerLast {
		return WinnerLast
	}
	return WinnerFirst
}

// Run applies every rule class and returns the combined findings.
// It never mutates the records.
func Run(rows []roster.Record, deltas []normalize.Delta, cfg Config) []roster.Issue {
	var issues []roster.Issue
	failed := normalize.FailedFields(deltas)

	issues = append(issues, completeness(rows)...)
	issues = append(issues, format(rows, failed, deltas, cfg)...)
	issues = append(issues, crossField(rows, cfg)...)
	issues = append(issues, crossRow(rows, cfg)...)

	return issues
}

// completeness: every required column present and non-empty.
func completeness(rows []roster.Record) []roster.Issue {
	var issues []roster.Issue
	for _, row := range rows {
		for _, col := range roster.RequiredColumns {
			if row.Fields[col] == "" {
				issues = append(issues, roster.Issue{
					RowIndex: roster.RowRef(row.RowIndex),
					Field:    col,
					Severity: roster.SeverityError,
					Message:  fmt.Sprintf("required field %q is missing or empty", col),
				})
			}
		}
	}
	return issues
}

// format: normalized values must match their expected shape.
func format(rows []roster.Record, failed map[int]map[string]normalize.Delta, deltas []normalize.Delta, cfg Config) []roster.Issue {
	var issues []roster.Issue

	for _, row := range rows {
		npi := row.Fields[roster.IdentifierColumn]
		if npi != "" {
			digits, valid := normalize.NPI(npi)
			if len(digits) != 10 {
				issues = append(issues, roster.Issue{
					RowIndex:     roster.RowRef(row.RowIndex),
					Field:        roster.IdentifierColumn,
					Severity:     roster.SeverityError,
					Message:      fmt.Sprintf("identifier %q is not 10 digits", npi),
					SuggestedFix: "confirm the provider identifier with the source roster",
				})
			} else if !valid {
				issues = append(issues, roster.Issue{
					RowIndex: roster.RowRef(row.RowIndex),
					Field:    roster.IdentifierColumn,
					Severity: roster.SeverityWarning,
					Message:  fmt.Sprintf("identifier %q fails its checksum", npi),
				})
			}
		}

		byField := failed[row.RowIndex]
		for _, col := range []string{"Effective Date", "Term Date"} {
			if _, bad := byField[col]; bad {
				issues = append(issues, roster.Issue{
					RowIndex: roster.RowRef(row.RowIndex),
					Field:    col,
					Severity: roster.SeverityError,
					Message:  fmt.Sprintf("%s %q is not a recognizable date", col, row.Fields[col]),
				})
			}
		}
		for _, col := range []string{"Phone Number", "Fax Number"} {
			if _, bad := byField[col]; bad {
				issues = append(issues, roster.Issue{
					RowIndex: roster.RowRef(row.RowIndex),
					Field:    col,
					Severity: roster.SeverityWarning,
					Message:  fmt.Sprintf("%s %q could not be canonicalized", col, row.Fields[col]),
				})
			}
		}
	}

	for _, d := range normalize.LowConfidence(deltas, cfg.addressThreshold()) {
		if d.Field != "Complete Address" {
			continue
		}
		issues = append(issues, roster.Issue{
			RowIndex: roster.RowRef(d.RowIndex),
			Field:    d.Field,
			Severity: roster.SeverityWarning,
			Message:  fmt.Sprintf("address parsed with low confidence (%.2f)", d.Confidence),
		})
	}

	return issues
}

// crossField: effective date must not follow termination, and must not be in
// the future (the column records history, not scheduling).
func crossField(rows []roster.Record, cfg Config) []roster.Issue {
	var issues []roster.Issue
	today := cfg.now().Truncate(24 * time.Hour)

	for _, row := range rows {
		effective, effErr := normalize.ParseCanonical(row.Fields["Effective Date"])
		term, termErr := normalize.ParseCanonical(row.Fields["Term Date"])

		if effErr == nil && termErr == nil && effective.After(term) {
			issues = append(issues, roster.Issue{
				RowIndex: roster.RowRef(row.RowIndex),
				Field:    "Term Date",
				Severity: roster.SeverityError,
				Message: fmt.Sprintf("termination %s precedes effective date %s",
					row.Fields["Term Date"], row.Fields["Effective Date"]),
			})
		}
		if effErr == nil && effective.After(today) {
			issues = append(issues, roster.Issue{
				RowIndex: roster.RowRef(row.RowIndex),
				Field:    "Effective Date",
				Severity: roster.SeverityError,
				Message:  fmt.Sprintf("effective date %s is in the future", row.Fields["Effective Date"]),
			})
		}
	}
	return issues
}

// crossRow: duplicate identifiers across the set.
func crossRow(rows []roster.Record, cfg Config) []roster.Issue {
	var issues []roster.Issue
	seen := make(map[string]int)

	for _, row := range rows {
		id := row.Fields[roster.IdentifierColumn]
		if id == "" {
			continue
		}
		if firstIdx, dup := seen[id]; dup {
			kept := firstIdx
			if cfg.winner() == WinnerLast {
				kept = row.RowIndex
			}
			issues = append(issues, roster.Issue{
				RowIndex: roster.RowRef(row.RowIndex),
				Field:    roster.IdentifierColumn,
				Severity: roster.SeverityWarning,
				Message: fmt.Sprintf("identifier %s already appears at row %d (row %d wins)",
					id, firstIdx, kept),
			})
			continue
		}
		seen[id] = row.RowIndex
	}
	return issues
}
