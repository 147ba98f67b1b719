package validate

import (
	"strings"
	"testing"
	"time"

	"rosterflow/internal/domain/normalize"
	"rosterflow/internal/domain/roster"
)

func testRow(idx int, overrides map[string]string) roster.Record {
	fields := roster.NewFieldMap()
	fields["Provider NPI"] = "1234567893"
	fields["Provider Name"] = "Jane Doe"
	fields["Provider Specialty"] = "Cardiology"
	fields["Effective Date"] = "01/15/2024"
	for k, v := range overrides {
		fields[k] = v
	}
	return roster.Record{RowIndex: idx, Fields: fields, Confidence: 1, Method: roster.MethodRule}
}

func testConfig() Config {
	return Config{Now: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)}
}

func findIssue(t *testing.T, issues []roster.Issue, field string, sev roster.Severity) roster.Issue {
	t.Helper()
	for _, is := range issues {
		if is.Field == field && is.Severity == sev {
			return is
		}
	}
	t.Fatalf("no %s issue for field %q in %+v", sev, field, issues)
	return roster.Issue{}
}

func TestRunCleanRowHasNoIssues(t *testing.T) {
	issues := Run([]roster.Record{testRow(0, nil)}, nil, testConfig())
	if len(issues) != 0 {
		t.Fatalf("expected no issues, got %+v", issues)
	}
}

func TestCompleteness(t *testing.T) {
	rows := []roster.Record{testRow(0, map[string]string{"Provider Name": "", "Provider Specialty": ""})}
	issues := Run(rows, nil, testConfig())

	findIssue(t, issues, "Provider Name", roster.SeverityError)
	findIssue(t, issues, "Provider Specialty", roster.SeverityError)
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %d: %+v", len(issues), issues)
	}
}

func TestIdentifierLengthIsError(t *testing.T) {
	rows := []roster.Record{testRow(0, map[string]string{"Provider NPI": "12345"})}
	is := findIssue(t, Run(rows, nil, testConfig()), "Provider NPI", roster.SeverityError)
	if is.SuggestedFix == "" {
		t.Fatalf("length issue should carry a suggested fix")
	}
}

func TestIdentifierChecksumIsWarning(t *testing.T) {
	rows := []roster.Record{testRow(0, map[string]string{"Provider NPI": "1234567894"})}
	issues := Run(rows, nil, testConfig())

	findIssue(t, issues, "Provider NPI", roster.SeverityWarning)
	if roster.HasErrors(issues) {
		t.Fatalf("checksum failure must not be error-severity: %+v", issues)
	}
}

func TestDuplicateIdentifierReferencesBothRows(t *testing.T) {
	rows := []roster.Record{
		testRow(0, nil),
		testRow(1, map[string]string{"Provider Name": "John Roe"}),
	}
	is := findIssue(t, Run(rows, nil, testConfig()), "Provider NPI", roster.SeverityWarning)
	if is.RowIndex == nil || *is.RowIndex != 1 {
		t.Fatalf("duplicate issue should sit on the second row, got %+v", is)
	}
	if want := "already appears at row 0 (row 0 wins)"; !strings.Contains(is.Message, want) {
		t.Fatalf("message %q missing %q", is.Message, want)
	}
}

func TestDuplicateWinnerLast(t *testing.T) {
	rows := []roster.Record{testRow(0, nil), testRow(1, nil)}
	cfg := testConfig()
	cfg.DuplicateWinner = WinnerLast

	is := findIssue(t, Run(rows, nil, cfg), "Provider NPI", roster.SeverityWarning)
	if !strings.Contains(is.Message, "(row 1 wins)") {
		t.Fatalf("expected last row to win, message %q", is.Message)
	}
}

func TestFailedDateDeltaIsError(t *testing.T) {
	rows := []roster.Record{testRow(0, map[string]string{"Term Date": "not a date"})}
	deltas := []normalize.Delta{{
		RowIndex: 0, Field: "Term Date", Original: "not a date", Failed: true,
	}}
	findIssue(t, Run(rows, deltas, testConfig()), "Term Date", roster.SeverityError)
}

func TestFailedPhoneDeltaIsWarning(t *testing.T) {
	rows := []roster.Record{testRow(0, map[string]string{"Phone Number": "12"})}
	deltas := []normalize.Delta{{
		RowIndex: 0, Field: "Phone Number", Original: "12", Failed: true,
	}}
	issues := Run(rows, deltas, testConfig())
	findIssue(t, issues, "Phone Number", roster.SeverityWarning)
	if roster.HasErrors(issues) {
		t.Fatalf("phone failure must stay warning-severity: %+v", issues)
	}
}

func TestLowConfidenceAddressWarning(t *testing.T) {
	rows := []roster.Record{testRow(0, map[string]string{"Complete Address": "somewhere downtown"})}
	deltas := []normalize.Delta{{
		RowIndex: 0, Field: "Complete Address",
		Original: "somewhere downtown", Normalized: "somewhere downtown", Confidence: 0.4,
	}}
	findIssue(t, Run(rows, deltas, testConfig()), "Complete Address", roster.SeverityWarning)
}

func TestTermBeforeEffective(t *testing.T) {
	rows := []roster.Record{testRow(0, map[string]string{
		"Effective Date": "06/01/2024",
		"Term Date":      "01/01/2024",
	})}
	findIssue(t, Run(rows, nil, testConfig()), "Term Date", roster.SeverityError)
}

func TestFutureEffectiveDate(t *testing.T) {
	rows := []roster.Record{testRow(0, map[string]string{"Effective Date": "01/01/2030"})}
	findIssue(t, Run(rows, nil, testConfig()), "Effective Date", roster.SeverityError)
}

// Adding rows never removes findings about existing rows.
func TestMonotonicOverRows(t *testing.T) {
	bad := testRow(0, map[string]string{"Provider NPI": "12345"})
	base := Run([]roster.Record{bad}, nil, testConfig())

	extended := Run([]roster.Record{bad, testRow(1, nil)}, nil, testConfig())
	if len(extended) < len(base) {
		t.Fatalf("adding a row dropped findings: %d -> %d", len(base), len(extended))
	}
	findIssue(t, extended, "Provider NPI", roster.SeverityError)
}
