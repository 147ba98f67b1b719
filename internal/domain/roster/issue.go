package roster

// Severity classifies a validation finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue is a validation finding attached to a version, row, or field.
// RowIndex is nil for job-level issues; Field is empty for row-level issues.
type Issue struct {
	RowIndex     *int
	Field        string
	Severity     Severity
	Message      string
	SuggestedFix string
}

// HasErrors reports whether any issue is error-severity. The state machine
// uses this to decide needs_review versus ready.
func HasErrors(issues []Issue) bool {
	for _, is := range issues {
		if is.Severity == SeverityError {
			return true
		}
	}
	return false
}

// RowRef is a convenience for building row-scoped issues.
func RowRef(idx int) *int {
	i := idx
	return &i
}
