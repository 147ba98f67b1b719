package roster

// Columns is the fixed output schema, in export order. Every record carries
// exactly these fields regardless of what the source document contained.
var Columns = []string{
	"Transaction Type",
	"Transaction Attribute",
	"Effective Date",
	"Term Date",
	"Term Reason",
	"Provider Name",
	"Provider NPI",
	"Provider Specialty",
	"State License",
	"Organization Name",
	"TIN",
	"Group NPI",
	"Complete Address",
	"Phone Number",
	"Fax Number",
	"PPG ID",
	"Line Of Business",
}

// RequiredColumns must be present and non-empty in every record.
var RequiredColumns = []string{
	"Provider NPI",
	"Provider Name",
	"Provider Specialty",
	"Effective Date",
}

// IdentifierColumn is the primary row identifier, used for duplicate
// detection and for matching rows across versions in diffs.
const IdentifierColumn = "Provider NPI"

// MissingMarker is written to required-but-missing export cells so consumers
// cannot mistake missing data for an empty value.
const MissingMarker = "NOT FOUND"

// TextColumns are exported as text cells to preserve leading zeros.
var TextColumns = map[string]bool{
	"Provider NPI":  true,
	"Group NPI":     true,
	"TIN":           true,
	"State License": true,
	"PPG ID":        true,
}

// DateColumns are exported as true date cells.
var DateColumns = map[string]bool{
	"Effective Date": true,
	"Term Date":      true,
}

func IsRequired(column string) bool {
	for _, c := range RequiredColumns {
		if c == column {
			return true
		}
	}
	return false
}

func IsColumn(name string) bool {
	for _, c := range Columns {
		if c == name {
			return true
		}
	}
	return false
}
