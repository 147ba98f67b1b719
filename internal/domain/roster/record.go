package roster

// ContentType is the classification tag supplied by the upstream classifier.
// The pipeline trusts it as given.
type ContentType string

const (
	ContentTabularMarkup ContentType = "tabular-markup"
	ContentSpreadsheet   ContentType = "spreadsheet"
	ContentPDFNative     ContentType = "pdf-native"
	ContentPDFScanned    ContentType = "pdf-scanned"
	ContentPlainText     ContentType = "plain-text"
)

// ExtractionMethod records the provenance of a row.
type ExtractionMethod string

const (
	MethodRule   ExtractionMethod = "rule"
	MethodAssist ExtractionMethod = "assist"
	MethodManual ExtractionMethod = "manual-edit"
)

// FieldMap holds one row's values keyed by schema column. Iteration order is
// defined by Columns, never by map order.
type FieldMap map[string]string

// Record is one canonical output row within a version.
type Record struct {
	RowIndex   int
	Fields     FieldMap
	Confidence float64
	Method     ExtractionMethod
}

// Clone returns a deep copy so edits never alias stored snapshots.
func (f FieldMap) Clone() FieldMap {
	out := make(FieldMap, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// NewFieldMap returns a field map with every schema column present.
func NewFieldMap() FieldMap {
	f := make(FieldMap, len(Columns))
	for _, c := range Columns {
		f[c] = ""
	}
	return f
}

func CloneRecords(rows []Record) []Record {
	out := make([]Record, len(rows))
	for i, r := range rows {
		out[i] = Record{
			RowIndex:   r.RowIndex,
			Fields:     r.Fields.Clone(),
			Confidence: r.Confidence,
			Method:     r.Method,
		}
	}
	return out
}
