package extract

import "rosterflow/internal/domain/roster"

// Registry maps a content type to the deterministic strategies that can
// handle it, in preference order. Scanned PDFs have none: they go straight
// to assist.
type Registry struct {
	strategies map[roster.ContentType][]Strategy
}

func NewRegistry() *Registry {
	return &Registry{
		strategies: map[roster.ContentType][]Strategy{
			roster.ContentTabularMarkup: {NewHTMLTable()},
			roster.ContentSpreadsheet:   {NewSpreadsheet(), NewCSV()},
			roster.ContentPDFNative:     {NewPDFText()},
			roster.ContentPDFScanned:    {},
			roster.ContentPlainText:     {NewPlainText()},
		},
	}
}

func (r *Registry) For(ct roster.ContentType) []Strategy {
	return r.strategies[ct]
}

// Known reports whether the content type is one the pipeline accepts at all.
func (r *Registry) Known(ct roster.ContentType) bool {
	_, ok := r.strategies[ct]
	return ok
}
