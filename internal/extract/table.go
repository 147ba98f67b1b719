package extract

import (
	"strings"

	"rosterflow/internal/domain/roster"
)

// positionalColumns is the column order assumed when a table carries data in
// the conventional layout but no recognizable header row.
var positionalColumns = []string{
	"Provider Name",
	"Provider NPI",
	"Provider Specialty",
	"Transaction Attribute",
	"Term Date",
	"Term Reason",
}

// recordsFromTable converts a rectangular cell grid into records. The first
// row is consumed as a header when it maps to known columns; otherwise rows
// with at least six cells are read positionally.
func recordsFromTable(grid [][]string, base float64, method roster.ExtractionMethod) []roster.Record {
	if len(grid) == 0 {
		return nil
	}

	headers, ok := mapHeaders(grid[0])
	dataRows := grid
	if ok {
		dataRows = grid[1:]
	}

	records := make([]roster.Record, 0, len(dataRows))
	for _, cells := range dataRows {
		fields := roster.NewFieldMap()
		filled := 0

		if ok {
			for i, col := range headers {
				if col == "" || i >= len(cells) {
					continue
				}
				if v := cleanCell(cells[i]); v != "" {
					fields[col] = v
					filled++
				}
			}
		} else if len(cells) >= len(positionalColumns) {
			for i, col := range positionalColumns {
				if v := cleanCell(cells[i]); v != "" {
					fields[col] = v
					filled++
				}
			}
		}

		if filled == 0 {
			continue
		}
		records = append(records, roster.Record{
			RowIndex:   len(records),
			Fields:     fields,
			Confidence: rowConfidence(base, fields),
			Method:     method,
		})
	}
	return records
}

func cleanCell(raw string) string {
	v := strings.TrimSpace(raw)
	switch strings.ToLower(v) {
	case "", "nan", "none", "null", "n/a":
		return ""
	}
	return strings.Join(strings.Fields(v), " ")
}

// gridText flattens a cell grid for assist prompting and table scoring.
func gridText(grid [][]string) string {
	var b strings.Builder
	for _, cells := range grid {
		b.WriteString(strings.Join(cells, "\t"))
		b.WriteByte('\n')
	}
	return b.String()
}
