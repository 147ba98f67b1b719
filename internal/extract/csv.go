package extract

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"

	"rosterflow/internal/domain/roster"
	"rosterflow/internal/errs"
)

const csvBaseConfidence = 0.95

// CSV extracts rows from delimiter-separated documents. Ragged rows are
// tolerated; the header mapper decides what each cell means.
type CSV struct{}

func NewCSV() *CSV {
	return &CSV{}
}

func (s *CSV) Name() string {
	return "csv"
}

func (s *CSV) TryExtract(ctx context.Context, doc Document) ([]roster.Record, float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	reader := csv.NewReader(bytes.NewReader(doc.Data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var grid [][]string
	for {
		cells, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, errs.Wrap(err, "read csv")
		}
		grid = append(grid, cells)
	}
	if len(grid) < 2 {
		return nil, 0, nil
	}

	records := recordsFromTable(grid, csvBaseConfidence, roster.MethodRule)
	return records, roster.AggregateConfidence(records), nil
}
