package extract

import (
	"bytes"
	"context"

	"github.com/xuri/excelize/v2"

	"rosterflow/internal/domain/roster"
	"rosterflow/internal/errs"
)

const spreadsheetBaseConfidence = 0.95

// Spreadsheet extracts rows from workbook documents. The first sheet with a
// header row plus at least one data row is used.
type Spreadsheet struct{}

func NewSpreadsheet() *Spreadsheet {
	return &Spreadsheet{}
}

func (s *Spreadsheet) Name() string {
	return "spreadsheet"
}

func (s *Spreadsheet) TryExtract(ctx context.Context, doc Document) ([]roster.Record, float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	grid, err := s.grid(doc)
	if err != nil {
		return nil, 0, err
	}
	if grid == nil {
		return nil, 0, nil
	}

	records := recordsFromTable(grid, spreadsheetBaseConfidence, roster.MethodRule)
	return records, roster.AggregateConfidence(records), nil
}

func (s *Spreadsheet) RenderText(doc Document) (string, error) {
	grid, err := s.grid(doc)
	if err != nil {
		return "", err
	}
	return gridText(grid), nil
}

func (s *Spreadsheet) grid(doc Document) ([][]string, error) {
	book, err := excelize.OpenReader(bytes.NewReader(doc.Data))
	if err != nil {
		return nil, errs.Wrap(err, "open workbook")
	}
	defer book.Close()

	for _, sheet := range book.GetSheetList() {
		rows, err := book.GetRows(sheet)
		if err != nil {
			continue
		}
		if len(rows) > 1 {
			return rows, nil
		}
	}
	return nil, nil
}
