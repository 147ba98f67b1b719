// Package exporter writes the fixed-schema roster workbook. The checksum is
// computed over a canonical serialization of the cell values, not the
// workbook bytes, so re-exporting the same version always yields the same
// checksum even though zip containers are not reproducible.
package exporter

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"rosterflow/internal/domain/roster"
	"rosterflow/internal/errs"
)

const (
	sheetName       = "Roster"
	provenanceSheet = "_provenance"
)

// Provenance is stamped into a hidden sheet so a workbook can always be
// traced back to the exact version it was cut from.
type Provenance struct {
	JobID        uint64
	VersionID    uint64
	DocumentRef  string
	ExportedAt   string
	StageTimings map[string]int64
}

// Workbook is a rendered export ready to be persisted.
type Workbook struct {
	Data     []byte
	Checksum string
	RowCount int
}

// Render builds the workbook for a record set. Required columns that are
// empty get the explicit missing marker; nothing is ever silently blank.
func Render(records []roster.Record, prov Provenance) (*Workbook, error) {
	book := excelize.NewFile()
	defer book.Close()

	index, err := book.NewSheet(sheetName)
	if err != nil {
		return nil, errs.Wrap(err, "create sheet")
	}
	book.SetActiveSheet(index)
	if err := book.DeleteSheet("Sheet1"); err != nil {
		return nil, errs.Wrap(err, "drop default sheet")
	}

	for col, name := range roster.Columns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, errs.Wrap(err, "header cell name")
		}
		if err := book.SetCellStr(sheetName, cell, name); err != nil {
			return nil, errs.Wrap(err, "write header")
		}
	}

	dateFmt := "mm/dd/yyyy"
	dateStyle, err := book.NewStyle(&excelize.Style{CustomNumFmt: &dateFmt})
	if err != nil {
		return nil, errs.Wrap(err, "date style")
	}

	grid := canonicalGrid(records)
	for rowIdx, cells := range grid {
		for col, value := range cells {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			if err != nil {
				return nil, errs.Wrap(err, "cell name")
			}
			// Date columns become real date cells; everything else goes in
			// as a string so identifiers and zips keep leading zeros.
			if roster.DateColumns[roster.Columns[col]] {
				if when, perr := time.Parse("01/02/2006", value); perr == nil {
					if err := book.SetCellValue(sheetName, cell, when); err != nil {
						return nil, errs.Wrap(err, "write date cell")
					}
					if err := book.SetCellStyle(sheetName, cell, cell, dateStyle); err != nil {
						return nil, errs.Wrap(err, "style date cell")
					}
					continue
				}
			}
			if err := book.SetCellStr(sheetName, cell, value); err != nil {
				return nil, errs.Wrap(err, "write cell")
			}
		}
	}

	if err := writeProvenance(book, prov, Checksum(records)); err != nil {
		return nil, err
	}

	raw, err := book.WriteToBuffer()
	if err != nil {
		return nil, errs.Wrap(err, "serialize workbook")
	}

	return &Workbook{
		Data:     raw.Bytes(),
		Checksum: Checksum(records),
		RowCount: len(grid),
	}, nil
}

// Checksum hashes the canonical cell grid. Two exports of the same records
// always agree, regardless of when or where they were rendered.
func Checksum(records []roster.Record) string {
	h := sha256.New()
	h.Write([]byte(strings.Join(roster.Columns, "\x1f")))
	h.Write([]byte{'\x1e'})
	for _, cells := range canonicalGrid(records) {
		h.Write([]byte(strings.Join(cells, "\x1f")))
		h.Write([]byte{'\x1e'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// canonicalGrid lays records out in fixed column order with missing markers
// applied. Both the workbook body and the checksum derive from it.
func canonicalGrid(records []roster.Record) [][]string {
	grid := make([][]string, 0, len(records))
	for _, rec := range records {
		cells := make([]string, len(roster.Columns))
		for i, col := range roster.Columns {
			value := rec.Fields[col]
			if value == "" && roster.IsRequired(col) {
				value = roster.MissingMarker
			}
			cells[i] = value
		}
		grid = append(grid, cells)
	}
	return grid
}

func writeProvenance(book *excelize.File, prov Provenance, checksum string) error {
	if _, err := book.NewSheet(provenanceSheet); err != nil {
		return errs.Wrap(err, "create provenance sheet")
	}

	rows := [][]interface{}{
		{"job_id", prov.JobID},
		{"version_id", prov.VersionID},
		{"document_ref", prov.DocumentRef},
		{"exported_at", prov.ExportedAt},
		{"content_checksum", checksum},
	}
	stages := make([]string, 0, len(prov.StageTimings))
	for stage := range prov.StageTimings {
		stages = append(stages, stage)
	}
	sort.Strings(stages)
	for _, stage := range stages {
		rows = append(rows, []interface{}{"stage_ms:" + stage, prov.StageTimings[stage]})
	}
	for i, row := range rows {
		keyCell, _ := excelize.CoordinatesToCellName(1, i+1)
		valCell, _ := excelize.CoordinatesToCellName(2, i+1)
		if err := book.SetCellValue(provenanceSheet, keyCell, row[0]); err != nil {
			return errs.Wrap(err, "write provenance key")
		}
		if err := book.SetCellValue(provenanceSheet, valCell, row[1]); err != nil {
			return errs.Wrap(err, "write provenance value")
		}
	}

	visible := false
	if err := book.SetSheetVisible(provenanceSheet, visible); err != nil {
		return errs.Wrap(err, "hide provenance sheet")
	}
	return nil
}
