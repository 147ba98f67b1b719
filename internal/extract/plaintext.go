package extract

import (
	"context"
	"regexp"
	"strings"

	"rosterflow/internal/domain/roster"
)

const textBaseConfidence = 0.75

var multiSpaceRe = regexp.MustCompile(`\s{2,}`)

// PlainText extracts rows from column-aligned or delimited text, the kind
// that arrives pasted into an email body.
type PlainText struct{}

func NewPlainText() *PlainText {
	return &PlainText{}
}

func (s *PlainText) Name() string {
	return "plain-text"
}

func (s *PlainText) TryExtract(ctx context.Context, doc Document) ([]roster.Record, float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	lines := strings.Split(strings.TrimSpace(string(doc.Data)), "\n")
	if len(lines) < 2 {
		return nil, 0, nil
	}

	// The header is the first line that splits into at least two columns.
	headerIdx := -1
	var headers []string
	for i, line := range lines {
		if cells := splitTextLine(line); len(cells) >= 2 {
			headerIdx = i
			headers = cells
			break
		}
	}
	if headerIdx < 0 {
		return nil, 0, nil
	}

	grid := [][]string{headers}
	for _, line := range lines[headerIdx+1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if cells := splitTextLine(line); len(cells) >= 2 {
			grid = append(grid, cells)
		}
	}
	if len(grid) < 2 {
		return nil, 0, nil
	}

	records := recordsFromTable(grid, textBaseConfidence, roster.MethodRule)
	return records, roster.AggregateConfidence(records), nil
}

// splitTextLine tries the common delimiters in order of reliability before
// falling back to runs of whitespace.
func splitTextLine(line string) []string {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	for _, sep := range []string{"\t", " | ", "|", ","} {
		if strings.Contains(line, sep) {
			parts := strings.Split(line, sep)
			if len(parts) >= 2 {
				for i := range parts {
					parts[i] = strings.TrimSpace(parts[i])
				}
				return parts
			}
		}
	}
	return multiSpaceRe.Split(line, -1)
}
