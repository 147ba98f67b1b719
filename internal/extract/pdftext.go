package extract

import (
	"bytes"
	"context"
	"io"
	"regexp"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"rosterflow/internal/domain/roster"
	"rosterflow/internal/errs"
)

const pdfBaseConfidence = 0.85

// minNativeTextLen separates native PDFs from scans: below this much
// recoverable text the document is image-only and deterministic extraction
// has nothing to work with.
const minNativeTextLen = 50

var (
	pdfShowTextRe  = regexp.MustCompile(`\((?:\\.|[^\\()])*\)\s*Tj`)
	pdfShowArrayRe = regexp.MustCompile(`\[((?:[^\[\]])*)\]\s*TJ`)
	pdfStringRe    = regexp.MustCompile(`\((?:\\.|[^\\()])*\)`)
	pdfNewlineRe   = regexp.MustCompile(`\)\s*(Tj|TJ|T\*|Td|TD)`)
)

// PDFText extracts rows from PDFs that carry a real text layer. Scanned
// documents fall through with zero confidence so the caller escalates.
type PDFText struct{}

func NewPDFText() *PDFText {
	return &PDFText{}
}

func (s *PDFText) Name() string {
	return "pdf-text"
}

func (s *PDFText) TryExtract(ctx context.Context, doc Document) ([]roster.Record, float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	text, err := s.RenderText(doc)
	if err != nil {
		return nil, 0, err
	}
	if len(text) < minNativeTextLen {
		return nil, 0, nil
	}

	textDoc := doc
	textDoc.Data = []byte(text)
	records, _, err := NewPlainText().TryExtract(ctx, textDoc)
	if err != nil || len(records) == 0 {
		return nil, 0, err
	}
	// Rescore against the PDF base: the text layer is more trustworthy than
	// free-form pasted text.
	for i := range records {
		records[i].Confidence = rowConfidence(pdfBaseConfidence, records[i].Fields)
	}
	return records, roster.AggregateConfidence(records), nil
}

// RenderText scrapes the text-show operators out of every page's content
// stream. Good enough for tabular rosters; layout fidelity is not the goal.
func (s *PDFText) RenderText(doc Document) (string, error) {
	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(doc.Data), conf)
	if err != nil {
		return "", errs.Wrap(err, "read pdf")
	}

	var b strings.Builder
	for page := 1; page <= pdfCtx.PageCount; page++ {
		reader, err := pdfcpu.ExtractPageContent(pdfCtx, page)
		if err != nil || reader == nil {
			continue
		}
		content, err := io.ReadAll(reader)
		if err != nil {
			continue
		}
		b.WriteString(scrapeContentText(string(content)))
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String()), nil
}

// scrapeContentText pulls literal strings shown by Tj/TJ operators and
// rebuilds line breaks from text-positioning operators.
func scrapeContentText(content string) string {
	// Text positioning operators delimit visual lines.
	content = pdfNewlineRe.ReplaceAllString(content, ")\n$1")

	var b strings.Builder
	for _, line := range strings.Split(content, "\n") {
		var parts []string
		for _, m := range pdfShowTextRe.FindAllString(line, -1) {
			parts = append(parts, pdfLiterals(m)...)
		}
		for _, m := range pdfShowArrayRe.FindAllString(line, -1) {
			parts = append(parts, pdfLiterals(m)...)
		}
		if len(parts) > 0 {
			b.WriteString(strings.Join(parts, ""))
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func pdfLiterals(s string) []string {
	var out []string
	for _, m := range pdfStringRe.FindAllString(s, -1) {
		out = append(out, unescapePDFString(m[1:len(m)-1]))
	}
	return out
}

func unescapePDFString(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
