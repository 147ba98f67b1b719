package extract

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"rosterflow/internal/domain/roster"
	"rosterflow/internal/ports"
)

const rosterHTML = `<html><body>
<table><tr><td>nav</td><td>spacer</td></tr></table>
<table>
  <tr><th>Provider Name</th><th>NPI #</th><th>Specialty</th><th>Provider Type</th><th>Term Date</th><th>Reason</th></tr>
  <tr><td>Jane Doe MD</td><td>1234567893</td><td>Cardiology</td><td>Specialist</td><td>06/30/2026</td><td>Voluntary</td></tr>
  <tr><td>John Roe DO</td><td>1992708929</td><td>Family Medicine</td><td>PCP</td><td>07/15/2026</td><td>Retired</td></tr>
</table>
</body></html>`

func TestHTMLTablePicksRosterTable(t *testing.T) {
	records, confidence, err := NewHTMLTable().TryExtract(context.Background(), Document{
		Ref:         "mail/roster.html",
		ContentType: roster.ContentTabularMarkup,
		Data:        []byte(rosterHTML),
	})
	if err != nil {
		t.Fatalf("TryExtract() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records len = %d, want 2", len(records))
	}
	if got := records[0].Fields["Provider NPI"]; got != "1234567893" {
		t.Fatalf("row 0 identifier = %q", got)
	}
	if got := records[1].Fields["Term Reason"]; got != "Retired" {
		t.Fatalf("row 1 term reason = %q", got)
	}
	if confidence <= 0 {
		t.Fatalf("confidence = %v", confidence)
	}
}

func TestCSVHeaderSynonyms(t *testing.T) {
	data := strings.Join([]string{
		"Practitioner Name,NPI,Specialty,Effective Date,Phone",
		"Jane Doe,1234567893,Cardiology,01/15/2024,(555) 234-5678",
	}, "\n")

	records, _, err := NewCSV().TryExtract(context.Background(), Document{Data: []byte(data)})
	if err != nil {
		t.Fatalf("TryExtract() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records len = %d", len(records))
	}
	fields := records[0].Fields
	if fields["Provider Name"] != "Jane Doe" {
		t.Fatalf("name = %q", fields["Provider Name"])
	}
	if fields["Phone Number"] != "(555) 234-5678" {
		t.Fatalf("phone = %q", fields["Phone Number"])
	}
	if fields["Effective Date"] != "01/15/2024" {
		t.Fatalf("effective date = %q", fields["Effective Date"])
	}
}

func TestPlainTextPipeDelimited(t *testing.T) {
	data := strings.Join([]string{
		"Termination notice follows.",
		"",
		"Provider Name | NPI | Specialty | Term Date",
		"Jane Doe | 1234567893 | Cardiology | 06/30/2026",
	}, "\n")

	records, _, err := NewPlainText().TryExtract(context.Background(), Document{Data: []byte(data)})
	if err != nil {
		t.Fatalf("TryExtract() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records len = %d", len(records))
	}
	if records[0].Fields["Term Date"] != "06/30/2026" {
		t.Fatalf("term date = %q", records[0].Fields["Term Date"])
	}
}

func TestSparseRowsScoreUnderTheGate(t *testing.T) {
	// Names only: every required identifier column is empty.
	data := "Provider Name,Specialty\nJane Doe,Cardiology\nJohn Roe,Oncology"
	records, confidence, err := NewCSV().TryExtract(context.Background(), Document{Data: []byte(data)})
	if err != nil {
		t.Fatalf("TryExtract() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records len = %d", len(records))
	}
	if !roster.ShouldEscalate(confidence, 0.7) {
		t.Fatalf("confidence %v should escalate at gate 0.7", confidence)
	}
}

type fakeAssist struct {
	records []roster.Record
	err     error
	enabled bool
	calls   int
	block   bool
}

func (f *fakeAssist) Enabled() bool { return f.enabled }

func (f *fakeAssist) Infer(ctx context.Context, req ports.AssistRequest) ([]roster.Record, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.records, f.err
}

func assistRecord(npi string) roster.Record {
	fields := roster.NewFieldMap()
	fields["Provider NPI"] = npi
	fields["Provider Name"] = "Jane Doe"
	fields["Provider Specialty"] = "Cardiology"
	fields["Effective Date"] = "01/15/2024"
	return roster.Record{Fields: fields, Confidence: 1, Method: roster.MethodAssist}
}

func TestExtractorSkipsAssistAboveGate(t *testing.T) {
	assist := &fakeAssist{enabled: true}
	extractor := New(NewRegistry(), assist, Options{})

	result, err := extractor.Run(context.Background(), Document{
		ContentType: roster.ContentTabularMarkup,
		Data:        []byte(rosterHTML),
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Escalated || result.Method != roster.MethodRule {
		t.Fatalf("high-confidence run escalated: %+v", result)
	}
	if assist.calls != 0 {
		t.Fatalf("assist consulted %d times", assist.calls)
	}
}

func TestExtractorEscalatesWholeDocument(t *testing.T) {
	assist := &fakeAssist{enabled: true, records: []roster.Record{assistRecord("1234567893")}}
	extractor := New(NewRegistry(), assist, Options{})

	// Scanned PDFs have no deterministic strategy at all.
	result, err := extractor.Run(context.Background(), Document{
		ContentType: roster.ContentPDFScanned,
		Data:        []byte("%PDF-1.4 image only"),
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !result.Escalated || result.Method != roster.MethodAssist {
		t.Fatalf("scanned document did not escalate: %+v", result)
	}
	if assist.calls != 1 {
		t.Fatalf("assist calls = %d", assist.calls)
	}
}

func TestExtractorAssistDisabledKeepsRuleRows(t *testing.T) {
	assist := &fakeAssist{enabled: false}
	extractor := New(NewRegistry(), assist, Options{})

	data := "Provider Name,Specialty\nJane Doe,Cardiology"
	result, err := extractor.Run(context.Background(), Document{
		ContentType: roster.ContentSpreadsheet,
		Data:        []byte(data),
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !result.Degraded {
		t.Fatalf("expected degraded result, got %+v", result)
	}
	if len(result.Records) != 1 {
		t.Fatalf("records len = %d", len(result.Records))
	}
}

func TestExtractorAssistDisabledNoRowsExhausts(t *testing.T) {
	extractor := New(NewRegistry(), &fakeAssist{enabled: false}, Options{})

	_, err := extractor.Run(context.Background(), Document{
		ContentType: roster.ContentPDFScanned,
		Data:        []byte("%PDF-1.4"),
	})
	if !errors.Is(err, roster.ErrExtractionExhausted) {
		t.Fatalf("Run() error = %v, want ErrExtractionExhausted", err)
	}
}

func TestExtractorAssistTimeout(t *testing.T) {
	assist := &fakeAssist{enabled: true, block: true}
	extractor := New(NewRegistry(), assist, Options{AssistTimeout: 20 * time.Millisecond})

	_, err := extractor.Run(context.Background(), Document{
		ContentType: roster.ContentPDFScanned,
		Data:        []byte("%PDF-1.4"),
	})
	if !errors.Is(err, roster.ErrExtractionExhausted) {
		t.Fatalf("Run() error = %v, want ErrExtractionExhausted", err)
	}
}

func TestExtractorUnknownContentType(t *testing.T) {
	extractor := New(NewRegistry(), &fakeAssist{enabled: true}, Options{})

	_, err := extractor.Run(context.Background(), Document{ContentType: "audio"})
	if !errors.Is(err, roster.ErrNoStrategy) {
		t.Fatalf("Run() error = %v, want ErrNoStrategy", err)
	}
}
