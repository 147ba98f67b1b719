// Package extract turns inbound roster documents into structured records.
// Deterministic strategies run first; the assist port is consulted only when
// their aggregate confidence lands under the gate.
package extract

import (
	"context"

	"rosterflow/internal/domain/roster"
)

// Document is one inbound roster artifact, already classified by content type.
type Document struct {
	Ref         string
	Sender      string
	ContentType roster.ContentType
	Data        []byte
}

// Strategy is a deterministic extractor for one family of document shapes.
// TryExtract returns the rows it found and their aggregate confidence.
// Finding nothing is (nil, 0, nil), not an error.
type Strategy interface {
	Name() string
	TryExtract(ctx context.Context, doc Document) ([]roster.Record, float64, error)
}

// TextRenderer is implemented by strategies that can flatten a binary
// document into text suitable for assist prompting.
type TextRenderer interface {
	RenderText(doc Document) (string, error)
}

// rowConfidence scores a single extracted row. The base reflects how
// trustworthy the document shape is; the required-field fill rate pulls
// sparse rows under the escalation gate.
func rowConfidence(base float64, fields roster.FieldMap) float64 {
	return base * (0.4 + 0.6*roster.RequiredFillRate(fields))
}
