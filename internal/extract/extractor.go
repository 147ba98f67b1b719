package extract

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"rosterflow/internal/bootstrap/logging"
	"rosterflow/internal/domain/roster"
	"rosterflow/internal/errs"
	"rosterflow/internal/ports"
)

// Options tune the escalation behavior.
type Options struct {
	// ConfidenceGate is the aggregate confidence below which the whole
	// document escalates to assist.
	ConfidenceGate float64
	// AssistTimeout bounds one assist call.
	AssistTimeout time.Duration
}

func (o Options) gate() float64 {
	if o.ConfidenceGate <= 0 {
		return 0.7
	}
	return o.ConfidenceGate
}

func (o Options) timeout() time.Duration {
	if o.AssistTimeout <= 0 {
		return 30 * time.Second
	}
	return o.AssistTimeout
}

// Result is the outcome of one extraction run.
type Result struct {
	Records    []roster.Record
	Confidence float64
	Method     roster.ExtractionMethod
	Strategy   string
	Escalated  bool
	// Degraded is set when assist was needed but unavailable and the rule
	// rows were kept anyway.
	Degraded bool
}

// Extractor runs deterministic strategies first and escalates whole
// documents, never single rows, when the aggregate confidence misses the
// gate.
type Extractor struct {
	registry *Registry
	assist   ports.Assist
	opts     Options
}

func New(registry *Registry, assist ports.Assist, opts Options) *Extractor {
	return &Extractor{registry: registry, assist: assist, opts: opts}
}

func (e *Extractor) Run(ctx context.Context, doc Document) (*Result, error) {
	if !e.registry.Known(doc.ContentType) {
		return nil, errs.Wrapf(roster.ErrNoStrategy, "content type %q", doc.ContentType)
	}

	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "extract"),
		slog.String("document_ref", doc.Ref),
		slog.String("content_type", string(doc.ContentType)),
	)

	best := e.runStrategies(logCtx, doc)
	if best != nil && !roster.ShouldEscalate(best.Confidence, e.opts.gate()) {
		return best, nil
	}

	// Nothing deterministic cleared the gate: escalate the whole document.
	var ruleRows []roster.Record
	if best != nil {
		ruleRows = best.Records
	}
	assisted, err := e.runAssist(logCtx, doc, ruleRows)
	if err == nil {
		return assisted, nil
	}

	if errors.Is(err, roster.ErrAssistDisabled) || errors.Is(err, roster.ErrAssistTimeout) || errors.Is(err, roster.ErrExtractionExhausted) {
		if best != nil && len(best.Records) > 0 {
			logging.Warn(logCtx, "assist unavailable, keeping low-confidence rows",
				slog.String("strategy", best.Strategy),
				slog.Float64("confidence", best.Confidence),
				slog.Any("error", errs.Loggable(err)),
			)
			best.Degraded = true
			return best, nil
		}
		return nil, roster.ErrExtractionExhausted
	}
	return nil, err
}

func (e *Extractor) runStrategies(ctx context.Context, doc Document) *Result {
	var best *Result
	for _, strategy := range e.registry.For(doc.ContentType) {
		records, confidence, err := strategy.TryExtract(ctx, doc)
		if err != nil {
			logging.Warn(ctx, "strategy failed",
				slog.String("strategy", strategy.Name()),
				slog.Any("error", errs.Loggable(err)),
			)
			continue
		}
		if len(records) == 0 {
			continue
		}
		logging.Info(ctx, "strategy extracted rows",
			slog.String("strategy", strategy.Name()),
			slog.Int("rows", len(records)),
			slog.Float64("confidence", confidence),
		)
		if best == nil || confidence > best.Confidence {
			best = &Result{
				Records:    records,
				Confidence: confidence,
				Method:     roster.MethodRule,
				Strategy:   strategy.Name(),
			}
		}
	}
	return best
}

func (e *Extractor) runAssist(ctx context.Context, doc Document, ruleRows []roster.Record) (*Result, error) {
	if e.assist == nil || !e.assist.Enabled() {
		return nil, roster.ErrAssistDisabled
	}

	assistCtx, cancel := context.WithTimeout(ctx, e.opts.timeout())
	defer cancel()

	records, err := e.assist.Infer(assistCtx, ports.AssistRequest{
		DocumentRef: doc.Ref,
		ContentType: doc.ContentType,
		Text:        e.renderText(doc),
		RuleRows:    ruleRows,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, roster.ErrAssistTimeout
		}
		return nil, err
	}
	if len(records) == 0 {
		return nil, roster.ErrExtractionExhausted
	}

	return &Result{
		Records:    records,
		Confidence: roster.AggregateConfidence(records),
		Method:     roster.MethodAssist,
		Strategy:   "assist",
		Escalated:  true,
	}, nil
}

// renderText flattens the document for assist prompting, preferring a
// strategy that understands the binary format.
func (e *Extractor) renderText(doc Document) string {
	for _, strategy := range e.registry.For(doc.ContentType) {
		if renderer, ok := strategy.(TextRenderer); ok {
			if text, err := renderer.RenderText(doc); err == nil && text != "" {
				return text
			}
		}
	}
	return string(doc.Data)
}
