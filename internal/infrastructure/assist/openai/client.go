// Package openai adapts the hosted model API to the assist port. It is only
// consulted when deterministic extraction lands under the confidence gate.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"rosterflow/internal/bootstrap/logging"
	"rosterflow/internal/domain/roster"
	"rosterflow/internal/errs"
	"rosterflow/internal/ports"
)

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
}

type Client struct {
	api     openai.Client
	cfg     Config
	enabled bool
}

func New(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = openai.ChatModelGPT4oMini
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{
		api:     openai.NewClient(opts...),
		cfg:     cfg,
		enabled: strings.TrimSpace(cfg.APIKey) != "",
	}
}

func (c *Client) Enabled() bool {
	return c.enabled
}

// assistRow mirrors the roster columns one to one. JSON keys are the column
// headers themselves so the model output maps back without a translation
// table.
type assistRow struct {
	TransactionType      string `json:"Transaction Type"`
	TransactionAttribute string `json:"Transaction Attribute"`
	EffectiveDate        string `json:"Effective Date"`
	TermDate             string `json:"Term Date"`
	TermReason           string `json:"Term Reason"`
	ProviderName         string `json:"Provider Name"`
	ProviderNPI          string `json:"Provider NPI"`
	ProviderSpecialty    string `json:"Provider Specialty"`
	StateLicense         string `json:"State License"`
	OrganizationName     string `json:"Organization Name"`
	TIN                  string `json:"TIN"`
	GroupNPI             string `json:"Group NPI"`
	CompleteAddress      string `json:"Complete Address"`
	PhoneNumber          string `json:"Phone Number"`
	FaxNumber            string `json:"Fax Number"`
	PPGID                string `json:"PPG ID"`
	LineOfBusiness       string `json:"Line Of Business"`
}

type assistPayload struct {
	Rows []assistRow `json:"rows"`
}

var payloadSchema = func() any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return reflector.Reflect(&assistPayload{})
}()

const systemPrompt = `You extract provider roster rows from messy documents.
Return every provider row you can find. Copy values verbatim from the
document; do not invent, reformat, or fill gaps. Leave a field empty when the
document does not state it.`

func (c *Client) Infer(ctx context.Context, req ports.AssistRequest) ([]roster.Record, error) {
	if !c.enabled {
		return nil, roster.ErrAssistDisabled
	}

	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "assist.openai"),
		slog.String("document_ref", req.DocumentRef),
	)
	start := time.Now()
	logging.Info(logCtx, "assist inference started",
		slog.String("model", c.cfg.Model),
		slog.Int("text_len", len(req.Text)),
		slog.Int("rule_rows", len(req.RuleRows)),
	)

	completion, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       c.cfg.Model,
		Temperature: openai.Float(c.cfg.Temperature),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(buildUserPrompt(req)),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "roster_rows",
					Description: openai.String("Provider roster rows extracted from the document"),
					Schema:      payloadSchema,
					Strict:      openai.Bool(true),
				},
			},
		},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, roster.ErrAssistTimeout
		}
		return nil, errs.Wrap(err, "chat completion")
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("empty completion")
	}

	var payload assistPayload
	content := completion.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, errs.Wrap(err, "decode assist payload")
	}

	records := make([]roster.Record, 0, len(payload.Rows))
	for i, row := range payload.Rows {
		records = append(records, roster.Record{
			RowIndex:   i,
			Fields:     row.fields(),
			Confidence: assistConfidence(row.fields()),
			Method:     roster.MethodAssist,
		})
	}

	logging.Info(logCtx, "assist inference completed",
		slog.Int("rows", len(records)),
		slog.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return records, nil
}

func buildUserPrompt(req ports.AssistRequest) string {
	var b strings.Builder
	b.WriteString("Document (")
	b.WriteString(string(req.ContentType))
	b.WriteString("):\n\n")
	b.WriteString(req.Text)

	if len(req.RuleRows) > 0 {
		b.WriteString("\n\nA first extraction pass produced these rows with low confidence. ")
		b.WriteString("Correct and complete them against the document:\n")
		for _, row := range req.RuleRows {
			payload, err := json.Marshal(row.Fields)
			if err != nil {
				continue
			}
			b.Write(payload)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (r assistRow) fields() roster.FieldMap {
	fields := roster.NewFieldMap()
	fields["Transaction Type"] = r.TransactionType
	fields["Transaction Attribute"] = r.TransactionAttribute
	fields["Effective Date"] = r.EffectiveDate
	fields["Term Date"] = r.TermDate
	fields["Term Reason"] = r.TermReason
	fields["Provider Name"] = r.ProviderName
	fields["Provider NPI"] = r.ProviderNPI
	fields["Provider Specialty"] = r.ProviderSpecialty
	fields["State License"] = r.StateLicense
	fields["Organization Name"] = r.OrganizationName
	fields["TIN"] = r.TIN
	fields["Group NPI"] = r.GroupNPI
	fields["Complete Address"] = r.CompleteAddress
	fields["Phone Number"] = r.PhoneNumber
	fields["Fax Number"] = r.FaxNumber
	fields["PPG ID"] = r.PPGID
	fields["Line Of Business"] = r.LineOfBusiness
	return fields
}

// assistConfidence keeps model rows under the same gate as rule rows: the
// score is the required-field fill rate, never a model self-report.
func assistConfidence(fields roster.FieldMap) float64 {
	return roster.RequiredFillRate(fields)
}
