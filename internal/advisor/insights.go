package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"autocare/internal/core"

	"google.golang.org/genai"
)

// MinRecordsForAnalysis is the smallest collection worth analyzing.
// Below this the analysis is unreliable and the network call is skipped.
const MinRecordsForAnalysis = 3

// ErrInsufficientData is a normal early return, not a failure: the caller
// should prompt the user to record more expenses.
var ErrInsufficientData = errors.New("not enough expense records for analysis")

// Fixed fallback card content, returned whenever the backend fails or
// replies outside the declared schema.
const (
	fallbackTitle       = "Analysis unavailable"
	fallbackDescription = "Could not reach the AI service to analyze your expenses. Please try again later."
)

// Analyzer builds analysis requests over the expense collection and
// interprets the structured replies.
type Analyzer struct {
	backend Backend
}

func NewAnalyzer(backend Backend) *Analyzer {
	return &Analyzer{backend: backend}
}

// insightsPayload mirrors the response schema declared to the backend.
type insightsPayload struct {
	Insights []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Kind        string `json:"kind"`
	} `json:"insights"`
}

// insightsSchema constrains the backend's reply so the interpreter never
// has to trust free text. Kind is bound to the three renderable values.
func insightsSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"insights": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"title":       {Type: genai.TypeString},
						"description": {Type: genai.TypeString},
						"kind": {
							Type: genai.TypeString,
							Enum: []string{
								string(core.InsightWarning),
								string(core.InsightTip),
								string(core.InsightSuccess),
							},
						},
					},
					Required: []string{"title", "description", "kind"},
				},
			},
		},
		Required: []string{"insights"},
	}
}

// buildPrompt serializes the whole expense collection into the analysis
// request.
func buildPrompt(records []core.ExpenseRecord) (string, error) {
	serialized, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("serialize expenses: %w", err)
	}

	var b strings.Builder
	b.WriteString("Analyze the following vehicle expenses and give 3 short tips on saving money or maintenance.\n")
	b.WriteString("Expenses: ")
	b.Write(serialized)
	b.WriteString("\nEach insight has a title, a description and a kind (warning, tip or success).")
	return b.String(), nil
}

// Analyze runs the full request/interpret cycle. It returns
// ErrInsufficientData below the record threshold; any backend or schema
// failure yields exactly one warning card with fixed text, never an error.
func (a *Analyzer) Analyze(ctx context.Context, records []core.ExpenseRecord) ([]core.InsightCard, error) {
	if len(records) < MinRecordsForAnalysis {
		return nil, ErrInsufficientData
	}

	prompt, err := buildPrompt(records)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to build analysis prompt", "error", err)
		return FallbackCards(), nil
	}

	raw, err := a.backend.GenerateStructured(ctx, prompt, insightsSchema())
	if err != nil {
		slog.WarnContext(ctx, "Insight analysis failed", "error", err)
		return FallbackCards(), nil
	}

	cards, err := interpret(raw)
	if err != nil {
		slog.WarnContext(ctx, "Insight reply violated schema", "error", err, "raw_length", len(raw))
		return FallbackCards(), nil
	}

	slog.InfoContext(ctx, "Insight analysis completed", "cards", len(cards), "records", len(records))
	return cards, nil
}

// interpret parses the raw reply as the declared schema. The model
// occasionally wraps JSON in markdown fences despite the response MIME
// type, so those are stripped first.
func interpret(raw string) ([]core.InsightCard, error) {
	cleaned := stripFences(raw)

	var payload insightsPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("parse insights reply: %w", err)
	}

	cards := make([]core.InsightCard, 0, len(payload.Insights))
	for _, in := range payload.Insights {
		kind := core.InsightKind(in.Kind)
		if !kind.Valid() {
			return nil, fmt.Errorf("unknown insight kind %q", in.Kind)
		}
		cards = append(cards, core.InsightCard{
			Title:       in.Title,
			Description: in.Description,
			Kind:        kind,
		})
	}
	return cards, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// FallbackCards is the degraded-mode insight list: always exactly one
// warning card.
func FallbackCards() []core.InsightCard {
	return []core.InsightCard{
		{
			Title:       fallbackTitle,
			Description: fallbackDescription,
			Kind:        core.InsightWarning,
		},
	}
}
