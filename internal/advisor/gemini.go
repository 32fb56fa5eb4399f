// Package advisor talks to the Gemini API: structured insight analysis of
// the expense collection and free-form chat replies. All backend failures
// are converted to fixed fallback content at this boundary; raw errors are
// logged, never returned to callers of Analyze.
package advisor

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Turn is one prior conversation message sent to the backend.
type Turn struct {
	Role string // "user" or "model"
	Text string
}

// Backend is the advisory service contract. Gemini implements it; tests
// substitute a fake.
type Backend interface {
	// GenerateStructured sends a prompt with a bound response schema and
	// returns the raw JSON reply text.
	GenerateStructured(ctx context.Context, prompt string, schema *genai.Schema) (string, error)
	// GenerateChat sends a system instruction plus conversation turns and
	// returns the reply text.
	GenerateChat(ctx context.Context, systemInstruction string, turns []Turn) (string, error)
}

// Gemini calls the Gemini API via the official client.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini api key is empty")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}

	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) GenerateStructured(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	return extractText(resp)
}

func (g *Gemini) GenerateChat(ctx context.Context, systemInstruction string, turns []Turn) (string, error) {
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		contents = append(contents, genai.NewContentFromText(t.Text, chatRole(t.Role)))
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.7),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	return extractText(resp)
}

// chatRole maps a stored turn role onto the typed role the client expects.
// Anything that is not a model reply is sent as user content.
func chatRole(r string) genai.Role {
	if r == "model" {
		return genai.RoleModel
	}
	return genai.RoleUser
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil ||
		len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from model")
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			text += part.Text
		}
	}
	return strings.TrimSpace(text), nil
}
