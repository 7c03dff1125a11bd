// Package gateway provides implementations of engine.DecisionSource: the
// Gemini-backed live source and a deterministic offline source. It is the
// only package that talks to the generative service; everything behind it
// is deterministic state transition.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/generative-ai-go/genai"

	"github.com/nathoo/apexrivals/engine"
	"github.com/nathoo/apexrivals/types"
)

// DefaultModel is the generative model used for decisions and recaps.
const DefaultModel = "gemini-2.5-flash"

// Gemini is the live decision source. The caller owns the client's
// lifetime; per-call deadlines come from the passed context.
type Gemini struct {
	model *genai.GenerativeModel
}

var _ engine.DecisionSource = (*Gemini)(nil)

// NewGemini builds a source from an initialized genai client. The model
// is pinned to JSON output.
func NewGemini(client *genai.Client) *Gemini {
	model := client.GenerativeModel(DefaultModel)
	model.ResponseMIMEType = "application/json"
	return &Gemini{model: model}
}

// Tick requests one decision cycle for the current race snapshot.
func (g *Gemini) Tick(ctx context.Context, req engine.TickRequest) (*types.DecisionResponse, error) {
	snapshot, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding tick snapshot: %w", err)
	}

	text, err := g.generate(ctx, fmt.Sprintf(tickPrompt, snapshot))
	if err != nil {
		return nil, fmt.Errorf("tick decision: %w", err)
	}
	return DecodeDecision([]byte(text))
}

// Recap requests the end-of-race narrative package.
func (g *Gemini) Recap(ctx context.Context, req engine.RecapRequest) (*types.Recap, error) {
	snapshot, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding recap snapshot: %w", err)
	}

	text, err := g.generate(ctx, fmt.Sprintf(recapPrompt, snapshot))
	if err != nil {
		return nil, fmt.Errorf("recap: %w", err)
	}
	return DecodeRecap([]byte(text))
}

func (g *Gemini) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	text := responseText(resp)
	if text == "" {
		return "", fmt.Errorf("empty model response")
	}
	return text, nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	var text string
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				text += string(txt)
			}
		}
	}
	return text
}
