package gateway

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nathoo/apexrivals/types"
)

// DecodeDecision parses a raw model payload into a DecisionResponse.
// Code fences are tolerated. The payload must carry at least one of the
// required keys (commentary, positionChanges, rivalActions) — a payload
// with none of them is treated as a parse failure so the tick degrades
// to the no-update path instead of merging an empty decision.
func DecodeDecision(raw []byte) (*types.DecisionResponse, error) {
	data := stripFences(raw)

	var resp types.DecisionResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decoding decision payload: %w", err)
	}
	if resp.Commentary == "" && len(resp.PositionChanges) == 0 && len(resp.RivalActions) == 0 {
		return nil, fmt.Errorf("decision payload missing required fields")
	}
	return &resp, nil
}

// DecodeRecap parses a raw model payload into a Recap.
func DecodeRecap(raw []byte) (*types.Recap, error) {
	data := stripFences(raw)

	var recap types.Recap
	if err := json.Unmarshal(data, &recap); err != nil {
		return nil, fmt.Errorf("decoding recap payload: %w", err)
	}
	if recap.Headline == "" && len(recap.Narrative) == 0 {
		return nil, fmt.Errorf("recap payload missing required fields")
	}
	return &recap, nil
}

// stripFences removes a surrounding markdown code fence, which models
// sometimes emit despite the JSON MIME type.
func stripFences(raw []byte) []byte {
	s := strings.TrimSpace(string(raw))
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return []byte(strings.TrimSpace(s))
}
