package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/nathoo/apexrivals/engine"
	"github.com/nathoo/apexrivals/types"
)

// Offline is a deterministic decision source for play without an API key,
// scripted demos, and tests. Same seed, same race.
type Offline struct {
	rng *engine.RNG
}

var _ engine.DecisionSource = (*Offline)(nil)

// NewOffline creates an offline source from a seed.
func NewOffline(seed int64) *Offline {
	return &Offline{rng: engine.NewRNG(seed)}
}

var offlineCommentary = []string{
	"Knee down through the corkscrew, inches apart!",
	"Slipstream battle into turn one, nobody lifts!",
	"Late on the brakes, wheels nearly touching!",
	"Perfect apex, carrying huge corner speed!",
	"The pack is three wide down the straight!",
}

var offlineStates = []string{"Zen", "Aggressive", "Panicked", "Focused"}

// Tick fabricates a plausible decision: a single adjacent position swap,
// an occasional emotional shift, a rare marshal call, and weighted
// contract reactions.
func (o *Offline) Tick(_ context.Context, req engine.TickRequest) (*types.DecisionResponse, error) {
	positions := append([]string(nil), req.RaceState.Positions...)
	if len(positions) > 1 {
		i := o.rng.Pick(len(positions) - 1)
		positions[i], positions[i+1] = positions[i+1], positions[i]
	}

	resp := &types.DecisionResponse{
		Commentary:      offlineCommentary[o.rng.Pick(len(offlineCommentary))],
		PositionChanges: positions,
	}

	for _, r := range req.Rivals {
		resp.RivalActions = append(resp.RivalActions, types.RivalAction{
			RivalID:   r.ID,
			Action:    "draft",
			Reasoning: "Holding the slipstream.",
		})
	}

	if len(req.Rivals) > 0 && o.rng.Roll(3) == 1 {
		r := req.Rivals[o.rng.Pick(len(req.Rivals))]
		resp.EmotionalUpdates = []types.EmotionalUpdate{{
			RivalID:  r.ID,
			NewState: offlineStates[o.rng.Pick(len(offlineStates))],
			Trigger:  "Pressure from the pack",
		}}
	}

	if o.rng.Roll(6) == 1 {
		resp.PoliceAction = &types.PoliceAction{
			Type:        "track_limits",
			Target:      types.PlayerID,
			Description: "Track limits warning shown at turn 4.",
		}
	}

	for _, b := range req.RaceState.ActiveBounties {
		if b.Status != types.BountyActive {
			continue
		}
		for _, r := range req.Rivals {
			if r.ID == b.TargetID || len(b.AcceptedBy) > 0 {
				continue
			}
			// Aggressive riders take the contract, loyal ones leak it.
			choice := o.rng.WeightedSelect([]int{
				int(r.Aggression*10) + 1, // accept
				8,                        // reject
				int(r.Loyalty*10) + 1,    // betray
			})
			decision := [...]string{"accept", "reject", "betray"}[choice]
			resp.BountyResponses = append(resp.BountyResponses, types.BountyResponse{
				BountyID: b.ID,
				RivalID:  r.ID,
				Decision: decision,
			})
			break
		}
	}

	return resp, nil
}

// Recap fabricates a recap from the final standings.
func (o *Offline) Recap(_ context.Context, req engine.RecapRequest) (*types.Recap, error) {
	names := map[string]string{types.PlayerID: req.Player.Name}
	quotes := make(map[string]string, len(req.Rivals))
	for _, r := range req.Rivals {
		names[r.ID] = r.Name
		quotes[r.ID] = fmt.Sprintf("%s out there... that's all I'll say.", req.Player.Name)
	}

	winner := "the field"
	if len(req.RaceState.Positions) > 0 {
		if n, ok := names[req.RaceState.Positions[0]]; ok {
			winner = n
		} else {
			winner = strings.ToUpper(req.RaceState.Positions[0])
		}
	}

	return &types.Recap{
		Headline: fmt.Sprintf("%s Takes It At The Line", winner),
		Narrative: []string{
			fmt.Sprintf("Three laps of bar-to-bar racing came down to the final sector, and %s held the line when it mattered.", winner),
			"The midfield spent the whole race trading paint, with contracts and alliances shifting every lap.",
			"The marshals will have questions, but the crowd got the show they paid for.",
		},
		RivalQuotes: quotes,
		ForumComments: []types.ForumComment{
			{User: "apex_junkie", Text: "That last lap was unreal."},
			{User: "slipstream_sam", Text: "Someone check the telemetry on that overtake..."},
			{User: "knee_down_kd", Text: "Best race this season, no contest."},
			{User: "paddock_insider", Text: "Heard there was money moving in the paddock."},
			{User: "lowside_larry", Text: "Marshals were asleep out there."},
		},
		StatsSummary: fmt.Sprintf("Reputation %d · Heat %d · $%d in the pocket", req.Player.Reputation, req.Player.HeatLevel, req.Player.Money),
	}, nil
}
