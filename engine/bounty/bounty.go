// Package bounty implements the contract subsystem: player-funded wagers
// against rivals, their acceptance lifecycle driven by decision responses,
// and end-of-race settlement.
package bounty

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nathoo/apexrivals/engine/state"
	"github.com/nathoo/apexrivals/types"
)

// Heat consequences of contract activity on the player.
const (
	PlacementHeat = 8 // offering a contract draws attention
	BetrayalHeat  = 5 // a leaked contract draws more
)

// Place validates and records a new contract. The stake is deducted up
// front and the player's heat rises. Returns false without any state
// change when the stake exceeds the player's money.
func Place(player *types.Player, race *types.RaceState, targetID string, amount int, visibility types.BountyVisibility, condition types.BountyCondition) (types.Bounty, bool) {
	if amount <= 0 || amount > player.Money {
		return types.Bounty{}, false
	}

	player.Money -= amount
	player.HeatLevel = state.ClampHeat(player.HeatLevel + PlacementHeat)

	b := types.Bounty{
		ID:          "order_" + uuid.NewString(),
		InitiatorID: types.PlayerID,
		TargetID:    targetID,
		Amount:      amount,
		Visibility:  visibility,
		Condition:   condition,
		AcceptedBy:  []string{},
		Status:      types.BountyActive,
	}
	race.ActiveBounties = append(race.ActiveBounties, b)
	return b, true
}

// Apply merges one contract response from the decision service. Unknown
// bounty ids, unknown rivals, and non-active contracts are ignored.
// Returns a commentary line, or "" when nothing should be announced
// (secret contracts stay quiet until betrayed).
func Apply(player *types.Player, race *types.RaceState, rivals []types.Rival, resp types.BountyResponse) string {
	b := findActive(race, resp.BountyID)
	if b == nil {
		return ""
	}
	rival := state.RivalByID(rivals, resp.RivalID)
	if rival == nil {
		return ""
	}

	switch resp.Decision {
	case "accept":
		for _, id := range b.AcceptedBy {
			if id == rival.ID {
				return ""
			}
		}
		b.AcceptedBy = append(b.AcceptedBy, rival.ID)
		if b.Visibility == types.BountyPublic {
			return fmt.Sprintf("🤝 %s takes the contract on %s.", rival.Name, strings.ToUpper(b.TargetID))
		}
		return ""

	case "betray":
		// The contract is leaked: it becomes public knowledge and the
		// initiator takes the blame.
		b.Visibility = types.BountyPublic
		player.HeatLevel = state.ClampHeat(player.HeatLevel + BetrayalHeat)
		return fmt.Sprintf("🗞️ %s leaks the contract on %s to the paddock!", rival.Name, strings.ToUpper(b.TargetID))

	default: // "reject" and anything unrecognized
		return ""
	}
}

// Settle resolves every active contract at race end. A contract completes
// when its condition was met during the race; otherwise it fails and the
// stake is refunded. Returns the total refund and settlement lines.
func Settle(player *types.Player, race *types.RaceState) []string {
	var lines []string
	for i := range race.ActiveBounties {
		b := &race.ActiveBounties[i]
		if b.Status != types.BountyActive {
			continue
		}
		if conditionMet(b, race) {
			b.Status = types.BountyComplete
			lines = append(lines, fmt.Sprintf("📋 Contract on %s paid out: %s confirmed.", strings.ToUpper(b.TargetID), b.Condition))
		} else {
			b.Status = types.BountyFailed
			player.Money += b.Amount
			lines = append(lines, fmt.Sprintf("📋 Contract on %s expired. Stake of $%d returned.", strings.ToUpper(b.TargetID), b.Amount))
		}
	}
	return lines
}

// conditionMet checks a contract against the finished race.
func conditionMet(b *types.Bounty, race *types.RaceState) bool {
	switch b.Condition {
	case types.ConditionFinishBelow:
		return finishedBelow(race.Positions, b.TargetID, types.PlayerID)
	case types.ConditionCrash, types.ConditionBlock:
		// An acceptor must have produced a matching incident against the
		// target at some point in the race.
		accepted := make(map[string]bool, len(b.AcceptedBy))
		for _, id := range b.AcceptedBy {
			accepted[id] = true
		}
		for _, e := range race.EventLog {
			if e.Type == string(b.Condition) && e.Target == b.TargetID && accepted[e.Actor] {
				return true
			}
		}
	}
	return false
}

// finishedBelow reports whether target placed behind reference in the
// final ordering. Missing ids count as not met.
func finishedBelow(positions []string, target, reference string) bool {
	ti, ri := -1, -1
	for i, id := range positions {
		switch id {
		case target:
			ti = i
		case reference:
			ri = i
		}
	}
	return ti >= 0 && ri >= 0 && ti > ri
}

func findActive(race *types.RaceState, id string) *types.Bounty {
	for i := range race.ActiveBounties {
		if race.ActiveBounties[i].ID == id && race.ActiveBounties[i].Status == types.BountyActive {
			return &race.ActiveBounties[i]
		}
	}
	return nil
}
