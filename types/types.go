// Package types defines the shared data structures for the Apex Rivals
// engine. This package contains only type definitions — no logic, no methods.
// JSON tags match the wire shape exchanged with the decision service.
package types

// Phase is the top-level game phase.
type Phase int

const (
	PhaseIntro Phase = iota
	PhaseRacing
	PhaseFinished
)

// PlayerID is the stable key the player appears under in positions,
// relationships and event logs. Identifiers are an open string namespace:
// the decision service may reference ids freely, so consumers must never
// treat them as a closed enum.
const PlayerID = "player"

// Player holds the player's runtime state for one race.
type Player struct {
	Name       string `json:"name"`
	Reputation int    `json:"reputation"`
	Fear       int    `json:"fear"`
	Respect    int    `json:"respect"`
	HeatLevel  int    `json:"heatLevel"` // clamped to [0,100]
	Money      int    `json:"money"`
}

// Archetype labels a rival's behavioral flavor. Informational only —
// no rule branches on it.
type Archetype string

const (
	ArchetypePredator   Archetype = "Predator"
	ArchetypeStrategist Archetype = "Strategist"
	ArchetypeChaosAgent Archetype = "Chaos Agent"
	ArchetypeLoyalist   Archetype = "Loyalist"
)

// Rival is one AI-controlled rider. Identity and traits are fixed for a
// race; only EmotionalState, Memory, and Relationships mutate, and only
// from decision responses.
type Rival struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Archetype      Archetype          `json:"archetype"`
	Aggression     float64            `json:"aggression"`
	Loyalty        float64            `json:"loyalty"`
	Fear           float64            `json:"fear"`
	HeatTolerance  float64            `json:"heatTolerance"`
	Money          int                `json:"money"`
	EmotionalState string             `json:"emotionalState"`
	Relationships  map[string]float64 `json:"relationships"`
	Memory         []string           `json:"memory"` // bounded: last 5 triggers
}

// BountyVisibility is how openly a contract was offered.
type BountyVisibility string

const (
	BountyPublic BountyVisibility = "public"
	BountySecret BountyVisibility = "secret"
)

// BountyCondition is what the contract pays out on.
type BountyCondition string

const (
	ConditionCrash       BountyCondition = "crash"
	ConditionBlock       BountyCondition = "block"
	ConditionFinishBelow BountyCondition = "finishBelow"
)

// BountyStatus is the contract lifecycle state.
type BountyStatus string

const (
	BountyActive   BountyStatus = "active"
	BountyComplete BountyStatus = "complete"
	BountyFailed   BountyStatus = "failed"
)

// Bounty is a player-funded conditional wager against a rival.
type Bounty struct {
	ID          string           `json:"id"`
	InitiatorID string           `json:"initiatorId"`
	TargetID    string           `json:"targetId"`
	Amount      int              `json:"amount"`
	Visibility  BountyVisibility `json:"visibility"`
	Condition   BountyCondition  `json:"condition"`
	AcceptedBy  []string         `json:"acceptedBy"`
	Status      BountyStatus     `json:"status"`
}

// EventEntry is one structured, race-scoped log record. The underlying log
// grows without bound for the race; only the display feed is capped.
type EventEntry struct {
	Type        string `json:"type"`
	Actor       string `json:"actor"`
	Target      string `json:"target,omitempty"`
	Tick        int    `json:"tick"`
	Description string `json:"description"`
}

// RaceState is the shared mutable race snapshot. Positions index 0 is the
// leader and must remain a permutation of {player ∪ rival ids}.
type RaceState struct {
	Lap            int             `json:"lap"` // 1-based; race ends past the lap limit
	Positions      []string        `json:"positions"`
	HeatLevel      int             `json:"heatLevel"`
	EventLog       []EventEntry    `json:"eventLog"`
	ActiveBounties []Bounty        `json:"activeBounties"`
	AllianceMap    map[string]bool `json:"allianceMap"`
}

// RivalAction is one rider decision reported by the decision service.
type RivalAction struct {
	RivalID   string `json:"rivalId"`
	Action    string `json:"action"`
	Target    string `json:"target,omitempty"`
	Reasoning string `json:"reasoning"`
}

// EmotionalUpdate replaces a rival's emotional state and records what
// triggered the shift.
type EmotionalUpdate struct {
	RivalID  string `json:"rivalId"`
	NewState string `json:"newState"`
	Trigger  string `json:"trigger"`
}

// PoliceAction is an optional marshal/police intervention. Type "none"
// (or an absent action) means no intervention this tick.
type PoliceAction struct {
	Type        string `json:"type"`
	Target      string `json:"target"`
	Description string `json:"description"`
}

// AllianceChange reports an alliance forming or breaking between two riders.
type AllianceChange struct {
	RivalA string `json:"rivalA"`
	RivalB string `json:"rivalB"`
	Status string `json:"status"` // "formed" or "broken"
	Reason string `json:"reason"`
}

// BountyResponse is a rival's reaction to an open contract.
type BountyResponse struct {
	BountyID  string `json:"bountyId"`
	RivalID   string `json:"rivalId"`
	Decision  string `json:"decision"` // "accept", "reject", "betray"
	Reasoning string `json:"reasoning"`
}

// DecisionResponse is the per-tick payload from the decision service.
// RivalActions, Commentary, and PositionChanges are required; everything
// else is absent-tolerant.
type DecisionResponse struct {
	RivalActions     []RivalAction     `json:"rivalActions"`
	EmotionalUpdates []EmotionalUpdate `json:"emotionalUpdates,omitempty"`
	Commentary       string            `json:"commentary"`
	PoliceAction     *PoliceAction     `json:"policeAction,omitempty"`
	AllianceChanges  []AllianceChange  `json:"allianceChanges,omitempty"`
	BountyResponses  []BountyResponse  `json:"bountyResponses,omitempty"`
	PositionChanges  []string          `json:"positionChanges"`
}

// ForumComment is one fan reaction in the recap.
type ForumComment struct {
	User string `json:"user"`
	Text string `json:"text"`
}

// Recap is the end-of-race narrative package, produced once and consumed
// by the finished phase.
type Recap struct {
	Headline      string            `json:"headline"`
	Narrative     []string          `json:"narrative"`
	RivalQuotes   map[string]string `json:"rivalQuotes"`
	ForumComments []ForumComment    `json:"forumComments"`
	StatsSummary  string            `json:"statsSummary"`
}
