// Package state holds the immutable race definitions (roster, track,
// pacing) and the helpers that enforce the engine's bounds: heat clamping,
// bounded rival memory, and position-order repair.
package state

import (
	"strconv"
	"strings"

	"github.com/nathoo/apexrivals/types"
)

// Bounds enforced on mutable race state, no matter how many updates arrive.
const (
	HeatMax     = 100 // player and race heat meters
	MemoryLimit = 5   // rival memory keeps the newest 5 triggers
	RecentLimit = 5   // event-log entries included in a decision request
)

// GameDef holds presentation metadata for a race meeting.
type GameDef struct {
	Title string
	Venue string
	Intro string
}

// RaceDef holds the pacing parameters of one race.
type RaceDef struct {
	Laps         int // race ends once Lap exceeds this
	TicksPerLap  int // lap advances every Nth decision tick
	TickSeconds  int // wall-clock seconds between decision ticks
	PoliceHeat   int // race heat added per police/marshal intervention
	SpeedStart   int
	SpeedFloor   int // speed decays toward this between actions
	SpeedMax     int
	NitroMax     int
	NitroGate    int // boost refused below this gauge level
	NitroCost    int
}

// Defs is the immutable definition set a race is started from.
type Defs struct {
	Game      GameDef
	Player    types.Player
	Rivals    []types.Rival
	Positions []string // initial grid order, leader first
	Race      RaceDef
}

// Default returns the built-in meeting: SHADOW against the four house
// rivals at Laguna Seca. A Lua content directory can replace all of this.
func Default() *Defs {
	return &Defs{
		Game: GameDef{
			Title: "Apex Rivals",
			Venue: "Laguna Seca",
			Intro: "Lights out! We are racing at Laguna Seca.",
		},
		Player: types.Player{
			Name:       "SHADOW",
			Reputation: 60,
			HeatLevel:  0,
			Money:      5000,
		},
		Rivals: []types.Rival{
			{
				ID: "viper", Name: "VIPER", Archetype: types.ArchetypePredator,
				Aggression: 0.95, Loyalty: 0.1, Fear: 0.05, HeatTolerance: 0.9,
				Money: 12000, EmotionalState: "Aggressive",
				Relationships: map[string]float64{types.PlayerID: -0.6},
				Memory:        []string{"Always hunts the slipstream", "Ignores yellow flags"},
			},
			{
				ID: "cipher", Name: "CIPHER", Archetype: types.ArchetypeStrategist,
				Aggression: 0.3, Loyalty: 0.5, Fear: 0.3, HeatTolerance: 0.7,
				Money: 15000, EmotionalState: "Zen",
				Relationships: map[string]float64{types.PlayerID: 0.1},
				Memory:        []string{"Calculates fuel load precisely", "Watches tire wear"},
			},
			{
				ID: "havoc", Name: "HAVOC", Archetype: types.ArchetypeChaosAgent,
				Aggression: 0.8, Loyalty: 0.0, Fear: 0.2, HeatTolerance: 0.4,
				Money: 4000, EmotionalState: "Erratic",
				Relationships: map[string]float64{"viper": -0.4, types.PlayerID: -0.2},
				Memory:        []string{"Prone to late-braking errors", "Desperate for podium"},
			},
			{
				ID: "ghost", Name: "GHOST", Archetype: types.ArchetypeLoyalist,
				Aggression: 0.5, Loyalty: 0.9, Fear: 0.5, HeatTolerance: 0.8,
				Money: 9000, EmotionalState: "Focused",
				Relationships: map[string]float64{"cipher": 0.7},
				Memory:        []string{"Perfect defensive lines", "Consistent lap times"},
			},
		},
		Positions: []string{"viper", "cipher", types.PlayerID, "ghost", "havoc"},
		Race: RaceDef{
			Laps:        3,
			TicksPerLap: 4,
			TickSeconds: 6,
			PoliceHeat:  5,
			SpeedStart:  120,
			SpeedFloor:  140,
			SpeedMax:    320,
			NitroMax:    100,
			NitroGate:   30,
			NitroCost:   30,
		},
	}
}

// NewPlayer returns a fresh player for a race start.
func (d *Defs) NewPlayer() types.Player {
	return d.Player
}

// NewRivals returns deep copies of the roster so a race never mutates
// the definitions.
func (d *Defs) NewRivals() []types.Rival {
	rivals := make([]types.Rival, len(d.Rivals))
	for i, r := range d.Rivals {
		c := r
		c.Relationships = make(map[string]float64, len(r.Relationships))
		for k, v := range r.Relationships {
			c.Relationships[k] = v
		}
		c.Memory = append([]string(nil), r.Memory...)
		rivals[i] = c
	}
	return rivals
}

// NewRace returns a fresh race state: lap 1, grid order, empty log,
// no bounties, no alliances.
func (d *Defs) NewRace() types.RaceState {
	return types.RaceState{
		Lap:            1,
		Positions:      append([]string(nil), d.Positions...),
		HeatLevel:      0,
		EventLog:       []types.EventEntry{},
		ActiveBounties: []types.Bounty{},
		AllianceMap:    map[string]bool{},
	}
}

// ActorIDs returns the full id set of the race: player plus every rival.
func (d *Defs) ActorIDs() []string {
	ids := make([]string, 0, len(d.Rivals)+1)
	ids = append(ids, types.PlayerID)
	for _, r := range d.Rivals {
		ids = append(ids, r.ID)
	}
	return ids
}

// ClampHeat bounds a heat value to [0, HeatMax].
func ClampHeat(v int) int {
	if v < 0 {
		return 0
	}
	if v > HeatMax {
		return HeatMax
	}
	return v
}

// PushMemory appends a trigger to a rival memory, dropping the oldest
// entries so the result never exceeds MemoryLimit.
func PushMemory(memory []string, trigger string) []string {
	memory = append(memory, trigger)
	if len(memory) > MemoryLimit {
		memory = memory[len(memory)-MemoryLimit:]
	}
	return memory
}

// RivalByID returns a pointer into rivals for the given id, or nil if the
// id is unknown. Unknown ids from the decision service are ignored by
// callers, never an error.
func RivalByID(rivals []types.Rival, id string) *types.Rival {
	for i := range rivals {
		if rivals[i].ID == id {
			return &rivals[i]
		}
	}
	return nil
}

// PairKey builds the order-independent alliance map key for two actors.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// TargetAhead returns the actor directly ahead of the player in the
// current ordering, or the "ahead" placeholder when the player leads.
func TargetAhead(positions []string) string {
	for i, id := range positions {
		if id == types.PlayerID {
			if i == 0 {
				return "ahead"
			}
			return positions[i-1]
		}
	}
	return "ahead"
}

// SanitizePositions repairs a proposed ordering into a permutation of the
// current actor set. Unknown and duplicate ids are dropped; ids the
// proposal omits are appended in their prior relative order. An empty
// proposal keeps the current ordering. The decision service is
// authoritative about order but never about membership.
func SanitizePositions(current, proposed []string) []string {
	if len(proposed) == 0 {
		return append([]string(nil), current...)
	}

	known := make(map[string]bool, len(current))
	for _, id := range current {
		known[id] = true
	}

	result := make([]string, 0, len(current))
	seen := make(map[string]bool, len(current))
	for _, id := range proposed {
		if known[id] && !seen[id] {
			result = append(result, id)
			seen[id] = true
		}
	}
	for _, id := range current {
		if !seen[id] {
			result = append(result, id)
			seen[id] = true
		}
	}
	return result
}

// FinishOrder formats final standings as "P1 VIPER  P2 SHADOW ..." using
// the given id → display name mapping.
func FinishOrder(positions []string, names map[string]string) string {
	var b strings.Builder
	for i, id := range positions {
		if i > 0 {
			b.WriteString("  ")
		}
		name := names[id]
		if name == "" {
			name = strings.ToUpper(id)
		}
		b.WriteString("P" + strconv.Itoa(i+1) + " " + name)
	}
	return b.String()
}
