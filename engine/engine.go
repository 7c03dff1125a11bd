// Package engine implements the race state machine: phase transitions,
// the per-tick decision pipeline, local rider actions, and contract
// handling. All rule authority for rival behavior lives behind the
// DecisionSource seam; the engine merges whatever the source returns and
// enforces only its own bounds.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nathoo/apexrivals/engine/bounty"
	"github.com/nathoo/apexrivals/engine/feed"
	"github.com/nathoo/apexrivals/engine/state"
	"github.com/nathoo/apexrivals/types"
)

// TickRequest is the snapshot sent with every decision request.
type TickRequest struct {
	Player       types.Player       `json:"player"`
	Rivals       []types.Rival      `json:"rivals"`
	RaceState    types.RaceState    `json:"raceState"`
	RecentEvents []types.EventEntry `json:"recentEvents"`
	Tick         int                `json:"tick"`
}

// RecapRequest is the snapshot sent with the end-of-race recap request.
type RecapRequest struct {
	Player    types.Player    `json:"player"`
	Rivals    []types.Rival   `json:"rivals"`
	RaceState types.RaceState `json:"raceState"`
}

// DecisionSource is the external oracle the race delegates to. Both calls
// may block until the remote service answers and both may fail; a failure
// must never crash or desynchronize the race.
type DecisionSource interface {
	Tick(ctx context.Context, req TickRequest) (*types.DecisionResponse, error)
	Recap(ctx context.Context, req RecapRequest) (*types.Recap, error)
}

// ActionKind is one of the player's local race actions.
type ActionKind string

const (
	ActionPush  ActionKind = "push"
	ActionBlock ActionKind = "block"
	ActionNitro ActionKind = "nitro"
)

// Heat and telemetry deltas for local actions.
const (
	pushHeat   = 8
	pushSpeed  = 15
	blockHeat  = 3
	blockSpeed = -10
	nitroSpeed = 60
)

// TickReport summarizes what one decision tick did.
type TickReport struct {
	Ran         bool // false when the tick was refused (terminal or already pending)
	Failed      bool // gateway transport/parse failure; feed carries the notice
	LapAdvanced bool
	Finished    bool // this tick crossed the finish
}

// Engine owns all mutable race state. Every mutation goes through one
// mutex: the decision merge, local actions, contracts, and telemetry
// decay never interleave mid-write.
type Engine struct {
	mu     sync.Mutex
	defs   *state.Defs
	source DecisionSource

	phase  types.Phase
	player types.Player
	rivals []types.Rival
	race   types.RaceState
	feed   *feed.Log

	tick    int
	epoch   int  // bumped at terminal transition; stale completions are discarded
	pending bool // one decision request in flight at most

	speed float64
	nitro float64

	recap *types.Recap
}

// New creates an engine in the intro phase.
func New(defs *state.Defs, source DecisionSource) *Engine {
	return &Engine{
		defs:   defs,
		source: source,
		phase:  types.PhaseIntro,
		player: defs.NewPlayer(),
		rivals: defs.NewRivals(),
		race:   defs.NewRace(),
		feed:   feed.New(),
	}
}

// StartRace resets all race state and enters the racing phase.
func (e *Engine) StartRace() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.player = e.defs.NewPlayer()
	e.rivals = e.defs.NewRivals()
	e.race = e.defs.NewRace()
	e.feed = feed.New()
	e.tick = 0
	e.epoch++
	e.pending = false
	e.recap = nil
	e.speed = float64(e.defs.Race.SpeedStart)
	e.nitro = float64(e.defs.Race.NitroMax)
	e.phase = types.PhaseRacing

	e.feed.Say("🎙️ " + e.defs.Game.Intro)
}

// RunTick executes one decision cycle: snapshot, request, merge, tick
// accounting, lap rule. Safe to call from a separate goroutine; it blocks
// for the duration of the gateway call. Refused while terminal or while
// another tick is still in flight.
func (e *Engine) RunTick(ctx context.Context) TickReport {
	e.mu.Lock()
	if e.phase != types.PhaseRacing || e.pending {
		e.mu.Unlock()
		return TickReport{}
	}
	e.pending = true
	epoch := e.epoch
	req := e.snapshotLocked()
	e.mu.Unlock()

	timeout := time.Duration(e.defs.Race.TickSeconds) * time.Second
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	resp, err := e.source.Tick(callCtx, req)
	cancel()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = false

	// The race may have been restarted or finished while the request was
	// in flight; a stale response must not touch state.
	if epoch != e.epoch || e.phase != types.PhaseRacing {
		return TickReport{}
	}

	report := TickReport{Ran: true}
	if err != nil {
		e.feed.Say("⚠️ Signal Interference: Rider telemetry dropped.")
		report.Failed = true
	} else {
		e.applyLocked(resp)
	}

	// Tick counter and the lap rule advance on success and failure alike.
	e.tick++
	if e.tick%e.defs.Race.TicksPerLap == 0 {
		if e.race.Lap < e.defs.Race.Laps {
			e.race.Lap++
			report.LapAdvanced = true
			e.feed.Say(fmt.Sprintf("🏁 Sector Complete! Starting Lap %d", e.race.Lap))
		} else {
			// Final lap done: the race is over, irrevocably. No further
			// ticks or actions are accepted past this point.
			e.race.Lap++
			e.epoch++
			e.phase = types.PhaseFinished
			report.Finished = true
			e.feed.Say("🏁 CHECKERED FLAG! The race is over.")
			for _, line := range bounty.Settle(&e.player, &e.race) {
				e.feed.Say(line)
			}
		}
	}
	return report
}

// snapshotLocked builds the request payload. Slices are copied so the
// in-flight request never observes a torn mutation.
func (e *Engine) snapshotLocked() TickRequest {
	race := e.race
	race.Positions = append([]string(nil), e.race.Positions...)
	race.EventLog = append([]types.EventEntry(nil), e.race.EventLog...)
	race.ActiveBounties = append([]types.Bounty(nil), e.race.ActiveBounties...)

	return TickRequest{
		Player:       e.player,
		Rivals:       append([]types.Rival(nil), e.rivals...),
		RaceState:    race,
		RecentEvents: feed.Recent(e.race.EventLog, state.RecentLimit),
		Tick:         e.tick,
	}
}

// applyLocked merges a decision response into race state. Absent fields
// are no-ops; unknown ids are silently ignored; the position ordering is
// repaired into a permutation of the known actor set before it replaces
// the current one.
func (e *Engine) applyLocked(resp *types.DecisionResponse) {
	if resp == nil {
		return
	}

	if resp.Commentary != "" {
		e.feed.Say("🎙️ " + resp.Commentary)
	}

	if len(resp.PositionChanges) > 0 {
		e.race.Positions = state.SanitizePositions(e.race.Positions, resp.PositionChanges)
	}

	for _, u := range resp.EmotionalUpdates {
		rival := state.RivalByID(e.rivals, u.RivalID)
		if rival == nil {
			continue
		}
		rival.EmotionalState = u.NewState
		rival.Memory = state.PushMemory(rival.Memory, u.Trigger)
	}

	if pa := resp.PoliceAction; pa != nil && pa.Type != "none" && pa.Type != "" {
		e.feed.Say("🚨 MARSHAL: " + pa.Description)
		e.race.HeatLevel = state.ClampHeat(e.race.HeatLevel + e.defs.Race.PoliceHeat)
	}

	for _, ac := range resp.AllianceChanges {
		e.race.AllianceMap[state.PairKey(ac.RivalA, ac.RivalB)] = ac.Status == "formed"
	}

	for _, br := range resp.BountyResponses {
		if line := bounty.Apply(&e.player, &e.race, e.rivals, br); line != "" {
			e.feed.Say(line)
		}
	}

	// Rival actions go to the structured log only; the commentary line
	// already narrates the tick.
	for _, ra := range resp.RivalActions {
		e.race.EventLog = append(e.race.EventLog, types.EventEntry{
			Type:        ra.Action,
			Actor:       ra.RivalID,
			Target:      ra.Target,
			Tick:        e.tick,
			Description: ra.Reasoning,
		})
	}
}

// Action applies one local player action. Synchronous, no gateway call.
// Refused while terminal or while a decision request is pending — the
// merge path is the only other writer and they must not interleave.
func (e *Engine) Action(kind ActionKind) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != types.PhaseRacing || e.pending {
		return false
	}

	targetID := state.TargetAhead(e.race.Positions)
	var desc string

	switch kind {
	case ActionPush:
		e.player.HeatLevel = state.ClampHeat(e.player.HeatLevel + pushHeat)
		e.bumpSpeed(pushSpeed)
		desc = fmt.Sprintf("💥 %s shoulders %s off the line!", e.player.Name, strings.ToUpper(targetID))
	case ActionBlock:
		e.player.HeatLevel = state.ClampHeat(e.player.HeatLevel + blockHeat)
		e.bumpSpeed(blockSpeed)
		desc = fmt.Sprintf("🛡️ %s cuts into the apex, forcing riders wide.", e.player.Name)
	case ActionNitro:
		if e.nitro < float64(e.defs.Race.NitroGate) {
			return false
		}
		e.nitro -= float64(e.defs.Race.NitroCost)
		if e.nitro < 0 {
			e.nitro = 0
		}
		e.bumpSpeed(nitroSpeed)
		desc = fmt.Sprintf("🔥 %s tucks in and hits the OVERTAKE BOOST!", e.player.Name)
	default:
		return false
	}

	e.race.EventLog = append(e.race.EventLog, types.EventEntry{
		Type:        string(kind),
		Actor:       types.PlayerID,
		Target:      targetID,
		Tick:        e.tick,
		Description: desc,
	})
	e.feed.Say(desc)
	return true
}

// PlaceBounty offers a contract against a rival. A stake over the
// player's money is a silent no-op. Refused outside the racing phase.
func (e *Engine) PlaceBounty(targetID string, amount int, visibility types.BountyVisibility, condition types.BountyCondition) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != types.PhaseRacing {
		return false
	}
	b, ok := bounty.Place(&e.player, &e.race, targetID, amount, visibility, condition)
	if !ok {
		return false
	}
	e.feed.Say(fmt.Sprintf("📋 Contract offered: $%d against %s (%s).", b.Amount, strings.ToUpper(b.TargetID), b.Condition))
	return true
}

// BuildRecap requests the end-of-race recap from the decision source,
// exactly once. On failure a synthetic recap is built from the final
// standings so the finished phase is always reachable.
func (e *Engine) BuildRecap(ctx context.Context) *types.Recap {
	e.mu.Lock()
	if e.phase != types.PhaseFinished {
		e.mu.Unlock()
		return nil
	}
	if e.recap != nil {
		r := e.recap
		e.mu.Unlock()
		return r
	}
	epoch := e.epoch
	req := RecapRequest{
		Player:    e.player,
		Rivals:    append([]types.Rival(nil), e.rivals...),
		RaceState: e.race,
	}
	e.mu.Unlock()

	timeout := time.Duration(e.defs.Race.TickSeconds) * time.Second
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	recap, err := e.source.Recap(callCtx, req)
	cancel()

	e.mu.Lock()
	defer e.mu.Unlock()

	// The race may have been restarted while the request was in flight;
	// a stale recap must not attach to the new race.
	if epoch != e.epoch {
		return nil
	}
	if e.recap != nil {
		return e.recap
	}
	if err != nil || recap == nil {
		recap = e.fallbackRecapLocked()
	}
	e.recap = recap
	return recap
}

// fallbackRecapLocked builds a minimal local recap when the gateway
// cannot deliver one.
func (e *Engine) fallbackRecapLocked() *types.Recap {
	names := map[string]string{types.PlayerID: e.player.Name}
	quotes := make(map[string]string, len(e.rivals))
	for _, r := range e.rivals {
		names[r.ID] = r.Name
		quotes[r.ID] = "No comment."
	}
	order := state.FinishOrder(e.race.Positions, names)

	return &types.Recap{
		Headline: "Checkered Flag at " + e.defs.Game.Venue,
		Narrative: []string{
			"The broadcast feed cut out before the recap came through.",
			"Final order: " + order,
		},
		RivalQuotes: quotes,
		ForumComments: []types.ForumComment{
			{User: "paddock_insider", Text: "Feed died right at the flag. Typical."},
		},
		StatsSummary: order,
	}
}

// DecayTelemetry steps the local speed/nitro gauges: speed bleeds toward
// the floor, draft power regenerates. Driven by the UI's fast timer.
func (e *Engine) DecayTelemetry() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != types.PhaseRacing {
		return
	}
	if e.speed > float64(e.defs.Race.SpeedFloor) {
		e.speed -= 2
		if e.speed < float64(e.defs.Race.SpeedFloor) {
			e.speed = float64(e.defs.Race.SpeedFloor)
		}
	}
	if e.nitro < float64(e.defs.Race.NitroMax) {
		e.nitro += 0.3
		if e.nitro > float64(e.defs.Race.NitroMax) {
			e.nitro = float64(e.defs.Race.NitroMax)
		}
	}
}

func (e *Engine) bumpSpeed(delta int) {
	e.speed += float64(delta)
	if e.speed > float64(e.defs.Race.SpeedMax) {
		e.speed = float64(e.defs.Race.SpeedMax)
	}
	if e.speed < 0 {
		e.speed = 0
	}
}

// Phase returns the current game phase.
func (e *Engine) Phase() types.Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Pending reports whether a decision request is in flight.
func (e *Engine) Pending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending
}

// Tick returns the decision tick counter.
func (e *Engine) Tick() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tick
}

// PlayerSnapshot returns a copy of the player.
func (e *Engine) PlayerSnapshot() types.Player {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.player
}

// RivalsSnapshot returns a copy of the rival roster.
func (e *Engine) RivalsSnapshot() []types.Rival {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]types.Rival, len(e.rivals))
	for i, r := range e.rivals {
		c := r
		c.Memory = append([]string(nil), r.Memory...)
		out[i] = c
	}
	return out
}

// RaceSnapshot returns a copy of the race state.
func (e *Engine) RaceSnapshot() types.RaceState {
	e.mu.Lock()
	defer e.mu.Unlock()
	race := e.race
	race.Positions = append([]string(nil), e.race.Positions...)
	race.EventLog = append([]types.EventEntry(nil), e.race.EventLog...)
	race.ActiveBounties = append([]types.Bounty(nil), e.race.ActiveBounties...)
	return race
}

// FeedLines returns the current commentary feed.
func (e *Engine) FeedLines() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.feed.Lines()
}

// FeedTotal returns the number of feed lines ever produced this race,
// including lines already evicted from the display window.
func (e *Engine) FeedTotal() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.feed.Total()
}

// Telemetry returns the current speed and nitro gauges.
func (e *Engine) Telemetry() (speed, nitro float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed, e.nitro
}

// Recap returns the built recap, or nil before BuildRecap has run.
func (e *Engine) Recap() *types.Recap {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recap
}

// Defs exposes the immutable definitions the engine was built from.
func (e *Engine) Defs() *state.Defs {
	return e.defs
}

// RivalName returns the display name for an actor id.
func (e *Engine) RivalName(id string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id == types.PlayerID {
		return e.player.Name
	}
	if r := state.RivalByID(e.rivals, id); r != nil {
		return r.Name
	}
	return strings.ToUpper(id)
}
