package engine

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/nathoo/apexrivals/engine/state"
	"github.com/nathoo/apexrivals/types"
)

// fixtureSource returns canned responses, recording what it was asked.
type fixtureSource struct {
	resp     *types.DecisionResponse
	err      error
	recap    *types.Recap
	recapErr error

	tickCalls  int
	recapCalls int
	lastReq    TickRequest
}

func (f *fixtureSource) Tick(_ context.Context, req TickRequest) (*types.DecisionResponse, error) {
	f.tickCalls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	if f.resp != nil {
		return f.resp, nil
	}
	return &types.DecisionResponse{
		Commentary:      "Slipstream battle into turn one!",
		PositionChanges: req.RaceState.Positions,
	}, nil
}

func (f *fixtureSource) Recap(_ context.Context, _ RecapRequest) (*types.Recap, error) {
	f.recapCalls++
	if f.recapErr != nil {
		return nil, f.recapErr
	}
	if f.recap != nil {
		return f.recap, nil
	}
	return &types.Recap{Headline: "Photo Finish", Narrative: []string{"A classic."}}, nil
}

// blockingSource holds every tick call until released, for in-flight tests.
type blockingSource struct {
	release chan struct{}
}

func (b *blockingSource) Tick(ctx context.Context, req TickRequest) (*types.DecisionResponse, error) {
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &types.DecisionResponse{Commentary: "late", PositionChanges: req.RaceState.Positions}, nil
}

func (b *blockingSource) Recap(_ context.Context, _ RecapRequest) (*types.Recap, error) {
	return &types.Recap{Headline: "done"}, nil
}

// blockingRecapSource completes ticks instantly but holds every recap
// call until released.
type blockingRecapSource struct {
	entered chan struct{}
	release chan struct{}
	calls   int
}

func (s *blockingRecapSource) Tick(_ context.Context, req TickRequest) (*types.DecisionResponse, error) {
	return &types.DecisionResponse{
		Commentary:      "steady lap",
		PositionChanges: req.RaceState.Positions,
	}, nil
}

func (s *blockingRecapSource) Recap(ctx context.Context, _ RecapRequest) (*types.Recap, error) {
	s.calls++
	s.entered <- struct{}{}
	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &types.Recap{Headline: fmt.Sprintf("Recap %d", s.calls)}, nil
}

func newRacingEngine(src DecisionSource) *Engine {
	e := New(state.Default(), src)
	e.StartRace()
	return e
}

func runTicks(t *testing.T, e *Engine, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if report := e.RunTick(context.Background()); !report.Ran {
			t.Fatalf("tick %d was refused", i+1)
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func feedContains(lines []string, substr string) bool {
	for _, line := range lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

func TestStartRace_ResetsState(t *testing.T) {
	e := newRacingEngine(&fixtureSource{})

	if e.Phase() != types.PhaseRacing {
		t.Fatalf("expected racing phase, got %v", e.Phase())
	}
	race := e.RaceSnapshot()
	if race.Lap != 1 {
		t.Errorf("expected lap 1, got %d", race.Lap)
	}
	want := []string{"viper", "cipher", "player", "ghost", "havoc"}
	for i, id := range want {
		if race.Positions[i] != id {
			t.Errorf("position %d: expected %q, got %q", i, id, race.Positions[i])
		}
	}
	player := e.PlayerSnapshot()
	if player.Money != 5000 || player.HeatLevel != 0 || player.Reputation != 60 {
		t.Errorf("unexpected player defaults: %+v", player)
	}
}

func TestRunTick_ReplacesPositionsWholesale(t *testing.T) {
	src := &fixtureSource{resp: &types.DecisionResponse{
		Commentary:      "Havoc sends it up the inside!",
		PositionChanges: []string{"havoc", "player", "viper", "cipher", "ghost"},
	}}
	e := newRacingEngine(src)
	runTicks(t, e, 1)

	got := e.RaceSnapshot().Positions
	want := []string{"havoc", "player", "viper", "cipher", "ghost"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("positions = %v, want %v", got, want)
		}
	}
	if !feedContains(e.FeedLines(), "Havoc sends it") {
		t.Error("commentary missing from feed")
	}
}

func TestRunTick_RepairsCorruptPositions(t *testing.T) {
	// Duplicate, unknown, and missing ids: the merge must still yield a
	// permutation of the full actor set.
	src := &fixtureSource{resp: &types.DecisionResponse{
		Commentary:      "chaos",
		PositionChanges: []string{"viper", "viper", "intruder", "player"},
	}}
	e := newRacingEngine(src)
	runTicks(t, e, 1)

	got := e.RaceSnapshot().Positions
	if len(got) != 5 {
		t.Fatalf("expected 5 positions, got %v", got)
	}
	seen := map[string]bool{}
	for _, id := range got {
		if seen[id] {
			t.Fatalf("duplicate id %q in %v", id, got)
		}
		seen[id] = true
	}
	if got[0] != "viper" || got[1] != "player" {
		t.Errorf("expected proposed order preserved for known ids, got %v", got)
	}
}

func TestRunTick_EmotionalUpdateBoundsMemory(t *testing.T) {
	src := &fixtureSource{resp: &types.DecisionResponse{
		Commentary: "pressure",
		EmotionalUpdates: []types.EmotionalUpdate{
			{RivalID: "viper", NewState: "Panicked", Trigger: "Blocked at the apex"},
		},
	}}
	e := newRacingEngine(src)
	runTicks(t, e, 10)

	var viper types.Rival
	for _, r := range e.RivalsSnapshot() {
		if r.ID == "viper" {
			viper = r
		}
	}
	if viper.EmotionalState != "Panicked" {
		t.Errorf("expected emotional state overwritten, got %q", viper.EmotionalState)
	}
	if len(viper.Memory) != state.MemoryLimit {
		t.Errorf("expected memory bounded to %d, got %d", state.MemoryLimit, len(viper.Memory))
	}
	if viper.Memory[len(viper.Memory)-1] != "Blocked at the apex" {
		t.Errorf("expected newest trigger last, got %v", viper.Memory)
	}
}

func TestRunTick_UnknownRivalIgnored(t *testing.T) {
	src := &fixtureSource{resp: &types.DecisionResponse{
		Commentary: "ghost rider",
		EmotionalUpdates: []types.EmotionalUpdate{
			{RivalID: "nobody", NewState: "Confused", Trigger: "?"},
		},
	}}
	e := newRacingEngine(src)
	before := e.RivalsSnapshot()
	runTicks(t, e, 1)
	after := e.RivalsSnapshot()

	for i := range before {
		if before[i].EmotionalState != after[i].EmotionalState {
			t.Errorf("rival %s mutated by unknown-id update", after[i].ID)
		}
	}
}

func TestRunTick_PoliceActionRaisesRaceHeatClamped(t *testing.T) {
	src := &fixtureSource{resp: &types.DecisionResponse{
		Commentary:   "incident",
		PoliceAction: &types.PoliceAction{Type: "track_limits", Description: "Warning flag shown."},
	}}
	e := newRacingEngine(src)
	runTicks(t, e, 8) // 8 ticks × +5 = 40

	if got := e.RaceSnapshot().HeatLevel; got != 40 {
		t.Errorf("expected race heat 40, got %d", got)
	}
	if !feedContains(e.FeedLines(), "MARSHAL") {
		t.Error("expected marshal line in feed")
	}
}

func TestRunTick_FailureLeavesStateUnchanged(t *testing.T) {
	src := &fixtureSource{err: context.DeadlineExceeded}
	e := newRacingEngine(src)
	beforePlayer := e.PlayerSnapshot()
	beforePositions := e.RaceSnapshot().Positions
	beforeRivals := e.RivalsSnapshot()

	report := e.RunTick(context.Background())
	if !report.Ran || !report.Failed {
		t.Fatalf("expected a ran+failed report, got %+v", report)
	}

	if e.PlayerSnapshot() != beforePlayer {
		t.Error("player mutated on failed tick")
	}
	for i, id := range e.RaceSnapshot().Positions {
		if beforePositions[i] != id {
			t.Error("positions mutated on failed tick")
		}
	}
	for i, r := range e.RivalsSnapshot() {
		if r.EmotionalState != beforeRivals[i].EmotionalState {
			t.Error("rivals mutated on failed tick")
		}
	}
	if e.Tick() != 1 {
		t.Errorf("tick counter must advance on failure, got %d", e.Tick())
	}
	if !feedContains(e.FeedLines(), "Signal Interference") {
		t.Error("expected interference notice in feed")
	}
}

func TestRunTick_LapAdvancesEveryFourthTick(t *testing.T) {
	e := newRacingEngine(&fixtureSource{})

	runTicks(t, e, 3)
	if lap := e.RaceSnapshot().Lap; lap != 1 {
		t.Fatalf("expected lap 1 after 3 ticks, got %d", lap)
	}
	runTicks(t, e, 1)
	if lap := e.RaceSnapshot().Lap; lap != 2 {
		t.Fatalf("expected lap 2 after 4 ticks, got %d", lap)
	}
	runTicks(t, e, 4)
	if lap := e.RaceSnapshot().Lap; lap != 3 {
		t.Fatalf("expected lap 3 after 8 ticks, got %d", lap)
	}
}

func TestRunTick_FailedTicksStillCountTowardLaps(t *testing.T) {
	src := &fixtureSource{err: context.DeadlineExceeded}
	e := newRacingEngine(src)
	for i := 0; i < 4; i++ {
		e.RunTick(context.Background())
	}
	if lap := e.RaceSnapshot().Lap; lap != 2 {
		t.Errorf("expected lap 2 after 4 failed ticks, got %d", lap)
	}
}

func TestRunTick_TwelfthTickFinishesRace(t *testing.T) {
	src := &fixtureSource{}
	e := newRacingEngine(src)
	runTicks(t, e, 11)
	if e.Phase() != types.PhaseRacing {
		t.Fatal("race ended early")
	}

	report := e.RunTick(context.Background())
	if !report.Finished {
		t.Fatal("expected the 12th tick to finish the race")
	}
	if e.Phase() != types.PhaseFinished {
		t.Fatalf("expected finished phase, got %v", e.Phase())
	}
	if lap := e.RaceSnapshot().Lap; lap <= 3 {
		t.Errorf("expected lap past the limit at finish, got %d", lap)
	}

	// A 13th tick must be refused without touching the source.
	calls := src.tickCalls
	if report := e.RunTick(context.Background()); report.Ran {
		t.Error("tick accepted after finish")
	}
	if src.tickCalls != calls {
		t.Error("decision source called after finish")
	}
}

func TestRunTick_RequestCarriesRecentEventsOnly(t *testing.T) {
	src := &fixtureSource{}
	e := newRacingEngine(src)
	for i := 0; i < 8; i++ {
		e.Action(ActionPush)
		runTicks(t, e, 1)
	}
	if got := len(src.lastReq.RecentEvents); got > state.RecentLimit {
		t.Errorf("recent events must be capped at %d, got %d", state.RecentLimit, got)
	}
	if len(src.lastReq.RaceState.EventLog) <= state.RecentLimit {
		t.Error("full event log should keep growing past the recent window")
	}
}

func TestAction_PushRaisesHeatAndLogs(t *testing.T) {
	e := newRacingEngine(&fixtureSource{})
	if !e.Action(ActionPush) {
		t.Fatal("push refused")
	}

	if got := e.PlayerSnapshot().HeatLevel; got != 8 {
		t.Errorf("expected heat 8, got %d", got)
	}
	log := e.RaceSnapshot().EventLog
	if len(log) != 1 || log[0].Type != "push" || log[0].Actor != types.PlayerID {
		t.Fatalf("unexpected event log: %+v", log)
	}
	// Player starts third; cipher is directly ahead.
	if log[0].Target != "cipher" {
		t.Errorf("expected target cipher, got %q", log[0].Target)
	}
}

func TestAction_HeatClampsAtCap(t *testing.T) {
	e := newRacingEngine(&fixtureSource{})
	for i := 0; i < 20; i++ {
		e.Action(ActionPush)
	}
	if got := e.PlayerSnapshot().HeatLevel; got != state.HeatMax {
		t.Errorf("expected heat clamped at %d, got %d", state.HeatMax, got)
	}
}

func TestAction_NitroGateAndCost(t *testing.T) {
	e := newRacingEngine(&fixtureSource{})

	// Full gauge: boost allowed, costs 30.
	if !e.Action(ActionNitro) {
		t.Fatal("nitro refused at full gauge")
	}
	if _, nitro := e.Telemetry(); nitro != 70 {
		t.Errorf("expected nitro 70 after one boost, got %g", nitro)
	}

	e.Action(ActionNitro) // 40
	e.Action(ActionNitro) // 10, below the gate now
	if e.Action(ActionNitro) {
		t.Error("nitro allowed below the gate")
	}
	if got := e.PlayerSnapshot().HeatLevel; got != 0 {
		t.Errorf("nitro must not raise heat, got %d", got)
	}
}

func TestAction_DoesNotTouchPositions(t *testing.T) {
	e := newRacingEngine(&fixtureSource{})
	before := e.RaceSnapshot().Positions
	e.Action(ActionPush)
	e.Action(ActionBlock)
	for i, id := range e.RaceSnapshot().Positions {
		if before[i] != id {
			t.Fatal("local actions must not reorder positions")
		}
	}
}

func TestAction_RefusedAfterFinish(t *testing.T) {
	e := newRacingEngine(&fixtureSource{})
	runTicks(t, e, 12)

	if e.Action(ActionPush) {
		t.Error("action accepted after finish")
	}
	if e.PlaceBounty("viper", 100, types.BountySecret, types.ConditionCrash) {
		t.Error("bounty accepted after finish")
	}
}

func TestAction_RefusedWhileTickPending(t *testing.T) {
	src := &blockingSource{release: make(chan struct{})}
	e := newRacingEngine(src)

	done := make(chan TickReport, 1)
	go func() { done <- e.RunTick(context.Background()) }()
	waitFor(t, e.Pending)

	if e.Action(ActionPush) {
		t.Error("action accepted while a decision request was in flight")
	}

	close(src.release)
	report := <-done
	if !report.Ran {
		t.Fatal("tick did not complete after release")
	}
	if !e.Action(ActionPush) {
		t.Error("action refused after the request settled")
	}
}

func TestRunTick_StaleResponseDiscardedAfterRestart(t *testing.T) {
	src := &blockingSource{release: make(chan struct{})}
	e := newRacingEngine(src)

	done := make(chan TickReport, 1)
	go func() { done <- e.RunTick(context.Background()) }()
	waitFor(t, e.Pending)

	// Restart while the request is in flight; the old response must not
	// touch the new race.
	e.StartRace()
	close(src.release)
	report := <-done

	if report.Ran {
		t.Error("stale tick reported as applied")
	}
	if e.Tick() != 0 {
		t.Errorf("stale response advanced the new race's tick counter: %d", e.Tick())
	}
	if feedContains(e.FeedLines(), "late") {
		t.Error("stale commentary leaked into the new race")
	}
}

func TestPlaceBounty_Scenario(t *testing.T) {
	e := newRacingEngine(&fixtureSource{})
	if !e.PlaceBounty("viper", 1000, types.BountyPublic, types.ConditionCrash) {
		t.Fatal("bounty refused")
	}

	player := e.PlayerSnapshot()
	if player.Money != 4000 {
		t.Errorf("expected money 4000, got %d", player.Money)
	}
	if player.HeatLevel != 8 {
		t.Errorf("expected heat 8, got %d", player.HeatLevel)
	}
	bounties := e.RaceSnapshot().ActiveBounties
	if len(bounties) != 1 {
		t.Fatalf("expected 1 bounty, got %d", len(bounties))
	}
	b := bounties[0]
	if b.Status != types.BountyActive || b.TargetID != "viper" || b.Amount != 1000 || b.Condition != types.ConditionCrash {
		t.Errorf("unexpected bounty: %+v", b)
	}
	if len(b.AcceptedBy) != 0 {
		t.Errorf("expected empty acceptedBy, got %v", b.AcceptedBy)
	}
}

func TestPlaceBounty_OverBudgetIsNoOp(t *testing.T) {
	e := newRacingEngine(&fixtureSource{})
	before := e.PlayerSnapshot()

	if e.PlaceBounty("viper", 6000, types.BountySecret, types.ConditionBlock) {
		t.Fatal("over-budget bounty accepted")
	}
	if e.PlayerSnapshot() != before {
		t.Error("player mutated by refused bounty")
	}
	if len(e.RaceSnapshot().ActiveBounties) != 0 {
		t.Error("bounty recorded despite refusal")
	}
}

func TestRunTick_BountyAcceptanceApplied(t *testing.T) {
	src := &fixtureSource{}
	e := newRacingEngine(src)
	e.PlaceBounty("viper", 500, types.BountyPublic, types.ConditionBlock)
	id := e.RaceSnapshot().ActiveBounties[0].ID

	src.resp = &types.DecisionResponse{
		Commentary: "A deal is struck in the slipstream.",
		BountyResponses: []types.BountyResponse{
			{BountyID: id, RivalID: "havoc", Decision: "accept"},
			{BountyID: id, RivalID: "havoc", Decision: "accept"}, // duplicate must not double-count
		},
	}
	runTicks(t, e, 1)

	b := e.RaceSnapshot().ActiveBounties[0]
	if len(b.AcceptedBy) != 1 || b.AcceptedBy[0] != "havoc" {
		t.Errorf("expected havoc to accept once, got %v", b.AcceptedBy)
	}
	if !feedContains(e.FeedLines(), "takes the contract") {
		t.Error("public acceptance should be announced")
	}
}

func TestRunTick_AllianceChangesApplied(t *testing.T) {
	src := &fixtureSource{resp: &types.DecisionResponse{
		Commentary: "pact",
		AllianceChanges: []types.AllianceChange{
			{RivalA: "ghost", RivalB: "cipher", Status: "formed"},
		},
	}}
	e := newRacingEngine(src)
	runTicks(t, e, 1)

	race := e.RaceSnapshot()
	if !race.AllianceMap["cipher|ghost"] {
		t.Errorf("expected alliance recorded, got %v", race.AllianceMap)
	}
}

func TestBuildRecap_FallbackOnGatewayFailure(t *testing.T) {
	src := &fixtureSource{recapErr: context.DeadlineExceeded}
	e := newRacingEngine(src)
	runTicks(t, e, 12)

	recap := e.BuildRecap(context.Background())
	if recap == nil || recap.Headline == "" {
		t.Fatal("expected a synthetic recap on gateway failure")
	}
	if len(recap.RivalQuotes) != 4 {
		t.Errorf("expected a quote per rival, got %d", len(recap.RivalQuotes))
	}

	// Built exactly once.
	again := e.BuildRecap(context.Background())
	if again != recap {
		t.Error("recap rebuilt on second call")
	}
	if src.recapCalls != 1 {
		t.Errorf("expected one recap request, got %d", src.recapCalls)
	}
}

func TestBuildRecap_StaleRecapDiscardedAfterRestart(t *testing.T) {
	src := &blockingRecapSource{
		entered: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	e := newRacingEngine(src)
	runTicks(t, e, 12)

	done := make(chan *types.Recap, 1)
	go func() { done <- e.BuildRecap(context.Background()) }()
	<-src.entered

	// Restart while the recap request is in flight.
	e.StartRace()
	close(src.release)

	if recap := <-done; recap != nil {
		t.Fatalf("stale recap returned after restart: %q", recap.Headline)
	}
	if e.Recap() != nil {
		t.Fatal("stale recap attached to the restarted race")
	}

	// The new race must trigger a fresh request once it finishes.
	runTicks(t, e, 12)
	recap := e.BuildRecap(context.Background())
	if recap == nil || recap.Headline != "Recap 2" {
		t.Fatalf("expected a fresh recap, got %+v", recap)
	}
	if src.calls != 2 {
		t.Errorf("expected 2 recap requests, got %d", src.calls)
	}
}

func TestBuildRecap_RefusedBeforeFinish(t *testing.T) {
	e := newRacingEngine(&fixtureSource{})
	if e.BuildRecap(context.Background()) != nil {
		t.Error("recap built while still racing")
	}
}

func TestFeed_DisplayBoundedWhileLogGrows(t *testing.T) {
	e := newRacingEngine(&fixtureSource{})
	for i := 0; i < 11; i++ {
		e.Action(ActionPush)
		e.Action(ActionBlock)
		runTicks(t, e, 1)
	}
	if got := len(e.FeedLines()); got > 20 {
		t.Errorf("display feed exceeded cap: %d", got)
	}
	if got := len(e.RaceSnapshot().EventLog); got < 22 {
		t.Errorf("event log should be unbounded, got %d entries", got)
	}
}

func TestDecayTelemetry_Regenerates(t *testing.T) {
	e := newRacingEngine(&fixtureSource{})
	e.Action(ActionNitro)
	for i := 0; i < 10; i++ {
		e.DecayTelemetry()
	}
	_, nitro := e.Telemetry()
	if nitro <= 70 {
		t.Errorf("expected nitro regeneration, got %g", nitro)
	}
	speed, _ := e.Telemetry()
	if speed < float64(e.Defs().Race.SpeedFloor) {
		t.Errorf("speed fell under the floor: %g", speed)
	}
}
