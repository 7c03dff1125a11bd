// Package cli provides the plain terminal mode: a scanner loop where race
// ticks are advanced explicitly with "wait". Paired with the offline
// decision source it gives deterministic script playback.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/nathoo/apexrivals/engine"
	"github.com/nathoo/apexrivals/types"
)

// CLI handles terminal interaction with the player.
type CLI struct {
	Engine    *engine.Engine
	In        io.Reader
	Out       io.Writer
	EchoInput bool // echo each input line after the prompt (for script playback)

	feedShown int // lines already printed, so the feed streams incrementally
}

// New creates a CLI wired to the given engine.
func New(eng *engine.Engine) *CLI {
	return &CLI{
		Engine: eng,
		In:     os.Stdin,
		Out:    os.Stdout,
	}
}

// Run starts the race immediately and loops: prompt → input → dispatch →
// output. In plain mode the decision tick is manual — each "wait" runs one
// cycle — so scripts control pacing exactly.
func (c *CLI) Run() {
	defs := c.Engine.Defs()
	c.printLine(defs.Game.Title + " — " + defs.Game.Venue)
	c.printLine("Type 'help' for commands. 'wait' advances the race.")
	c.printLine("")

	c.Engine.StartRace()
	c.printFeed()

	scanner := bufio.NewScanner(c.In)
	for {
		c.print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		// Skip comment lines (for script files).
		if strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		if c.dispatch(input) {
			return
		}

		if c.Engine.Phase() == types.PhaseFinished && c.Engine.Recap() == nil {
			recap := c.Engine.BuildRecap(context.Background())
			c.printFeed()
			c.printRecap(recap)
			return
		}
	}
}

// dispatch handles one command. Returns true if the loop should exit.
// Only the command word is case-folded; arguments like contract targets
// pass through verbatim since rival ids are case-sensitive.
func (c *CLI) dispatch(input string) bool {
	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])

	switch cmd {
	case "quit", "q", "exit":
		c.printLine("Goodbye.")
		return true

	case "help", "h":
		c.cmdHelp()

	case "wait", "w":
		c.Engine.RunTick(context.Background())
		c.printFeed()

	case "push", "p":
		c.action(engine.ActionPush)

	case "block", "b":
		c.action(engine.ActionBlock)

	case "nitro", "n":
		c.action(engine.ActionNitro)

	case "bounty", "contract", "o":
		c.cmdBounty(parts[1:])

	case "standings", "pos":
		c.cmdStandings()

	case "rivals", "r":
		c.cmdRivals()

	case "status", "state":
		c.cmdStatus()

	case "trace", "log":
		c.cmdTrace()

	default:
		c.printLine(fmt.Sprintf("Unknown command: %s. Type 'help' for commands.", cmd))
	}
	return false
}

func (c *CLI) action(kind engine.ActionKind) {
	if !c.Engine.Action(kind) {
		c.printLine("Can't do that right now.")
		return
	}
	c.printFeed()
}

// cmdBounty parses: bounty <target> <amount> [public|secret] [crash|block|finishbelow]
func (c *CLI) cmdBounty(args []string) {
	if len(args) < 2 {
		c.printLine("Usage: bounty <target> <amount> [public|secret] [crash|block|finishBelow]")
		return
	}
	amount, err := strconv.Atoi(args[1])
	if err != nil {
		c.printLine("Stake must be a number.")
		return
	}

	visibility := types.BountySecret
	condition := types.ConditionBlock
	for _, arg := range args[2:] {
		switch strings.ToLower(arg) {
		case "public":
			visibility = types.BountyPublic
		case "secret":
			visibility = types.BountySecret
		case "crash":
			condition = types.ConditionCrash
		case "block":
			condition = types.ConditionBlock
		case "finishbelow":
			condition = types.ConditionFinishBelow
		}
	}

	if !c.Engine.PlaceBounty(args[0], amount, visibility, condition) {
		c.printLine("Contract refused: check the stake against your money.")
		return
	}
	c.printFeed()
}

func (c *CLI) cmdStandings() {
	race := c.Engine.RaceSnapshot()
	for i, id := range race.Positions {
		c.printLine(fmt.Sprintf("P%d %s", i+1, c.Engine.RivalName(id)))
	}
}

func (c *CLI) cmdRivals() {
	for _, r := range c.Engine.RivalsSnapshot() {
		c.printLine(fmt.Sprintf("%s (%s) — %s", r.Name, r.Archetype, r.EmotionalState))
		for _, mem := range r.Memory {
			c.printLine("  · " + mem)
		}
	}
}

func (c *CLI) cmdStatus() {
	player := c.Engine.PlayerSnapshot()
	race := c.Engine.RaceSnapshot()
	defs := c.Engine.Defs()
	speed, nitro := c.Engine.Telemetry()

	lap := race.Lap
	if lap > defs.Race.Laps {
		lap = defs.Race.Laps
	}
	c.printLine(fmt.Sprintf("Lap %d/%d  Tick %d  Heat %d  Race heat %d", lap, defs.Race.Laps, c.Engine.Tick(), player.HeatLevel, race.HeatLevel))
	c.printLine(fmt.Sprintf("Money $%d  Speed %d  Draft %d%%", player.Money, int(speed), int(nitro)))
	if n := len(race.ActiveBounties); n > 0 {
		c.printLine(fmt.Sprintf("Contracts: %d", n))
	}
}

// cmdTrace dumps the structured event log, one entry per line. The
// display feed narrates; this shows what the engine actually recorded.
func (c *CLI) cmdTrace() {
	log := c.Engine.RaceSnapshot().EventLog
	if len(log) == 0 {
		c.printLine("No events recorded yet.")
		return
	}
	for _, e := range log {
		target := e.Target
		if target == "" {
			target = "-"
		}
		c.printLine(fmt.Sprintf("t%02d %-6s %s -> %s  %s", e.Tick, e.Type, e.Actor, target, e.Description))
	}
}

func (c *CLI) cmdHelp() {
	help := []string{
		"Race:",
		"  wait (w)       — Advance the race one decision tick",
		"  push (p)       — Shoulder bump the rider ahead",
		"  block (b)      — Close the racing line",
		"  nitro (n)      — Overtake boost (needs draft power)",
		"  bounty <target> <amount> [public|secret] [crash|block|finishBelow]",
		"",
		"Info:",
		"  standings      — Current order",
		"  rivals (r)     — Rival psychology panel",
		"  status         — Lap, heat, money, telemetry",
		"  trace          — Structured event log",
		"  quit (q)       — Exit",
	}
	for _, line := range help {
		c.printLine(line)
	}
}

// printFeed streams feed lines that appeared since the last call, using
// the feed's total counter so eviction never hides new lines.
func (c *CLI) printFeed() {
	total := c.Engine.FeedTotal()
	lines := c.Engine.FeedLines()
	missed := total - c.feedShown
	if missed > len(lines) {
		missed = len(lines)
	}
	for _, line := range lines[len(lines)-missed:] {
		c.printLine(line)
	}
	c.feedShown = total
}

func (c *CLI) printRecap(r *types.Recap) {
	if r == nil {
		return
	}
	c.printLine("")
	c.printLine("=== " + r.Headline + " ===")
	for _, p := range r.Narrative {
		c.printLine(p)
	}
	for id, quote := range r.RivalQuotes {
		c.printLine(fmt.Sprintf("%s: \"%s\"", c.Engine.RivalName(id), quote))
	}
	for _, fc := range r.ForumComments {
		c.printLine("@" + fc.User + ": " + fc.Text)
	}
	if r.StatsSummary != "" {
		c.printLine(r.StatsSummary)
	}
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}
