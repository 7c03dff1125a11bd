// Package tui is the Bubble Tea front end for Apex Rivals: intro screen,
// live race screen with the commentary feed and rider controls, and the
// post-race recap. The decision tick is driven from here but all state
// transitions happen inside the engine.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nathoo/apexrivals/engine"
	"github.com/nathoo/apexrivals/types"
)

// telemetryInterval drives the speed/nitro gauge animation.
const telemetryInterval = 100 * time.Millisecond

// decisionTickMsg fires when the next decision cycle is due.
type decisionTickMsg struct{ epoch int }

// tickDoneMsg carries the result of a completed decision cycle.
type tickDoneMsg struct {
	epoch  int
	report engine.TickReport
}

// telemetryMsg drives gauge decay.
type telemetryMsg struct{}

// recapMsg carries the recap once built.
type recapMsg struct{ recap *types.Recap }

// Model is the Bubble Tea model for the race UI.
type Model struct {
	engine *engine.Engine

	viewport viewport.Model
	bounty   *bountyForm

	width  int
	height int
	ready  bool

	// raceEpoch invalidates scheduled tick messages from a previous race
	// so a restart never double-schedules the decision loop.
	raceEpoch int

	recap    *types.Recap
	quitting bool
}

// New creates a TUI model wired to the given engine.
func New(eng *engine.Engine) Model {
	return Model{engine: eng}
}

// Run starts the Bubble Tea program.
func Run(eng *engine.Engine) error {
	p := tea.NewProgram(New(eng), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init waits for the first key press on the intro screen.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles key presses, resizes, and the race timers.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpHeight := m.height - 8 // status bar, controls, panel chrome
		if vpHeight < 3 {
			vpHeight = 3
		}
		vpWidth := m.feedWidth()
		if !m.ready {
			m.viewport = viewport.New(vpWidth, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = vpWidth
			m.viewport.Height = vpHeight
		}
		m.refreshFeed()

	case tea.KeyMsg:
		return m.handleKey(msg)

	case decisionTickMsg:
		if msg.epoch != m.raceEpoch || m.engine.Phase() != types.PhaseRacing {
			return m, nil
		}
		return m, m.runTickCmd()

	case tickDoneMsg:
		if msg.epoch != m.raceEpoch {
			return m, nil
		}
		m.refreshFeed()
		if msg.report.Finished {
			return m, m.buildRecapCmd()
		}
		if m.engine.Phase() == types.PhaseRacing {
			return m, m.scheduleTick()
		}

	case telemetryMsg:
		if m.engine.Phase() == types.PhaseRacing {
			m.engine.DecayTelemetry()
			return m, m.scheduleTelemetry()
		}

	case recapMsg:
		m.recap = msg.recap
		m.refreshFeed()
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	// The bounty form swallows all keys while open.
	if m.bounty != nil {
		return m.updateBountyForm(msg)
	}

	switch m.engine.Phase() {
	case types.PhaseIntro:
		switch msg.String() {
		case "q":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			return m.startRace()
		}

	case types.PhaseRacing:
		switch msg.String() {
		case "p":
			m.engine.Action(engine.ActionPush)
			m.refreshFeed()
		case "b":
			m.engine.Action(engine.ActionBlock)
			m.refreshFeed()
		case "n":
			m.engine.Action(engine.ActionNitro)
			m.refreshFeed()
		case "o":
			if !m.engine.Pending() {
				m.bounty = newBountyForm(m.engine.RivalsSnapshot())
			}
		}

	case types.PhaseFinished:
		switch msg.String() {
		case "q":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m.startRace()
		}
	}

	return m, nil
}

// startRace resets the engine and kicks off both timers.
func (m Model) startRace() (tea.Model, tea.Cmd) {
	m.engine.StartRace()
	m.raceEpoch++
	m.recap = nil
	m.bounty = nil
	m.refreshFeed()
	return m, tea.Batch(m.scheduleTick(), m.scheduleTelemetry())
}

// scheduleTick arms the next decision cycle after the fixed interval.
func (m Model) scheduleTick() tea.Cmd {
	epoch := m.raceEpoch
	interval := time.Duration(m.engine.Defs().Race.TickSeconds) * time.Second
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return decisionTickMsg{epoch: epoch}
	})
}

// runTickCmd executes one decision cycle off the UI goroutine.
func (m Model) runTickCmd() tea.Cmd {
	epoch := m.raceEpoch
	eng := m.engine
	return func() tea.Msg {
		report := eng.RunTick(context.Background())
		return tickDoneMsg{epoch: epoch, report: report}
	}
}

func (m Model) scheduleTelemetry() tea.Cmd {
	return tea.Tick(telemetryInterval, func(time.Time) tea.Msg {
		return telemetryMsg{}
	})
}

// buildRecapCmd requests the recap off the UI goroutine.
func (m Model) buildRecapCmd() tea.Cmd {
	eng := m.engine
	return func() tea.Msg {
		return recapMsg{recap: eng.BuildRecap(context.Background())}
	}
}
