package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/apexrivals/engine/state"
	"github.com/nathoo/apexrivals/types"
)

const sidebarWidth = 34

func (m *Model) feedWidth() int {
	w := m.width - sidebarWidth - 4
	if w < 20 {
		w = 20
	}
	return w
}

// refreshFeed rebuilds the viewport content from the engine's feed.
func (m *Model) refreshFeed() {
	if !m.ready {
		return
	}
	lines := m.engine.FeedLines()
	styled := make([]string, len(lines))
	for i, line := range lines {
		idx := styleFeedIndex.Render(fmt.Sprintf("[%02d] ", i))
		styled[i] = idx + styleFeedLine.Render(line)
	}
	m.viewport.SetContent(strings.Join(styled, "\n"))
	m.viewport.GotoBottom()
}

// View renders the current phase.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	switch m.engine.Phase() {
	case types.PhaseIntro:
		return m.viewIntro()
	case types.PhaseFinished:
		if m.recap != nil {
			return m.viewRecap()
		}
		return m.viewRace() // checkered flag shown in the feed while the recap builds
	default:
		return m.viewRace()
	}
}

func (m Model) viewIntro() string {
	defs := m.engine.Defs()
	var b strings.Builder
	b.WriteString("\n\n")
	b.WriteString(styleTitle.Render("  " + strings.ToUpper(defs.Game.Title)))
	b.WriteString("\n\n")
	b.WriteString("  Venue: " + defs.Game.Venue + "\n")
	b.WriteString(fmt.Sprintf("  %d laps against %d rivals. Contracts, alliances, and marshals in play.\n\n", defs.Race.Laps, len(defs.Rivals)))
	for _, r := range defs.Rivals {
		b.WriteString(fmt.Sprintf("  %s — %s\n", styleRivalName.Render(r.Name), styleRivalMeta.Render(string(r.Archetype))))
	}
	b.WriteString("\n" + styleHelp.Render("  enter: race   q: quit"))
	return b.String()
}

func (m Model) viewRace() string {
	feed := stylePanel.Render(m.viewport.View())
	sidebar := stylePanel.Render(m.viewSidebar())
	body := lipgloss.JoinHorizontal(lipgloss.Top, feed, sidebar)

	sections := []string{m.renderStatusBar(), body, m.renderControls()}
	if m.bounty != nil {
		sections = append(sections, m.bounty.view())
	}
	return strings.Join(sections, "\n")
}

// renderStatusBar shows lap, heat meter, telemetry, and prize money.
func (m Model) renderStatusBar() string {
	player := m.engine.PlayerSnapshot()
	race := m.engine.RaceSnapshot()
	defs := m.engine.Defs()
	speed, nitro := m.engine.Telemetry()

	lap := race.Lap
	if lap > defs.Race.Laps {
		lap = defs.Race.Laps
	}

	left := fmt.Sprintf(" LAP %d/%d  %s  %d KPH  DRAFT %d%%",
		lap, defs.Race.Laps, heatMeter(player.HeatLevel), int(speed), int(nitro))
	right := styleMoney.Render(fmt.Sprintf("$%d ", player.Money))
	if m.engine.Pending() {
		right = stylePendingNote.Render("CALCULATING APEX... ") + right
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return styleStatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

// heatMeter renders the player's risk level as ten blocks.
func heatMeter(heat int) string {
	var b strings.Builder
	for i := 0; i < 10; i++ {
		switch {
		case i*10 >= heat:
			b.WriteString(styleHeatOff.Render("▮"))
		case heat > 70:
			b.WriteString(styleHeatHigh.Render("▮"))
		default:
			b.WriteString(styleHeatLow.Render("▮"))
		}
	}
	return b.String()
}

// viewSidebar renders standings and the rival intelligence panel.
func (m Model) viewSidebar() string {
	race := m.engine.RaceSnapshot()
	rivals := m.engine.RivalsSnapshot()

	var b strings.Builder
	b.WriteString(styleRivalMeta.Render("STANDINGS") + "\n")
	for i, id := range race.Positions {
		b.WriteString(fmt.Sprintf("P%d %s\n", i+1, m.engine.RivalName(id)))
	}

	b.WriteString("\n" + styleRivalMeta.Render("PADDOCK INTELLIGENCE") + "\n")
	for _, r := range rivals {
		b.WriteString(styleRivalName.Render(r.Name))
		b.WriteString(styleRivalMeta.Render(" · " + string(r.Archetype)))
		b.WriteString("\n  " + styleEmotion.Render(r.EmotionalState) + "\n")
		if len(r.Memory) > 0 {
			b.WriteString("  " + styleRivalMeta.Render(r.Memory[len(r.Memory)-1]) + "\n")
		}
	}

	if n := len(race.ActiveBounties); n > 0 {
		b.WriteString("\n" + styleRivalMeta.Render(fmt.Sprintf("CONTRACTS: %d", n)) + "\n")
	}
	return b.String()
}

func (m Model) renderControls() string {
	nitroGate := m.engine.Defs().Race.NitroGate
	_, nitro := m.engine.Telemetry()
	boost := "n: overtake boost"
	if int(nitro) < nitroGate {
		boost = styleRivalMeta.Render("n: overtake boost (charging)")
	}
	return styleHelp.Render(fmt.Sprintf(" p: shoulder bump   b: close line   %s   o: contract   ctrl+c: quit", boost))
}

func (m Model) viewRecap() string {
	r := m.recap
	player := m.engine.PlayerSnapshot()
	race := m.engine.RaceSnapshot()
	names := map[string]string{types.PlayerID: player.Name}
	for _, rv := range m.engine.RivalsSnapshot() {
		names[rv.ID] = rv.Name
	}

	var b strings.Builder
	b.WriteString("\n" + styleHeadline.Render("  "+r.Headline) + "\n\n")
	for _, p := range r.Narrative {
		b.WriteString("  " + p + "\n\n")
	}

	b.WriteString("  " + styleRivalMeta.Render("FINAL ORDER: "+state.FinishOrder(race.Positions, names)) + "\n\n")

	for id, quote := range r.RivalQuotes {
		name := names[id]
		if name == "" {
			name = strings.ToUpper(id)
		}
		b.WriteString("  " + styleRivalName.Render(name) + ": " + styleQuote.Render("“"+quote+"”") + "\n")
	}

	if len(r.ForumComments) > 0 {
		b.WriteString("\n")
		for _, c := range r.ForumComments {
			b.WriteString("  " + styleForumUser.Render("@"+c.User) + " " + c.Text + "\n")
		}
	}

	if r.StatsSummary != "" {
		b.WriteString("\n  " + styleRivalMeta.Render(r.StatsSummary) + "\n")
	}
	b.WriteString("\n" + styleHelp.Render("  r: race again   q: quit"))
	return b.String()
}
