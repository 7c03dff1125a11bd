package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nathoo/apexrivals/types"
)

// bountyForm is the contract entry overlay on the race screen.
type bountyForm struct {
	rivals    []types.Rival
	targetIdx int
	visIdx    int
	condIdx   int
	amount    textinput.Model
}

var (
	bountyVisibilities = []types.BountyVisibility{types.BountySecret, types.BountyPublic}
	bountyConditions   = []types.BountyCondition{types.ConditionBlock, types.ConditionCrash, types.ConditionFinishBelow}
)

func newBountyForm(rivals []types.Rival) *bountyForm {
	ti := textinput.New()
	ti.Prompt = "$"
	ti.Placeholder = "1000"
	ti.CharLimit = 6
	ti.Focus()
	return &bountyForm{rivals: rivals, amount: ti}
}

// updateBountyForm handles keys while the contract form is open.
func (m Model) updateBountyForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := m.bounty

	switch msg.String() {
	case "esc":
		m.bounty = nil
		return m, nil

	case "left", "up":
		f.targetIdx = (f.targetIdx + len(f.rivals) - 1) % len(f.rivals)
		return m, nil

	case "right", "down", "tab":
		f.targetIdx = (f.targetIdx + 1) % len(f.rivals)
		return m, nil

	case "v":
		f.visIdx = (f.visIdx + 1) % len(bountyVisibilities)
		return m, nil

	case "c":
		f.condIdx = (f.condIdx + 1) % len(bountyConditions)
		return m, nil

	case "enter":
		amount, err := strconv.Atoi(strings.TrimSpace(f.amount.Value()))
		if err == nil && len(f.rivals) > 0 {
			m.engine.PlaceBounty(
				f.rivals[f.targetIdx].ID,
				amount,
				bountyVisibilities[f.visIdx],
				bountyConditions[f.condIdx],
			)
			m.refreshFeed()
		}
		m.bounty = nil
		return m, nil
	}

	var cmd tea.Cmd
	f.amount, cmd = f.amount.Update(msg)
	return m, cmd
}

func (f *bountyForm) view() string {
	target := "—"
	if len(f.rivals) > 0 {
		target = f.rivals[f.targetIdx].Name
	}
	line := fmt.Sprintf(" CONTRACT  target ◂%s▸  stake %s  [v]isibility: %s  [c]ondition: %s  enter: offer  esc: cancel",
		target,
		f.amount.View(),
		bountyVisibilities[f.visIdx],
		bountyConditions[f.condIdx],
	)
	return stylePanel.Render(line)
}
