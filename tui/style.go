package tui

import "github.com/charmbracelet/lipgloss"

// Styles used throughout the TUI.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleTitle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("201")).
			Bold(true)

	styleFeedLine = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	styleFeedIndex = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleHeatLow = lipgloss.NewStyle().
			Foreground(lipgloss.Color("201"))

	styleHeatHigh = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	styleHeatOff = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238"))

	styleMoney = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46"))

	styleRivalName = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	styleRivalMeta = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleEmotion = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228"))

	stylePanel = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)

	styleHelp = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	stylePendingNote = lipgloss.NewStyle().
				Foreground(lipgloss.Color("46"))

	styleHeadline = lipgloss.NewStyle().
			Foreground(lipgloss.Color("201")).
			Bold(true).
			Underline(true)

	styleQuote = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228")).
			Italic(true)

	styleForumUser = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51"))
)
