package tui

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("231")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)
	subtitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("189")).Background(lipgloss.Color("62"))

	welcomeTitleStyle = lipgloss.NewStyle().Bold(true)
	welcomeTextStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	selfBubbleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)
	partnerBubbleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("235")).
				Background(lipgloss.Color("254")).
				Padding(0, 1)
	hiddenBubbleStyle = lipgloss.NewStyle().
				Italic(true).
				Foreground(lipgloss.Color("124")).
				Background(lipgloss.Color("224")).
				Padding(0, 1)
	timestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))

	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)
