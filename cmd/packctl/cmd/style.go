package cmd

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	TitleStyle     = lipgloss.NewStyle().Bold(true).Padding(0, 0, 1, 0)
	HeaderStyle    = lipgloss.NewStyle().Bold(true).Underline(true)
	SubmittedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	PendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	WarnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	MutedStyle     = lipgloss.NewStyle().Faint(true)
)
