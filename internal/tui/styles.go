package tui

import (
	"github.com/charmbracelet/lipgloss"

	"velolab/internal/report"
)

// App chrome. Cards and metrics come from the report package.
var (
	accentColor = lipgloss.Color("#2563EB")
	mutedColor  = lipgloss.Color("#6B7280")

	headerStyle = report.HeaderStyle.MarginBottom(1)

	navStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginBottom(1)

	navActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor)

	navInactiveStyle = lipgloss.NewStyle().
				Foreground(mutedColor)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#10B981"))
)
