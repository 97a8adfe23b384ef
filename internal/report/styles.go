package report

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"velolab/internal/analysis"
)

// Colors
var (
	primaryColor   = lipgloss.Color("#2563EB") // Blue
	secondaryColor = lipgloss.Color("#10B981") // Green
	warningColor   = lipgloss.Color("#F59E0B") // Amber
	errorColor     = lipgloss.Color("#EF4444") // Red
	mutedColor     = lipgloss.Color("#6B7280") // Gray
	textColor      = lipgloss.Color("#F9FAFB")
)

// Styles shared with the dashboard
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor).
			Background(primaryColor).
			Padding(0, 1)

	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	CardTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	StatusStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)

	ErrorStyle   = lipgloss.NewStyle().Foreground(errorColor)
	SuccessStyle = lipgloss.NewStyle().Foreground(secondaryColor)
	WarningStyle = lipgloss.NewStyle().Foreground(warningColor)
	MutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)

	KeyStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	metricLabelStyle = lipgloss.NewStyle().
				Foreground(mutedColor).
				Width(22)

	metricValueStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(textColor)

	progressFullStyle  = lipgloss.NewStyle().Foreground(secondaryColor)
	progressEmptyStyle = lipgloss.NewStyle().Foreground(mutedColor)
)

// Metric renders a label and value, with the note colored by its leading sign
func Metric(label, value, note string) string {
	noteStyle := MutedStyle
	if note != "" {
		switch []rune(note)[0] {
		case '+', '↑':
			noteStyle = SuccessStyle
		case '-', '↓':
			noteStyle = ErrorStyle
		}
		note = " " + note
	}
	return lipgloss.JoinHorizontal(
		lipgloss.Left,
		metricLabelStyle.Render(label),
		metricValueStyle.Render(value),
		noteStyle.Render(note),
	)
}

// ProgressBar renders a bar filled to fraction of width
func ProgressBar(fraction float64, width int) string {
	filled := int(fraction * float64(width))
	filled = max(0, min(width, filled))

	var b strings.Builder
	b.WriteString(progressFullStyle.Render(strings.Repeat("█", filled)))
	b.WriteString(progressEmptyStyle.Render(strings.Repeat("░", width-filled)))
	return b.String()
}

// Card wraps a titled block of lines in a bordered box
func Card(title string, width int, lines ...string) string {
	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	style := CardStyle
	if width > 0 {
		style = style.Width(width)
	}
	return style.Render(lipgloss.JoinVertical(lipgloss.Left, CardTitleStyle.Render(title), content))
}

// Key renders a key binding help item
func Key(key, desc string) string {
	return KeyStyle.Render(key) + " " + MutedStyle.Render(desc)
}

// levelStyle colors readiness and freshness levels
func levelStyle(level string) lipgloss.Style {
	switch level {
	case analysis.ReadinessGreen, analysis.AlertFresh, analysis.StabilityStable, analysis.OverreachingNormal:
		return SuccessStyle
	case analysis.ReadinessYellow, analysis.AlertVeryFresh, analysis.StabilityModerate,
		analysis.OverreachingWarning, analysis.AlertDetrainingRisk, analysis.AlertFatigued:
		return WarningStyle
	case analysis.ReadinessRed, analysis.AlertOverreaching, analysis.StabilityUnstable,
		analysis.OverreachingFOR, analysis.OverreachingNFOR:
		return ErrorStyle
	}
	return MutedStyle
}
