package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"velolab/internal/report"
)

// HelpModel is the help screen model
type HelpModel struct{}

// NewHelpModel creates a new help model
func NewHelpModel() HelpModel {
	return HelpModel{}
}

// Init initializes the help screen
func (m HelpModel) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m HelpModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m, nil
}

// View renders the help screen
func (m HelpModel) View() string {
	sections := []string{
		report.CardTitleStyle.Render("Keyboard Shortcuts"),
		renderKeys("Navigation", [][2]string{
			{"1", "Training load"},
			{"2 or s", "Sync screen"},
			{"?", "Help (this screen)"},
			{"esc", "Back / close help"},
			{"q", "Quit"},
		}),
		renderKeys("Training Load", [][2]string{
			{"r", "Reload the chart"},
			{"up / down", "Scroll daily loads"},
			{"pgup / pgdn", "Page daily loads"},
		}),
		renderKeys("Sync Screen", [][2]string{
			{"s / enter", "Start sync"},
		}),
		renderGlossary(),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderKeys(title string, keys [][2]string) string {
	lines := []string{"", sectionStyle.Render(title)}
	for _, k := range keys {
		lines = append(lines, "  "+report.Key(k[0], k[1]))
	}
	return strings.Join(lines, "\n")
}

func renderGlossary() string {
	lines := []string{"", sectionStyle.Render("Metrics Explained"), ""}

	terms := []struct {
		name string
		desc string
	}{
		{"CTL (Fitness)", "Chronic training load, a 42 day weighted average of daily load."},
		{"ATL (Fatigue)", "Acute training load, a 7 day weighted average of daily load."},
		{"TSB (Form)", "CTL minus ATL. Positive means fresh, deeply negative means overreached."},
		{"TSS", "Training stress score. One hour at FTP scores 100."},
		{"DFA alpha1", "Fractal correlation of heartbeat intervals. Drops below 0.75 at the first threshold."},
		{"VT1", "First ventilatory threshold, located where alpha1 crosses 0.75."},
		{"CP / W'", "Critical power and the work capacity available above it."},
	}

	for _, t := range terms {
		lines = append(lines, "  "+report.KeyStyle.Render(t.name), "  "+report.MutedStyle.Render(t.desc), "")
	}
	return strings.Join(lines, "\n")
}
