package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"velolab/internal/analysis"
	"velolab/internal/report"
	"velolab/internal/service"
)

// DashboardWindow is how much chart history the dashboard loads
const DashboardWindow = 120 * 24 * time.Hour

// reserved rows for header, nav, card and chart above the table
const dashboardChrome = 28

// DashboardModel is the training load screen
type DashboardModel struct {
	analyzer  *service.Analyzer
	athleteID string

	states  []analysis.PMCState
	alert   *analysis.FreshnessAlert
	loading bool
	err     error

	table  viewport.Model
	width  int
	height int
}

// NewDashboardModel creates a new dashboard model
func NewDashboardModel(analyzer *service.Analyzer, athleteID string, width, height int) DashboardModel {
	m := DashboardModel{
		analyzer:  analyzer,
		athleteID: athleteID,
		loading:   true,
		width:     width,
		height:    height,
	}
	m.table = viewport.New(m.tableWidth(), m.tableHeight())
	return m
}

// Init loads the chart
func (m DashboardModel) Init() tea.Cmd {
	return m.loadData
}

type dashboardDataMsg struct {
	states []analysis.PMCState
	alert  *analysis.FreshnessAlert
	err    error
}

func (m DashboardModel) loadData() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	to := time.Now()
	states, alert, err := m.analyzer.History(ctx, m.athleteID, to.Add(-DashboardWindow), to)
	return dashboardDataMsg{states: states, alert: alert, err: err}
}

// Update handles messages
func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case dashboardDataMsg:
		m.loading = false
		m.err = msg.err
		m.states = msg.states
		m.alert = msg.alert
		m.table.SetContent(report.PMCTable(m.states, len(m.states)))
		m.table.GotoTop()
		return m, nil

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.table.Width = m.tableWidth()
		m.table.Height = m.tableHeight()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "r" {
			m.loading = true
			return m, m.loadData
		}
	}

	// Scroll the daily table
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the dashboard
func (m DashboardModel) View() string {
	if m.loading {
		return "\n  Loading training load..."
	}

	if m.err != nil {
		if errors.Is(m.err, service.ErrNoStore) {
			return report.ErrorStyle.Render("\n  No chart database is configured.")
		}
		return report.ErrorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}

	if len(m.states) == 0 {
		return "\n  No training load recorded yet. Press 's' to sync with Strava."
	}

	current := m.states[len(m.states)-1]
	sections := []string{report.PMCCard(current, m.alert)}

	if chart := report.PMCChart(m.states, m.chartWidth()); chart != "" {
		title := report.CardTitleStyle.Render("Fitness, Fatigue and Form")
		sections = append(sections, report.CardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, chart)))
	}

	title := report.CardTitleStyle.Render(fmt.Sprintf("Daily Load (%d days)", len(m.states)))
	sections = append(sections, report.CardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, m.table.View())))

	sections = append(sections, report.StatusStyle.Render("Press 'r' to refresh, 's' to sync, up/down to scroll"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m DashboardModel) chartWidth() int {
	if m.width <= 0 {
		return 60
	}
	return max(m.width-20, 20)
}

func (m DashboardModel) tableWidth() int {
	if m.width <= 0 {
		return 48
	}
	return min(m.width-4, 48)
}

func (m DashboardModel) tableHeight() int {
	if m.height <= 0 {
		return 10
	}
	return max(m.height-dashboardChrome, 4)
}
