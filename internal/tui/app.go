package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"velolab/internal/report"
	"velolab/internal/service"
)

// Screen identifiers
type Screen int

const (
	ScreenDashboard Screen = iota
	ScreenSync
	ScreenHelp
)

// App is the root Bubble Tea model
type App struct {
	screen     Screen
	prevScreen Screen

	dashboard  DashboardModel
	syncScreen SyncModel
	help       HelpModel

	analyzer  *service.Analyzer
	athleteID string

	width  int
	height int
}

// NewApp creates the dashboard for one athlete. syncService may be nil when
// Strava is not configured; the sync screen then explains how to log in.
func NewApp(analyzer *service.Analyzer, syncService *service.SyncService, athleteID string, units report.Units) *App {
	return &App{
		screen:     ScreenDashboard,
		analyzer:   analyzer,
		athleteID:  athleteID,
		dashboard:  NewDashboardModel(analyzer, athleteID, 0, 0),
		syncScreen: NewSyncModel(syncService, DefaultSyncLookback, units),
		help:       NewHelpModel(),
	}
}

// Screen returns the active screen
func (a *App) Screen() Screen { return a.screen }

// Init initializes the app
func (a *App) Init() tea.Cmd {
	return a.dashboard.Init()
}

// Update handles messages
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Navigation is locked while a sync is writing to the chart
		if !a.syncScreen.syncing {
			switch msg.String() {
			case "q", "ctrl+c":
				return a, tea.Quit
			case "1":
				a.screen = ScreenDashboard
				a.dashboard = NewDashboardModel(a.analyzer, a.athleteID, a.width, a.height)
				return a, a.dashboard.Init()
			case "2", "s":
				if a.screen != ScreenSync {
					a.screen = ScreenSync
					return a, a.syncScreen.Init()
				}
			case "?":
				if a.screen != ScreenHelp {
					a.prevScreen = a.screen
					a.screen = ScreenHelp
				}
				return a, nil
			case "esc":
				if a.screen == ScreenHelp {
					a.screen = a.prevScreen
					return a, nil
				}
			}
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Every screen sizes itself, whichever is visible
		d, _ := a.dashboard.Update(msg)
		a.dashboard = d.(DashboardModel)
		return a, nil

	case SyncCompleteMsg:
		// Reload the chart behind the sync screen so the summary stays visible
		a.dashboard = NewDashboardModel(a.analyzer, a.athleteID, a.width, a.height)
		return a, a.dashboard.Init()
	}

	var cmd tea.Cmd
	switch target(msg, a.screen) {
	case ScreenDashboard:
		var m tea.Model
		m, cmd = a.dashboard.Update(msg)
		a.dashboard = m.(DashboardModel)
	case ScreenSync:
		var m tea.Model
		m, cmd = a.syncScreen.Update(msg)
		a.syncScreen = m.(SyncModel)
	case ScreenHelp:
		var m tea.Model
		m, cmd = a.help.Update(msg)
		a.help = m.(HelpModel)
	}

	return a, cmd
}

// target routes background results to the screen that started them and
// everything else to the visible screen
func target(msg tea.Msg, visible Screen) Screen {
	switch msg.(type) {
	case dashboardDataMsg:
		return ScreenDashboard
	case syncProgressMsg, SyncDoneMsg, spinner.TickMsg:
		return ScreenSync
	}
	return visible
}

// View renders the app
func (a *App) View() string {
	var content string
	switch a.screen {
	case ScreenDashboard:
		content = a.dashboard.View()
	case ScreenSync:
		content = a.syncScreen.View()
	case ScreenHelp:
		content = a.help.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render("velolab · "+a.athleteID),
		a.renderNav(),
		content,
	)
}

func (a *App) renderNav() string {
	items := []struct {
		key    string
		label  string
		screen Screen
	}{
		{"1", "Training Load", ScreenDashboard},
		{"2", "Sync", ScreenSync},
		{"?", "Help", ScreenHelp},
	}

	var nav string
	for i, item := range items {
		if i > 0 {
			nav += "  "
		}
		label := "[" + item.key + "] " + item.label
		if a.screen == item.screen {
			nav += navActiveStyle.Render(label)
		} else {
			nav += navInactiveStyle.Render(label)
		}
	}
	nav += "  " + navInactiveStyle.Render("[q] Quit")

	return navStyle.Render(nav)
}

// SyncCompleteMsg is sent when a sync finishes and the chart should reload
type SyncCompleteMsg struct{}
