package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"velolab/internal/report"
	"velolab/internal/service"
)

// DefaultSyncLookback is how far back a dashboard sync reaches
const DefaultSyncLookback = 42 * 24 * time.Hour

// SyncModel is the sync screen model
type SyncModel struct {
	syncService *service.SyncService
	lookback    time.Duration
	units       report.Units

	spinner  spinner.Model
	progress service.SyncProgress
	updates  chan service.SyncProgress

	syncing bool
	result  *service.SyncResult
	err     error
	done    bool
}

// NewSyncModel creates a new sync model. A nil service disables syncing.
func NewSyncModel(ss *service.SyncService, lookback time.Duration, units report.Units) SyncModel {
	return SyncModel{
		syncService: ss,
		lookback:    lookback,
		units:       units,
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(report.KeyStyle)),
	}
}

// Init initializes the sync screen
func (m SyncModel) Init() tea.Cmd {
	return nil
}

// SyncDoneMsg is sent when sync finishes
type SyncDoneMsg struct {
	Result *service.SyncResult
	Err    error
}

type syncProgressMsg service.SyncProgress

// Update handles messages
func (m SyncModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case SyncDoneMsg:
		m.syncing = false
		m.done = true
		m.result = msg.Result
		m.err = msg.Err
		return m, func() tea.Msg { return SyncCompleteMsg{} }

	case syncProgressMsg:
		m.progress = service.SyncProgress(msg)
		return m, waitForProgress(m.updates)

	case spinner.TickMsg:
		if !m.syncing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.syncing || m.syncService == nil {
			return m, nil
		}
		switch msg.String() {
		case "enter", "s":
			m.syncing = true
			m.done = false
			m.err = nil
			m.result = nil
			m.progress = service.SyncProgress{}
			m.updates = make(chan service.SyncProgress, 16)
			return m, tea.Batch(m.runSync(m.updates), waitForProgress(m.updates), m.spinner.Tick)
		}
	}
	return m, nil
}

// runSync runs the sync in the background; it closes updates when done
func (m SyncModel) runSync(updates chan service.SyncProgress) tea.Cmd {
	after := time.Now().Add(-m.lookback)
	return func() tea.Msg {
		result, err := m.syncService.SyncRecent(context.Background(), after, updates)
		return SyncDoneMsg{Result: result, Err: err}
	}
}

// waitForProgress relays one update; a closed channel ends the relay
func waitForProgress(updates <-chan service.SyncProgress) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-updates
		if !ok {
			return nil
		}
		return syncProgressMsg(p)
	}
}

// View renders the sync screen
func (m SyncModel) View() string {
	sections := []string{report.CardTitleStyle.Render("Strava Sync")}

	switch {
	case m.syncService == nil:
		sections = append(sections,
			report.WarningStyle.Render("\n  Strava is not connected."),
			report.StatusStyle.Render("  Run 'velolab strava login' and restart the dashboard"),
		)
	case m.err != nil:
		sections = append(sections,
			report.ErrorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err)),
			m.renderSummary(),
			"\n"+report.StatusStyle.Render("  Press 's' or Enter to retry"),
		)
	case m.done:
		sections = append(sections,
			report.SuccessStyle.Render("\n  Sync complete!"),
			m.renderSummary(),
			"\n"+report.StatusStyle.Render("  Press '1' to see the updated chart"),
		)
	case m.syncing:
		sections = append(sections, m.renderProgress())
	default:
		sections = append(sections, m.renderStartPrompt())
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m SyncModel) renderStartPrompt() string {
	days := int(m.lookback.Hours() / 24)
	lines := []string{
		"",
		fmt.Sprintf("  This will analyze your rides from the last %d days:", days),
		"",
		"  1. Fetch rides with power from Strava",
		"  2. Download power and heart rate streams",
		"  3. Score each ride and add its load to the chart",
		"",
		report.StatusStyle.Render("  Press 's' or Enter to start sync"),
	}
	return strings.Join(lines, "\n")
}

func (m SyncModel) renderProgress() string {
	p := m.progress
	lines := []string{""}

	switch p.Phase {
	case "analysis":
		frac := 0.0
		if p.Total > 0 {
			frac = float64(p.Completed) / float64(p.Total)
		}
		lines = append(lines,
			fmt.Sprintf("  %s Analyzing rides %d/%d", m.spinner.View(), p.Completed, p.Total),
			"  "+report.ProgressBar(frac, 30),
		)
		if p.CurrentActivity != "" {
			lines = append(lines, report.MutedStyle.Render("  "+p.CurrentActivity))
		}
	case "activities":
		lines = append(lines, fmt.Sprintf("  %s Listing activities: %d fetched, %d rides with power", m.spinner.View(), p.Total, p.Completed))
	default:
		lines = append(lines, fmt.Sprintf("  %s Connecting to Strava...", m.spinner.View()))
	}

	return strings.Join(lines, "\n")
}

func (m SyncModel) renderSummary() string {
	if m.result == nil {
		return ""
	}
	r := m.result
	lines := []string{""}

	if r.RidesAnalyzed > 0 {
		lines = append(lines, report.SuccessStyle.Render(fmt.Sprintf("  %d rides analyzed (%d activities listed)", r.RidesAnalyzed, r.ActivitiesFetched)))
	} else {
		lines = append(lines, report.StatusStyle.Render("  No rides with power found"))
	}
	if r.LoadsApplied > 0 {
		lines = append(lines, report.SuccessStyle.Render(fmt.Sprintf("  %d loads added to the chart", r.LoadsApplied)))
	}
	if n := len(r.Results); n > 0 {
		if last := r.Results[n-1]; last.Power != nil {
			lines = append(lines, report.MutedStyle.Render(fmt.Sprintf("  Latest ride: NP %s, TSS %.0f",
				m.units.Power(last.Power.NormalizedPower), last.Power.TrainingStress)))
		}
	}
	if len(r.Errors) > 0 {
		lines = append(lines, "", report.WarningStyle.Render(fmt.Sprintf("  %d rides failed", len(r.Errors))))
	}

	return strings.Join(lines, "\n")
}
