package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"velolab/internal/analysis"
	"velolab/internal/config"
	"velolab/internal/report"
	"velolab/internal/service"
	"velolab/internal/store"
)

func newTestApp(t *testing.T, withStore bool) (*App, *service.Analyzer) {
	t.Helper()
	cfg := config.DefaultConfig()
	var opts []service.Option
	if withStore {
		db, err := store.Open(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		opts = append(opts, service.WithStore(db))
	}
	analyzer := service.NewAnalyzer(&cfg, zaptest.NewLogger(t), opts...)
	units := report.NewUnits(cfg.Display, cfg.Athlete.WeightKg)
	return NewApp(analyzer, nil, "rider-1", units), analyzer
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestAppNavigation(t *testing.T) {
	app, _ := newTestApp(t, true)
	assert.Equal(t, ScreenDashboard, app.Screen())

	app.Update(key("2"))
	assert.Equal(t, ScreenSync, app.Screen())

	app.Update(key("?"))
	assert.Equal(t, ScreenHelp, app.Screen())
	assert.Contains(t, app.View(), "Keyboard Shortcuts")

	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ScreenSync, app.Screen())

	_, cmd := app.Update(key("1"))
	assert.Equal(t, ScreenDashboard, app.Screen())
	assert.NotNil(t, cmd)
}

func TestAppQuit(t *testing.T) {
	app, _ := newTestApp(t, true)
	_, cmd := app.Update(key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestDashboardLoadsChart(t *testing.T) {
	app, analyzer := newTestApp(t, true)
	ctx := context.Background()
	start := analysis.Day(time.Now()).AddDate(0, 0, -5)
	for i := 0; i < 5; i++ {
		_, err := analyzer.AddLoad(ctx, "rider-1", start.AddDate(0, 0, i), 80)
		require.NoError(t, err)
	}

	assert.Contains(t, app.View(), "Loading")

	msg := app.Init()()
	app.Update(msg)

	view := app.View()
	assert.Contains(t, view, "Training Load")
	assert.Contains(t, view, "Daily Load (5 days)")
	assert.Contains(t, view, start.AddDate(0, 0, 4).Format(time.DateOnly))
}

func TestDashboardEmptyAndNoStore(t *testing.T) {
	app, _ := newTestApp(t, true)
	app.Update(app.Init()())
	assert.Contains(t, app.View(), "No training load recorded yet")

	app, _ = newTestApp(t, false)
	app.Update(app.Init()())
	assert.Contains(t, app.View(), "No chart database is configured")
}

func TestSyncScreenWithoutStrava(t *testing.T) {
	app, _ := newTestApp(t, true)
	app.Update(key("s"))
	require.Equal(t, ScreenSync, app.Screen())

	_, cmd := app.Update(key("s"))
	assert.Nil(t, cmd)
	assert.Contains(t, app.View(), "Strava is not connected")
}

func TestWaitForProgress(t *testing.T) {
	updates := make(chan service.SyncProgress, 1)
	updates <- service.SyncProgress{Phase: "analysis", Total: 4, Completed: 1}

	msg := waitForProgress(updates)()
	assert.Equal(t, syncProgressMsg{Phase: "analysis", Total: 4, Completed: 1}, msg)

	close(updates)
	assert.Nil(t, waitForProgress(updates)())
}

func TestSyncProgressView(t *testing.T) {
	m := NewSyncModel(&service.SyncService{}, DefaultSyncLookback, report.Units{})
	m.syncing = true
	m.progress = service.SyncProgress{Phase: "analysis", Total: 4, Completed: 2, CurrentActivity: "Morning Ride"}

	view := m.View()
	assert.Contains(t, view, "Analyzing rides 2/4")
	assert.Contains(t, view, "Morning Ride")
}

func TestTargetRoutesBackgroundMessages(t *testing.T) {
	assert.Equal(t, ScreenDashboard, target(dashboardDataMsg{}, ScreenHelp))
	assert.Equal(t, ScreenSync, target(SyncDoneMsg{}, ScreenDashboard))
	assert.Equal(t, ScreenHelp, target(key("x"), ScreenHelp))
}
