package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"velolab/internal/service"
	"velolab/internal/tui"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Open the interactive training load dashboard",
	Args:  cobra.NoArgs,
	RunE:  runDashboard,
}

func init() {
	dashboardCmd.Flags().StringVar(&pmcAthlete, "athlete", "", "athlete id (default athlete.id)")
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	analyzer := newAnalyzer(db, nil)
	athleteID := athleteOr(pmcAthlete)

	// The dashboard works offline; sync needs a Strava login
	var syncService *service.SyncService
	if client, err := stravaClient(cmd, db, athleteID); err != nil {
		logger.Info("strava sync disabled", zap.Error(err))
	} else {
		syncService = service.NewSyncService(client, analyzer, athleteID, logger)
	}

	app := tui.NewApp(analyzer, syncService, athleteID, units())
	_, err = tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
	return err
}
