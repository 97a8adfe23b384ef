package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"velolab/internal/report"
)

var (
	pmcAthlete string
	pmcFrom    string
	pmcTo      string
	pmcJSON    bool
)

var pmcCmd = &cobra.Command{
	Use:   "pmc",
	Short: "Inspect and edit the training load chart",
}

var pmcAddCmd = &cobra.Command{
	Use:   "add <date> <load>",
	Short: "Add a day's training load",
	Args:  cobra.ExactArgs(2),
	RunE:  runPMCAdd,
}

var pmcShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show fitness, fatigue and form",
	Args:  cobra.NoArgs,
	RunE:  runPMCShow,
}

var pmcReplayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Recompute the chart from its recorded loads",
	Long: `Recompute every day of the chart from the recorded daily loads with the
current time constants. The result is stored as a new revision of each day;
earlier rows are kept.`,
	Args: cobra.NoArgs,
	RunE: runPMCReplay,
}

var pmcPerformanceCmd = &cobra.Command{
	Use:   "performance",
	Short: "Model performance with the Banister fitness-fatigue model",
	Long: `Run the Banister impulse-response model over the recorded daily loads.
Fatigue carries a larger gain than fitness (analysis.banister in the config).`,
	Args: cobra.NoArgs,
	RunE: runPMCPerformance,
}

func init() {
	pmcCmd.PersistentFlags().StringVar(&pmcAthlete, "athlete", "", "athlete id (default athlete.id)")
	pmcShowCmd.Flags().StringVar(&pmcFrom, "from", "", "first day, YYYY-MM-DD")
	pmcShowCmd.Flags().StringVar(&pmcTo, "to", "", "last day, YYYY-MM-DD")
	pmcShowCmd.Flags().BoolVar(&pmcJSON, "json", false, "print the chart as JSON")
	pmcPerformanceCmd.Flags().BoolVar(&pmcJSON, "json", false, "print the model as JSON")

	pmcCmd.AddCommand(pmcAddCmd, pmcShowCmd, pmcReplayCmd, pmcPerformanceCmd)
	rootCmd.AddCommand(pmcCmd)
}

func athleteOr(flag string) string {
	if flag != "" {
		return flag
	}
	return cfg.Athlete.ID
}

func runPMCAdd(cmd *cobra.Command, args []string) error {
	date, err := time.Parse(time.DateOnly, args[0])
	if err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD: %w", err)
	}
	load, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("load must be a number: %w", err)
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	update, err := newAnalyzer(db, nil).AddLoad(cmd.Context(), athleteOr(pmcAthlete), date, load)
	if err != nil {
		return err
	}
	if n := len(update.Appended); n > 1 {
		fmt.Fprintln(cmd.OutOrStdout(), report.MutedStyle.Render(fmt.Sprintf("Backfilled %d days without load", n-1)))
	}
	fmt.Fprintln(cmd.OutOrStdout(), report.PMCCard(update.Current, update.Alert))
	return nil
}

func runPMCShow(cmd *cobra.Command, args []string) error {
	from, err := parseOptionalDate(pmcFrom)
	if err != nil {
		return err
	}
	to, err := parseOptionalDate(pmcTo)
	if err != nil {
		return err
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	states, alert, err := newAnalyzer(db, nil).History(cmd.Context(), athleteOr(pmcAthlete), from, to)
	if err != nil {
		return err
	}
	if pmcJSON {
		return writeJSON(cmd.OutOrStdout(), map[string]any{"states": states, "alert": alert})
	}
	fmt.Fprintln(cmd.OutOrStdout(), report.PMC(states, alert, cfg.Display.Charts))
	return nil
}

func runPMCReplay(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	states, err := newAnalyzer(db, nil).Replay(cmd.Context(), athleteOr(pmcAthlete))
	if err != nil {
		return err
	}
	if len(states) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), report.MutedStyle.Render("No loads recorded; nothing to replay."))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), report.SuccessStyle.Render(fmt.Sprintf("Replayed %d days", len(states))))
	fmt.Fprintln(cmd.OutOrStdout(), report.PMCCard(states[len(states)-1], nil))
	return nil
}

func runPMCPerformance(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	states, err := newAnalyzer(db, nil).Performance(cmd.Context(), athleteOr(pmcAthlete))
	if err != nil {
		return err
	}
	if pmcJSON {
		return writeJSON(cmd.OutOrStdout(), map[string]any{"states": states})
	}
	fmt.Fprintln(cmd.OutOrStdout(), report.Performance(states, cfg.Display.Charts))
	return nil
}

func parseOptionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q must be YYYY-MM-DD", s)
	}
	return t, nil
}
