package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"velolab/internal/analysis"
	"velolab/internal/export"
	"velolab/internal/report"
	"velolab/internal/service"
)

var (
	exportOut     string
	exportAthlete string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export analysis data as Parquet",
}

var exportDFACmd = &cobra.Command{
	Use:   "dfa <payload.json|->",
	Short: "Export the DFA alpha1 timeline of a ride",
	Args:  cobra.ExactArgs(1),
	RunE:  runExportDFA,
}

var exportSeriesCmd = &cobra.Command{
	Use:   "series <rr|power> <payload.json|->",
	Short: "Export a cleaned, 1 Hz resampled signal",
	Args:  cobra.ExactArgs(2),
	RunE:  runExportSeries,
}

var exportPMCCmd = &cobra.Command{
	Use:   "pmc",
	Short: "Export the athlete's training load chart",
	Args:  cobra.NoArgs,
	RunE:  runExportPMC,
}

func init() {
	exportCmd.PersistentFlags().StringVarP(&exportOut, "out", "o", "", "output file (required)")
	_ = exportCmd.MarkPersistentFlagRequired("out")
	exportPMCCmd.Flags().StringVar(&exportAthlete, "athlete", "", "athlete id (default athlete.id)")

	exportCmd.AddCommand(exportDFACmd, exportSeriesCmd, exportPMCCmd)
	rootCmd.AddCommand(exportCmd)
}

func runExportDFA(cmd *cobra.Command, args []string) error {
	var p service.Payload
	if err := readJSON(args[0], cmd.InOrStdin(), &p); err != nil {
		return err
	}
	series, err := analysis.PreprocessRR(p.RR(), cfg.Analysis.RR)
	if err != nil {
		return err
	}
	windows, err := analysis.DFAAlpha1(series, cfg.Analysis.DFA)
	if err != nil {
		return err
	}
	data, err := export.DFATimeline(windows)
	if err != nil {
		return err
	}
	return writeExport(cmd, data, len(windows), "windows")
}

func runExportSeries(cmd *cobra.Command, args []string) error {
	var p service.Payload
	if err := readJSON(args[1], cmd.InOrStdin(), &p); err != nil {
		return err
	}

	var (
		series *analysis.CleanedSeries
		err    error
	)
	switch args[0] {
	case "rr":
		series, err = analysis.PreprocessRR(p.RR(), cfg.Analysis.RR)
	case "power":
		series, err = analysis.PreprocessPower(p.PowerData, cfg.Analysis.Power)
	default:
		return fmt.Errorf("unknown signal %q, want rr or power", args[0])
	}
	if err != nil {
		return err
	}

	data, err := export.CleanedSeries(series)
	if err != nil {
		return err
	}
	return writeExport(cmd, data, len(series.Points), "samples")
}

func runExportPMC(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	states, _, err := newAnalyzer(db, nil).History(cmd.Context(), athleteOr(exportAthlete), time.Time{}, time.Time{})
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return errors.New("no training load recorded")
	}
	data, err := export.PMCHistory(states)
	if err != nil {
		return err
	}
	return writeExport(cmd, data, len(states), "days")
}

func writeExport(cmd *cobra.Command, data []byte, rows int, unit string) error {
	if err := export.WriteFile(exportOut, data); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), report.SuccessStyle.Render(
		fmt.Sprintf("Wrote %d %s to %s (%s)", rows, unit, exportOut, report.Bytes(len(data)))))
	return nil
}
