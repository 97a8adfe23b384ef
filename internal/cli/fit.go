package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"velolab/internal/export"
	"velolab/internal/fitfile"
	"velolab/internal/report"
)

var (
	fitOutDir string
	fitMode   string
)

var fitCmd = &cobra.Command{
	Use:   "fit <activity.json|->",
	Short: "Write an activity file from JSON samples",
	Long: `Write a FIT activity from a JSON activity (start_time and 1 Hz samples).
Where the native encoder is unavailable a CSV placeholder is written instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runFIT,
}

func init() {
	fitCmd.Flags().StringVarP(&fitOutDir, "out", "o", "", "output directory (default fit.output_dir)")
	fitCmd.Flags().StringVar(&fitMode, "mode", "", "generator: auto, native or placeholder (default fit.mode)")
	rootCmd.AddCommand(fitCmd)
}

func runFIT(cmd *cobra.Command, args []string) error {
	var activity fitfile.Activity
	if err := readJSON(args[0], cmd.InOrStdin(), &activity); err != nil {
		return err
	}

	mode := cfg.FIT.Mode
	if fitMode != "" {
		mode = fitMode
	}
	g, err := fitfile.Select(mode, logger)
	if err != nil {
		return err
	}

	res, err := fitfile.Generate(cmd.Context(), g, &activity)
	if err != nil {
		return err
	}

	dir := cfg.FIT.OutputDir
	if fitOutDir != "" {
		dir = fitOutDir
	}
	path := filepath.Join(dir, res.Filename)
	if err := export.WriteFile(path, res.Data); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, report.SuccessStyle.Render(fmt.Sprintf("Wrote %s (%s, %s generator)", path, report.Bytes(res.Size), res.Generator)))
	if res.Placeholder {
		fmt.Fprintln(out, report.WarningStyle.Render("Placeholder output: the native FIT encoder is unavailable"))
	}
	return nil
}
