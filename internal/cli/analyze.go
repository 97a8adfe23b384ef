package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"velolab/internal/fitfile"
	"velolab/internal/report"
	"velolab/internal/service"
	"velolab/internal/store"
)

var (
	analyzeFIT     bool
	analyzeJSON    bool
	analyzeNoStore bool
	analyzeAthlete string
	analyzeDate    string
	analyzeWeight  float64
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <payload.json|activity.fit|->",
	Short: "Analyze a ride",
	Long: `Analyze a JSON payload (or "-" for stdin), or a FIT activity with --fit.
The ride's load is added to the athlete's chart unless --no-store is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeFIT, "fit", false, "treat the input as a FIT activity file")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the result as JSON")
	analyzeCmd.Flags().BoolVar(&analyzeNoStore, "no-store", false, "do not record the ride's load")
	analyzeCmd.Flags().StringVar(&analyzeAthlete, "athlete", "", "athlete id (default athlete.id)")
	analyzeCmd.Flags().StringVar(&analyzeDate, "date", "", "load date, YYYY-MM-DD (default from the payload)")
	analyzeCmd.Flags().Float64Var(&analyzeWeight, "weight", 0, "body weight in kg for the power and metabolic profiles (default athlete.weight_kg)")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	p, err := readPayload(cmd, args[0])
	if err != nil {
		return err
	}
	if analyzeAthlete != "" {
		p.AthleteID = analyzeAthlete
	}
	if p.AthleteID == "" {
		p.AthleteID = cfg.Athlete.ID
	}
	if analyzeDate != "" {
		p.Date = analyzeDate
	}
	if analyzeWeight > 0 {
		p.WeightKg = &analyzeWeight
	}

	var db *store.DB
	if !analyzeNoStore {
		if db, err = openStore(); err != nil {
			return err
		}
		defer db.Close()
	}
	rc, err := openCache(ctx)
	if err != nil {
		return err
	}
	if rc != nil {
		defer rc.Close()
	}

	res, err := newAnalyzer(db, rc).Analyze(ctx, p)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if analyzeJSON {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	fmt.Fprintln(cmd.OutOrStdout(), report.Analysis(res, units(), cfg.Display.Charts))
	return nil
}

func readPayload(cmd *cobra.Command, path string) (*service.Payload, error) {
	if !analyzeFIT {
		var p service.Payload
		if err := readJSON(path, cmd.InOrStdin(), &p); err != nil {
			return nil, err
		}
		return &p, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	decoded, err := fitfile.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return service.PayloadFromFIT(decoded, ""), nil
}
