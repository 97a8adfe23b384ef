package cli

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"velolab/internal/auth"
	"velolab/internal/report"
	"velolab/internal/service"
	"velolab/internal/store"
	"velolab/internal/strava"
)

var stravaDays int

var stravaCmd = &cobra.Command{
	Use:   "strava",
	Short: "Import rides from Strava",
}

var stravaLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorize velolab to read your Strava activities",
	Args:  cobra.NoArgs,
	RunE:  runStravaLogin,
}

var stravaLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the Strava tokens of the athlete",
	Args:  cobra.NoArgs,
	RunE:  runStravaLogout,
}

var stravaActivitiesCmd = &cobra.Command{
	Use:   "activities",
	Short: "List recent rides",
	Args:  cobra.NoArgs,
	RunE:  runStravaActivities,
}

var stravaStreamsCmd = &cobra.Command{
	Use:   "streams <activity-id>",
	Short: "Print an activity's streams as an analysis payload",
	Args:  cobra.ExactArgs(1),
	RunE:  runStravaStreams,
}

var stravaSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Analyze recent rides and add their load to the chart",
	Args:  cobra.NoArgs,
	RunE:  runStravaSync,
}

func init() {
	stravaCmd.PersistentFlags().IntVar(&stravaDays, "days", 42, "how many days back to look")
	stravaCmd.AddCommand(stravaLoginCmd, stravaLogoutCmd, stravaActivitiesCmd, stravaStreamsCmd, stravaSyncCmd)
	rootCmd.AddCommand(stravaCmd)
}

func runStravaLogin(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateStrava(); err != nil {
		return err
	}
	if cfg.Athlete.ID == "" {
		return errors.New("athlete.id must be set to link a Strava account")
	}
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	result, err := auth.Authenticate(cmd.Context(), auth.NewOAuthConfig(cfg.Strava), cmd.OutOrStdout(), logger)
	if err != nil {
		return err
	}

	err = db.LinkStrava(cmd.Context(), &store.StravaToken{
		AthleteID:       cfg.Athlete.ID,
		StravaAthleteID: result.AthleteID,
		AccessToken:     result.Token.AccessToken,
		RefreshToken:    result.Token.RefreshToken,
		ExpiresAt:       result.Token.Expiry,
		Scope:           result.Scope,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout())
	fmt.Fprintln(cmd.OutOrStdout(), report.SuccessStyle.Render(
		fmt.Sprintf("Linked %s to Strava athlete %d", cfg.Athlete.ID, result.AthleteID)))
	return nil
}

func runStravaLogout(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.UnlinkStrava(cmd.Context(), cfg.Athlete.ID); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), report.MutedStyle.Render("Strava tokens removed for "+cfg.Athlete.ID))
	return nil
}

// stravaClient builds a client from the athlete's stored tokens
func stravaClient(cmd *cobra.Command, db *store.DB, athleteID string) (*strava.Client, error) {
	if err := cfg.ValidateStrava(); err != nil {
		return nil, err
	}
	ts, err := auth.NewTokenSource(cmd.Context(), auth.NewOAuthConfig(cfg.Strava), db, athleteID, logger)
	if err != nil {
		if errors.Is(err, store.ErrNoStravaToken) {
			return nil, errors.New("not logged in to Strava; run 'velolab strava login'")
		}
		return nil, err
	}
	return strava.NewClient(ts, logger), nil
}

func since() time.Time {
	return time.Now().AddDate(0, 0, -stravaDays)
}

func runStravaActivities(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	client, err := stravaClient(cmd, db, cfg.Athlete.ID)
	if err != nil {
		return err
	}
	activities, err := client.GetActivities(cmd.Context(), since(), 1, service.SyncPageSize)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, report.HeaderStyle.Render(fmt.Sprintf("%-12s %-10s %-28s %9s %6s %6s", "ID", "Date", "Name", "Time", "Avg", "NP")))
	for _, a := range activities {
		avg, np := "-", "-"
		if a.DeviceWatts {
			avg = fmt.Sprintf("%.0f", a.AverageWatts)
			np = fmt.Sprintf("%.0f", a.WeightedAvgWatts)
		}
		fmt.Fprintf(out, " %-12d %-10s %-28s %9s %6s %6s\n",
			a.ID, a.StartDate.Format(time.DateOnly), truncate(a.Name, 28), report.Duration(float64(a.MovingTime)), avg, np)
	}

	short, daily := client.RateLimitStatus()
	fmt.Fprintln(out, report.StatusStyle.Render(fmt.Sprintf("API requests left: %d (15 min), %d (daily)", short, daily)))
	return nil
}

func runStravaStreams(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("activity id must be a number: %w", err)
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	client, err := stravaClient(cmd, db, cfg.Athlete.ID)
	if err != nil {
		return err
	}
	svc := service.NewSyncService(client, newAnalyzer(nil, nil), cfg.Athlete.ID, logger)
	p, err := svc.FetchPayload(cmd.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), p)
}

func runStravaSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	client, err := stravaClient(cmd, db, cfg.Athlete.ID)
	if err != nil {
		return err
	}
	rc, err := openCache(ctx)
	if err != nil {
		return err
	}
	if rc != nil {
		defer rc.Close()
	}

	svc := service.NewSyncService(client, newAnalyzer(db, rc), cfg.Athlete.ID, logger)

	progress := make(chan service.SyncProgress, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range progress {
			if p.Phase == "analysis" && p.CurrentActivity != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "  [%d/%d] %s\n", p.Completed+1, p.Total, p.CurrentActivity)
			}
		}
	}()

	result, err := svc.SyncRecent(ctx, since(), progress)
	<-done

	out := cmd.OutOrStdout()
	if result != nil {
		fmt.Fprintln(out, report.SuccessStyle.Render(fmt.Sprintf("%d rides analyzed, %d loads added (%d activities listed)",
			result.RidesAnalyzed, result.LoadsApplied, result.ActivitiesFetched)))
		for _, e := range result.Errors {
			fmt.Fprintln(out, report.WarningStyle.Render("  "+e.Error()))
			logger.Warn("ride failed", zap.Error(e))
		}
	}
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
