package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"velolab/internal/config"
	"velolab/internal/report"
)

var (
	cfgFile string
	verbose bool

	// Loaded before any subcommand runs
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "velolab",
	Short: "Physiological analytics for cyclists",
	Long: `velolab turns beat intervals and power data into training decisions:
DFA alpha1 and VT1, HRV, critical power and W' balance, and a
fitness/fatigue/form chart fed by every analyzed ride.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.velolab/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(versionCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	logger, err = newLogger(verbose)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}

	cfg, err = loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// loadConfig reads --config, or the default file. A missing default file is
// created from the defaults so later runs have something to edit; where the
// home directory is not writable the environment alone configures the run.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	c, err := config.Load(cfgFile)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, config.ErrNoConfig) || cfgFile != "" {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	path, createErr := config.CreateExample()
	if createErr != nil {
		logger.Warn("no config file, using environment", zap.Error(createErr))
		return config.FromEnv()
	}
	fmt.Fprintln(cmd.ErrOrStderr(), report.MutedStyle.Render("Created config at "+path))
	return config.Load(path)
}

// newLogger logs warnings and above as JSON to stderr, or everything in
// console form with --verbose
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	return zc.Build()
}

func units() report.Units {
	return report.NewUnits(cfg.Display, cfg.Athlete.WeightKg)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show velolab version information",
	// Runs without a config
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "velolab %s\n", version)
		fmt.Fprintf(cmd.OutOrStdout(), "Git Commit: %s\n", gitCommit)
		fmt.Fprintf(cmd.OutOrStdout(), "Build Date: %s\n", buildDate)
	},
}

// These will be set by build scripts
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)
