package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"velolab/internal/fitfile"
	"velolab/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis API",
	Long: `Serve the HTTP API: payload and FIT analysis, activity file generation,
training load history and Prometheus metrics on /metrics.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	rc, err := openCache(ctx)
	if err != nil {
		return err
	}

	var opts []server.Option
	if rc != nil {
		defer rc.Close()
		opts = append(opts, server.WithHealthCheck(rc))
	}

	generator, err := fitfile.Select(cfg.FIT.Mode, logger)
	if err != nil {
		return err
	}

	serverCfg := cfg.Server
	if serveAddr != "" {
		serverCfg.Addr = serveAddr
	}

	srv := server.New(newAnalyzer(db, rc), generator, serverCfg, logger, opts...)
	return srv.ListenAndServe(ctx)
}
