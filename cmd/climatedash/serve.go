package main

import (
	"github.com/spf13/cobra"

	"climatedash/internal/app"
	"climatedash/internal/config"
)

type serveFlags struct {
	host             string
	port             int
	processIfMissing bool
	noWatch          bool
}

var serveOpts serveFlags

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard",
	Long: `Serve the dashboard over the processed dataset. The dataset is reloaded
whenever the processed file changes or a pipeline run completes.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServer(cmd, app.Options{})
	},
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Serve the standalone demo page",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServer(cmd, app.Options{DemoOnly: true})
	},
}

func init() {
	for _, c := range []*cobra.Command{serveCmd, demoCmd} {
		c.Flags().StringVar(&serveOpts.host, "host", "", "listen host (default 127.0.0.1)")
		c.Flags().IntVarP(&serveOpts.port, "port", "p", 0, "listen port (default 8050)")
	}
	serveCmd.Flags().BoolVar(&serveOpts.processIfMissing, "process-if-missing", false, "run the pipeline first when the processed file does not exist")
	serveCmd.Flags().BoolVar(&serveOpts.noWatch, "no-watch", false, "do not reload when the processed file changes")
}

// apply overrides the configuration with the flags that were set
func (f serveFlags) apply(cfg *config.Config) {
	if f.host != "" {
		cfg.Server.Host = f.host
	}
	if f.port != 0 {
		cfg.Server.Port = f.port
	}
	if f.processIfMissing {
		cfg.Dashboard.ProcessIfMissing = true
	}
	if f.noWatch {
		cfg.Dashboard.WatchFile = false
	}
}

func runServer(cmd *cobra.Command, opts app.Options) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	serveOpts.apply(cfg)

	a, err := app.NewApplication(cfg, logger, opts)
	if err != nil {
		return err
	}
	if !opts.DemoOnly {
		a.PrepareData(cmd.Context(), cfg.Dashboard.ProcessIfMissing)
	}
	return a.Run(cmd.Context())
}
