// Command climatedash builds the unified climate dataset and serves the
// dashboard over it.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"climatedash/internal/config"
	apperrors "climatedash/internal/errors"
	"climatedash/internal/infrastructure"
	"climatedash/pkg/contracts"
)

var (
	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "climatedash",
	Short: "Climate and economic data pipeline with an analysis dashboard",
	Long: `climatedash cleans the climate and economic CSV sources in the input
directory, merges them into processed_data.csv and serves an interactive
dashboard over the result.

Available commands:
  process  - run the ETL pipeline and print the summary statistics
  serve    - start the dashboard
  demo     - serve the standalone demo page
  snapshot - save a PNG of a running dashboard`,
	Version:       contracts.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file (default: config.yaml or configs/config.yaml when present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(processCmd, serveCmd, demoCmd, snapshotCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and applies the global flags
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.LoadFile(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, apperrors.NewConfigError("failed to load configuration", err).
			WithContext("path", configFile)
	}
	if logLevel != "" {
		switch strings.ToLower(logLevel) {
		case "debug", "info", "warn", "error":
		default:
			return nil, apperrors.NewAppValidationError(fmt.Sprintf("invalid --log-level %q", logLevel))
		}
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

// setup loads the configuration and initializes the global logger
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}
