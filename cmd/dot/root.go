package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robinstudios/dot/internal/common/config"
	"github.com/robinstudios/dot/internal/common/logger"
)

type rootOptions struct {
	configDir string
}

// newRootCmd creates the root dot command with all subcommands attached.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "dot",
		Short:         "AI design generation and export service",
		Long:          "dot turns design briefs into scored design candidates and\nexports them as framework code bundles.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configDir, "config", "", "directory containing config.yaml")

	cmd.AddCommand(
		newServeCmd(opts),
		newGenerateCmd(opts),
		newAgentsCmd(opts),
	)
	return cmd
}

// load reads configuration and builds the logger. CLI commands that print
// results log to stderr so stdout stays machine readable.
func (o *rootOptions) load(logToStderr bool) (*config.Config, *logger.Logger, error) {
	cfg, err := config.LoadWithPath(o.configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	logCfg := cfg.Logging.ToLoggerConfig()
	if logToStderr && (logCfg.OutputPath == "" || logCfg.OutputPath == "stdout") {
		logCfg.OutputPath = "stderr"
	}
	log, err := logger.NewLogger(logCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize logger: %w", err)
	}
	return cfg, log, nil
}
