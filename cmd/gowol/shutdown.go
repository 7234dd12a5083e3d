package main

import (
	"fmt"

	"github.com/fgeck/gowol/internal/services/runner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var shutdownCmd = &cobra.Command{
	Use:   "shutdown",
	Short: "Shut a machine down over SSH",
	Long: `Connect to the ssh_shutdown host from the config file and schedule a
shutdown. Sends a Telegram notification when configured.`,
	Example: `  gowol shutdown --config gowol.yaml`,
	RunE:    runShutdown,
}

func runShutdown(cmd *cobra.Command, args []string) error {
	if configFile == "" {
		log.Error().Msg("config file is required")
		return cmd.Help()
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	runnerSvc := runner.New(log.Logger)
	result, err := runnerSvc.Shutdown(ctx, *cfg)
	if err != nil {
		log.Error().Err(err).Msg("shutdown failed")
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "shutdown scheduled on %s\n", cfg.SSHShutdown.Host)
	if result.Output != "" {
		log.Debug().Str("output", result.Output).Msg("shutdown command output")
	}
	return nil
}
