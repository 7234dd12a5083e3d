package main

import (
	"fmt"

	"github.com/fgeck/gowol/internal/services/arp"
	"github.com/fgeck/gowol/internal/services/runner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var statusWait int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check with ARP whether a machine is awake",
	Long: `Probe the target with ARP requests without sending a magic packet.

Prints "awake" when the target answered within --wait seconds and "asleep"
otherwise. Requires root and raw socket support.`,
	Example: `  gowol status --mac 00:11:22:33:44:55 --ip 192.168.1.50`,
	RunE:    runStatus,
}

func init() {
	addTargetFlags(statusCmd)
	statusCmd.Flags().IntVar(&statusWait, "wait", int(arp.AttemptWait.Seconds()), "seconds to wait for an ARP reply")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	runnerSvc := runner.New(log.Logger)
	result, err := runnerSvc.Status(ctx, *cfg, secondsToDuration(statusWait))
	if err != nil {
		log.Error().Err(err).Str("ip", cfg.WOL.IP).Msg("status check failed")
		return err
	}

	state := "asleep"
	if result.Replied {
		state = "awake"
	}
	fmt.Fprintln(cmd.OutOrStdout(), state)
	return nil
}
