package main

import (
	"fmt"

	"github.com/fgeck/gowol/internal/services/runner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var wakeCmd = &cobra.Command{
	Use:   "wake",
	Short: "Send a magic packet to wake a machine",
	Long: `Send a Wake-on-LAN magic packet to the target:
1. Check with ARP whether the target is already awake (if checking)
2. Broadcast the magic packet
3. Wait for the target to answer ARP (if checking and it was asleep)
4. Send Telegram notification (if configured)

Prints changed=true when the target was woken (or, without checking, when
the packet was sent) and changed=false when it was already awake.`,
	Example: `  gowol wake --mac 00:11:22:33:44:55
  gowol wake --mac 00-11-22-33-44-55 --ip 192.168.1.50 --check-arp --timeout 120
  gowol wake --config gowol.yaml`,
	RunE: runWake,
}

func init() {
	addTargetFlags(wakeCmd)
}

func runWake(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	runnerSvc := runner.New(log.Logger)
	result, err := runnerSvc.Wake(ctx, *cfg)
	if err != nil {
		log.Error().Err(err).Str("mac", cfg.WOL.MACAddress).Msg("wake failed")
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "changed=%t\n", result.Changed)
	return nil
}
