package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fgeck/gowol/internal/config"
	"github.com/fgeck/gowol/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// addTargetFlags registers the flags describing the machine to wake or probe.
// Their names match config.FlagKeys.
func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().String("mac", "", "MAC address of the target (required without --config)")
	cmd.Flags().String("broadcast", models.DefaultBroadcastIP, "broadcast address for the magic packet")
	cmd.Flags().Int("port", models.DefaultPort, "UDP port for the magic packet")
	cmd.Flags().Bool("check-arp", false, "verify with ARP that the target woke up (default: on when supported)")
	cmd.Flags().String("ip", "", "IPv4 address of the target, required for ARP checks")
	cmd.Flags().Int("timeout", int(models.DefaultTimeout.Seconds()), "seconds to wait for the target after waking it")
	cmd.Flags().String("interface", "", "network interface for ARP probes (default: route to --ip)")
}

// loadConfig merges the config file, if any, with the flags set on cmd.
func loadConfig(cmd *cobra.Command) (*models.Config, error) {
	parser := config.NewParser()
	if err := parser.BindFlags(cmd.Flags()); err != nil {
		return nil, err
	}

	if configFile == "" {
		cfg, err := parser.Load()
		if err != nil {
			log.Error().Err(err).Msg("failed to load settings")
			return nil, err
		}
		return cfg, nil
	}

	cfg, err := parser.LoadFile(configFile)
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to load config")
		return nil, err
	}

	log.Debug().Str("config", configFile).Msg("configuration loaded")
	return cfg, nil
}

// signalContext returns a context that is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Warn().Str("signal", sig.String()).Msg("received signal, shutting down")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
