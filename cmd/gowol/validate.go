package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fgeck/gowol/internal/config"
	"github.com/fgeck/gowol/internal/services/arp"
	"github.com/fgeck/gowol/internal/services/ssh"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var testSSH bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file without sending any packets.`,
	RunE:  validateConfig,
}

func init() {
	validateCmd.Flags().BoolVar(&testSSH, "test-ssh", false, "also test the SSH connection of ssh_shutdown")
}

func validateConfig(cmd *cobra.Command, args []string) error {
	if configFile == "" {
		log.Error().Msg("config file is required")
		return cmd.Help()
	}

	// Check if file exists
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		log.Error().Str("file", configFile).Msg("config file not found")
		return fmt.Errorf("config file not found: %s", configFile)
	}

	// Load configuration
	parser := config.NewParser()
	cfg, err := parser.LoadFile(configFile)
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to parse config")
		return err
	}

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("configuration validation failed")
		return err
	}

	caps := arp.DetectCapabilities()
	out := cmd.OutOrStdout()

	// Print configuration summary
	fmt.Fprintln(out, "Configuration is valid!")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "WOL Configuration:")
	fmt.Fprintf(out, "  MAC Address: %s\n", cfg.WOL.MACAddress)
	fmt.Fprintf(out, "  Broadcast IP: %s\n", cfg.WOL.BroadcastIP)
	fmt.Fprintf(out, "  Port: %d\n", cfg.WOL.Port)
	if cfg.WOL.IP != "" {
		fmt.Fprintf(out, "  Target IP: %s\n", cfg.WOL.IP)
	}
	if cfg.WOL.Interface != "" {
		fmt.Fprintf(out, "  Interface: %s\n", cfg.WOL.Interface)
	}
	checkARP := caps.CheckModeSupported()
	if cfg.WOL.CheckARP != nil {
		checkARP = *cfg.WOL.CheckARP
	}
	fmt.Fprintf(out, "  ARP Check: %v\n", checkARP)
	if checkARP {
		fmt.Fprintf(out, "  Timeout: %s\n", cfg.WOL.Timeout)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Environment:")
	fmt.Fprintf(out, "  Raw ARP sockets: %v\n", caps.ARPAvailable)
	fmt.Fprintf(out, "  Running as root: %v\n", caps.Privileged)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Optional Features:")
	fmt.Fprintf(out, "  SSH Shutdown: %v\n", cfg.SSHShutdown != nil)
	fmt.Fprintf(out, "  Telegram: %v\n", cfg.Telegram != nil)

	if cfg.SSHShutdown != nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "SSH Shutdown Configuration:")
		fmt.Fprintf(out, "  Host: %s\n", cfg.SSHShutdown.Host)
		fmt.Fprintf(out, "  Port: %d\n", cfg.SSHShutdown.Port)
		fmt.Fprintf(out, "  Username: %s\n", cfg.SSHShutdown.Username)
		fmt.Fprintf(out, "  OS: %s\n", cfg.SSHShutdown.OS)
		fmt.Fprintf(out, "  Shutdown Delay: %d minute(s)\n", cfg.SSHShutdown.ShutdownDelay)
	}

	if cfg.Telegram != nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Telegram Configuration:")
		fmt.Fprintf(out, "  Chat ID: %s\n", cfg.Telegram.ChatID)
		fmt.Fprintf(out, "  Bot Token: (configured)\n")
	}

	if !testSSH {
		return nil
	}
	if cfg.SSHShutdown == nil {
		return fmt.Errorf("--test-ssh requires ssh_shutdown to be configured")
	}

	sshCfg := *cfg.SSHShutdown

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := ssh.New(log.Logger).TestConnection(ctx, sshCfg)
	if err != nil {
		return fmt.Errorf("SSH connection test failed: %w", err)
	}
	if result.Error != nil {
		log.Error().Err(result.Error).Str("host", sshCfg.Host).Msg("SSH connection test failed")
		return result.Error
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "SSH connection to %s succeeded\n", sshCfg.Host)
	return nil
}
