// Package runner orchestrates the gowol workflows and their notifications.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/fgeck/gowol/internal/models"
	"github.com/fgeck/gowol/internal/services/arp"
	"github.com/fgeck/gowol/internal/services/broadcast"
	"github.com/fgeck/gowol/internal/services/ssh"
	"github.com/fgeck/gowol/internal/services/telegram"
	"github.com/fgeck/gowol/internal/services/wol"
	"github.com/rs/zerolog"
)

// Service defines the interface for the workflow runner.
type Service interface {
	Wake(ctx context.Context, cfg models.Config) (*models.WOLResult, error)
	Status(ctx context.Context, cfg models.Config, timeout time.Duration) (*models.ProbeResult, error)
	Shutdown(ctx context.Context, cfg models.Config) (*models.SSHResult, error)
}

// Impl implements the runner Service interface.
type Impl struct {
	wolSvc      wol.Service
	arpSvc      arp.Service
	sshSvc      ssh.Service
	telegramSvc telegram.Service
	caps        models.Capabilities
	logger      zerolog.Logger
}

// New creates a new runner service for the running process.
func New(logger zerolog.Logger) *Impl {
	caps := arp.DetectCapabilities()
	arpSvc := arp.New(logger)

	return &Impl{
		wolSvc:      wol.NewWithServices(logger, broadcast.New(logger), arpSvc, caps),
		arpSvc:      arpSvc,
		sshSvc:      ssh.New(logger),
		telegramSvc: telegram.New(logger),
		caps:        caps,
		logger:      logger,
	}
}

// NewWithServices creates a new runner service with custom services (for testing).
func NewWithServices(
	logger zerolog.Logger,
	wolSvc wol.Service,
	arpSvc arp.Service,
	sshSvc ssh.Service,
	telegramSvc telegram.Service,
	caps models.Capabilities,
) *Impl {
	return &Impl{
		wolSvc:      wolSvc,
		arpSvc:      arpSvc,
		sshSvc:      sshSvc,
		telegramSvc: telegramSvc,
		caps:        caps,
		logger:      logger,
	}
}

// Capabilities returns the ARP capabilities detected for this process.
func (s *Impl) Capabilities() models.Capabilities {
	return s.caps
}

// Wake runs the wake workflow and notifies about its outcome.
func (s *Impl) Wake(ctx context.Context, cfg models.Config) (*models.WOLResult, error) {
	startTime := time.Now()

	result, err := s.wolSvc.Wake(ctx, cfg.WOL)
	if err != nil {
		return nil, fmt.Errorf("WOL failed: %w", err)
	}

	if cfg.Telegram != nil {
		s.sendNotification(ctx, *cfg.Telegram, models.TelegramMessage{
			Action:       "wake",
			Success:      result.Error == nil,
			Changed:      result.Changed,
			Checked:      result.Checked,
			MAC:          cfg.WOL.MACAddress,
			IP:           cfg.WOL.IP,
			StartTime:    startTime,
			Duration:     time.Since(startTime),
			ErrorMessage: errorMessage(result.Error),
		})
	}

	if result.Error != nil {
		return result, fmt.Errorf("WOL failed: %w", result.Error)
	}

	s.logger.Info().
		Bool("packet_sent", result.PacketSent).
		Bool("checked", result.Checked).
		Bool("changed", result.Changed).
		Dur("wait_duration", result.WaitDuration).
		Msg("WOL completed")

	return result, nil
}

// Status probes the target once for timeout without waking it.
func (s *Impl) Status(ctx context.Context, cfg models.Config, timeout time.Duration) (*models.ProbeResult, error) {
	if err := wol.ValidateCheck(s.caps, cfg.WOL.IP); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("mac", cfg.WOL.MACAddress).
		Str("ip", cfg.WOL.IP).
		Dur("timeout", timeout).
		Msg("probing target")

	result, err := s.arpSvc.Probe(ctx, models.ProbeConfig{
		MACAddress: cfg.WOL.MACAddress,
		IP:         cfg.WOL.IP,
		Timeout:    timeout,
		Interface:  cfg.WOL.Interface,
	})
	if err != nil {
		return nil, fmt.Errorf("probe failed: %w", err)
	}

	s.logger.Info().
		Bool("awake", result.Replied).
		Int("attempts", result.Attempts).
		Msg("probe completed")

	return result, nil
}

// Shutdown powers the target off over SSH and notifies about the outcome.
func (s *Impl) Shutdown(ctx context.Context, cfg models.Config) (*models.SSHResult, error) {
	if cfg.SSHShutdown == nil {
		return nil, fmt.Errorf("%w: ssh_shutdown is not configured", models.ErrMissingParameter)
	}
	startTime := time.Now()
	sshCfg := *cfg.SSHShutdown

	result, err := s.runSSHShutdown(ctx, sshCfg)

	if cfg.Telegram != nil {
		s.sendNotification(ctx, *cfg.Telegram, models.TelegramMessage{
			Action:       "shutdown",
			Success:      err == nil,
			Host:         sshCfg.Host,
			MAC:          cfg.WOL.MACAddress,
			StartTime:    startTime,
			Duration:     time.Since(startTime),
			ErrorMessage: errorMessage(err),
		})
	}

	return result, err
}

// runSSHShutdown leaves key loading to the ssh service, which reads KeyPath
// when no PrivateKey is set.
func (s *Impl) runSSHShutdown(ctx context.Context, cfg models.SSHShutdownConfig) (*models.SSHResult, error) {
	result, err := s.sshSvc.Shutdown(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("SSH shutdown failed: %w", err)
	}
	if result.Error != nil && !result.CommandRun {
		return result, fmt.Errorf("SSH shutdown failed: %w", result.Error)
	}
	if result.Error != nil {
		s.logger.Warn().
			Err(result.Error).
			Str("output", result.Output).
			Msg("shutdown command returned error (may be expected)")
	}

	s.logger.Info().
		Str("host", cfg.Host).
		Bool("command_run", result.CommandRun).
		Msg("SSH shutdown command sent")

	return result, nil
}

func (s *Impl) sendNotification(ctx context.Context, cfg models.TelegramConfig, msg models.TelegramMessage) {
	result, err := s.telegramSvc.SendNotification(ctx, cfg, msg)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to send Telegram notification")
		return
	}
	if result.Error != nil {
		s.logger.Error().Err(result.Error).Msg("failed to send Telegram notification")
		return
	}

	s.logger.Info().Msg("Telegram notification sent")
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
