// Package wol provides Wake-on-LAN operations.
package wol

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/fgeck/gowol/internal/models"
	"github.com/fgeck/gowol/internal/services/arp"
	"github.com/fgeck/gowol/internal/services/broadcast"
	"github.com/fgeck/gowol/internal/services/magicpacket"
	"github.com/rs/zerolog"
)

// preProbeTimeout gives the "already awake?" check a single attempt.
const preProbeTimeout = arp.AttemptWait

// Service defines the interface for Wake-on-LAN operations.
type Service interface {
	Wake(ctx context.Context, cfg models.WOLConfig) (*models.WOLResult, error)
}

// Impl implements the WOL Service interface.
type Impl struct {
	broadcaster broadcast.Service
	prober      arp.Service
	caps        models.Capabilities
	logger      zerolog.Logger
}

// New creates a new WOL service for the running process.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		broadcaster: broadcast.New(logger),
		prober:      arp.New(logger),
		caps:        arp.DetectCapabilities(),
		logger:      logger,
	}
}

// NewWithServices creates a new WOL service with custom collaborators (for testing).
func NewWithServices(
	logger zerolog.Logger,
	broadcaster broadcast.Service,
	prober arp.Service,
	caps models.Capabilities,
) *Impl {
	return &Impl{
		broadcaster: broadcaster,
		prober:      prober,
		caps:        caps,
		logger:      logger,
	}
}

// Capabilities returns the ARP capabilities the service was built with.
func (s *Impl) Capabilities() models.Capabilities {
	return s.caps
}

// Wake sends a magic packet and, when ARP checking is enabled, verifies the
// target before and after. cfg.Timeout is used as given; a zero timeout
// still allows one probe attempt.
//
// Without ARP checking the result is always Changed: UDP gives no delivery
// acknowledgement, so there is no way to tell whether the packet had any
// effect. With ARP checking, a target that already answered before the packet
// was sent yields Changed=false; the packet is still sent.
//
// Operational failures are reported in WOLResult.Error, wrapping one of the
// models.Err* sentinels.
func (s *Impl) Wake(ctx context.Context, cfg models.WOLConfig) (*models.WOLResult, error) {
	result := &models.WOLResult{}
	start := time.Now()

	payload, err := magicpacket.Build(cfg.MACAddress)
	if err != nil {
		result.Error = err
		return result, nil
	}

	checkARP := s.checkARP(cfg)
	if checkARP {
		if err := ValidateCheck(s.caps, cfg.IP); err != nil {
			result.Error = err
			return result, nil
		}
	}
	result.Checked = checkARP

	if checkARP {
		s.logger.Debug().
			Str("mac", cfg.MACAddress).
			Str("ip", cfg.IP).
			Msg("checking whether target is already awake")

		before, err := s.probe(ctx, cfg, preProbeTimeout)
		if err != nil {
			// The packet still goes out; the post probe decides the outcome.
			s.logger.Warn().
				Err(err).
				Str("ip", cfg.IP).
				Msg("pre-wake ARP check failed, assuming target is asleep")
		}
		result.AwakeBefore = before
	}

	broadcastIP := cfg.BroadcastIP
	if broadcastIP == "" {
		broadcastIP = models.DefaultBroadcastIP
	}
	port := cfg.Port
	if port == 0 {
		port = models.DefaultPort
	}

	s.logger.Info().
		Str("mac", cfg.MACAddress).
		Str("broadcast", broadcastIP).
		Int("port", port).
		Msg("sending WOL packet")

	// The packet goes out even when the target already answered.
	if err := s.broadcaster.Send(ctx, payload, broadcastIP, port); err != nil {
		result.Error = err
		return result, nil
	}

	result.PacketSent = true
	s.logger.Info().Msg("WOL packet sent successfully")

	if !checkARP {
		result.Changed = true
		result.WaitDuration = time.Since(start)
		return result, nil
	}

	if result.AwakeBefore {
		s.logger.Info().
			Str("ip", cfg.IP).
			Msg("target was already awake")
		result.WaitDuration = time.Since(start)
		return result, nil
	}

	s.logger.Info().
		Str("ip", cfg.IP).
		Dur("timeout", cfg.Timeout).
		Msg("waiting for target to answer ARP")

	after, err := s.probe(ctx, cfg, cfg.Timeout)
	result.WaitDuration = time.Since(start)
	if err != nil {
		result.Error = err
		return result, nil
	}

	if !after {
		result.Error = fmt.Errorf(
			"%w, either mac=%s/ip=%s is wrong or WoL is not configured",
			models.ErrVerificationTimeout, cfg.MACAddress, cfg.IP,
		)
		return result, nil
	}

	result.AwakeAfter = true
	result.Changed = true

	s.logger.Info().
		Dur("duration", result.WaitDuration).
		Msg("target is awake")

	return result, nil
}

// checkARP resolves the tri-state setting against the environment.
func (s *Impl) checkARP(cfg models.WOLConfig) bool {
	if cfg.CheckARP != nil {
		return *cfg.CheckARP
	}
	return s.caps.CheckModeSupported()
}

// ValidateCheck reports why ARP checking cannot run, in the order
// capability, ip (present, then IPv4), privilege. It returns nil when checking is possible.
func ValidateCheck(caps models.Capabilities, ip string) error {
	if !caps.ARPAvailable {
		return fmt.Errorf("%w: raw ARP sockets are required when using check_arp", models.ErrCapabilityMissing)
	}
	if ip == "" {
		return fmt.Errorf("%w: ip address is required when using check_arp", models.ErrMissingParameter)
	}
	if addr, err := netip.ParseAddr(ip); err != nil || !addr.Is4() {
		return fmt.Errorf("%w: ip %q is not an IPv4 address", models.ErrInvalidParameter, ip)
	}
	if !caps.Privileged {
		return fmt.Errorf("%w: check_arp only works as root", models.ErrPrivilegeRequired)
	}
	return nil
}

func (s *Impl) probe(ctx context.Context, cfg models.WOLConfig, timeout time.Duration) (bool, error) {
	res, err := s.prober.Probe(ctx, models.ProbeConfig{
		MACAddress: cfg.MACAddress,
		IP:         cfg.IP,
		Timeout:    timeout,
		Interface:  cfg.Interface,
	})
	if err != nil {
		return false, err
	}
	return res.Replied, nil
}
