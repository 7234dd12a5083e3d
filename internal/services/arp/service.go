// Package arp provides ARP based liveness probes.
package arp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"time"

	"github.com/fgeck/gowol/internal/models"
	"github.com/fgeck/gowol/internal/services/magicpacket"
	"github.com/mdlayher/arp"
	"github.com/mdlayher/ethernet"
	"github.com/rs/zerolog"
)

// AttemptWait is how long a single probe attempt waits for a reply.
const AttemptWait = 2 * time.Second

var unknownHardwareAddr = net.HardwareAddr{0, 0, 0, 0, 0, 0}

// Service defines the interface for ARP liveness probes.
type Service interface {
	Probe(ctx context.Context, cfg models.ProbeConfig) (*models.ProbeResult, error)
}

// Conn is the subset of *arp.Client used by the probe.
type Conn interface {
	HardwareAddr() net.HardwareAddr
	WriteTo(p *arp.Packet, addr net.HardwareAddr) error
	Read() (*arp.Packet, *ethernet.Frame, error)
	SetReadDeadline(t time.Time) error
	Close() error
}

// Dialer opens an ARP connection suitable for reaching target.
// It returns the connection and the IPv4 source address to announce.
type Dialer interface {
	Dial(target netip.Addr, ifaceName string) (Conn, netip.Addr, error)
}

// Impl implements the ARP Service interface.
type Impl struct {
	dialer Dialer
	logger zerolog.Logger
}

// New creates a new ARP probe service using raw sockets.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		dialer: &DefaultDialer{},
		logger: logger,
	}
}

// NewWithDialer creates a new ARP probe service with a custom dialer (for testing).
func NewWithDialer(logger zerolog.Logger, dialer Dialer) *Impl {
	return &Impl{
		dialer: dialer,
		logger: logger,
	}
}

// Attempts returns the number of probe attempts that fit into timeout.
// At least one attempt is always made.
func Attempts(timeout time.Duration) int {
	n := int((timeout + AttemptWait - 1) / AttemptWait)
	if n < 1 {
		return 1
	}
	return n
}

// Probe sends ARP who-has requests for cfg.IP in frames addressed to
// cfg.MACAddress until a reply arrives or the attempts are exhausted.
// A missing reply is not an error: the result simply has Replied unset.
func (s *Impl) Probe(ctx context.Context, cfg models.ProbeConfig) (*models.ProbeResult, error) {
	mac, err := magicpacket.ParseHardwareAddr(cfg.MACAddress)
	if err != nil {
		return nil, err
	}

	if cfg.IP == "" {
		return nil, fmt.Errorf("%w: ip address is required", models.ErrMissingParameter)
	}
	target, err := netip.ParseAddr(cfg.IP)
	if err != nil || !target.Is4() {
		return nil, fmt.Errorf("%w: %q is not an IPv4 address", models.ErrInvalidParameter, cfg.IP)
	}

	conn, src, err := s.dialer.Dial(target, cfg.Interface)
	if err != nil {
		return nil, fmt.Errorf("%w: opening ARP socket: %v", models.ErrNetwork, err)
	}
	defer func() { _ = conn.Close() }()

	attempts := Attempts(cfg.Timeout)
	result := &models.ProbeResult{}

	s.logger.Debug().
		Str("mac", mac.String()).
		Str("ip", target.String()).
		Str("source", src.String()).
		Int("attempts", attempts).
		Msg("probing target")

	for i := 1; i <= attempts; i++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Attempts = i

		reply, err := s.attempt(conn, mac, src, target)
		if err != nil {
			return result, fmt.Errorf("%w: ARP probe of %s: %v", models.ErrNetwork, target, err)
		}
		if reply != nil {
			result.Replied = true
			result.SenderMAC = reply.SenderHardwareAddr.String()
			result.SenderIP = reply.SenderIP.String()

			s.logger.Debug().
				Str("sender_mac", result.SenderMAC).
				Int("attempt", i).
				Msg("ARP reply received")

			return result, nil
		}

		s.logger.Debug().Int("attempt", i).Msg("no ARP reply")
	}

	return result, nil
}

// attempt writes one request and waits up to AttemptWait for the matching reply.
func (s *Impl) attempt(conn Conn, mac net.HardwareAddr, src, target netip.Addr) (*arp.Packet, error) {
	req, err := arp.NewPacket(arp.OperationRequest, conn.HardwareAddr(), src, unknownHardwareAddr, target)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	if err := conn.WriteTo(req, mac); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(AttemptWait)); err != nil {
		return nil, fmt.Errorf("setting deadline: %w", err)
	}

	for {
		p, _, err := conn.Read()
		if err != nil {
			if isTimeout(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("reading reply: %w", err)
		}

		if p.Operation != arp.OperationReply || p.SenderIP != target {
			continue
		}
		return p, nil
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
