// Package broadcast sends single UDP datagrams to broadcast destinations.
package broadcast

import (
	"context"
	"fmt"
	"net"

	"github.com/fgeck/gowol/internal/models"
	"github.com/rs/zerolog"
)

// Service defines the interface for broadcasting a payload.
type Service interface {
	Send(ctx context.Context, payload []byte, destination string, port int) error
}

// Impl implements the broadcast Service interface.
type Impl struct {
	listenConfig net.ListenConfig
	logger       zerolog.Logger
}

// New creates a new broadcast service whose sockets permit broadcast destinations.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		listenConfig: net.ListenConfig{Control: enableBroadcast},
		logger:       logger,
	}
}

// Send transmits payload as one datagram to destination:port.
// The socket is opened for this call only and closed before returning.
// Any failure wraps models.ErrNetwork and carries the system error text.
func (s *Impl) Send(ctx context.Context, payload []byte, destination string, port int) error {
	ip := net.ParseIP(destination)
	if ip == nil {
		return fmt.Errorf("%w: invalid broadcast address %q", models.ErrNetwork, destination)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("%w: invalid port %d", models.ErrNetwork, port)
	}

	network := "udp4"
	if ip.To4() == nil {
		network = "udp6"
	}

	conn, err := s.listenConfig.ListenPacket(ctx, network, ":0")
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrNetwork, err)
	}
	defer func() { _ = conn.Close() }()

	addr := &net.UDPAddr{IP: ip, Port: port}

	s.logger.Debug().
		Str("destination", addr.String()).
		Int("bytes", len(payload)).
		Msg("sending datagram")

	n, err := conn.WriteTo(payload, addr)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrNetwork, err)
	}
	if n != len(payload) {
		return fmt.Errorf("%w: short write to %s: %d of %d bytes", models.ErrNetwork, addr, n, len(payload))
	}

	return nil
}
