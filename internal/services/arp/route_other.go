//go:build !linux

package arp

import (
	"net"
	"net/netip"

	"github.com/fgeck/gowol/internal/models"
)

const arpSupported = false

func routeToTarget(_ netip.Addr) (*net.Interface, netip.Addr, error) {
	return nil, netip.Addr{}, models.ErrCapabilityMissing
}
