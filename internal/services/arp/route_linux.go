//go:build linux

package arp

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/vishvananda/netlink"
)

const arpSupported = true

// routeToTarget asks the kernel which link and source address reach target.
func routeToTarget(target netip.Addr) (*net.Interface, netip.Addr, error) {
	routes, err := netlink.RouteGet(net.IP(target.AsSlice()))
	if err != nil {
		return nil, netip.Addr{}, fmt.Errorf("route lookup for %s: %w", target, err)
	}
	if len(routes) == 0 {
		return nil, netip.Addr{}, fmt.Errorf("no route to %s", target)
	}

	route := routes[0]
	if route.Gw != nil {
		return nil, netip.Addr{}, fmt.Errorf("%s is reached via gateway %s, ARP only works on the local segment", target, route.Gw)
	}

	ifi, err := net.InterfaceByIndex(route.LinkIndex)
	if err != nil {
		return nil, netip.Addr{}, fmt.Errorf("interface for route to %s: %w", target, err)
	}

	if src, ok := netip.AddrFromSlice(route.Src); ok && src.Unmap().Is4() {
		return ifi, src.Unmap(), nil
	}

	src, err := interfaceIPv4(ifi, target)
	if err != nil {
		return nil, netip.Addr{}, err
	}
	return ifi, src, nil
}
