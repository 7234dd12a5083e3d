package arp

import (
	"fmt"
	"net"
	"net/netip"
	"os"

	"github.com/fgeck/gowol/internal/models"
	"github.com/mdlayher/arp"
)

// DefaultDialer opens raw ARP sockets via mdlayher/arp.
type DefaultDialer struct{}

// Dial picks the interface for target (ifaceName if set, else the kernel
// route) and opens an ARP client on it.
func (d *DefaultDialer) Dial(target netip.Addr, ifaceName string) (Conn, netip.Addr, error) {
	ifi, src, err := resolveInterface(target, ifaceName)
	if err != nil {
		return nil, netip.Addr{}, err
	}

	client, err := arp.Dial(ifi)
	if err != nil {
		return nil, netip.Addr{}, fmt.Errorf("dialing %s: %w", ifi.Name, err)
	}

	return client, src, nil
}

// DetectCapabilities reports whether this process can run ARP probes.
func DetectCapabilities() models.Capabilities {
	return models.Capabilities{
		ARPAvailable: arpSupported,
		Privileged:   os.Geteuid() == 0,
	}
}

func resolveInterface(target netip.Addr, ifaceName string) (*net.Interface, netip.Addr, error) {
	if ifaceName == "" {
		return routeToTarget(target)
	}

	ifi, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return nil, netip.Addr{}, fmt.Errorf("interface %s: %w", ifaceName, err)
	}

	src, err := interfaceIPv4(ifi, target)
	if err != nil {
		return nil, netip.Addr{}, err
	}
	return ifi, src, nil
}

// interfaceIPv4 prefers the address whose subnet contains target and falls
// back to the first IPv4 address of the interface.
func interfaceIPv4(ifi *net.Interface, target netip.Addr) (netip.Addr, error) {
	addrs, err := ifi.Addrs()
	if err != nil {
		return netip.Addr{}, fmt.Errorf("addresses of %s: %w", ifi.Name, err)
	}

	var fallback netip.Addr
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip, ok := netip.AddrFromSlice(ipnet.IP)
		if !ok {
			continue
		}
		ip = ip.Unmap()
		if !ip.Is4() {
			continue
		}

		ones, _ := ipnet.Mask.Size()
		if netip.PrefixFrom(ip, ones).Masked().Contains(target) {
			return ip, nil
		}
		if !fallback.IsValid() {
			fallback = ip
		}
	}

	if fallback.IsValid() {
		return fallback, nil
	}
	return netip.Addr{}, fmt.Errorf("interface %s has no IPv4 address", ifi.Name)
}
