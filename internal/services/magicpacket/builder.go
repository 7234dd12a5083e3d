// Package magicpacket builds Wake-on-LAN magic packets.
package magicpacket

import (
	"encoding/hex"
	"fmt"
	"net"
	"strings"

	"github.com/fgeck/gowol/internal/models"
	"github.com/mdlayher/wol"
)

const (
	// Size is the length of a magic packet without password: 6x0xFF + 16x MAC.
	Size = 6 + 16*6

	macHexLen       = 12
	separatedMACLen = macHexLen + 5
)

// ParseHardwareAddr normalizes raw into a 6-byte hardware address.
//
// A 17 character input is treated as fully separated: the character at
// index 2 is the separator and every occurrence of it is dropped. Anything
// else must already be 12 hex digits.
func ParseHardwareAddr(raw string) (net.HardwareAddr, error) {
	mac := raw
	if len(mac) == separatedMACLen {
		mac = strings.ReplaceAll(mac, mac[2:3], "")
	}

	if len(mac) != macHexLen {
		return nil, fmt.Errorf("%w: incorrect MAC address length: %s", models.ErrInvalidAddressFormat, raw)
	}

	b, err := hex.DecodeString(mac)
	if err != nil {
		return nil, fmt.Errorf("%w: incorrect MAC address format: %s", models.ErrInvalidAddressFormat, raw)
	}

	return net.HardwareAddr(b), nil
}

// Build returns the magic packet payload for raw.
func Build(raw string) ([]byte, error) {
	mac, err := ParseHardwareAddr(raw)
	if err != nil {
		return nil, err
	}
	return ForAddr(mac)
}

// ForAddr returns the magic packet payload for an already parsed address.
func ForAddr(mac net.HardwareAddr) ([]byte, error) {
	p := &wol.MagicPacket{Target: mac}
	b, err := p.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrInvalidAddressFormat, mac, err)
	}
	return b, nil
}
