package models

import "time"

const (
	// DefaultBroadcastIP is the limited broadcast address.
	DefaultBroadcastIP = "255.255.255.255"
	// DefaultPort is the UDP port magic packets are sent to by default (echo).
	DefaultPort = 7
	// DefaultTimeout bounds the wait for the target after waking it.
	DefaultTimeout = 60 * time.Second
)

// WOLConfig holds Wake-on-LAN configuration.
type WOLConfig struct {
	MACAddress  string
	BroadcastIP string
	Port        int
	CheckARP    *bool         // nil means "use the capability default"
	IP          string        // target IPv4 address, required for ARP checks
	Timeout     time.Duration // max time to wait for the target after waking
	Interface   string        // optional interface for ARP probes
}

// WOLResult holds the result of a Wake-on-LAN operation.
type WOLResult struct {
	PacketSent   bool
	Checked      bool // ARP verification ran
	AwakeBefore  bool
	AwakeAfter   bool
	Changed      bool
	WaitDuration time.Duration
	Error        error
}
