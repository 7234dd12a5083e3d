package models

import "time"

// ProbeConfig holds the parameters of a single ARP liveness probe.
type ProbeConfig struct {
	MACAddress string
	IP         string
	Timeout    time.Duration
	Interface  string
}

// ProbeResult holds the evidence gathered by an ARP liveness probe.
type ProbeResult struct {
	Replied   bool
	SenderMAC string
	SenderIP  string
	Attempts  int
}
