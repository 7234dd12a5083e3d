// Package models contains the data structures used throughout gowol.
package models

// Config holds the complete configuration for a gowol invocation.
type Config struct {
	WOL         WOLConfig
	SSHShutdown *SSHShutdownConfig // nil if not configured
	Telegram    *TelegramConfig    // nil if not configured
}

// Capabilities describes what the runtime environment allows for ARP probing.
// Both flags must be true for check mode to be usable.
type Capabilities struct {
	ARPAvailable bool // raw link-layer sockets are supported on this platform
	Privileged   bool // the process runs with root privileges
}

// CheckModeSupported reports whether ARP verification can run by default.
func (c Capabilities) CheckModeSupported() bool {
	return c.ARPAvailable && c.Privileged
}
