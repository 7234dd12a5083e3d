package models

import "errors"

// Failure kinds reported by the wake workflow. Callers match them with errors.Is.
var (
	ErrInvalidAddressFormat = errors.New("invalid MAC address")
	ErrCapabilityMissing    = errors.New("ARP probing is not supported on this system")
	ErrMissingParameter     = errors.New("missing parameter")
	ErrInvalidParameter     = errors.New("invalid parameter")
	ErrPrivilegeRequired    = errors.New("root privileges required")
	ErrNetwork              = errors.New("network error")
	ErrVerificationTimeout  = errors.New("system was not detected using arping")
)
