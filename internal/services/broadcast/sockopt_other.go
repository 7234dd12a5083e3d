//go:build !unix

package broadcast

import "syscall"

// The runtime already enables SO_BROADCAST on datagram sockets here.
func enableBroadcast(_, _ string, _ syscall.RawConn) error {
	return nil
}
