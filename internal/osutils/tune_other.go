//go:build !linux

package osutils

import (
	"net"
	"time"
)

// TuneSessionConn enables keepalive on an authenticated session.
func TuneSessionConn(conn net.Conn, idle time.Duration) error {
	c, ok := tcpConn(conn)
	if !ok {
		return nil
	}
	return setKeepAlive(c, idle)
}
