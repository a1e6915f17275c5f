//go:build linux

package osutils

import (
	"net"
	"time"

	"golang.org/x/sys/unix"
)

// TuneSessionConn enables keepalive on an authenticated session and caps how long
// unacknowledged writes may linger, so a peer that vanished without a FIN frees the
// session slot after roughly idle. Connections that are not TCP are left alone.
func TuneSessionConn(conn net.Conn, idle time.Duration) error {
	c, ok := tcpConn(conn)
	if !ok {
		return nil
	}
	if err := setKeepAlive(c, idle); err != nil {
		return err
	}
	if idle <= 0 {
		return nil
	}

	raw, err := c.SyscallConn()
	if err != nil {
		return err
	}
	var serr error
	err = raw.Control(func(fd uintptr) {
		serr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_USER_TIMEOUT, int(idle.Milliseconds()))
	})
	if err != nil {
		return err
	}
	return serr
}
