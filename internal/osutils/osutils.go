// Package osutils holds the small platform-specific bits of the daemon.
package osutils

import (
	"net"
	"time"
)

// keepAliveProbes is how many unanswered probes drop a session.
const keepAliveProbes = 3

type netConner interface {
	NetConn() net.Conn
}

// tcpConn unwraps conn down to its TCP socket. Wrappers such as the websocket
// adapter expose the socket through NetConn.
func tcpConn(conn net.Conn) (*net.TCPConn, bool) {
	for conn != nil {
		switch c := conn.(type) {
		case *net.TCPConn:
			return c, true
		case netConner:
			conn = c.NetConn()
		default:
			return nil, false
		}
	}
	return nil, false
}

func setKeepAlive(c *net.TCPConn, idle time.Duration) error {
	if idle <= 0 {
		return c.SetKeepAlive(false)
	}
	return c.SetKeepAliveConfig(net.KeepAliveConfig{
		Enable:   true,
		Idle:     idle,
		Interval: idle / keepAliveProbes,
		Count:    keepAliveProbes,
	})
}
