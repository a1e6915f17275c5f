package network

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"kbmd/internal/auth"
	"kbmd/internal/protocol"
)

// ErrRejected means the daemon refused our authentication.
var ErrRejected = errors.New("network: authentication rejected")

const (
	// DefaultSendGap separates consecutive writes so the daemon reads each
	// command on its own.
	DefaultSendGap = 20 * time.Millisecond

	// rejectWait is how long the client listens for a rejection after sending
	// its tag. Silence means the session is open.
	rejectWait = 300 * time.Millisecond
)

// Client is a controller session: it authenticates once and then sends one
// command per write.
type Client struct {
	conn net.Conn
	gap  time.Duration
	log  *log.Entry
}

// Dial connects to addr and authenticates with cred. addr is host:port for TCP
// or a ws:// URL for the websocket endpoint.
func Dial(ctx context.Context, addr string, cred *auth.Credential, gap time.Duration, entry *log.Entry) (*Client, error) {
	if gap <= 0 {
		gap = DefaultSendGap
	}

	var conn net.Conn
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		ws, _, err := websocket.DefaultDialer.DialContext(ctx, addr, nil)
		if err != nil {
			return nil, err
		}
		conn = newWSConn(ws)
	} else {
		var d net.Dialer
		c, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, err
		}
		conn = c
	}

	c := &Client{conn: conn, gap: gap, log: entry}
	if err := c.authenticate(cred); err != nil {
		conn.Close()
		return nil, err
	}
	entry.WithField("addr", addr).Info("connected")
	return c, nil
}

// authMessage builds "<nonce> <tag>". The nonce is a uuid without dashes so the
// whole message fits in one frame.
func authMessage(cred *auth.Credential) []byte {
	data := []byte(strings.ReplaceAll(uuid.NewString(), "-", ""))
	msg := make([]byte, 0, len(data)+1+64)
	msg = append(msg, data...)
	msg = append(msg, ' ')
	return append(msg, cred.Sign(data)...)
}

func (c *Client) authenticate(cred *auth.Credential) error {
	if _, err := c.conn.Write(authMessage(cred)); err != nil {
		return err
	}

	frame, err := NewFrameReader(c.conn, 0).NextWithin(rejectWait)
	var ne net.Error
	switch {
	case err == nil:
		if bytes.HasPrefix(frame, []byte(protocol.RejectMessage)) {
			return ErrRejected
		}
		return nil
	case errors.As(err, &ne) && ne.Timeout():
		return nil
	case errors.Is(err, io.EOF):
		return ErrRejected
	default:
		return err
	}
}

// Send writes cmd as a single frame and waits out the send gap.
func (c *Client) Send(cmd protocol.Command) error {
	if _, err := c.conn.Write(cmd.Encode()); err != nil {
		return err
	}
	time.Sleep(c.gap)
	return nil
}

// Forward reads commands line by line from r and sends each one until r is
// exhausted or ctx is done. Lines that do not decode are logged and skipped.
func (c *Client) Forward(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(protocol.Fields(line)) == 0 {
			continue
		}
		cmd, err := protocol.Decode(line)
		if err != nil {
			c.log.WithError(err).WithField("line", string(line)).Warn("skipping line")
			continue
		}
		if err := c.Send(cmd); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// Close ends the session.
func (c *Client) Close() error {
	return c.conn.Close()
}
