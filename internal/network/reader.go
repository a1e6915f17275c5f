// Package network accepts controller connections, authenticates them and feeds
// decoded commands to the dispatcher.
package network

import (
	"io"
	"net"
	"time"

	"kbmd/internal/protocol"
)

// FrameReader turns a connection into frames. Every successful Read is one frame
// of at most size bytes; nothing is buffered across reads.
type FrameReader struct {
	conn net.Conn
	buf  []byte
}

// NewFrameReader reads frames of at most size bytes from conn. A non-positive size
// selects protocol.MaxFrameSize.
func NewFrameReader(conn net.Conn, size int) *FrameReader {
	if size <= 0 {
		size = protocol.MaxFrameSize
	}
	return &FrameReader{conn: conn, buf: make([]byte, size)}
}

// Next blocks for the next frame. The returned slice is only valid until the next
// call. A peer that closed the connection yields io.EOF.
func (r *FrameReader) Next() ([]byte, error) {
	n, err := r.conn.Read(r.buf)
	if n > 0 {
		// A read that returned data and an error reports the error on the
		// following call.
		return r.buf[:n], nil
	}
	if err == nil {
		err = io.EOF
	}
	return nil, err
}

// NextWithin is Next bounded by a read deadline. The deadline is cleared before
// returning.
func (r *FrameReader) NextWithin(timeout time.Duration) ([]byte, error) {
	if err := r.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}
	frame, err := r.Next()
	if cerr := r.conn.SetReadDeadline(time.Time{}); cerr != nil && err == nil {
		err = cerr
	}
	return frame, err
}
