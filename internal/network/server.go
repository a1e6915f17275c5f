package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"kbmd/internal/auth"
	"kbmd/internal/osutils"
	"kbmd/internal/protocol"
)

// DefaultAuthTimeout bounds the authentication read and the rejection write.
const DefaultAuthTimeout = 5 * time.Second

// Dispatcher receives decoded commands. An error is fatal to the server.
type Dispatcher interface {
	Dispatch(cmd protocol.Command) error
}

// Options configures a Server. Zero values select the defaults.
type Options struct {
	AuthTimeout time.Duration
	FrameSize   int

	// AuthRate and AuthBurst throttle authentication attempts across all
	// listeners. A zero AuthRate disables throttling.
	AuthRate  rate.Limit
	AuthBurst int

	// KeepAlive is the idle period after which an authenticated session is
	// probed. Zero disables keepalive.
	KeepAlive time.Duration

	// OnSession is called when an authenticated session starts and ends.
	OnSession func(active bool, remote string)
}

// Server runs the single controller session. It may serve several listeners at
// once; they share one session slot.
type Server struct {
	cred    *auth.Credential
	disp    Dispatcher
	opts    Options
	limiter *rate.Limiter
	slot    chan struct{}
	log     *log.Entry
}

// NewServer creates a server that verifies peers against cred and hands their
// commands to disp.
func NewServer(cred *auth.Credential, disp Dispatcher, opts Options, entry *log.Entry) *Server {
	if opts.AuthTimeout <= 0 {
		opts.AuthTimeout = DefaultAuthTimeout
	}
	if opts.FrameSize <= 0 {
		opts.FrameSize = protocol.MaxFrameSize
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.AuthRate > 0 {
		burst := opts.AuthBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(opts.AuthRate, burst)
	}
	return &Server{
		cred:    cred,
		disp:    disp,
		opts:    opts,
		limiter: limiter,
		slot:    make(chan struct{}, 1),
		log:     entry,
	}
}

// Serve accepts connections on ln one at a time until ctx is done. It returns nil
// after ctx is cancelled, the accept error if the listener fails, or the dispatch
// error if a consumer loop has gone away. ln is closed on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()
	defer ln.Close()

	s.log.WithField("addr", ln.Addr().String()).Info("listening")
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept on %s: %w", ln.Addr(), err)
		}

		select {
		case s.slot <- struct{}{}:
		case <-ctx.Done():
			conn.Close()
			return nil
		}
		err = s.handle(ctx, conn)
		<-s.slot
		if err != nil {
			return err
		}
	}
}

// handle runs one connection to completion. Only a dispatch failure is returned;
// everything else ends the connection and is logged.
func (s *Server) handle(ctx context.Context, conn net.Conn) error {
	remote := conn.RemoteAddr().String()
	entry := s.log.WithFields(log.Fields{
		"session": uuid.NewString(),
		"remote":  remote,
	})
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	entry.Debug("connection accepted")
	if !s.limiter.Allow() {
		entry.Warn("too many authentication attempts, dropping connection")
		return nil
	}

	frames := NewFrameReader(conn, s.opts.FrameSize)
	if !s.authenticate(conn, frames, entry) {
		return nil
	}

	if err := osutils.TuneSessionConn(conn, s.opts.KeepAlive); err != nil {
		entry.WithError(err).Warn("could not tune session socket")
	}

	entry.Info("session authenticated")
	if s.opts.OnSession != nil {
		s.opts.OnSession(true, remote)
		defer s.opts.OnSession(false, remote)
	}

	for {
		frame, err := frames.Next()
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				entry.Info("session closed")
			} else {
				entry.WithError(err).Info("session ended")
			}
			return nil
		}

		cmd, err := protocol.Decode(frame)
		if err != nil {
			if protocol.IsSoft(err) {
				entry.WithError(err).Warn("ignoring malformed command")
			} else {
				entry.WithError(err).WithField("frame", string(frame)).Debug("ignoring unrecognised frame")
			}
			continue
		}

		entry.WithField("command", cmd).Trace("dispatching")
		if err := s.disp.Dispatch(cmd); err != nil {
			return fmt.Errorf("dispatch %s: %w", cmd, err)
		}
	}
}

// authenticate reads the first frame and checks its tag. A failed peer is told
// so before the connection is dropped.
func (s *Server) authenticate(conn net.Conn, frames *FrameReader, entry *log.Entry) bool {
	frame, err := frames.NextWithin(s.opts.AuthTimeout)
	if err != nil {
		entry.WithError(err).Info("no authentication received")
		return false
	}

	data, tag := protocol.ParseAuth(frame)
	if len(data) < protocol.MinAuthDataLen {
		entry.WithField("length", len(data)).Warn("authentication data too short")
		s.reject(conn, entry)
		return false
	}
	ok, err := auth.Verify(s.cred, data, tag)
	if err != nil {
		entry.WithError(err).Warn("malformed authentication")
		s.reject(conn, entry)
		return false
	}
	if !ok {
		entry.Warn("authentication failed")
		s.reject(conn, entry)
		return false
	}
	return true
}

func (s *Server) reject(conn net.Conn, entry *log.Entry) {
	if err := conn.SetWriteDeadline(time.Now().Add(s.opts.AuthTimeout)); err != nil {
		entry.WithError(err).Debug("set write deadline")
	}
	if _, err := conn.Write([]byte(protocol.RejectMessage)); err != nil {
		entry.WithError(err).Debug("could not send rejection")
	}
}
