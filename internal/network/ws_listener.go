package network

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	log "github.com/sirupsen/logrus"
)

// DefaultWSPath is where the websocket endpoint is mounted.
const DefaultWSPath = "/kbm"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Controllers are not browsers; the HMAC handshake is the access check.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSListener accepts websocket controllers and presents them as net.Conns, so
// they go through the same Server as TCP peers. Each websocket message is read
// as one frame.
type WSListener struct {
	ln    net.Listener
	srv   *http.Server
	conns chan net.Conn
	done  chan struct{}
	once  sync.Once
	log   *log.Entry
}

// ListenWS listens on addr and serves websocket upgrades on path.
func ListenWS(addr, path string, entry *log.Entry) (*WSListener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewWSListener(ln, path, entry), nil
}

// NewWSListener serves websocket upgrades on path over an existing listener.
func NewWSListener(ln net.Listener, path string, entry *log.Entry) *WSListener {
	if path == "" {
		path = DefaultWSPath
	}
	l := &WSListener{
		ln:    ln,
		conns: make(chan net.Conn),
		done:  make(chan struct{}),
		log:   entry,
	}
	router := httprouter.New()
	router.GET(path, l.handleUpgrade)
	router.GET("/health", handleHealth)
	router.PanicHandler = l.handlePanic
	l.srv = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: DefaultAuthTimeout,
	}
	go func() {
		if err := l.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.log.WithError(err).Error("websocket listener stopped")
			l.Close()
		}
	}()
	return l
}

// handlePanic keeps a panicking handler from taking the process down.
func (l *WSListener) handlePanic(w http.ResponseWriter, r *http.Request, v interface{}) {
	l.log.WithField("panic", v).Error("websocket handler panicked")
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

// handleHealth handles GET /health (for monitoring)
func handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (l *WSListener) handleUpgrade(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.log.WithError(err).Debug("websocket upgrade failed")
		return
	}
	ws.SetReadLimit(4096)

	select {
	case l.conns <- newWSConn(ws):
	case <-l.done:
		ws.Close()
	}
}

// Accept waits for the next upgraded connection.
func (l *WSListener) Accept() (net.Conn, error) {
	select {
	case c := <-l.conns:
		return c, nil
	case <-l.done:
		return nil, net.ErrClosed
	}
}

// Close stops accepting. Connections already handed out stay open.
func (l *WSListener) Close() error {
	var err error
	l.once.Do(func() {
		close(l.done)
		err = l.srv.Close()
	})
	return err
}

// Addr returns the underlying listener's address.
func (l *WSListener) Addr() net.Addr {
	return l.ln.Addr()
}

// wsConn adapts a websocket to net.Conn. A Read never spans two messages.
type wsConn struct {
	ws  *websocket.Conn
	cur io.Reader

	wmu sync.Mutex
}

func newWSConn(ws *websocket.Conn) *wsConn {
	return &wsConn{ws: ws}
}

func (c *wsConn) Read(p []byte) (int, error) {
	for {
		if c.cur == nil {
			_, r, err := c.ws.NextReader()
			if err != nil {
				var ce *websocket.CloseError
				if errors.As(err, &ce) {
					return 0, io.EOF
				}
				return 0, err
			}
			c.cur = r
		}
		n, err := c.cur.Read(p)
		if errors.Is(err, io.EOF) {
			c.cur = nil
			if n == 0 {
				continue
			}
			err = nil
		}
		return n, err
	}
}

func (c *wsConn) Write(p []byte) (int, error) {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := c.ws.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *wsConn) Close() error                       { return c.ws.Close() }
func (c *wsConn) LocalAddr() net.Addr                { return c.ws.LocalAddr() }
func (c *wsConn) RemoteAddr() net.Addr               { return c.ws.RemoteAddr() }
func (c *wsConn) SetReadDeadline(t time.Time) error  { return c.ws.SetReadDeadline(t) }
func (c *wsConn) SetWriteDeadline(t time.Time) error { return c.ws.SetWriteDeadline(t) }

func (c *wsConn) SetDeadline(t time.Time) error {
	if err := c.ws.SetReadDeadline(t); err != nil {
		return err
	}
	return c.ws.SetWriteDeadline(t)
}

// NetConn exposes the socket for keepalive tuning.
func (c *wsConn) NetConn() net.Conn {
	return c.ws.NetConn()
}
