package network

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kbmd/internal/auth"
	"kbmd/internal/dispatch"
	"kbmd/internal/input"
	"kbmd/internal/protocol"
)

// pointerRecorder is an injector that only remembers pointer positions.
type pointerRecorder struct {
	mu    sync.Mutex
	moves [][2]int
}

func (p *pointerRecorder) InjectKey(uint8, bool) error         { return nil }
func (p *pointerRecorder) InjectMouseButton(uint8, bool) error { return nil }
func (p *pointerRecorder) ScreenSize() (int, int)              { return 100, 100 }
func (p *pointerRecorder) Close() error                        { return nil }

func (p *pointerRecorder) InjectPointer(x, y int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.moves = append(p.moves, [2]int{x, y})
	return nil
}

func (p *pointerRecorder) Last() ([2]int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.moves) == 0 {
		return [2]int{}, false
	}
	return p.moves[len(p.moves)-1], true
}

func dialClient(t *testing.T, addr string, h *harness) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := Dial(ctx, addr, h.cred, 0, testEntry())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestEndToEndPointerConverges(t *testing.T) {
	d := dispatch.New()
	rec := &pointerRecorder{}
	pointer := input.NewInterpolator(rec, d.Pointer, input.PointerOptions{Step: 1, Interval: time.Millisecond}, testEntry())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pointer.Run(ctx)

	h := startServer(t, d, Options{})
	c := dialClient(t, h.addr, h)

	require.NoError(t, c.Send(protocol.PointerMove{X: 0, Y: 0}))
	require.NoError(t, c.Send(protocol.PointerMove{X: 100, Y: 100}))

	require.Eventually(t, func() bool {
		last, ok := rec.Last()
		return ok && last == [2]int{100, 100}
	}, 5*time.Second, 10*time.Millisecond)
}

func TestAuthMessageFitsOneFrame(t *testing.T) {
	cred := testCredential(t, "s3cret")
	for i := 0; i < 10; i++ {
		msg := authMessage(cred)
		require.LessOrEqual(t, len(msg), protocol.MaxFrameSize)

		data, tag := protocol.ParseAuth(msg)
		require.GreaterOrEqual(t, len(data), protocol.MinAuthDataLen)
		ok, err := auth.Verify(cred, data, tag)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestClientRejected(t *testing.T) {
	h := startServer(t, &recordingDispatcher{}, Options{})

	other := testCredential(t, "wrong secret")
	_, err := Dial(context.Background(), h.addr, other, 0, testEntry())
	assert.ErrorIs(t, err, ErrRejected)
}

func TestClientForwardsLines(t *testing.T) {
	disp := &recordingDispatcher{}
	h := startServer(t, disp, Options{})
	c := dialClient(t, h.addr, h)

	in := strings.NewReader("t a\n\nbogus\nc 1\ns tab\n")
	require.NoError(t, c.Forward(context.Background(), in))

	require.Eventually(t, func() bool { return len(disp.Commands()) == 3 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []protocol.Command{
		protocol.KeyPress{Char: 'a'},
		protocol.MouseButton{Code: protocol.MouseLeft},
		protocol.Special{Code: protocol.SpecialTab},
	}, disp.Commands())
}

func TestWebSocketSession(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	wsl := NewWSListener(ln, "", testEntry())

	disp := &recordingDispatcher{}
	h := serveOn(t, wsl, disp, Options{})
	url := "ws://" + h.addr + DefaultWSPath

	c := dialClient(t, url, h)
	require.NoError(t, c.Send(protocol.KeyPress{Char: 'Z'}))
	require.NoError(t, c.Send(protocol.PointerMove{X: 5, Y: 6}))

	require.Eventually(t, func() bool { return len(disp.Commands()) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []protocol.Command{
		protocol.KeyPress{Char: 'Z'},
		protocol.PointerMove{X: 5, Y: 6},
	}, disp.Commands())
}

func TestWebSocketRejected(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	wsl := NewWSListener(ln, "", testEntry())
	h := serveOn(t, wsl, &recordingDispatcher{}, Options{})

	other := testCredential(t, "wrong secret")
	_, err = Dial(context.Background(), "ws://"+h.addr+DefaultWSPath, other, 0, testEntry())
	assert.ErrorIs(t, err, ErrRejected)
}

func TestWebSocketHealth(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	wsl := NewWSListener(ln, "", testEntry())
	defer wsl.Close()

	resp, err := http.Get("http://" + wsl.Addr().String() + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
