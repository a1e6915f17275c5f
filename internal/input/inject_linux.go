//go:build linux

package input

import (
	"fmt"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/jezek/xgb/xtest"
)

// Injector injects events into an X11 display through the XTEST extension.
// An xgb connection is safe for concurrent use.
type Injector struct {
	conn   *xgb.Conn
	root   xproto.Window
	width  int
	height int
}

// NewInjector connects to display, or to $DISPLAY when display is empty.
func NewInjector(display string) (*Injector, error) {
	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X display: %w", err)
	}

	if err := xtest.Init(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("XTEST extension unavailable: %w", err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	inj := &Injector{
		conn:   conn,
		root:   screen.Root,
		width:  int(screen.WidthInPixels),
		height: int(screen.HeightInPixels),
	}
	if inj.width == 0 || inj.height == 0 {
		inj.width, inj.height = DefaultScreenWidth, DefaultScreenHeight
	}
	return inj, nil
}

// InjectKey presses or releases a key by X keycode
func (i *Injector) InjectKey(keyCode uint8, pressed bool) error {
	ev := byte(xproto.KeyRelease)
	if pressed {
		ev = xproto.KeyPress
	}
	if err := xtest.FakeInputChecked(i.conn, ev, keyCode, 0, i.root, 0, 0, 0).Check(); err != nil {
		return fmt.Errorf("fake key %d: %w", keyCode, err)
	}
	return nil
}

// InjectMouseButton presses or releases a pointer button
func (i *Injector) InjectMouseButton(button uint8, pressed bool) error {
	ev := byte(xproto.ButtonRelease)
	if pressed {
		ev = xproto.ButtonPress
	}
	if err := xtest.FakeInputChecked(i.conn, ev, button, 0, i.root, 0, 0, 0).Check(); err != nil {
		return fmt.Errorf("fake button %d: %w", button, err)
	}
	return nil
}

// InjectPointer warps the pointer to absolute root-window coordinates
func (i *Injector) InjectPointer(x, y int) error {
	err := xproto.WarpPointerChecked(i.conn, xproto.Window(0), i.root, 0, 0, 0, 0, int16(x), int16(y)).Check()
	if err != nil {
		return fmt.Errorf("warp pointer to (%d,%d): %w", x, y, err)
	}
	return nil
}

// ScreenSize returns the default screen's size in pixels
func (i *Injector) ScreenSize() (int, int) {
	return i.width, i.height
}

// Close closes the display connection
func (i *Injector) Close() error {
	i.conn.Close()
	return nil
}
