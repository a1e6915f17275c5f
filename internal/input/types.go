// Package input drives the host's input-injection backend: the keyboard and
// pointer loops fed by the dispatcher, the key tables, and the backends themselves.
package input

import "errors"

// ErrUnsupportedPlatform is returned where no display backend exists
var ErrUnsupportedPlatform = errors.New("input injection not supported on this platform")

// Default screen size used when the backend cannot report one.
const (
	DefaultScreenWidth  = 1280
	DefaultScreenHeight = 720
)

// InputInjector defines the interface for injecting input events. Implementations
// are shared by the pointer and key loops and must be safe for concurrent use.
// Errors mean the backend connection is unusable.
type InputInjector interface {
	// InjectKey presses or releases a key by keycode
	InjectKey(keyCode uint8, pressed bool) error

	// InjectMouseButton presses or releases a mouse button
	InjectMouseButton(button uint8, pressed bool) error

	// InjectPointer warps the pointer to absolute screen pixels
	InjectPointer(x, y int) error

	// ScreenSize returns the screen dimensions in pixels
	ScreenSize() (width, height int)

	Close() error
}
