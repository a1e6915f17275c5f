//go:build !linux

package input

// Stub implementation for platforms without an X11 backend

// Injector represents a stub input injector
type Injector struct{}

// NewInjector always fails on this platform
func NewInjector(display string) (*Injector, error) {
	return nil, ErrUnsupportedPlatform
}

func (i *Injector) InjectKey(keyCode uint8, pressed bool) error {
	return ErrUnsupportedPlatform
}

func (i *Injector) InjectMouseButton(button uint8, pressed bool) error {
	return ErrUnsupportedPlatform
}

func (i *Injector) InjectPointer(x, y int) error {
	return ErrUnsupportedPlatform
}

func (i *Injector) ScreenSize() (int, int) {
	return DefaultScreenWidth, DefaultScreenHeight
}

func (i *Injector) Close() error {
	return nil
}
