// Package tray shows the daemon's state as a system tray icon using
// getlantern/systray.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// MenuItem represents a menu item
type MenuItem struct {
	ID       int
	Title    string
	Callback func()
	item     *systray.MenuItem
}

// Tray manages the system tray icon and menu
type Tray struct {
	mu      sync.Mutex
	items   []*MenuItem
	tooltip string
	status  string
	statusI *systray.MenuItem
	ready   bool
	readyCh chan struct{}
	quitCh  chan struct{}
	stop    sync.Once
}

// New creates a new system tray
func New(tooltip string) *Tray {
	return &Tray{
		tooltip: tooltip,
		status:  "starting",
		readyCh: make(chan struct{}),
		quitCh:  make(chan struct{}),
	}
}

// AddMenuItem adds a menu item to the tray. It must be called before Run.
func (t *Tray) AddMenuItem(title string, callback func()) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := len(t.items)
	t.items = append(t.items, &MenuItem{
		ID:       id,
		Title:    title,
		Callback: callback,
	})
	return id
}

// AddSeparator adds a separator to the menu
func (t *Tray) AddSeparator() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = append(t.items, nil) // nil indicates separator
}

// SetStatus shows text as the first, disabled menu entry and in the tooltip. It
// is safe to call before the tray is ready and from any goroutine.
func (t *Tray) SetStatus(text string) {
	t.mu.Lock()
	t.status = text
	ready := t.ready
	t.mu.Unlock()
	if ready {
		t.applyStatus(text)
	}
}

// Status returns the last status set.
func (t *Tray) Status() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *Tray) applyStatus(text string) {
	t.statusI.SetTitle(text)
	systray.SetTooltip(t.tooltip + ": " + text)
}

// Ready is closed once the icon is shown.
func (t *Tray) Ready() <-chan struct{} {
	return t.readyCh
}

// Run starts the tray event loop. It blocks until Stop is called and must run on
// the main goroutine on macOS.
func (t *Tray) Run() {
	systray.Run(t.setupMenu, t.onExit)
}

func (t *Tray) onExit() {
	close(t.quitCh)
}

// setupMenu is called when systray is ready
func (t *Tray) setupMenu() {
	systray.SetTitle("kbmd")
	systray.SetIcon(getIcon())

	t.mu.Lock()
	t.statusI = systray.AddMenuItem(t.status, "")
	t.statusI.Disable()
	items := append([]*MenuItem(nil), t.items...)
	status := t.status
	t.ready = true
	t.mu.Unlock()
	t.applyStatus(status)

	for _, menuItem := range items {
		if menuItem == nil {
			systray.AddSeparator()
			continue
		}
		menuItem.item = systray.AddMenuItem(menuItem.Title, "")
		if menuItem.Callback != nil {
			go func(mi *MenuItem) {
				for {
					select {
					case <-mi.item.ClickedCh:
						mi.Callback()
					case <-t.quitCh:
						return
					}
				}
			}(menuItem)
		}
	}
	close(t.readyCh)
}

// Stop ends Run. It may be called more than once.
func (t *Tray) Stop() {
	t.stop.Do(systray.Quit)
}

// getIcon returns a blank 16x16 32-bit ICO.
func getIcon() []byte {
	icon := make([]byte, 1118)
	// ICO header
	copy(icon[0:6], []byte{0x00, 0x00, 0x01, 0x00, 0x01, 0x00})
	// Icon directory: 16x16, 32bpp, 1096 bytes at offset 22
	copy(icon[6:22], []byte{
		0x10, 0x10, 0x00, 0x00, 0x01, 0x00, 0x20, 0x00,
		0x48, 0x04, 0x00, 0x00,
		0x16, 0x00, 0x00, 0x00,
	})
	// DIB header; height is doubled for the AND mask
	copy(icon[22:62], []byte{
		0x28, 0x00, 0x00, 0x00,
		0x10, 0x00, 0x00, 0x00,
		0x20, 0x00, 0x00, 0x00,
		0x01, 0x00,
		0x20, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x04, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	})
	return icon
}
