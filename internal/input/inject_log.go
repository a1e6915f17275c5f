package input

import (
	log "github.com/sirupsen/logrus"
)

// LogInjector records events in the log instead of injecting them. It backs the
// daemon's dry-run mode.
type LogInjector struct {
	width, height int
	log           *log.Entry
}

// NewLogInjector creates a dry-run injector pretending to drive a screen of the
// given size.
func NewLogInjector(width, height int, entry *log.Entry) *LogInjector {
	return &LogInjector{width: width, height: height, log: entry}
}

func (l *LogInjector) InjectKey(keyCode uint8, pressed bool) error {
	l.log.WithFields(log.Fields{"keycode": keyCode, "pressed": pressed}).Debug("key")
	return nil
}

func (l *LogInjector) InjectMouseButton(button uint8, pressed bool) error {
	l.log.WithFields(log.Fields{"button": button, "pressed": pressed}).Debug("button")
	return nil
}

func (l *LogInjector) InjectPointer(x, y int) error {
	l.log.WithFields(log.Fields{"x": x, "y": y}).Trace("pointer")
	return nil
}

func (l *LogInjector) ScreenSize() (int, int) {
	return l.width, l.height
}

func (l *LogInjector) Close() error {
	return nil
}
