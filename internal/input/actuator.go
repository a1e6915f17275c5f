package input

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"kbmd/internal/dispatch"
	"kbmd/internal/protocol"
)

// DefaultSettle is the pause after each press and release. Shorter pauses make
// some X servers auto-repeat the key.
const DefaultSettle = 50 * time.Millisecond

// Actuator taps keys, special keys and mouse buttons queued by the dispatcher.
type Actuator struct {
	inj      InputInjector
	keys     *dispatch.Queue[protocol.KeyPress]
	buttons  *dispatch.Queue[protocol.MouseButton]
	specials *dispatch.Queue[protocol.Special]
	settle   time.Duration
	sleep    func(time.Duration)
	log      *log.Entry
}

// NewActuator creates the key/button loop over the dispatcher's queues. A
// negative settle disables the pause; zero selects DefaultSettle.
func NewActuator(inj InputInjector, d *dispatch.Dispatcher, settle time.Duration, entry *log.Entry) *Actuator {
	if settle == 0 {
		settle = DefaultSettle
	}
	if settle < 0 {
		settle = 0
	}
	return &Actuator{
		inj:      inj,
		keys:     d.Keys,
		buttons:  d.Buttons,
		specials: d.Specials,
		settle:   settle,
		sleep:    time.Sleep,
		log:      entry,
	}
}

// Run drains the queues until ctx is done or the backend fails. All three queues
// are closed on return.
func (a *Actuator) Run(ctx context.Context) error {
	defer func() {
		a.keys.Close()
		a.buttons.Close()
		a.specials.Close()
	}()

	a.log.Info("key loop started")
	for {
		n, err := a.Drain()
		if err != nil {
			return err
		}
		if n > 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-a.keys.Ready():
		case <-a.buttons.Ready():
		case <-a.specials.Ready():
		}
	}
}

// Drain takes at most one item from each queue and acts on it, returning how many
// items were handled.
func (a *Actuator) Drain() (int, error) {
	n := 0
	if k, ok := a.keys.TryPop(); ok {
		n++
		if err := a.typeChar(k.Char); err != nil {
			return n, err
		}
	}
	if b, ok := a.buttons.TryPop(); ok {
		n++
		if err := a.click(uint8(b.Code)); err != nil {
			return n, err
		}
	}
	if s, ok := a.specials.TryPop(); ok {
		n++
		code, ok := SpecialKeycode(s.Code)
		if !ok {
			a.log.WithField("special", s.Code).Warn("no keycode for special key")
		} else if err := a.tap(code); err != nil {
			return n, err
		}
	}
	return n, nil
}

func (a *Actuator) typeChar(c byte) error {
	code, shift, ok := Keycode(c)
	if !ok {
		a.log.WithField("char", fmt.Sprintf("%q", c)).Warn("no keycode for character")
		return nil
	}
	if shift {
		if err := a.inj.InjectKey(ShiftKeycode, true); err != nil {
			return err
		}
	}
	if err := a.tap(code); err != nil {
		return err
	}
	if shift {
		return a.inj.InjectKey(ShiftKeycode, false)
	}
	return nil
}

func (a *Actuator) tap(code uint8) error {
	if err := a.inj.InjectKey(code, true); err != nil {
		return err
	}
	a.pause()
	if err := a.inj.InjectKey(code, false); err != nil {
		return err
	}
	a.pause()
	return nil
}

func (a *Actuator) click(button uint8) error {
	if err := a.inj.InjectMouseButton(button, true); err != nil {
		return err
	}
	a.pause()
	if err := a.inj.InjectMouseButton(button, false); err != nil {
		return err
	}
	a.pause()
	return nil
}

func (a *Actuator) pause() {
	if a.settle > 0 {
		a.sleep(a.settle)
	}
}
