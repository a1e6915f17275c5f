// Package dispatch routes decoded commands to the loops that act on them.
//
// Pointer targets go to a latest-wins cell; keys, mouse buttons and special keys go
// to unbounded FIFO queues. Nothing here blocks the network goroutine.
package dispatch

import (
	"errors"
	"fmt"
	"sync/atomic"

	"kbmd/internal/protocol"
)

// ErrConsumerGone means the loop draining a channel has stopped. Consumers are
// expected to outlive every producer, so this is fatal.
var ErrConsumerGone = errors.New("dispatch: consumer loop is no longer running")

// Dispatcher owns the four outbound channels.
type Dispatcher struct {
	Pointer  *Latest[protocol.PointerMove]
	Keys     *Queue[protocol.KeyPress]
	Buttons  *Queue[protocol.MouseButton]
	Specials *Queue[protocol.Special]

	dispatched atomic.Uint64
}

// New creates a dispatcher with empty channels.
func New() *Dispatcher {
	return &Dispatcher{
		Pointer:  NewLatest[protocol.PointerMove](),
		Keys:     NewQueue[protocol.KeyPress](),
		Buttons:  NewQueue[protocol.MouseButton](),
		Specials: NewQueue[protocol.Special](),
	}
}

// Dispatch hands cmd to exactly one channel.
func (d *Dispatcher) Dispatch(cmd protocol.Command) error {
	var err error
	switch c := cmd.(type) {
	case protocol.PointerMove:
		err = d.Pointer.Store(c)
	case protocol.KeyPress:
		err = d.Keys.Push(c)
	case protocol.MouseButton:
		err = d.Buttons.Push(c)
	case protocol.Special:
		err = d.Specials.Push(c)
	default:
		return fmt.Errorf("dispatch: unsupported command %T", cmd)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", cmd.Kind(), err)
	}
	d.dispatched.Add(1)
	return nil
}

// Dispatched returns the number of commands accepted so far.
func (d *Dispatcher) Dispatched() uint64 {
	return d.dispatched.Load()
}
