package input

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"kbmd/internal/dispatch"
	"kbmd/internal/protocol"
)

// Position is a pointer position in percent of the screen. Values outside 0-100 are
// legal and clamped only when converted to pixels.
type Position struct {
	X, Y int16
}

// PointerOptions tunes the pointer loop.
type PointerOptions struct {
	// Step is the largest per-axis move per tick, in percent
	Step int16

	// Interval is the tick period while the pointer is moving
	Interval time.Duration

	// ScreenWidth and ScreenHeight override the backend's size when non-zero
	ScreenWidth, ScreenHeight int
}

// Interpolator walks the pointer from its current position toward the latest
// requested target a bounded step at a time.
type Interpolator struct {
	inj     InputInjector
	targets *dispatch.Latest[protocol.PointerMove]
	opts    PointerOptions
	width   int
	height  int
	log     *log.Entry

	current Position
	target  Position
}

// NewInterpolator creates a pointer loop starting at (0,0).
func NewInterpolator(inj InputInjector, targets *dispatch.Latest[protocol.PointerMove], opts PointerOptions, entry *log.Entry) *Interpolator {
	if opts.Step <= 0 {
		opts.Step = 1
	}
	if opts.Interval <= 0 {
		opts.Interval = 4 * time.Millisecond
	}
	w, h := inj.ScreenSize()
	if opts.ScreenWidth > 0 {
		w = opts.ScreenWidth
	}
	if opts.ScreenHeight > 0 {
		h = opts.ScreenHeight
	}
	return &Interpolator{
		inj:     inj,
		targets: targets,
		opts:    opts,
		width:   w,
		height:  h,
		log:     entry,
	}
}

// Run moves the pointer until ctx is done or the backend fails. While the pointer
// rests on its target the loop sleeps until a new target arrives. The target cell
// is closed on return so the dispatcher notices the loop is gone.
func (p *Interpolator) Run(ctx context.Context) error {
	defer p.targets.Close()

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	p.log.WithFields(log.Fields{"width": p.width, "height": p.height, "step": p.opts.Step}).Info("pointer loop started")
	for {
		if _, err := p.Step(); err != nil {
			return err
		}

		var tick <-chan time.Time
		if p.current != p.target {
			tick = ticker.C
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.targets.Ready():
		case <-tick:
		}
	}
}

// Step runs one tick: adopt a newer target if one arrived, then move one step
// toward the target. It reports whether the pointer moved.
func (p *Interpolator) Step() (bool, error) {
	if mv, ok := p.targets.TryTake(); ok {
		p.target = Position{X: mv.X, Y: mv.Y}
	}
	if p.current == p.target {
		return false, nil
	}

	next := Position{
		X: approach(p.target.X, p.current.X, p.opts.Step),
		Y: approach(p.target.Y, p.current.Y, p.opts.Step),
	}
	x, y := p.toPixels(next)
	if err := p.inj.InjectPointer(x, y); err != nil {
		return false, err
	}
	p.current = next
	return true, nil
}

// Current returns the last position sent to the backend.
func (p *Interpolator) Current() Position {
	return p.current
}

func (p *Interpolator) toPixels(pos Position) (int, int) {
	x := int(clamp(pos.X, 0, 100))
	y := int(clamp(pos.Y, 0, 100))
	return p.width * x / 100, p.height * y / 100
}

// approach moves current toward target by at most step, snapping when within
// one step.
func approach(target, current, step int16) int16 {
	diff := int32(target) - int32(current)
	if diff > int32(step) {
		return current + step
	}
	if diff < -int32(step) {
		return current - step
	}
	return target
}

func clamp(v, lo, hi int16) int16 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
