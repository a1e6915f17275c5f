package input

import (
	"context"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kbmd/internal/dispatch"
	"kbmd/internal/protocol"
)

func testEntry() *log.Entry {
	return log.WithField("component", "test")
}

// runUntilIdle steps the interpolator until it stops moving.
func runUntilIdle(t *testing.T, p *Interpolator) {
	t.Helper()
	for i := 0; i < 10000; i++ {
		moved, err := p.Step()
		require.NoError(t, err)
		if !moved {
			return
		}
	}
	t.Fatal("pointer never came to rest")
}

func TestApproach(t *testing.T) {
	assert.EqualValues(t, 1, approach(10, 0, 1))
	assert.EqualValues(t, -1, approach(-10, 0, 1))
	assert.EqualValues(t, 10, approach(10, 9, 1))
	assert.EqualValues(t, 10, approach(10, 8, 5), "snaps inside one step")
	assert.EqualValues(t, 5, approach(5, 5, 1))
	assert.EqualValues(t, -32767, approach(32767, -32768, 1), "no overflow")
}

func TestInterpolatorWalksToTarget(t *testing.T) {
	rec := newRecorder()
	cell := dispatch.NewLatest[protocol.PointerMove]()
	p := NewInterpolator(rec, cell, PointerOptions{Step: 1}, testEntry())

	require.NoError(t, cell.Store(protocol.PointerMove{X: 10, Y: 0}))
	runUntilIdle(t, p)

	var want [][2]int
	for x := 1; x <= 10; x++ {
		want = append(want, [2]int{x, 0})
	}
	assert.Equal(t, want, rec.Moves())
	assert.Equal(t, Position{X: 10, Y: 0}, p.Current())

	// Holding at the target emits nothing.
	moved, err := p.Step()
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Len(t, rec.Moves(), 10)
}

func TestInterpolatorAbandonsStaleTarget(t *testing.T) {
	rec := newRecorder()
	cell := dispatch.NewLatest[protocol.PointerMove]()
	p := NewInterpolator(rec, cell, PointerOptions{Step: 1}, testEntry())

	require.NoError(t, cell.Store(protocol.PointerMove{X: 10, Y: 0}))
	for i := 0; i < 5; i++ {
		_, err := p.Step()
		require.NoError(t, err)
	}
	require.Equal(t, Position{X: 5, Y: 0}, p.Current())

	require.NoError(t, cell.Store(protocol.PointerMove{X: 0, Y: 0}))
	runUntilIdle(t, p)

	moves := rec.Moves()[5:]
	assert.Equal(t, [][2]int{{4, 0}, {3, 0}, {2, 0}, {1, 0}, {0, 0}}, moves)
}

func TestInterpolatorStepLeavesNoPendingWakeUp(t *testing.T) {
	rec := newRecorder()
	cell := dispatch.NewLatest[protocol.PointerMove]()
	p := NewInterpolator(rec, cell, PointerOptions{Step: 1}, testEntry())

	require.NoError(t, cell.Store(protocol.PointerMove{X: 3, Y: 0}))
	moved, err := p.Step()
	require.NoError(t, err)
	require.True(t, moved)

	// The next move must wait for the ticker, not a stale wake-up.
	select {
	case <-cell.Ready():
		t.Fatal("target already adopted but still signalled")
	default:
	}
}

func TestInterpolatorRepeatedTargetIsIdempotent(t *testing.T) {
	rec := newRecorder()
	cell := dispatch.NewLatest[protocol.PointerMove]()
	p := NewInterpolator(rec, cell, PointerOptions{Step: 3}, testEntry())

	require.NoError(t, cell.Store(protocol.PointerMove{X: 7, Y: 7}))
	runUntilIdle(t, p)
	n := len(rec.Moves())

	require.NoError(t, cell.Store(protocol.PointerMove{X: 7, Y: 7}))
	runUntilIdle(t, p)
	assert.Len(t, rec.Moves(), n)
}

func TestInterpolatorClampsToScreen(t *testing.T) {
	rec := newRecorder()
	cell := dispatch.NewLatest[protocol.PointerMove]()
	p := NewInterpolator(rec, cell, PointerOptions{Step: 50, ScreenWidth: 1280, ScreenHeight: 720}, testEntry())

	require.NoError(t, cell.Store(protocol.PointerMove{X: -10, Y: 200}))
	runUntilIdle(t, p)

	assert.Equal(t, Position{X: -10, Y: 200}, p.Current())
	last := rec.Moves()[len(rec.Moves())-1]
	assert.Equal(t, [2]int{0, 720}, last)
}

func TestInterpolatorRunConverges(t *testing.T) {
	rec := newRecorder()
	cell := dispatch.NewLatest[protocol.PointerMove]()
	p := NewInterpolator(rec, cell, PointerOptions{Step: 5, Interval: time.Millisecond}, testEntry())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.NoError(t, cell.Store(protocol.PointerMove{X: 0, Y: 0}))
	require.NoError(t, cell.Store(protocol.PointerMove{X: 100, Y: 100}))

	require.Eventually(t, func() bool {
		moves := rec.Moves()
		return len(moves) > 0 && moves[len(moves)-1] == [2]int{100, 100}
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	// The loop has gone, so the dispatcher side must now fail.
	assert.ErrorIs(t, cell.Store(protocol.PointerMove{}), dispatch.ErrConsumerGone)
}

func TestInterpolatorBackendFailureIsFatal(t *testing.T) {
	rec := newRecorder()
	rec.failOn = "pointer 1 1"
	cell := dispatch.NewLatest[protocol.PointerMove]()
	p := NewInterpolator(rec, cell, PointerOptions{Step: 1, Interval: time.Millisecond}, testEntry())

	require.NoError(t, cell.Store(protocol.PointerMove{X: 10, Y: 10}))
	err := p.Run(context.Background())
	assert.EqualError(t, err, "display connection lost")
}
