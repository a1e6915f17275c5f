package network

import (
	"bytes"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameReaderCapsFrames(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	go a.Write(bytes.Repeat([]byte("x"), 150))

	r := NewFrameReader(b, 0)
	first, err := r.Next()
	require.NoError(t, err)
	assert.Len(t, first, 100)

	second, err := r.Next()
	require.NoError(t, err)
	assert.Len(t, second, 50)
}

func TestFrameReaderOneReadOneFrame(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	go a.Write([]byte("m 10 20"))

	frame, err := NewFrameReader(b, 0).Next()
	require.NoError(t, err)
	assert.Equal(t, "m 10 20", string(frame))
}

func TestFrameReaderEOF(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()
	a.Close()

	_, err := NewFrameReader(b, 0).Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestFrameReaderDeadlineIsCleared(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	r := NewFrameReader(b, 0)
	_, err := r.NextWithin(20 * time.Millisecond)
	var ne net.Error
	require.ErrorAs(t, err, &ne)
	assert.True(t, ne.Timeout())

	go func() {
		time.Sleep(50 * time.Millisecond)
		a.Write([]byte("t a"))
	}()
	frame, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "t a", string(frame))
}
