package tray

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusBeforeReady(t *testing.T) {
	tr := New("kbmd")
	assert.Equal(t, "starting", tr.Status())

	tr.SetStatus("listening on 127.0.0.1:7878")
	assert.Equal(t, "listening on 127.0.0.1:7878", tr.Status())
}

func TestMenuItems(t *testing.T) {
	tr := New("kbmd")
	assert.Equal(t, 0, tr.AddMenuItem("Quit", func() {}))
	tr.AddSeparator()
	assert.Equal(t, 2, tr.AddMenuItem("About", nil))
	require.Len(t, tr.items, 3)
	assert.Nil(t, tr.items[1])
}

func TestIconHeader(t *testing.T) {
	icon := getIcon()
	require.Len(t, icon, 1118)
	assert.EqualValues(t, 1, binary.LittleEndian.Uint16(icon[2:4]), "type icon")
	assert.EqualValues(t, 1096, binary.LittleEndian.Uint32(icon[14:18]))
	assert.EqualValues(t, 22, binary.LittleEndian.Uint32(icon[18:22]))
}
