package network

import (
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReachableAddrsSpecificHost(t *testing.T) {
	addr := &net.TCPAddr{IP: net.ParseIP("192.168.1.20"), Port: 4000}
	assert.Equal(t, []string{"192.168.1.20:4000"}, ReachableAddrs(addr))
}

func TestReachableAddrsWildcard(t *testing.T) {
	got := ReachableAddrs(&net.TCPAddr{Port: 4000})
	require.NotEmpty(t, got)
	for _, a := range got {
		assert.True(t, strings.HasSuffix(a, ":4000"), a)
	}
}
