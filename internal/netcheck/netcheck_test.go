package netcheck

import (
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStaticAndFunc(t *testing.T) {
	require.True(t, Static(true).Online())
	require.False(t, Static(false).Online())
	require.False(t, Func(func() bool { return false }).Online())
}

func TestInterfacesListError(t *testing.T) {
	c := &Interfaces{list: func() ([]net.Interface, error) { return nil, errors.New("denied") }}
	require.True(t, c.Online())
}

func TestInterfacesOnlyLoopback(t *testing.T) {
	c := &Interfaces{list: func() ([]net.Interface, error) {
		return []net.Interface{
			{Index: 1, Name: "lo", Flags: net.FlagUp | net.FlagLoopback},
			{Index: 2, Name: "eth0"},
		}, nil
	}}
	require.False(t, c.Online())
}
