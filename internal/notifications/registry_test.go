package notifications

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type stubChannel struct {
	closed bool
}

func (s *stubChannel) Send(Event) error { return nil }

func (s *stubChannel) Close() error {
	s.closed = true
	return nil
}

func TestRegistryTracksMultipleChannels(t *testing.T) {
	registry := NewRegistry()
	first, second := &stubChannel{}, &stubChannel{}

	require.True(t, registry.Add("user-1", first))
	require.False(t, registry.Add("user-1", second))
	require.True(t, registry.IsOnline("user-1"))
	require.Equal(t, ConnectionStatus{Online: true, ConnectionCount: 2}, registry.Status("user-1"))
	require.Equal(t, 1, registry.ConnectedCount())
	require.Len(t, registry.Channels("user-1"), 2)

	require.False(t, registry.Remove("user-1", first))
	require.True(t, registry.IsOnline("user-1"))

	require.True(t, registry.Remove("user-1", second))
	require.False(t, registry.IsOnline("user-1"))
	require.Zero(t, registry.ConnectedCount())
	require.Nil(t, registry.Channels("user-1"))

	require.False(t, registry.Remove("user-1", second), "removing an unknown channel is a no-op")
}

func TestRegistryCloseAll(t *testing.T) {
	registry := NewRegistry()
	a, b := &stubChannel{}, &stubChannel{}
	registry.Add("user-1", a)
	registry.Add("user-2", b)

	registry.CloseAll()

	require.True(t, a.closed)
	require.True(t, b.closed)
	require.Zero(t, registry.ConnectedCount())
}
