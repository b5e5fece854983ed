package kv

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplySetAndUnset(t *testing.T) {
	m := New()
	m.Apply(EncodeCommand(Command{Type: CommandSet, Key: "a", Value: []byte("1")}))
	v, ok := m.Lookup("a")
	require.True(t, ok)
	require.Equal(t, []byte("1"), v)

	m.Apply(EncodeCommand(Command{Type: CommandUnset, Key: "a"}))
	_, ok = m.Lookup("a")
	require.False(t, ok)
}

func TestApplyIgnoresMalformedCommand(t *testing.T) {
	m := New()
	require.NotPanics(t, func() { m.Apply([]byte("not msgpack")) })
}

func TestValueTracksLastSet(t *testing.T) {
	m := New()
	m.Apply(EncodeCommand(Command{Type: CommandSet, Key: "a", Value: []byte("1")}))
	m.Apply(EncodeCommand(Command{Type: CommandSet, Key: "b", Value: []byte("2")}))
	require.Equal(t, []byte("2"), m.Value())
}

func TestSnapshotRoundTrip(t *testing.T) {
	m := New()
	m.Apply(EncodeCommand(Command{Type: CommandSet, Key: "a", Value: []byte("1")}))
	m.Apply(EncodeCommand(Command{Type: CommandSet, Key: "b", Value: []byte("2")}))

	data, err := m.Snapshot()
	require.NoError(t, err)

	restored := New()
	require.NoError(t, restored.Restore(data))
	v, ok := restored.Lookup("a")
	require.True(t, ok)
	require.Equal(t, []byte("1"), v)
	v, ok = restored.Lookup("b")
	require.True(t, ok)
	require.Equal(t, []byte("2"), v)
}
