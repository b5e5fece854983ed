package filelog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quorumhq/raft"
)

func TestLoadMissingFileReturnsEmpty(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "log.gob"))
	entries, compacted, err := s.Load()
	require.NoError(t, err)
	require.Nil(t, entries)
	require.Equal(t, raft.Compacted{}, compacted)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "log.gob"))
	entries := []raft.LogEntry{{Term: 1, Data: []byte("a")}, {Term: 2, Data: []byte("b")}}
	compacted := raft.Compacted{Index: 0, Term: 0}

	require.NoError(t, s.Save(entries, compacted))
	loaded, loadedCompacted, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, entries, loaded)
	require.Equal(t, compacted, loadedCompacted)
}

func TestRestoreIntoLogStore(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "log.gob"))
	entries := []raft.LogEntry{{Term: 1, Data: []byte("a")}}
	require.NoError(t, s.Save(entries, raft.Compacted{}))

	loaded, compacted, err := s.Load()
	require.NoError(t, err)

	l := raft.NewLogStore(nil)
	l.Restore(loaded, compacted)
	require.Equal(t, uint64(1), l.Index())
}
