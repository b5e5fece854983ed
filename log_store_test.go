package raft

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogStoreTermSentinel(t *testing.T) {
	l := NewLogStore(nil)
	require.Equal(t, uint64(0), l.Term(0))
	require.Equal(t, uint64(0), l.Index())
}

func TestLogStoreAppendAndCommit(t *testing.T) {
	sm := &memStateMachine{}
	l := NewLogStore(sm)

	l.AppendEntries([]LogEntry{{Term: 1, Data: []byte("a")}, {Term: 1, Data: []byte("b")}}, 0)
	require.Equal(t, uint64(2), l.Index())
	require.Equal(t, uint64(0), l.CommitIndex())

	l.Commit(1)
	require.Equal(t, uint64(1), l.CommitIndex())
	require.Equal(t, 1, sm.appliedCount())

	l.Commit(2)
	require.Equal(t, uint64(2), l.CommitIndex())
	require.Equal(t, 2, sm.appliedCount())

	// Committing past the end of the log clamps instead of panicking.
	l.Commit(100)
	require.Equal(t, uint64(2), l.CommitIndex())
}

func TestLogStoreAppendIsIdempotentOnMatchingEntries(t *testing.T) {
	l := NewLogStore(nil)
	entries := []LogEntry{{Term: 1, Data: []byte("a")}, {Term: 1, Data: []byte("b")}}
	l.AppendEntries(entries, 0)
	l.AppendEntries(entries, 0) // replay, as a retried AppendEntries RPC would
	require.Equal(t, uint64(2), l.Index())
	require.Equal(t, uint64(1), l.Term(1))
}

func TestLogStoreAppendTruncatesOnConflict(t *testing.T) {
	l := NewLogStore(nil)
	l.AppendEntries([]LogEntry{{Term: 1}, {Term: 1}, {Term: 1}}, 0)
	require.Equal(t, uint64(3), l.Index())

	// A new leader for term 2 overwrites index 2 onward.
	l.AppendEntries([]LogEntry{{Term: 2}}, 1)
	require.Equal(t, uint64(2), l.Index())
	require.Equal(t, uint64(2), l.Term(2))
}

func TestLogStoreConflictIndexForShortLog(t *testing.T) {
	l := NewLogStore(nil)
	l.AppendEntries([]LogEntry{{Term: 1}}, 0)
	require.Equal(t, uint64(2), l.ConflictIndexFor(5))
}

func TestLogStoreConflictIndexForTermMismatch(t *testing.T) {
	l := NewLogStore(nil)
	l.AppendEntries([]LogEntry{{Term: 1}, {Term: 1}, {Term: 2}, {Term: 2}}, 0)
	// prevLogIndex=4 has term 2; the conflicting run starts at index 3.
	require.Equal(t, uint64(3), l.ConflictIndexFor(4))
}

func TestLogStoreInstallSnapshot(t *testing.T) {
	sm := &memStateMachine{}
	l := NewLogStore(sm)
	l.AppendEntries([]LogEntry{{Term: 1}, {Term: 1}}, 0)
	l.Commit(1)

	l.InstallSnapshot(5, 2, []byte("snapshot"))
	require.Equal(t, uint64(5), l.Index())
	require.Equal(t, uint64(2), l.Term(5))
	require.Equal(t, uint64(5), l.CommitIndex())
	require.Equal(t, uint64(5), l.LastApplied())
	require.Nil(t, l.Entry(5))
	require.Nil(t, l.Entry(1))
}

func TestLogStoreSliceClampsToHeldRange(t *testing.T) {
	l := NewLogStore(nil)
	l.AppendEntries([]LogEntry{{Term: 1}, {Term: 1}, {Term: 1}}, 0)
	require.Len(t, l.Slice(1, 10), 3)
	require.Len(t, l.Slice(2, 3), 1)
	require.Len(t, l.Slice(10, 20), 0)
}
