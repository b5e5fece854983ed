// Package filelog durably persists a raft.LogStore's entries and snapshot
// descriptor to disk, the log-side counterpart to filecell. It is not on
// the CORE's per-RPC hot path — raft.LogStore itself is an in-memory
// structure by design (spec §1 leaves on-disk byte layout to a
// collaborator) — instead cmd/raftd calls Load once at startup to rebuild
// the in-memory LogStore across a restart, and Save once on shutdown to
// flush it back out.
package filelog

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/quorumhq/raft"
)

type onDiskRecord struct {
	Entries   []raft.LogEntry
	Compacted raft.Compacted
}

// Store is a single file holding the full log and snapshot descriptor.
type Store struct {
	path string
}

// New wraps path without touching it; call Load to read existing content.
func New(path string) *Store {
	return &Store{path: path}
}

// Load reads the persisted entries and snapshot descriptor, or returns
// zero values if the file has never been written.
func (s *Store) Load() ([]raft.LogEntry, raft.Compacted, error) {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil, raft.Compacted{}, nil
	}
	if err != nil {
		return nil, raft.Compacted{}, fmt.Errorf("filelog: open %s: %w", s.path, err)
	}
	defer f.Close()

	var rec onDiskRecord
	if err := gob.NewDecoder(f).Decode(&rec); err != nil {
		return nil, raft.Compacted{}, fmt.Errorf("filelog: decode %s: %w", s.path, err)
	}
	return rec.Entries, rec.Compacted, nil
}

// Save atomically overwrites the file with the given entries and snapshot
// descriptor, fsyncing before the rename makes the write visible.
func (s *Store) Save(entries []raft.LogEntry, compacted raft.Compacted) error {
	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("filelog: create %s: %w", tmp, err)
	}
	rec := onDiskRecord{Entries: entries, Compacted: compacted}
	if err := gob.NewEncoder(f).Encode(rec); err != nil {
		f.Close()
		return fmt.Errorf("filelog: encode %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("filelog: sync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("filelog: close %s: %w", tmp, err)
	}
	return os.Rename(tmp, s.path)
}
