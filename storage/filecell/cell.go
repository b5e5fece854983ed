// Package filecell is a disk-backed raft.PersistentCell: the two fields a
// node must never lose across a crash, currentTerm and votedFor, written
// with encoding/gob and fsynced before every write returns. Grounded in
// the gob-persistence idiom of the reference corpus's Sentinel persister,
// generalized from its single opaque byte-slice blob into the two typed
// fields this CORE actually needs.
package filecell

import (
	"encoding/gob"
	"fmt"
	"os"
	"sync"
)

type record struct {
	CurrentTerm uint64
	VotedFor    string
}

// Cell is a raft.PersistentCell backed by a single file. It is not safe
// for concurrent use by more than one process; the event loop that owns
// it only ever calls it from the single goroutine spec §5 requires, but
// the internal mutex also guards concurrent reads from diagnostics.
type Cell struct {
	mu   sync.Mutex
	path string
	rec  record
}

// Open loads path if it exists, or creates a zero-valued Cell backed by it
// otherwise.
func Open(path string) (*Cell, error) {
	c := &Cell{path: path}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("filecell: open %s: %w", path, err)
	}
	defer f.Close()
	if err := gob.NewDecoder(f).Decode(&c.rec); err != nil {
		return nil, fmt.Errorf("filecell: decode %s: %w", path, err)
	}
	return c, nil
}

func (c *Cell) CurrentTerm() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rec.CurrentTerm
}

func (c *Cell) VotedFor() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rec.VotedFor
}

func (c *Cell) SetCurrentTerm(term uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.rec.CurrentTerm
	c.rec.CurrentTerm = term
	if err := c.flushLocked(); err != nil {
		c.rec.CurrentTerm = prev
		return err
	}
	return nil
}

func (c *Cell) SetVotedFor(candidate string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.rec.VotedFor
	c.rec.VotedFor = candidate
	if err := c.flushLocked(); err != nil {
		c.rec.VotedFor = prev
		return err
	}
	return nil
}

// flushLocked writes the record to a temp file and renames it over path,
// so a crash mid-write never leaves a truncated or half-written file
// behind for the next Open to choke on.
func (c *Cell) flushLocked() error {
	tmp := c.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("filecell: create %s: %w", tmp, err)
	}
	if err := gob.NewEncoder(f).Encode(c.rec); err != nil {
		f.Close()
		return fmt.Errorf("filecell: encode %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("filecell: sync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("filecell: close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("filecell: rename %s: %w", tmp, err)
	}
	return nil
}
