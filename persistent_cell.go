package raft

// PersistentCell holds the two durable fields every node must never lose
// across a crash: currentTerm and votedFor (spec §3, §4.1). Set must
// fsync-or-equivalent before returning so a subsequent crash cannot roll
// the value back. The on-disk byte layout is an external collaborator's
// concern (spec §1); this package only depends on the interface.
type PersistentCell interface {
	CurrentTerm() uint64
	VotedFor() string // "" means null

	SetCurrentTerm(term uint64) error
	SetVotedFor(candidate string) error
}

// memCell is an in-memory PersistentCell for tests and for nodes that do
// not need to survive a restart.
type memCell struct {
	currentTerm uint64
	votedFor    string
}

// NewMemCell returns a PersistentCell that does not persist across
// restarts. It still fsyncs nothing and never fails, which is only
// appropriate for tests.
func NewMemCell() PersistentCell { return &memCell{} }

func (c *memCell) CurrentTerm() uint64       { return c.currentTerm }
func (c *memCell) VotedFor() string          { return c.votedFor }
func (c *memCell) SetCurrentTerm(t uint64) error {
	c.currentTerm = t
	return nil
}
func (c *memCell) SetVotedFor(v string) error {
	c.votedFor = v
	return nil
}
